// Command lidosc bridges a lid-angle sensor to an OSC telemetry sink: it
// reads the device's lid angle over a serial port and forwards each change as
// an OSC message over UDP, optionally re-sending the last known value on a
// fixed heartbeat cadence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/lidosc/internal/forward"
	"github.com/banshee-data/lidosc/internal/lidsensor"
	"github.com/banshee-data/lidosc/internal/monitoring"
	"github.com/banshee-data/lidosc/internal/oscsink"
	"github.com/banshee-data/lidosc/internal/version"
)

var (
	oscIP       = flag.String("ip", "localhost", "OSC destination address")
	oscPort     = flag.Int("port", 8000, "OSC destination UDP port")
	message     = flag.String("message", "/lid", "OSC message address for outbound sends")
	verbose     = flag.Bool("verbose", false, "Enable verbose diagnostic output")
	interval    = flag.Float64("interval", 0, "Heartbeat interval in seconds; <= 0 disables the heartbeat")
	serialPath  = flag.String("serial", "/dev/ttyUSB0", "Serial port of the lid-angle sensor (ignored in dev mode)")
	baudRate    = flag.Int("baud", 115200, "Serial baud rate")
	devMode     = flag.Bool("dev", false, "Run with a synthetic sweep sensor instead of hardware")
	initialRead = flag.Bool("initial-read", true, "Perform and send one blocking reading before monitoring")
	listen      = flag.String("listen", "", "Debug HTTP listen address (empty disables debug routes)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// single-letter aliases matching the original CLI surface
func init() {
	flag.StringVar(oscIP, "i", "localhost", "Shorthand for -ip")
	flag.IntVar(oscPort, "p", 8000, "Shorthand for -port")
	flag.StringVar(message, "m", "/lid", "Shorthand for -message")
	flag.BoolVar(verbose, "v", false, "Shorthand for -verbose")
	flag.Float64Var(interval, "d", 0, "Shorthand for -interval")
}

// sweepStep is the synthetic sensor cadence used in dev mode.
const sweepStep = 250 * time.Millisecond

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	monitoring.SetVerbose(*verbose)

	if *message == "" {
		log.Fatal("OSC message address is required")
	}

	var sensor *lidsensor.SerialSensor
	if *devMode {
		sensor = lidsensor.NewSweepSensor(sweepStep)
	} else {
		sensor = lidsensor.NewRealSensor(*serialPath, lidsensor.PortOptions{BaudRate: *baudRate})
	}

	sink := oscsink.NewClient(*oscIP, *oscPort)

	fw := forward.New(sensor, sink, forward.Config{
		Topic:             *message,
		InitialRead:       *initialRead,
		HeartbeatInterval: time.Duration(*interval * float64(time.Second)),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// debug HTTP server goroutine, only when requested
	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runDebugServer(ctx, sensor, fw)
		}()
	}

	monitoring.Debugf("forwarding lid angle to %s as %s", sink.Addr(), *message)

	err := fw.Run(ctx)

	// release the debug server if the stream ended on its own
	stop()

	switch {
	case err == nil:
	case errors.Is(err, forward.ErrConnect):
		log.Fatalf("failed to connect to sensor: %v", err)
	default:
		log.Printf("forwarder stopped: %v", err)
	}

	if monitoring.Verbose() {
		s := fw.Stats().Summary()
		monitoring.Logf("session: %d changes, %d heartbeats, %d send errors",
			s.Changes, s.Heartbeats, s.SendErrors)
	}

	wg.Wait()
}

// runDebugServer serves the /debug/ admin routes until ctx is cancelled, then
// shuts down with a bounded timeout.
func runDebugServer(ctx context.Context, sensor *lidsensor.SerialSensor, fw *forward.Forwarder) {
	mux := http.NewServeMux()
	sensor.AttachAdminRoutes(mux)
	fw.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server failed: %v", err)
		}
	}()
	log.Printf("debug routes on http://%s/debug/", *listen)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("debug server force close error: %v", err)
		}
	}
}
