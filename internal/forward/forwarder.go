// Package forward implements the lid-angle forwarding loop: one blocking
// initial probe, a change-driven relay, and an optional fixed-cadence
// heartbeat re-send of the last known value, with coordinated leak-free
// shutdown.
package forward

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/lidosc/internal/lidsensor"
	"github.com/banshee-data/lidosc/internal/monitoring"
	"github.com/banshee-data/lidosc/internal/oscsink"
)

// ErrConnect marks the one fatal failure mode: the sensor was unreachable at
// startup, before any monitoring began.
var ErrConnect = errors.New("sensor unreachable")

// heartbeatJoinTimeout bounds how long shutdown waits for the heartbeat task
// to observe the stop signal, so a wedged timer cannot hang the process.
const heartbeatJoinTimeout = time.Second

// Config carries the immutable per-run settings of the forwarding loop.
type Config struct {
	// Topic is the OSC address used for every outbound send.
	Topic string
	// InitialRead performs one blocking probe and send before monitoring
	// begins. A failed probe is logged and monitoring continues.
	InitialRead bool
	// HeartbeatInterval re-sends the last known angle at this cadence even
	// when unchanged. Zero or negative disables the heartbeat.
	HeartbeatInterval time.Duration
}

// Forwarder relays lid-angle changes from one sensor to one OSC sink. The
// relay path is the only writer of the latest-angle cell; the heartbeat task
// only reads it.
type Forwarder struct {
	sensor lidsensor.Sensor
	sink   oscsink.Sink
	cfg    Config

	latest atomic.Pointer[float64]
	stats  *Stats
}

// New creates a Forwarder over the given sensor and sink.
func New(sensor lidsensor.Sensor, sink oscsink.Sink, cfg Config) *Forwarder {
	return &Forwarder{
		sensor: sensor,
		sink:   sink,
		cfg:    cfg,
		stats:  NewStats(),
	}
}

// LatestAngle returns the most recently observed angle, or false when no
// reading has been taken yet.
func (f *Forwarder) LatestAngle() (float64, bool) {
	p := f.latest.Load()
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Stats returns the forwarding activity tracker.
func (f *Forwarder) Stats() *Stats {
	return f.stats
}

// Run connects the sensor and relays its change stream to the sink until the
// stream ends, an unrecoverable read error occurs, or ctx is cancelled.
// Cleanup (heartbeat stop and join, then sensor disconnect) runs on every
// exit path. Only a connect failure is returned as fatal (wrapped ErrConnect).
func (f *Forwarder) Run(ctx context.Context) error {
	// disconnect runs regardless of connection state, after the heartbeat
	// join below (defers unwind in reverse order)
	defer func() {
		if err := f.sensor.Disconnect(); err != nil {
			monitoring.Debugf("sensor disconnect: %v", err)
		}
	}()

	if err := f.sensor.Connect(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	if f.cfg.InitialRead {
		if angle, err := f.sensor.ReadAngle(); err != nil {
			// a failed probe must not prevent live monitoring, which may
			// still succeed
			monitoring.Debugf("initial read failed: %v", err)
		} else {
			f.observe(angle)
			f.stats.AddReading(angle)
			f.send(angle)
			monitoring.Debugf("initial lid angle: %.1f°", angle)
		}
	}

	stop := make(chan struct{})
	var heartbeatDone chan struct{}
	if f.cfg.HeartbeatInterval > 0 {
		heartbeatDone = make(chan struct{})
		go f.heartbeat(stop, heartbeatDone)
	}
	defer func() {
		close(stop)
		if heartbeatDone == nil {
			return
		}
		select {
		case <-heartbeatDone:
		case <-time.After(heartbeatJoinTimeout):
			monitoring.Logf("heartbeat task did not stop within %v", heartbeatJoinTimeout)
		}
	}()

	// subscribe before starting the pump so no change event is missed; the
	// reliable subscription makes the pump wait rather than drop on a full
	// buffer, so every change reaches the sink exactly once in order
	id, angles := f.sensor.SubscribeReliable()
	defer f.sensor.Unsubscribe(id)

	monitorErr := make(chan error, 1)
	go func() {
		monitorErr <- f.sensor.Monitor(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			monitoring.Debugf("interrupted")
			return nil

		case err := <-monitorErr:
			// the pump may finish while change events are still buffered;
			// deliver those before shutting down so nothing is dropped
			f.drain(angles)
			if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("sensor stream failed: %w", err)
			}
			monitoring.Debugf("sensor stream ended")
			return nil

		case angle, ok := <-angles:
			if !ok {
				return nil
			}
			f.relay(angle)
		}
	}
}

// relay handles one change event from the sensor stream.
func (f *Forwarder) relay(angle float64) {
	f.observe(angle)
	f.stats.AddChange(angle)
	monitoring.Debugf("lid angle: %.1f°", angle)
	f.send(angle)
}

// drain relays whatever change events are already buffered, without waiting
// for more.
func (f *Forwarder) drain(angles <-chan float64) {
	for {
		select {
		case angle, ok := <-angles:
			if !ok {
				return
			}
			f.relay(angle)
		default:
			return
		}
	}
}

// observe stores the angle into the shared latest-value cell.
func (f *Forwarder) observe(angle float64) {
	a := angle
	f.latest.Store(&a)
}

// send is fire-and-forget: failures are counted and logged, never retried.
func (f *Forwarder) send(angle float64) {
	if err := f.sink.Send(f.cfg.Topic, angle); err != nil {
		f.stats.AddSendError()
		monitoring.Debugf("send failed: %v", err)
	}
}

// heartbeat re-sends the latest angle on a fixed cadence until stop is
// closed. Nothing is sent while no reading exists yet, so a heartbeat can
// never precede the first real or initial value.
func (f *Forwarder) heartbeat(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	monitoring.Debugf("heartbeat started (interval=%s)", f.cfg.HeartbeatInterval)

	ticker := time.NewTicker(f.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			monitoring.Debugf("heartbeat stopping")
			return
		case <-ticker.C:
			if p := f.latest.Load(); p != nil {
				f.stats.AddHeartbeat()
				f.send(*p)
				monitoring.Debugf("heartbeat %.1f°", *p)
			}
		}
	}
}
