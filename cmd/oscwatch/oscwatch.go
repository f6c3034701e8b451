// Command oscwatch is a diagnostic OSC receiver: it listens on a UDP port
// and prints every message arriving at the watched address. Use it to eyeball
// what lidosc is sending without an OSC-capable peer on the network.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/hypebeast/go-osc/osc"
)

var (
	listenAddr = flag.String("addr", "127.0.0.1", "UDP address to listen on")
	listenPort = flag.Int("port", 8000, "UDP port to listen on")
	message    = flag.String("message", "/lid", "OSC message address to watch")
)

func main() {
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *listenAddr, *listenPort)

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler(*message, func(msg *osc.Message) {
		log.Printf("%s", msg)
	}); err != nil {
		log.Fatalf("failed to register handler for %s: %v", *message, err)
	}

	server := &osc.Server{
		Addr:       addr,
		Dispatcher: d,
	}

	log.Printf("watching %s on %s", *message, addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("oscwatch server failed: %v", err)
	}
}
