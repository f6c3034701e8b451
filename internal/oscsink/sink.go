// Package oscsink transmits angle telemetry as OSC messages over UDP.
package oscsink

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
)

// Sink is the outbound message interface consumed by the forwarding loop.
// Sends are fire-and-forget best-effort unicast: no acknowledgement, no
// retry. Implementations report transport errors for the caller to count and
// drop.
type Sink interface {
	Send(topic string, angle float64) error
}

// Client is a Sink backed by a go-osc UDP client targeting one destination.
type Client struct {
	client *osc.Client
	addr   string
}

// NewClient creates an OSC sink sending to ip:port.
func NewClient(ip string, port int) *Client {
	return &Client{
		client: osc.NewClient(ip, port),
		addr:   fmt.Sprintf("%s:%d", ip, port),
	}
}

// Addr returns the destination in host:port form.
func (c *Client) Addr() string {
	return c.addr
}

// Send transmits one angle reading at the given OSC address. The value goes
// out as a float32 argument, the conventional OSC float type.
func (c *Client) Send(topic string, angle float64) error {
	msg := osc.NewMessage(topic)
	msg.Append(float32(angle))
	if err := c.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send OSC message to %s: %w", c.addr, err)
	}
	return nil
}
