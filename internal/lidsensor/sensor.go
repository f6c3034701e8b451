// Package lidsensor provides access to a serial-attached lid-angle sensor
// with the ability for multiple clients to subscribe to angle change events
// from a single device.
package lidsensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"
)

var (
	// ErrNotConnected is returned when an operation requires an open port.
	ErrNotConnected = errors.New("sensor not connected")
	// ErrWriteFailed is returned when a command is only partially written.
	ErrWriteFailed = errors.New("failed to write to sensor port")
	// ErrNoReading is returned when a single-shot probe produces no
	// parseable angle within the probe line budget.
	ErrNoReading = errors.New("no angle reading from sensor")
)

// Device commands. The firmware answers "R" with a single reading and streams
// continuously between "S1" and "S0".
const (
	cmdReadOnce  = "R"
	cmdStreamOn  = "S1"
	cmdStreamOff = "S0"
)

// readTimeout bounds the single-shot ReadAngle probe on ports that support
// read deadlines. Streaming reads are unbounded; the device controls cadence.
const readTimeout = 2 * time.Second

// maxProbeLines is how many unparseable lines ReadAngle will tolerate before
// giving up (boot banners, partial lines after open).
const maxProbeLines = 8

// Sensor is the device-facing interface consumed by the forwarding loop.
// Connect must succeed before any other call; Disconnect is best-effort and
// idempotent. Monitor pumps the device and broadcasts each angle change to
// subscriber channels, so Subscribe-then-Monitor is the streaming read path
// while ReadAngle is the one-shot blocking probe.
type Sensor interface {
	Connect() error
	Disconnect() error
	ReadAngle() (float64, error)
	Monitor(ctx context.Context) error
	// Subscribe creates a new channel for receiving angle change events.
	// The returned ID identifies the channel when unsubscribing. A
	// subscriber that falls behind misses updates.
	Subscribe() (string, chan float64)
	// SubscribeReliable creates a channel the monitor pump blocks on
	// rather than dropping events, for consumers that need every change.
	SubscribeReliable() (string, chan float64)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
}

// SerialSensor drives a lid-angle sensor over a serial port and multiplexes
// its change stream to any number of subscribers.
type SerialSensor struct {
	path   string
	opts   PortOptions
	opener PortOpener

	portMu sync.Mutex
	port   SensorPorter
	reader *bufio.Reader

	subscribers  map[string]*subscriber
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// subscriber is one registered consumer of angle change events. The pump
// applies backpressure for blocking subscribers and drops events for the
// rest; done releases a pump blocked mid-send when the subscriber goes away.
type subscriber struct {
	ch       chan float64
	done     chan struct{}
	blocking bool
}

// subscriberBuffer is the per-subscriber channel depth, absorbing scheduling
// jitter between the monitor pump and a consumer before the pump either
// blocks (reliable subscribers) or drops the event (diagnostic ones).
const subscriberBuffer = 16

// NewSerialSensor creates a SerialSensor for the device at path. The port is
// not opened until Connect.
func NewSerialSensor(path string, opts PortOptions, opener PortOpener) *SerialSensor {
	return &SerialSensor{
		path:        path,
		opts:        opts,
		opener:      opener,
		subscribers: make(map[string]*subscriber),
	}
}

// Connect opens the serial port. It fails if the device is unreachable and is
// a no-op when already connected.
func (s *SerialSensor) Connect() error {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		return nil
	}

	port, err := s.opener(s.path, s.opts)
	if err != nil {
		return fmt.Errorf("failed to open sensor port %s: %w", s.path, err)
	}

	s.port = port
	s.reader = bufio.NewReader(port)

	s.closingMu.Lock()
	s.closing = false
	s.closingMu.Unlock()

	return nil
}

// Disconnect stops streaming, closes all subscriber channels, and closes the
// port. It is best-effort: command and close errors are returned but the
// sensor is always left disconnected, and calling it while already
// disconnected is a no-op.
func (s *SerialSensor) Disconnect() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	for id := range s.subscribers {
		s.removeSubscriberLocked(id)
	}
	s.subscriberMu.Unlock()

	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port == nil {
		return nil
	}

	// ask the device to stop streaming before dropping the line; ignore the
	// error since the port may already be gone
	_ = s.sendCommand(s.port, cmdStreamOff)

	err := s.port.Close()
	s.port = nil
	s.reader = nil
	return err
}

// ReadAngle performs one blocking read of the current lid angle. It requests
// a single reading from the device and scans a bounded number of lines for a
// parseable value.
func (s *SerialSensor) ReadAngle() (float64, error) {
	s.portMu.Lock()
	port := s.port
	reader := s.reader
	s.portMu.Unlock()
	if port == nil {
		return 0, ErrNotConnected
	}

	if tp, ok := port.(TimeoutSensorPorter); ok {
		if err := tp.SetReadTimeout(readTimeout); err != nil {
			return 0, fmt.Errorf("failed to set read timeout: %w", err)
		}
		// a zero timeout would leave the port non-blocking, where reads
		// return (0, nil) immediately and streaming can never make progress
		defer tp.SetReadTimeout(serial.NoTimeout)
	}

	if err := s.sendCommand(port, cmdReadOnce); err != nil {
		return 0, fmt.Errorf("failed to request reading: %w", err)
	}

	for i := 0; i < maxProbeLines; i++ {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("failed to read from sensor: %w", err)
		}
		angle, err := ParseAngleLine(line)
		if err != nil {
			continue
		}
		return angle, nil
	}
	return 0, ErrNoReading
}

// randomID generates a random subscriber channel ID.
func randomID() string {
	return uuid.New().String()
}

// Subscribe registers a new angle event channel with the mux. The pump never
// waits for it: a subscriber that has fallen subscriberBuffer events behind
// misses updates. Suited to diagnostic consumers like the SSE tail.
func (s *SerialSensor) Subscribe() (string, chan float64) {
	return s.subscribe(false)
}

// SubscribeReliable registers a channel the pump blocks on when the buffer
// fills, so the consumer observes every change in order. The relay path uses
// this; a stalled reliable consumer stalls the stream.
func (s *SerialSensor) SubscribeReliable() (string, chan float64) {
	return s.subscribe(true)
}

func (s *SerialSensor) subscribe(blocking bool) (string, chan float64) {
	id := randomID()
	sub := &subscriber{
		ch:       make(chan float64, subscriberBuffer),
		done:     make(chan struct{}),
		blocking: blocking,
	}
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscriber from the mux.
func (s *SerialSensor) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.removeSubscriberLocked(id)
}

// removeSubscriberLocked drops one subscriber; the caller holds subscriberMu.
// Closing done releases a pump blocked mid-send. The event channel is closed
// only for non-blocking subscribers: the pump sends to blocking channels
// outside the lock, so closing one here could race a send in flight.
func (s *SerialSensor) removeSubscriberLocked(id string) {
	sub, ok := s.subscribers[id]
	if !ok {
		return
	}
	delete(s.subscribers, id)
	close(sub.done)
	if !sub.blocking {
		close(sub.ch)
	}
}

// sendCommand writes a command line to the given port. The port is passed in
// rather than read from the struct so callers holding portMu can use it.
func (s *SerialSensor) sendCommand(port SensorPorter, command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	payload := command + "\n"
	n, err := port.Write([]byte(payload))
	if err != nil {
		return err
	}
	if n != len(payload) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor switches the device into streaming mode and pumps angle lines to
// subscribers until the context is cancelled, the stream ends, or a read
// error occurs. Consecutive duplicate values are suppressed so subscribers
// only observe changes. The stream ending naturally returns nil.
func (s *SerialSensor) Monitor(ctx context.Context) error {
	s.portMu.Lock()
	port := s.port
	reader := s.reader
	s.portMu.Unlock()
	if port == nil {
		return ErrNotConnected
	}

	if err := s.sendCommand(port, cmdStreamOn); err != nil {
		return fmt.Errorf("failed to start streaming: %w", err)
	}

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// read from the port in a separate goroutine so the blocking read does
	// not interfere with the outer loop awaiting context cancellation
	go func() {
		defer close(lineChan)
		scan := bufio.NewScanner(reader)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	var last float64
	var haveLast bool

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// channel closed means the stream is exhausted, unless the
			// scanner parked an error first
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}

			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			angle, err := ParseAngleLine(line)
			if err != nil {
				// boot banners and debug chatter are expected; skip
				continue
			}
			if haveLast && angle == last {
				continue
			}
			last = angle
			haveLast = true
			s.broadcast(angle)
		}
	}
}

// broadcast delivers an angle to every subscriber. Non-blocking subscribers
// miss the update when their buffer is full; blocking subscribers make the
// pump wait, so they see every change. The blocking sends happen outside the
// lock so a stalled consumer cannot wedge Subscribe or Disconnect, and each
// is guarded by the subscriber's done channel.
func (s *SerialSensor) broadcast(angle float64) {
	s.subscriberMu.Lock()
	var blocked []*subscriber
	for _, sub := range s.subscribers {
		if sub.blocking {
			blocked = append(blocked, sub)
			continue
		}
		select {
		case sub.ch <- angle:
		default:
		}
	}
	s.subscriberMu.Unlock()

	for _, sub := range blocked {
		select {
		case sub.ch <- angle:
		case <-sub.done:
		}
	}
}
