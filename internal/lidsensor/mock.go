package lidsensor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// TestablePort implements SensorPorter with configurable behaviour for
// testing: scripted reads, captured writes, injectable errors, and optional
// blocking reads that wait for data the way real hardware does.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls and WriteCalls record call counts
	ReadCalls  int
	WriteCalls int

	// ReadTimeout is the most recent SetReadTimeout value. It follows the
	// real port semantics: serial.NoTimeout blocks, zero is non-blocking
	// mode where an empty Read returns (0, nil) immediately.
	ReadTimeout time.Duration

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates a TestablePort with empty buffers. Like a freshly
// opened real port, it starts with no read timeout.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
		ReadTimeout: serial.NoTimeout,
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

// Read reads scripted data, optionally blocking until data arrives.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("sensor port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ReadBuffer.Len() == 0 {
		// zero timeout is non-blocking mode: an empty read reports
		// (0, nil), the way an expired port timeout does
		if t.ReadTimeout == 0 {
			return 0, nil
		}
		if !t.BlockReads {
			return 0, io.EOF
		}
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("sensor port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write captures written data.
func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("sensor port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port closed and wakes any blocked readers.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return t.CloseError
}

// SetReadTimeout implements TimeoutSensorPorter by recording the timeout.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData appends data for subsequent Read calls and wakes one blocked
// reader.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// AddAngleLine scripts one angle reading as the device would emit it.
func (t *TestablePort) AddAngleLine(angle float64) {
	t.AddReadData([]byte(fmt.Sprintf("%.1f\n", angle)))
}

// WrittenCommands returns the commands written to the port so far, one per
// line, without trailing newlines.
func (t *TestablePort) WrittenCommands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw := t.WriteBuffer.String()
	var commands []string
	for _, line := range bytes.Split([]byte(raw), []byte("\n")) {
		if len(line) > 0 {
			commands = append(commands, string(line))
		}
	}
	return commands
}

// sweepPort is a synthetic sensor port that emits a lid sweep between closed
// and fully open, used by -dev runs without hardware attached.
type sweepPort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *sweepPort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *sweepPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *sweepPort) Close() error {
	p.r.Close()
	return p.w.Close()
}

// NewSweepSensor returns a SerialSensor backed by a synthetic port that
// sweeps the lid angle 0→120→0 degrees, one step per interval. The generator
// goroutine exits when the sensor is disconnected.
func NewSweepSensor(step time.Duration) *SerialSensor {
	opener := func(string, PortOptions) (SensorPorter, error) {
		r, w := io.Pipe()
		port := &sweepPort{r: r, w: w}

		go func() {
			angle, direction := 0.0, 1.0
			ticker := time.NewTicker(step)
			defer ticker.Stop()
			for range ticker.C {
				if _, err := fmt.Fprintf(w, "%.1f\n", angle); err != nil {
					return
				}
				angle += 2.5 * direction
				if angle >= 120 || angle <= 0 {
					direction = -direction
				}
			}
		}()

		return port, nil
	}

	return NewSerialSensor("sweep://dev", PortOptions{}, opener)
}
