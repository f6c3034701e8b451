package lidsensor

import (
	"io"
	"time"
)

// SensorPorter defines the minimal interface needed for the sensor's serial
// link. This abstraction enables unit testing without real hardware.
type SensorPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSensorPorter extends SensorPorter with read timeout control.
// This is an optional interface that ports may implement; ReadAngle uses it
// so a single blocking probe cannot hang forever.
type TimeoutSensorPorter interface {
	SensorPorter
	// SetReadTimeout sets the read timeout for the port.
	SetReadTimeout(timeout time.Duration) error
}

// PortOpener is a function type for opening sensor ports. Injecting the
// opener keeps Connect testable without a device on the other end.
type PortOpener func(path string, opts PortOptions) (SensorPorter, error)
