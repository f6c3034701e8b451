package lidsensor

import (
	"go.bug.st/serial"
)

// OpenSerialPort opens a real serial port at the given path using the
// provided options. It satisfies PortOpener; serial.Port implements
// SetReadTimeout, so opened ports also satisfy TimeoutSensorPorter.
func OpenSerialPort(path string, opts PortOptions) (SensorPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}

// NewRealSensor creates a SerialSensor backed by real serial hardware at the
// given path.
func NewRealSensor(path string, opts PortOptions) *SerialSensor {
	return NewSerialSensor(path, opts, OpenSerialPort)
}
