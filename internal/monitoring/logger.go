// Package monitoring holds the process-wide diagnostic logger. The bridge is
// silent by default; verbose mode routes per-event diagnostics through Debugf.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables Debugf output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether verbose diagnostics are enabled.
func Verbose() bool {
	return verbose.Load()
}

// Debugf logs through Logf only when verbose mode is enabled. All per-angle
// and per-heartbeat diagnostics go through here so a non-verbose run stays
// silent except for fatal errors.
func Debugf(format string, v ...interface{}) {
	if verbose.Load() {
		Logf(format, v...)
	}
}
