package main

import (
	"flag"
	"testing"
	"time"
)

// TestFlagDefaults verifies the CLI surface keeps its documented defaults.
func TestFlagDefaults(t *testing.T) {
	if *oscIP != "localhost" {
		t.Errorf("expected -ip default localhost, got %q", *oscIP)
	}
	if *oscPort != 8000 {
		t.Errorf("expected -port default 8000, got %d", *oscPort)
	}
	if *message != "/lid" {
		t.Errorf("expected -message default /lid, got %q", *message)
	}
	if *verbose {
		t.Error("expected -verbose default off")
	}
	if *interval != 0 {
		t.Errorf("expected -interval default 0 (disabled), got %v", *interval)
	}
	if !*initialRead {
		t.Error("expected -initial-read default on")
	}
	if *listen != "" {
		t.Errorf("expected -listen default empty, got %q", *listen)
	}
}

// TestShorthandAliases verifies each single-letter alias is registered and
// bound to the same variable as its long spelling.
func TestShorthandAliases(t *testing.T) {
	aliases := map[string]string{
		"i": "ip",
		"p": "port",
		"m": "message",
		"v": "verbose",
		"d": "interval",
	}

	for short, long := range aliases {
		shortFlag := flag.Lookup(short)
		longFlag := flag.Lookup(long)
		if shortFlag == nil {
			t.Errorf("alias -%s not registered", short)
			continue
		}
		if longFlag == nil {
			t.Errorf("flag -%s not registered", long)
			continue
		}
		if shortFlag.Value != longFlag.Value {
			t.Errorf("-%s and -%s are not bound to the same value", short, long)
		}
	}
}

// TestHeartbeatDisableCondition mirrors the wiring in main: a zero, negative,
// or unset interval must produce a non-positive duration, which the forwarder
// treats as heartbeat disabled.
func TestHeartbeatDisableCondition(t *testing.T) {
	tests := []struct {
		seconds float64
		enabled bool
	}{
		{seconds: 0, enabled: false},
		{seconds: -1, enabled: false},
		{seconds: 0.05, enabled: true},
		{seconds: 2.5, enabled: true},
	}

	for _, tt := range tests {
		d := time.Duration(tt.seconds * float64(time.Second))
		if got := d > 0; got != tt.enabled {
			t.Errorf("interval %vs: expected enabled=%v, got %v", tt.seconds, tt.enabled, got)
		}
	}
}
