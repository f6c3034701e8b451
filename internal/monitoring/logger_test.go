package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger rather than panicking
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestDebugfRespectsVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})

	SetVerbose(false)
	Debugf("hidden")
	if len(lines) != 0 {
		t.Errorf("expected no output with verbose off, got %v", lines)
	}

	SetVerbose(true)
	if !Verbose() {
		t.Error("Verbose() should report true after SetVerbose(true)")
	}
	Debugf("shown %d", 1)
	if len(lines) != 1 || lines[0] != "shown %d" {
		t.Errorf("expected one debug line, got %v", lines)
	}
}
