package lidsensor

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTestablePortBlockingRead(t *testing.T) {
	port := NewTestablePort()
	port.BlockReads = true

	var wg sync.WaitGroup
	got := make([]byte, 8)
	var n int
	var readErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		n, readErr = port.Read(got)
	}()

	time.Sleep(10 * time.Millisecond)
	port.AddReadData([]byte("45.0\n"))
	wg.Wait()

	if readErr != nil {
		t.Fatalf("blocked read failed: %v", readErr)
	}
	if string(got[:n]) != "45.0\n" {
		t.Errorf("expected scripted data, got %q", got[:n])
	}
}

func TestTestablePortCloseUnblocksReaders(t *testing.T) {
	port := NewTestablePort()
	port.BlockReads = true

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 8))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	port.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from read on closed port")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock the reader")
	}
}

func TestSweepSensorEmitsChanges(t *testing.T) {
	s := NewSweepSensor(5 * time.Millisecond)
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Monitor(ctx)

	seen := map[float64]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case angle := <-ch:
			seen[angle] = true
		case <-deadline:
			t.Fatalf("expected at least 3 distinct sweep angles, saw %v", seen)
		}
	}
}
