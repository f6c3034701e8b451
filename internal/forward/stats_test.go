package forward

import (
	"math"
	"testing"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.AddChange(10)
	s.AddChange(20)
	s.AddHeartbeat()
	s.AddSendError()

	sum := s.Summary()
	if sum.Changes != 2 {
		t.Errorf("expected 2 changes, got %d", sum.Changes)
	}
	if sum.Heartbeats != 1 {
		t.Errorf("expected 1 heartbeat, got %d", sum.Heartbeats)
	}
	if sum.SendErrors != 1 {
		t.Errorf("expected 1 send error, got %d", sum.SendErrors)
	}
}

func TestStatsAddReadingNotCounted(t *testing.T) {
	s := NewStats()
	s.AddReading(45)

	sum := s.Summary()
	if sum.Changes != 0 {
		t.Errorf("expected 0 changes for a one-shot reading, got %d", sum.Changes)
	}
	if sum.AngleMean != 45 {
		t.Errorf("expected reading in the angle window, got mean %v", sum.AngleMean)
	}
}

func TestStatsSummaryEmpty(t *testing.T) {
	sum := NewStats().Summary()
	if sum.AngleMean != 0 || sum.AngleStdDev != 0 || sum.AngleMin != 0 || sum.AngleMax != 0 {
		t.Errorf("expected zero angle stats with no observations, got %+v", sum)
	}
}

func TestStatsSummaryAngles(t *testing.T) {
	s := NewStats()
	for _, a := range []float64{10, 20, 30} {
		s.AddChange(a)
	}

	sum := s.Summary()
	if sum.AngleMean != 20 {
		t.Errorf("expected mean 20, got %v", sum.AngleMean)
	}
	if math.Abs(sum.AngleStdDev-10) > 1e-9 {
		t.Errorf("expected stddev 10, got %v", sum.AngleStdDev)
	}
	if sum.AngleMin != 10 || sum.AngleMax != 30 {
		t.Errorf("expected min 10 max 30, got %v/%v", sum.AngleMin, sum.AngleMax)
	}
}

func TestStatsWindowBounded(t *testing.T) {
	s := NewStats()
	for i := 0; i < statsWindow*2; i++ {
		s.AddChange(float64(i))
	}

	s.mu.Lock()
	n := len(s.window)
	oldest := s.window[0]
	s.mu.Unlock()

	if n != statsWindow {
		t.Errorf("expected window trimmed to %d, got %d", statsWindow, n)
	}
	if oldest != float64(statsWindow) {
		t.Errorf("expected oldest retained angle %d, got %v", statsWindow, oldest)
	}
}
