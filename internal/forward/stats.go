package forward

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// statsWindow is how many recent angle observations the summary keeps.
const statsWindow = 256

// Stats tracks forwarding activity: change and heartbeat counters plus a
// bounded window of recent angles for the debug summary.
type Stats struct {
	mu         sync.Mutex
	changes    int64
	heartbeats int64
	sendErrors int64
	window     []float64
	started    time.Time
}

// NewStats creates an empty Stats tracker.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// AddChange records one angle change from the live stream.
func (s *Stats) AddChange(angle float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes++
	s.recordLocked(angle)
}

// AddReading records an angle observation that did not come from the change
// stream, such as the startup probe. The window gets the value but the
// change counter does not move.
func (s *Stats) AddReading(angle float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(angle)
}

func (s *Stats) recordLocked(angle float64) {
	s.window = append(s.window, angle)
	if len(s.window) > statsWindow {
		s.window = s.window[len(s.window)-statsWindow:]
	}
}

// AddHeartbeat records one heartbeat re-send.
func (s *Stats) AddHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
}

// AddSendError records one failed sink send.
func (s *Stats) AddSendError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErrors++
}

// Summary is a point-in-time view of forwarding activity for the debug
// endpoint and the shutdown log line.
type Summary struct {
	Changes     int64   `json:"changes"`
	Heartbeats  int64   `json:"heartbeats"`
	SendErrors  int64   `json:"send_errors"`
	UptimeSecs  float64 `json:"uptime_secs"`
	AngleMean   float64 `json:"angle_mean"`
	AngleStdDev float64 `json:"angle_std_dev"`
	AngleMin    float64 `json:"angle_min"`
	AngleMax    float64 `json:"angle_max"`
}

// Summary computes the current summary. Angle statistics cover the retained
// window only and are zero while no angle has been observed.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Summary{
		Changes:    s.changes,
		Heartbeats: s.heartbeats,
		SendErrors: s.sendErrors,
		UptimeSecs: time.Since(s.started).Seconds(),
	}

	if len(s.window) == 0 {
		return out
	}

	out.AngleMean = stat.Mean(s.window, nil)
	if len(s.window) > 1 {
		out.AngleStdDev = stat.StdDev(s.window, nil)
	}

	out.AngleMin = s.window[0]
	out.AngleMax = s.window[0]
	for _, a := range s.window[1:] {
		if a < out.AngleMin {
			out.AngleMin = a
		}
		if a > out.AngleMax {
			out.AngleMax = a
		}
	}
	return out
}
