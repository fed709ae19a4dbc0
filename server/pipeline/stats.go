package pipeline

import (
	"math"
	"sync/atomic"
	"time"
)

type pipelineStats struct {
	framesSubmitted atomic.Int64
	framesDropped   atomic.Int64
	framesProcessed atomic.Int64
	framesNoFace    atomic.Int64
	avgFrameNS      atomic.Int64

	// worker-owned stats logging state
	nStats    int
	lastStats time.Time
}

// StatsSnapshot is a point-in-time copy of the pipeline counters.
type StatsSnapshot struct {
	State           string  `json:"state"`
	FramesSubmitted int64   `json:"framesSubmitted"`
	FramesDropped   int64   `json:"framesDropped"`
	FramesProcessed int64   `json:"framesProcessed"`
	FramesNoFace    int64   `json:"framesNoFace"`
	AvgFrameMS      float64 `json:"avgFrameMS"`
}

func (p *Pipeline) Stats() StatsSnapshot {
	return StatsSnapshot{
		State:           p.State().String(),
		FramesSubmitted: p.stats.framesSubmitted.Load(),
		FramesDropped:   p.stats.framesDropped.Load(),
		FramesProcessed: p.stats.framesProcessed.Load(),
		FramesNoFace:    p.stats.framesNoFace.Load(),
		AvgFrameMS:      float64(p.stats.avgFrameNS.Load()) / 1e6,
	}
}

// Log a stats line at a decaying interval (frequently at startup,
// settling down to hourly).
func (p *Pipeline) maybeLogStats() {
	interval := 10 * math.Pow(1.5, float64(p.stats.nStats))
	interval = max(interval, 5)
	interval = min(interval, 3600)
	if p.stats.lastStats.IsZero() {
		p.stats.lastStats = time.Now()
		return
	}
	if time.Since(p.stats.lastStats) > time.Duration(interval)*time.Second {
		p.stats.nStats++
		p.stats.lastStats = time.Now()
		s := p.Stats()
		pct := float64(0)
		if s.FramesSubmitted != 0 {
			pct = 100 * float64(s.FramesProcessed) / float64(s.FramesSubmitted)
		}
		p.Log.Infof("%.0f%% of frames analyzed (%v submitted, %v dropped, %v no-face). %.1f ms per frame",
			pct, s.FramesSubmitted, s.FramesDropped, s.FramesNoFace, s.AvgFrameMS)
	}
}
