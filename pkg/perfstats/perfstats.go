package perfstats

// Package perfstats is a single place where we record the performance
// of the frame pipeline, so that it's easy to compare hardware and spot
// regressions.

import "sync/atomic"

// UpdateMovingAverage folds a new sample into an exponential moving
// average held in an atomic, with a 1/16 blend factor.
func UpdateMovingAverage(avg *atomic.Int64, sample int64) {
	old := avg.Load()
	if old == 0 {
		avg.Store(sample)
		return
	}
	avg.Store((old*15 + sample) / 16)
}
