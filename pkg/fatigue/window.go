package fatigue

import "time"

// flagWindow is a rolling window of per-frame boolean classifications.
// Samples are evicted by capture timestamp, never by capacity, so the
// window stays complete at any frame rate.
type flagWindow struct {
	window  time.Duration
	samples []flagSample
	head    int // index of the oldest live sample
	flagged int // live samples with the flag set
}

type flagSample struct {
	pts  time.Time
	flag bool
}

func newFlagWindow(window time.Duration) *flagWindow {
	return &flagWindow{window: window}
}

// Add records one sample and evicts everything older than the window
// relative to pts. Timestamps are assumed to be non-decreasing.
func (f *flagWindow) Add(pts time.Time, flag bool) {
	f.samples = append(f.samples, flagSample{pts: pts, flag: flag})
	if flag {
		f.flagged++
	}
	for f.head < len(f.samples) && pts.Sub(f.samples[f.head].pts) > f.window {
		if f.samples[f.head].flag {
			f.flagged--
		}
		f.head++
	}
	// Compact once the evicted prefix dominates the backing array
	if f.head > 1024 && f.head > len(f.samples)/2 {
		f.samples = append(f.samples[:0:0], f.samples[f.head:]...)
		f.head = 0
	}
}

func (f *flagWindow) Len() int {
	return len(f.samples) - f.head
}

// Ratio returns flagged/total over the live window, or 0 when empty.
func (f *flagWindow) Ratio() float32 {
	n := f.Len()
	if n == 0 {
		return 0
	}
	return float32(f.flagged) / float32(n)
}
