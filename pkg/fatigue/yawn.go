package fatigue

import (
	"time"

	"github.com/bmharper/ringbuffer"
)

// YawnDetector detects yawns from the 8-point mouth buffer. A yawn is a
// mouth-aspect-ratio excursion above the threshold that is sustained for
// at least the minimum duration; each excursion counts once.
type YawnDetector struct {
	marThreshold float32
	minDuration  time.Duration
	window       time.Duration

	open      bool
	counted   bool
	openSince time.Time
	count     int
	yawns     ringbuffer.RingP[time.Time]
}

func NewYawnDetector(cal *Calibration) *YawnDetector {
	return &YawnDetector{
		marThreshold: cal.YawnMAR,
		minDuration:  cal.yawnMinDuration(),
		window:       cal.yawnWindow(),
		yawns:        ringbuffer.NewRingP[time.Time](signalRingSize),
	}
}

// MouthAspectRatio computes the mouth opening ratio from the flat
// [x0,y0,...,x7,y7] mouth buffer: the mean of the three vertical spans
// (p1-p7, p2-p6, p3-p5) over the corner-to-corner span (p0-p4).
func MouthAspectRatio(buf []float32) float32 {
	horizontal := pointDistance(buf, 0, 4)
	if horizontal == 0 {
		return 0
	}
	vertical := pointDistance(buf, 1, 7) + pointDistance(buf, 2, 6) + pointDistance(buf, 3, 5)
	return vertical / (3 * horizontal)
}

// Update feeds one frame's mouth buffer. Returns the total yawn count
// since the last reset, and the yawn rate in yawns/minute over the
// rolling window.
func (d *YawnDetector) Update(mouth []float32, pts time.Time) (count int, rate float32) {
	mar := MouthAspectRatio(mouth)
	if mar >= d.marThreshold {
		if !d.open {
			d.open = true
			d.counted = false
			d.openSince = pts
		}
		if !d.counted && pts.Sub(d.openSince) >= d.minDuration {
			d.counted = true
			d.count++
			d.yawns.Add(pts)
		}
	} else {
		d.open = false
		d.counted = false
	}

	n := 0
	for i := 0; i < d.yawns.Len(); i++ {
		if pts.Sub(d.yawns.Peek(i)) <= d.window {
			n++
		}
	}
	return d.count, float32(float64(n) / d.window.Minutes())
}

func (d *YawnDetector) Reset() {
	d.open = false
	d.counted = false
	d.openSince = time.Time{}
	d.count = 0
	d.yawns = ringbuffer.NewRingP[time.Time](signalRingSize)
}
