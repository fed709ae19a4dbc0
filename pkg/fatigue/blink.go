package fatigue

import (
	"time"

	"github.com/bmharper/ringbuffer"
)

// Ring capacity for the blink and yawn event rings. Must be a power
// of 2. Unlike the per-frame signal windows, these hold one entry per
// detected event, and no plausible face blinks or yawns often enough
// to fill 256 slots inside a rolling window.
const signalRingSize = 256

// BlinkDetector counts blinks via an open -> closed -> open transition
// machine with hysteresis, and reports the blink rate over a rolling
// window. The rate is flagged abnormal when it falls outside the
// calibrated band, but only once a full window of samples has been
// observed, so that startup does not spuriously trip the flag.
type BlinkDetector struct {
	closedEAR float32
	openEAR   float32
	window    time.Duration
	rateMin   float32
	rateMax   float32

	closed    bool
	haveFirst bool
	firstPTS  time.Time
	blinks    ringbuffer.RingP[time.Time]
}

func NewBlinkDetector(cal *Calibration) *BlinkDetector {
	return &BlinkDetector{
		closedEAR: cal.EyeClosedEAR,
		openEAR:   cal.EyeOpenEAR,
		window:    cal.blinkWindow(),
		rateMin:   cal.BlinkRateMin,
		rateMax:   cal.BlinkRateMax,
		blinks:    ringbuffer.NewRingP[time.Time](signalRingSize),
	}
}

// Update feeds one frame's averaged EAR. Returns the blink rate in
// blinks/minute and whether that rate is abnormal.
func (d *BlinkDetector) Update(ear float32, pts time.Time) (rate float32, abnormal bool) {
	if !d.haveFirst {
		d.haveFirst = true
		d.firstPTS = pts
	}
	if !d.closed && ear <= d.closedEAR {
		d.closed = true
	} else if d.closed && ear >= d.openEAR {
		// A blink completes when the eye re-opens
		d.closed = false
		d.blinks.Add(pts)
	}

	n := 0
	for i := 0; i < d.blinks.Len(); i++ {
		if pts.Sub(d.blinks.Peek(i)) <= d.window {
			n++
		}
	}

	elapsed := pts.Sub(d.firstPTS)
	if elapsed <= 0 {
		return 0, false
	}
	span := elapsed
	if span > d.window {
		span = d.window
	}
	rate = float32(float64(n) / span.Minutes())
	abnormal = elapsed >= d.window && (rate < d.rateMin || rate > d.rateMax)
	return rate, abnormal
}

func (d *BlinkDetector) Reset() {
	d.closed = false
	d.haveFirst = false
	d.firstPTS = time.Time{}
	d.blinks = ringbuffer.NewRingP[time.Time](signalRingSize)
}
