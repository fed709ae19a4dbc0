package fatigue

import (
	"time"
)

// PerclosCalculator maintains the percentage of the rolling window
// during which the eye was classified as closed.
type PerclosCalculator struct {
	closedEAR float32
	window    time.Duration
	samples   *flagWindow
}

func NewPerclosCalculator(cal *Calibration) *PerclosCalculator {
	return &PerclosCalculator{
		closedEAR: cal.EyeClosedEAR,
		window:    cal.perclosWindow(),
		samples:   newFlagWindow(cal.perclosWindow()),
	}
}

// Update adds one frame's averaged EAR and returns PERCLOS as a
// percentage in [0,100]. The window is defined purely by the capture
// timestamps fed in, not by wall-clock time.
func (c *PerclosCalculator) Update(ear float32, pts time.Time) float32 {
	c.samples.Add(pts, ear <= c.closedEAR)
	return 100 * c.samples.Ratio()
}

func (c *PerclosCalculator) Reset() {
	c.samples = newFlagWindow(c.window)
}
