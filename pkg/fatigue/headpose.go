package fatigue

import (
	"time"
)

// HeadPoseEstimator tracks sustained downward head pitch. The drop
// ratio is the fraction of the rolling window during which the head was
// pitched down beyond the calibrated angle.
type HeadPoseEstimator struct {
	dropPitch float32 // degrees, positive
	window    time.Duration
	samples   *flagWindow
}

func NewHeadPoseEstimator(cal *Calibration) *HeadPoseEstimator {
	return &HeadPoseEstimator{
		dropPitch: cal.HeadDropPitchDeg,
		window:    cal.headWindow(),
		samples:   newFlagWindow(cal.headWindow()),
	}
}

// Update feeds one frame's head orientation (degrees) and returns the
// head-drop ratio in [0,1]. Yaw and roll are accepted for completeness
// of the pose but only pitch drives the drop classification.
func (e *HeadPoseEstimator) Update(pitch, yaw, roll float32, pts time.Time) float32 {
	e.samples.Add(pts, pitch <= -e.dropPitch)
	return e.samples.Ratio()
}

func (e *HeadPoseEstimator) Reset() {
	e.samples = newFlagWindow(e.window)
}
