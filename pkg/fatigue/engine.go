package fatigue

// Engine bundles the six detectors. One Engine is exclusively owned by
// a single pipeline instance for its whole lifetime; it is not safe for
// concurrent use.
type Engine struct {
	EAR      *EARCalculator
	Perclos  *PerclosCalculator
	Blink    *BlinkDetector
	Yawn     *YawnDetector
	HeadPose *HeadPoseEstimator
	Scorer   *FatigueScorer
}

func NewEngine(cal *Calibration) *Engine {
	if cal == nil {
		cal = DefaultCalibration()
	}
	return &Engine{
		EAR:      NewEARCalculator(),
		Perclos:  NewPerclosCalculator(cal),
		Blink:    NewBlinkDetector(cal),
		Yawn:     NewYawnDetector(cal),
		HeadPose: NewHeadPoseEstimator(cal),
		Scorer:   NewFatigueScorer(cal),
	}
}

// Reset clears every detector's rolling state. The detectors are
// independent, so ordering is irrelevant.
func (e *Engine) Reset() {
	e.EAR.Reset()
	e.Perclos.Reset()
	e.Blink.Reset()
	e.Yawn.Reset()
	e.HeadPose.Reset()
	e.Scorer.Reset()
}
