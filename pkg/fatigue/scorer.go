package fatigue

import (
	"time"
)

type Level int

const (
	LevelAlert Level = iota
	LevelMild
	LevelDrowsy
	LevelSevere
)

func (l Level) String() string {
	switch l {
	case LevelAlert:
		return "alert"
	case LevelMild:
		return "mild"
	case LevelDrowsy:
		return "drowsy"
	case LevelSevere:
		return "severe"
	}
	return "unknown"
}

// Signals is the per-frame input tuple of the composite scorer: every
// derived physiological signal plus the frame's capture timestamp.
type Signals struct {
	EAR           float32   `json:"ear"`
	Perclos       float32   `json:"perclos"` // percentage, 0..100
	BlinkRate     float32   `json:"blinkRate"`
	BlinkAbnormal bool      `json:"blinkAbnormal"`
	YawnCount     int       `json:"yawnCount"`
	YawnRate      float32   `json:"yawnRate"`
	HeadDropRatio float32   `json:"headDropRatio"`
	Expression    float32   `json:"expression"`
	PTS           time.Time `json:"pts"`
}

// Result is the engine's per-frame output.
type Result struct {
	Score   float32 `json:"score"` // composite fatigue estimate, 0..1
	Level   Level   `json:"level"`
	Signals Signals `json:"signals"`
}

// FatigueScorer fuses the individual signals into one composite score.
// The raw weighted blend is smoothed with an exponential moving average
// so that a single outlier frame does not yank the level around.
type FatigueScorer struct {
	cal       *Calibration
	haveScore bool
	smoothed  float32
}

func NewFatigueScorer(cal *Calibration) *FatigueScorer {
	return &FatigueScorer{cal: cal}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *FatigueScorer) Update(sig Signals) *Result {
	cal := s.cal
	perclos := clamp01(sig.Perclos / 100)
	blink := float32(0)
	if sig.BlinkAbnormal {
		blink = 1
	}
	yawn := clamp01(sig.YawnRate / cal.YawnRateSaturation)
	head := clamp01(sig.HeadDropRatio)
	expr := clamp01(sig.Expression)

	raw := cal.WeightPerclos*perclos +
		cal.WeightBlink*blink +
		cal.WeightYawn*yawn +
		cal.WeightHead*head +
		cal.WeightExpression*expr

	if !s.haveScore {
		s.haveScore = true
		s.smoothed = raw
	} else {
		s.smoothed += cal.ScoreSmoothing * (raw - s.smoothed)
	}

	score := clamp01(s.smoothed)
	level := LevelAlert
	switch {
	case score >= cal.LevelSevere:
		level = LevelSevere
	case score >= cal.LevelDrowsy:
		level = LevelDrowsy
	case score >= cal.LevelMild:
		level = LevelMild
	}

	return &Result{
		Score:   score,
		Level:   level,
		Signals: sig,
	}
}

func (s *FatigueScorer) Reset() {
	s.haveScore = false
	s.smoothed = 0
}
