package fatigue

// Package fatigue implements the numeric fatigue scoring engine: six
// stateful detectors (EAR, PERCLOS, blink, yawn, head pose, composite
// scorer) that are driven frame by frame with geometry extracted by the
// facemesh package.

import (
	"encoding/json"
	"os"
	"time"
)

// Calibration holds every tunable threshold and weight of the engine.
// A calibration file only needs to specify the fields it wants to
// override; everything else keeps the built-in default.
type Calibration struct {
	// Eye closure (hysteresis band for blink detection)
	EyeClosedEAR float32 `json:"eyeClosedEAR"` // EAR at or below which the eye counts as closed
	EyeOpenEAR   float32 `json:"eyeOpenEAR"`   // EAR at or above which the eye counts as open again

	PerclosWindowSec float64 `json:"perclosWindowSec"`

	BlinkWindowSec float64 `json:"blinkWindowSec"`
	BlinkRateMin   float32 `json:"blinkRateMin"` // blinks/minute below which the rate is abnormal
	BlinkRateMax   float32 `json:"blinkRateMax"` // blinks/minute above which the rate is abnormal

	YawnMAR            float32 `json:"yawnMAR"` // mouth-aspect-ratio above which the mouth counts as yawning
	YawnMinDurationSec float64 `json:"yawnMinDurationSec"`
	YawnWindowSec      float64 `json:"yawnWindowSec"`
	YawnRateSaturation float32 `json:"yawnRateSaturation"` // yawns/minute that maps to a full yawn subscore

	HeadDropPitchDeg float32 `json:"headDropPitchDeg"` // downward pitch beyond which the head counts as dropped
	HeadWindowSec    float64 `json:"headWindowSec"`

	WeightPerclos    float32 `json:"weightPerclos"`
	WeightBlink      float32 `json:"weightBlink"`
	WeightYawn       float32 `json:"weightYawn"`
	WeightHead       float32 `json:"weightHead"`
	WeightExpression float32 `json:"weightExpression"`

	ScoreSmoothing float32 `json:"scoreSmoothing"` // EMA factor applied to the composite score, 0..1

	LevelMild   float32 `json:"levelMild"`
	LevelDrowsy float32 `json:"levelDrowsy"`
	LevelSevere float32 `json:"levelSevere"`
}

func DefaultCalibration() *Calibration {
	return &Calibration{
		EyeClosedEAR:       0.20,
		EyeOpenEAR:         0.25,
		PerclosWindowSec:   60,
		BlinkWindowSec:     60,
		BlinkRateMin:       8,
		BlinkRateMax:       21,
		YawnMAR:            0.6,
		YawnMinDurationSec: 1.0,
		YawnWindowSec:      180,
		YawnRateSaturation: 3,
		HeadDropPitchDeg:   15,
		HeadWindowSec:      60,
		WeightPerclos:      0.35,
		WeightBlink:        0.15,
		WeightYawn:         0.20,
		WeightHead:         0.20,
		WeightExpression:   0.10,
		ScoreSmoothing:     0.3,
		LevelMild:          0.25,
		LevelDrowsy:        0.50,
		LevelSevere:        0.75,
	}
}

// LoadCalibration reads a calibration JSON file. Fields that the file
// omits fall back to the defaults; an explicit zero is kept.
func LoadCalibration(filename string) (*Calibration, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseCalibration(raw)
}

func ParseCalibration(raw []byte) (*Calibration, error) {
	cal := &Calibration{}
	if err := json.Unmarshal(raw, cal); err != nil {
		return nil, err
	}
	// Decode a second time into a key set, so that a field the file
	// explicitly sets to zero is honored rather than replaced by the
	// default.
	specified := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &specified); err != nil {
		return nil, err
	}
	cal.fillDefaults(specified)
	return cal, nil
}

func (c *Calibration) fillDefaults(specified map[string]json.RawMessage) {
	def := DefaultCalibration()
	absent := func(key string) bool {
		_, ok := specified[key]
		return !ok
	}
	if absent("eyeClosedEAR") {
		c.EyeClosedEAR = def.EyeClosedEAR
	}
	if absent("eyeOpenEAR") {
		c.EyeOpenEAR = def.EyeOpenEAR
	}
	if absent("perclosWindowSec") {
		c.PerclosWindowSec = def.PerclosWindowSec
	}
	if absent("blinkWindowSec") {
		c.BlinkWindowSec = def.BlinkWindowSec
	}
	if absent("blinkRateMin") {
		c.BlinkRateMin = def.BlinkRateMin
	}
	if absent("blinkRateMax") {
		c.BlinkRateMax = def.BlinkRateMax
	}
	if absent("yawnMAR") {
		c.YawnMAR = def.YawnMAR
	}
	if absent("yawnMinDurationSec") {
		c.YawnMinDurationSec = def.YawnMinDurationSec
	}
	if absent("yawnWindowSec") {
		c.YawnWindowSec = def.YawnWindowSec
	}
	if absent("yawnRateSaturation") {
		c.YawnRateSaturation = def.YawnRateSaturation
	}
	if absent("headDropPitchDeg") {
		c.HeadDropPitchDeg = def.HeadDropPitchDeg
	}
	if absent("headWindowSec") {
		c.HeadWindowSec = def.HeadWindowSec
	}
	if absent("weightPerclos") {
		c.WeightPerclos = def.WeightPerclos
	}
	if absent("weightBlink") {
		c.WeightBlink = def.WeightBlink
	}
	if absent("weightYawn") {
		c.WeightYawn = def.WeightYawn
	}
	if absent("weightHead") {
		c.WeightHead = def.WeightHead
	}
	if absent("weightExpression") {
		c.WeightExpression = def.WeightExpression
	}
	if absent("scoreSmoothing") {
		c.ScoreSmoothing = def.ScoreSmoothing
	}
	if absent("levelMild") {
		c.LevelMild = def.LevelMild
	}
	if absent("levelDrowsy") {
		c.LevelDrowsy = def.LevelDrowsy
	}
	if absent("levelSevere") {
		c.LevelSevere = def.LevelSevere
	}
}

func (c *Calibration) perclosWindow() time.Duration {
	return time.Duration(c.PerclosWindowSec * float64(time.Second))
}

func (c *Calibration) blinkWindow() time.Duration {
	return time.Duration(c.BlinkWindowSec * float64(time.Second))
}

func (c *Calibration) yawnMinDuration() time.Duration {
	return time.Duration(c.YawnMinDurationSec * float64(time.Second))
}

func (c *Calibration) yawnWindow() time.Duration {
	return time.Duration(c.YawnWindowSec * float64(time.Second))
}

func (c *Calibration) headWindow() time.Duration {
	return time.Duration(c.HeadWindowSec * float64(time.Second))
}
