package facemesh

// Blendshape categories that correlate with facial fatigue, and their
// relative weights. Categories absent from a detection contribute
// nothing, and are excluded from the normalizing denominator.
var expressionWeights = map[string]float32{
	"eyeSquintLeft":  0.3,
	"eyeSquintRight": 0.3,
	"browDownLeft":   0.2,
	"browDownRight":  0.2,
}

// ExpressionScore computes a weighted fatigue-expression score in [0,1]
// from the squint/brow-lowering blendshape categories.
// A nil or unmatched set scores 0.
func (b Blendshapes) ExpressionScore() float32 {
	var sum, weightSum float32
	for name, weight := range expressionWeights {
		if v, ok := b[name]; ok {
			sum += v * weight
			weightSum += weight
		}
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}
