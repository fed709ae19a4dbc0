package fatigue

import (
	"github.com/chewxy/math32"
)

// EARCalculator computes the eye-aspect-ratio from 6-point eye buffers.
// The buffer layout is [x0,y0,...,x5,y5] with the points ordered
// corner / upper / upper / corner / lower / lower (see facemesh).
type EARCalculator struct{}

func NewEARCalculator() *EARCalculator {
	return &EARCalculator{}
}

func pointDistance(buf []float32, a, b int) float32 {
	return math32.Hypot(buf[2*a]-buf[2*b], buf[2*a+1]-buf[2*b+1])
}

// Eye computes the aspect ratio of a single eye:
// (|p1-p5| + |p2-p4|) / (2 * |p0-p3|)
func (c *EARCalculator) Eye(buf []float32) float32 {
	horizontal := pointDistance(buf, 0, 3)
	if horizontal == 0 {
		return 0
	}
	vertical := pointDistance(buf, 1, 5) + pointDistance(buf, 2, 4)
	return vertical / (2 * horizontal)
}

// Average computes the mean aspect ratio of both eyes.
func (c *EARCalculator) Average(left, right []float32) float32 {
	return (c.Eye(left) + c.Eye(right)) / 2
}

func (c *EARCalculator) Reset() {}
