package facemesh

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"
)

func identityTransform() *HeadTransform {
	m := &HeadTransform{}
	m[0] = 1
	m[5] = 1
	m[10] = 1
	m[15] = 1
	return m
}

// Build a column-major transform from a 3x3 rotation given in row-major order
func rotationTransform(r [9]float32) *HeadTransform {
	m := &HeadTransform{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m[row+4*col] = r[row*3+col]
		}
	}
	m[15] = 1
	return m
}

func TestEulerIdentity(t *testing.T) {
	e := DecodeEuler(identityTransform())
	require.InDelta(t, 0, e.Pitch, 1e-4)
	require.InDelta(t, 0, e.Yaw, 1e-4)
	require.InDelta(t, 0, e.Roll, 1e-4)
}

func TestEulerYaw90(t *testing.T) {
	// Rotation of +90 degrees about Y
	e := DecodeEuler(rotationTransform([9]float32{
		0, 0, 1,
		0, 1, 0,
		-1, 0, 0,
	}))
	require.InDelta(t, 90, e.Yaw, 1e-3)
	require.InDelta(t, 0, e.Pitch, 1e-3)
	require.InDelta(t, 0, e.Roll, 1e-3)
}

func TestEulerPitch30(t *testing.T) {
	s := math32.Sin(30 * math32.Pi / 180)
	c := math32.Cos(30 * math32.Pi / 180)
	// Rotation of +30 degrees about X
	e := DecodeEuler(rotationTransform([9]float32{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}))
	require.InDelta(t, 30, e.Pitch, 1e-3)
	require.InDelta(t, 0, e.Yaw, 1e-3)
	require.InDelta(t, 0, e.Roll, 1e-3)
}

func TestEulerAsinClamped(t *testing.T) {
	// r20 slightly outside [-1,1] must not produce NaN
	m := identityTransform()
	m[2] = -1.0000002
	e := DecodeEuler(m)
	require.False(t, math32.IsNaN(e.Yaw))
	require.InDelta(t, 90, e.Yaw, 1e-2)
}

func TestExpressionScore(t *testing.T) {
	// Single matched category normalizes by its own weight
	require.InDelta(t, 1.0, Blendshapes{"browDownLeft": 1.0}.ExpressionScore(), 1e-5)

	// Unmatched categories contribute nothing
	require.Equal(t, float32(0), Blendshapes{"jawOpen": 1.0}.ExpressionScore())
	require.Equal(t, float32(0), Blendshapes{}.ExpressionScore())
	require.Equal(t, float32(0), Blendshapes(nil).ExpressionScore())

	// Full set is the weighted average
	bs := Blendshapes{
		"eyeSquintLeft":  0.5,
		"eyeSquintRight": 0.5,
		"browDownLeft":   1.0,
		"browDownRight":  0.0,
	}
	// (0.5*0.3 + 0.5*0.3 + 1.0*0.2 + 0.0*0.2) / 1.0
	require.InDelta(t, 0.5, bs.ExpressionScore(), 1e-5)
}

func TestFlatten2D(t *testing.T) {
	landmarks := make(LandmarkSet, NumLandmarks)
	for i := range landmarks {
		landmarks[i] = Point{X: float32(i), Y: float32(i) + 0.5, Z: 1}
	}
	buf := Flatten2D(landmarks, LeftEyeIndices[:])
	require.Len(t, buf, 2*len(LeftEyeIndices))
	for i, idx := range LeftEyeIndices {
		require.Equal(t, float32(idx), buf[2*i])
		require.Equal(t, float32(idx)+0.5, buf[2*i+1])
	}
}
