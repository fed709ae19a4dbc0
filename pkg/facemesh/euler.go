package facemesh

import (
	"github.com/chewxy/math32"
)

// Head orientation in degrees.
// Pitch is rotation about X (positive = looking up), Yaw about Y, Roll about Z.
type EulerAngles struct {
	Pitch float32 `json:"pitch"`
	Yaw   float32 `json:"yaw"`
	Roll  float32 `json:"roll"`
}

const radToDeg = 180 / math32.Pi

// At returns matrix element (row, col) of the column-major transform.
func (m *HeadTransform) At(row, col int) float32 {
	return m[row+4*col]
}

// DecodeEuler extracts ZYX Euler angles from the rotation part of the
// head transform.
func DecodeEuler(m *HeadTransform) EulerAngles {
	r00 := m.At(0, 0)
	r10 := m.At(1, 0)
	r20 := m.At(2, 0)
	r21 := m.At(2, 1)
	r22 := m.At(2, 2)

	// Guard asin against values a hair outside [-1,1] from float error
	sy := -r20
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}

	return EulerAngles{
		Pitch: math32.Atan2(r21, r22) * radToDeg,
		Yaw:   math32.Asin(sy) * radToDeg,
		Roll:  math32.Atan2(r10, r00) * radToDeg,
	}
}
