package facemesh

import (
	"github.com/bmharper/cimg/v2"
)

// Package facemesh is the face landmark interface layer.
// To load a landmarker, use the modelload package.

// Number of points in the face mesh topology that we support.
// Index subsets below are defined against this topology.
const NumLandmarks = 478

// A single landmark point, in normalized image space.
// X and Y are in [0,1] relative to the image, Z is relative depth.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// All landmark points of one detected face, ordered by the mesh topology.
type LandmarkSet []Point

// Blendshape category scores, each in [0,1].
// Keys are the classifier's category names (eg "eyeSquintLeft").
type Blendshapes map[string]float32

// 4x4 head pose matrix in column-major order, i.e. element (row, col)
// lives at [row + 4*col]. This matches the flat array layout that the
// face landmarker emits for its facial transformation matrix. Getting
// this layout wrong does not fail loudly - it silently produces wrong
// Euler angles - so it is pinned down by tests.
type HeadTransform [16]float32

// One detected face.
// Blendshapes and Transform are optional outputs of the landmarker,
// and are nil when the model was not configured to produce them.
type Face struct {
	Landmarks   LandmarkSet
	Blendshapes Blendshapes
	Transform   *HeadTransform
}

// Result of running the landmarker on one frame.
type Detection struct {
	Faces []Face
}

// Landmarker detects face landmarks in an image.
// Implementations register themselves with the modelload package.
type Landmarker interface {
	// Detect runs the model on one image and returns all detected faces.
	// A result with zero faces is not an error.
	Detect(img *cimg.Image) (*Detection, error)
	Close()
}

// Landmark index subsets that the fatigue detectors consume.
// These are fixed positions in the face mesh topology, and the ordering
// within each subset is part of the contract with the geometric
// calculators (see pkg/fatigue).
var (
	// Six left-eye points, ordered corner / upper / upper / corner / lower / lower,
	// the shape the eye-aspect-ratio formula expects.
	LeftEyeIndices = [6]int{362, 385, 387, 263, 373, 380}

	// Mirror of LeftEyeIndices.
	RightEyeIndices = [6]int{33, 160, 158, 133, 153, 144}

	// Eight mouth points: left corner, upper outer-left, upper center,
	// upper outer-right, right corner, lower outer-right, lower center,
	// lower outer-left.
	MouthIndices = [8]int{61, 81, 13, 311, 291, 402, 14, 178}
)

// Flatten2D extracts the given landmark indices into a flat [x0,y0,x1,y1,...]
// buffer, which is the input shape of the geometric calculators.
// The resulting length is always 2 * len(indices).
func Flatten2D(landmarks LandmarkSet, indices []int) []float32 {
	buf := make([]float32, 0, 2*len(indices))
	for _, idx := range indices {
		p := landmarks[idx]
		buf = append(buf, p.X, p.Y)
	}
	return buf
}
