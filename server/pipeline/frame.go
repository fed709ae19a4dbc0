package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
)

// Frame is one captured image handed to the pipeline, together with its
// capture timestamp. Ownership transfers to the pipeline on submission;
// the pipeline releases it on every exit path (drop, no-face, success,
// error), and only the first release has any effect.
type Frame struct {
	Image *cimg.Image
	PTS   time.Time

	released  atomic.Bool
	onRelease func()
}

// NewFrame wraps an image for submission. onRelease may be nil; when
// set, it is invoked exactly once, typically to return the image to a
// pool.
func NewFrame(img *cimg.Image, pts time.Time, onRelease func()) *Frame {
	return &Frame{
		Image:     img,
		PTS:       pts,
		onRelease: onRelease,
	}
}

func (f *Frame) Release() {
	if f.released.CompareAndSwap(false, true) {
		if f.onRelease != nil {
			f.onRelease()
		}
		f.Image = nil
	}
}
