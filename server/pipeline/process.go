package pipeline

import (
	"fmt"
	"time"

	"github.com/driftguard/driftguard/pkg/facemesh"
	"github.com/driftguard/driftguard/pkg/fatigue"
	"github.com/driftguard/driftguard/pkg/perfstats"
)

// handleFrame runs one admitted frame through extraction and scoring.
// The frame and the busy flag are released on every path out of here,
// including a panic, so a single bad frame can never wedge the
// pipeline.
func (p *Pipeline) handleFrame(frame *Frame) {
	start := time.Now()
	result, err := p.runFrame(frame)

	// Clear the gate before emitting anything, so that a host reacting
	// to the event can submit the next frame without hitting a stale
	// busy flag.
	p.busy.Store(false)

	if err != nil {
		p.emitError(err)
		return
	}
	if result == nil {
		// No face detected: a defined no-op, no result emitted
		return
	}
	perfstats.UpdateMovingAverage(&p.stats.avgFrameNS, time.Since(start).Nanoseconds())
	p.emitResult(result)
	p.maybeLogStats()
}

// runFrame is the synchronous CPU work for one frame: detection,
// geometry extraction, and scoring. Returns (nil, nil) when no face was
// detected.
func (p *Pipeline) runFrame(frame *Frame) (result *fatigue.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic while processing frame: %v", r)
		}
	}()
	defer frame.Release()

	det, derr := p.landmarker.Detect(frame.Image)
	if derr != nil {
		return nil, fmt.Errorf("landmark detection failed: %w", derr)
	}
	p.stats.framesProcessed.Add(1)

	if len(det.Faces) == 0 {
		p.stats.framesNoFace.Add(1)
		return nil, nil
	}

	// Multi-face results are ignored; only the first face is scored
	return p.scoreFace(&det.Faces[0], frame.PTS), nil
}

// scoreFace turns one detected face into the exact numeric shapes the
// engine expects, then drives the six detectors in their fixed order.
func (p *Pipeline) scoreFace(face *facemesh.Face, pts time.Time) *fatigue.Result {
	left := facemesh.Flatten2D(face.Landmarks, facemesh.LeftEyeIndices[:])
	right := facemesh.Flatten2D(face.Landmarks, facemesh.RightEyeIndices[:])
	mouth := facemesh.Flatten2D(face.Landmarks, facemesh.MouthIndices[:])

	var euler facemesh.EulerAngles
	if face.Transform != nil {
		euler = facemesh.DecodeEuler(face.Transform)
	}
	expression := face.Blendshapes.ExpressionScore()

	e := p.engine
	ear := e.EAR.Average(left, right)
	perclos := e.Perclos.Update(ear, pts)
	blinkRate, blinkAbnormal := e.Blink.Update(ear, pts)
	yawnCount, yawnRate := e.Yawn.Update(mouth, pts)
	headDrop := e.HeadPose.Update(euler.Pitch, euler.Yaw, euler.Roll, pts)

	return e.Scorer.Update(fatigue.Signals{
		EAR:           ear,
		Perclos:       perclos,
		BlinkRate:     blinkRate,
		BlinkAbnormal: blinkAbnormal,
		YawnCount:     yawnCount,
		YawnRate:      yawnRate,
		HeadDropRatio: headDrop,
		Expression:    expression,
		PTS:           pts,
	})
}
