package pipeline

// Package pipeline is the real-time fatigue pipeline: a single worker
// goroutine that owns the landmarker and the scoring engine, accepts
// commands (init/process/reset/destroy), and emits events (ready,
// per-frame results, errors). All pipeline state is private to the
// worker; the host interacts with it only through message passing.

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cyclopcam/logs"
	"github.com/driftguard/driftguard/pkg/facemesh"
	"github.com/driftguard/driftguard/pkg/fatigue"
	"github.com/driftguard/driftguard/pkg/gen"
	"github.com/driftguard/driftguard/pkg/modelload"
)

type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

type EventType int

const (
	EventReady EventType = iota
	EventResult
	EventError
)

// Event is a message from the pipeline to the host.
type Event struct {
	Type   EventType
	Result *fatigue.Result // set for EventResult
	Err    string          // set for EventError
}

type commandType int

const (
	cmdInit commandType = iota
	cmdProcess
	cmdReset
	cmdDestroy
)

type command struct {
	typ   commandType
	frame *Frame
}

type Options struct {
	Mirrors    []string // Ordered list of asset mirror base URLs
	AssetDir   string   // Where downloaded assets are cached
	Landmarker string   // Name of a registered landmarker implementation
}

// SYNC-EVENT-CHANNEL-SIZE
const eventChannelSize = 100

const commandChannelSize = 16

type Pipeline struct {
	Log  logs.Log
	opts Options

	state    atomic.Int32
	busy     atomic.Bool
	commands chan command
	events   chan Event
	stopped  chan bool

	// Owned by the worker goroutine, never touched from outside it
	landmarker facemesh.Landmarker
	engine     *fatigue.Engine

	watchersLock sync.RWMutex
	watchers     []chan *fatigue.Result

	stats pipelineStats
}

// NewPipeline creates a pipeline in the uninitialized state and starts
// its worker. The host must consume Events() until it is closed, which
// happens after Destroy() completes.
func NewPipeline(logger logs.Log, opts Options) *Pipeline {
	p := &Pipeline{
		Log:      logger,
		opts:     opts,
		commands: make(chan command, commandChannelSize),
		events:   make(chan Event, eventChannelSize),
		stopped:  make(chan bool),
	}
	go p.run()
	return p
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Events is the pipeline -> host message channel.
func (p *Pipeline) Events() <-chan Event {
	return p.events
}

// Init starts resource acquisition. Emits EventReady on success, or a
// single EventError on failure, in which case the pipeline remains
// uninitialized and Init may be called again.
func (p *Pipeline) Init() {
	if p.State() == StateDestroyed {
		return
	}
	p.commands <- command{typ: cmdInit}
}

// Process submits one frame. Returns true if the frame was admitted.
// A frame arriving while another is in flight, or while the pipeline is
// not ready, is silently dropped and its image released. At most one
// frame is ever in flight, so surviving results are emitted in
// submission order.
func (p *Pipeline) Process(frame *Frame) bool {
	p.stats.framesSubmitted.Add(1)
	if p.State() != StateReady || !p.busy.CompareAndSwap(false, true) {
		frame.Release()
		p.stats.framesDropped.Add(1)
		return false
	}
	p.commands <- command{typ: cmdProcess, frame: frame}
	if p.State() == StateDestroyed {
		// The worker may have handled a destroy and exited between the
		// state check above and the send. Nothing will read the command
		// now, so drain the channel ourselves and release any frames.
		for _, qc := range gen.DrainChannelIntoSlice(p.commands) {
			if qc.frame != nil {
				qc.frame.Release()
			}
		}
		p.busy.Store(false)
		p.stats.framesDropped.Add(1)
		return false
	}
	return true
}

// Reset clears all detector state without releasing the loaded
// resources. Valid only in the ready state.
func (p *Pipeline) Reset() {
	if p.State() == StateDestroyed {
		return
	}
	p.commands <- command{typ: cmdReset}
}

// Destroy releases all resources and ends the pipeline's life. Valid
// from any state and idempotent. A frame already in flight finishes
// first, since the worker handles commands strictly in order.
func (p *Pipeline) Destroy() {
	if p.State() == StateDestroyed {
		return
	}
	p.commands <- command{typ: cmdDestroy}
}

// WaitStopped blocks until the worker has shut down after Destroy.
func (p *Pipeline) WaitStopped() {
	<-p.stopped
}

func (p *Pipeline) run() {
	for cmd := range p.commands {
		switch cmd.typ {
		case cmdInit:
			p.handleInit()
		case cmdProcess:
			p.handleFrame(cmd.frame)
		case cmdReset:
			p.handleReset()
		case cmdDestroy:
			p.handleDestroy()
			// Anything still queued behind the destroy will never run;
			// release its frames so images are not leaked.
			for _, qc := range gen.DrainChannelIntoSlice(p.commands) {
				if qc.frame != nil {
					qc.frame.Release()
				}
			}
			close(p.events)
			close(p.stopped)
			return
		}
	}
}

func (p *Pipeline) handleInit() {
	if p.State() != StateUninitialized {
		p.Log.Warnf("Pipeline init ignored in state %v", p.State())
		return
	}

	// The landmarker and the engine calibration are independent
	// acquisitions; run them concurrently and wait for both to settle.
	type lmOutcome struct {
		lm  facemesh.Landmarker
		err error
	}
	type calOutcome struct {
		cal *fatigue.Calibration
		err error
	}
	lmCh := make(chan lmOutcome, 1)
	calCh := make(chan calOutcome, 1)
	go func() {
		lm, err := modelload.LoadLandmarker(p.Log, p.opts.Mirrors, p.opts.AssetDir, p.opts.Landmarker)
		lmCh <- lmOutcome{lm: lm, err: err}
	}()
	go func() {
		cal, err := modelload.LoadCalibration(p.Log, p.opts.Mirrors, p.opts.AssetDir)
		calCh <- calOutcome{cal: cal, err: err}
	}()
	lmr := <-lmCh
	calr := <-calCh

	if lmr.err != nil || calr.err != nil {
		// No partial state: close whichever half did load
		if lmr.lm != nil {
			lmr.lm.Close()
		}
		err := lmr.err
		if err == nil {
			err = calr.err
		} else if calr.err != nil {
			err = fmt.Errorf("%v; %v", lmr.err, calr.err)
		}
		p.emitError(fmt.Errorf("pipeline init failed: %w", err))
		return
	}

	p.landmarker = lmr.lm
	p.engine = fatigue.NewEngine(calr.cal)
	p.state.Store(int32(StateReady))
	p.Log.Infof("Fatigue pipeline ready (landmarker '%v')", p.opts.Landmarker)
	p.events <- Event{Type: EventReady}
}

func (p *Pipeline) handleReset() {
	if p.State() != StateReady {
		p.Log.Warnf("Pipeline reset ignored in state %v", p.State())
		return
	}
	p.engine.Reset()
}

func (p *Pipeline) handleDestroy() {
	if p.landmarker != nil {
		p.landmarker.Close()
		p.landmarker = nil
	}
	p.engine = nil
	p.state.Store(int32(StateDestroyed))
	p.Log.Infof("Fatigue pipeline destroyed")
}

// emitError converts any internal failure into an error event. Errors
// must reach the host, so this send blocks if the host has stopped
// consuming events.
func (p *Pipeline) emitError(err error) {
	p.Log.Errorf("%v", err)
	p.events <- Event{Type: EventError, Err: err.Error()}
}

func (p *Pipeline) emitResult(result *fatigue.Result) {
	// SYNC-EVENT-CHANNEL-SIZE
	if len(p.events) >= cap(p.events)*9/10 {
		// As a safeguard against a stalled host wedging the worker, we
		// drop results (but never ready/error events).
		p.Log.Warnf("Pipeline event consumer is falling behind - dropping results")
	} else {
		p.events <- Event{Type: EventResult, Result: result}
	}
	p.sendToWatchers(result)
}
