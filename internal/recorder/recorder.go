// Package recorder collects the bodies of a routine while it is performed.
package recorder

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/posematch/internal/skeleton"
	"github.com/ayusman/posematch/internal/timeutil"
)

var (
	// ErrEmptyRecording is returned when a recording is stopped before any
	// frame was captured.
	ErrEmptyRecording = errors.New("recording has no frames")
	// ErrNotRecording is returned by Stop when Start was never called.
	ErrNotRecording = errors.New("not recording")
)

// Recording is a captured routine. ElapsedMs[i] is the capture time of
// Bodies[i] relative to the first frame.
type Recording struct {
	Bodies    []skeleton.Body
	ElapsedMs []float64
}

// DurationMs returns the elapsed time of the last frame.
func (r Recording) DurationMs() float64 {
	if len(r.ElapsedMs) == 0 {
		return 0
	}
	return r.ElapsedMs[len(r.ElapsedMs)-1]
}

// Recorder buffers frames between Start and Stop. It is safe for concurrent
// use: the capture pipeline appends while a request handler stops.
type Recorder struct {
	mu     sync.Mutex
	clock  timeutil.Clock
	active bool
	first  time.Time
	bodies []skeleton.Body
	times  []float64
}

// New creates a Recorder. A nil clock uses the real clock.
func New(clock timeutil.Clock) *Recorder {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Recorder{clock: clock}
}

// Start discards any buffered frames and begins a new recording.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.bodies = nil
	r.times = nil
}

// Add appends a body captured now. It is a no-op while not recording.
func (r *Recorder) Add(body skeleton.Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}

	now := r.clock.Now()
	if len(r.bodies) == 0 {
		r.first = now
	}
	r.bodies = append(r.bodies, body)
	r.times = append(r.times, float64(now.Sub(r.first).Microseconds())/1000)
}

// Len returns the number of frames captured so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Stop ends the recording and returns what was captured.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return Recording{}, ErrNotRecording
	}
	r.active = false

	rec := Recording{Bodies: r.bodies, ElapsedMs: r.times}
	r.bodies = nil
	r.times = nil

	if len(rec.Bodies) == 0 {
		return Recording{}, ErrEmptyRecording
	}
	return rec, nil
}
