package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/posematch/internal/skeleton"
)

// MockDetector is a test implementation of the Detector interface.
// Queued results are returned first, one per call, then the bodies set with
// SetBodies are returned on every call.
type MockDetector struct {
	mu     sync.Mutex
	bodies []skeleton.Body
	queue  [][]skeleton.Body
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetBodies sets the bodies returned once the queue is drained.
func (m *MockDetector) SetBodies(bodies []skeleton.Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = bodies
}

// Queue appends per-call results, e.g. one frame of a routine each.
func (m *MockDetector) Queue(frames ...[]skeleton.Body) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued result, the configured bodies, or the
// configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]skeleton.Body, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.bodies, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
