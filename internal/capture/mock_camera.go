package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing. A camera with no
// frames hands out blank 640x480 images, which is enough for pipelines whose
// detector is mocked too.
type MockCamera struct {
	frames []*gocv.Mat
	index  int
	loop   bool
	fps    int
	reads  int
	open   bool
	mu     sync.Mutex
}

// NewMockCamera creates a MockCamera playing frames once, or forever if loop
// is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	c.reads++

	if len(c.frames) == 0 {
		blank := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
		return &blank, nil
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoFrames
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames were read.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
