// Package capture provides camera capture and motion gating using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. Rehearsal scoring compares frame by frame, so the
// camera runs at the sensor's native 30 FPS while a session is active.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device delivered no image.
	ErrEmptyFrame = errors.New("captured frame is empty")
	// ErrNoFrames is returned by MockCamera when playback is exhausted.
	ErrNoFrames = errors.New("no more frames")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a device camera.
type Options struct {
	DeviceID int
	FPS      int
	Width    int
	Height   int
}

// DefaultOptions returns options for device 0 at 640x480 and 30 FPS.
func DefaultOptions() Options {
	return Options{
		FPS:    DefaultFPS,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
}

// deviceCamera captures from a local video device.
type deviceCamera struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

// NewCamera creates a Camera for a local device. Zero option fields take
// their defaults.
func NewCamera(opts Options) Camera {
	def := DefaultOptions()
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	return &deviceCamera{opts: opts}
}

// Open opens the device. Opening an open camera is a no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return err
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))

	c.capture = vc
	return nil
}

// Close releases the device.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS changes the capture rate. Values less than or equal to 0 are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.FPS
}

// IsOpen reports whether the device is open.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
