package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posematch/internal/timeutil"
)

// Frame differencing parameters.
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultHold keeps the gate open after the last motion.
	DefaultHold = 2 * time.Second
)

// MotionDetector tells whether somebody is moving in front of the camera.
// It compares each frame with the previous one and keeps the gate open for a
// hold period after the last frame that changed.
type MotionDetector struct {
	threshold  float64
	hold       time.Duration
	clock      timeutil.Clock
	prevGray   gocv.Mat
	hasPrev    bool
	lastMotion time.Time
	mu         sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change between two frames, e.g. 1.0 for 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		hold:      DefaultHold,
		clock:     timeutil.RealClock{},
		prevGray:  gocv.NewMat(),
	}
}

// SetClock replaces the clock used for the hold period.
func (m *MotionDetector) SetClock(c timeutil.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = c
}

// SetHold changes how long the gate stays open after motion stops.
func (m *MotionDetector) SetHold(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = d
}

// Detect compares frame with the previous one and returns whether enough
// pixels changed together with the changed percentage. The first frame only
// establishes a baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	blurred := grayBlur(frame)
	defer blurred.Close()

	if !m.hasPrev {
		blurred.CopyTo(&m.prevGray)
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	moving := changed > m.threshold
	if moving {
		m.lastMotion = m.clock.Now()
	}
	return moving, changed
}

// Active reports whether motion was seen within the hold period.
func (m *MotionDetector) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.lastMotion.IsZero() && m.clock.Since(m.lastMotion) <= m.hold
}

// grayBlur converts frame to a blurred single-channel image.
func grayBlur(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)
	return blurred
}

// Reset drops the baseline frame and the hold period.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *MotionDetector) reset() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.hasPrev = false
	m.lastMotion = time.Time{}
}

// SetThreshold sets the changed pixel percentage that counts as motion.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}
