package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/posematch/internal/skeleton"
)

// Detector finds performers in video frames.
type Detector interface {
	// Detect analyzes a video frame and returns one body per detected person.
	// Returns an empty slice if nobody is in view.
	Detect(frame *gocv.Mat) ([]skeleton.Body, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinConfidence is the minimum person detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the landmark visibility at or above which a joint
	// counts as tracked (0.0-1.0).
	MinTrackingConf float64

	// MinInferredConf is the landmark visibility at or above which a joint
	// counts as inferred. Anything lower is not tracked.
	MinInferredConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		MinInferredConf: 0.2,
	}
}

// state maps a landmark visibility to a tracking state.
func (c Config) state(visibility float64) skeleton.TrackingState {
	switch {
	case visibility >= c.MinTrackingConf:
		return skeleton.Tracked
	case visibility >= c.MinInferredConf:
		return skeleton.Inferred
	default:
		return skeleton.NotTracked
	}
}
