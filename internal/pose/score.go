package pose

import "math"

// Score thresholds. A distance at or below PerfectDistance scores 100, at or
// above ZeroDistance scores 0.
const (
	PerfectDistance = 0.2
	ZeroDistance    = 1.0
	MaxFrameScore   = 100
)

// Score maps a distance to an integer quality score in [0, 100].
func Score(distance float64) int {
	switch {
	case distance <= PerfectDistance:
		return MaxFrameScore
	case distance >= ZeroDistance:
		return 0
	default:
		return int(math.Round((ZeroDistance - distance) * MaxFrameScore / (ZeroDistance - PerfectDistance)))
	}
}
