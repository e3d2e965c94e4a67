package pose

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ayusman/posematch/internal/skeleton"
)

// ErrLengthMismatch is returned when frames and timestamps differ in count.
var ErrLengthMismatch = errors.New("frame and timestamp counts differ")

// Sequence is a recorded routine: reference skeletons in capture order with
// the elapsed milliseconds of each frame since the first one.
type Sequence struct {
	frames  []*Skeleton
	elapsed []float64
}

// NewSequence creates a Sequence. elapsedMs may be nil, in which case frames
// are assumed to be evenly spaced at 30 frames per second.
func NewSequence(frames []*Skeleton, elapsedMs []float64) (*Sequence, error) {
	if elapsedMs == nil {
		elapsedMs = make([]float64, len(frames))
		for i := range elapsedMs {
			elapsedMs[i] = float64(i) * 1000.0 / 30.0
		}
	}
	if len(frames) != len(elapsedMs) {
		return nil, fmt.Errorf("%w: %d frames, %d timestamps", ErrLengthMismatch, len(frames), len(elapsedMs))
	}
	for i := 1; i < len(elapsedMs); i++ {
		if elapsedMs[i] < elapsedMs[i-1] {
			return nil, fmt.Errorf("timestamp %d goes backwards (%.1f < %.1f)", i, elapsedMs[i], elapsedMs[i-1])
		}
	}

	return &Sequence{
		frames:  append([]*Skeleton(nil), frames...),
		elapsed: append([]float64(nil), elapsedMs...),
	}, nil
}

// SequenceFromBodies normalizes raw recorded bodies into a Sequence.
func SequenceFromBodies(bodies []skeleton.Body, elapsedMs []float64) (*Sequence, error) {
	frames := make([]*Skeleton, len(bodies))
	for i := range bodies {
		frames[i] = New(&bodies[i])
	}
	return NewSequence(frames, elapsedMs)
}

// Len returns the number of frames.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.frames)
}

// Frame returns frame i.
func (s *Sequence) Frame(i int) *Skeleton {
	return s.frames[i]
}

// Elapsed returns the elapsed milliseconds of frame i.
func (s *Sequence) Elapsed(i int) float64 {
	return s.elapsed[i]
}

// DurationMs returns the elapsed time of the last frame.
func (s *Sequence) DurationMs() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.elapsed[len(s.elapsed)-1]
}

// ValidCount returns the number of frames that hold a valid skeleton.
func (s *Sequence) ValidCount() int {
	n := 0
	for _, f := range s.frames {
		if f.IsValid() {
			n++
		}
	}
	return n
}

// IndexAt returns the frame whose timestamp is nearest to elapsedMs.
// Ties go to the earlier frame and the result is clamped to the sequence.
// It returns -1 for an empty sequence.
func (s *Sequence) IndexAt(elapsedMs float64) int {
	n := s.Len()
	if n == 0 {
		return -1
	}

	// first frame at or after elapsedMs
	i := sort.SearchFloat64s(s.elapsed, elapsedMs)
	switch {
	case i == 0:
		return 0
	case i == n:
		return n - 1
	}
	if elapsedMs-s.elapsed[i-1] <= s.elapsed[i]-elapsedMs {
		return i - 1
	}
	return i
}
