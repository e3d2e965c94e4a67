package pose

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

// BoneReport compares one bone of a frozen reference against a live skeleton.
type BoneReport struct {
	Bone         skeleton.JointType `json:"bone"`
	Distance     float64            `json:"distance"`
	Reference    r3.Vec             `json:"reference"`
	Live         r3.Vec             `json:"live"`
	BoneDistance float64            `json:"bone_distance"`
}

// Inspect reports the overall distance between reference and live together
// with the directions of a single bone. A live bone that is missing or
// untracked is reported as the zero vector.
func Inspect(reference, live *Skeleton, bone skeleton.JointType) BoneReport {
	r := BoneReport{
		Bone:     bone,
		Distance: ComputeDistance(reference, live),
	}
	if b, ok := reference.Bone(bone); ok {
		r.Reference = b.Direction
	}
	if live.IsValid() {
		if b, ok := live.Bone(bone); ok && b.Valid {
			r.Live = b.Direction
		}
	}
	r.BoneDistance = r3.Norm(r3.Sub(r.Reference, r.Live))
	return r
}

// String formats the report as a one-line status.
func (r BoneReport) String() string {
	return fmt.Sprintf("%.3f %s %s %s %.3f",
		r.Distance, r.Bone, formatVec(r.Reference), formatVec(r.Live), r.BoneDistance)
}

func formatVec(v r3.Vec) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}
