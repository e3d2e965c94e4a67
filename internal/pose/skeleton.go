// Package pose turns raw body samples into position and orientation invariant
// skeletons and scores a live stream of them against a recorded routine.
package pose

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

const (
	// MaxDistance is the distance between two opposite unit vectors. It is
	// used as the penalty for anything that cannot be compared.
	MaxDistance = 2.0

	// DefaultWeight is the weight of a bone with no adaptive weight set.
	DefaultWeight = 1.0

	// epsilon is the length below which a vector is treated as zero.
	epsilon = 1e-12
)

// anchorJoints must all be tracked for a body to be normalized.
var anchorJoints = [...]skeleton.JointType{
	skeleton.HipCenter,
	skeleton.HipLeft,
	skeleton.HipRight,
	skeleton.Spine,
}

// Skeleton is a body re-expressed in its own hip-centred coordinate frame.
// A Skeleton is immutable once built, apart from its reference weights.
type Skeleton struct {
	valid     bool
	raw       [skeleton.NumJoints]r3.Vec
	positions [skeleton.NumJoints]r3.Vec
	bones     [skeleton.NumJoints]Bone
	hasBone   [skeleton.NumJoints]bool
	boneCount int

	// Weights holds per-bone importance when the skeleton is a reference frame.
	Weights WeightTable
}

// New builds a Skeleton from a body sample. A nil body, an untracked body,
// or a body whose hip and spine anchors are not all tracked yields an
// invalid skeleton with no bones.
func New(body *skeleton.Body) *Skeleton {
	s := &Skeleton{}
	if body == nil || !body.Tracked {
		return s
	}
	for _, j := range anchorJoints {
		if !body.IsTracked(j) {
			return s
		}
	}

	for i := range body.Joints {
		s.raw[i] = body.Joints[i].Position
	}

	if !s.unify() {
		return s
	}
	s.valid = true
	s.buildBones(body)
	return s
}

// unify projects every raw joint onto the body frame:
// X lateral (left to right hip), Y vertical (hip to spine), Z forward.
func (s *Skeleton) unify() bool {
	origin := s.raw[skeleton.HipCenter]

	vy, ok := unit(r3.Sub(s.raw[skeleton.Spine], origin))
	if !ok {
		return false
	}
	vx, ok := unit(r3.Sub(s.raw[skeleton.HipRight], s.raw[skeleton.HipLeft]))
	if !ok {
		return false
	}
	vz, ok := unit(r3.Cross(vx, vy))
	if !ok {
		return false
	}
	// The measured hip axis is not exactly perpendicular to the spine.
	vx, ok = unit(r3.Cross(vy, vz))
	if !ok {
		return false
	}

	for i, p := range s.raw {
		rel := r3.Sub(p, origin)
		s.positions[i] = r3.Vec{
			X: r3.Dot(rel, vx),
			Y: r3.Dot(rel, vy),
			Z: r3.Dot(rel, vz),
		}
	}
	return true
}

func (s *Skeleton) buildBones(body *skeleton.Body) {
	for _, seg := range Topology {
		tracked := body.IsTracked(seg.Start) && body.IsTracked(seg.End)
		s.bones[seg.End] = newBone(seg.End, s.positions[seg.Start], s.positions[seg.End], tracked)
		s.hasBone[seg.End] = true
		s.boneCount++
	}
}

// IsValid reports whether the skeleton could be normalized.
func (s *Skeleton) IsValid() bool {
	return s != nil && s.valid
}

// Position returns the normalized position of joint j.
func (s *Skeleton) Position(j skeleton.JointType) r3.Vec {
	return s.positions[j]
}

// RawPosition returns the sensor-space position of joint j. It is only
// retained for valid skeletons.
func (s *Skeleton) RawPosition(j skeleton.JointType) r3.Vec {
	return s.raw[j]
}

// Bone returns the bone ending at joint j.
func (s *Skeleton) Bone(j skeleton.JointType) (Bone, bool) {
	if s == nil || !j.Valid() || !s.hasBone[j] {
		return Bone{}, false
	}
	return s.bones[j], true
}

// Bones returns all bones in topology order.
func (s *Skeleton) Bones() []Bone {
	if s == nil || s.boneCount == 0 {
		return nil
	}
	out := make([]Bone, 0, s.boneCount)
	for _, seg := range Topology {
		if s.hasBone[seg.End] {
			out = append(out, s.bones[seg.End])
		}
	}
	return out
}

// BoneCount returns the number of bones, valid or not.
func (s *Skeleton) BoneCount() int {
	if s == nil {
		return 0
	}
	return s.boneCount
}

// unit normalizes v, reporting false for a zero-length vector.
func unit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n < epsilon {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}
