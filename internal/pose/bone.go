package pose

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

// Segment is a directed pair of joints. A bone is named after its End joint.
type Segment struct {
	Start skeleton.JointType
	End   skeleton.JointType
}

// Topology is the bone tree rooted at the hip centre.
var Topology = [...]Segment{
	{skeleton.HipCenter, skeleton.Spine},
	{skeleton.Spine, skeleton.ShoulderCenter},
	{skeleton.ShoulderCenter, skeleton.ShoulderLeft},
	{skeleton.ShoulderLeft, skeleton.ElbowLeft},
	{skeleton.ElbowLeft, skeleton.WristLeft},
	{skeleton.WristLeft, skeleton.HandLeft},
	{skeleton.ShoulderCenter, skeleton.ShoulderRight},
	{skeleton.ShoulderRight, skeleton.ElbowRight},
	{skeleton.ElbowRight, skeleton.WristRight},
	{skeleton.WristRight, skeleton.HandRight},
	{skeleton.ShoulderCenter, skeleton.Head},
	{skeleton.HipCenter, skeleton.HipLeft},
	{skeleton.HipLeft, skeleton.KneeLeft},
	{skeleton.KneeLeft, skeleton.AnkleLeft},
	{skeleton.AnkleLeft, skeleton.FootLeft},
	{skeleton.HipCenter, skeleton.HipRight},
	{skeleton.HipRight, skeleton.KneeRight},
	{skeleton.KneeRight, skeleton.AnkleRight},
	{skeleton.AnkleRight, skeleton.FootRight},
}

// Bone is the unit direction of a segment in the unified frame.
// Direction is the zero vector whenever Valid is false.
type Bone struct {
	Joint     skeleton.JointType `json:"joint"`
	Direction r3.Vec             `json:"direction"`
	Valid     bool               `json:"valid"`
}

func newBone(j skeleton.JointType, start, end r3.Vec, tracked bool) Bone {
	b := Bone{Joint: j}
	if !tracked {
		return b
	}
	dir, ok := unit(r3.Sub(end, start))
	if !ok {
		return b
	}
	b.Direction = dir
	b.Valid = true
	return b
}
