// Package skeleton defines the tracked body model exchanged between the pose
// sensor and the scoring engine.
package skeleton

import "gonum.org/v1/gonum/spatial/r3"

// JointType identifies one of the tracked body joints.
// The ordering follows the classic 20-joint depth sensor skeleton.
type JointType int

// Body joints.
const (
	HipCenter JointType = iota
	Spine
	ShoulderCenter
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	NumJoints = 20
)

var jointNames = [NumJoints]string{
	"HipCenter", "Spine", "ShoulderCenter", "Head",
	"ShoulderLeft", "ElbowLeft", "WristLeft", "HandLeft",
	"ShoulderRight", "ElbowRight", "WristRight", "HandRight",
	"HipLeft", "KneeLeft", "AnkleLeft", "FootLeft",
	"HipRight", "KneeRight", "AnkleRight", "FootRight",
}

// String returns the joint name, e.g. "ElbowLeft".
func (j JointType) String() string {
	if !j.Valid() {
		return "Unknown"
	}
	return jointNames[j]
}

// Valid reports whether j is one of the known joints.
func (j JointType) Valid() bool {
	return j >= 0 && j < NumJoints
}

// ParseJoint returns the joint with the given name.
func ParseJoint(name string) (JointType, bool) {
	for i, n := range jointNames {
		if n == name {
			return JointType(i), true
		}
	}
	return 0, false
}

// TrackingState is the sensor's confidence in a joint position.
type TrackingState int

const (
	// NotTracked means the sensor has no estimate for the joint.
	NotTracked TrackingState = iota
	// Inferred means the position was estimated from surrounding joints.
	Inferred
	// Tracked means the joint was observed directly.
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case Tracked:
		return "tracked"
	case Inferred:
		return "inferred"
	default:
		return "not-tracked"
	}
}

// Joint is a single joint sample: position in sensor space plus tracking state.
type Joint struct {
	Type     JointType     `json:"type"`
	Position r3.Vec        `json:"position"`
	State    TrackingState `json:"state"`
}

// Body is one performer as reported by the sensor for a single frame.
type Body struct {
	TrackingID int              `json:"tracking_id"`
	Tracked    bool             `json:"tracked"`
	Joints     [NumJoints]Joint `json:"joints"`
}

// NewBody returns a tracked body with every joint typed and not tracked.
func NewBody(trackingID int) Body {
	b := Body{TrackingID: trackingID, Tracked: true}
	for i := range b.Joints {
		b.Joints[i].Type = JointType(i)
	}
	return b
}

// Set stores a joint sample.
func (b *Body) Set(j JointType, pos r3.Vec, state TrackingState) {
	b.Joints[j] = Joint{Type: j, Position: pos, State: state}
}

// Position returns the raw sensor-space position of joint j.
func (b *Body) Position(j JointType) r3.Vec {
	return b.Joints[j].Position
}

// IsTracked reports whether joint j was observed directly.
func (b *Body) IsTracked(j JointType) bool {
	return b.Joints[j].State == Tracked
}

// TrackedCount returns the number of directly observed joints.
func (b *Body) TrackedCount() int {
	n := 0
	for i := range b.Joints {
		if b.Joints[i].State == Tracked {
			n++
		}
	}
	return n
}

// Transform returns a copy of b with f applied to every joint position.
func (b Body) Transform(f func(r3.Vec) r3.Vec) Body {
	for i := range b.Joints {
		b.Joints[i].Position = f(b.Joints[i].Position)
	}
	return b
}
