// Package detector turns camera frames into tracked bodies using a MediaPipe
// pose landmarker.
package detector

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

// Pose landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftEar       = 7
	RightEar      = 8
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftPinky     = 17
	RightPinky    = 18
	LeftIndex     = 19
	RightIndex    = 20
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	LeftFootIndex = 31
	RightFootIdx  = 32
	NumLandmarks  = 33
)

// spineRatio places the spine joint along the hip to shoulder line.
const spineRatio = 0.3

// Landmark is one world-space pose landmark in metres, with the hips at the
// origin, Y pointing down and Z pointing away from the camera.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseLandmarks is the landmark set of one detected person.
type PoseLandmarks struct {
	Points [NumLandmarks]Landmark `json:"points"`
	Score  float64                `json:"score"`
}

// directJoints maps skeleton joints that correspond to a single landmark.
var directJoints = map[skeleton.JointType]int{
	skeleton.ShoulderLeft:  LeftShoulder,
	skeleton.ElbowLeft:     LeftElbow,
	skeleton.WristLeft:     LeftWrist,
	skeleton.ShoulderRight: RightShoulder,
	skeleton.ElbowRight:    RightElbow,
	skeleton.WristRight:    RightWrist,
	skeleton.HipLeft:       LeftHip,
	skeleton.KneeLeft:      LeftKnee,
	skeleton.AnkleLeft:     LeftAnkle,
	skeleton.FootLeft:      LeftFootIndex,
	skeleton.HipRight:      RightHip,
	skeleton.KneeRight:     RightKnee,
	skeleton.AnkleRight:    RightAnkle,
	skeleton.FootRight:     RightFootIdx,
}

// ToBody converts the landmarks to the 20-joint skeleton. Joints with no
// BlazePose counterpart are interpolated and inherit the lowest visibility of
// the landmarks they are built from.
func (p *PoseLandmarks) ToBody(trackingID int, cfg Config) skeleton.Body {
	body := skeleton.NewBody(trackingID)
	body.Tracked = p.Score >= cfg.MinConfidence

	for j, idx := range directJoints {
		lm := p.Points[idx]
		body.Set(j, toSensor(lm), cfg.state(lm.Visibility))
	}

	hipCenter := p.mid(LeftHip, RightHip)
	shoulderCenter := p.mid(LeftShoulder, RightShoulder)
	spine := lerp(hipCenter, shoulderCenter, spineRatio)

	for j, lm := range map[skeleton.JointType]Landmark{
		skeleton.HipCenter:      hipCenter,
		skeleton.Spine:          spine,
		skeleton.ShoulderCenter: shoulderCenter,
		skeleton.Head:           p.mid(LeftEar, RightEar),
		skeleton.HandLeft:       p.mid(LeftPinky, LeftIndex),
		skeleton.HandRight:      p.mid(RightPinky, RightIndex),
	} {
		body.Set(j, toSensor(lm), cfg.state(lm.Visibility))
	}

	return body
}

func (p *PoseLandmarks) mid(a, b int) Landmark {
	return lerp(p.Points[a], p.Points[b], 0.5)
}

func lerp(a, b Landmark, t float64) Landmark {
	return Landmark{
		X:          a.X + (b.X-a.X)*t,
		Y:          a.Y + (b.Y-a.Y)*t,
		Z:          a.Z + (b.Z-a.Z)*t,
		Visibility: min(a.Visibility, b.Visibility),
	}
}

// toSensor rotates a landmark half a turn about Z so that Y points up and the
// performer's left side lies on negative X.
func toSensor(lm Landmark) r3.Vec {
	return r3.Vec{X: -lm.X, Y: -lm.Y, Z: lm.Z}
}
