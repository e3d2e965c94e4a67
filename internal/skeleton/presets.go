package skeleton

import "gonum.org/v1/gonum/spatial/r3"

// Preset bodies in sensor space (metres, Y up, Z away from the sensor).
// They are used by the mock detector and by tests.

// standingPositions is a relaxed upright pose two metres from the sensor.
var standingPositions = [NumJoints]r3.Vec{
	HipCenter:      {X: 0, Y: 0, Z: 2.0},
	Spine:          {X: 0, Y: 0.10, Z: 2.0},
	ShoulderCenter: {X: 0, Y: 0.45, Z: 2.0},
	Head:           {X: 0, Y: 0.65, Z: 2.0},
	ShoulderLeft:   {X: -0.18, Y: 0.42, Z: 2.0},
	ElbowLeft:      {X: -0.22, Y: 0.15, Z: 2.0},
	WristLeft:      {X: -0.24, Y: -0.10, Z: 2.0},
	HandLeft:       {X: -0.25, Y: -0.18, Z: 2.0},
	ShoulderRight:  {X: 0.18, Y: 0.42, Z: 2.0},
	ElbowRight:     {X: 0.22, Y: 0.15, Z: 2.0},
	WristRight:     {X: 0.24, Y: -0.10, Z: 2.0},
	HandRight:      {X: 0.25, Y: -0.18, Z: 2.0},
	HipLeft:        {X: -0.08, Y: -0.05, Z: 2.0},
	KneeLeft:       {X: -0.09, Y: -0.48, Z: 2.0},
	AnkleLeft:      {X: -0.09, Y: -0.88, Z: 2.0},
	FootLeft:       {X: -0.09, Y: -0.92, Z: 1.92},
	HipRight:       {X: 0.08, Y: -0.05, Z: 2.0},
	KneeRight:      {X: 0.09, Y: -0.48, Z: 2.0},
	AnkleRight:     {X: 0.09, Y: -0.88, Z: 2.0},
	FootRight:      {X: 0.09, Y: -0.92, Z: 1.92},
}

func presetBody(overrides map[JointType]r3.Vec) Body {
	b := NewBody(1)
	for i, p := range standingPositions {
		j := JointType(i)
		if o, ok := overrides[j]; ok {
			p = o
		}
		b.Set(j, p, Tracked)
	}
	return b
}

// StandingBody returns an upright body with the arms hanging down.
func StandingBody() Body {
	return presetBody(nil)
}

// ArmsRaisedBody returns an upright body with both arms stretched overhead.
func ArmsRaisedBody() Body {
	return presetBody(map[JointType]r3.Vec{
		ElbowLeft:  {X: -0.22, Y: 0.70, Z: 2.0},
		WristLeft:  {X: -0.24, Y: 0.95, Z: 2.0},
		HandLeft:   {X: -0.25, Y: 1.03, Z: 2.0},
		ElbowRight: {X: 0.22, Y: 0.70, Z: 2.0},
		WristRight: {X: 0.24, Y: 0.95, Z: 2.0},
		HandRight:  {X: 0.25, Y: 1.03, Z: 2.0},
	})
}

// TPoseBody returns an upright body with both arms held out sideways.
func TPoseBody() Body {
	return presetBody(map[JointType]r3.Vec{
		ElbowLeft:  {X: -0.46, Y: 0.42, Z: 2.0},
		WristLeft:  {X: -0.70, Y: 0.42, Z: 2.0},
		HandLeft:   {X: -0.78, Y: 0.42, Z: 2.0},
		ElbowRight: {X: 0.46, Y: 0.42, Z: 2.0},
		WristRight: {X: 0.70, Y: 0.42, Z: 2.0},
		HandRight:  {X: 0.78, Y: 0.42, Z: 2.0},
	})
}

// SquatBody returns a half squat with the knees pushed towards the sensor
// and the arms reaching forward.
func SquatBody() Body {
	return presetBody(map[JointType]r3.Vec{
		ElbowLeft:  {X: -0.20, Y: 0.40, Z: 1.72},
		WristLeft:  {X: -0.18, Y: 0.40, Z: 1.46},
		HandLeft:   {X: -0.18, Y: 0.40, Z: 1.38},
		ElbowRight: {X: 0.20, Y: 0.40, Z: 1.72},
		WristRight: {X: 0.18, Y: 0.40, Z: 1.46},
		HandRight:  {X: 0.18, Y: 0.40, Z: 1.38},
		KneeLeft:   {X: -0.10, Y: -0.30, Z: 1.62},
		AnkleLeft:  {X: -0.10, Y: -0.70, Z: 1.85},
		FootLeft:   {X: -0.10, Y: -0.74, Z: 1.75},
		KneeRight:  {X: 0.10, Y: -0.30, Z: 1.62},
		AnkleRight: {X: 0.10, Y: -0.70, Z: 1.85},
		FootRight:  {X: 0.10, Y: -0.74, Z: 1.75},
	})
}

// Blend linearly interpolates joint positions between two bodies.
// t=0 yields a, t=1 yields b. Tracking states are taken from a.
func Blend(a, b Body, t float64) Body {
	out := a
	for i := range out.Joints {
		pa := a.Joints[i].Position
		pb := b.Joints[i].Position
		out.Joints[i].Position = r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa)))
	}
	return out
}
