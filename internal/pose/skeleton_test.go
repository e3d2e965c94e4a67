package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

const tolerance = 1e-9

// rotateY rotates p by angle radians about the vertical axis.
func rotateY(angle float64) func(r3.Vec) r3.Vec {
	sin, cos := math.Sincos(angle)
	return func(p r3.Vec) r3.Vec {
		return r3.Vec{X: p.X*cos + p.Z*sin, Y: p.Y, Z: -p.X*sin + p.Z*cos}
	}
}

// rotateX rotates p by angle radians about the sensor's horizontal axis.
func rotateX(angle float64) func(r3.Vec) r3.Vec {
	sin, cos := math.Sincos(angle)
	return func(p r3.Vec) r3.Vec {
		return r3.Vec{X: p.X, Y: p.Y*cos - p.Z*sin, Z: p.Y*sin + p.Z*cos}
	}
}

func TestNew_ValidBody(t *testing.T) {
	body := skeleton.StandingBody()
	s := New(&body)

	require.True(t, s.IsValid())
	assert.Equal(t, len(Topology), s.BoneCount())
	assert.Len(t, s.Bones(), len(Topology))

	hip := s.Position(skeleton.HipCenter)
	assert.InDelta(t, 0, r3.Norm(hip), tolerance, "hip centre should be the origin")

	// spine lies on the vertical axis
	spine := s.Position(skeleton.Spine)
	assert.InDelta(t, 0, spine.X, tolerance)
	assert.Greater(t, spine.Y, 0.0)
	assert.InDelta(t, 0, spine.Z, tolerance)

	// right hip lies on the positive lateral axis
	assert.Greater(t, s.Position(skeleton.HipRight).X, 0.0)

	assert.Equal(t, body.Position(skeleton.Head), s.RawPosition(skeleton.Head))
}

func TestNew_InvalidBodies(t *testing.T) {
	t.Run("nil body", func(t *testing.T) {
		s := New(nil)
		assert.False(t, s.IsValid())
		assert.Equal(t, 0, s.BoneCount())
		assert.Nil(t, s.Bones())
	})

	t.Run("untracked body", func(t *testing.T) {
		body := skeleton.StandingBody()
		body.Tracked = false
		assert.False(t, New(&body).IsValid())
	})

	for _, j := range anchorJoints {
		for _, state := range []skeleton.TrackingState{skeleton.Inferred, skeleton.NotTracked} {
			t.Run(j.String()+" "+state.String(), func(t *testing.T) {
				body := skeleton.StandingBody()
				body.Joints[j].State = state

				s := New(&body)
				assert.False(t, s.IsValid())
				assert.Equal(t, 0, s.BoneCount())
			})
		}
	}

	t.Run("spine on top of hip centre", func(t *testing.T) {
		body := skeleton.StandingBody()
		body.Joints[skeleton.Spine].Position = body.Position(skeleton.HipCenter)
		assert.False(t, New(&body).IsValid())
	})

	t.Run("hip axis parallel to spine", func(t *testing.T) {
		body := skeleton.StandingBody()
		body.Joints[skeleton.HipLeft].Position = r3.Vec{X: 0, Y: -0.1, Z: 2.0}
		body.Joints[skeleton.HipRight].Position = r3.Vec{X: 0, Y: 0.1, Z: 2.0}
		assert.False(t, New(&body).IsValid())
	})
}

func TestNew_BonesAreUnitOrInvalid(t *testing.T) {
	bodies := []skeleton.Body{
		skeleton.StandingBody(),
		skeleton.ArmsRaisedBody(),
		skeleton.TPoseBody(),
		skeleton.SquatBody(),
	}

	partial := skeleton.TPoseBody()
	partial.Joints[skeleton.WristRight].State = skeleton.Inferred
	partial.Joints[skeleton.FootLeft].State = skeleton.NotTracked
	bodies = append(bodies, partial)

	for _, body := range bodies {
		s := New(&body)
		require.True(t, s.IsValid())
		for _, b := range s.Bones() {
			if b.Valid {
				assert.InDelta(t, 1.0, r3.Norm(b.Direction), tolerance, "bone %s", b.Joint)
			} else {
				assert.Equal(t, r3.Vec{}, b.Direction, "bone %s", b.Joint)
			}
		}
	}
}

func TestNew_UntrackedEndpointInvalidatesBone(t *testing.T) {
	body := skeleton.StandingBody()
	body.Joints[skeleton.ElbowLeft].State = skeleton.Inferred

	s := New(&body)
	require.True(t, s.IsValid())

	// both bones touching the elbow are invalid
	upper, ok := s.Bone(skeleton.ElbowLeft)
	require.True(t, ok)
	assert.False(t, upper.Valid)

	lower, ok := s.Bone(skeleton.WristLeft)
	require.True(t, ok)
	assert.False(t, lower.Valid)

	hand, ok := s.Bone(skeleton.HandLeft)
	require.True(t, ok)
	assert.True(t, hand.Valid)
}

func TestNew_ZeroLengthBoneIsInvalid(t *testing.T) {
	body := skeleton.StandingBody()
	body.Joints[skeleton.HandLeft].Position = body.Position(skeleton.WristLeft)

	s := New(&body)
	require.True(t, s.IsValid())

	b, ok := s.Bone(skeleton.HandLeft)
	require.True(t, ok)
	assert.False(t, b.Valid)
}

func TestSkeleton_BoneLookup(t *testing.T) {
	body := skeleton.StandingBody()
	s := New(&body)

	_, ok := s.Bone(skeleton.HipCenter)
	assert.False(t, ok, "hip centre is the root and ends no bone")

	_, ok = s.Bone(skeleton.JointType(99))
	assert.False(t, ok)

	b, ok := s.Bone(skeleton.Head)
	require.True(t, ok)
	assert.Equal(t, skeleton.Head, b.Joint)
	assert.Greater(t, b.Direction.Y, 0.9, "head points up")
}

func TestNew_InvariantToPlacement(t *testing.T) {
	body := skeleton.TPoseBody()
	want := New(&body)

	transforms := map[string]func(r3.Vec) r3.Vec{
		"translated": func(p r3.Vec) r3.Vec { return r3.Add(p, r3.Vec{X: 1.5, Y: -0.3, Z: 0.8}) },
		"turned":     rotateY(0.7),
		"turned away": func(p r3.Vec) r3.Vec {
			return rotateY(math.Pi)(p)
		},
		"tilted sensor": rotateX(-0.25),
	}

	for name, f := range transforms {
		t.Run(name, func(t *testing.T) {
			moved := body.Transform(f)
			got := New(&moved)
			require.True(t, got.IsValid())

			for j := skeleton.JointType(0); j < skeleton.NumJoints; j++ {
				assert.InDelta(t, 0, r3.Norm(r3.Sub(want.Position(j), got.Position(j))), 1e-9, "joint %s", j)
			}
			assert.InDelta(t, 0, ComputeDistance(want, got), 1e-9)
		})
	}
}
