package pose

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

// routine returns n distinct bodies sweeping the arms from down to overhead.
func routine(n int) []skeleton.Body {
	bodies := make([]skeleton.Body, n)
	for i := range bodies {
		t := float64(i) / float64(max(n-1, 1))
		bodies[i] = skeleton.Blend(skeleton.StandingBody(), skeleton.ArmsRaisedBody(), t)
	}
	return bodies
}

func newTestComparer(t *testing.T, bodies []skeleton.Body, opts Options) *Comparer {
	t.Helper()
	seq, err := SequenceFromBodies(bodies, nil)
	require.NoError(t, err)
	return NewComparer(seq, opts)
}

func TestNewComparer_InitialState(t *testing.T) {
	c := newTestComparer(t, routine(5), DefaultOptions())

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 0, c.Score())
	assert.Equal(t, 500, c.MaxScore())
	assert.Equal(t, MaxDistance, c.LastDistance())
	for k := 0; k < c.Len(); k++ {
		assert.Equal(t, MaxDistance, c.Best(k))
	}
}

func TestComparer_PerfectReplay(t *testing.T) {
	bodies := routine(12)

	for _, useWeights := range []bool{false, true} {
		opts := DefaultOptions()
		opts.UseWeights = useWeights
		c := newTestComparer(t, bodies, opts)

		for i := range bodies {
			c.Update(New(&bodies[i]), i)
			assert.Equal(t, 0.0, c.LastDistance())
		}

		assert.Equal(t, MaxFrameScore*len(bodies), c.Score(), "useWeights=%v", useWeights)

		sum := c.Summary()
		assert.Equal(t, len(bodies), sum.Matched)
		assert.Equal(t, 100.0, sum.Percent)
		assert.Equal(t, 0.0, sum.MeanDistance)
		assert.Equal(t, 0.0, sum.StdDistance)
	}
}

func TestComparer_Window(t *testing.T) {
	c := newTestComparer(t, routine(5), DefaultOptions())

	tests := []struct {
		refIndex int
		lo, hi   int
	}{
		{0, 0, 1},
		{2, 0, 3},
		{3, 0, 4},
		{4, 1, 4},
		{5, 2, 4},
	}
	for _, tt := range tests {
		lo, hi := c.Window(tt.refIndex)
		assert.Equal(t, tt.lo, lo, "lo for %d", tt.refIndex)
		assert.Equal(t, tt.hi, hi, "hi for %d", tt.refIndex)
	}

	lo, hi := c.Window(10)
	assert.Greater(t, lo, hi, "window past the end is empty")
	lo, hi = c.Window(-5)
	assert.Greater(t, lo, hi, "window before the start is empty")
}

func TestComparer_UpdateTouchesOnlyWindow(t *testing.T) {
	bodies := make([]skeleton.Body, 8)
	for i := range bodies {
		bodies[i] = skeleton.TPoseBody()
	}
	sample := build(skeleton.TPoseBody())

	t.Run("first frame", func(t *testing.T) {
		c := newTestComparer(t, bodies, DefaultOptions())
		gained := c.Update(sample, 0)

		assert.Equal(t, 200, gained)
		for k := 0; k < c.Len(); k++ {
			if k <= 1 {
				assert.Equal(t, 0.0, c.Best(k), "frame %d", k)
			} else {
				assert.Equal(t, MaxDistance, c.Best(k), "frame %d", k)
			}
		}
	})

	t.Run("last frame", func(t *testing.T) {
		c := newTestComparer(t, bodies, DefaultOptions())
		c.Update(sample, 7)

		for k := 0; k < c.Len(); k++ {
			if k >= 4 {
				assert.Equal(t, 0.0, c.Best(k), "frame %d", k)
			} else {
				assert.Equal(t, MaxDistance, c.Best(k), "frame %d", k)
			}
		}
		assert.Equal(t, 400, c.Score())
	})

	t.Run("out of range", func(t *testing.T) {
		c := newTestComparer(t, bodies, DefaultOptions())
		assert.NotPanics(t, func() {
			assert.Equal(t, 0, c.Update(sample, 100))
			assert.Equal(t, 0, c.Update(sample, -100))
		})
		assert.Equal(t, 0, c.Score())
		assert.Equal(t, MaxDistance, c.LastDistance())
	})
}

func TestComparer_MonotonicScore(t *testing.T) {
	bodies := routine(20)
	c := newTestComparer(t, bodies, Options{UseWeights: true, PreWindow: 2, PostWindow: 4})

	candidates := []skeleton.Body{
		skeleton.StandingBody(),
		skeleton.ArmsRaisedBody(),
		skeleton.TPoseBody(),
		skeleton.SquatBody(),
	}
	untracked := skeleton.StandingBody()
	untracked.Tracked = false
	candidates = append(candidates, untracked)
	candidates = append(candidates, bodies...)

	rng := rand.New(rand.NewSource(42))
	prevBest := make([]float64, c.Len())
	for k := range prevBest {
		prevBest[k] = c.Best(k)
	}
	prevScore := c.Score()

	for step := 0; step < 400; step++ {
		body := candidates[rng.Intn(len(candidates))]
		jitter := r3.Vec{X: rng.Float64() * 0.05, Z: rng.Float64() * 0.05}
		body = body.Transform(func(p r3.Vec) r3.Vec { return r3.Add(p, jitter) })

		gained := c.Update(New(&body), rng.Intn(c.Len()+6)-3)

		assert.GreaterOrEqual(t, gained, 0)
		assert.GreaterOrEqual(t, c.Score(), prevScore)
		for k := range prevBest {
			assert.LessOrEqual(t, c.Best(k), prevBest[k])
			prevBest[k] = c.Best(k)
		}
		prevScore = c.Score()
	}

	// the cumulative score is always the sum of per-frame scores
	want := 0
	for k := 0; k < c.Len(); k++ {
		want += Score(c.Best(k))
	}
	assert.Equal(t, want, c.Score())
}

func TestComparer_InvalidSample(t *testing.T) {
	c := newTestComparer(t, routine(4), DefaultOptions())

	body := skeleton.StandingBody()
	body.Joints[skeleton.HipRight].State = skeleton.Inferred

	assert.Equal(t, 0, c.Update(New(&body), 1))
	assert.Equal(t, 0, c.Update(nil, 1))
	assert.Equal(t, MaxDistance, c.LastDistance())
	assert.Equal(t, 0, c.Score())
}

func TestComparer_InvalidReferenceFrameIsUnmatchable(t *testing.T) {
	bodies := routine(4)
	bodies[2].Tracked = false
	c := newTestComparer(t, bodies, DefaultOptions())

	for i := range bodies {
		c.Update(New(&bodies[i]), i)
	}

	assert.Equal(t, MaxDistance, c.Best(2))
	assert.Equal(t, 300, c.Score())
	assert.Equal(t, 3, c.Summary().Matched)
}

func TestNewComparer_Weighting(t *testing.T) {
	bodies := routine(8)
	seq, err := SequenceFromBodies(bodies, nil)
	require.NoError(t, err)

	NewComparer(seq, Options{UseWeights: true, PreWindow: 1, PostWindow: 3})
	assert.Greater(t, seq.Frame(5).Weights.Weight(skeleton.HandLeft), DefaultWeight)
	assert.Equal(t, DefaultWeight, seq.Frame(5).Weights.Weight(skeleton.KneeLeft))

	NewComparer(seq, DefaultOptions())
	assert.Equal(t, DefaultWeight, seq.Frame(5).Weights.Weight(skeleton.HandLeft))

	t.Run("custom generator", func(t *testing.T) {
		NewComparer(seq, Options{UseWeights: true, Weights: NewWeightGenerator(1, 1000)})
		weighted := seq.Frame(5).Weights.Weight(skeleton.HandLeft)

		NewComparer(seq, Options{UseWeights: true})
		assert.Greater(t, weighted, seq.Frame(5).Weights.Weight(skeleton.HandLeft))
	})
}

func TestComparer_Summary(t *testing.T) {
	bodies := routine(4)
	c := newTestComparer(t, bodies, Options{PreWindow: 0, PostWindow: 0})

	c.Update(New(&bodies[0]), 0)
	tpose := skeleton.TPoseBody()
	c.Update(New(&tpose), 1)

	d := c.Best(1)
	require.Less(t, d, MaxDistance)

	want := Summary{
		Frames:       4,
		Matched:      2,
		Score:        100 + Score(d),
		MaxScore:     400,
		Percent:      100 * float64(100+Score(d)) / 400,
		MeanDistance: d / 2,
	}
	got := c.Summary()
	got.StdDistance = 0

	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool { return a-b < 1e-9 && b-a < 1e-9 })); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
	assert.Greater(t, c.Summary().StdDistance, 0.0)
}

func TestComparer_ConcurrentReads(t *testing.T) {
	bodies := routine(30)
	c := newTestComparer(t, bodies, DefaultOptions())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Score()
			_ = c.LastDistance()
		}
	}()

	for i := range bodies {
		c.Update(New(&bodies[i]), i)
	}
	wg.Wait()

	assert.Equal(t, c.MaxScore(), c.Score())
}
