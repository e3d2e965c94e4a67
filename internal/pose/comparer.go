package pose

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"
)

// Comparison window defaults, in reference frames.
const (
	// DefaultPreWindow is how far ahead of the nominal frame a sample may match.
	DefaultPreWindow = 1
	// DefaultPostWindow is how far behind the nominal frame a sample may match.
	DefaultPostWindow = 3
)

// Options configures a Comparer.
type Options struct {
	// UseWeights enables adaptive bone weights on the reference sequence.
	UseWeights bool
	// PreWindow and PostWindow bound the reference frames compared against
	// each sample: [refIndex-PostWindow, refIndex+PreWindow].
	PreWindow  int
	PostWindow int
	// Weights generates adaptive weights. Nil uses DefaultWeightGenerator.
	Weights *WeightGenerator
}

// DefaultOptions returns baseline weighting with the default window.
func DefaultOptions() Options {
	return Options{
		UseWeights: false,
		PreWindow:  DefaultPreWindow,
		PostWindow: DefaultPostWindow,
	}
}

// Comparer scores a live skeleton stream against a reference sequence.
//
// Every reference frame remembers the best distance any sample achieved
// against it. A frame's contribution to the score only ever improves, so a
// pose struck near the right moment keeps counting even if the performer
// jitters afterwards.
//
// Update must be called from a single goroutine in sampling order. Score and
// LastDistance may be read concurrently.
type Comparer struct {
	seq  *Sequence
	best []float64
	pre  int
	post int

	score atomic.Int64
	last  atomic.Uint64
}

// NewComparer starts a comparison session over seq. Building the comparer
// rewrites the weight tables of seq, so seq must not be read concurrently
// while this runs.
func NewComparer(seq *Sequence, opts Options) *Comparer {
	gen := opts.Weights
	if gen == nil {
		gen = DefaultWeightGenerator()
	}
	if opts.UseWeights {
		gen.Apply(seq)
	} else {
		gen.Reset(seq)
	}

	pre, post := opts.PreWindow, opts.PostWindow
	if pre < 0 {
		pre = 0
	}
	if post < 0 {
		post = 0
	}

	c := &Comparer{
		seq:  seq,
		best: make([]float64, seq.Len()),
		pre:  pre,
		post: post,
	}
	for i := range c.best {
		c.best[i] = MaxDistance
	}
	c.last.Store(math.Float64bits(MaxDistance))
	return c
}

// Window returns the inclusive range of reference frames compared for
// refIndex. The range is empty (lo > hi) when refIndex is too far outside
// the sequence.
func (c *Comparer) Window(refIndex int) (lo, hi int) {
	lo = max(refIndex-c.post, 0)
	hi = min(refIndex+c.pre, len(c.best)-1)
	return lo, hi
}

// Update compares sample with the reference frames around refIndex and
// returns the score gained.
func (c *Comparer) Update(sample *Skeleton, refIndex int) int {
	lo, hi := c.Window(refIndex)

	gained := 0
	lowest := MaxDistance
	for k := lo; k <= hi; k++ {
		d := ComputeDistance(c.seq.Frame(k), sample)
		if d < lowest {
			lowest = d
		}
		if d < c.best[k] {
			gained += Score(d) - Score(c.best[k])
			c.best[k] = d
		}
	}

	c.score.Add(int64(gained))
	c.last.Store(math.Float64bits(lowest))
	return gained
}

// Score returns the cumulative score.
func (c *Comparer) Score() int {
	return int(c.score.Load())
}

// MaxScore returns the score of a perfect performance.
func (c *Comparer) MaxScore() int {
	return MaxFrameScore * len(c.best)
}

// LastDistance returns the lowest distance computed by the latest Update,
// MaxDistance before the first one or when its window was empty.
func (c *Comparer) LastDistance() float64 {
	return math.Float64frombits(c.last.Load())
}

// Best returns the best distance seen for reference frame k.
func (c *Comparer) Best(k int) float64 {
	return c.best[k]
}

// Len returns the number of reference frames.
func (c *Comparer) Len() int {
	return len(c.best)
}

// Sequence returns the reference sequence.
func (c *Comparer) Sequence() *Sequence {
	return c.seq
}

// Summary describes a finished or running session.
type Summary struct {
	Frames       int     `json:"frames"`
	Matched      int     `json:"matched"`
	Score        int     `json:"score"`
	MaxScore     int     `json:"max_score"`
	Percent      float64 `json:"percent"`
	MeanDistance float64 `json:"mean_distance"`
	StdDistance  float64 `json:"std_distance"`
}

// Summary reports the session so far. Mean and standard deviation cover
// only frames that were matched at least once.
func (c *Comparer) Summary() Summary {
	s := Summary{
		Frames:       len(c.best),
		Score:        c.Score(),
		MaxScore:     c.MaxScore(),
		MeanDistance: MaxDistance,
	}

	matched := make([]float64, 0, len(c.best))
	for _, d := range c.best {
		if d < MaxDistance {
			matched = append(matched, d)
		}
	}
	s.Matched = len(matched)

	if s.MaxScore > 0 {
		s.Percent = 100 * float64(s.Score) / float64(s.MaxScore)
	}
	if len(matched) > 0 {
		s.MeanDistance = stat.Mean(matched, nil)
	}
	if len(matched) > 1 {
		s.StdDistance = stat.StdDev(matched, nil)
	}
	return s
}
