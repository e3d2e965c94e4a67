package pose

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/posematch/internal/skeleton"
)

// Weight generator defaults.
const (
	DefaultWeightWindow = 2
	DefaultWeightScale  = 200.0
)

// WeightTable maps a bone (by its end joint) to a positive weight.
// Unset entries read as DefaultWeight.
type WeightTable [skeleton.NumJoints]float64

// Weight returns the weight of the bone ending at j.
func (w *WeightTable) Weight(j skeleton.JointType) float64 {
	if v := w[j]; v > 0 {
		return v
	}
	return DefaultWeight
}

// Set stores the weight of the bone ending at j. Non-positive values reset
// the entry to DefaultWeight.
func (w *WeightTable) Set(j skeleton.JointType, v float64) {
	if v <= 0 {
		v = 0
	}
	w[j] = v
}

// Reset restores every entry to DefaultWeight.
func (w *WeightTable) Reset() {
	*w = WeightTable{}
}

// movement is the per-joint displacement between two consecutive frames.
type movement [skeleton.NumJoints]float64

// WeightGenerator derives adaptive bone weights for a reference sequence:
// joints that moved a lot over the last few frames weigh more than static
// ones. Each generator owns its trailing window, so generators for different
// sessions never share state.
type WeightGenerator struct {
	window int
	scale  float64

	history []movement
	next    int
}

// NewWeightGenerator creates a generator accumulating displacement over the
// current frame plus window trailing frames, scaled by scale.
func NewWeightGenerator(window int, scale float64) *WeightGenerator {
	if window < 0 {
		window = 0
	}
	return &WeightGenerator{
		window: window,
		scale:  scale,
	}
}

// DefaultWeightGenerator returns a generator with a two-frame window and a
// scale of 200.
func DefaultWeightGenerator() *WeightGenerator {
	return NewWeightGenerator(DefaultWeightWindow, DefaultWeightScale)
}

// Apply computes weights for every frame of seq. Frames whose index is not
// past the window keep the baseline weight, as do invalid frames.
func (g *WeightGenerator) Apply(seq *Sequence) {
	if seq == nil {
		return
	}
	g.Reset(seq)

	g.history = make([]movement, g.window)
	g.next = 0

	for i := 1; i < seq.Len(); i++ {
		cur := seq.Frame(i)
		prev := seq.Frame(i - 1)

		var m movement
		if cur.IsValid() && prev.IsValid() {
			for j := range m {
				m[j] = r3.Norm(r3.Sub(cur.raw[j], prev.raw[j]))
			}
		}

		if i > g.window && cur.IsValid() {
			for j := range m {
				accumulated := m[j]
				for _, h := range g.history {
					accumulated += h[j]
				}
				cur.Weights.Set(skeleton.JointType(j), DefaultWeight+g.scale*accumulated)
			}
		}

		if g.window > 0 {
			g.history[g.next] = m
			g.next = (g.next + 1) % g.window
		}
	}
}

// Reset sets every weight of every frame of seq back to the baseline.
func (g *WeightGenerator) Reset(seq *Sequence) {
	if seq == nil {
		return
	}
	for i := 0; i < seq.Len(); i++ {
		if f := seq.Frame(i); f != nil {
			f.Weights.Reset()
		}
	}
}
