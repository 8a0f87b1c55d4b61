package likelihood

import (
	"github.com/likeligrid/likeligrid/internal/bitset"
)

// StepFactor is an extra multiplicative effect of mutating a gene whose pathway set is
// mutPath when the pathways in pathtype have already been hit.
type StepFactor func(theta []float64, pathtype, mutPath *bitset.BitSet) float64

// Engine computes the normalizing constants D[0..maxDepth] of the model.
// It keeps no state between calls: every Compute walks the full ordered-path tree again.
type Engine struct {
	weights  []float64
	effects  []*bitset.BitSet
	indices  [][]int
	npath    int
	maxDepth int
	factor   StepFactor
}

// NewEngine creates an engine over gene weights and per-gene pathway sets.
// factor may be nil.
func NewEngine(weights []float64, effects []*bitset.BitSet, npath, maxDepth int, factor StepFactor) *Engine {
	indices := make([][]int, len(effects))
	for g, e := range effects {
		indices[g] = e.Indices()
	}
	return &Engine{
		weights:  weights,
		effects:  effects,
		indices:  indices,
		npath:    npath,
		maxDepth: maxDepth,
		factor:   factor,
	}
}

// MaxDepth returns the deepest mutation count enumerated
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Compute returns D where D[s] is the probability mass of all ordered sequences of s
// distinct genes under theta. D[0] is 1 and D[1] is the sum of the weights.
func (e *Engine) Compute(theta []float64) []float64 {
	w := &walker{
		Engine:    e,
		theta:     theta,
		genotype:  bitset.New(len(e.weights)),
		pathtypes: make([]*bitset.BitSet, e.maxDepth+1),
		denoms:    make([]float64, e.maxDepth+1),
	}
	for i := range w.pathtypes {
		w.pathtypes[i] = bitset.New(e.npath)
	}
	w.denoms[0] = 1.0
	if e.maxDepth > 0 {
		w.mutate(0, 1.0)
	}
	return w.denoms
}

// Compute is a convenience wrapper for a model without extra step factors
func Compute(weights []float64, theta []float64, effects []*bitset.BitSet, maxDepth int) []float64 {
	npath := 0
	if len(effects) > 0 {
		npath = effects[0].Len()
	}
	return NewEngine(weights, effects, npath, maxDepth, nil).Compute(theta)
}

// walker holds the transient state of one Compute call.
// pathtypes[d] is the set of pathways hit after d mutations on the current branch.
type walker struct {
	*Engine
	theta     []float64
	genotype  *bitset.BitSet
	pathtypes []*bitset.BitSet
	denoms    []float64
}

func (w *walker) mutate(depth int, anc float64) {
	s := depth + 1
	pathtype := w.pathtypes[depth]
	for g, wg := range w.weights {
		// zero-weight genes add nothing to this or any deeper count
		if wg == 0 || w.genotype.Test(g) {
			continue
		}
		mutPath := w.effects[g]
		p := anc * wg * discountIfSubset(w.theta, pathtype, mutPath, w.indices[g])
		if w.factor != nil {
			p *= w.factor(w.theta, pathtype, mutPath)
		}
		w.denoms[s] += p
		if s < w.maxDepth {
			next := w.pathtypes[s]
			next.CopyFrom(pathtype)
			next.UnionWith(mutPath)
			w.genotype.Set(g)
			w.mutate(s, p)
			w.genotype.Clear(g)
		}
	}
}

// discountIfSubset multiplies theta over the gene's pathways when every one of them
// was hit before; a gene opening any new pathway is not discounted.
func discountIfSubset(theta []float64, pathtype, mutPath *bitset.BitSet, indices []int) float64 {
	if !mutPath.IsSubsetOf(pathtype) {
		return 1.0
	}
	p := 1.0
	for _, j := range indices {
		p *= theta[j]
	}
	return p
}
