package likelihood

import (
	"testing"

	"github.com/likeligrid/likeligrid/internal/bitset"
	"github.com/likeligrid/likeligrid/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// five genes, three overlapping pathways; gene 4 belongs to none
func testEffects() []*bitset.BitSet {
	return []*bitset.BitSet{
		bitset.FromIndices(3, 0),
		bitset.FromIndices(3, 0, 1),
		bitset.FromIndices(3, 1),
		bitset.FromIndices(3, 2),
		bitset.New(3),
	}
}

var testWeights = []float64{0.1, 0.2, 0.3, 0.25, 0.15}

// bruteDenominators enumerates every ordered sequence with plain slices
func bruteDenominators(w, theta []float64, effects []*bitset.BitSet, maxDepth int) []float64 {
	d := make([]float64, maxDepth+1)
	d[0] = 1
	used := make([]bool, len(w))
	var rec func(hit []bool, p float64, depth int)
	rec = func(hit []bool, p float64, depth int) {
		if depth == maxDepth {
			return
		}
		for g := range w {
			if used[g] {
				continue
			}
			paths := effects[g].Indices()
			subset := true
			for _, j := range paths {
				if !hit[j] {
					subset = false
				}
			}
			q := p * w[g]
			if subset {
				for _, j := range paths {
					q *= theta[j]
				}
			}
			d[depth+1] += q
			next := append([]bool(nil), hit...)
			for _, j := range paths {
				next[j] = true
			}
			used[g] = true
			rec(next, q, depth+1)
			used[g] = false
		}
	}
	rec(make([]bool, len(theta)), 1, 0)
	return d
}

// elementary returns s! times the s-th elementary symmetric polynomial of w
func elementary(w []float64, s int) float64 {
	var rec func(start, left int) float64
	rec = func(start, left int) float64 {
		if left == 0 {
			return 1
		}
		total := 0.0
		for i := start; i <= len(w)-left; i++ {
			total += w[i] * rec(i+1, left-1)
		}
		return total
	}
	fact := 1.0
	for k := 2; k <= s; k++ {
		fact *= float64(k)
	}
	return fact * rec(0, s)
}

func TestComputeConservation(t *testing.T) {
	for _, theta := range [][]float64{{1, 1, 1}, {0.3, 1.7, 0.9}, {2.5, 0.1, 4}} {
		d := Compute(testWeights, theta, testEffects(), 4)
		require.Len(t, d, 5)
		assert.Equal(t, 1.0, d[0])
		assert.InDelta(t, 1.0, d[1], 1e-12)
		for s := 2; s < len(d); s++ {
			assert.GreaterOrEqual(t, d[s], 0.0)
		}
	}
}

func TestComputeWithoutDiscountIsElementarySum(t *testing.T) {
	d := Compute(testWeights, []float64{1, 1, 1}, testEffects(), 5)
	for s := 1; s <= 5; s++ {
		assert.InDelta(t, elementary(testWeights, s), d[s], 1e-12, "s=%d", s)
	}

	// pathway structure does not matter without discount
	flat := make([]*bitset.BitSet, len(testWeights))
	for i := range flat {
		flat[i] = bitset.New(3)
	}
	assert.InDeltaSlice(t, d, Compute(testWeights, []float64{1, 1, 1}, flat, 5), 1e-12)
}

func TestComputeMatchesBruteForce(t *testing.T) {
	theta := []float64{0.4, 1.6, 0.7}
	for depth := 0; depth <= 5; depth++ {
		want := bruteDenominators(testWeights, theta, testEffects(), depth)
		got := Compute(testWeights, theta, testEffects(), depth)
		assert.InDeltaSlice(t, want, got, 1e-12, "depth=%d", depth)
	}
}

func TestComputeDeterministic(t *testing.T) {
	engine := NewEngine(testWeights, testEffects(), 3, 4, nil)
	theta := []float64{0.8, 1.2, 0.5}
	first := engine.Compute(theta)
	second := engine.Compute(theta)
	assert.Equal(t, first, second)
	assert.Equal(t, 4, engine.MaxDepth())
}

func TestComputeZeroWeightGenes(t *testing.T) {
	w := utils.Normalize([]float64{1, 0, 3, 0})
	effects := []*bitset.BitSet{
		bitset.FromIndices(1, 0), bitset.FromIndices(1, 0),
		bitset.FromIndices(1, 0), bitset.New(1),
	}
	theta := []float64{0.5}
	assert.InDeltaSlice(t, bruteDenominators(w, theta, effects, 3), Compute(w, theta, effects, 3), 1e-12)
}
