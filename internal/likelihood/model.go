// Package likelihood evaluates the exclusivity model log-likelihood for a parameter vector.
package likelihood

import (
	"errors"
	"fmt"
	"math"

	"github.com/likeligrid/likeligrid/internal/bitset"
	"github.com/likeligrid/likeligrid/internal/corpus"
)

var (
	// ErrNonPositive reports a parameter that is not strictly positive
	ErrNonPositive = errors.New("parameter must be positive")
	// ErrDimension reports a parameter vector of the wrong length
	ErrDimension = errors.New("parameter vector has wrong length")
	// ErrDepth reports denominators that do not reach the largest observed mutation count
	ErrDepth = errors.New("denominators shallower than observed mutation counts")
)

// Model combines a corpus with the denominator engine into a log-likelihood function.
// Parameters are one discount per pathway, optionally followed by epistasis terms.
type Model struct {
	corpus    *corpus.Corpus
	names     []string
	engine    *Engine
	epistasis *epistasis
}

// Option configures a Model
type Option func(*Model) error

// WithEpistasis appends an interaction parameter between pathways i and j.
// With pleiotropy a second parameter applies to genes that hit both pathways at once.
func WithEpistasis(i, j int, pleiotropy bool) Option {
	return func(m *Model) error {
		npath := m.corpus.NumPathways()
		if i < 0 || j < 0 || i >= npath || j >= npath {
			return fmt.Errorf("epistasis pair (%d, %d) out of range for %d pathways", i, j, npath)
		}
		if i == j {
			return fmt.Errorf("epistasis pair must name two different pathways, got (%d, %d)", i, j)
		}
		names := m.corpus.Names()
		pair := names[i] + ":" + names[j]
		e := &epistasis{first: i, second: j, epiIdx: npath, pleioIdx: npath}
		m.names = append(m.names, pair)
		if pleiotropy {
			e.pleioIdx = npath + 1
			m.names = append(m.names, pair+":pleiotropy")
		}
		m.epistasis = e
		return nil
	}
}

// NewModel creates a model over c
func NewModel(c *corpus.Corpus, opts ...Option) (*Model, error) {
	m := &Model{
		corpus: c,
		names:  append([]string(nil), c.Names()...),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	var factor StepFactor
	if m.epistasis != nil {
		factor = m.epistasis.factor
	}
	m.engine = NewEngine(c.Weights(), c.Effects(), c.NumPathways(), c.MaxSites(), factor)
	return m, nil
}

// Names returns the parameter names in vector order
func (m *Model) Names() []string {
	return m.names
}

// Dim returns the length of a parameter vector
func (m *Model) Dim() int {
	return len(m.names)
}

// Corpus returns the data the model is fitted to
func (m *Model) Corpus() *corpus.Corpus {
	return m.corpus
}

// MaxSites returns the mutation ceiling the likelihood is computed with
func (m *Model) MaxSites() int {
	return m.corpus.MaxSites()
}

// Validate checks that theta has the model's length and only positive entries
func (m *Model) Validate(theta []float64) error {
	if len(theta) != len(m.names) {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(theta), len(m.names))
	}
	for j, x := range theta {
		if !(x > 0) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s = %g", ErrNonPositive, m.names[j], x)
		}
	}
	return nil
}

// Denominators returns D[0..maxS] for theta
func (m *Model) Denominators(theta []float64) ([]float64, error) {
	if err := m.Validate(theta); err != nil {
		return nil, err
	}
	return m.engine.Compute(theta), nil
}

// LogLikelihood returns the log-likelihood of the corpus under theta.
// It is deterministic and safe to call repeatedly.
func (m *Model) LogLikelihood(theta []float64) (float64, error) {
	denoms, err := m.Denominators(theta)
	if err != nil {
		return 0, err
	}
	if m.epistasis != nil {
		return m.exactLogLik(theta, denoms)
	}
	return Combine(m.corpus, theta, denoms)
}

// Combine evaluates sum_j a[j] log(theta[j]) - sum_{s>=2} N[s] log(D[s]) + C.
func Combine(c *corpus.Corpus, theta []float64, denoms []float64) (float64, error) {
	loglik := c.LogConst()
	for j, a := range c.Repeats() {
		if a != 0 {
			loglik += a * math.Log(theta[j])
		}
	}
	sub, err := denominatorTerm(c, denoms)
	if err != nil {
		return 0, err
	}
	return loglik - sub, nil
}

func denominatorTerm(c *corpus.Corpus, denoms []float64) (float64, error) {
	counts := c.Counts()
	if len(denoms) < len(counts) {
		return 0, fmt.Errorf("%w: depth %d, max sites %d", ErrDepth, len(denoms)-1, len(counts)-1)
	}
	sum := 0.0
	for s := 2; s < len(counts); s++ {
		if counts[s] == 0 {
			continue
		}
		if !(denoms[s] > 0) {
			return 0, fmt.Errorf("%w: D[%d] = %g", ErrDepth, s, denoms[s])
		}
		sum += float64(counts[s]) * math.Log(denoms[s])
	}
	return sum, nil
}

// exactLogLik sums, for every retained sample, the probability of all orders in which its
// genes could have been mutated; used when step factors break the sufficient statistics.
func (m *Model) exactLogLik(theta []float64, denoms []float64) (float64, error) {
	w := m.corpus.Weights()
	effects := m.corpus.Effects()
	npath := m.corpus.NumPathways()
	loglik := 0.0
	for _, g := range m.corpus.Genotypes() {
		genes := g.Indices()
		basic := 1.0
		for _, i := range genes {
			basic *= w[i]
		}
		r := &router{
			theta:     theta,
			genes:     genes,
			effects:   effects,
			factor:    m.epistasis.factor,
			used:      make([]bool, len(genes)),
			pathtypes: make([]*bitset.BitSet, len(genes)+1),
		}
		for i := range r.pathtypes {
			r.pathtypes[i] = bitset.New(npath)
		}
		loglik += math.Log(basic * r.sum(0))
	}
	sub, err := denominatorTerm(m.corpus, denoms)
	if err != nil {
		return 0, err
	}
	return loglik - sub, nil
}

// router enumerates the orderings of one sample's genes
type router struct {
	theta     []float64
	genes     []int
	effects   []*bitset.BitSet
	factor    StepFactor
	used      []bool
	pathtypes []*bitset.BitSet
}

func (r *router) sum(depth int) float64 {
	if depth == len(r.genes) {
		return 1.0
	}
	pathtype := r.pathtypes[depth]
	total := 0.0
	for k, g := range r.genes {
		if r.used[k] {
			continue
		}
		mutPath := r.effects[g]
		p := discountIfSubset(r.theta, pathtype, mutPath, mutPath.Indices())
		p *= r.factor(r.theta, pathtype, mutPath)
		next := r.pathtypes[depth+1]
		next.CopyFrom(pathtype)
		next.UnionWith(mutPath)
		r.used[k] = true
		total += p * r.sum(depth+1)
		r.used[k] = false
	}
	return total
}

// epistasis holds the parameter layout of the pathway interaction
type epistasis struct {
	first, second    int
	epiIdx, pleioIdx int
}

// factor applies theta[epiIdx] when a gene opens the second pathway of the pair after the
// first was hit (either order), and theta[pleioIdx] when one gene opens both.
func (e *epistasis) factor(theta []float64, pathtype, mutPath *bitset.BitSet) float64 {
	if pathtype.Test(e.first) {
		if pathtype.Test(e.second) {
			return 1.0
		}
		if mutPath.Test(e.second) {
			return theta[e.epiIdx]
		}
	}
	if pathtype.Test(e.second) && mutPath.Test(e.first) {
		return theta[e.epiIdx]
	}
	if mutPath.Test(e.first) && mutPath.Test(e.second) {
		return theta[e.pleioIdx]
	}
	return 1.0
}
