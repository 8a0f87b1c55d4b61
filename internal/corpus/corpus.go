// Package corpus holds the mutation data of one run and the parameter-independent
// statistics the likelihood needs.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/likeligrid/likeligrid/internal/bitset"
	"github.com/likeligrid/likeligrid/internal/zio"
	"github.com/likeligrid/likeligrid/pkg/utils"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrShape reports inconsistent sizes across pathway, annotation and sample
	ErrShape = errors.New("inconsistent input shape")
	// ErrBitString reports a membership string with characters other than 0 and 1
	ErrBitString = errors.New("invalid bit string")
	// ErrNoMutations reports that no retained sample carries a mutation
	ErrNoMutations = errors.New("no mutations under the ceiling")
)

// Input is the decoded model input
type Input struct {
	Pathway    []string `json:"pathway"`
	Annotation []string `json:"annotation"`
	Sample     []string `json:"sample"`
}

// Corpus is built once per run and is read-only afterwards
type Corpus struct {
	names       []string
	annotations []*bitset.BitSet // per pathway, over genes
	effects     []*bitset.BitSet // per gene, over pathways
	genotypes   []*bitset.BitSet // retained samples only
	numSamples  int

	geneCounts []float64
	weights    []float64
	rawCounts  []int
	counts     []int
	repeats    []float64
	lnConst    float64
}

// LoadFile reads a JSON input file, gzip-compressed when it ends in ".gz"
func LoadFile(path string, maxSites int) (*Corpus, error) {
	r, err := zio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer r.Close()
	c, err := Load(r, maxSites)
	if err != nil {
		return nil, fmt.Errorf("failed to load input %s: %w", path, err)
	}
	return c, nil
}

// Load decodes a JSON input record from r
func Load(r io.Reader, maxSites int) (*Corpus, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	return New(in, maxSites)
}

// New validates in and derives the sufficient statistics.
// Samples with more than maxSites mutated genes are counted in RawCounts only.
func New(in Input, maxSites int) (*Corpus, error) {
	if maxSites < 1 {
		return nil, fmt.Errorf("max sites must be positive, got %d", maxSites)
	}
	npath := len(in.Pathway)
	if npath == 0 {
		return nil, fmt.Errorf("%w: no pathways", ErrShape)
	}
	if len(in.Annotation) != npath {
		return nil, fmt.Errorf("%w: %d pathways but %d annotations", ErrShape, npath, len(in.Annotation))
	}
	if len(in.Sample) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrShape)
	}
	seen := make(map[string]bool, npath)
	for _, name := range in.Pathway {
		if name == "" {
			return nil, fmt.Errorf("%w: empty pathway name", ErrShape)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate pathway name %s", ErrShape, name)
		}
		seen[name] = true
	}

	ngene := len(in.Sample[0])
	if ngene == 0 {
		return nil, fmt.Errorf("%w: empty genotype", ErrShape)
	}
	annotations, err := parseAll(in.Annotation, ngene, "annotation")
	if err != nil {
		return nil, err
	}
	all, err := parseAll(in.Sample, ngene, "sample")
	if err != nil {
		return nil, err
	}

	c := &Corpus{
		names:       append([]string(nil), in.Pathway...),
		annotations: annotations,
		numSamples:  len(all),
		geneCounts:  make([]float64, ngene),
		repeats:     make([]float64, npath),
	}

	rawCounts := make([]int, ngene+1)
	for _, g := range all {
		s := g.Count()
		rawCounts[s]++
		if s > maxSites {
			continue
		}
		c.genotypes = append(c.genotypes, g)
		g.ForEach(func(i int) {
			c.geneCounts[i]++
		})
	}
	c.rawCounts = utils.RStripZeros(rawCounts)
	c.counts = c.rawCounts
	if maxSites+1 < len(c.counts) {
		c.counts = append([]int(nil), c.rawCounts[:maxSites+1]...)
	}

	if floats.Sum(c.geneCounts) == 0 {
		return nil, ErrNoMutations
	}
	c.weights = utils.Normalize(c.geneCounts)

	c.effects = make([]*bitset.BitSet, ngene)
	for g := 0; g < ngene; g++ {
		e := bitset.New(npath)
		for j, a := range annotations {
			if a.Test(g) {
				e.Set(j)
			}
		}
		c.effects[g] = e
	}

	for j, a := range annotations {
		for _, g := range c.genotypes {
			if n := g.IntersectionCount(a); n > 0 {
				c.repeats[j] += float64(n - 1)
			}
		}
	}

	for s := 2; s < len(c.counts); s++ {
		c.lnConst += float64(c.counts[s]) * utils.LogFactorial(s)
	}
	for g, n := range c.geneCounts {
		if n > 0 {
			c.lnConst += n * math.Log(c.weights[g])
		}
	}
	return c, nil
}

func parseAll(rows []string, ngene int, field string) ([]*bitset.BitSet, error) {
	out := make([]*bitset.BitSet, len(rows))
	for i, s := range rows {
		if len(s) != ngene {
			return nil, fmt.Errorf("%w: %s %d has %d genes, want %d", ErrShape, field, i, len(s), ngene)
		}
		b, err := bitset.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %d: %v", ErrBitString, field, i, err)
		}
		out[i] = b
	}
	return out, nil
}

// Names returns the pathway names in declaration order
func (c *Corpus) Names() []string { return c.names }

// NumPathways returns P
func (c *Corpus) NumPathways() int { return len(c.names) }

// NumGenes returns G
func (c *Corpus) NumGenes() int { return len(c.weights) }

// NumSamples returns the number of samples in the input, retained or not
func (c *Corpus) NumSamples() int { return c.numSamples }

// Annotations returns one gene set per pathway
func (c *Corpus) Annotations() []*bitset.BitSet { return c.annotations }

// Effects returns, for each gene, the set of pathways it belongs to
func (c *Corpus) Effects() []*bitset.BitSet { return c.effects }

// Genotypes returns the samples under the ceiling
func (c *Corpus) Genotypes() []*bitset.BitSet { return c.genotypes }

// GeneCounts returns the number of retained samples in which each gene is mutated
func (c *Corpus) GeneCounts() []float64 { return c.geneCounts }

// Weights returns the normalized gene weights
func (c *Corpus) Weights() []float64 { return c.weights }

// RawCounts returns N[s] over every sample, right-trimmed
func (c *Corpus) RawCounts() []int { return c.rawCounts }

// Counts returns N[s] truncated at the ceiling
func (c *Corpus) Counts() []int { return c.counts }

// MaxSites returns the largest mutation count with a likelihood term
func (c *Corpus) MaxSites() int { return len(c.counts) - 1 }

// Repeats returns a[j], the per-pathway count of repeat hits within samples
func (c *Corpus) Repeats() []float64 { return c.repeats }

// LogConst returns the parameter-independent part of the log-likelihood
func (c *Corpus) LogConst() float64 { return c.lnConst }

// LogValue implements slog.LogValuer
func (c *Corpus) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pathways", c.NumPathways()),
		slog.Int("genes", c.NumGenes()),
		slog.Int("samples", c.numSamples),
		slog.Int("retained", len(c.genotypes)),
		slog.Int("max_sites", c.MaxSites()),
	)
}

// Describe logs the derived statistics at debug level
func (c *Corpus) Describe(log *slog.Logger) {
	log.Debug("corpus loaded", "corpus", c)
	log.Debug("mutation counts", "raw", c.rawCounts, "used", c.counts)
	if len(c.counts) == len(c.rawCounts) {
		log.Debug("mutation ceiling does not truncate any sample")
	}
	log.Debug("gene weights", "counts", c.geneCounts, "weights", c.weights)
	log.Debug("pathway repeats", "a", c.repeats, "ln_const", c.lnConst)
}
