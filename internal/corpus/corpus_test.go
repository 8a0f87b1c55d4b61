package corpus

import (
	"bytes"
	"compress/gzip"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workedExample = `{
  "pathway": ["A", "B"],
  "annotation": ["0011", "1100"],
  "sample": ["0011", "0101", "1001", "0110", "1010", "1100"]
}`

func TestLoadWorkedExample(t *testing.T) {
	c, err := Load(strings.NewReader(workedExample), 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, c.Names())
	assert.Equal(t, 2, c.NumPathways())
	assert.Equal(t, 4, c.NumGenes())
	assert.Equal(t, 6, c.NumSamples())
	assert.Len(t, c.Genotypes(), 6)
	assert.Equal(t, []float64{3, 3, 3, 3}, c.GeneCounts())
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, c.Weights(), 1e-15)
	assert.Equal(t, []int{0, 0, 6}, c.Counts())
	assert.Equal(t, []int{0, 0, 6}, c.RawCounts())
	assert.Equal(t, 2, c.MaxSites())
	assert.Equal(t, []float64{1, 1}, c.Repeats())

	want := 6*math.Log(2) + 12*math.Log(0.25)
	assert.InDelta(t, want, c.LogConst(), 1e-12)

	// gene 0 and 1 belong to B, genes 2 and 3 to A
	assert.Equal(t, []int{1}, c.Effects()[0].Indices())
	assert.Equal(t, []int{0}, c.Effects()[3].Indices())
}

func TestCeilingTruncation(t *testing.T) {
	in := Input{
		Pathway:    []string{"P"},
		Annotation: []string{"1100"},
		Sample:     []string{"1000", "1100", "1110"},
	}
	c, err := New(in, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 1, 1}, c.RawCounts())
	assert.Equal(t, []int{0, 1, 1}, c.Counts())
	assert.Len(t, c.Genotypes(), 2)
	assert.Equal(t, []float64{2, 1, 0, 0}, c.GeneCounts())
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1.0 / 3, 0, 0}, c.Weights(), 1e-12)
	// the excluded sample "1110" does not contribute a repeat
	assert.Equal(t, []float64{1}, c.Repeats())

	want := math.Log(2) + 2*math.Log(2.0/3) + math.Log(1.0/3)
	assert.InDelta(t, want, c.LogConst(), 1e-12)
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{"no pathways", Input{Sample: []string{"01"}}, ErrShape},
		{"annotation count", Input{Pathway: []string{"A", "B"}, Annotation: []string{"01"}, Sample: []string{"01"}}, ErrShape},
		{"annotation width", Input{Pathway: []string{"A"}, Annotation: []string{"011"}, Sample: []string{"01"}}, ErrShape},
		{"sample width", Input{Pathway: []string{"A"}, Annotation: []string{"01"}, Sample: []string{"01", "1"}}, ErrShape},
		{"no samples", Input{Pathway: []string{"A"}, Annotation: []string{"01"}}, ErrShape},
		{"duplicate names", Input{Pathway: []string{"A", "A"}, Annotation: []string{"01", "10"}, Sample: []string{"01"}}, ErrShape},
		{"bad char", Input{Pathway: []string{"A"}, Annotation: []string{"0x"}, Sample: []string{"01"}}, ErrBitString},
		{"no mutations", Input{Pathway: []string{"A"}, Annotation: []string{"01"}, Sample: []string{"00"}}, ErrNoMutations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in, 4)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(workedExample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "input.json.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	c, err := LoadFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, c.Names())
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(strings.NewReader(`{"pathway": [`), 2)
	assert.Error(t, err)
}
