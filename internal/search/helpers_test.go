package search

import (
	"context"
	"strings"
	"testing"

	"github.com/likeligrid/likeligrid/internal/checkpoint"
	"github.com/likeligrid/likeligrid/internal/corpus"
	"github.com/likeligrid/likeligrid/internal/likelihood"
	"github.com/stretchr/testify/require"
)

// quadratic peaks at target and records every point it is asked for
type quadratic struct {
	names  []string
	target []float64
	calls  int
	seen   map[string]int
	// after limit calls, cancel is invoked
	limit  int
	cancel context.CancelFunc
}

func newQuadratic(target ...float64) *quadratic {
	names := []string{"A", "B", "C", "D"}[:len(target)]
	return &quadratic{names: names, target: target, seen: make(map[string]int)}
}

func (q *quadratic) Names() []string { return q.names }

func (q *quadratic) MaxSites() int { return 4 }

func (q *quadratic) LogLikelihood(theta []float64) (float64, error) {
	q.calls++
	q.seen[checkpoint.Key(theta)]++
	if q.cancel != nil && q.calls == q.limit {
		q.cancel()
	}
	var ll float64
	for i, x := range theta {
		d := x - q.target[i]
		ll -= d * d
	}
	return ll, nil
}

func workedModel(t *testing.T) *likelihood.Model {
	t.Helper()
	c, err := corpus.Load(strings.NewReader(`{
  "pathway": ["A", "B"],
  "annotation": ["0011", "1100"],
  "sample": ["0011", "0101", "1001", "0110", "1010", "1100"]
}`), 2)
	require.NoError(t, err)
	m, err := likelihood.NewModel(c)
	require.NoError(t, err)
	return m
}
