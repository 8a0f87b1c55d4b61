package search

import (
	"github.com/likeligrid/likeligrid/internal/checkpoint"
	"github.com/likeligrid/likeligrid/internal/metrics"
)

// Objective is the function both drivers maximize.
// LogLikelihood must be deterministic for a given point.
type Objective interface {
	// Names returns the parameter names in vector order
	Names() []string
	// MaxSites returns the mutation ceiling recorded in result files
	MaxSites() int
	// LogLikelihood evaluates one parameter vector
	LogLikelihood(theta []float64) (float64, error)
}

// evaluate runs the objective on point and times it
func evaluate(obj Objective, point []float64, collector *metrics.Collector, search string) (checkpoint.Row, error) {
	timer := metrics.StartTimer(collector, search)
	loglik, err := obj.LogLikelihood(point)
	timer.Stop()
	if err != nil {
		return checkpoint.Row{}, err
	}
	return checkpoint.Row{LogLik: loglik, Params: point}, nil
}

func fill(n int, x float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = x
	}
	return out
}
