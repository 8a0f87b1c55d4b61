// Package search drives the likelihood over a staged grid or a greedy neighbor ascent.
// Both drivers persist what they evaluate so an interrupted run can be resumed.
package search

import (
	"errors"

	"github.com/likeligrid/likeligrid/internal/checkpoint"
)

// Status is how a search run ended
type Status int

const (
	// StatusConverged means the grid schedule is exhausted or the ascent reached a local optimum
	StatusConverged Status = iota
	// StatusInterrupted means the context was cancelled; partial output is resumable
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusInterrupted:
		return "stopped by interrupt"
	default:
		return "unknown"
	}
}

var (
	// ErrStageMismatch reports a stage file written with a different grid or mutation ceiling
	ErrStageMismatch = errors.New("stage file does not match the current grid")
	// ErrEmptyGrid reports a stage whose product has no points
	ErrEmptyGrid = errors.New("grid has no points")
	// ErrGridTooLarge reports a product whose point count overflows int
	ErrGridTooLarge = errors.New("grid has too many points")
)

// GridResult summarizes a grid run
type GridResult struct {
	Status Status
	// Stage is the index of the last stage visited
	Stage int
	Step  float64
	Path  string
	Best  checkpoint.Row
	// Results holds the retained rows of the last stage, best first
	Results []checkpoint.Row
	// Evaluated counts likelihood evaluations made by this process
	Evaluated int
}

// AscentResult summarizes an ascent run
type AscentResult struct {
	Status    Status
	Reason    string
	Best      checkpoint.Row
	Current   checkpoint.Row
	Moves     int
	Evaluated int
	History   []checkpoint.Row
}
