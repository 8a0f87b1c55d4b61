package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/likeligrid/likeligrid/internal/checkpoint"
	"github.com/likeligrid/likeligrid/internal/metrics"
	"github.com/likeligrid/likeligrid/pkg/config"
	"github.com/likeligrid/likeligrid/pkg/logger"
	"github.com/likeligrid/likeligrid/pkg/utils"
)

// Ascent is a greedy local search over grid neighbors.
// From the current point it evaluates unvisited neighbors in random order and
// moves to the first one that strictly improves the log-likelihood.
type Ascent struct {
	objective Objective
	cfg       config.AscentConfig
	rng       *utils.RandSource
	history   *checkpoint.History
	log       *slog.Logger
	metrics   *metrics.Collector
}

// NewAscent creates an ascent driver; cfg is expected to be validated
func NewAscent(objective Objective, cfg config.AscentConfig) *Ascent {
	if cfg.Step <= 0 {
		cfg.Step = 0.01
	}
	if cfg.Breaks < 2 {
		cfg.Breaks = 3
	}
	return &Ascent{
		objective: objective,
		cfg:       cfg,
		rng:       utils.NewRandSource(cfg.Seed),
		history:   checkpoint.NewHistory(),
		log:       logger.Default,
	}
}

// WithLogger sets the logger
func (a *Ascent) WithLogger(l *slog.Logger) *Ascent {
	a.log = logger.OrDefault(l)
	return a
}

// WithMetrics sets the metrics collector
func (a *Ascent) WithMetrics(c *metrics.Collector) *Ascent {
	a.metrics = c
	return a
}

// History returns every point evaluated so far
func (a *Ascent) History() *checkpoint.History {
	return a.history
}

// Start returns the starting point: the best row of cfg.StartFrom when set,
// otherwise every coordinate at cfg.Initial
func (a *Ascent) Start() ([]float64, error) {
	names := a.objective.Names()
	if a.cfg.StartFrom == "" {
		return fill(len(names), utils.Round(a.cfg.Initial, utils.Precision)), nil
	}
	f, err := checkpoint.Read(a.cfg.StartFrom, names)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("start file %s: %w", a.cfg.StartFrom, os.ErrNotExist)
	}
	best, ok := f.Best()
	if !ok {
		return nil, fmt.Errorf("start file %s has no rows", a.cfg.StartFrom)
	}
	a.log.Info("starting from result file", "path", a.cfg.StartFrom,
		"loglik", best.LogLik, "point", checkpoint.Key(best.Params))
	return slices.Clone(best.Params), nil
}

// Run climbs from Start until no unvisited neighbor improves or ctx is cancelled.
// The history is written to cfg.Output when set, also after an interrupt;
// otherwise the caller can emit it with WriteTo.
func (a *Ascent) Run(ctx context.Context) (*AscentResult, error) {
	start, err := a.Start()
	if err != nil {
		return nil, err
	}
	result := &AscentResult{}
	current, err := a.visit(start, result)
	if err != nil {
		return nil, err
	}
	a.log.Info("ascent start", "loglik", current.LogLik, "point", checkpoint.Key(current.Params), "seed", a.rng.Seed())

	for {
		if ctx.Err() != nil {
			result.Status = StatusInterrupted
			result.Reason = "interrupted"
			metrics.RecordInterrupted(a.metrics)
			a.log.Warn("stopped by interrupt", "moves", result.Moves, "evaluated", result.Evaluated)
			break
		}
		next, moved, err := a.findBetter(current, result)
		if err != nil {
			return nil, err
		}
		if !moved {
			result.Status = StatusConverged
			result.Reason = "no improving neighbor"
			break
		}
		current = next
		result.Moves++
		metrics.RecordBest(a.metrics, metrics.SearchAscent, current.LogLik)
		a.log.Debug("ascent move", "loglik", current.LogLik, "point", checkpoint.Key(current.Params))
	}

	result.Current = current
	result.Best, _ = a.history.Best()
	result.History = a.history.Rows()
	metrics.RecordBest(a.metrics, metrics.SearchAscent, result.Best.LogLik)
	a.log.Info("ascent finished", "status", result.Status, "moves", result.Moves,
		"evaluated", result.Evaluated, "loglik", result.Best.LogLik, "best", checkpoint.Key(result.Best.Params))

	if a.cfg.Output != "" {
		if err := a.Write(a.cfg.Output); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Neighbors returns the grid points around center that are not in the history
func (a *Ascent) Neighbors(center []float64) ([][]float64, error) {
	product, err := NewProduct(Vicinity(center, a.cfg.Breaks, a.cfg.Step))
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, product.Count())
	it := product.Iter(0)
	for it.Next() {
		p := it.Point()
		if !a.history.Has(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// findBetter scans the shuffled neighbors of current and stops at the first improvement
func (a *Ascent) findBetter(current checkpoint.Row, result *AscentResult) (checkpoint.Row, bool, error) {
	candidates, err := a.Neighbors(current.Params)
	if err != nil {
		return checkpoint.Row{}, false, fmt.Errorf("neighbors of %s: %w", checkpoint.Key(current.Params), err)
	}
	a.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, p := range candidates {
		row, err := a.visit(p, result)
		if err != nil {
			return checkpoint.Row{}, false, err
		}
		if row.LogLik > current.LogLik {
			return row, true, nil
		}
	}
	return current, false, nil
}

func (a *Ascent) visit(p []float64, result *AscentResult) (checkpoint.Row, error) {
	row, err := evaluate(a.objective, p, a.metrics, metrics.SearchAscent)
	if err != nil {
		return checkpoint.Row{}, fmt.Errorf("ascent point %s: %w", checkpoint.Key(p), err)
	}
	a.history.Put(row)
	result.Evaluated++
	return row, nil
}

// WriteTo writes the history to w in the result file format with max_count 0
func (a *Ascent) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, checkpoint.FormatMeta(a.meta(), a.objective.Names()))
	total += int64(n)
	if err != nil {
		return total, err
	}
	rows := a.history.Rows()
	for _, r := range rows {
		n, err = io.WriteString(w, checkpoint.FormatRow(r))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	metrics.RecordFlush(a.metrics, metrics.SearchAscent, len(rows))
	return total, nil
}

func (a *Ascent) meta() checkpoint.Meta {
	return checkpoint.Meta{MaxSites: a.objective.MaxSites(), Step: a.cfg.Step}
}

// Write stores the history as a result file with max_count 0
func (a *Ascent) Write(path string) error {
	w, err := checkpoint.Create(path)
	if err != nil {
		return err
	}
	w.WriteMeta(a.meta(), a.objective.Names())
	for _, r := range a.history.Rows() {
		w.Add(r)
	}
	n := w.Pending()
	if err := w.Close(); err != nil {
		return err
	}
	metrics.RecordFlush(a.metrics, metrics.SearchAscent, n)
	a.log.Info("wrote ascent history", "path", path, "rows", n)
	return nil
}
