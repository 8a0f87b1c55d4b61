package search

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/likeligrid/likeligrid/internal/checkpoint"
	"github.com/likeligrid/likeligrid/internal/metrics"
	"github.com/likeligrid/likeligrid/pkg/config"
	"github.com/likeligrid/likeligrid/pkg/logger"
)

const defaultFlushEvery = 100

// StageFile returns the result file name of the stage with the given step
func StageFile(dir string, step float64, compress bool) string {
	name := fmt.Sprintf("grid-%.2f.tsv", step)
	if compress {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

// Grid evaluates the objective over a sequence of shrinking grids.
// Each stage is centered on the best point of the previous one.
type Grid struct {
	objective Objective
	cfg       config.GridConfig
	log       *slog.Logger
	metrics   *metrics.Collector
}

// NewGrid creates a grid driver; cfg is expected to be validated
func NewGrid(objective Objective, cfg config.GridConfig) *Grid {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	return &Grid{
		objective: objective,
		cfg:       cfg,
		log:       logger.Default,
	}
}

// WithLogger sets the logger
func (g *Grid) WithLogger(l *slog.Logger) *Grid {
	g.log = logger.OrDefault(l)
	return g
}

// WithMetrics sets the metrics collector
func (g *Grid) WithMetrics(c *metrics.Collector) *Grid {
	g.metrics = c
	return g
}

// Run resumes from the stage files found in the output directory and evaluates
// every remaining grid point. Cancelling ctx stops the run after the current
// point; the buffered rows are flushed and StatusInterrupted is returned.
func (g *Grid) Run(ctx context.Context) (*GridResult, error) {
	names := g.objective.Names()
	center := fill(len(names), g.cfg.Initial)
	result := &GridResult{Status: StatusConverged}

	for stage, step := range g.cfg.Steps {
		path := StageFile(g.cfg.OutDir, step, g.cfg.Compress)
		product, err := NewProduct(Vicinity(center, g.cfg.Breaks[stage], 2*step))
		if err != nil {
			return nil, fmt.Errorf("stage %d (step %g): %w", stage, step, err)
		}
		if product.Count() == 0 {
			return nil, fmt.Errorf("stage %d (step %g): %w", stage, step, ErrEmptyGrid)
		}
		meta := checkpoint.Meta{
			MaxCount: product.Count(),
			MaxSites: g.objective.MaxSites(),
			Step:     step,
		}

		g.log.Debug("stage grid", "stage", stage, "step", step, "points", product.Count(), "axes", product.Axes())

		prev, err := checkpoint.Read(path, names)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.HasHeader && prev.Meta != meta {
			return nil, fmt.Errorf("%s: %w: file has %+v, grid has %+v", path, ErrStageMismatch, prev.Meta, meta)
		}

		result.Stage = stage
		result.Step = step
		result.Path = path
		metrics.RecordStage(g.metrics, step)

		var results *checkpoint.ResultSet
		if prev != nil && prev.Complete() {
			g.log.Info("stage already complete", "stage", stage, "step", step, "path", path, "rows", len(prev.Rows))
			results = g.collect(prev.Rows)
		} else {
			var interrupted bool
			results, interrupted, err = g.runStage(ctx, product, meta, path, prev, result)
			if err != nil {
				return nil, err
			}
			if interrupted {
				result.Status = StatusInterrupted
				g.finish(result, results)
				metrics.RecordInterrupted(g.metrics)
				g.log.Warn("stopped by interrupt", "stage", stage, "step", step, "path", path)
				return result, nil
			}
		}

		g.finish(result, results)
		center = slices.Clone(result.Best.Params)
		g.log.Info("stage finished", "stage", stage, "step", step,
			"loglik", result.Best.LogLik, "best", checkpoint.Key(center))
	}
	return result, nil
}

// runStage evaluates the points of one stage that are not yet in its file
func (g *Grid) runStage(ctx context.Context, product *Product, meta checkpoint.Meta, path string,
	prev *checkpoint.File, result *GridResult) (*checkpoint.ResultSet, bool, error) {
	names := g.objective.Names()

	var done []checkpoint.Row
	if prev != nil && prev.HasHeader {
		done = prev.Rows
		if prev.Truncated {
			g.log.Warn("repairing truncated result file", "path", path, "rows", len(done))
			if err := checkpoint.Rewrite(path, meta, names, done); err != nil {
				return nil, false, err
			}
		}
	}
	results := g.collect(done)
	skip := len(done)

	var w *checkpoint.Writer
	var err error
	if skip == 0 {
		w, err = checkpoint.Create(path)
		if err == nil {
			w.WriteMeta(meta, names)
		}
	} else {
		w, err = checkpoint.Append(path)
	}
	if err != nil {
		return nil, false, err
	}
	g.log.Info("grid stage", "path", path, "step", meta.Step, "points", meta.MaxCount, "skip", skip)

	interrupted := false
	it := product.Iter(skip)
	for it.Next() {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		row, err := evaluate(g.objective, it.Point(), g.metrics, metrics.SearchGrid)
		if err != nil {
			w.Close()
			return nil, false, fmt.Errorf("grid point %d of %s: %w", it.Index(), path, err)
		}
		w.Add(row)
		results.Add(row)
		result.Evaluated++
		if (it.Index()+1)%g.cfg.FlushEvery == 0 {
			if err := g.flush(w); err != nil {
				w.Close()
				return nil, false, err
			}
		}
	}
	if err := g.flush(w); err != nil {
		w.Close()
		return nil, false, err
	}
	if err := w.Close(); err != nil {
		return nil, false, err
	}
	return results, interrupted, nil
}

func (g *Grid) flush(w *checkpoint.Writer) error {
	n, err := w.Flush()
	if err != nil {
		return err
	}
	if n > 0 {
		g.log.Debug("flushed", "path", w.Path(), "rows", n)
	}
	metrics.RecordFlush(g.metrics, metrics.SearchGrid, n)
	return nil
}

func (g *Grid) collect(rows []checkpoint.Row) *checkpoint.ResultSet {
	results := checkpoint.NewResultSet(g.cfg.MaxResults)
	for _, r := range rows {
		results.Add(r)
	}
	return results
}

func (g *Grid) finish(result *GridResult, results *checkpoint.ResultSet) {
	result.Results = results.Rows()
	if best, ok := results.Best(); ok {
		result.Best = best
		metrics.RecordBest(g.metrics, metrics.SearchGrid, best.LogLik)
	}
}
