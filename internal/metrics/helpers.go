package metrics

import "time"

// Metric names without the namespace prefix
const (
	MetricEvaluations       = "evaluations_total"
	MetricEvaluationSeconds = "evaluation_seconds"
	MetricFlushedRows       = "flushed_rows_total"
	MetricBestLogLik        = "best_loglik"
	MetricGridStep          = "grid_step"
	MetricRunSeconds        = "run_seconds"
	MetricInterrupted       = "interrupted"
)

// LabelSearch distinguishes grid and ascent series
const LabelSearch = "search"

// Search label values
const (
	SearchGrid   = "grid"
	SearchAscent = "ascent"
	SearchLogLik = "loglik"
)

// Timer measures one evaluation for ObserveEvaluation.
// A nil collector makes every call a no-op.
type Timer struct {
	collector *Collector
	search    string
	start     time.Time
}

// StartTimer begins timing an evaluation of the given search
func StartTimer(c *Collector, search string) Timer {
	return Timer{collector: c, search: search, start: time.Now()}
}

// Stop records the elapsed time
func (t Timer) Stop() {
	if t.collector != nil {
		t.collector.ObserveEvaluation(t.search, time.Since(t.start))
	}
}

// RecordFlush counts flushed rows when c is non-nil
func RecordFlush(c *Collector, search string, n int) {
	if c != nil {
		c.AddFlushed(search, n)
	}
}

// RecordBest updates the best log-likelihood when c is non-nil
func RecordBest(c *Collector, search string, loglik float64) {
	if c != nil {
		c.SetBest(search, loglik)
	}
}

// RecordStage updates the grid step when c is non-nil
func RecordStage(c *Collector, step float64) {
	if c != nil {
		c.SetStage(step)
	}
}

// RecordInterrupted flags an interrupted run when c is non-nil
func RecordInterrupted(c *Collector) {
	if c != nil {
		c.MarkInterrupted()
	}
}
