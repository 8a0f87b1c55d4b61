// Package metrics records search progress in a private prometheus registry
// and writes it out in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "likeligrid"

// Collector tracks evaluations, flushes and the best log-likelihood of a run
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	endTime   time.Time

	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	flushedRows *prometheus.CounterVec
	bestLogLik  *prometheus.GaugeVec
	stage       prometheus.Gauge
	elapsed     prometheus.Gauge
	interrupted prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricEvaluations,
			Help:      "Number of log-likelihood evaluations.",
		}, []string{LabelSearch}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricEvaluationSeconds,
			Help:      "Wall time of one log-likelihood evaluation.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		}, []string{LabelSearch}),
		flushedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricFlushedRows,
			Help:      "Number of result rows made durable.",
		}, []string{LabelSearch}),
		bestLogLik: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricBestLogLik,
			Help:      "Highest log-likelihood seen so far.",
		}, []string{LabelSearch}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricGridStep,
			Help:      "Step of the grid stage being searched.",
		}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricRunSeconds,
			Help:      "Wall time of the run.",
		}),
		interrupted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricInterrupted,
			Help:      "1 when the run stopped on an interrupt.",
		}),
	}
	c.registry.MustRegister(c.evaluations, c.duration, c.flushedRows, c.bestLogLik,
		c.stage, c.elapsed, c.interrupted)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Start marks the start of metric collection
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// Stop marks the end of metric collection
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
	c.elapsed.Set(c.endTime.Sub(c.startTime).Seconds())
}

// Duration returns the collection time so far, or up to Stop
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.endTime.IsZero() {
		return time.Since(c.startTime)
	}
	return c.endTime.Sub(c.startTime)
}

// ObserveEvaluation counts one evaluation of the given search and its wall time
func (c *Collector) ObserveEvaluation(search string, d time.Duration) {
	c.evaluations.WithLabelValues(search).Inc()
	c.duration.WithLabelValues(search).Observe(d.Seconds())
}

// AddFlushed counts rows written to a result file
func (c *Collector) AddFlushed(search string, n int) {
	if n > 0 {
		c.flushedRows.WithLabelValues(search).Add(float64(n))
	}
}

// SetBest records the best log-likelihood of the given search
func (c *Collector) SetBest(search string, loglik float64) {
	c.bestLogLik.WithLabelValues(search).Set(loglik)
}

// SetStage records the step of the current grid stage
func (c *Collector) SetStage(step float64) {
	c.stage.Set(step)
}

// MarkInterrupted records that the run ended early
func (c *Collector) MarkInterrupted() {
	c.interrupted.Set(1)
}

// WriteTextfile writes every metric to path atomically
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
