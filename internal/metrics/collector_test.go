package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatalf("expected non-nil collector")
	}
	if c.Registry() == nil {
		t.Fatalf("expected a registry")
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.Start()

	c.ObserveEvaluation(SearchGrid, time.Millisecond)
	c.ObserveEvaluation(SearchGrid, 2*time.Millisecond)
	c.ObserveEvaluation(SearchAscent, time.Millisecond)
	c.AddFlushed(SearchGrid, 100)
	c.AddFlushed(SearchGrid, 0)

	if got := testutil.ToFloat64(c.evaluations.WithLabelValues(SearchGrid)); got != 2 {
		t.Fatalf("expected 2 grid evaluations, got %v", got)
	}
	if got := testutil.ToFloat64(c.evaluations.WithLabelValues(SearchAscent)); got != 1 {
		t.Fatalf("expected 1 ascent evaluation, got %v", got)
	}
	if got := testutil.ToFloat64(c.flushedRows.WithLabelValues(SearchGrid)); got != 100 {
		t.Fatalf("expected 100 flushed rows, got %v", got)
	}
	if n := testutil.CollectAndCount(c.duration); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
}

func TestCollectorGauges(t *testing.T) {
	c := NewCollector()
	c.SetBest(SearchGrid, -12.5)
	c.SetBest(SearchGrid, -10.25)
	c.SetStage(0.05)
	c.MarkInterrupted()

	if got := testutil.ToFloat64(c.bestLogLik.WithLabelValues(SearchGrid)); got != -10.25 {
		t.Fatalf("expected best -10.25, got %v", got)
	}
	if got := testutil.ToFloat64(c.stage); got != 0.05 {
		t.Fatalf("expected stage 0.05, got %v", got)
	}
	if got := testutil.ToFloat64(c.interrupted); got != 1 {
		t.Fatalf("expected interrupted flag, got %v", got)
	}
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector()
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()

	d := c.Duration()
	if d < 5*time.Millisecond {
		t.Fatalf("expected duration >= 5ms, got %v", d)
	}
	if d != c.Duration() {
		t.Fatalf("expected duration to be fixed after Stop")
	}
	if got := testutil.ToFloat64(c.elapsed); got <= 0 {
		t.Fatalf("expected positive run_seconds, got %v", got)
	}
}

func TestNilCollectorHelpers(t *testing.T) {
	timer := StartTimer(nil, SearchGrid)
	timer.Stop()
	RecordFlush(nil, SearchGrid, 10)
	RecordBest(nil, SearchGrid, -1)
	RecordStage(nil, 0.4)
	RecordInterrupted(nil)
}

func TestHelpers(t *testing.T) {
	c := NewCollector()
	timer := StartTimer(c, SearchLogLik)
	timer.Stop()
	RecordFlush(c, SearchAscent, 3)
	RecordBest(c, SearchAscent, -2)
	RecordStage(c, 0.4)

	if got := testutil.ToFloat64(c.evaluations.WithLabelValues(SearchLogLik)); got != 1 {
		t.Fatalf("expected 1 evaluation, got %v", got)
	}
	if got := testutil.ToFloat64(c.flushedRows.WithLabelValues(SearchAscent)); got != 3 {
		t.Fatalf("expected 3 flushed rows, got %v", got)
	}
	if got := testutil.ToFloat64(c.stage); got != 0.4 {
		t.Fatalf("expected stage 0.4, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveEvaluation(SearchGrid, time.Millisecond)
	c.SetBest(SearchGrid, -3.5)

	path := filepath.Join(t.TempDir(), "likeligrid.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`likeligrid_evaluations_total{search="grid"} 1`,
		`likeligrid_best_loglik{search="grid"} -3.5`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, text)
		}
	}
}

func TestWriteTextfileBadDir(t *testing.T) {
	c := NewCollector()
	err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
