package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigYAMLDefaults(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte("max_sites: 4\n"))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxSites)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []float64{0.4, 0.2, 0.1, 0.05, 0.02, 0.01}, cfg.Grid.Steps)
	assert.Equal(t, []int{5, 5, 5, 5, 6, 5}, cfg.Grid.Breaks)
	assert.Equal(t, 1.2, cfg.Grid.Initial)
	assert.Equal(t, 100, cfg.Grid.FlushEvery)
	assert.Equal(t, 0.9, cfg.Ascent.Initial)
	assert.Equal(t, 3, cfg.Ascent.Breaks)
	assert.Nil(t, cfg.Epistasis)
}

func TestParseConfigYAMLFull(t *testing.T) {
	yamlText := `
log_level: debug
log_format: json
max_sites: 5
concurrency: 2
grid:
  steps: [0.2, 0.1]
  breaks: [5, 4]
  initial: 1.0
  max_results: 50
  flush_every: 10
  out_dir: /tmp/out
  compress: false
ascent:
  initial: 0.8
  step: 0.02
  breaks: 3
  seed: 7
  start_from: grid-0.10.tsv
epistasis:
  pair: [0, 2]
  pleiotropy: true
metrics:
  textfile: /tmp/likeligrid.prom
`
	cfg, err := ParseConfigYAML([]byte(yamlText))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, []float64{0.2, 0.1}, cfg.Grid.Steps)
	assert.Equal(t, []int{5, 4}, cfg.Grid.Breaks)
	assert.Equal(t, 50, cfg.Grid.MaxResults)
	assert.False(t, cfg.Grid.Compress)
	assert.Equal(t, int64(7), cfg.Ascent.Seed)
	assert.Equal(t, "grid-0.10.tsv", cfg.Ascent.StartFrom)
	require.NotNil(t, cfg.Epistasis)
	assert.Equal(t, [2]int{0, 2}, cfg.Epistasis.Pair)
	assert.True(t, cfg.Epistasis.Pleiotropy)
	assert.Equal(t, "/tmp/likeligrid.prom", cfg.Metrics.Textfile)
}

func TestParseConfigYAMLInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "max_sites: [", "failed to parse config yaml"},
		{"log level", "log_level: loud", "invalid log_level"},
		{"log format", "log_format: xml", "invalid log_format"},
		{"max sites zero", "max_sites: 0", "max_sites must be at least 2"},
		{"max sites one", "max_sites: 1", "max_sites must be at least 2"},
		{"concurrency", "concurrency: 0", "concurrency must be positive"},
		{"step length", "grid:\n  steps: [0.2]\n  breaks: [5, 5]", "same length"},
		{"ascending steps", "grid:\n  steps: [0.1, 0.2]\n  breaks: [5, 5]", "strictly descending"},
		{"negative step", "grid:\n  steps: [-0.1]\n  breaks: [5]", "must be positive"},
		{"few breaks", "grid:\n  steps: [0.1]\n  breaks: [1]", "at least 2"},
		{"grid initial", "grid:\n  initial: 0", "initial must be positive"},
		{"flush", "grid:\n  flush_every: 0", "flush_every must be positive"},
		{"ascent step", "ascent:\n  step: 0", "step must be positive"},
		{"epistasis same", "epistasis:\n  pair: [1, 1]", "two different pathways"},
		{"epistasis negative", "epistasis:\n  pair: [-1, 1]", "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAML([]byte(tt.yaml))
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Epistasis = &EpistasisConfig{Pair: [2]int{1, 3}}

	data, err := Marshal(cfg)
	require.NoError(t, err)

	parsed, err := ParseConfigYAML(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
