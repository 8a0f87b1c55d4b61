package config

// Config represents the run configuration of an estimation
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or text
	// MaxSites is the mutation ceiling; samples with more mutated genes are dropped
	MaxSites int `yaml:"max_sites"`
	// Concurrency is reserved for parallel grid evaluation and has no effect yet
	Concurrency int              `yaml:"concurrency"`
	Grid        GridConfig       `yaml:"grid"`
	Ascent      AscentConfig     `yaml:"ascent"`
	Epistasis   *EpistasisConfig `yaml:"epistasis,omitempty"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

// GridConfig represents the staged grid search
type GridConfig struct {
	Steps      []float64 `yaml:"steps"`
	Breaks     []int     `yaml:"breaks"`
	Initial    float64   `yaml:"initial"`
	MaxResults int       `yaml:"max_results"` // 0 keeps every row in memory
	FlushEvery int       `yaml:"flush_every"`
	OutDir     string    `yaml:"out_dir"`
	Compress   bool      `yaml:"compress"`
}

// AscentConfig represents the greedy neighbor ascent
type AscentConfig struct {
	Initial   float64 `yaml:"initial"`
	Step      float64 `yaml:"step"`
	Breaks    int     `yaml:"breaks"`
	Seed      int64   `yaml:"seed"`
	StartFrom string  `yaml:"start_from,omitempty"` // result file whose best row seeds the search
	Output    string  `yaml:"output,omitempty"`
}

// EpistasisConfig adds an interaction parameter between two pathways
type EpistasisConfig struct {
	Pair       [2]int `yaml:"pair"`
	Pleiotropy bool   `yaml:"pleiotropy"`
}

// MetricsConfig controls the metrics textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		MaxSites:    65535,
		Concurrency: 1,
		Grid: GridConfig{
			Steps:      []float64{0.4, 0.2, 0.1, 0.05, 0.02, 0.01},
			Breaks:     []int{5, 5, 5, 5, 6, 5},
			Initial:    1.2,
			FlushEvery: 100,
			OutDir:     ".",
			Compress:   true,
		},
		Ascent: AscentConfig{
			Initial: 0.9,
			Step:    0.01,
			Breaks:  3,
		},
	}
}
