package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}
	if cfg.MaxSites < 2 {
		return fmt.Errorf("max_sites must be at least 2, got %d", cfg.MaxSites)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}

	if err := validateGrid(&cfg.Grid); err != nil {
		return fmt.Errorf("grid validation failed: %w", err)
	}
	if err := validateAscent(&cfg.Ascent); err != nil {
		return fmt.Errorf("ascent validation failed: %w", err)
	}
	if cfg.Epistasis != nil {
		if err := validateEpistasis(cfg.Epistasis); err != nil {
			return fmt.Errorf("epistasis validation failed: %w", err)
		}
	}
	return nil
}

// validateGrid validates the staged grid schedule
func validateGrid(g *GridConfig) error {
	if len(g.Steps) == 0 {
		return fmt.Errorf("at least one step must be defined")
	}
	if len(g.Steps) != len(g.Breaks) {
		return fmt.Errorf("steps and breaks must have the same length, got %d and %d", len(g.Steps), len(g.Breaks))
	}
	for i, step := range g.Steps {
		if step <= 0 {
			return fmt.Errorf("step %d must be positive, got %g", i, step)
		}
		if i > 0 && step >= g.Steps[i-1] {
			return fmt.Errorf("steps must be strictly descending, got %g after %g", step, g.Steps[i-1])
		}
		if g.Breaks[i] < 2 {
			return fmt.Errorf("breaks %d must be at least 2, got %d", i, g.Breaks[i])
		}
	}
	if g.Initial <= 0 {
		return fmt.Errorf("initial must be positive, got %g", g.Initial)
	}
	if g.MaxResults < 0 {
		return fmt.Errorf("max_results cannot be negative, got %d", g.MaxResults)
	}
	if g.FlushEvery <= 0 {
		return fmt.Errorf("flush_every must be positive, got %d", g.FlushEvery)
	}
	if g.OutDir == "" {
		return fmt.Errorf("out_dir cannot be empty")
	}
	return nil
}

// validateAscent validates the neighbor ascent settings
func validateAscent(a *AscentConfig) error {
	if a.Initial <= 0 {
		return fmt.Errorf("initial must be positive, got %g", a.Initial)
	}
	if a.Step <= 0 {
		return fmt.Errorf("step must be positive, got %g", a.Step)
	}
	if a.Breaks < 2 {
		return fmt.Errorf("breaks must be at least 2, got %d", a.Breaks)
	}
	return nil
}

// validateEpistasis validates the pathway pair; indices are checked against the corpus later
func validateEpistasis(e *EpistasisConfig) error {
	if e.Pair[0] < 0 || e.Pair[1] < 0 {
		return fmt.Errorf("pair indices cannot be negative, got %v", e.Pair)
	}
	if e.Pair[0] == e.Pair[1] {
		return fmt.Errorf("pair must name two different pathways, got %v", e.Pair)
	}
	return nil
}
