// Package config loads simulation configuration from YAML with sane
// defaults, so a bare `tradesim` run works without any file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full simulation configuration.
type Config struct {
	Grid      GridConfig  `yaml:"grid"`
	Traders   int         `yaml:"traders"`
	Resources int         `yaml:"resources"`
	Vision    int         `yaml:"vision"`
	Seed      int64       `yaml:"seed"`
	Ticks     uint64      `yaml:"ticks"` // 0 = run until interrupted

	// Parallel computes decisions concurrently against a consistent
	// pre-tick snapshot; state mutation stays serialized either way.
	Parallel        bool          `yaml:"parallel"`
	DecisionTimeout time.Duration `yaml:"decision_timeout"`

	Trade TradeConfig `yaml:"trade"`
	LLM   LLMConfig   `yaml:"llm"`
	DB    DBConfig    `yaml:"db"`
}

// GridConfig sets the lattice dimensions.
type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TradeConfig tunes the negotiation protocol.
type TradeConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	MaxRounds int     `yaml:"max_rounds"`
	Quantum   float64 `yaml:"quantum"`
}

// LLMConfig controls the external decision-maker. The API key is read from
// the ANTHROPIC_API_KEY environment variable, never from the file.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	MaxPerMin int    `yaml:"max_per_min"`
}

// DBConfig controls the run recorder. An empty path disables recording.
type DBConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Grid:            GridConfig{Width: 10, Height: 10},
		Traders:         5,
		Resources:       20,
		Vision:          2,
		Seed:            42,
		Ticks:           100,
		DecisionTimeout: 30 * time.Second,
		Trade: TradeConfig{
			Tolerance: 0.05,
			MaxRounds: 20,
			Quantum:   1,
		},
		LLM: LLMConfig{
			Model:     "claude-haiku-4-5-20251001",
			MaxPerMin: 20,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	if c.Grid.Width < 1 || c.Grid.Height < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Traders < 0 || c.Resources < 0 {
		return fmt.Errorf("traders and resources must be non-negative")
	}
	if c.Vision < 1 {
		return fmt.Errorf("vision must be at least 1, got %d", c.Vision)
	}
	if c.Trade.Tolerance < 0 {
		return fmt.Errorf("trade tolerance must be non-negative, got %g", c.Trade.Tolerance)
	}
	if c.Trade.MaxRounds < 1 {
		return fmt.Errorf("trade max_rounds must be at least 1, got %d", c.Trade.MaxRounds)
	}
	if c.Trade.Quantum <= 0 {
		return fmt.Errorf("trade quantum must be positive, got %g", c.Trade.Quantum)
	}
	return nil
}
