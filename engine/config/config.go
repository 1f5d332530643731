// Package config loads the YAML tuning file for the frame scheduler.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// BudgetConfig tunes the frame budget tracker.
type BudgetConfig struct {
	// BudgetMs is the target frame time in milliseconds.
	BudgetMs float64 `yaml:"budget_ms"`
	// SampleSize is the number of frame samples in the sliding window.
	SampleSize int `yaml:"sample_size"`
	// HysteresisMs is the gap between the breach and recovery thresholds.
	HysteresisMs float64 `yaml:"hysteresis_ms"`
}

// GraphConfig tunes the render pass graph.
type GraphConfig struct {
	QualityScale    float64 `yaml:"quality_scale"`
	MinQualityScale float64 `yaml:"min_quality_scale"`
	DeferredWorkers int     `yaml:"deferred_workers"`
}

// ProfilerConfig controls periodic performance reports.
type ProfilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// EngineConfig controls the host loops.
type EngineConfig struct {
	// TickRate is the fixed logic tick rate in Hz.
	TickRate float64 `yaml:"tick_rate"`
	// RenderFrameLimit caps the render loop in frames per second, 0 = uncapped.
	RenderFrameLimit float64 `yaml:"render_frame_limit"`
}

// Config is the root of the YAML document.
type Config struct {
	Budget   BudgetConfig   `yaml:"budget"`
	Graph    GraphConfig    `yaml:"graph"`
	Profiler ProfilerConfig `yaml:"profiler"`
	Engine   EngineConfig   `yaml:"engine"`
}

// Default returns the configuration used when no file is supplied: a 60 FPS budget over a
// one second window with no hysteresis band, full render scale, and a 60Hz logic tick.
//
// Returns:
//   - *Config: a fresh default configuration
func Default() *Config {
	return &Config{
		Budget: BudgetConfig{
			BudgetMs:     1000.0 / 60.0,
			SampleSize:   60,
			HysteresisMs: 0,
		},
		Graph: GraphConfig{
			QualityScale:    1,
			MinQualityScale: 0.1,
			DeferredWorkers: 4,
		},
		Profiler: ProfilerConfig{
			Enabled:  false,
			Interval: time.Second,
		},
		Engine: EngineConfig{
			TickRate:         60,
			RenderFrameLimit: 0,
		},
	}
}

// Load reads and parses the YAML file at path. Keys missing from the file keep their defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the parsed configuration
//   - error: an error if the file cannot be read, parsed or fails validation
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes on top of Default and validates the result.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the parsed configuration
//   - error: a decode or validation error
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section for values the scheduler cannot run with.
//
// Returns:
//   - error: a joined error listing every invalid field, or nil
func (c *Config) Validate() error {
	var errs []error
	if c.Budget.BudgetMs <= 0 {
		errs = append(errs, fmt.Errorf("budget.budget_ms must be > 0, got %v", c.Budget.BudgetMs))
	}
	if c.Budget.SampleSize < 1 {
		errs = append(errs, fmt.Errorf("budget.sample_size must be >= 1, got %d", c.Budget.SampleSize))
	}
	if c.Budget.HysteresisMs < 0 {
		errs = append(errs, fmt.Errorf("budget.hysteresis_ms must be >= 0, got %v", c.Budget.HysteresisMs))
	}
	if c.Graph.MinQualityScale <= 0 || c.Graph.MinQualityScale > 1 {
		errs = append(errs, fmt.Errorf("graph.min_quality_scale must be in (0, 1], got %v", c.Graph.MinQualityScale))
	}
	if c.Graph.QualityScale < c.Graph.MinQualityScale || c.Graph.QualityScale > 1 {
		errs = append(errs, fmt.Errorf("graph.quality_scale must be in [min_quality_scale, 1], got %v", c.Graph.QualityScale))
	}
	if c.Graph.DeferredWorkers < 1 {
		errs = append(errs, fmt.Errorf("graph.deferred_workers must be >= 1, got %d", c.Graph.DeferredWorkers))
	}
	if c.Profiler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("profiler.interval must be > 0, got %v", c.Profiler.Interval))
	}
	if c.Engine.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_rate must be > 0, got %v", c.Engine.TickRate))
	}
	if c.Engine.RenderFrameLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.render_frame_limit must be >= 0, got %v", c.Engine.RenderFrameLimit))
	}
	return errors.Join(errs...)
}
