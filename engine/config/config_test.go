package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "partial document keeps defaults",
			yaml: "budget:\n  budget_ms: 33.3\n",
			check: func(t *testing.T, c *Config) {
				if c.Budget.BudgetMs != 33.3 {
					t.Errorf("BudgetMs = %v, want 33.3", c.Budget.BudgetMs)
				}
				if c.Budget.SampleSize != 60 {
					t.Errorf("SampleSize = %d, want default 60", c.Budget.SampleSize)
				}
				if c.Profiler.Interval != time.Second {
					t.Errorf("Interval = %v, want default 1s", c.Profiler.Interval)
				}
			},
		},
		{
			name: "duration and nested sections",
			yaml: "profiler:\n  enabled: true\n  interval: 250ms\ngraph:\n  quality_scale: 0.5\n  min_quality_scale: 0.25\n",
			check: func(t *testing.T, c *Config) {
				if !c.Profiler.Enabled || c.Profiler.Interval != 250*time.Millisecond {
					t.Errorf("Profiler = %+v, want enabled with 250ms", c.Profiler)
				}
				if c.Graph.QualityScale != 0.5 || c.Graph.MinQualityScale != 0.25 {
					t.Errorf("Graph = %+v", c.Graph)
				}
			},
		},
		{
			name:    "invalid sample size",
			yaml:    "budget:\n  sample_size: 0\n",
			wantErr: "sample_size",
		},
		{
			name:    "quality scale below minimum",
			yaml:    "graph:\n  quality_scale: 0.05\n  min_quality_scale: 0.1\n",
			wantErr: "quality_scale",
		},
		{
			name:    "malformed yaml",
			yaml:    "budget: [",
			wantErr: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oxy.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  tick_rate: 120\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Engine.TickRate != 120 {
		t.Errorf("TickRate = %v, want 120", c.Engine.TickRate)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
