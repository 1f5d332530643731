package profiler

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/config"
)

func record(t BudgetTracker, timestamps ...float64) {
	for _, ts := range timestamps {
		t.Record(ts)
	}
}

func TestBudgetTracker_SlidingWindowMean(t *testing.T) {
	tr := NewBudgetTracker(WithSampleSize(5))
	record(tr, 0, 17, 34, 51, 68, 85)

	s := tr.Stats()
	if s.SampleCount != 5 {
		t.Errorf("SampleCount = %d, want 5", s.SampleCount)
	}
	if math.Abs(s.AverageFrameTime-17) > 1e-9 {
		t.Errorf("AverageFrameTime = %v, want 17", s.AverageFrameTime)
	}
	if want := 1000.0 / 17.0; math.Abs(s.AverageFPS-want) > 1e-9 {
		t.Errorf("AverageFPS = %v, want %v", s.AverageFPS, want)
	}
}

func TestBudgetTracker_WindowEvictsOldest(t *testing.T) {
	tr := NewBudgetTracker(WithSampleSize(2))
	record(tr, 0, 10, 30, 60)

	s := tr.Stats()
	if s.SampleCount != 2 {
		t.Errorf("SampleCount = %d, want 2", s.SampleCount)
	}
	if s.AverageFrameTime != 25 {
		t.Errorf("AverageFrameTime = %v, want 25", s.AverageFrameTime)
	}
}

func TestBudgetTracker_FirstRecordOnlyStoresTimestamp(t *testing.T) {
	tr := NewBudgetTracker()
	tr.Record(1000)

	if s := tr.Stats(); s != (BudgetState{}) {
		t.Errorf("Stats() = %+v, want zero state", s)
	}
}

func TestBudgetTracker_HysteresisRoundTrip(t *testing.T) {
	var exceeded, recovered int
	var lastExceeded, lastRecovered BudgetState
	tr := NewBudgetTracker(
		WithBudgetMs(16),
		WithSampleSize(2),
		WithHysteresisMs(2),
		WithOnBudgetExceeded(func(s BudgetState) { exceeded++; lastExceeded = s }),
		WithOnBudgetRecovered(func(s BudgetState) { recovered++; lastRecovered = s }),
	)

	record(tr, 0, 40, 80, 120)
	if exceeded != 1 || recovered != 0 {
		t.Fatalf("after slow frames: exceeded=%d recovered=%d, want 1, 0", exceeded, recovered)
	}
	if !lastExceeded.BudgetBreached {
		t.Error("exceeded callback should receive a breached state")
	}

	// [40, 16] mean 28: still above budget.
	tr.Record(136)
	// [16, 14] mean 15: under budget but above budget - hysteresis.
	tr.Record(150)
	if !tr.Stats().BudgetBreached || recovered != 0 {
		t.Fatalf("mean inside hysteresis band should hold breach; breached=%v recovered=%d", tr.Stats().BudgetBreached, recovered)
	}

	// [14, 12] mean 13: at or below 14 clears the breach.
	tr.Record(162)
	if exceeded != 1 || recovered != 1 {
		t.Fatalf("after recovery: exceeded=%d recovered=%d, want 1, 1", exceeded, recovered)
	}
	if lastRecovered.BudgetBreached {
		t.Error("recovered callback should receive a non-breached state")
	}
	if lastRecovered.AverageFrameTime != 13 {
		t.Errorf("recovered AverageFrameTime = %v, want 13", lastRecovered.AverageFrameTime)
	}

	// Staying fast fires nothing further.
	record(tr, 172, 182)
	if exceeded != 1 || recovered != 1 {
		t.Errorf("steady state fired callbacks: exceeded=%d recovered=%d", exceeded, recovered)
	}
}

func TestBudgetTracker_NoHysteresisRecoversAtBudget(t *testing.T) {
	var recovered int
	tr := NewBudgetTracker(
		WithBudgetMs(16),
		WithSampleSize(1),
		WithOnBudgetRecovered(func(BudgetState) { recovered++ }),
	)
	record(tr, 0, 20, 36)

	if tr.Stats().BudgetBreached || recovered != 1 {
		t.Errorf("mean == budget should recover with zero hysteresis; breached=%v recovered=%d", tr.Stats().BudgetBreached, recovered)
	}
}

func TestBudgetTracker_IgnoresNonFinite(t *testing.T) {
	tests := []struct {
		name string
		ts   float64
	}{
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewBudgetTracker(WithSampleSize(4))
			record(tr, 0, 10)
			before := tr.Stats()

			tr.Record(tt.ts)
			if got := tr.Stats(); got != before {
				t.Errorf("Stats() after %s = %+v, want %+v", tt.name, got, before)
			}

			// The stored timestamp is unchanged, so the next delta is measured from 10.
			tr.Record(20)
			if got := tr.Stats(); got.SampleCount != 2 || got.AverageFrameTime != 10 {
				t.Errorf("Stats() = %+v, want 2 samples averaging 10", got)
			}
		})
	}
}

func TestBudgetTracker_BackwardsTimestampClampsToZero(t *testing.T) {
	tr := NewBudgetTracker(WithSampleSize(2))
	record(tr, 100, 120, 90)

	s := tr.Stats()
	if s.AverageFrameTime != 10 {
		t.Errorf("AverageFrameTime = %v, want 10 from deltas [20, 0]", s.AverageFrameTime)
	}
}

func TestBudgetTracker_ZeroMeanReportsZeroFPS(t *testing.T) {
	tr := NewBudgetTracker()
	record(tr, 5, 5, 5)

	if s := tr.Stats(); s.AverageFPS != 0 || s.SampleCount != 2 {
		t.Errorf("Stats() = %+v, want 2 samples with 0 FPS", s)
	}
}

func TestBudgetTracker_SampleSizeClamp(t *testing.T) {
	tests := []struct {
		name string
		size float64
		want int
	}{
		{"fraction floors", 2.7, 2},
		{"zero clamps to one", 0, 1},
		{"negative clamps to one", -3, 1},
		{"NaN clamps to one", math.NaN(), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewBudgetTracker(WithSampleSize(tt.size))
			record(tr, 0, 1, 2, 3, 4, 5)
			if got := tr.Stats().SampleCount; got != tt.want {
				t.Errorf("SampleCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBudgetTracker_Defaults(t *testing.T) {
	tr := NewBudgetTracker(WithHysteresisMs(-5), WithBudgetMs(-1))

	if got, want := tr.BudgetMs(), 1000.0/60.0; got != want {
		t.Errorf("BudgetMs() = %v, want %v", got, want)
	}
	if got := tr.HysteresisMs(); got != 0 {
		t.Errorf("HysteresisMs() = %v, want 0", got)
	}
}

func TestBudgetTracker_Reset(t *testing.T) {
	tr := NewBudgetTracker(WithBudgetMs(10), WithSampleSize(2))
	record(tr, 0, 50, 100)
	if !tr.Stats().BudgetBreached {
		t.Fatal("expected breach before reset")
	}

	tr.Reset()
	if s := tr.Stats(); s != (BudgetState{}) {
		t.Errorf("Stats() after Reset = %+v, want zero", s)
	}

	tr.Record(1000)
	if tr.Stats().SampleCount != 0 {
		t.Error("first Record after Reset should only store the timestamp")
	}
}

func TestWithBudgetConfig(t *testing.T) {
	tr := NewBudgetTracker(WithBudgetConfig(config.BudgetConfig{
		BudgetMs:     33,
		SampleSize:   3,
		HysteresisMs: 4,
	}))

	if tr.BudgetMs() != 33 || tr.HysteresisMs() != 4 {
		t.Errorf("BudgetMs/HysteresisMs = %v/%v, want 33/4", tr.BudgetMs(), tr.HysteresisMs())
	}
	record(tr, 0, 1, 2, 3, 4)
	if got := tr.Stats().SampleCount; got != 3 {
		t.Errorf("SampleCount = %d, want 3", got)
	}
}
