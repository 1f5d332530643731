package profiler

import (
	"math"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
)

// BudgetTrackerBuilderOption is a functional option applied to a tracker during construction via NewBudgetTracker.
type BudgetTrackerBuilderOption func(*budgetTracker)

// WithBudgetMs sets the frame budget in milliseconds. Non-positive or non-finite values are ignored.
//
// Parameters:
//   - ms: the target frame time
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies the budget option to a tracker
func WithBudgetMs(ms float64) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		if common.IsFinite(ms) && ms > 0 {
			t.budgetMs = ms
		}
	}
}

// WithSampleSize sets the sliding window capacity. Fractional values are floored and the
// result is clamped to at least 1.
//
// Parameters:
//   - n: the number of frame deltas averaged
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies the sample size option to a tracker
func WithSampleSize(n float64) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		size := 1
		if common.IsFinite(n) && n >= 1 {
			size = int(math.Floor(n))
		}
		t.sampleSize = size
	}
}

// WithHysteresisMs sets the recovery gap. Negative values are clamped to 0.
//
// Parameters:
//   - ms: how far below the budget the mean must fall before the breach clears
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies the hysteresis option to a tracker
func WithHysteresisMs(ms float64) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		if common.IsFinite(ms) {
			t.hysteresisMs = ms
		}
	}
}

// WithOnBudgetExceeded registers the callback fired once when the tracker enters the breached state.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies the callback option to a tracker
func WithOnBudgetExceeded(fn BudgetCallback) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		t.onExceeded = fn
	}
}

// WithOnBudgetRecovered registers the callback fired once when the tracker leaves the breached state.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies the callback option to a tracker
func WithOnBudgetRecovered(fn BudgetCallback) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		t.onRecovered = fn
	}
}

// WithBudgetConfig applies the budget section of a loaded configuration.
//
// Parameters:
//   - cfg: the budget configuration
//
// Returns:
//   - BudgetTrackerBuilderOption: a function that applies every configured value to a tracker
func WithBudgetConfig(cfg config.BudgetConfig) BudgetTrackerBuilderOption {
	return func(t *budgetTracker) {
		WithBudgetMs(cfg.BudgetMs)(t)
		WithSampleSize(float64(cfg.SampleSize))(t)
		WithHysteresisMs(cfg.HysteresisMs)(t)
	}
}
