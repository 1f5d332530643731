package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/config"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often Tick produces a report. Non-positive values are ignored.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a profiler
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the wall clock used to measure intervals.
//
// Parameters:
//   - now: the clock function
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option to a profiler
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSystemStats toggles sampling of system-wide CPU and memory usage.
//
// Parameters:
//   - enabled: false to report Go runtime statistics only
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the system stats option to a profiler
func WithSystemStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.systemStats = enabled
	}
}

// WithReportCallback registers a function invoked with every report after it is logged.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the callback option to a profiler
func WithReportCallback(fn func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.onReport = fn
	}
}

// WithProfilerConfig applies the profiler section of a loaded configuration.
//
// Parameters:
//   - cfg: the profiler configuration
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a profiler
func WithProfilerConfig(cfg config.ProfilerConfig) ProfilerBuilderOption {
	return WithInterval(cfg.Interval)
}
