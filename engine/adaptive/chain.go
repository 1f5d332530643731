// Package adaptive toggles optional render passes in response to the frame budget.
package adaptive

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
)

// Pass is anything that can be switched on and off by the chain.
type Pass interface {
	IsEnabled() bool
	Enable()
	Disable()
}

// Entry pairs a pass with its relative cost. Higher cost passes are disabled first.
type Entry struct {
	Name string
	Cost float64
	Pass Pass
}

// ToggleCallback is invoked after the chain toggles an entry.
type ToggleCallback func(entry Entry, state profiler.BudgetState)

// Chain drives a BudgetTracker and disables or re-enables at most one pass per evaluation.
type Chain interface {
	// Evaluate records the timestamp on the tracker and then applies at most one toggle:
	// while breached the most expensive enabled pass is disabled, otherwise the cheapest
	// disabled pass is re-enabled.
	//
	// Parameters:
	//   - timestampMs: the frame timestamp in milliseconds
	Evaluate(timestampMs float64)

	// Tracker returns the tracker the chain feeds.
	Tracker() profiler.BudgetTracker

	// DowngradeOrder returns the entries in the order they are disabled.
	DowngradeOrder() []Entry
}

type chain struct {
	tracker   profiler.BudgetTracker
	downgrade []Entry

	onDowngrade ToggleCallback
	onUpgrade   ToggleCallback
}

var _ Chain = &chain{}

// NewChain creates a Chain over the given entries. Entries are ordered by cost descending;
// entries with equal cost keep the order they were given in.
//
// Parameters:
//   - tracker: the frame budget tracker to feed and read
//   - entries: the passes under control
//   - options: variadic ChainBuilderOption functions
//
// Returns:
//   - Chain: the constructed chain
func NewChain(tracker profiler.BudgetTracker, entries []Entry, options ...ChainBuilderOption) Chain {
	if tracker == nil {
		panic("adaptive: NewChain requires a non-nil BudgetTracker")
	}
	for _, e := range entries {
		if e.Pass == nil {
			panic("adaptive: NewChain entry " + e.Name + " has a nil Pass")
		}
	}

	c := &chain{
		tracker:   tracker,
		downgrade: slices.Clone(entries),
	}
	slices.SortStableFunc(c.downgrade, func(a, b Entry) int {
		switch {
		case a.Cost > b.Cost:
			return -1
		case a.Cost < b.Cost:
			return 1
		default:
			return 0
		}
	})

	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *chain) Evaluate(timestampMs float64) {
	c.tracker.Record(timestampMs)
	state := c.tracker.Stats()
	if state.SampleCount == 0 {
		return
	}

	if state.BudgetBreached {
		for _, e := range c.downgrade {
			if e.Pass.IsEnabled() {
				e.Pass.Disable()
				common.Logger().Info("adaptive: pass downgraded", "pass", e.Name, "cost", e.Cost, "frame_ms", state.AverageFrameTime)
				if c.onDowngrade != nil {
					c.onDowngrade(e, state)
				}
				return
			}
		}
		return
	}

	for i := len(c.downgrade) - 1; i >= 0; i-- {
		e := c.downgrade[i]
		if !e.Pass.IsEnabled() {
			e.Pass.Enable()
			common.Logger().Info("adaptive: pass upgraded", "pass", e.Name, "cost", e.Cost, "frame_ms", state.AverageFrameTime)
			if c.onUpgrade != nil {
				c.onUpgrade(e, state)
			}
			return
		}
	}
}

func (c *chain) Tracker() profiler.BudgetTracker {
	return c.tracker
}

func (c *chain) DowngradeOrder() []Entry {
	return slices.Clone(c.downgrade)
}

// ToggleFlag is a Pass backed by a plain boolean, for effects that are not graph passes.
type ToggleFlag struct {
	enabled bool
}

var _ Pass = &ToggleFlag{}

// NewToggleFlag creates a ToggleFlag with the given initial state.
func NewToggleFlag(enabled bool) *ToggleFlag {
	return &ToggleFlag{enabled: enabled}
}

func (f *ToggleFlag) IsEnabled() bool { return f.enabled }
func (f *ToggleFlag) Enable()         { f.enabled = true }
func (f *ToggleFlag) Disable()        { f.enabled = false }
