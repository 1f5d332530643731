package profiler

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
)

const (
	defaultBudgetMs   = 1000.0 / 60.0
	defaultSampleSize = 60
)

// BudgetState is a snapshot of the tracker's sliding window.
type BudgetState struct {
	// AverageFrameTime is the mean frame delta in milliseconds over the window.
	AverageFrameTime float64
	// AverageFPS is 1000 / AverageFrameTime, or 0 while the mean is 0.
	AverageFPS float64
	// SampleCount is the number of deltas currently in the window.
	SampleCount int
	// BudgetBreached is the hysteresis state, it only changes on threshold crossings.
	BudgetBreached bool
}

// BudgetCallback receives the state that caused a breach transition.
type BudgetCallback func(state BudgetState)

// BudgetTracker measures frame deltas against a millisecond budget.
// It keeps a bounded window of recent deltas and flips a breach flag using two thresholds:
// the window mean must rise above the budget to enter the breached state and fall to
// budget - hysteresis or below to leave it.
type BudgetTracker interface {
	// Record feeds a frame timestamp in milliseconds. The first valid call only stores the
	// timestamp. Non-finite timestamps are ignored.
	//
	// Parameters:
	//   - timestampMs: a monotonic timestamp in milliseconds
	Record(timestampMs float64)

	// Stats returns the current snapshot.
	//
	// Returns:
	//   - BudgetState: the mean, FPS, sample count and breach flag
	Stats() BudgetState

	// Reset empties the window and clears the breach flag and last timestamp.
	Reset()

	// BudgetMs returns the configured budget in milliseconds.
	BudgetMs() float64

	// HysteresisMs returns the configured recovery gap in milliseconds.
	HysteresisMs() float64
}

type budgetTracker struct {
	budgetMs     float64
	hysteresisMs float64
	sampleSize   int

	samples []float64
	head    int
	count   int
	sum     float64

	lastTimestamp float64
	hasLast       bool
	state         BudgetState

	onExceeded  BudgetCallback
	onRecovered BudgetCallback
}

var _ BudgetTracker = &budgetTracker{}

// NewBudgetTracker creates a BudgetTracker with a 60 FPS budget, a 60 sample window and no
// hysteresis unless overridden by options.
//
// Parameters:
//   - options: variadic BudgetTrackerBuilderOption functions
//
// Returns:
//   - BudgetTracker: the constructed tracker
func NewBudgetTracker(options ...BudgetTrackerBuilderOption) BudgetTracker {
	t := &budgetTracker{
		budgetMs:   defaultBudgetMs,
		sampleSize: defaultSampleSize,
	}

	for _, opt := range options {
		opt(t)
	}

	t.sampleSize = max(1, t.sampleSize)
	t.samples = make([]float64, t.sampleSize)
	t.hysteresisMs = max(0, t.hysteresisMs)
	return t
}

func (t *budgetTracker) Record(timestampMs float64) {
	if !common.IsFinite(timestampMs) {
		return
	}
	if !t.hasLast {
		t.lastTimestamp = timestampMs
		t.hasLast = true
		return
	}

	delta := max(0, timestampMs-t.lastTimestamp)
	t.lastTimestamp = timestampMs
	t.push(delta)

	mean := t.sum / float64(t.count)
	t.state.AverageFrameTime = mean
	t.state.SampleCount = t.count
	if mean > 0 {
		t.state.AverageFPS = 1000 / mean
	} else {
		t.state.AverageFPS = 0
	}

	switch {
	case !t.state.BudgetBreached && mean > t.budgetMs:
		t.state.BudgetBreached = true
		common.Logger().Debug("frame budget exceeded", "mean_ms", mean, "budget_ms", t.budgetMs)
		if t.onExceeded != nil {
			t.onExceeded(t.state)
		}
	case t.state.BudgetBreached && mean <= max(0, t.budgetMs-t.hysteresisMs):
		t.state.BudgetBreached = false
		common.Logger().Debug("frame budget recovered", "mean_ms", mean, "budget_ms", t.budgetMs)
		if t.onRecovered != nil {
			t.onRecovered(t.state)
		}
	}
}

// push appends a delta to the ring, evicting the oldest once full. The running sum is
// recomputed on eviction to keep float drift out of long sessions.
func (t *budgetTracker) push(delta float64) {
	capacity := len(t.samples)
	if t.count < capacity {
		t.samples[(t.head+t.count)%capacity] = delta
		t.count++
		t.sum += delta
		return
	}
	t.samples[t.head] = delta
	t.head = (t.head + 1) % capacity
	sum := 0.0
	for _, s := range t.samples {
		sum += s
	}
	t.sum = sum
}

func (t *budgetTracker) Stats() BudgetState {
	return t.state
}

func (t *budgetTracker) Reset() {
	clear(t.samples)
	t.head = 0
	t.count = 0
	t.sum = 0
	t.hasLast = false
	t.lastTimestamp = 0
	t.state = BudgetState{}
}

func (t *budgetTracker) BudgetMs() float64 {
	return t.budgetMs
}

func (t *budgetTracker) HysteresisMs() float64 {
	return t.hysteresisMs
}
