package adaptive

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
)

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestChain_DowngradeOrder(t *testing.T) {
	c := NewChain(profiler.NewBudgetTracker(), []Entry{
		{Name: "bloom", Cost: 2, Pass: NewToggleFlag(true)},
		{Name: "ssao", Cost: 5, Pass: NewToggleFlag(true)},
		{Name: "fxaa", Cost: 1, Pass: NewToggleFlag(true)},
		{Name: "dof", Cost: 2, Pass: NewToggleFlag(true)},
	})

	want := []string{"ssao", "bloom", "dof", "fxaa"}
	if got := names(c.DowngradeOrder()); !slices.Equal(got, want) {
		t.Errorf("DowngradeOrder() = %v, want %v", got, want)
	}
}

func TestChain_DowngradesThenUpgrades(t *testing.T) {
	a := NewToggleFlag(true)
	b := NewToggleFlag(true)
	var downgraded, upgraded []string
	tracker := profiler.NewBudgetTracker(profiler.WithBudgetMs(16), profiler.WithSampleSize(1))
	c := NewChain(tracker, []Entry{
		{Name: "A", Cost: 5, Pass: a},
		{Name: "B", Cost: 1, Pass: b},
	},
		WithOnDowngrade(func(e Entry, s profiler.BudgetState) {
			if !s.BudgetBreached {
				t.Errorf("downgrade of %s with non-breached state", e.Name)
			}
			downgraded = append(downgraded, e.Name)
		}),
		WithOnUpgrade(func(e Entry, _ profiler.BudgetState) { upgraded = append(upgraded, e.Name) }),
	)

	// First evaluate only stores the timestamp.
	c.Evaluate(0)
	if len(downgraded)+len(upgraded) != 0 {
		t.Fatal("Evaluate() toggled before any sample existed")
	}

	c.Evaluate(40)
	if a.IsEnabled() || !b.IsEnabled() {
		t.Fatalf("after first breach: A=%v B=%v, want A disabled only", a.IsEnabled(), b.IsEnabled())
	}

	c.Evaluate(80)
	if b.IsEnabled() {
		t.Fatal("second breached evaluate should disable B")
	}

	// Nothing left to disable.
	c.Evaluate(120)
	if !slices.Equal(downgraded, []string{"A", "B"}) {
		t.Fatalf("downgraded = %v, want [A B]", downgraded)
	}

	c.Evaluate(130)
	if !b.IsEnabled() || a.IsEnabled() {
		t.Fatalf("first recovery: A=%v B=%v, want B re-enabled first", a.IsEnabled(), b.IsEnabled())
	}
	c.Evaluate(140)
	if !a.IsEnabled() {
		t.Fatal("second recovery should re-enable A")
	}
	c.Evaluate(150)
	if !slices.Equal(upgraded, []string{"B", "A"}) {
		t.Errorf("upgraded = %v, want [B A]", upgraded)
	}
}

func TestChain_SkipsAlreadyDisabled(t *testing.T) {
	expensive := NewToggleFlag(false)
	cheap := NewToggleFlag(true)
	tracker := profiler.NewBudgetTracker(profiler.WithBudgetMs(16), profiler.WithSampleSize(1))
	c := NewChain(tracker, []Entry{
		{Name: "expensive", Cost: 10, Pass: expensive},
		{Name: "cheap", Cost: 1, Pass: cheap},
	})

	c.Evaluate(0)
	c.Evaluate(50)
	if cheap.IsEnabled() {
		t.Error("breach should disable the first enabled entry in downgrade order")
	}
}

func TestChain_Tracker(t *testing.T) {
	tracker := profiler.NewBudgetTracker()
	c := NewChain(tracker, nil)
	if c.Tracker() != tracker {
		t.Error("Tracker() did not return the constructor tracker")
	}
	c.Evaluate(0)
	c.Evaluate(10)
	if tracker.Stats().SampleCount != 1 {
		t.Error("Evaluate() should feed the tracker")
	}
}

func TestNewChain_PanicsOnNilTracker(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewChain(nil, ...) did not panic")
		}
	}()
	NewChain(nil, nil)
}
