package render_graph

import (
	"errors"
	"testing"
)

type releasable struct {
	id       int
	released int
}

func (r *releasable) Release() { r.released++ }

type countingFactory struct {
	calls int
	sizes []Size
}

func (f *countingFactory) build(size Size) (any, error) {
	f.calls++
	f.sizes = append(f.sizes, size)
	return &releasable{id: f.calls}, nil
}

func TestHistory_CacheIdentityAndInvalidation(t *testing.T) {
	g := newTestGraph(t)
	f := &countingFactory{}
	h := g.HistoryHandle("taa", f.build)

	first, err := h.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, _ := h.Get()
	if first != second || f.calls != 1 {
		t.Fatalf("two Gets at the same size: same=%v calls=%d, want same resource and 1 call", first == second, f.calls)
	}

	g.SetQualityScale(0.5)
	third, _ := h.Get()
	if f.calls != 2 || third == first {
		t.Fatalf("after SetQualityScale: calls=%d same=%v, want a rebuilt resource", f.calls, third == first)
	}
	if first.(*releasable).released != 1 {
		t.Error("stale resource was not released before rebuild")
	}
	if f.sizes[1].Width != 400 || f.sizes[1].Scale != 0.5 {
		t.Errorf("rebuild size = %+v, want 400 wide at scale 0.5", f.sizes[1])
	}
}

func TestHistory_InvalidateRebuildsLazily(t *testing.T) {
	g := newTestGraph(t)
	f := &countingFactory{}
	h := g.HistoryHandle("k", f.build)
	_, _ = h.Get()

	g.InvalidateHistory()
	if f.calls != 1 {
		t.Fatal("InvalidateHistory() rebuilt eagerly")
	}
	_, _ = h.Get()
	_, _ = h.Get()
	if f.calls != 2 {
		t.Errorf("factory calls = %d, want 2", f.calls)
	}
}

func TestHistory_FactoryReplacement(t *testing.T) {
	g := newTestGraph(t)
	first := &countingFactory{}
	second := &countingFactory{}

	h := g.HistoryHandle("k", first.build)
	_, _ = h.Get()

	same := g.HistoryHandle("k", second.build)
	if same != h {
		t.Fatal("HistoryHandle() for a live key returned a new handle")
	}
	_, _ = h.Get()
	if second.calls != 0 {
		t.Error("replacing the factory should not rebuild a valid resource")
	}

	g.InvalidateHistory()
	_, _ = h.Get()
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls first=%d second=%d, want 1 and 1", first.calls, second.calls)
	}

	third := &countingFactory{}
	h.UpdateFactory(third.build)
	g.SetQualityScale(0.5)
	_, _ = h.Get()
	if third.calls != 1 {
		t.Errorf("UpdateFactory: third calls = %d, want 1", third.calls)
	}
}

func TestHistory_DisposeIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	f := &countingFactory{}
	h := g.HistoryHandle("k", f.build)
	res, _ := h.Get()

	h.Dispose()
	h.Dispose()
	g.DisposeHistory("k")
	g.DisposeHistory("never-registered")

	if res.(*releasable).released != 1 {
		t.Errorf("released = %d, want exactly 1", res.(*releasable).released)
	}
	if _, err := h.Get(); !errors.Is(err, ErrHistoryDisposed) {
		t.Errorf("Get() after Dispose error = %v, want ErrHistoryDisposed", err)
	}

	// The key can be registered again with a fresh handle.
	fresh := g.HistoryHandle("k", f.build)
	if fresh == h {
		t.Fatal("HistoryHandle() after Dispose reused the disposed handle")
	}
	if _, err := fresh.Get(); err != nil {
		t.Errorf("fresh Get() error = %v", err)
	}
}

func TestHistory_FactoryError(t *testing.T) {
	g := newTestGraph(t)
	boom := errors.New("out of memory")
	calls := 0
	h := g.HistoryHandle("k", func(Size) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	})

	if _, err := h.Get(); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want %v", err, boom)
	}
	res, err := h.Get()
	if err != nil || res != "ok" {
		t.Errorf("retry Get() = %v, %v; want ok", res, err)
	}
}
