package compute

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu/gputest"
)

type trace struct {
	entries []string
}

func (l *trace) add(s string) { l.entries = append(l.entries, s) }

func loggedTask(l *trace, id string, run bool) *Task {
	return &Task{
		Name: id,
		EncodeFunc: func(_ gpu.Device, enc gpu.CommandEncoder, _ *FrameContext) error {
			l.add("encode:" + id)
			pass := enc.BeginComputePass(id)
			pass.End()
			return nil
		},
		WhenFunc:        func(*FrameContext) bool { return run },
		AfterSubmitFunc: func(*FrameContext) { l.add("after:" + id) },
	}
}

type chainFunc func(float64)

func (f chainFunc) Evaluate(ts float64) { f(ts) }

func TestRunner_NoOpSubmission(t *testing.T) {
	dev := gputest.NewDevice()
	l := &trace{}
	observed := false
	rendered := false
	r := NewRunner(dev,
		WithTasks(loggedTask(l, "a", false), loggedTask(l, "b", false)),
		WithDispatchObserver(func([]ComputeTask, *FrameContext) { observed = true }),
		WithRenderCallback(func(context.Context, *FrameContext) error { rendered = true; return nil }),
	)

	if err := r.Frame(context.Background(), 0); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if ops := dev.Ops(); len(ops) != 0 {
		t.Errorf("ops = %v, want no encoder and no submit", ops)
	}
	if observed {
		t.Error("observer notified for an empty batch")
	}
	if !rendered {
		t.Error("render callback should still run when no compute executed")
	}
}

func TestRunner_FrameOrdering(t *testing.T) {
	dev := gputest.NewDevice()
	l := &trace{}
	var observedIDs []string
	var evaluated []float64
	r := NewRunner(dev,
		WithTasks(loggedTask(l, "persistent-1", true), loggedTask(l, "skipped", false), loggedTask(l, "persistent-2", true)),
		WithDispatchObserver(func(executed []ComputeTask, fc *FrameContext) {
			l.add("observer")
			for _, t := range executed {
				observedIDs = append(observedIDs, t.ID())
			}
		}),
		WithRenderCallback(func(context.Context, *FrameContext) error { l.add("render"); return nil }),
		WithPostChain(chainFunc(func(ts float64) { l.add("post"); evaluated = append(evaluated, ts) })),
	)

	if err := r.Frame(context.Background(), 16, loggedTask(l, "transient", true)); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	want := []string{
		"encode:transient", "encode:persistent-1", "encode:persistent-2",
		"after:transient", "after:persistent-1", "after:persistent-2",
		"observer", "render", "post",
	}
	if !slices.Equal(l.entries, want) {
		t.Errorf("sequence = %v\nwant %v", l.entries, want)
	}
	if !slices.Equal(observedIDs, []string{"transient", "persistent-1", "persistent-2"}) {
		t.Errorf("observed = %v", observedIDs)
	}
	if dev.Count("CreateCommandEncoder") != 1 || dev.Count("Submit") != 1 {
		t.Errorf("ops = %v, want one encoder and one submit", dev.Ops())
	}
	if !slices.Equal(evaluated, []float64{16}) {
		t.Errorf("post chain evaluated with %v, want [16]", evaluated)
	}

	// Transient tasks do not persist.
	l.entries = nil
	_ = r.Frame(context.Background(), 32)
	if slices.Contains(l.entries, "encode:transient") {
		t.Error("transient task ran on a later frame")
	}
}

func TestRunner_FrameContext(t *testing.T) {
	dev := gputest.NewDevice()
	var contexts []FrameContext
	r := NewRunner(dev, WithTasks(&Task{
		Name: "probe",
		EncodeFunc: func(_ gpu.Device, _ gpu.CommandEncoder, fc *FrameContext) error {
			contexts = append(contexts, *fc)
			return nil
		},
	}))

	for _, ts := range []float64{100, 116, 110, 150} {
		if err := r.Frame(context.Background(), ts); err != nil {
			t.Fatal(err)
		}
	}

	want := []FrameContext{
		{Timestamp: 100, DeltaTime: 0, FrameIndex: 0},
		{Timestamp: 116, DeltaTime: 0.016, FrameIndex: 1},
		{Timestamp: 110, DeltaTime: 0, FrameIndex: 2},
		{Timestamp: 150, DeltaTime: 0.04, FrameIndex: 3},
	}
	if !slices.Equal(contexts, want) {
		t.Errorf("contexts = %+v\nwant %+v", contexts, want)
	}
	if r.FrameIndex() != 4 {
		t.Errorf("FrameIndex() = %d, want 4", r.FrameIndex())
	}
}

func TestRunner_Initialize(t *testing.T) {
	dev := gputest.NewDevice()
	var got *FrameContext
	rendered := false
	evaluated := false
	r := NewRunner(dev,
		WithRenderCallback(func(context.Context, *FrameContext) error { rendered = true; return nil }),
		WithPostChain(chainFunc(func(float64) { evaluated = true })),
	)

	setup := &Task{Name: "init", EncodeFunc: func(_ gpu.Device, _ gpu.CommandEncoder, fc *FrameContext) error {
		got = fc
		return nil
	}}
	if err := r.Initialize(context.Background(), []ComputeTask{setup}, 500); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if got == nil || *got != (FrameContext{Timestamp: 500}) {
		t.Errorf("Initialize context = %+v, want timestamp 500 at frame 0", got)
	}
	if rendered || evaluated {
		t.Error("Initialize must not render or evaluate the post chain")
	}
	if r.FrameIndex() != 0 {
		t.Errorf("FrameIndex() = %d, want 0 after Initialize", r.FrameIndex())
	}
	if dev.Count("Submit") != 1 {
		t.Errorf("Submit count = %d, want 1", dev.Count("Submit"))
	}
	if len(r.Tasks()) != 0 {
		t.Error("Initialize must not register tasks")
	}
}

func TestRunner_Registry(t *testing.T) {
	r := NewRunner(gputest.NewDevice())
	a := &Task{Name: "a"}
	b := &Task{Name: "b"}
	c := &Task{Name: "c"}
	r.Register(a)
	r.Register(b)
	r.Register(c)

	replacement := &Task{Name: "b"}
	r.Register(replacement)
	tasks := r.Tasks()
	if len(tasks) != 3 || tasks[1] != replacement {
		t.Fatalf("Tasks() = %v, want b replaced in place", tasks)
	}

	r.Unregister("a")
	r.Unregister("a")
	r.Unregister("never-registered")
	if ids := taskIDs(r.Tasks()); !slices.Equal(ids, []string{"b", "c"}) {
		t.Errorf("Tasks() = %v, want [b c]", ids)
	}

	r.Clear()
	if len(r.Tasks()) != 0 {
		t.Error("Clear() left tasks registered")
	}
}

func taskIDs(tasks []ComputeTask) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID()
	}
	return ids
}

func TestRunner_TaskErrorAbortsFrame(t *testing.T) {
	dev := gputest.NewDevice()
	l := &trace{}
	boom := errors.New("encode failed")
	rendered := false
	r := NewRunner(dev,
		WithTasks(
			loggedTask(l, "ok", true),
			&Task{Name: "broken", EncodeFunc: func(gpu.Device, gpu.CommandEncoder, *FrameContext) error { return boom }},
			loggedTask(l, "never", true),
		),
		WithRenderCallback(func(context.Context, *FrameContext) error { rendered = true; return nil }),
	)

	err := r.Frame(context.Background(), 0)
	if !errors.Is(err, boom) {
		t.Fatalf("Frame() error = %v, want %v", err, boom)
	}
	if dev.Count("Submit") != 0 || dev.Count("ReleaseEncoder") != 1 {
		t.Errorf("ops = %v, want encoder released and nothing submitted", dev.Ops())
	}
	if rendered || slices.Contains(l.entries, "encode:never") || slices.Contains(l.entries, "after:ok") {
		t.Errorf("frame continued after failure: %v rendered=%v", l.entries, rendered)
	}
}

func TestRunner_RenderErrorSkipsPostChain(t *testing.T) {
	boom := errors.New("render failed")
	evaluated := false
	r := NewRunner(gputest.NewDevice())
	r.SetRenderCallback(func(context.Context, *FrameContext) error { return boom })
	r.SetPostChain(chainFunc(func(float64) { evaluated = true }))

	if err := r.Frame(context.Background(), 0); !errors.Is(err, boom) {
		t.Fatalf("Frame() error = %v, want %v", err, boom)
	}
	if evaluated {
		t.Error("post chain evaluated after a render failure")
	}
}

func TestDispatchTask(t *testing.T) {
	dev := gputest.NewDevice()
	prepared := 0
	enabled := true
	task := &DispatchTask{
		Name:      "particles",
		Steps:     []DispatchStep{step("simulate"), step("compact")},
		Condition: func(*FrameContext) bool { return enabled },
		Prepare: func(d gpu.Device, fc *FrameContext) error {
			prepared++
			return nil
		},
	}
	r := NewRunner(dev, WithTasks(task))

	if err := r.Frame(context.Background(), 0); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if prepared != 1 || dev.Count("DispatchWorkgroups") != 2 || dev.Count("Submit") != 1 {
		t.Errorf("prepared=%d ops=%v, want two dispatches in one submit", prepared, dev.Ops())
	}

	dev.Reset()
	enabled = false
	_ = r.Frame(context.Background(), 16)
	if len(dev.Ops()) != 0 {
		t.Errorf("disabled dispatch task recorded ops %v", dev.Ops())
	}
}

func TestRunner_EncoderLifecycle(t *testing.T) {
	boom := errors.New("encode failed")
	tests := []struct {
		name       string
		task       ComputeTask
		failFinish bool
		wantErr    bool
	}{
		{name: "submitted frame", task: loggedTask(&trace{}, "ok", true)},
		{name: "task error", task: &Task{Name: "broken", EncodeFunc: func(gpu.Device, gpu.CommandEncoder, *FrameContext) error { return boom }}, wantErr: true},
		{name: "finish error", task: loggedTask(&trace{}, "ok", true), failFinish: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.NewDevice()
			dev.FailFinish = tt.failFinish
			r := NewRunner(dev, WithTasks(tt.task))

			for i := range 3 {
				err := r.Frame(context.Background(), float64(i)*16)
				if (err != nil) != tt.wantErr {
					t.Fatalf("Frame() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
			if n := dev.LiveEncoders(); n != 0 {
				t.Errorf("LiveEncoders() = %d after 3 frames, want 0", n)
			}
		})
	}
}
