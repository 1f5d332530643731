package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is one interval's worth of performance statistics.
type Report struct {
	// Frames is the number of Tick calls in the interval.
	Frames int
	// Elapsed is the wall time the interval covered.
	Elapsed time.Duration
	// Budget is the tracker snapshot passed to the reporting Tick.
	Budget BudgetState

	HeapMB      float64
	SysMB       float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// SystemCPUPercent and SystemMemPercent are 0 when system sampling is disabled or failed.
	SystemCPUPercent float64
	SystemMemPercent float64
	SystemMemUsedMB  float64
}

// Profiler tracks frame budget and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	now          func() time.Time
	systemStats  bool
	onReport     func(Report)
	lastReport   Report
	reportedOnce bool
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and system CPU/memory sampling is enabled.
//
// Parameters:
//   - options: variadic ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
		systemStats:    true,
	}

	for _, opt := range options {
		opt(p)
	}

	p.lastTime = p.now()
	if p.systemStats {
		// Prime the CPU counters so the first report measures this interval only.
		_, _ = cpu.Percent(0, false)
	}
	return p
}

// Tick should be called once per frame with the current budget snapshot.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: smoothed frame time, FPS, breach flag, heap usage, allocation rate,
// GC count/pause times, process memory and system CPU/memory usage.
//
// Parameters:
//   - state: the frame budget tracker snapshot for this frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(state BudgetState) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		Frames:  p.frameCount,
		Elapsed: elapsed,
		Budget:  state,
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
	}

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	if p.systemStats {
		p.sampleSystem(&r)
	}

	common.Logger().Info("profiler",
		"frame_ms", r.Budget.AverageFrameTime,
		"fps", r.Budget.AverageFPS,
		"breached", r.Budget.BudgetBreached,
		"frames", r.Frames,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb_s", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
		"cpu_pct", r.SystemCPUPercent,
		"mem_pct", r.SystemMemPercent,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastReport = r
	p.reportedOnce = true
	if p.onReport != nil {
		p.onReport(r)
	}
	return true
}

func (p *Profiler) sampleSystem(r *Report) {
	if pct, err := cpu.Percent(0, false); err != nil {
		common.Logger().Warn("profiler: cpu sample failed", "error", err)
	} else if len(pct) > 0 {
		r.SystemCPUPercent = pct[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		common.Logger().Warn("profiler: memory sample failed", "error", err)
		return
	}
	r.SystemMemPercent = vm.UsedPercent
	r.SystemMemUsedMB = float64(vm.Used) / 1024 / 1024
}

// LastReport returns the most recent report.
//
// Returns:
//   - Report: the last logged statistics
//   - bool: false if no report has been produced yet
func (p *Profiler) LastReport() (Report, bool) {
	return p.lastReport, p.reportedOnce
}
