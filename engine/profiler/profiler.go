package profiler

import (
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is one reporting interval's worth of measurements.
type Stats struct {
	TicksPerSecond     float64
	InstancesPerSecond float64

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	// RSSMB and CPUPercent come from the OS; both are 0 if the process could not be inspected.
	RSSMB      float64
	CPUPercent float64
}

// Profiler tracks tick rate, instance throughput, memory and process statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	tickCount      int
	instanceCount  uint64
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	proc  *process.Process
	last  Stats
	quiet bool
	now   func() time.Time
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
	}
	p.lastTime = p.now()
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	} else {
		log.Printf("[Profiler] process stats unavailable: %v", err)
	}
	return p
}

// SetInterval changes the reporting interval. Values <= 0 are ignored.
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// SetQuiet stops Tick from logging. Stats are still collected and available from Last.
func (p *Profiler) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Last returns the stats of the most recent completed interval.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per engine tick with the number of instances advanced.
// Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - instances: the number of instances advanced this tick
//
// Returns:
//   - bool: true if stats were collected this tick, false otherwise
func (p *Profiler) Tick(instances int) bool {
	p.tickCount++
	p.instanceCount += uint64(max(instances, 0))
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	seconds := elapsed.Seconds()
	s := Stats{
		TicksPerSecond:     float64(p.tickCount) / seconds,
		InstancesPerSecond: float64(p.instanceCount) / seconds,
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	s.GCCount = p.memStats.NumGC
	if s.GCCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	if p.proc != nil {
		if mem, err := p.proc.MemoryInfo(); err == nil {
			s.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
		if cpu, err := p.proc.CPUPercent(); err == nil {
			s.CPUPercent = cpu
		}
	}

	if !p.quiet {
		log.Printf("[Profiler] Ticks: %.2f/s | Instances: %.0f/s | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | RSS: %.2f MB | CPU: %.1f%%",
			s.TicksPerSecond, s.InstancesPerSecond, s.HeapMB, s.AllocRateMB, s.GCCount, s.LastPauseUs, s.MaxPauseUs, s.RSSMB, s.CPUPercent)
	}

	p.last = s
	p.tickCount = 0
	p.instanceCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
