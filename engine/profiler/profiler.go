package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler tracks tick rate, tick cost and memory statistics for an animation scene.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	tickCount      int
	busy           time.Duration
	characters     int
	lastTime       time.Time
	updateInterval time.Duration
	logger         *log.Logger
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and output goes to log.Default().
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		logger:         log.Default(),
	}
}

// SetInterval changes how often statistics are logged.
//
// Parameters:
//   - d: the reporting interval; zero reports on every tick
func (p *Profiler) SetInterval(d time.Duration) {
	p.updateInterval = d
}

// SetLogger redirects the statistics output.
//
// Parameters:
//   - l: the logger, or nil for log.Default()
func (p *Profiler) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	p.logger = l
}

// Tick should be called once per scene update with the time the update took.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: ticks per second, average tick cost, character count, heap usage,
// allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - busy: wall time spent in the scene update
//   - characters: the number of characters the update ticked
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(busy time.Duration, characters int) bool {
	p.tickCount++
	p.busy += busy
	p.characters = characters
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	tps := float64(p.tickCount) / max(elapsed.Seconds(), 1e-9)
	avgMs := float64(p.busy.Microseconds()) / 1000 / float64(p.tickCount)

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	// Allocation rate (MB/sec) since the last report
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / max(elapsed.Seconds(), 1e-9)

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.logger.Printf("[Profiler] Ticks/s: %.2f | Tick: %.3f ms | Characters: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		tps, avgMs, p.characters, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.tickCount = 0
	p.busy = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
