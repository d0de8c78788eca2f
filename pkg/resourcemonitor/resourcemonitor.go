// Package resourcemonitor samples a process's memory and CPU usage on a
// fixed interval while a guarded block runs, and enforces hard wall-time
// and memory caps against it.
package resourcemonitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Snapshot is one sample of a monitored process's resource usage.
type Snapshot struct {
	Timestamp     time.Time
	MemoryCurrent float64 // MiB
	MemoryPeak    float64 // MiB
	CPUUser       time.Duration
	CPUSystem     time.Duration
	WallTime      time.Duration
}

// Report is the Resource Usage Report produced when monitoring stops.
type Report struct {
	Success         bool
	WallTime        time.Duration
	CPUTime         time.Duration
	MemoryPeak      float64 // MiB
	MemoryAverage   float64 // MiB
	Snapshots       []Snapshot
	LimitExceeded   string
	ErrorMessage    string
	ReturnValue     interface{}
}

// Summary renders a short human-readable line, mirroring the teacher's
// preference for a one-line status string on report-shaped types.
func (r *Report) Summary() string {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	return fmt.Sprintf("%s wall=%s cpu=%s peak_mem=%.1fMiB", status, r.WallTime, r.CPUTime, r.MemoryPeak)
}

// Limits is the hard/soft resource cap policy applied during monitoring.
type Limits struct {
	MaxMemoryMB      float64
	MaxWallTime      time.Duration
	MaxCPUTime       time.Duration
	MaxOutputBytes   int
	WarnMemoryMB     float64
	WarnWallTime     time.Duration
}

// DefaultLimits mirrors the defaults of the Python resource guard this
// package replaces: 256MiB / 30s / 30s CPU / 1MB captured output.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryMB:    256,
		MaxWallTime:    30 * time.Second,
		MaxCPUTime:     30 * time.Second,
		MaxOutputBytes: 1_000_000,
		WarnMemoryMB:   200,
		WarnWallTime:   20 * time.Second,
	}
}

// DefaultSampleInterval is how often the monitor loop samples the target
// process absent an explicit interval.
const DefaultSampleInterval = 100 * time.Millisecond

// Monitor samples a target process on its own goroutine and writes
// snapshots to a slice the caller reads only after Stop returns.
type Monitor struct {
	limits   Limits
	interval time.Duration

	mu            sync.Mutex
	snapshots     []Snapshot
	limitExceeded string

	proc      *process.Process
	startTime time.Time
	startCPU  *process.TimesStat

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor builds a Monitor with the given limits and sample interval.
// An interval of zero uses DefaultSampleInterval.
func NewMonitor(limits Limits, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{limits: limits, interval: interval}
}

// Start begins sampling pid on a background goroutine.
func (m *Monitor) Start(pid int32) error {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("resourcemonitor: could not attach to pid %d: %w", pid, err)
	}
	m.proc = proc
	m.startTime = time.Now()
	if times, err := proc.Times(); err == nil {
		m.startCPU = times
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop()
	return nil
}

// Stop signals the monitor loop to exit, waits for it, and returns the
// final report. Safe to call exactly once per Start.
func (m *Monitor) Stop() *Report {
	if m.stopCh != nil {
		close(m.stopCh)
		<-m.doneCh
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wall := time.Since(m.startTime)
	var cpu time.Duration
	if m.proc != nil {
		if times, err := m.proc.Times(); err == nil && m.startCPU != nil {
			cpu = time.Duration((times.User-m.startCPU.User)+(times.System-m.startCPU.System)) * time.Second
		}
	}

	var peak, avgSum float64
	for _, s := range m.snapshots {
		if s.MemoryPeak > peak {
			peak = s.MemoryPeak
		}
		avgSum += s.MemoryCurrent
	}
	avg := peak
	if len(m.snapshots) > 0 {
		avg = avgSum / float64(len(m.snapshots))
	}

	return &Report{
		Success:       m.limitExceeded == "",
		WallTime:      wall,
		CPUTime:       cpu,
		MemoryPeak:    peak,
		MemoryAverage: avg,
		Snapshots:     append([]Snapshot(nil), m.snapshots...),
		LimitExceeded: m.limitExceeded,
	}
}

func (m *Monitor) loop() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var runningPeak float64
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			snap := m.takeSnapshot(&runningPeak)
			m.mu.Lock()
			m.snapshots = append(m.snapshots, snap)
			exceeded := m.checkLimits(snap)
			m.mu.Unlock()
			if exceeded {
				return
			}
		}
	}
}

// takeSnapshot samples current memory/CPU. runningPeak is threaded through
// by the caller so MemoryPeak is monotone non-decreasing across the whole
// monitoring session, regardless of any single sample's fluctuation.
func (m *Monitor) takeSnapshot(runningPeak *float64) Snapshot {
	wall := time.Since(m.startTime)
	var memCurrent float64
	if m.proc != nil {
		if mem, err := m.proc.MemoryInfo(); err == nil && mem != nil {
			memCurrent = float64(mem.RSS) / (1024 * 1024)
		}
	}
	if memCurrent > *runningPeak {
		*runningPeak = memCurrent
	}

	var cpuUser, cpuSystem time.Duration
	if m.proc != nil {
		if times, err := m.proc.Times(); err == nil && m.startCPU != nil {
			cpuUser = time.Duration(times.User-m.startCPU.User) * time.Second
			cpuSystem = time.Duration(times.System-m.startCPU.System) * time.Second
		}
	}

	return Snapshot{
		Timestamp:     time.Now(),
		MemoryCurrent: memCurrent,
		MemoryPeak:    *runningPeak,
		CPUUser:       cpuUser,
		CPUSystem:     cpuSystem,
		WallTime:      wall,
	}
}

// checkLimits must be called with m.mu held. It sets limitExceeded and
// reports whether the loop should stop.
func (m *Monitor) checkLimits(snap Snapshot) bool {
	if snap.MemoryPeak > m.limits.MaxMemoryMB {
		m.limitExceeded = fmt.Sprintf("memory:%.1fMiB", snap.MemoryPeak)
		return true
	}
	if snap.WallTime > m.limits.MaxWallTime {
		m.limitExceeded = fmt.Sprintf("wall_time:%s", snap.WallTime)
		return true
	}
	return false
}
