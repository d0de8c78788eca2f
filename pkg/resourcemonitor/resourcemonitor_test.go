package resourcemonitor

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStartStopProducesSnapshots(t *testing.T) {
	m := NewMonitor(DefaultLimits(), 10*time.Millisecond)
	require.NoError(t, m.Start(int32(os.Getpid())))
	time.Sleep(50 * time.Millisecond)
	report := m.Stop()

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.Snapshots)
	assert.GreaterOrEqual(t, report.WallTime, 40*time.Millisecond)
}

func TestMonitorPeakMemoryIsMonotoneNonDecreasing(t *testing.T) {
	m := NewMonitor(DefaultLimits(), 5*time.Millisecond)
	require.NoError(t, m.Start(int32(os.Getpid())))
	time.Sleep(40 * time.Millisecond)
	report := m.Stop()

	last := 0.0
	for _, s := range report.Snapshots {
		assert.GreaterOrEqual(t, s.MemoryPeak, last)
		last = s.MemoryPeak
	}
}

func TestMonitorStopsOnWallTimeLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxWallTime = 20 * time.Millisecond
	m := NewMonitor(limits, 5*time.Millisecond)
	require.NoError(t, m.Start(int32(os.Getpid())))
	time.Sleep(80 * time.Millisecond)
	report := m.Stop()

	assert.False(t, report.Success)
	assert.Contains(t, report.LimitExceeded, "wall_time")
}

func TestReportSummaryMentionsStatus(t *testing.T) {
	r := &Report{Success: true, WallTime: time.Second, MemoryPeak: 12.5}
	assert.Contains(t, r.Summary(), "ok")
}
