package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStopsAfterPrevalidationCriticalFailure(t *testing.T) {
	p := New(DefaultConfig())
	report := p.Run(context.Background(), "")
	assert.Len(t, report.Levels, 1)
	assert.Equal(t, VerdictFailed, report.Verdict)
	assert.False(t, report.Levels[0].Passed)
}

func TestRunPassesCleanCodeThroughPrevalidation(t *testing.T) {
	p := New(DefaultConfig())
	report := p.Run(context.Background(), "def add(a, b):\n    return a + b\n")
	assert.GreaterOrEqual(t, len(report.Levels), 2)
	assert.Equal(t, LevelPrevalidation, report.Levels[0].Level)
	assert.True(t, report.Levels[0].Passed)
}

func TestContentHashIsStableAndSixteenChars(t *testing.T) {
	h1 := ContentHash("print('hi')")
	h2 := ContentHash("print('hi')")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestContentHashDiffersForDifferentInput(t *testing.T) {
	assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
}

func TestPropertyTestLevelSkippedWithoutEntryPoint(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg)
	report := p.Run(context.Background(), "def add(a, b):\n    return a + b\n")
	var found bool
	for _, lr := range report.Levels {
		if lr.Level == LevelPropertyTests {
			found = true
			assert.True(t, lr.Skipped)
		}
	}
	assert.True(t, found)
}

func TestPropertyTestLevelSkippedWhenEntryPointMissingFromSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "does_not_exist"
	p := New(cfg)
	report := p.Run(context.Background(), "def add(a, b):\n    return a + b\n")
	for _, lr := range report.Levels {
		if lr.Level == LevelPropertyTests {
			assert.True(t, lr.Skipped)
			assert.Contains(t, lr.SkipNote, "does_not_exist")
		}
	}
}

func TestPropertyTestLevelRunsAgainstResolvedEntryPoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryPoint = "add"
	p := New(cfg)
	report := p.Run(context.Background(), "def add(a: int, b: int) -> int:\n    return a + b\n")
	var found bool
	for _, lr := range report.Levels {
		if lr.Level == LevelPropertyTests {
			found = true
			assert.False(t, lr.Skipped)
		}
	}
	assert.True(t, found)
}

func TestLevelStringNames(t *testing.T) {
	assert.Equal(t, "prevalidation", LevelPrevalidation.String())
	assert.Equal(t, "resource_report", LevelResourceReport.String())
}
