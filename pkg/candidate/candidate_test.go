package candidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
)

func TestHasCriticalErrorsCountsFailedErrorSeverity(t *testing.T) {
	c := &Candidate{RuleResults: []rules.Result{
		ruleResult("a", 0, false, issue.SeverityError),
		ruleResult("b", 0, false, issue.SeverityWarning),
		ruleResult("c", 0, false, issue.SeverityCritical),
	}}
	assert.Equal(t, 2, c.HasCriticalErrors())
}

func TestAllPassedRequiresNonEmptyResults(t *testing.T) {
	c := &Candidate{}
	assert.False(t, c.AllPassed())
}

func TestAllPassedTrueWhenEveryRulePasses(t *testing.T) {
	c := &Candidate{RuleResults: []rules.Result{
		ruleResult("a", 1, true, issue.SeverityInfo),
		ruleResult("b", 1, true, issue.SeverityInfo),
	}}
	assert.True(t, c.AllPassed())
}

func TestPoolStatsSummarizesCandidates(t *testing.T) {
	pool := &Pool{Candidates: []*Candidate{
		{ID: 1, Status: StatusScored, Score: 0.8, GenerationDuration: 2 * time.Second},
		{ID: 2, Status: StatusScored, Score: 0.6, RuleResults: []rules.Result{ruleResult("a", 1, true, issue.SeverityInfo)}, GenerationDuration: 4 * time.Second},
	}}
	pool.Winner = pool.Candidates[0]

	stats := pool.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Scored)
	assert.Equal(t, 1, stats.AllPassed)
	assert.Equal(t, 0.8, stats.BestScore)
	assert.True(t, stats.HasWinner)
	assert.Equal(t, 1, stats.WinnerID)
	assert.InDelta(t, 0.7, stats.MeanScore, 0.0001)
	assert.Equal(t, 0.6, stats.MinScore)
	assert.InDelta(t, 0.5, stats.PassRate, 0.0001)
	assert.Equal(t, 0.0, stats.ErrorRate)
	assert.Equal(t, 3*time.Second, stats.MeanGenerationTime)
}

func TestPoolStatsErrorRateCountsFailedGenerations(t *testing.T) {
	pool := &Pool{Candidates: []*Candidate{
		{ID: 1, Status: StatusPending, Err: assert.AnError},
		{ID: 2, Status: StatusScored, Score: 1},
	}}
	stats := pool.Stats()
	assert.Equal(t, 0.5, stats.ErrorRate)
}
