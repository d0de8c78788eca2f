package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

type fixedRule struct {
	name       string
	passed     bool
	threadSafe bool
	panics     bool
}

func (r *fixedRule) Name() string        { return r.name }
func (r *fixedRule) Severity() Severity  { return issue.SeverityError }
func (r *fixedRule) BaseWeight() float64 { return 1.0 }
func (r *fixedRule) ThreadSafe() bool    { return r.threadSafe }
func (r *fixedRule) Check(ctx context.Context, code string) Result {
	if r.panics {
		panic("boom")
	}
	score := 0.0
	if r.passed {
		score = 1.0
	}
	return Result{RuleName: r.name, Passed: r.passed, Score: score, Severity: issue.SeverityError}
}

func TestRunnerSequentialRunsAllRules(t *testing.T) {
	runner := &Runner{Rules: []Rule{
		&fixedRule{name: "a", passed: true, threadSafe: true},
		&fixedRule{name: "b", passed: false, threadSafe: true},
	}}
	results := runner.Run(context.Background(), "code")
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].RuleName)
	assert.Equal(t, "b", results[1].RuleName)
}

func TestRunnerFailFastStopsAfterCriticalFailure(t *testing.T) {
	runner := &Runner{FailFast: true, Rules: []Rule{
		&criticalFailRule{name: "first"},
		&fixedRule{name: "second", passed: true, threadSafe: true},
	}}
	results := runner.Run(context.Background(), "code")
	assert.Len(t, results, 1)
}

type criticalFailRule struct{ name string }

func (r *criticalFailRule) Name() string        { return r.name }
func (r *criticalFailRule) Severity() Severity  { return issue.SeverityCritical }
func (r *criticalFailRule) BaseWeight() float64 { return 1.0 }
func (r *criticalFailRule) ThreadSafe() bool    { return true }
func (r *criticalFailRule) Check(ctx context.Context, code string) Result {
	return Result{RuleName: r.name, Passed: false, Score: 0.0, Severity: issue.SeverityCritical}
}

func TestRunnerParallelPreservesOrder(t *testing.T) {
	runner := &Runner{Parallel: true, Rules: []Rule{
		&fixedRule{name: "a", passed: true, threadSafe: true},
		&fixedRule{name: "b", passed: true, threadSafe: true},
		&fixedRule{name: "c", passed: true, threadSafe: true},
	}}
	results := runner.Run(context.Background(), "code")
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].RuleName)
	assert.Equal(t, "b", results[1].RuleName)
	assert.Equal(t, "c", results[2].RuleName)
}

func TestRunnerFallsBackToSequentialWhenNotAllThreadSafe(t *testing.T) {
	runner := &Runner{Parallel: true, Rules: []Rule{
		&fixedRule{name: "a", passed: true, threadSafe: true},
		&fixedRule{name: "b", passed: true, threadSafe: false},
	}}
	results := runner.Run(context.Background(), "code")
	require.Len(t, results, 2)
}

func TestRunnerIsolatesPanicsAsCriticalFailure(t *testing.T) {
	runner := &Runner{Rules: []Rule{&fixedRule{name: "boom", panics: true, threadSafe: true}}}
	results := runner.Run(context.Background(), "code")
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, issue.SeverityCritical, results[0].Severity)
	assert.Contains(t, results[0].Messages[0], "panicked")
}

func TestWeightForExactMatch(t *testing.T) {
	assert.Equal(t, 10.0, WeightFor(DefaultWeights, "ast_syntax"))
}

func TestWeightForPrefixMatch(t *testing.T) {
	assert.Equal(t, 4.0, WeightFor(DefaultWeights, "static_bandit_extra"))
}

func TestWeightForDefault(t *testing.T) {
	assert.Equal(t, 1.0, WeightFor(DefaultWeights, "totally_unknown_rule"))
}

func TestSkipProducesPassingResultWithNote(t *testing.T) {
	res := skip("some_tool", "not installed")
	assert.True(t, res.Passed)
	assert.Equal(t, 1.0, res.Score)
	require.NotNil(t, res.SkipNote)
	assert.Equal(t, "not installed", res.SkipNote.Reason)
}
