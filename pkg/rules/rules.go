// Package rules implements the Rule Engine: a registry of stateless checks
// against a code string, a runner that applies them with timing and
// isolation, and a content-type classifier that picks the right rule set
// for Python versus the DevOps file formats this validator also inspects.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

// Severity mirrors issue.Severity for a rule's own declared tag, kept
// distinct because a rule's severity describes its own weight class, not a
// specific finding.
type Severity = issue.Severity

// Result is the output of one rule against one code string.
type Result struct {
	RuleName string
	Passed   bool
	Score    float64 // in [0.0, 1.0]
	Severity Severity
	Messages []string
	Duration time.Duration
	SkipNote *issue.SkipNote
}

// Rule is a stateless, side-effect-free check.
type Rule interface {
	Name() string
	Severity() Severity
	BaseWeight() float64
	ThreadSafe() bool
	Check(ctx context.Context, code string) Result
}

// skip builds a passing Result carrying a skip note — the "rule that cannot
// evaluate returns a passing result with score 1.0" invariant.
func skip(name, reason string) Result {
	return Result{
		RuleName: name,
		Passed:   true,
		Score:    1.0,
		Severity: issue.SeverityInfo,
		SkipNote: &issue.SkipNote{Component: name, Reason: reason},
	}
}

func crashResult(name string, d time.Duration, r interface{}) Result {
	return Result{
		RuleName: name,
		Passed:   false,
		Score:    0.0,
		Severity: issue.SeverityCritical,
		Messages: []string{fmt.Sprintf("rule %q panicked: %v", name, r)},
		Duration: d,
	}
}

// Runner applies a list of rules to a code string.
type Runner struct {
	Rules    []Rule
	FailFast bool
	Parallel bool
}

// Run executes every rule, isolating panics into a failing critical result
// and honoring FailFast (stop after the first critical failure, in
// registration order) and Parallel (only when every rule is thread-safe).
func (rn *Runner) Run(ctx context.Context, code string) []Result {
	if rn.Parallel && rn.allThreadSafe() && !rn.FailFast {
		return rn.runParallel(ctx, code)
	}
	return rn.runSequential(ctx, code)
}

func (rn *Runner) allThreadSafe() bool {
	for _, r := range rn.Rules {
		if !r.ThreadSafe() {
			return false
		}
	}
	return true
}

func (rn *Runner) runSequential(ctx context.Context, code string) []Result {
	results := make([]Result, 0, len(rn.Rules))
	for _, r := range rn.Rules {
		res := runOne(ctx, r, code)
		results = append(results, res)
		if rn.FailFast && !res.Passed && res.Severity == issue.SeverityCritical {
			break
		}
	}
	return results
}

func (rn *Runner) runParallel(ctx context.Context, code string) []Result {
	results := make([]Result, len(rn.Rules))
	done := make(chan int, len(rn.Rules))
	for i, r := range rn.Rules {
		go func(i int, r Rule) {
			results[i] = runOne(ctx, r, code)
			done <- i
		}(i, r)
	}
	for range rn.Rules {
		<-done
	}
	return results
}

func runOne(ctx context.Context, r Rule, code string) (res Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res = crashResult(r.Name(), time.Since(start), rec)
		}
	}()
	res = r.Check(ctx, code)
	res.Duration = time.Since(start)
	return res
}

// DefaultWeights is the selector's rule-name to weight mapping, looked up by
// exact name, then by name prefix, then a default of 1.0.
var DefaultWeights = map[string]float64{
	"ast_syntax":  10.0,
	"static_bandit": 4.0,
	"static_ruff": 3.0,
	"static_mypy": 2.0,
	"complexity":  1.5,
	"style":       1.0,
	"docstring":   0.5,
	"oss_patterns": 1.5,
}

// WeightFor resolves a rule name to a weight: exact match, then longest
// matching prefix, then 1.0.
func WeightFor(weights map[string]float64, name string) float64 {
	if w, ok := weights[name]; ok {
		return w
	}
	best := -1
	bestWeight := 1.0
	for prefix, w := range weights {
		if len(prefix) <= best {
			continue
		}
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			best = len(prefix)
			bestWeight = w
		}
	}
	return bestWeight
}
