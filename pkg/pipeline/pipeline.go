// Package pipeline composes pre-validation, static analysis, sandbox
// execution, property testing, and resource reporting into the five-level
// Validation Pipeline, producing one composite verdict per run.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/metrics"
	"github.com/northbeam-labs/codevalidator/pkg/prevalidate"
	"github.com/northbeam-labs/codevalidator/pkg/propertytest"
	"github.com/northbeam-labs/codevalidator/pkg/pyast"
	"github.com/northbeam-labs/codevalidator/pkg/resourcemonitor"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
	"github.com/northbeam-labs/codevalidator/pkg/sandbox"
)

// Level identifies one of the five pipeline stages.
type Level int

const (
	LevelPrevalidation Level = iota
	LevelStaticAnalysis
	LevelSandboxExecution
	LevelPropertyTests
	LevelResourceReport
)

func (l Level) String() string {
	switch l {
	case LevelPrevalidation:
		return "prevalidation"
	case LevelStaticAnalysis:
		return "static_analysis"
	case LevelSandboxExecution:
		return "sandbox_execution"
	case LevelPropertyTests:
		return "property_tests"
	case LevelResourceReport:
		return "resource_report"
	default:
		return "unknown"
	}
}

// LevelResult is the outcome of running one level.
type LevelResult struct {
	Level    Level
	Passed   bool
	Duration time.Duration
	Artifact interface{} // opaque to the pipeline: prevalidate.Result, []rules.Result, ...
	Error    string
	Skipped  bool
	SkipNote string
}

// Verdict is the composite outcome of a full run.
type Verdict string

const (
	VerdictPassed   Verdict = "passed"
	VerdictWarnings Verdict = "warnings"
	VerdictFailed   Verdict = "failed"
	VerdictError    Verdict = "error"
)

// Report is the full output of one Run.
type Report struct {
	Hash    string
	Verdict Verdict
	Levels  []LevelResult
}

// Config controls which levels run and how.
type Config struct {
	StopOnFailure bool // default true: a level with errors/critical skips the rest

	Prevalidator *prevalidate.Prevalidator
	StaticRunner *rules.Runner

	SandboxExecutor sandbox.Executor
	SandboxTimeout  time.Duration

	// EntryPoint is the function name property tests run against. Level 3
	// is always skipped when this is empty.
	EntryPoint string
	Tester     *propertytest.Tester

	ResourceLimits resourcemonitor.Limits
}

// DefaultConfig wires the package defaults for every sub-component, with
// stop-on-failure enabled.
func DefaultConfig() Config {
	return Config{
		StopOnFailure:   true,
		Prevalidator:    prevalidate.New(prevalidate.NewConfig()),
		StaticRunner:    &rules.Runner{Rules: rules.DefaultPythonRules(), Parallel: true},
		SandboxExecutor: sandbox.New(sandbox.BackendSubprocess, sandbox.DefaultConfig()),
		SandboxTimeout:  10 * time.Second,
		Tester:          propertytest.NewTester(),
		ResourceLimits:  resourcemonitor.DefaultLimits(),
	}
}

// Pipeline runs the five-level sequence against one piece of source code.
type Pipeline struct {
	cfg Config
}

// New builds a Pipeline. A zero Config is replaced with DefaultConfig.
func New(cfg Config) *Pipeline {
	if cfg.Prevalidator == nil && cfg.StaticRunner == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{cfg: cfg}
}

// Run executes every level in order, honoring the stop-on-failure policy,
// and returns the composite Report.
func (p *Pipeline) Run(ctx context.Context, code string) (report Report) {
	start := time.Now()
	defer func() {
		metrics.RecordPipelineRun(string(report.Verdict), time.Since(start))
	}()
	report.Hash = ContentHash(code)

	pv := p.runPrevalidation(code)
	report.Levels = append(report.Levels, pv)
	if p.shouldStop(pv) {
		report.Verdict = p.composite(report.Levels)
		return report
	}

	sa := p.runStaticAnalysis(ctx, code)
	report.Levels = append(report.Levels, sa)
	if p.shouldStop(sa) {
		report.Verdict = p.composite(report.Levels)
		return report
	}

	sb := p.runSandbox(ctx, code)
	report.Levels = append(report.Levels, sb)
	if p.shouldStop(sb) {
		report.Verdict = p.composite(report.Levels)
		return report
	}

	pt := p.runPropertyTests(ctx, code)
	report.Levels = append(report.Levels, pt)

	rr := p.runResourceReport(sb)
	report.Levels = append(report.Levels, rr)

	report.Verdict = p.composite(report.Levels)
	return report
}

func (p *Pipeline) shouldStop(lr LevelResult) bool {
	if !p.cfg.StopOnFailure {
		return false
	}
	return !lr.Passed && !lr.Skipped
}

func (p *Pipeline) runPrevalidation(code string) LevelResult {
	start := time.Now()
	res := p.cfg.Prevalidator.Validate(code)
	return LevelResult{
		Level:    LevelPrevalidation,
		Passed:   res.IsValid,
		Duration: time.Since(start),
		Artifact: res,
		Error:    firstCriticalMessage(res.Issues),
	}
}

func (p *Pipeline) runStaticAnalysis(ctx context.Context, code string) LevelResult {
	start := time.Now()
	results := p.cfg.StaticRunner.Run(ctx, code)
	passed := true
	for _, r := range results {
		if !r.Passed && r.Severity.AtLeast(issue.SeverityError) {
			passed = false
		}
	}
	return LevelResult{
		Level:    LevelStaticAnalysis,
		Passed:   passed,
		Duration: time.Since(start),
		Artifact: results,
	}
}

func (p *Pipeline) runSandbox(ctx context.Context, code string) LevelResult {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.sandboxTimeout())
	defer cancel()
	res := p.cfg.SandboxExecutor.Execute(runCtx, code, nil)
	return LevelResult{
		Level:    LevelSandboxExecution,
		Passed:   res.Success(),
		Duration: time.Since(start),
		Artifact: res,
		Error:    res.ErrorMessage,
	}
}

func (p *Pipeline) sandboxTimeout() time.Duration {
	if p.cfg.SandboxTimeout > 0 {
		return p.cfg.SandboxTimeout
	}
	return 10 * time.Second
}

// runPropertyTests skips Level 3 when no entry point is configured, or when
// the named symbol does not appear as a callable once the source has run in
// a fresh sandbox namespace. Otherwise it infers the entry point's
// parameters from its definition and runs the general properties against
// it through a propertytest.Callable, which round-trips every example call
// through the same sandbox executor used for Level 2.
func (p *Pipeline) runPropertyTests(ctx context.Context, code string) LevelResult {
	if p.cfg.EntryPoint == "" {
		return LevelResult{Level: LevelPropertyTests, Passed: true, Skipped: true,
			SkipNote: "no entry point supplied"}
	}

	start := time.Now()
	params, ok := p.resolveEntryPoint(ctx, code)
	if !ok {
		return LevelResult{Level: LevelPropertyTests, Passed: true, Skipped: true,
			Duration: time.Since(start),
			SkipNote: fmt.Sprintf("%q does not appear as a callable after executing the code in a fresh namespace", p.cfg.EntryPoint)}
	}

	tester := p.cfg.Tester
	if tester == nil {
		tester = propertytest.NewTester()
	}
	callable := propertytest.NewCallable(code, p.cfg.EntryPoint, params, p.cfg.SandboxExecutor)
	suite := tester.RunAllTests(ctx, callable)

	errMsg := ""
	if !suite.AllPassed() {
		for _, r := range suite.Results {
			if !r.Passed {
				errMsg = r.ErrorMessage
				break
			}
		}
	}
	return LevelResult{
		Level:    LevelPropertyTests,
		Passed:   suite.AllPassed(),
		Duration: time.Since(start),
		Artifact: suite,
		Error:    errMsg,
	}
}

const entryPointProbeMarker = "__codevalidator_entrypoint_probe__"

// resolveEntryPoint infers the entry point's parameter list from its
// definition header, then confirms the name resolves to something callable
// by actually executing the source in the sandbox and probing globals() —
// a symbol only assigned conditionally, or shadowed by a later statement,
// would pass a static scan but fail this check, matching "after executing
// the code in a fresh namespace".
func (p *Pipeline) resolveEntryPoint(ctx context.Context, code string) ([]propertytest.Param, bool) {
	tree, err := pyast.Parse(code)
	if err != nil {
		return nil, false
	}

	var fn *pyast.Node
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		if fn != nil {
			return false
		}
		if (n.Kind == pyast.KindFunctionDef || n.Kind == pyast.KindAsyncFunctionDef) && n.Name == p.cfg.EntryPoint {
			fn = n
			return false
		}
		return true
	})
	if fn == nil {
		return nil, false
	}
	params := propertytest.InferParams(fn)

	var b strings.Builder
	b.WriteString(code)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "print(%q + __import__(\"json\").dumps({\"callable\": callable(globals().get(%q))}))\n",
		entryPointProbeMarker, p.cfg.EntryPoint)

	res := p.cfg.SandboxExecutor.Execute(ctx, b.String(), nil)
	if !res.Success() {
		return nil, false
	}
	if !entryPointProbeResolved(res.Stdout) {
		return nil, false
	}
	return params, true
}

func entryPointProbeResolved(stdout string) bool {
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.HasPrefix(line, entryPointProbeMarker) {
			continue
		}
		var payload struct {
			Callable bool `json:"callable"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, entryPointProbeMarker)), &payload); err != nil {
			return false
		}
		return payload.Callable
	}
	return false
}

func (p *Pipeline) runResourceReport(sandboxLevel LevelResult) LevelResult {
	res, ok := sandboxLevel.Artifact.(interface{ Success() bool })
	if !ok {
		return LevelResult{Level: LevelResourceReport, Passed: true, Skipped: true,
			SkipNote: "no sandbox execution to derive a report from"}
	}
	return LevelResult{Level: LevelResourceReport, Passed: res.Success()}
}

func firstCriticalMessage(issues []issue.Issue) string {
	for _, i := range issues {
		if i.Severity().AtLeast(issue.SeverityError) {
			return i.String()
		}
	}
	return ""
}

// composite derives {passed, warnings, failed, error} from the level
// results: "passed" only when nothing failed or warned, "warnings" when
// something warned but nothing failed, "failed" when a level's own check
// failed outright, "error" when a level could not run at all (not
// currently distinguished from "failed" by any level in this package, but
// reserved for future infra-failure levels).
func (p *Pipeline) composite(levels []LevelResult) Verdict {
	anyFailed := false
	anyWarning := false
	for _, lr := range levels {
		if lr.Skipped {
			continue
		}
		if !lr.Passed {
			anyFailed = true
			continue
		}
		if results, ok := lr.Artifact.([]rules.Result); ok {
			for _, r := range results {
				if len(r.Messages) > 0 {
					anyWarning = true
				}
			}
		}
		if pvRes, ok := lr.Artifact.(prevalidate.Result); ok && len(pvRes.Issues) > 0 {
			anyWarning = true
		}
	}
	switch {
	case anyFailed:
		return VerdictFailed
	case anyWarning:
		return VerdictWarnings
	default:
		return VerdictPassed
	}
}

// ContentHash returns the first 16 hex characters of the SHA-256 digest of
// code, for caching and deduplication.
func ContentHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])[:16]
}
