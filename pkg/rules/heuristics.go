package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

// antiPatternRule is a set of regex checks over common LLM-generated
// security and maintainability smells.
type antiPatternRule struct{}

type antiPatternCheck struct {
	name string
	re   *regexp.Regexp
}

var antiPatternChecks = []antiPatternCheck{
	{"sql-injection template", regexp.MustCompile(`(?i)(execute|cursor\.execute)\s*\(\s*f?["'].*%s.*["']\s*%`)},
	{"sql-injection f-string", regexp.MustCompile(`(?i)\.execute\s*\(\s*f["']`)},
	{"hardcoded secret", regexp.MustCompile(`(?i)(api_key|secret|password|token)\s*=\s*["'][^"']{6,}["']`)},
	{"homegrown TOTP", regexp.MustCompile(`(?i)def\s+\w*totp\w*\s*\(`)},
	{"unsafe deserialization", regexp.MustCompile(`\bpickle\.loads?\s*\(|\byaml\.load\s*\(\s*[^,)]+\)`)},
	{"debug mode flag", regexp.MustCompile(`(?i)debug\s*=\s*True`)},
	{"shell injection", regexp.MustCompile(`shell\s*=\s*True`)},
	{"bare except", regexp.MustCompile(`(?m)^\s*except\s*:`)},
	{"mutable default argument", regexp.MustCompile(`def\s+\w+\([^)]*=\s*(\[\]|\{\})[^)]*\)`)},
	{"module-level mutable state", regexp.MustCompile(`(?m)^[A-Z_][A-Z0-9_]*\s*=\s*(\[\]|\{\})\s*$`)},
}

func (r *antiPatternRule) Name() string        { return "anti_pattern" }
func (r *antiPatternRule) Severity() Severity  { return issue.SeverityError }
func (r *antiPatternRule) BaseWeight() float64 { return 2.0 }
func (r *antiPatternRule) ThreadSafe() bool    { return true }
func (r *antiPatternRule) Check(ctx context.Context, code string) Result {
	var hits []string
	for _, c := range antiPatternChecks {
		if c.re.MatchString(code) {
			hits = append(hits, c.name)
		}
	}
	if len(hits) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityError}
	}
	score := 1.0 - 0.2*float64(len(hits))
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: false, Score: score, Severity: issue.SeverityError, Messages: hits}
}

// asyncSafetyRule flags blocking calls inside async function bodies,
// synchronous locks in an async module, and nested event-loop runners.
type asyncSafetyRule struct{}

var blockingCallsInAsync = regexp.MustCompile(`\b(time\.sleep|requests\.(get|post|put|delete)|open)\s*\(`)
var syncLockPattern = regexp.MustCompile(`\bthreading\.Lock\s*\(`)
var nestedRunPattern = regexp.MustCompile(`asyncio\.run\s*\([^)]*asyncio\.run`)

func (r *asyncSafetyRule) Name() string        { return "async_safety" }
func (r *asyncSafetyRule) Severity() Severity  { return issue.SeverityWarning }
func (r *asyncSafetyRule) BaseWeight() float64 { return 1.0 }
func (r *asyncSafetyRule) ThreadSafe() bool    { return true }
func (r *asyncSafetyRule) Check(ctx context.Context, code string) Result {
	if !strings.Contains(code, "async def") {
		return skip(r.Name(), "no async functions present")
	}
	var hits []string
	for _, block := range splitAsyncBodies(code) {
		if blockingCallsInAsync.MatchString(block) {
			hits = append(hits, "blocking call inside an async function")
		}
	}
	if syncLockPattern.MatchString(code) {
		hits = append(hits, "threading.Lock used in a module with async functions")
	}
	if nestedRunPattern.MatchString(code) {
		hits = append(hits, "nested asyncio.run() invocation")
	}
	if len(hits) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityWarning}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 0.5, Severity: issue.SeverityWarning, Messages: dedupe(hits)}
}

// splitAsyncBodies returns a crude per-function slice of source text
// starting at each "async def" occurrence, good enough for a substring scan
// without building a full indentation-aware extractor twice.
func splitAsyncBodies(code string) []string {
	var out []string
	idx := 0
	for {
		i := strings.Index(code[idx:], "async def")
		if i < 0 {
			break
		}
		start := idx + i
		next := strings.Index(code[start+1:], "\ndef ")
		end := len(code)
		if next >= 0 {
			end = start + 1 + next
		}
		out = append(out, code[start:end])
		idx = start + 1
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// exceptionHierarchyRule checks custom exception classes inherit from a
// specific base, flags silent catches, and rewards exception chaining.
type exceptionHierarchyRule struct{}

var customExcClassRe = regexp.MustCompile(`class\s+(\w*(?:Error|Exception))\s*\(([^)]*)\)`)
var silentCatchRe = regexp.MustCompile(`(?m)except[^:]*:\s*\n\s*pass\b`)
var chainedRaiseRe = regexp.MustCompile(`raise\s+\w+\([^)]*\)\s+from\s+\w+`)

func (r *exceptionHierarchyRule) Name() string        { return "exception_hierarchy" }
func (r *exceptionHierarchyRule) Severity() Severity  { return issue.SeverityWarning }
func (r *exceptionHierarchyRule) BaseWeight() float64 { return 0.5 }
func (r *exceptionHierarchyRule) ThreadSafe() bool    { return true }
func (r *exceptionHierarchyRule) Check(ctx context.Context, code string) Result {
	var hits []string
	for _, m := range customExcClassRe.FindAllStringSubmatch(code, -1) {
		base := strings.TrimSpace(m[2])
		if base == "" || base == "object" {
			hits = append(hits, fmt.Sprintf("exception class %q does not inherit from an Exception base", m[1]))
		}
	}
	if silentCatchRe.MatchString(code) {
		hits = append(hits, "silent except/pass swallows the exception")
	}
	score := 1.0
	if len(hits) > 0 {
		score = 0.6
	}
	if chainedRaiseRe.MatchString(code) {
		score = minFloat(1.0, score+0.1)
	}
	return Result{RuleName: r.Name(), Passed: len(hits) == 0, Score: score, Severity: issue.SeverityWarning, Messages: hits}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// docstringConsistencyRule compares documented :param mentions against the
// actual parameter list. :return/:raises mentions and the function body are
// not checked.
type docstringConsistencyRule struct{}

var funcWithDocRe = regexp.MustCompile(`def\s+(\w+)\s*\(([^)]*)\)[^:]*:\s*\n\s*"""([^"]*)"""`)
var paramDocRe = regexp.MustCompile(`:param\s+(\w+)`)

func (r *docstringConsistencyRule) Name() string        { return "docstring_consistency" }
func (r *docstringConsistencyRule) Severity() Severity  { return issue.SeverityInfo }
func (r *docstringConsistencyRule) BaseWeight() float64 { return 0.5 }
func (r *docstringConsistencyRule) ThreadSafe() bool    { return true }
func (r *docstringConsistencyRule) Check(ctx context.Context, code string) Result {
	matches := funcWithDocRe.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return skip(r.Name(), "no parameterized docstrings to check")
	}
	var hits []string
	for _, m := range matches {
		params := splitParamNames(m[2])
		documented := map[string]bool{}
		for _, pm := range paramDocRe.FindAllStringSubmatch(m[3], -1) {
			documented[pm[1]] = true
		}
		for _, p := range params {
			if p == "self" || p == "cls" || p == "" {
				continue
			}
			if !documented[p] {
				hits = append(hits, fmt.Sprintf("%s: parameter %q undocumented", m[1], p))
			}
		}
	}
	if len(hits) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityInfo}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 0.7, Severity: issue.SeverityInfo, Messages: hits}
}

func splitParamNames(sig string) []string {
	var names []string
	for _, part := range strings.Split(sig, ",") {
		part = strings.TrimSpace(part)
		part = strings.SplitN(part, ":", 2)[0]
		part = strings.SplitN(part, "=", 2)[0]
		part = strings.TrimPrefix(strings.TrimPrefix(part, "**"), "*")
		names = append(names, strings.TrimSpace(part))
	}
	return names
}

// productionReadinessRule applies web-service heuristics: health endpoint,
// CORS configuration, graceful shutdown, structured logging vs print,
// environment-driven configuration.
type productionReadinessRule struct{}

var webEntrypointRe = regexp.MustCompile(`\b(FastAPI|Flask)\s*\(`)
var healthEndpointRe = regexp.MustCompile(`["']\/health`)
var corsRe = regexp.MustCompile(`CORSMiddleware|flask_cors`)
var gracefulShutdownRe = regexp.MustCompile(`signal\.signal|on_event\s*\(\s*["']shutdown`)
var printStatementRe = regexp.MustCompile(`(?m)^\s*print\s*\(`)
var envConfigRe = regexp.MustCompile(`os\.environ|os\.getenv`)

func (r *productionReadinessRule) Name() string        { return "production_readiness" }
func (r *productionReadinessRule) Severity() Severity  { return issue.SeverityInfo }
func (r *productionReadinessRule) BaseWeight() float64 { return 1.0 }
func (r *productionReadinessRule) ThreadSafe() bool    { return true }
func (r *productionReadinessRule) Check(ctx context.Context, code string) Result {
	if !webEntrypointRe.MatchString(code) {
		return skip(r.Name(), "not a web-service entry point")
	}
	checks := map[string]bool{
		"health endpoint":    healthEndpointRe.MatchString(code),
		"CORS configuration": corsRe.MatchString(code),
		"graceful shutdown":  gracefulShutdownRe.MatchString(code),
		"no print() logging": !printStatementRe.MatchString(code),
		"env-driven config":  envConfigRe.MatchString(code),
	}
	var missing []string
	present := 0
	for name, ok := range checks {
		if ok {
			present++
		} else {
			missing = append(missing, name)
		}
	}
	score := float64(present) / float64(len(checks))
	return Result{RuleName: r.Name(), Passed: len(missing) == 0, Score: score, Severity: issue.SeverityInfo, Messages: missing}
}

// searchOnlyGuardRule penalizes URL-heavy, tutorial-style, or
// mostly-placeholder output — a sign of an LLM "non-answer".
type searchOnlyGuardRule struct{}

var urlRe = regexp.MustCompile(`https?://\S+`)
var placeholderRe = regexp.MustCompile(`(?m)^\s*(pass|TODO|NotImplementedError)\b`)
var tutorialPhraseRe = regexp.MustCompile(`(?i)(let's|first, we|in this tutorial|step \d+:)`)

func (r *searchOnlyGuardRule) Name() string        { return "search_only_guard" }
func (r *searchOnlyGuardRule) Severity() Severity  { return issue.SeverityWarning }
func (r *searchOnlyGuardRule) BaseWeight() float64 { return 1.0 }
func (r *searchOnlyGuardRule) ThreadSafe() bool    { return true }
func (r *searchOnlyGuardRule) Check(ctx context.Context, code string) Result {
	lines := strings.Split(code, "\n")
	if len(lines) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityWarning}
	}
	urls := len(urlRe.FindAllString(code, -1))
	placeholders := len(placeholderRe.FindAllString(code, -1))
	tutorial := len(tutorialPhraseRe.FindAllString(code, -1))
	signal := float64(urls+placeholders*2+tutorial) / float64(len(lines))
	score := 1.0 - signal
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	if score < 0.6 {
		return Result{RuleName: r.Name(), Passed: false, Score: score, Severity: issue.SeverityWarning,
			Messages: []string{"output reads as a non-answer: URL-heavy, tutorial-style, or placeholder-heavy"}}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: score, Severity: issue.SeverityWarning}
}

// decoratorRedFlagsRule detects bare retry loops, signal-based timeouts in
// decorator bodies, cache-before-retry ordering, missing functools.wraps,
// and timeout threads never joined or cancelled. Unhashable cache keys on
// mutable defaults are not detected.
type decoratorRedFlagsRule struct{}

var retryWithoutBackoffRe = regexp.MustCompile(`def\s+retry\b[\s\S]{0,200}?while\s+True`)
var signalTimeoutRe = regexp.MustCompile(`signal\.alarm\s*\(`)
var cacheBeforeRetryRe = regexp.MustCompile(`@lru_cache[\s\S]{0,40}@retry`)
var missingWrapsRe = regexp.MustCompile(`def\s+\w+\s*\([^)]*\):\s*\n\s*def\s+wrapper`)
var threadNoJoinRe = regexp.MustCompile(`Thread\s*\([^)]*\)\s*\n(?:[^\n]*\n){0,3}?\s*\.start\(\)`)

func (r *decoratorRedFlagsRule) Name() string        { return "decorator_red_flags" }
func (r *decoratorRedFlagsRule) Severity() Severity  { return issue.SeverityWarning }
func (r *decoratorRedFlagsRule) BaseWeight() float64 { return 1.0 }
func (r *decoratorRedFlagsRule) ThreadSafe() bool    { return true }
func (r *decoratorRedFlagsRule) Check(ctx context.Context, code string) Result {
	if !strings.Contains(code, "def ") || !strings.Contains(code, "@") {
		return skip(r.Name(), "no decorators present")
	}
	var hits []string
	if retryWithoutBackoffRe.MatchString(code) {
		hits = append(hits, "retry loop with no backoff")
	}
	if signalTimeoutRe.MatchString(code) {
		hits = append(hits, "signal-based timeout in a decorator")
	}
	if cacheBeforeRetryRe.MatchString(code) {
		hits = append(hits, "cache applied before retry, caching failures")
	}
	if missingWrapsRe.MatchString(code) && !strings.Contains(code, "functools.wraps") {
		hits = append(hits, "wrapper defined without functools.wraps")
	}
	if threadNoJoinRe.MatchString(code) && !strings.Contains(code, ".join(") {
		hits = append(hits, "timeout thread started without join or cancel")
	}
	if len(hits) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityWarning}
	}
	return Result{RuleName: r.Name(), Passed: false, Score: 0.5, Severity: issue.SeverityWarning, Messages: hits}
}

// extendedDomainRule applies FastAPI/Flask/Django-specific checks (list
// endpoint response_model and pagination, parameterized SQL). It has no
// Docker checks; Dockerfiles are covered by dockerfileHeuristicRule.
type extendedDomainRule struct{}

var responseModelRe = regexp.MustCompile(`response_model\s*=`)
var paginationRe = regexp.MustCompile(`(?i)\b(limit|offset|page)\b.*:\s*int`)
var parameterizedQueryRe = regexp.MustCompile(`execute\s*\([^)]*,\s*\(`)
var rawQueryRe = regexp.MustCompile(`(?i)\.execute\s*\(\s*f?["'].*(select|insert|update|delete)\b`)

func (r *extendedDomainRule) Name() string        { return "extended_domain" }
func (r *extendedDomainRule) Severity() Severity  { return issue.SeverityInfo }
func (r *extendedDomainRule) BaseWeight() float64 { return 1.0 }
func (r *extendedDomainRule) ThreadSafe() bool    { return true }
func (r *extendedDomainRule) Check(ctx context.Context, code string) Result {
	isAPI := strings.Contains(code, "FastAPI") || strings.Contains(code, "Flask") || strings.Contains(code, "django")
	if !isAPI {
		return skip(r.Name(), "not a recognized web-framework entry point")
	}
	var hits []string
	if strings.Contains(code, "@app.get") && strings.Contains(code, "List[") && !responseModelRe.MatchString(code) {
		hits = append(hits, "list endpoint missing response_model annotation")
	}
	if strings.Contains(code, "@app.get") && strings.Contains(code, "List[") && !paginationRe.MatchString(code) {
		hits = append(hits, "list endpoint missing pagination parameters")
	}
	if rawQueryRe.MatchString(code) && !parameterizedQueryRe.MatchString(code) {
		hits = append(hits, "raw SQL string interpolation instead of parameterized query")
	}
	if len(hits) == 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityInfo}
	}
	return Result{RuleName: r.Name(), Passed: false, Score: 0.6, Severity: issue.SeverityInfo, Messages: hits}
}
