package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

func init() {
	issue.Register("DOCK001", "base image is not pinned to a digest or explicit tag")
	issue.Register("DOCK002", "final stage runs as root")
	issue.Register("DOCK003", "no HEALTHCHECK instruction")
}

var (
	fromLatestRe  = regexp.MustCompile(`(?i)^FROM\s+\S+:latest(\s|$)`)
	fromBareRe    = regexp.MustCompile(`(?i)^FROM\s+[^:\s]+(\s+AS\s+\S+)?\s*$`)
	userRe        = regexp.MustCompile(`(?i)^USER\s+\S+`)
	healthcheckRe = regexp.MustCompile(`(?i)^HEALTHCHECK\b`)
)

// dockerfileHeuristicRule applies the in-process best-practice heuristics
// an external hadolint pass wouldn't necessarily phrase the same way:
// pinned base images, a non-root final USER, and a HEALTHCHECK.
type dockerfileHeuristicRule struct{}

func (r *dockerfileHeuristicRule) Name() string        { return "dockerfile_heuristics" }
func (r *dockerfileHeuristicRule) Severity() Severity  { return issue.SeverityWarning }
func (r *dockerfileHeuristicRule) BaseWeight() float64 { return 1.0 }
func (r *dockerfileHeuristicRule) ThreadSafe() bool    { return true }

func (r *dockerfileHeuristicRule) Check(ctx context.Context, code string) Result {
	var msgs []string
	hasUser := false
	hasHealthcheck := false

	for _, raw := range strings.Split(code, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if fromLatestRe.MatchString(line) || fromBareRe.MatchString(line) {
			msgs = append(msgs, fmt.Sprintf("DOCK001: %q does not pin a tag or digest", line))
		}
		if userRe.MatchString(line) {
			hasUser = strings.ToLower(strings.Fields(line)[1]) != "root"
		}
		if healthcheckRe.MatchString(line) {
			hasHealthcheck = true
		}
	}
	if !hasUser {
		msgs = append(msgs, "DOCK002: no non-root USER instruction found")
	}
	if !hasHealthcheck {
		msgs = append(msgs, "DOCK003: no HEALTHCHECK instruction found")
	}

	score := 1.0 - 0.2*float64(len(msgs))
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: len(msgs) == 0, Score: score, Severity: issue.SeverityWarning, Messages: msgs}
}

// DefaultDockerfileRules composes the in-process heuristics with the
// external hadolint rule, honoring the external-rule protocol (missing
// tool -> skip, never a failure).
func DefaultDockerfileRules() []Rule {
	return []Rule{
		&dockerfileHeuristicRule{},
		NewLintRuleExt("hadolint", "", "hadolint", func(p string) []string {
			return []string{"--format", "json", p}
		}),
	}
}
