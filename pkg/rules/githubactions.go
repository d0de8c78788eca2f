package rules

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

func init() {
	issue.Register("GHA001", "workflow did not parse as valid YAML")
	issue.Register("GHA002", "job step uses an unpinned third-party action")
	issue.Register("GHA003", "workflow grants write permissions without narrowing scope")
}

type workflowDoc struct {
	Permissions interface{} `yaml:"permissions"`
	Jobs        map[string]struct {
		Steps []struct {
			Uses string `yaml:"uses"`
		} `yaml:"steps"`
	} `yaml:"jobs"`
}

// githubActionsRule checks workflow YAML for unpinned third-party actions
// (a tag or branch ref instead of a commit SHA) and overly broad write
// permissions, heuristics an external actionlint pass complements but
// doesn't cover.
type githubActionsRule struct{}

func (r *githubActionsRule) Name() string        { return "github_actions" }
func (r *githubActionsRule) Severity() Severity  { return issue.SeverityWarning }
func (r *githubActionsRule) BaseWeight() float64 { return 1.0 }
func (r *githubActionsRule) ThreadSafe() bool    { return true }

func (r *githubActionsRule) Check(ctx context.Context, code string) Result {
	var doc workflowDoc
	if err := yaml.Unmarshal([]byte(code), &doc); err != nil {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical,
			Messages: []string{"GHA001: " + err.Error()}}
	}

	var msgs []string
	for jobName, job := range doc.Jobs {
		for _, step := range job.Steps {
			if step.Uses == "" {
				continue
			}
			if !isPinnedAction(step.Uses) {
				msgs = append(msgs, fmt.Sprintf("GHA002: job %q uses unpinned action %q", jobName, step.Uses))
			}
		}
	}
	if perm, ok := doc.Permissions.(string); ok && perm == "write-all" {
		msgs = append(msgs, "GHA003: workflow grants permissions: write-all")
	}

	score := 1.0 - 0.2*float64(len(msgs))
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: len(msgs) == 0, Score: score, Severity: issue.SeverityWarning, Messages: msgs}
}

// isPinnedAction reports whether a `uses:` reference is pinned to a full
// commit SHA rather than a mutable tag or branch name.
func isPinnedAction(uses string) bool {
	at := -1
	for i := len(uses) - 1; i >= 0; i-- {
		if uses[i] == '@' {
			at = i
			break
		}
	}
	if at == -1 {
		return false
	}
	ref := uses[at+1:]
	if len(ref) != 40 {
		return false
	}
	for _, c := range ref {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// DefaultGitHubActionsRules composes the in-process workflow heuristics
// with the external actionlint rule.
func DefaultGitHubActionsRules() []Rule {
	return []Rule{
		&githubActionsRule{},
		NewLintRuleExt("actionlint", ".yml", "actionlint", func(p string) []string {
			return []string{"-format", "{{json .}}", p}
		}),
	}
}
