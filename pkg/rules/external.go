package rules

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

// ExternalTool is a rule that shells out to a command-line linter/scanner.
// It honors the external-rule protocol from the spec: write the code to a
// temp file with the right extension, run the tool, parse its output, and
// tolerate the tool being entirely absent (a passing skip note, never a
// failure).
type ExternalTool struct {
	RuleName  string
	Extension string
	Command   string
	Args      func(path string) []string
	Timeout   time.Duration
	Parse     func(stdout, stderr []byte, exitCode int) Result
}

func (t *ExternalTool) Name() string        { return t.RuleName }
func (t *ExternalTool) Severity() Severity  { return issue.SeverityError }
func (t *ExternalTool) BaseWeight() float64 { return 2.0 }
func (t *ExternalTool) ThreadSafe() bool    { return true }

func (t *ExternalTool) Check(ctx context.Context, code string) Result {
	if _, err := exec.LookPath(t.Command); err != nil {
		return skip(t.RuleName, fmt.Sprintf("tool %q not found on PATH", t.Command))
	}

	tmp, err := os.CreateTemp("", "codevalidator-*"+t.Extension)
	if err != nil {
		return skip(t.RuleName, "could not create temp file: "+err.Error())
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return skip(t.RuleName, "could not write temp file: "+err.Error())
	}
	tmp.Close()

	timeout := t.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.Command, t.Args(tmp.Name())...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if runCtx.Err() != nil {
		return Result{RuleName: t.RuleName, Passed: false, Score: 0.3, Severity: issue.SeverityWarning,
			Messages: []string{fmt.Sprintf("%s timed out after %s", t.Command, timeout)}}
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return skip(t.RuleName, "failed to run tool: "+runErr.Error())
	}
	return t.Parse(stdout.Bytes(), stderr.Bytes(), exitCode)
}

// lintIssue is the JSON shape expected from the lint tool per §4.2: fields
// {code, message, location.row, location.column}.
type lintIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// NewLintRule builds an external rule expecting the lint tool's JSON array
// output, inferring severity from the issue code's leading letter class.
// The temp file is written with a .py extension; use NewLintRuleExt for
// tools that key off a different extension or filename.
func NewLintRule(name, command string, args func(string) []string) *ExternalTool {
	return NewLintRuleExt(name, ".py", command, args)
}

// NewLintRuleExt is NewLintRule with an explicit temp-file extension.
func NewLintRuleExt(name, extension, command string, args func(string) []string) *ExternalTool {
	return &ExternalTool{
		RuleName: name, Extension: extension, Command: command, Args: args, Timeout: 30 * time.Second,
		Parse: func(stdout, stderr []byte, exitCode int) Result {
			var issues []lintIssue
			if err := json.Unmarshal(stdout, &issues); err != nil {
				if len(stdout) == 0 && exitCode == 0 {
					return Result{RuleName: name, Passed: true, Score: 1.0, Severity: issue.SeverityError}
				}
				return skip(name, "could not parse tool output: "+err.Error())
			}
			if len(issues) == 0 {
				return Result{RuleName: name, Passed: true, Score: 1.0, Severity: issue.SeverityError}
			}
			var msgs []string
			hasErr := false
			for _, li := range issues {
				if lintSeverityIsError(li.Code) {
					hasErr = true
				}
				msgs = append(msgs, fmt.Sprintf("%s:%d:%d %s: %s", name, li.Location.Row, li.Location.Column, li.Code, li.Message))
			}
			score := 1.0 - 0.1*float64(len(issues))
			if score < 0 {
				score = 0
			}
			return Result{RuleName: name, Passed: !hasErr, Score: score, Severity: issue.SeverityError, Messages: msgs}
		},
	}
}

func lintSeverityIsError(code string) bool {
	if code == "" {
		return false
	}
	switch code[0] {
	case 'E', 'F', 'S':
		return true
	default:
		return false
	}
}

// typeCheckLineRe parses `path:line:col: severity: message` lines, tolerant
// of a missing column (`path:line: severity: message`).
var typeCheckLineRe = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(error|warning|note):\s*(.*)$`)

// NewTypeCheckRule builds an external rule expecting textual
// "path:line:col: severity: message" lines.
func NewTypeCheckRule(name, command string, args func(string) []string) *ExternalTool {
	return &ExternalTool{
		RuleName: name, Extension: ".py", Command: command, Args: args, Timeout: 30 * time.Second,
		Parse: func(stdout, stderr []byte, exitCode int) Result {
			scanner := bufio.NewScanner(bytes.NewReader(stdout))
			var msgs []string
			hasErr := false
			for scanner.Scan() {
				m := typeCheckLineRe.FindStringSubmatch(scanner.Text())
				if m == nil {
					continue
				}
				if m[4] == "error" {
					hasErr = true
				}
				msgs = append(msgs, scanner.Text())
			}
			if len(msgs) == 0 {
				return Result{RuleName: name, Passed: true, Score: 1.0, Severity: issue.SeverityError}
			}
			score := 1.0 - 0.1*float64(len(msgs))
			if score < 0 {
				score = 0
			}
			return Result{RuleName: name, Passed: !hasErr, Score: score, Severity: issue.SeverityError, Messages: msgs}
		},
	}
}

// securityResult is the JSON shape expected from the security scanner per
// §4.2: a `results` array of {issue_severity, issue_text, line_number, test_id}.
type securityResult struct {
	Results []struct {
		IssueSeverity string `json:"issue_severity"`
		IssueText     string `json:"issue_text"`
		LineNumber    int    `json:"line_number"`
		TestID        string `json:"test_id"`
	} `json:"results"`
}

// NewSecurityScanRule builds an external rule expecting the security
// scanner's JSON `results` array.
func NewSecurityScanRule(name, command string, args func(string) []string) *ExternalTool {
	return NewSecurityScanRuleExt(name, ".py", command, args)
}

// NewSecurityScanRuleExt is NewSecurityScanRule with an explicit temp-file
// extension.
func NewSecurityScanRuleExt(name, extension, command string, args func(string) []string) *ExternalTool {
	return &ExternalTool{
		RuleName: name, Extension: extension, Command: command, Args: args, Timeout: 30 * time.Second,
		Parse: func(stdout, stderr []byte, exitCode int) Result {
			var parsed securityResult
			if err := json.Unmarshal(stdout, &parsed); err != nil {
				return skip(name, "could not parse tool output: "+err.Error())
			}
			if len(parsed.Results) == 0 {
				return Result{RuleName: name, Passed: true, Score: 1.0, Severity: issue.SeverityError}
			}
			var msgs []string
			hasHigh := false
			for _, res := range parsed.Results {
				if strings.EqualFold(res.IssueSeverity, "HIGH") {
					hasHigh = true
				}
				msgs = append(msgs, fmt.Sprintf("%s line %d: %s (%s)", res.TestID, res.LineNumber, res.IssueText, res.IssueSeverity))
			}
			score := 1.0 - 0.15*float64(len(parsed.Results))
			if score < 0 {
				score = 0
			}
			return Result{RuleName: name, Passed: !hasHigh, Score: score, Severity: issue.SeverityError, Messages: msgs}
		},
	}
}

// DefaultStaticRules returns the three external tools named in §4.2 —
// ruff for lint, mypy for type-checking, bandit for security scanning.
func DefaultStaticRules() []Rule {
	return []Rule{
		NewLintRule("static_ruff", "ruff", func(p string) []string {
			return []string{"check", "--output-format=json", p}
		}),
		NewTypeCheckRule("static_mypy", "mypy", func(p string) []string {
			return []string{"--no-color-output", p}
		}),
		NewSecurityScanRule("static_bandit", "bandit", func(p string) []string {
			return []string{"-f", "json", "-q", p}
		}),
	}
}

