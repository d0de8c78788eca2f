package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

// DefaultPythonRules returns the default registry's in-process Python rule
// set, the one RulesFor(ContentPython) hands back.
func DefaultPythonRules() []Rule {
	return []Rule{
		&syntacticRule{},
		&safetyRule{},
		&importsRule{forbidden: defaultForbiddenImportsCopy()},
		&lengthRule{minLines: 1, maxLines: 1000, shortWarnBelow: 3},
		&complexityRule{perFunctionThreshold: 10},
		&docstringRule{minRatio: 0.5},
		&typeHintRule{minRatio: 0.3},
		&patternAlignmentRule{fullCreditAt: 0.4},
		&antiPatternRule{},
		&asyncSafetyRule{},
		&exceptionHierarchyRule{},
		&docstringConsistencyRule{},
		&productionReadinessRule{},
		&searchOnlyGuardRule{},
		&decoratorRedFlagsRule{},
		&extendedDomainRule{},
	}
}

func defaultForbiddenImportsCopy() map[string]bool {
	return map[string]bool{
		"os": true, "sys": true, "subprocess": true, "shutil": true, "pathlib": true,
		"socket": true, "requests": true, "urllib": true, "http": true,
		"ctypes": true, "multiprocessing": true, "threading": true,
		"pickle": true, "shelve": true, "marshal": true,
		"importlib": true, "runpy": true, "__builtin__": true, "builtins": true,
		"code": true, "codeop": true, "compileall": true,
	}
}

func parseOrNil(code string) *pyast.Tree {
	tree, err := pyast.Parse(code)
	if err != nil {
		return nil
	}
	return tree
}

// syntacticRule requires the code to parse at all; zero tolerance.
type syntacticRule struct{}

func (r *syntacticRule) Name() string        { return "ast_syntax" }
func (r *syntacticRule) Severity() Severity  { return issue.SeverityCritical }
func (r *syntacticRule) BaseWeight() float64 { return 10.0 }
func (r *syntacticRule) ThreadSafe() bool    { return true }
func (r *syntacticRule) Check(ctx context.Context, code string) Result {
	_, err := pyast.Parse(code)
	if err != nil {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical,
			Messages: []string{err.Error()}}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityCritical}
}

var dangerousCallNames = map[string]bool{"eval": true, "exec": true, "compile": true, "__import__": true}

// safetyRule forbids calls to eval/exec/compile/dynamic import.
type safetyRule struct{}

func (r *safetyRule) Name() string        { return "safety" }
func (r *safetyRule) Severity() Severity  { return issue.SeverityCritical }
func (r *safetyRule) BaseWeight() float64 { return 8.0 }
func (r *safetyRule) ThreadSafe() bool    { return true }
func (r *safetyRule) Check(ctx context.Context, code string) Result {
	tree := parseOrNil(code)
	if tree == nil {
		return skip(r.Name(), "code did not parse")
	}
	var hits []string
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		scanCallNames(n.HeaderTokens, dangerousCallNames, &hits)
		scanCallNames(n.Test, dangerousCallNames, &hits)
		return true
	})
	if len(hits) > 0 {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical, Messages: hits}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityCritical}
}

func scanCallNames(toks []pyast.Token, names map[string]bool, hits *[]string) {
	for i, t := range toks {
		if t.Kind == pyast.TokName && names[t.Text] && i+1 < len(toks) &&
			toks[i+1].Kind == pyast.TokOp && toks[i+1].Text == "(" {
			*hits = append(*hits, fmt.Sprintf("call to %s() at line %d", t.Text, t.Line))
		}
	}
}

// importsRule forbids imports of modules in a configured set.
type importsRule struct {
	forbidden map[string]bool
}

func (r *importsRule) Name() string        { return "imports" }
func (r *importsRule) Severity() Severity  { return issue.SeverityError }
func (r *importsRule) BaseWeight() float64 { return 2.0 }
func (r *importsRule) ThreadSafe() bool    { return true }
func (r *importsRule) Check(ctx context.Context, code string) Result {
	tree := parseOrNil(code)
	if tree == nil {
		return skip(r.Name(), "code did not parse")
	}
	var hits []string
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		switch n.Kind {
		case pyast.KindImport:
			for _, name := range n.Names {
				if r.forbidden[strings.SplitN(name, ".", 2)[0]] {
					hits = append(hits, "forbidden import: "+name)
				}
			}
		case pyast.KindImportFrom:
			if r.forbidden[strings.SplitN(n.Name, ".", 2)[0]] {
				hits = append(hits, "forbidden import from: "+n.Name)
			}
		}
		return true
	})
	if len(hits) > 0 {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityError, Messages: hits}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityError}
}

// lengthRule bounds the number of lines.
type lengthRule struct {
	minLines, maxLines, shortWarnBelow int
}

func (r *lengthRule) Name() string        { return "length" }
func (r *lengthRule) Severity() Severity  { return issue.SeverityError }
func (r *lengthRule) BaseWeight() float64 { return 1.0 }
func (r *lengthRule) ThreadSafe() bool    { return true }
func (r *lengthRule) Check(ctx context.Context, code string) Result {
	lines := strings.Count(code, "\n") + 1
	if lines > r.maxLines {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityError,
			Messages: []string{fmt.Sprintf("%d lines exceeds max %d", lines, r.maxLines)}}
	}
	if lines < r.shortWarnBelow {
		return Result{RuleName: r.Name(), Passed: true, Score: 0.6, Severity: issue.SeverityWarning,
			Messages: []string{fmt.Sprintf("only %d lines, suspiciously short", lines)}}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityError}
}

// complexityRule approximates cyclomatic complexity per function by
// counting branching nodes and boolean-operator chains.
type complexityRule struct {
	perFunctionThreshold int
}

func (r *complexityRule) Name() string        { return "complexity" }
func (r *complexityRule) Severity() Severity  { return issue.SeverityWarning }
func (r *complexityRule) BaseWeight() float64 { return 1.5 }
func (r *complexityRule) ThreadSafe() bool    { return true }

var boolOpRe = regexp.MustCompile(`\b(and|or)\b`)

func (r *complexityRule) Check(ctx context.Context, code string) Result {
	tree := parseOrNil(code)
	if tree == nil {
		return skip(r.Name(), "code did not parse")
	}
	var over []string
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		if n.Kind != pyast.KindFunctionDef && n.Kind != pyast.KindAsyncFunctionDef {
			return true
		}
		branches := 1
		pyast.Walk(n, func(c *pyast.Node) bool {
			switch c.Kind {
			case pyast.KindIf, pyast.KindFor, pyast.KindWhile:
				branches++
			}
			branches += len(boolOpRe.FindAllString(tree.Source(c), -1))
			return true
		})
		if branches > r.perFunctionThreshold {
			over = append(over, fmt.Sprintf("function %q has approximate complexity %d (threshold %d)", n.Name, branches, r.perFunctionThreshold))
		}
		return true
	})
	if len(over) > 0 {
		return Result{RuleName: r.Name(), Passed: true, Score: 0.6, Severity: issue.SeverityWarning, Messages: over}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityWarning}
}

// docstringRule measures the ratio of documented callables.
type docstringRule struct {
	minRatio float64
}

func (r *docstringRule) Name() string        { return "docstring" }
func (r *docstringRule) Severity() Severity  { return issue.SeverityWarning }
func (r *docstringRule) BaseWeight() float64 { return 0.5 }
func (r *docstringRule) ThreadSafe() bool    { return true }
func (r *docstringRule) Check(ctx context.Context, code string) Result {
	tree := parseOrNil(code)
	if tree == nil {
		return skip(r.Name(), "code did not parse")
	}
	total, documented := 0, 0
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		if n.Kind != pyast.KindFunctionDef && n.Kind != pyast.KindAsyncFunctionDef && n.Kind != pyast.KindClassDef {
			return true
		}
		total++
		if hasDocstring(n) {
			documented++
		}
		return true
	})
	if total == 0 {
		return skip(r.Name(), "no documentable callables")
	}
	ratio := float64(documented) / float64(total)
	if ratio < r.minRatio {
		return Result{RuleName: r.Name(), Passed: true, Score: ratio, Severity: issue.SeverityWarning,
			Messages: []string{fmt.Sprintf("%d/%d callables documented (%.0f%%, below %.0f%%)", documented, total, ratio*100, r.minRatio*100)}}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: ratio, Severity: issue.SeverityWarning}
}

func hasDocstring(n *pyast.Node) bool {
	if len(n.Body) == 0 {
		return false
	}
	first := n.Body[0]
	return first.Kind == pyast.KindExprStmt && len(first.HeaderTokens) == 1 && first.HeaderTokens[0].Kind == pyast.TokString
}

// typeHintRule measures the ratio of public function signatures with a
// return annotation ("-> ...").
type typeHintRule struct {
	minRatio float64
}

func (r *typeHintRule) Name() string        { return "typehints" }
func (r *typeHintRule) Severity() Severity  { return issue.SeverityWarning }
func (r *typeHintRule) BaseWeight() float64 { return 0.5 }
func (r *typeHintRule) ThreadSafe() bool    { return true }
func (r *typeHintRule) Check(ctx context.Context, code string) Result {
	tree := parseOrNil(code)
	if tree == nil {
		return skip(r.Name(), "code did not parse")
	}
	total, hinted := 0, 0
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		if n.Kind != pyast.KindFunctionDef && n.Kind != pyast.KindAsyncFunctionDef {
			return true
		}
		if strings.HasPrefix(n.Name, "_") {
			return true
		}
		total++
		for _, t := range n.HeaderTokens {
			if t.Kind == pyast.TokOp && t.Text == "->" {
				hinted++
				break
			}
		}
		return true
	})
	if total == 0 {
		return skip(r.Name(), "no public functions")
	}
	ratio := float64(hinted) / float64(total)
	if ratio < r.minRatio {
		return Result{RuleName: r.Name(), Passed: true, Score: ratio, Severity: issue.SeverityWarning,
			Messages: []string{fmt.Sprintf("%d/%d public functions return-annotated (%.0f%%, below %.0f%%)", hinted, total, ratio*100, r.minRatio*100)}}
	}
	return Result{RuleName: r.Name(), Passed: true, Score: ratio, Severity: issue.SeverityWarning}
}

// patternAlignmentRule scores presence of a set of "good OSS idiom" markers,
// scaled to full credit at a configurable coverage fraction.
type patternAlignmentRule struct {
	fullCreditAt float64
}

var alignmentMarkers = []*regexp.Regexp{
	regexp.MustCompile(`->\s*\w`),                 // type hints
	regexp.MustCompile(`"""`),                     // docstrings
	regexp.MustCompile(`\btry\s*:`),               // structured error handling
	regexp.MustCompile(`\blogging\.getLogger\b`),  // logging setup
	regexp.MustCompile(`\basync def\b`),           // async usage
	regexp.MustCompile(`@dataclass\b`),            // dataclass usage
	regexp.MustCompile(`\bfrom pathlib import\b|\bpathlib\.Path\b`), // path-library usage
}

func (r *patternAlignmentRule) Name() string        { return "oss_patterns" }
func (r *patternAlignmentRule) Severity() Severity  { return issue.SeverityInfo }
func (r *patternAlignmentRule) BaseWeight() float64 { return 1.5 }
func (r *patternAlignmentRule) ThreadSafe() bool    { return true }
func (r *patternAlignmentRule) Check(ctx context.Context, code string) Result {
	matched := 0
	for _, m := range alignmentMarkers {
		if m.MatchString(code) {
			matched++
		}
	}
	fraction := float64(matched) / float64(len(alignmentMarkers))
	score := fraction / r.fullCreditAt
	if score > 1.0 {
		score = 1.0
	}
	return Result{RuleName: r.Name(), Passed: true, Score: score, Severity: issue.SeverityInfo,
		Messages: []string{fmt.Sprintf("%d/%d idiom markers present", matched, len(alignmentMarkers))}}
}
