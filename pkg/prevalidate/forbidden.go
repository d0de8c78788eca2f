package prevalidate

import (
	"fmt"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

// forbiddenPatternVisitor walks a parsed tree looking for forbidden
// imports, forbidden built-in calls, forbidden dunder attribute access, and
// the two recursion/loop heuristics. pyast keeps expression bodies as raw
// token spans rather than an expression tree, so calls and attribute
// access are found by scanning each statement's token span rather than by
// visiting dedicated Call/Attribute node kinds.
type forbiddenPatternVisitor struct {
	forbiddenImports    map[string]bool
	forbiddenBuiltins   map[string]bool
	forbiddenAttributes map[string]bool
	issues              []issue.Issue
}

func newForbiddenPatternVisitor(imports, builtins, attrs map[string]bool) *forbiddenPatternVisitor {
	return &forbiddenPatternVisitor{forbiddenImports: imports, forbiddenBuiltins: builtins, forbiddenAttributes: attrs}
}

func (v *forbiddenPatternVisitor) run(tree *pyast.Tree) {
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		switch n.Kind {
		case pyast.KindImport:
			v.checkImport(n)
		case pyast.KindImportFrom:
			v.checkImportFrom(n)
		case pyast.KindFunctionDef, pyast.KindAsyncFunctionDef:
			v.checkRecursion(n)
			v.scanTokens(n.HeaderTokens, n.Line, n.Column)
		case pyast.KindWhile:
			v.checkWhileTrue(n)
			v.scanTokens(n.Test, n.Line, n.Column)
		case pyast.KindIf, pyast.KindFor, pyast.KindWith:
			v.scanTokens(n.Test, n.Line, n.Column)
			v.scanTokens(n.HeaderTokens, n.Line, n.Column)
		case pyast.KindReturn, pyast.KindExprStmt:
			v.scanTokens(n.HeaderTokens, n.Line, n.Column)
		}
		return true
	})
}

func (v *forbiddenPatternVisitor) checkImport(n *pyast.Node) {
	for _, full := range n.Names {
		root := strings.SplitN(full, ".", 2)[0]
		if v.forbiddenImports[root] {
			v.issues = append(v.issues, issue.New(issue.SeverityCritical, issue.PV001ForbiddenImport,
				fmt.Sprintf("forbidden import: %s", full), n.Line, n.Column))
		}
	}
}

func (v *forbiddenPatternVisitor) checkImportFrom(n *pyast.Node) {
	if n.Name == "" {
		return
	}
	root := strings.SplitN(n.Name, ".", 2)[0]
	if v.forbiddenImports[root] {
		v.issues = append(v.issues, issue.New(issue.SeverityCritical, issue.PV001ForbiddenImport,
			fmt.Sprintf("forbidden import from module: %s", n.Name), n.Line, n.Column))
	}
}

// scanTokens inspects a flat token span for NAME( calls against the
// forbidden-builtins set and .ATTR access against the forbidden-attributes
// set — the token-stream equivalent of visiting ast.Call and ast.Attribute.
func (v *forbiddenPatternVisitor) scanTokens(toks []pyast.Token, fallbackLine, fallbackCol int) {
	for i, t := range toks {
		if t.Kind != pyast.TokName {
			continue
		}
		if i+1 < len(toks) && toks[i+1].Kind == pyast.TokOp && toks[i+1].Text == "(" && v.forbiddenBuiltins[t.Text] {
			v.issues = append(v.issues, issue.New(issue.SeverityCritical, issue.PV002ForbiddenBuiltin,
				fmt.Sprintf("forbidden function call: %s()", t.Text), line(t, fallbackLine), col(t, fallbackCol)))
		}
		if i > 0 && toks[i-1].Kind == pyast.TokOp && toks[i-1].Text == "." && v.forbiddenAttributes[t.Text] {
			v.issues = append(v.issues, issue.New(issue.SeverityCritical, issue.PV003ForbiddenAttr,
				fmt.Sprintf("forbidden attribute access: %s", t.Text), line(t, fallbackLine), col(t, fallbackCol)))
		}
	}
}

func line(t pyast.Token, fallback int) int {
	if t.Line > 0 {
		return t.Line
	}
	return fallback
}

func col(t pyast.Token, fallback int) int {
	if t.Line > 0 {
		return t.Column
	}
	return fallback
}

// checkRecursion is a heuristic, not a control-flow analysis: it flags a
// function that calls itself by name somewhere in its body but never
// returns an explicit value anywhere in that body.
func (v *forbiddenPatternVisitor) checkRecursion(fn *pyast.Node) {
	// Matches ast.walk(node) in the original: every descendant counts,
	// including statements that actually live inside a nested function def.
	hasReturn := false
	hasSelfCall := false
	pyast.Walk(fn, func(n *pyast.Node) bool {
		if n == fn {
			return true
		}
		if n.Kind == pyast.KindReturn && n.Name == "value" {
			hasReturn = true
		}
		if n.Kind == pyast.KindReturn || n.Kind == pyast.KindExprStmt {
			if callsName(n.HeaderTokens, fn.Name) {
				hasSelfCall = true
			}
		}
		return true
	})
	if hasSelfCall && !hasReturn {
		v.issues = append(v.issues, issue.New(issue.SeverityWarning, issue.PV004RecursionNoBase,
			fmt.Sprintf("function %q calls itself with no explicit return — possible unbounded recursion", fn.Name),
			fn.Line, fn.Column))
	}
}

func callsName(toks []pyast.Token, name string) bool {
	for i, t := range toks {
		if t.Kind == pyast.TokName && t.Text == name && i+1 < len(toks) &&
			toks[i+1].Kind == pyast.TokOp && toks[i+1].Text == "(" {
			return true
		}
	}
	return false
}

func (v *forbiddenPatternVisitor) checkWhileTrue(n *pyast.Node) {
	if !isLiteralTrue(n.Test) {
		return
	}
	// Matches ast.walk(node) in the original: a break anywhere in the
	// subtree counts, even one that actually belongs to a nested loop.
	hasBreak := false
	pyast.Walk(n, func(c *pyast.Node) bool {
		if c.Kind == pyast.KindBreak {
			hasBreak = true
		}
		return true
	})
	if !hasBreak {
		v.issues = append(v.issues, issue.New(issue.SeverityWarning, issue.PV005WhileTrueNoBreak,
			"while True loop with no break — possible infinite loop", n.Line, n.Column))
	}
}

func isLiteralTrue(test []pyast.Token) bool {
	return len(test) == 1 && test[0].Kind == pyast.TokName && test[0].Text == "True"
}
