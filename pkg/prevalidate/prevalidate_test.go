package prevalidate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

func TestValidateCleanCodeIsValid(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def add(a, b):\n    return a + b\n")
	assert.True(t, res.IsValid)
	assert.False(t, res.HasCritical())
	require.NotNil(t, res.Tree)
}

func TestValidateEmptyCodeIsCritical(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("   \n\n")
	assert.False(t, res.IsValid)
	require.NotEmpty(t, res.Issues)
	assert.Equal(t, issue.PV013EmptyCode, res.Issues[0].Code())
}

func TestValidateForbiddenImportIsCritical(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("import os\nos.getcwd()\n")
	assert.False(t, res.IsValid)
	assert.True(t, res.HasCritical())
	assertHasCode(t, res.Issues, issue.PV001ForbiddenImport)
}

func TestValidateForbiddenImportFromIsCritical(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("from subprocess import run\n")
	assertHasCode(t, res.Issues, issue.PV001ForbiddenImport)
}

func TestValidateForbiddenBuiltinCall(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("x = eval(user_input)\n")
	assertHasCode(t, res.Issues, issue.PV002ForbiddenBuiltin)
}

func TestValidateForbiddenAttributeAccess(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("y = obj.__class__.__bases__\n")
	assertHasCode(t, res.Issues, issue.PV003ForbiddenAttr)
}

func TestValidateRecursionWithoutReturnIsWarning(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def loop(n):\n    loop(n - 1)\n")
	found := assertHasCode(t, res.Issues, issue.PV004RecursionNoBase)
	assert.Equal(t, issue.SeverityWarning, found.Severity())
}

func TestValidateRecursionWithReturnIsClean(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def fact(n):\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\n")
	assertMissingCode(t, res.Issues, issue.PV004RecursionNoBase)
}

func TestValidateWhileTrueWithoutBreakIsWarning(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def spin():\n    while True:\n        do_work()\n")
	assertHasCode(t, res.Issues, issue.PV005WhileTrueNoBreak)
}

func TestValidateWhileTrueWithBreakIsClean(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def spin():\n    while True:\n        if done():\n            break\n")
	assertMissingCode(t, res.Issues, issue.PV005WhileTrueNoBreak)
}

func TestValidateSyntaxErrorIsCriticalWithLocation(t *testing.T) {
	p := New(NewConfig())
	res := p.Validate("def f(:\n    pass\n")
	assert.False(t, res.IsValid)
	require.NotEmpty(t, res.Issues)
	assert.Equal(t, issue.PV000SyntaxError, res.Issues[0].Code())
	assert.Nil(t, res.Tree)
}

func TestValidateTooManyLinesIsCriticalAndShortCircuits(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxLines = 3
	p := New(cfg)
	res := p.Validate("x = 1\ny = 2\nz = 3\nw = 4\n")
	assert.False(t, res.IsValid)
	assertHasCode(t, res.Issues, issue.PV011TooManyLines)
	assert.Nil(t, res.Tree)
}

func TestValidateNestingTooDeep(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxNesting = 2
	p := New(cfg)
	res := p.Validate("def f():\n    if a:\n        while b:\n            for c in d:\n                pass\n")
	assertHasCode(t, res.Issues, issue.PV012TooDeeplyNested)
}

func TestValidateDangerousStringPatternsCapAtThree(t *testing.T) {
	p := New(NewConfig())
	code := strings.Repeat("s = \"__x__\"\n", 5)
	res := p.Validate(code)
	count := 0
	for _, i := range res.Issues {
		if i.Code() == issue.PV020DunderInString {
			count++
		}
	}
	assert.Equal(t, 3, count)
}

func TestValidateCustomValidator(t *testing.T) {
	cfg := NewConfig()
	called := false
	cfg.CustomValidators = []CustomValidator{func(tree *pyast.Tree) []issue.Issue {
		called = true
		return []issue.Issue{issue.New(issue.SeverityInfo, "CUSTOM001", "custom check ran", 0, 0)}
	}}
	p := New(cfg)
	res := p.Validate("x = 1\n")
	assert.True(t, called)
	assertHasCode(t, res.Issues, "CUSTOM001")
}

func assertHasCode(t *testing.T, issues []issue.Issue, code issue.Code) issue.Issue {
	t.Helper()
	for _, i := range issues {
		if i.Code() == code {
			return i
		}
	}
	t.Fatalf("expected an issue with code %s, got %v", code, issues)
	return issue.Issue{}
}

func assertMissingCode(t *testing.T, issues []issue.Issue, code issue.Code) {
	t.Helper()
	for _, i := range issues {
		if i.Code() == code {
			t.Fatalf("did not expect an issue with code %s, got %v", code, i)
		}
	}
}
