package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntacticRulePassesValidCode(t *testing.T) {
	r := &syntacticRule{}
	res := r.Check(context.Background(), "def f():\n    return 1\n")
	assert.True(t, res.Passed)
}

func TestSyntacticRuleFailsOnBadCode(t *testing.T) {
	r := &syntacticRule{}
	res := r.Check(context.Background(), "def f(:\n")
	assert.False(t, res.Passed)
}

func TestSafetyRuleFlagsEval(t *testing.T) {
	r := &safetyRule{}
	res := r.Check(context.Background(), "def f(x):\n    return eval(x)\n")
	assert.False(t, res.Passed)
}

func TestSafetyRulePassesCleanCode(t *testing.T) {
	r := &safetyRule{}
	res := r.Check(context.Background(), "def f(x):\n    return x + 1\n")
	assert.True(t, res.Passed)
}

func TestImportsRuleFlagsForbiddenImport(t *testing.T) {
	r := &importsRule{forbidden: map[string]bool{"os": true}}
	res := r.Check(context.Background(), "import os\n\ndef f():\n    pass\n")
	assert.False(t, res.Passed)
}

func TestImportsRuleFlagsForbiddenImportFrom(t *testing.T) {
	r := &importsRule{forbidden: map[string]bool{"subprocess": true}}
	res := r.Check(context.Background(), "from subprocess import run\n\ndef f():\n    pass\n")
	assert.False(t, res.Passed)
}

func TestLengthRuleFailsTooLong(t *testing.T) {
	r := &lengthRule{minLines: 1, maxLines: 2, shortWarnBelow: 1}
	res := r.Check(context.Background(), "a\nb\nc\n")
	assert.False(t, res.Passed)
}

func TestLengthRuleWarnsTooShort(t *testing.T) {
	r := &lengthRule{minLines: 1, maxLines: 100, shortWarnBelow: 5}
	res := r.Check(context.Background(), "a\n")
	assert.True(t, res.Passed)
	assert.Less(t, res.Score, 1.0)
}

func TestComplexityRuleFlagsDeeplyBranchingFunction(t *testing.T) {
	r := &complexityRule{perFunctionThreshold: 2}
	res := r.Check(context.Background(), `def f(x):
    if x:
        pass
    if x and x:
        pass
    while x:
        pass
`)
	assert.Less(t, res.Score, 1.0)
}

func TestDocstringRuleMeasuresRatio(t *testing.T) {
	r := &docstringRule{minRatio: 0.5}
	res := r.Check(context.Background(), `def documented():
    """does a thing."""
    return 1


def undocumented():
    return 2
`)
	assert.InDelta(t, 0.5, res.Score, 0.001)
}

func TestTypeHintRuleMeasuresRatio(t *testing.T) {
	r := &typeHintRule{minRatio: 0.5}
	res := r.Check(context.Background(), `def hinted() -> int:
    return 1


def unhinted():
    return 2
`)
	assert.InDelta(t, 0.5, res.Score, 0.001)
}

func TestPatternAlignmentRuleScalesToFullCreditAt(t *testing.T) {
	r := &patternAlignmentRule{fullCreditAt: 1.0}
	res := r.Check(context.Background(), "def f() -> int:\n    return 1\n")
	assert.True(t, res.Score > 0 && res.Score < 1.0)
}

func TestDefaultPythonRulesReturnsAllCategories(t *testing.T) {
	rules := DefaultPythonRules()
	assert.Len(t, rules, 16)
}
