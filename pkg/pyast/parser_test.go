package pyast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImports(t *testing.T) {
	tree, err := Parse("import os\nfrom collections import OrderedDict, defaultdict\n")
	require.NoError(t, err)
	require.Len(t, tree.Root.Body, 2)

	imp := tree.Root.Body[0]
	assert.Equal(t, KindImport, imp.Kind)
	assert.Equal(t, []string{"os"}, imp.Names)

	from := tree.Root.Body[1]
	assert.Equal(t, KindImportFrom, from.Kind)
	assert.Equal(t, "collections", from.Name)
	assert.Equal(t, []string{"OrderedDict", "defaultdict"}, from.Names)
}

func TestParseFunctionDef(t *testing.T) {
	src := "def add(a, b):\n    return a + b\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, tree.Root.Body, 1)

	fn := tree.Root.Body[0]
	assert.Equal(t, KindFunctionDef, fn.Kind)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Body, 1)
	assert.Equal(t, KindReturn, fn.Body[0].Kind)
}

func TestParseAsyncFunctionDef(t *testing.T) {
	tree, err := Parse("async def fetch():\n    pass\n")
	require.NoError(t, err)
	fn := tree.Root.Body[0]
	assert.Equal(t, KindAsyncFunctionDef, fn.Kind)
	assert.True(t, fn.IsAsync)
}

func TestParseClassDef(t *testing.T) {
	src := "class Widget:\n    def __init__(self):\n        pass\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	cls := tree.Root.Body[0]
	assert.Equal(t, KindClassDef, cls.Kind)
	assert.Equal(t, "Widget", cls.Name)
	require.Len(t, cls.Body, 1)
	assert.Equal(t, KindFunctionDef, cls.Body[0].Kind)
}

func TestParseIfElifElseChain(t *testing.T) {
	src := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	top := tree.Root.Body[0]
	assert.Equal(t, KindIf, top.Kind)
	require.Len(t, top.Orelse, 1)

	elifNode := top.Orelse[0]
	assert.Equal(t, KindIf, elifNode.Kind)
	require.Len(t, elifNode.Orelse, 1)
	assert.Equal(t, KindExprStmt, elifNode.Orelse[0].Kind)
}

func TestParseWhileTrueCondition(t *testing.T) {
	src := "while True:\n    break\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	loop := tree.Root.Body[0]
	assert.Equal(t, KindWhile, loop.Kind)
	require.Len(t, loop.Test, 1)
	assert.Equal(t, "True", loop.Test[0].Text)
	require.Len(t, loop.Body, 1)
	assert.Equal(t, KindBreak, loop.Body[0].Kind)
}

func TestParseTryExceptFinally(t *testing.T) {
	src := "try:\n    risky()\nexcept ValueError:\n    handle()\nfinally:\n    cleanup()\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	tryNode := tree.Root.Body[0]
	assert.Equal(t, KindTry, tryNode.Kind)
	require.Len(t, tryNode.Handlers, 1)
	assert.Equal(t, KindExceptHandler, tryNode.Handlers[0].Kind)
	require.Len(t, tryNode.Finally, 1)
}

func TestParseOneLinerSuite(t *testing.T) {
	tree, err := Parse("if x: return 1\n")
	require.NoError(t, err)
	ifNode := tree.Root.Body[0]
	require.Len(t, ifNode.Body, 1)
	assert.Equal(t, KindReturn, ifNode.Body[0].Kind)
}

func TestParseMissingColonIsParseError(t *testing.T) {
	_, err := Parse("if x\n    y = 1\n")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
}

func TestParseExpressionStatement(t *testing.T) {
	tree, err := Parse("os.system(cmd)\n")
	require.NoError(t, err)
	require.Len(t, tree.Root.Body, 1)
	expr := tree.Root.Body[0]
	assert.Equal(t, KindExprStmt, expr.Kind)
	assert.NotEmpty(t, expr.HeaderTokens)
}
