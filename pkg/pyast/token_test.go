package pyast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSimpleAssignment(t *testing.T) {
	toks, err := Tokenize("x = 1\n")
	require.NoError(t, err)
	kinds := kindsOf(toks)
	assert.Equal(t, []TokenKind{TokName, TokOp, TokNumber, TokNewline, TokEOF}, kinds)
}

func TestTokenizeIndentDedent(t *testing.T) {
	src := "if x:\n    y = 1\nz = 2\n"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	kinds := kindsOf(toks)
	assert.Contains(t, kinds, TokIndent)
	assert.Contains(t, kinds, TokDedent)
}

func TestTokenizeUnterminatedStringReportsLocation(t *testing.T) {
	_, err := Tokenize("x = \"abc\n")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)
}

func TestTokenizeUnbalancedBrackets(t *testing.T) {
	_, err := Tokenize("x = (1, 2\n")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestTokenizeBracketedContinuationSuppressesNewline(t *testing.T) {
	src := "x = (1,\n     2)\n"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	newlines := 0
	for _, tok := range toks {
		if tok.Kind == TokNewline {
			newlines++
		}
	}
	assert.Equal(t, 1, newlines)
}

func TestTokenizeTripleQuotedString(t *testing.T) {
	src := "x = \"\"\"hello\nworld\"\"\"\n"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	var found bool
	for _, tok := range toks {
		if tok.Kind == TokString {
			found = true
			assert.Contains(t, tok.Text, "hello")
		}
	}
	assert.True(t, found)
}

func TestTokenizeStringPrefix(t *testing.T) {
	toks, err := Tokenize("x = r\"\\d+\"\n")
	require.NoError(t, err)
	var text string
	for _, tok := range toks {
		if tok.Kind == TokString {
			text = tok.Text
		}
	}
	assert.Equal(t, "r\"\\d+\"", text)
}

func TestTokenizeUnindentMismatch(t *testing.T) {
	src := "if x:\n    y = 1\n  z = 2\n"
	_, err := Tokenize(src)
	require.Error(t, err)
}

func kindsOf(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}
