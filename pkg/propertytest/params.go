package propertytest

import (
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

// Param is one inferred parameter: its name and a normalized type
// annotation string ("int", "str", "List[int]", "Optional[int]", ...), or
// an empty Annotation when the source carried no hint.
type Param struct {
	Name       string
	Annotation string
}

// InferParams reads a function definition's parameter list straight out of
// its header tokens — pyast keeps expression bodies as flat token spans,
// so there's no parsed signature to walk, only text to scan for
// "name[: annotation][, ...]" between the outer parens.
func InferParams(fn *pyast.Node) []Param {
	toks := fn.HeaderTokens
	start := indexOf(toks, "(")
	end := matchingParen(toks, start)
	if start == -1 || end == -1 {
		return nil
	}

	var params []Param
	depth := 0
	var current []pyast.Token
	flush := func() {
		p := parseOneParam(current)
		if p != nil {
			params = append(params, *p)
		}
		current = nil
	}
	for i := start + 1; i < end; i++ {
		t := toks[i]
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 0 {
				flush()
				continue
			}
		}
		current = append(current, t)
	}
	flush()
	return params
}

func parseOneParam(toks []pyast.Token) *Param {
	toks = trimTokens(toks)
	if len(toks) == 0 {
		return nil
	}
	name := strings.TrimLeft(toks[0].Text, "*")
	if name == "self" || name == "cls" || name == "" {
		return nil
	}
	colonIdx := indexOf(toks, ":")
	if colonIdx == -1 {
		return &Param{Name: name}
	}
	// Stop at a default-value "=" at depth 0 within the annotation span.
	eqIdx := -1
	depth := 0
	for i := colonIdx + 1; i < len(toks); i++ {
		switch toks[i].Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "=":
			if depth == 0 {
				eqIdx = i
			}
		}
		if eqIdx != -1 {
			break
		}
	}
	annotEnd := len(toks)
	if eqIdx != -1 {
		annotEnd = eqIdx
	}
	var b strings.Builder
	for _, t := range toks[colonIdx+1 : annotEnd] {
		b.WriteString(t.Text)
	}
	return &Param{Name: name, Annotation: strings.TrimSpace(b.String())}
}

func trimTokens(toks []pyast.Token) []pyast.Token {
	i, j := 0, len(toks)
	for i < j && (toks[i].Kind == pyast.TokNewline || toks[i].Kind == pyast.TokIndent) {
		i++
	}
	return toks[i:j]
}

func indexOf(toks []pyast.Token, text string) int {
	for i, t := range toks {
		if t.Text == text {
			return i
		}
	}
	return -1
}

func matchingParen(toks []pyast.Token, openIdx int) int {
	if openIdx == -1 {
		return -1
	}
	depth := 0
	for i := openIdx; i < len(toks); i++ {
		switch toks[i].Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ReturnAnnotation reports whether the def's header declares "-> T",
// and if so returns the normalized T.
func ReturnAnnotation(fn *pyast.Node) (string, bool) {
	toks := fn.HeaderTokens
	for i, t := range toks {
		if t.Text == "->" {
			var b strings.Builder
			for j := i + 1; j < len(toks) && toks[j].Text != ":"; j++ {
				b.WriteString(toks[j].Text)
			}
			return strings.TrimSpace(b.String()), true
		}
	}
	return "", false
}
