package propertytest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

func headerTokens(src string) []pyast.Token {
	tree, err := pyast.Parse(src)
	if err != nil {
		panic(err)
	}
	var found []pyast.Token
	pyast.Walk(tree.Root, func(n *pyast.Node) bool {
		if found == nil && n.Kind == pyast.KindFunctionDef {
			found = n.HeaderTokens
		}
		return found == nil
	})
	if found != nil {
		return found
	}
	panic("no function found in: " + src)
}

func TestInferParamsReadsAnnotations(t *testing.T) {
	toks := headerTokens("def add(a: int, b: int) -> int:\n    return a + b\n")
	params := InferParams(&pyast.Node{HeaderTokens: toks})
	assert.Equal(t, []Param{{Name: "a", Annotation: "int"}, {Name: "b", Annotation: "int"}}, params)
}

func TestInferParamsSkipsSelf(t *testing.T) {
	toks := headerTokens("class C:\n    def m(self, x: str) -> str:\n        return x\n")
	params := InferParams(&pyast.Node{HeaderTokens: toks})
	assert.Equal(t, []Param{{Name: "x", Annotation: "str"}}, params)
}

func TestInferParamsHandlesDefaultValues(t *testing.T) {
	toks := headerTokens("def f(n: int = 5) -> int:\n    return n\n")
	params := InferParams(&pyast.Node{HeaderTokens: toks})
	assert.Equal(t, []Param{{Name: "n", Annotation: "int"}}, params)
}

func TestInferParamsHandlesUnannotated(t *testing.T) {
	toks := headerTokens("def f(n):\n    return n\n")
	params := InferParams(&pyast.Node{HeaderTokens: toks})
	assert.Equal(t, []Param{{Name: "n", Annotation: ""}}, params)
}

func TestInferParamsHandlesGenericAnnotation(t *testing.T) {
	toks := headerTokens("def f(items: List[int]) -> int:\n    return len(items)\n")
	params := InferParams(&pyast.Node{HeaderTokens: toks})
	assert.Equal(t, []Param{{Name: "items", Annotation: "List[int]"}}, params)
}

func TestReturnAnnotationFound(t *testing.T) {
	toks := headerTokens("def f(x: int) -> str:\n    return str(x)\n")
	ret, ok := ReturnAnnotation(&pyast.Node{HeaderTokens: toks})
	assert.True(t, ok)
	assert.Equal(t, "str", ret)
}

func TestReturnAnnotationMissing(t *testing.T) {
	toks := headerTokens("def f(x):\n    return x\n")
	_, ok := ReturnAnnotation(&pyast.Node{HeaderTokens: toks})
	assert.False(t, ok)
}
