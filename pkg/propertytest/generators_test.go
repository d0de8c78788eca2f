package propertytest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorForIntIsBounded(t *testing.T) {
	gen := GeneratorFor("int")
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		v := gen(r).(int64)
		assert.GreaterOrEqual(t, v, int64(-1000))
		assert.LessOrEqual(t, v, int64(1000))
	}
}

func TestGeneratorForUnannotatedUsesNarrowRange(t *testing.T) {
	gen := GeneratorFor("")
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		v := gen(r).(int64)
		assert.GreaterOrEqual(t, v, int64(-100))
		assert.LessOrEqual(t, v, int64(100))
	}
}

func TestGeneratorForStringRespectsMaxLength(t *testing.T) {
	gen := GeneratorFor("str")
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		v := gen(r).(string)
		assert.LessOrEqual(t, len(v), 100)
	}
}

func TestGeneratorForOptionalSometimesYieldsNil(t *testing.T) {
	gen := GeneratorFor("Optional[int]")
	r := rand.New(rand.NewSource(7))
	sawNil := false
	for i := 0; i < 200; i++ {
		if gen(r) == nil {
			sawNil = true
			break
		}
	}
	assert.True(t, sawNil)
}

func TestGeneratorForListProducesElementsFromInnerType(t *testing.T) {
	gen := GeneratorFor("List[int]")
	r := rand.New(rand.NewSource(3))
	v := gen(r).([]interface{})
	for _, e := range v {
		_, ok := e.(int64)
		assert.True(t, ok)
	}
}

func TestGeneratorForBoolProducesBothValues(t *testing.T) {
	gen := GeneratorFor("bool")
	r := rand.New(rand.NewSource(2))
	seen := map[bool]bool{}
	for i := 0; i < 50; i++ {
		seen[gen(r).(bool)] = true
	}
	assert.True(t, seen[true] && seen[false])
}

func TestGeneratorForUnknownTypeFallsBackToInt(t *testing.T) {
	gen := GeneratorFor("SomeCustomClass")
	r := rand.New(rand.NewSource(1))
	_, ok := gen(r).(int64)
	assert.True(t, ok)
}
