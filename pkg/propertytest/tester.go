package propertytest

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
)

// Tester runs the general properties (and an optional custom predicate)
// against one Callable, generating bounded random arguments from its
// inferred parameter annotations.
type Tester struct {
	MaxExamples    int
	Seed           int64
	TimeoutPerTest int // not read by Tester; MaxExamples alone bounds the examples per test
}

// NewTester returns a Tester with the original's default example count.
func NewTester() *Tester {
	return &Tester{MaxExamples: 100, Seed: 1}
}

// CustomProperty receives the keyword arguments passed to one call and its
// return value, and reports whether the property held.
type CustomProperty func(args map[string]interface{}, ret interface{}) bool

func (t *Tester) examples() int {
	if t.MaxExamples <= 0 {
		return 100
	}
	return t.MaxExamples
}

func (t *Tester) rng() *rand.Rand {
	return rand.New(rand.NewSource(t.Seed))
}

func (t *Tester) generateArgs(r *rand.Rand, params []Param) map[string]interface{} {
	args := make(map[string]interface{}, len(params))
	for _, p := range params {
		args[p.Name] = GeneratorFor(p.Annotation)(r)
	}
	return args
}

// TestNoException checks that the callable never raises for any generated
// input, across MaxExamples trials. Zero-parameter functions are called
// exactly once, matching the original's direct-call special case.
func (t *Tester) TestNoException(ctx context.Context, c *Callable) Result {
	r := t.rng()
	trials := t.examples()
	if len(c.Params) == 0 {
		trials = 1
	}
	for i := 0; i < trials; i++ {
		args := t.generateArgs(r, c.Params)
		res, err := c.Call(ctx, args)
		if err != nil {
			return Result{Property: PropertyNoException, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		if res.Raised {
			return Result{Property: PropertyNoException, Passed: false,
				Counterexample: args,
				ErrorMessage:   fmt.Sprintf("%s: %s", res.ErrorType, res.ErrorText),
				ExamplesTested: i + 1}
		}
	}
	return Result{Property: PropertyNoException, Passed: true, ExamplesTested: trials}
}

// TestDeterministic calls the callable twice with the same arguments and
// compares results, across MaxExamples trials.
func (t *Tester) TestDeterministic(ctx context.Context, c *Callable) Result {
	r := t.rng()
	trials := t.examples()
	for i := 0; i < trials; i++ {
		args := t.generateArgs(r, c.Params)
		first, err := c.Call(ctx, args)
		if err != nil {
			return Result{Property: PropertyDeterministic, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		second, err := c.Call(ctx, args)
		if err != nil {
			return Result{Property: PropertyDeterministic, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		if first.Raised != second.Raised || !reflect.DeepEqual(first.ReturnValue, second.ReturnValue) {
			return Result{Property: PropertyDeterministic, Passed: false,
				Counterexample: args,
				ErrorMessage:   "two calls with identical arguments produced different results",
				ExamplesTested: i + 1}
		}
	}
	return Result{Property: PropertyDeterministic, Passed: true, ExamplesTested: trials}
}

// TestIdempotent checks f(f(x)) == f(x), which only makes sense for
// single-argument functions whose return type could plausibly feed back in
// as the next call's argument. Any other arity reports NotApplicable,
// mirroring the original's "applies only to functions with one argument"
// automatic pass.
func (t *Tester) TestIdempotent(ctx context.Context, c *Callable) Result {
	if len(c.Params) != 1 {
		return Result{Property: PropertyIdempotent, Passed: true, NotApplicable: true,
			ErrorMessage: "applies only to functions with one argument"}
	}

	r := t.rng()
	trials := t.examples()
	paramName := c.Params[0].Name
	for i := 0; i < trials; i++ {
		args := t.generateArgs(r, c.Params)
		first, err := c.Call(ctx, args)
		if err != nil {
			return Result{Property: PropertyIdempotent, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		if first.Raised {
			continue
		}
		second, err := c.Call(ctx, map[string]interface{}{paramName: first.ReturnValue})
		if err != nil {
			return Result{Property: PropertyIdempotent, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		if second.Raised {
			continue
		}
		if !reflect.DeepEqual(first.ReturnValue, second.ReturnValue) {
			return Result{Property: PropertyIdempotent, Passed: false,
				Counterexample: args,
				ErrorMessage:   "f(f(x)) differs from f(x)",
				ExamplesTested: i + 1}
		}
	}
	return Result{Property: PropertyIdempotent, Passed: true, ExamplesTested: trials}
}

// TestCustomProperty checks an arbitrary predicate over each generated
// call's arguments and return value.
func (t *Tester) TestCustomProperty(ctx context.Context, c *Callable, check CustomProperty) Result {
	r := t.rng()
	trials := t.examples()
	for i := 0; i < trials; i++ {
		args := t.generateArgs(r, c.Params)
		res, err := c.Call(ctx, args)
		if err != nil {
			return Result{Property: PropertyInvariant, Passed: false,
				ErrorMessage: fmt.Sprintf("sandbox error: %v", err), ExamplesTested: i + 1}
		}
		if res.Raised {
			continue
		}
		if !check(args, res.ReturnValue) {
			return Result{Property: PropertyInvariant, Passed: false,
				Counterexample: args,
				ErrorMessage:   "custom property violated",
				ExamplesTested: i + 1}
		}
	}
	return Result{Property: PropertyInvariant, Passed: true, ExamplesTested: trials}
}

// RunAllTests runs the three general properties (not the custom one,
// which needs a caller-supplied predicate) and bundles them into a
// SuiteResult, matching the original's run_all_tests default set.
func (t *Tester) RunAllTests(ctx context.Context, c *Callable) SuiteResult {
	return SuiteResult{
		FunctionName: c.FuncName,
		Results: []Result{
			t.TestNoException(ctx, c),
			t.TestDeterministic(ctx, c),
			t.TestIdempotent(ctx, c),
		},
	}
}
