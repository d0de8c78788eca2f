// Package propertytest runs general correctness properties (no-exception,
// determinism, idempotence) and an optional custom predicate against a
// Python callable extracted from validated code, using argument generators
// derived from the callable's type annotations.
package propertytest

// PropertyType names one of the properties a Tester can check.
type PropertyType string

const (
	PropertyNoException   PropertyType = "no_exception"
	PropertyDeterministic PropertyType = "deterministic"
	PropertyIdempotent    PropertyType = "idempotent"
	PropertyInvariant     PropertyType = "invariant" // custom predicate
)

// Result is the outcome of one property check against one callable.
type Result struct {
	Property        PropertyType
	Passed          bool
	NotApplicable   bool
	Counterexample  map[string]interface{}
	ErrorMessage    string
	ExamplesTested  int
}

// SuiteResult bundles every property run against one function.
type SuiteResult struct {
	FunctionName string
	Results      []Result
}

// AllPassed reports whether every non-skipped result passed.
func (s SuiteResult) AllPassed() bool {
	for _, r := range s.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// PassedCount/FailedCount mirror the original's summary counters.
func (s SuiteResult) PassedCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Passed {
			n++
		}
	}
	return n
}

func (s SuiteResult) FailedCount() int {
	return len(s.Results) - s.PassedCount()
}
