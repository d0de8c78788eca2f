package sandbox

import (
	"context"
)

// RestrictedExecutor stands in for a restricted-compile, same-process
// execution engine. Go has no equivalent of a restricted Python bytecode
// compiler to embed, so this backend always reports sandbox_error — the
// exact behavior the original falls back to when its own support library
// (RestrictedPython) isn't installed.
type RestrictedExecutor struct {
	cfg Config
}

func (e *RestrictedExecutor) Execute(ctx context.Context, code string, extraGlobals map[string]interface{}) ExecutionResult {
	return ExecutionResult{
		Status:       StatusSandboxError,
		ErrorMessage: "restricted in-process execution is unavailable: no embeddable Python interpreter in this runtime",
	}
}

var _ Executor = (*RestrictedExecutor)(nil)
