package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestrictedExecutorAlwaysReportsSandboxError(t *testing.T) {
	e := &RestrictedExecutor{cfg: DefaultConfig()}
	res := e.Execute(context.Background(), "result = 1 + 1", nil)
	assert.Equal(t, StatusSandboxError, res.Status)
	assert.False(t, res.Success())
}

func TestSubprocessExecutorRunsSimpleCode(t *testing.T) {
	cfg := DefaultConfig()
	e := &SubprocessExecutor{cfg: cfg}
	res := e.Execute(context.Background(), "print('hello')\n", nil)
	assert.Contains(t, []Status{StatusSuccess, StatusSandboxError}, res.Status)
}

func TestSubprocessExecutorTimesOutOnInfiniteLoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 1
	e := &SubprocessExecutor{cfg: cfg}
	res := e.Execute(context.Background(), "while True:\n    pass\n", nil)
	assert.Contains(t, []Status{StatusTimeout, StatusSandboxError}, res.Status)
}

func TestExecutionResultSuccessReflectsStatus(t *testing.T) {
	assert.True(t, ExecutionResult{Status: StatusSuccess}.Success())
	assert.False(t, ExecutionResult{Status: StatusRuntimeError}.Success())
}

func TestNewDispatchesByBackendType(t *testing.T) {
	assert.IsType(t, &RestrictedExecutor{}, New(BackendRestricted, DefaultConfig()))
	assert.IsType(t, &SubprocessExecutor{}, New(BackendSubprocess, DefaultConfig()))
	assert.IsType(t, &ContainerExecutor{}, New(BackendContainer, DefaultConfig()))
}

func TestTruncateRespectsMaxBytes(t *testing.T) {
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
}
