package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// SubprocessExecutor runs code in a fresh python3 process with POSIX
// resource limits applied via the shell's ulimit builtin: address space,
// CPU seconds, zero file size (no file creation), zero max user processes
// (no forking).
type SubprocessExecutor struct {
	cfg Config
}

func (e *SubprocessExecutor) Execute(ctx context.Context, code string, extraGlobals map[string]interface{}) ExecutionResult {
	start := time.Now()

	tmp, err := os.CreateTemp("", "codevalidator-sandbox-*.py")
	if err != nil {
		return ExecutionResult{Status: StatusSandboxError, ErrorMessage: "could not create temp file: " + err.Error()}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return ExecutionResult{Status: StatusSandboxError, ErrorMessage: "could not write temp file: " + err.Error()}
	}
	tmp.Close()

	timeout := e.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	maxMemKB := e.cfg.MaxMemoryMB * 1024
	cpuSeconds := int(timeout.Seconds())
	if cpuSeconds < 1 {
		cpuSeconds = 1
	}

	shellCmd := fmt.Sprintf(
		"ulimit -v %d; ulimit -t %d; ulimit -f 0; ulimit -u 0 2>/dev/null; exec python3 -u %s",
		maxMemKB, cpuSeconds, shellQuote(tmp.Name()),
	)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", shellCmd)
	cmd.Env = []string{"PATH=/usr/bin:/bin", "PYTHONDONTWRITEBYTECODE=1"}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() != nil {
		return ExecutionResult{
			Status:        StatusTimeout,
			ExecutionTime: elapsed,
			ErrorMessage:  fmt.Sprintf("execution exceeded %s", timeout),
		}
	}

	out := truncate(stdout.String(), e.cfg.MaxOutputBytes)
	errOut := truncate(stderr.String(), e.cfg.MaxOutputBytes)

	if runErr == nil {
		return ExecutionResult{Status: StatusSuccess, Stdout: out, Stderr: errOut, ExecutionTime: elapsed}
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		if isMemoryExhausted(errOut) || exitErr.ExitCode() == 137 {
			return ExecutionResult{Status: StatusMemoryError, Stdout: out, Stderr: errOut, ExecutionTime: elapsed,
				ErrorMessage: "memory limit exceeded"}
		}
		return ExecutionResult{Status: StatusRuntimeError, Stdout: out, Stderr: errOut, ExecutionTime: elapsed,
			ErrorMessage: firstNonEmpty(errOut, fmt.Sprintf("exit code %d", exitErr.ExitCode()))}
	}

	return ExecutionResult{Status: StatusSandboxError, ExecutionTime: elapsed, ErrorMessage: runErr.Error()}
}

func isMemoryExhausted(stderr string) bool {
	return strings.Contains(stderr, "MemoryError") || strings.Contains(stderr, "Cannot allocate memory")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// shellQuote wraps a path in single quotes, escaping any embedded single
// quote, since the path goes into a constructed sh -c string.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var _ Executor = (*SubprocessExecutor)(nil)
