package resourcemonitor

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrMemoryLimitExceeded is returned (wrapped) when a guarded block is
// still running once the monitor observes peak memory over the cap.
var ErrMemoryLimitExceeded = errors.New("resourcemonitor: memory limit exceeded")

// ErrTimeLimitExceeded is returned (wrapped) when a guarded block's wall
// time exceeds the configured cap before it returns.
var ErrTimeLimitExceeded = errors.New("resourcemonitor: wall time limit exceeded")

// Guarded is the function signature accepted by Run: it receives a context
// that is canceled when the wall-time cap is reached, and returns whatever
// value the caller wants captured as the Report's ReturnValue.
type Guarded func(ctx context.Context) (interface{}, error)

// Run is the scoped-acquisition entry point: on entry it starts monitoring
// the current process and installs a wall-time deadline on ctx; on every
// exit path (normal return, panic, deadline) it stops monitoring and
// produces the Report. The guarded block's panic is recovered and surfaced
// as a plain error, never propagated past Run.
func Run(ctx context.Context, limits Limits, fn Guarded) (*Report, interface{}, error) {
	monitor := NewMonitor(limits, DefaultSampleInterval)
	if err := monitor.Start(int32(os.Getpid())); err != nil {
		return nil, nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, limits.MaxWallTime)
	defer cancel()

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{nil, fmt.Errorf("guarded block panicked: %v", r)}
			}
		}()
		v, err := fn(runCtx)
		done <- outcome{v, err}
	}()

	var value interface{}
	var fnErr error
	select {
	case res := <-done:
		value, fnErr = res.value, res.err
	case <-runCtx.Done():
		fnErr = runCtx.Err()
	}

	report := monitor.Stop()
	report.ReturnValue = value

	// A limit the monitor itself observed always wins over whatever error
	// the guarded block happened to return when it got interrupted.
	if report.LimitExceeded != "" {
		report.Success = false
		if report.ErrorMessage == "" {
			report.ErrorMessage = report.LimitExceeded
		}
		return report, value, wrapLimitError(report.LimitExceeded)
	}

	if fnErr != nil {
		report.Success = false
		if errors.Is(fnErr, context.DeadlineExceeded) {
			report.LimitExceeded = "wall_time"
			report.ErrorMessage = ErrTimeLimitExceeded.Error()
			return report, value, ErrTimeLimitExceeded
		}
		report.ErrorMessage = fnErr.Error()
		return report, value, fnErr
	}

	return report, value, nil
}

func wrapLimitError(limitExceeded string) error {
	if len(limitExceeded) >= len("memory:") && limitExceeded[:7] == "memory:" {
		return fmt.Errorf("%w: %s", ErrMemoryLimitExceeded, limitExceeded)
	}
	return fmt.Errorf("%w: %s", ErrTimeLimitExceeded, limitExceeded)
}
