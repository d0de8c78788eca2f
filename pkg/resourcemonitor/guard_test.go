package resourcemonitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsValueOnSuccess(t *testing.T) {
	limits := DefaultLimits()
	report, value, err := Run(context.Background(), limits, func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 42, value)
}

func TestRunPropagatesFunctionError(t *testing.T) {
	limits := DefaultLimits()
	boom := errors.New("boom")
	report, _, err := Run(context.Background(), limits, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, report.Success)
}

func TestRunReportsTimeLimitExceeded(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxWallTime = 10 * time.Millisecond
	report, _, err := Run(context.Background(), limits, func(ctx context.Context) (interface{}, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "too slow", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	assert.ErrorIs(t, err, ErrTimeLimitExceeded)
	assert.False(t, report.Success)
}

func TestRunRecoversPanicFromGuardedBlock(t *testing.T) {
	limits := DefaultLimits()
	report, _, err := Run(context.Background(), limits, func(ctx context.Context) (interface{}, error) {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, report.Success)
}
