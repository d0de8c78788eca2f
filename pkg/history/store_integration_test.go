package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/strategy"
)

func newTestStore(t *testing.T) *Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	store, err := Open(ctx, Config{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStoreStrategyOutcomesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	domainCode := 501
	history := []strategy.Outcome{
		{
			Timestamp:    time.Now().UTC().Truncate(time.Second),
			QueryHash:    "abc123",
			Complexity:   strategy.Complex,
			N:            3,
			Temperatures: []float64{0.1, 0.4, 0.7},
			BestScore:    0.92,
			AllPassed:    true,
			TotalTime:    2500 * time.Millisecond,
			DomainCode:   &domainCode,
		},
	}

	require.NoError(t, s.saveStrategyOutcomes(ctx, history))

	loaded, err := s.LoadStrategyOutcomes(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, history[0].QueryHash, loaded[0].QueryHash)
	assert.Equal(t, history[0].Complexity, loaded[0].Complexity)
	assert.Equal(t, history[0].Temperatures, loaded[0].Temperatures)
	assert.Equal(t, *history[0].DomainCode, *loaded[0].DomainCode)
}

func TestStorePredictiveOutcomesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	outcomes := []estimator.Outcome{
		{
			PredictionID:     "pred-1",
			PredictedSeconds: 30,
			ActualSeconds:    45,
			Success:          true,
			TokensGenerated:  200,
			Mode:             "deep3",
			Model:            "qwen2.5-coder:7b",
			Complexity:       estimator.ComplexityModerate,
		},
	}

	require.NoError(t, s.SavePredictiveOutcomes(ctx, outcomes))

	loaded, err := s.LoadPredictiveOutcomes(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, outcomes[0].PredictionID, loaded[0].PredictionID)
	assert.Equal(t, outcomes[0].Complexity, loaded[0].Complexity)
}

func TestStoreBudgetHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []estimator.HistoryRecord{
		{Mode: estimator.ModeFast, PromptTokens: 100, OutputTokens: 50, EstimatedSeconds: 30, ActualSeconds: 25, Success: true, Model: "m"},
	}

	require.NoError(t, s.SaveBudgetHistory(ctx, records))

	loaded, err := s.LoadBudgetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, records[0].Mode, loaded[0].Mode)
	assert.Equal(t, records[0].PromptTokens, loaded[0].PromptTokens)
}
