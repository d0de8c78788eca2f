package history

import (
	"context"

	"github.com/northbeam-labs/codevalidator/pkg/estimator"
)

// SavePredictiveOutcomes replaces the stored predictive-estimator
// outcome history with the given slice.
func (s *Store) SavePredictiveOutcomes(ctx context.Context, outcomes []estimator.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE predictive_outcomes`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictive_outcomes
			(recorded_at, prediction_id, predicted_seconds, actual_seconds, success, tokens_generated, mode, model, complexity)
		VALUES (now(), $1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx,
			o.PredictionID, o.PredictedSeconds, o.ActualSeconds, o.Success,
			o.TokensGenerated, o.Mode, o.Model, string(o.Complexity),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadPredictiveOutcomes returns every persisted predictive-estimator
// outcome, oldest first, suitable for PredictiveEstimator.LoadOutcomes.
func (s *Store) LoadPredictiveOutcomes(ctx context.Context) ([]estimator.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prediction_id, predicted_seconds, actual_seconds, success, tokens_generated, mode, model, complexity
		FROM predictive_outcomes
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []estimator.Outcome
	for rows.Next() {
		var (
			o          estimator.Outcome
			complexity string
		)
		if err := rows.Scan(&o.PredictionID, &o.PredictedSeconds, &o.ActualSeconds, &o.Success, &o.TokensGenerated, &o.Mode, &o.Model, &complexity); err != nil {
			return nil, err
		}
		o.Complexity = estimator.Complexity(complexity)
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveBudgetHistory replaces the stored budget-estimator call history
// with the given slice.
func (s *Store) SaveBudgetHistory(ctx context.Context, records []estimator.HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE budget_records`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO budget_records
			(recorded_at, mode, prompt_tokens, output_tokens, estimated_seconds, actual_seconds, success, model)
		VALUES (now(), $1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			string(r.Mode), r.PromptTokens, r.OutputTokens,
			r.EstimatedSeconds, r.ActualSeconds, r.Success, r.Model,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadBudgetHistory returns every persisted budget-estimator call
// record, oldest first, suitable for BudgetEstimator.LoadHistory.
func (s *Store) LoadBudgetHistory(ctx context.Context) ([]estimator.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mode, prompt_tokens, output_tokens, estimated_seconds, actual_seconds, success, model
		FROM budget_records
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []estimator.HistoryRecord
	for rows.Next() {
		var (
			r    estimator.HistoryRecord
			mode string
		)
		if err := rows.Scan(&mode, &r.PromptTokens, &r.OutputTokens, &r.EstimatedSeconds, &r.ActualSeconds, &r.Success, &r.Model); err != nil {
			return nil, err
		}
		r.Mode = estimator.Mode(mode)
		out = append(out, r)
	}
	return out, rows.Err()
}
