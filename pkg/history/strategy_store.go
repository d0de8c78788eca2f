package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/strategy"
)

// StrategyPersister returns a callback suitable for strategy.Strategy's
// SetPersist: it replaces the stored history with the full in-memory
// history every call, matching the JSON file persister's
// overwrite-on-every-save semantics.
func (s *Store) StrategyPersister() func([]strategy.Outcome) error {
	return func(history []strategy.Outcome) error {
		return s.saveStrategyOutcomes(context.Background(), history)
	}
}

func (s *Store) saveStrategyOutcomes(ctx context.Context, history []strategy.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE strategy_outcomes`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_outcomes
			(recorded_at, query_hash, complexity, n_candidates, temperatures, best_score, all_passed, total_time_ms, domain_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range history {
		temps, err := json.Marshal(o.Temperatures)
		if err != nil {
			return err
		}
		var domainCode sql.NullInt32
		if o.DomainCode != nil {
			domainCode = sql.NullInt32{Int32: int32(*o.DomainCode), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			o.Timestamp, o.QueryHash, string(o.Complexity), o.N,
			temps, o.BestScore, o.AllPassed,
			o.TotalTime.Milliseconds(), domainCode,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadStrategyOutcomes returns every persisted outcome, oldest first,
// matching strategy.LoadJSONFile's contract.
func (s *Store) LoadStrategyOutcomes(ctx context.Context) ([]strategy.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, query_hash, complexity, n_candidates, temperatures, best_score, all_passed, total_time_ms, domain_code
		FROM strategy_outcomes
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []strategy.Outcome
	for rows.Next() {
		var (
			o           strategy.Outcome
			complexity  string
			totalTimeMs int64
			domainCode  sql.NullInt32
			tempsRaw    []byte
		)
		if err := rows.Scan(&o.Timestamp, &o.QueryHash, &complexity, &o.N, &tempsRaw, &o.BestScore, &o.AllPassed, &totalTimeMs, &domainCode); err != nil {
			return nil, err
		}
		var temps []float64
		if err := json.Unmarshal(tempsRaw, &temps); err != nil {
			return nil, err
		}
		o.Complexity = strategy.Complexity(complexity)
		o.Temperatures = temps
		o.TotalTime = time.Duration(totalTimeMs) * time.Millisecond
		if domainCode.Valid {
			v := int(domainCode.Int32)
			o.DomainCode = &v
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
