package strategy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// persistedOutcome is the on-disk shape, distinct from Outcome so JSON
// field names stay stable independent of the in-memory type.
type persistedOutcome struct {
	Timestamp    int64     `json:"timestamp"`
	QueryHash    string    `json:"query_hash"`
	Complexity   string    `json:"complexity"`
	N            int       `json:"n_candidates"`
	Temperatures []float64 `json:"temperatures"`
	BestScore    float64   `json:"best_score"`
	AllPassed    bool      `json:"all_passed"`
	TotalTime    float64   `json:"total_time"`
	DomainCode   *int      `json:"domain_code,omitempty"`
}

// JSONFilePersister returns a persist callback that writes history to path
// as indented JSON, creating parent directories as needed — the Go
// equivalent of the original's history-file persistence.
func JSONFilePersister(path string) func([]Outcome) error {
	return func(history []Outcome) error {
		out := make([]persistedOutcome, len(history))
		for i, o := range history {
			out[i] = persistedOutcome{
				Timestamp:    o.Timestamp.Unix(),
				QueryHash:    o.QueryHash,
				Complexity:   string(o.Complexity),
				N:            o.N,
				Temperatures: o.Temperatures,
				BestScore:    o.BestScore,
				AllPassed:    o.AllPassed,
				TotalTime:    o.TotalTime.Seconds(),
				DomainCode:   o.DomainCode,
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(path, data, 0o644)
	}
}

// LoadJSONFile reads a history file previously written by
// JSONFilePersister. A missing file is not an error: it returns an empty
// history, matching the original's "no file yet" startup case.
func LoadJSONFile(path string) ([]Outcome, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []persistedOutcome
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make([]Outcome, len(raw))
	for i, r := range raw {
		out[i] = Outcome{
			Timestamp:    time.Unix(r.Timestamp, 0),
			QueryHash:    r.QueryHash,
			Complexity:   Complexity(r.Complexity),
			N:            r.N,
			Temperatures: r.Temperatures,
			BestScore:    r.BestScore,
			AllPassed:    r.AllPassed,
			TotalTime:    time.Duration(r.TotalTime * float64(time.Second)),
			DomainCode:   r.DomainCode,
		}
	}
	return out, nil
}
