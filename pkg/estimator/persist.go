package estimator

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type persistedHistoryRecord struct {
	Mode             string  `json:"mode"`
	PromptTokens     int     `json:"prompt_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedSeconds float64 `json:"estimated_seconds"`
	ActualSeconds    float64 `json:"actual_seconds"`
	Success          bool    `json:"success"`
	Model            string  `json:"model"`
}

// SaveBudgetHistoryJSON writes history to path as a JSON array, creating
// parent directories as needed — the on-disk shape mirrors the Budget
// Estimator's persisted history file.
func SaveBudgetHistoryJSON(path string, history []HistoryRecord) error {
	out := make([]persistedHistoryRecord, len(history))
	for i, r := range history {
		out[i] = persistedHistoryRecord{
			Mode:             string(r.Mode),
			PromptTokens:     r.PromptTokens,
			OutputTokens:     r.OutputTokens,
			EstimatedSeconds: r.EstimatedSeconds,
			ActualSeconds:    r.ActualSeconds,
			Success:          r.Success,
			Model:            r.Model,
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

// LoadBudgetHistoryJSON reads a JSON array of history records from path.
// A missing file returns an empty slice and no error.
func LoadBudgetHistoryJSON(path string) ([]HistoryRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw []persistedHistoryRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	records := make([]HistoryRecord, len(raw))
	for i, r := range raw {
		records[i] = HistoryRecord{
			Mode:             Mode(r.Mode),
			PromptTokens:     r.PromptTokens,
			OutputTokens:     r.OutputTokens,
			EstimatedSeconds: r.EstimatedSeconds,
			ActualSeconds:    r.ActualSeconds,
			Success:          r.Success,
			Model:            r.Model,
		}
	}
	return records, nil
}
