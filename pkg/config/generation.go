package config

import (
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/candidate"
)

// GenerationConfig is the declarative surface for the Multi-Candidate
// Generator: how many candidates to produce, at what temperatures, and
// under what timeouts.
type GenerationConfig struct {
	N                   int           `yaml:"n"`
	Parallel            bool          `yaml:"parallel"`
	Temperatures        []float64     `yaml:"temperatures"`
	PerCandidateTimeout time.Duration `yaml:"per_candidate_timeout"`
	BatchTimeout        time.Duration `yaml:"batch_timeout"`
	BaseSeed            int64         `yaml:"base_seed"`
}

// DefaultGenerationConfig mirrors candidate.Generator's zero-option
// defaults in declarative form, except that Parallel is on.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		N:                   1,
		Parallel:            true,
		Temperatures:        candidate.DefaultTemperatures,
		PerCandidateTimeout: candidate.DefaultPerCandidateTimeout,
		BatchTimeout:        candidate.DefaultBatchTimeout,
	}
}

// Build converts the declarative config into candidate.GenerateOptions.
func (gc GenerationConfig) Build() candidate.GenerateOptions {
	return candidate.GenerateOptions{
		N:                   gc.N,
		Parallel:            gc.Parallel,
		Temperatures:        gc.Temperatures,
		BaseSeed:            gc.BaseSeed,
		PerCandidateTimeout: gc.PerCandidateTimeout,
		BatchTimeout:        gc.BatchTimeout,
	}
}

// ScoringConfig is the declarative surface for the candidate Selector.
type ScoringConfig struct {
	Weights             map[string]float64 `yaml:"weights,omitempty"`
	AllPassBonus        float64            `yaml:"all_pass_bonus"`
	CriticalPenaltyBase float64            `yaml:"critical_penalty_base"`
}

// DefaultScoringConfig mirrors candidate.NewSelector(nil)'s defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AllPassBonus:        candidate.DefaultAllPassBonus,
		CriticalPenaltyBase: candidate.DefaultCriticalPenaltyBase,
	}
}

// Build converts the declarative config into a ready-to-use Selector.
func (sc ScoringConfig) Build() *candidate.Selector {
	s := candidate.NewSelector(sc.Weights)
	if sc.AllPassBonus > 0 {
		s.AllPassBonus = sc.AllPassBonus
	}
	if sc.CriticalPenaltyBase > 0 {
		s.CriticalPenaltyBase = sc.CriticalPenaltyBase
	}
	return s
}
