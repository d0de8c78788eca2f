package candidate

import (
	"math"

	"github.com/northbeam-labs/codevalidator/pkg/rules"
)

// DefaultAllPassBonus is added to a candidate's weighted average score
// when every rule passed.
const DefaultAllPassBonus = 0.15

// DefaultCriticalPenaltyBase is the base of the per-critical-error
// multiplicative penalty (base^n for n critical errors).
const DefaultCriticalPenaltyBase = 0.5

// Selector computes a composite score per scored Candidate and picks the
// highest-scoring one as the pool's winner.
type Selector struct {
	Weights             map[string]float64
	AllPassBonus        float64
	CriticalPenaltyBase float64
}

// NewSelector uses the Rule Engine's default weight table and the
// package's default bonus/penalty constants when none is supplied.
func NewSelector(weights map[string]float64) *Selector {
	if weights == nil {
		weights = rules.DefaultWeights
	}
	return &Selector{
		Weights:             weights,
		AllPassBonus:        DefaultAllPassBonus,
		CriticalPenaltyBase: DefaultCriticalPenaltyBase,
	}
}

// Score computes one candidate's composite score: weighted average of its
// rule scores, plus the all-pass bonus (clamped to 1.0), times a
// critical-error penalty of CriticalPenaltyBase^n.
func (s *Selector) Score(c *Candidate) float64 {
	if len(c.RuleResults) == 0 {
		return 0
	}
	var weightedSum, weightTotal float64
	for _, r := range c.RuleResults {
		w := rules.WeightFor(s.Weights, r.RuleName)
		weightedSum += r.Score * w
		weightTotal += w
	}
	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}
	if c.AllPassed() {
		score += s.bonus()
		if score > 1.0 {
			score = 1.0
		}
	}
	penalty := math.Pow(s.penaltyBase(), float64(c.HasCriticalErrors()))
	return score * penalty
}

func (s *Selector) bonus() float64 {
	if s.AllPassBonus == 0 {
		return DefaultAllPassBonus
	}
	return s.AllPassBonus
}

func (s *Selector) penaltyBase() float64 {
	if s.CriticalPenaltyBase == 0 {
		return DefaultCriticalPenaltyBase
	}
	return s.CriticalPenaltyBase
}

// Select scores every candidate in the pool, marks each Scored, picks the
// highest composite score (ties broken by insertion order) as the winner
// (marked Selected), and marks every other candidate Rejected.
func (s *Selector) Select(pool *Pool) *Candidate {
	if len(pool.Candidates) == 0 {
		return nil
	}

	var best *Candidate
	bestScore := math.Inf(-1)
	for _, c := range pool.Candidates {
		c.Score = s.Score(c)
		c.Status = StatusScored
		if c.Score > bestScore {
			bestScore = c.Score
			best = c
		}
	}

	for _, c := range pool.Candidates {
		if c == best {
			c.Status = StatusSelected
		} else {
			c.Status = StatusRejected
		}
	}
	pool.Winner = best
	return best
}
