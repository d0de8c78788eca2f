// Package candidate implements the Multi-Candidate Generation & Selection
// Engine: generating N LLM completions for one task, scoring each with the
// Rule Engine, and selecting a winner by composite score.
package candidate

import (
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
)

// Status is a Candidate's position in the selection lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusScored   Status = "scored"
	StatusSelected Status = "selected"
	StatusRejected Status = "rejected"
)

// Candidate is one generated completion plus its provenance and, once
// scored, its rule results.
type Candidate struct {
	ID          int
	TaskID      string // stable identifier for the task this candidate was generated for, shared across a pool
	Model       string // model identifier that produced this candidate, e.g. "qwen2.5-coder:7b"
	Code        string
	Temperature float64
	Seed        int64
	Status      Status
	RuleResults []rules.Result
	Score       float64
	Err         error

	GeneratedAt        time.Time
	GenerationDuration time.Duration
}

// HasCriticalErrors counts the rule results that both failed and carried
// at least error severity — the composite-score penalty input.
func (c *Candidate) HasCriticalErrors() int {
	n := 0
	for _, r := range c.RuleResults {
		if !r.Passed && r.Severity.AtLeast(issue.SeverityError) {
			n++
		}
	}
	return n
}

// AllPassed reports whether every rule result passed.
func (c *Candidate) AllPassed() bool {
	if len(c.RuleResults) == 0 {
		return false
	}
	for _, r := range c.RuleResults {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Pool holds every candidate generated for one task.
type Pool struct {
	Candidates []*Candidate
	Winner     *Candidate
}

// PoolStats summarizes a Pool for logging and the learning loop.
type PoolStats struct {
	Total     int
	Scored    int
	AllPassed int
	BestScore float64
	WinnerID  int
	HasWinner bool

	MeanScore          float64
	MinScore           float64
	PassRate           float64 // AllPassed / Scored
	ErrorRate          float64 // candidates with Err set / Total
	MeanGenerationTime time.Duration
}

// Stats computes summary statistics over the pool.
func (p *Pool) Stats() PoolStats {
	var s PoolStats
	s.Total = len(p.Candidates)

	var scoreSum float64
	var minScore float64
	minSet := false
	var errored int
	var durationSum time.Duration

	for _, c := range p.Candidates {
		if c.Status == StatusScored || c.Status == StatusSelected || c.Status == StatusRejected {
			s.Scored++
		}
		if c.AllPassed() {
			s.AllPassed++
		}
		if c.Score > s.BestScore {
			s.BestScore = c.Score
		}
		if !minSet || c.Score < minScore {
			minScore = c.Score
			minSet = true
		}
		scoreSum += c.Score
		if c.Err != nil {
			errored++
		}
		durationSum += c.GenerationDuration
	}

	if s.Total > 0 {
		s.MeanScore = scoreSum / float64(s.Total)
		s.ErrorRate = float64(errored) / float64(s.Total)
		s.MeanGenerationTime = durationSum / time.Duration(s.Total)
	}
	if minSet {
		s.MinScore = minScore
	}
	if s.Scored > 0 {
		s.PassRate = float64(s.AllPassed) / float64(s.Scored)
	}

	if p.Winner != nil {
		s.HasWinner = true
		s.WinnerID = p.Winner.ID
	}
	return s
}
