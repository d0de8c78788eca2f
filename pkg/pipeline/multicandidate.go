package pipeline

import (
	"context"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/candidate"
	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/llmclient"
	"github.com/northbeam-labs/codevalidator/pkg/metrics"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
	"github.com/northbeam-labs/codevalidator/pkg/strategy"
	"github.com/northbeam-labs/codevalidator/pkg/timeoutctl"
)

// Profile resolves a validation request to a rule set, a fail-fast flag,
// and scoring weights — the "validation profile" step 1 of the
// Multi-Candidate Pipeline resolves against.
type Profile struct {
	Name     string
	Rules    []rules.Rule
	FailFast bool
	Weights  map[string]float64
}

// DefaultProfile classifies Python source with the default rule set, no
// fail-fast, and the Rule Engine's default weights.
func DefaultProfile() Profile {
	return Profile{Name: "python_default", Rules: rules.DefaultPythonRules(), Weights: rules.DefaultWeights}
}

// Reviewer is the injected cross-architecture advisory reviewer (step 5):
// an optional second opinion on the winning candidate, never gating the
// result.
type Reviewer interface {
	Review(ctx context.Context, code string) (string, error)
}

// MultiCandidateConfig wires the generator, strategy, and optional
// reviewer for one MultiCandidatePipeline. Controller, Budget, Predictive,
// and BaseURL are optional: when Controller and BaseURL are both set,
// candidate generation streams through the Predictive Timeout & Budget
// Scheduler instead of calling Client.Complete directly.
type MultiCandidateConfig struct {
	Client   llmclient.Client
	Strategy *strategy.Strategy
	Reviewer Reviewer
	Parallel bool

	Controller *timeoutctl.Controller
	Budget     *estimator.BudgetEstimator
	Predictive *estimator.PredictiveEstimator
	BaseURL    string
	Model      string
}

// MultiCandidateResult bundles everything step 7 of the Multi-Candidate
// Pipeline promises: the full pool, its winner, an all-pass flag,
// per-phase timings, and the reviewer's advisory output if one ran.
type MultiCandidateResult struct {
	Pool         *candidate.Pool
	Winner       *candidate.Candidate
	AllPassed    bool
	GenerateTime time.Duration
	ScoreTime    time.Duration
	SelectTime   time.Duration
	ReviewOutput string
	ReviewErr    error
}

// MultiCandidatePipeline composes the candidate generator, the Rule
// Runner, and the candidate selector, recording every outcome with the
// Adaptive Strategy.
type MultiCandidatePipeline struct {
	cfg       MultiCandidateConfig
	generator *candidate.Generator
	selector  *candidate.Selector
}

// NewMultiCandidatePipeline builds a pipeline from cfg, defaulting
// Strategy to a fresh in-memory Strategy when none is supplied.
func NewMultiCandidatePipeline(cfg MultiCandidateConfig) *MultiCandidatePipeline {
	if cfg.Strategy == nil {
		cfg.Strategy = strategy.New()
	}

	gen := candidate.NewGenerator(cfg.Client)
	gen.Controller = cfg.Controller
	gen.Budget = cfg.Budget
	gen.Predictive = cfg.Predictive
	if cfg.BaseURL != "" {
		gen.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		gen.Model = cfg.Model
	}

	return &MultiCandidatePipeline{
		cfg:       cfg,
		generator: gen,
		selector:  candidate.NewSelector(nil),
	}
}

// Run executes the full multi-candidate flow for one task: resolve
// profile, generate N candidates per the Adaptive Strategy's decision for
// this task, score each with the Rule Runner, select the winner,
// optionally run the cross-architecture reviewer, and record the outcome.
func (mp *MultiCandidatePipeline) Run(ctx context.Context, task string, profile Profile, domainCode *int) MultiCandidateResult {
	runner := &rules.Runner{Rules: profile.Rules, FailFast: profile.FailFast, Parallel: mp.cfg.Parallel}
	selector := candidate.NewSelector(profile.Weights)

	strategyCfg := mp.cfg.Strategy.GetStrategy(task, domainCode)

	genStart := time.Now()
	pool := mp.generator.Generate(ctx, task, candidate.GenerateOptions{
		N:            strategyCfg.N,
		Parallel:     true,
		Temperatures: strategyCfg.Temperatures,
	})
	generateTime := time.Since(genStart)

	scoreStart := time.Now()
	for _, c := range pool.Candidates {
		c.RuleResults = runner.Run(ctx, c.Code)
		metrics.RecordCandidateGeneration(profile.Name, c.HasCriticalErrors() > 0)
	}
	scoreTime := time.Since(scoreStart)

	selectStart := time.Now()
	winner := selector.Select(pool)
	selectTime := time.Since(selectStart)

	result := MultiCandidateResult{
		Pool:         pool,
		Winner:       winner,
		GenerateTime: generateTime,
		ScoreTime:    scoreTime,
		SelectTime:   selectTime,
	}
	if winner != nil {
		result.AllPassed = winner.AllPassed()
		metrics.RecordSelection(profile.Name, winner.Score)
	}

	if mp.cfg.Reviewer != nil && winner != nil {
		reviewStart := time.Now()
		result.ReviewOutput, result.ReviewErr = mp.cfg.Reviewer.Review(ctx, winner.Code)
		outcome := "ok"
		if result.ReviewErr != nil {
			outcome = "error"
		}
		metrics.RecordCrossReview(outcome, time.Since(reviewStart))
	}

	totalTime := generateTime + scoreTime + selectTime
	bestScore := 0.0
	if winner != nil {
		bestScore = winner.Score
	}
	mp.cfg.Strategy.RecordOutcome(task, strategyCfg, bestScore, result.AllPassed, totalTime, domainCode)

	return result
}
