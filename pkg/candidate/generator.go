package candidate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/llmclient"
	"github.com/northbeam-labs/codevalidator/pkg/timeoutctl"
)

// DefaultTemperatures is the configured temperature tuple used when a
// caller doesn't supply one.
var DefaultTemperatures = []float64{0.2, 0.5, 0.8}

const (
	DefaultPerCandidateTimeout = 30 * time.Second
	DefaultBatchTimeout        = 120 * time.Second
)

// GenerateOptions controls one Generator.Generate call.
type GenerateOptions struct {
	N                   int
	Parallel            bool
	Temperatures        []float64
	BaseSeed            int64
	SystemPrompt        string
	PerCandidateTimeout time.Duration
	BatchTimeout        time.Duration
}

// Generator fans out N LLM calls for one task and assembles a Pool from
// whatever candidates survive. By default it calls Client.Complete
// directly under a fixed per-candidate deadline. When Controller and
// BaseURL are both set, it instead streams each call through the
// Predictive Timeout & Budget Scheduler: Budget and Predictive (if set)
// size the deadline before the call, and Controller enforces it and
// reports back a ledger that Budget/Predictive record as a completed
// outcome, closing the loop the scheduler's history-based predictions
// depend on.
type Generator struct {
	Client llmclient.Client
	Model  string

	Controller *timeoutctl.Controller
	Budget     *estimator.BudgetEstimator
	Predictive *estimator.PredictiveEstimator
	BaseURL    string
}

// NewGenerator wraps an injected LLM client. Model and BaseURL are
// inferred when client is an *llmclient.HTTPClient, since that's the one
// implementation whose wire format the Predictive Timeout & Budget
// Scheduler knows how to speak.
func NewGenerator(client llmclient.Client) *Generator {
	g := &Generator{Client: client}
	if hc, ok := client.(*llmclient.HTTPClient); ok {
		g.Model = hc.Model
		g.BaseURL = hc.BaseURL
	}
	return g
}

// Generate builds one prompt/system-prompt pair from task, fans out N
// distinct (temperature, seed) invocations of the injected client, and
// post-processes each surviving response (markdown-fence extraction or
// whitespace trim) into a Candidate. A batch that times out keeps whatever
// candidates had already completed; a batch where every candidate failed
// returns an empty pool.
func (g *Generator) Generate(ctx context.Context, task string, opts GenerateOptions) *Pool {
	opts = normalizeOptions(opts)
	taskID := TaskHash(task)

	batchCtx, cancel := context.WithTimeout(ctx, opts.BatchTimeout)
	defer cancel()

	results := make([]*Candidate, opts.N)
	run := func(i int) {
		temp := opts.Temperatures[i%len(opts.Temperatures)]
		seed := opts.BaseSeed + int64(i)
		results[i] = g.runOne(batchCtx, i, taskID, task, opts.SystemPrompt, temp, seed, opts.PerCandidateTimeout)
	}

	if opts.Parallel {
		var eg errgroup.Group
		for i := 0; i < opts.N; i++ {
			i := i
			eg.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for i := 0; i < opts.N; i++ {
			run(i)
		}
	}

	pool := &Pool{}
	for _, c := range results {
		if c == nil || c.Err != nil {
			continue
		}
		pool.Candidates = append(pool.Candidates, c)
	}
	return pool
}

func (g *Generator) runOne(ctx context.Context, id int, taskID, task, systemPrompt string, temp float64, seed int64, timeout time.Duration) *Candidate {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw string
	var err error
	if g.Controller != nil && g.BaseURL != "" {
		raw, err = g.runOneStreaming(callCtx, task, systemPrompt, temp, seed)
	} else {
		raw, err = g.Client.Complete(callCtx, llmclient.Request{
			SystemPrompt: systemPrompt,
			Prompt:       task,
			Temperature:  temp,
			Seed:         seed,
		})
	}

	if err != nil {
		return &Candidate{ID: id, TaskID: taskID, Model: g.Model, Temperature: temp, Seed: seed, Err: err,
			GeneratedAt: start, GenerationDuration: time.Since(start)}
	}

	return &Candidate{
		ID:                 id,
		TaskID:             taskID,
		Model:              g.Model,
		Code:               extractCode(raw),
		Temperature:        temp,
		Seed:               seed,
		Status:             StatusPending,
		GeneratedAt:        start,
		GenerationDuration: time.Since(start),
	}
}

// runOneStreaming asks the Predictive Timeout & Budget Scheduler for a
// deadline, runs the call through the timeout controller under it, and
// folds the resulting ledger back into both estimators so their history
// improves with every candidate generated.
func (g *Generator) runOneStreaming(ctx context.Context, task, systemPrompt string, temp float64, seed int64) (string, error) {
	budgetEstimate := g.estimateBudget(task)
	prediction := g.predictTimeout(task)
	deadlines := deadlinesFromEstimates(budgetEstimate, prediction)

	body, err := llmclient.StreamingBody(g.Model, llmclient.Request{
		SystemPrompt: systemPrompt,
		Prompt:       task,
		Temperature:  temp,
		Seed:         seed,
	})
	if err != nil {
		return "", err
	}

	result := g.Controller.GenerateSafe(ctx, timeoutctl.Request{
		URL:       g.BaseURL + "/api/generate",
		Body:      bytes.NewReader(body),
		Deadlines: deadlines,
	}, nil)

	g.recordOutcome(budgetEstimate, prediction, result)

	if !result.Succeeded && result.Text == "" {
		return "", result.Err
	}
	return result.Text, nil
}

func (g *Generator) estimateBudget(task string) estimator.BudgetEstimate {
	if g.Budget == nil {
		return estimator.BudgetEstimate{}
	}
	return g.Budget.Estimate(estimator.ModeFast, task, "")
}

func (g *Generator) predictTimeout(task string) estimator.Prediction {
	if g.Predictive == nil {
		return estimator.Prediction{}
	}
	return g.Predictive.Predict("fast", task, g.Model, estimator.ExtractionContext{})
}

func (g *Generator) recordOutcome(budgetEstimate estimator.BudgetEstimate, prediction estimator.Prediction, result timeoutctl.SafeResult) {
	elapsedSeconds := result.Ledger.Elapsed.Seconds()
	if g.Budget != nil && budgetEstimate.TotalSeconds > 0 {
		promptTokens := int(budgetEstimate.Adjustments["prompt_tokens"])
		g.Budget.RecordActual(budgetEstimate, elapsedSeconds, result.Succeeded, promptTokens, result.Ledger.TokensGenerated, g.Model)
	}
	if g.Predictive != nil && prediction.ID != "" {
		g.Predictive.RecordOutcome(prediction.ID, elapsedSeconds, result.Succeeded, result.Ledger.TokensGenerated)
	}
}

// deadlinesFromEstimates widens the default streaming deadlines' absolute
// ceiling to whichever estimator predicted the longer run, so a genuinely
// slow task isn't cut off by a deadline sized for the common case.
func deadlinesFromEstimates(budgetEstimate estimator.BudgetEstimate, prediction estimator.Prediction) timeoutctl.Deadlines {
	deadlines := timeoutctl.DefaultDeadlines()
	absolute := prediction.TimeoutSeconds
	if budgetEstimate.TotalSeconds > absolute {
		absolute = budgetEstimate.TotalSeconds
	}
	if absolute > deadlines.Absolute.Seconds() {
		deadlines.Absolute = time.Duration(absolute * float64(time.Second))
	}
	return deadlines
}

// TaskHash derives a stable candidate TaskID from the generation task text,
// so every candidate in one pool shares an identifier a caller can
// correlate across logs and history records.
func TaskHash(task string) string {
	sum := sha256.Sum256([]byte(task))
	return hex.EncodeToString(sum[:])[:16]
}

func normalizeOptions(opts GenerateOptions) GenerateOptions {
	if opts.N <= 0 {
		opts.N = 1
	}
	if len(opts.Temperatures) == 0 {
		opts.Temperatures = DefaultTemperatures
	}
	if opts.PerCandidateTimeout <= 0 {
		opts.PerCandidateTimeout = DefaultPerCandidateTimeout
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}
	return opts
}

// extractCode pulls the body out of a markdown code fence if present,
// otherwise trims surrounding whitespace.
func extractCode(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Drop the opening fence (possibly "```python") and a trailing closing fence.
	body := lines[1:]
	if len(body) > 0 && strings.HasPrefix(strings.TrimSpace(body[len(body)-1]), "```") {
		body = body[:len(body)-1]
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
