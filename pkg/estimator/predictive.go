package estimator

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Complexity buckets a predicted duration into one of five named tiers.
type Complexity string

const (
	ComplexityTrivial     Complexity = "trivial"
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

func complexityFor(seconds float64) Complexity {
	switch {
	case seconds < 10:
		return ComplexityTrivial
	case seconds < 30:
		return ComplexitySimple
	case seconds < 60:
		return ComplexityModerate
	case seconds < 180:
		return ComplexityComplex
	default:
		return ComplexityVeryComplex
	}
}

// featureWeights are the per-feature contributions to the baseline
// duration estimate, in seconds per unit of (normalized) feature value.
var featureWeights = map[string]float64{
	"prompt_length":        20.0,
	"code_lines":           15.0,
	"complexity_keywords":  40.0,
	"task_code_generation": 25.0,
	"task_bug_fix":         20.0,
	"task_refactoring":     30.0,
	"task_analysis":        10.0,
	"task_search":          5.0,
	"has_file_path":        5.0,
	"has_error_trace":      10.0,
	"has_code_block":       15.0,
	"is_question":          -5.0,
	"has_pre_read":         -10.0,
	"iteration_count":      15.0,
}

const (
	baseTimeSeconds = 15.0
	minTimeout      = 10.0
	maxTimeout      = 600.0
)

// modelSpeedFactors are relative generation speeds; the calibration
// multiplier is the reciprocal of this value (slower model -> bigger
// multiplier).
var modelSpeedFactors = map[string]float64{
	"qwen2.5-coder:3b":  1.0,
	"qwen2.5-coder:7b":  0.6,
	"qwen2.5-coder:14b": 0.35,
	"qwen2.5-coder:32b": 0.15,
	"codegen:latest":    0.5,
}

const defaultModelSpeedFactor = 0.5

// calibrator accumulates observed actual/predicted ratios for one key
// (a model name or an execution mode) and blends the base multiplier 50/50
// with the last-10-outcome moving average once any history exists.
type calibrator struct {
	mu      sync.Mutex
	history map[string][]float64
}

func newCalibrator() *calibrator {
	return &calibrator{history: make(map[string][]float64)}
}

func (c *calibrator) get(key string, base float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	hist := c.history[key]
	if len(hist) == 0 {
		return base
	}
	recent := hist
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	return base*0.5 + mean(recent)*0.5
}

func (c *calibrator) update(key string, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hist := append(c.history[key], ratio)
	if len(hist) > 50 {
		hist = hist[len(hist)-50:]
	}
	c.history[key] = hist
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	sumSq := 0.0
	for _, v := range vs {
		d := v - m
		sumSq += d * d
	}
	return sqrt(sumSq / float64(len(vs)-1))
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	guess := x
	for i := 0; i < 40; i++ {
		guess = 0.5 * (guess + x/guess)
	}
	return guess
}

// Prediction is the result of one PredictiveEstimator.Predict call.
type Prediction struct {
	ID               string
	TimeoutSeconds   float64
	Confidence       float64
	Complexity       Complexity
	Factors          map[string]float64
	ModelCalibration float64
	ModeCalibration  float64
	Mode             string
	Model            string
	CreatedAt        time.Time
}

// Outcome is a recorded actual result for a previously issued Prediction.
type Outcome struct {
	PredictionID     string
	PredictedSeconds float64
	ActualSeconds    float64
	Success          bool
	TokensGenerated  int
	Mode             string
	Model            string
	Complexity       Complexity
}

func (o Outcome) ratio() float64 {
	if o.PredictedSeconds <= 0 {
		return 1.0
	}
	return o.ActualSeconds / o.PredictedSeconds
}

func (o Outcome) absError() float64 {
	d := o.ActualSeconds - o.PredictedSeconds
	if d < 0 {
		return -d
	}
	return d
}

// Stats summarizes the estimator's outcome history.
type Stats struct {
	TotalPredictions int
	MeanError        float64
	MedianError      float64
	MeanAccuracy     float64
	StdAccuracy      float64
	SuccessRate      float64
	RecentAccuracy   float64
}

// PredictiveEstimator predicts a generation timeout in seconds from a
// prompt's features, a per-model speed calibration, and a per-mode
// calibration, both refined by recorded outcomes.
type PredictiveEstimator struct {
	mu sync.Mutex

	modelCal *calibrator
	modeCal  *calibrator

	predictions map[string]Prediction
	outcomes    []Outcome

	errorHistory    []float64
	accuracyHistory []float64
}

// New returns a fresh PredictiveEstimator with no history.
func New() *PredictiveEstimator {
	return &PredictiveEstimator{
		modelCal:    newCalibrator(),
		modeCal:     newCalibrator(),
		predictions: make(map[string]Prediction),
	}
}

// Predict estimates the generation timeout for prompt under mode/model,
// folding in ctx's situational features.
func (e *PredictiveEstimator) Predict(mode, prompt, model string, ctx ExtractionContext) Prediction {
	features := ExtractFeatures(prompt, ctx)

	featureScore := 0.0
	for name, weight := range featureWeights {
		featureScore += features[name] * weight
	}
	basePrediction := baseTimeSeconds + featureScore

	modelBase := 1.0 / speedFactor(model)
	modelCalibration := e.modelCal.get(model, modelBase)
	calibrated := basePrediction * modelCalibration

	modeCalibration := e.modeCal.get(mode, 1.0)
	final := calibrated * modeCalibration

	final = clamp(final, minTimeout, maxTimeout)

	complexity := complexityFor(final)
	confidence := e.calculateConfidence(features, model)

	id := e.generateID(prompt, mode, model)
	prediction := Prediction{
		ID:               id,
		TimeoutSeconds:   final,
		Confidence:       confidence,
		Complexity:       complexity,
		Factors:          features,
		ModelCalibration: modelCalibration,
		ModeCalibration:  modeCalibration,
		Mode:             mode,
		Model:            model,
		CreatedAt:        time.Now(),
	}

	e.mu.Lock()
	e.predictions[id] = prediction
	e.mu.Unlock()

	return prediction
}

func speedFactor(model string) float64 {
	if f, ok := modelSpeedFactors[model]; ok {
		return f
	}
	return defaultModelSpeedFactor
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Outcomes returns a copy of every outcome recorded so far, oldest
// first, for callers that persist history externally.
func (e *PredictiveEstimator) Outcomes() []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Outcome(nil), e.outcomes...)
}

// LoadOutcomes seeds the estimator's outcome and calibration history
// from previously persisted records, replaying each one's calibration
// effect without requiring the original Prediction to still be pending.
func (e *PredictiveEstimator) LoadOutcomes(outcomes []Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append([]Outcome(nil), outcomes...)
	e.errorHistory = e.errorHistory[:0]
	e.accuracyHistory = e.accuracyHistory[:0]
	for _, o := range outcomes {
		ratio := o.ratio()
		e.modelCal.update(o.Model, ratio)
		e.modeCal.update(o.Mode, ratio)
		e.errorHistory = append(e.errorHistory, o.absError())
		e.accuracyHistory = append(e.accuracyHistory, ratio)
	}
	if len(e.errorHistory) > 100 {
		e.errorHistory = e.errorHistory[len(e.errorHistory)-100:]
		e.accuracyHistory = e.accuracyHistory[len(e.accuracyHistory)-100:]
	}
}

// RecordOutcome folds the actual duration of a previously issued
// prediction back into the model/mode calibrators and the rolling error
// and accuracy histories. Unknown prediction IDs are ignored.
func (e *PredictiveEstimator) RecordOutcome(predictionID string, actualSeconds float64, success bool, tokensGenerated int) {
	e.mu.Lock()
	prediction, ok := e.predictions[predictionID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.predictions, predictionID)
	e.mu.Unlock()

	outcome := Outcome{
		PredictionID:     predictionID,
		PredictedSeconds: prediction.TimeoutSeconds,
		ActualSeconds:    actualSeconds,
		Success:          success,
		TokensGenerated:  tokensGenerated,
		Mode:             prediction.Mode,
		Model:            prediction.Model,
		Complexity:       prediction.Complexity,
	}
	ratio := outcome.ratio()

	e.modelCal.update(prediction.Model, ratio)
	e.modeCal.update(prediction.Mode, ratio)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append(e.outcomes, outcome)
	e.errorHistory = append(e.errorHistory, outcome.absError())
	e.accuracyHistory = append(e.accuracyHistory, ratio)
	if len(e.errorHistory) > 100 {
		e.errorHistory = e.errorHistory[len(e.errorHistory)-100:]
		e.accuracyHistory = e.accuracyHistory[len(e.accuracyHistory)-100:]
	}
}

// GetStats summarizes the outcome history recorded so far.
func (e *PredictiveEstimator) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.outcomes) == 0 {
		return Stats{MeanAccuracy: 1.0, RecentAccuracy: 1.0}
	}

	successCount := 0
	for _, o := range e.outcomes {
		if o.Success {
			successCount++
		}
	}

	recent := e.accuracyHistory
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	return Stats{
		TotalPredictions: len(e.outcomes),
		MeanError:        mean(e.errorHistory),
		MedianError:      median(e.errorHistory),
		MeanAccuracy:     mean(e.accuracyHistory),
		StdAccuracy:      stddev(e.accuracyHistory),
		SuccessRate:      float64(successCount) / float64(len(e.outcomes)),
		RecentAccuracy:   mean(recent),
	}
}

func (e *PredictiveEstimator) calculateConfidence(features map[string]float64, model string) float64 {
	e.mu.Lock()
	outcomeCount := len(e.outcomes)
	accuracyHistory := append([]float64(nil), e.accuracyHistory...)
	e.mu.Unlock()

	confidence := 0.5

	if outcomeCount > 10 {
		confidence += 0.15
	}
	if outcomeCount > 50 {
		confidence += 0.10
	}

	if len(accuracyHistory) > 0 {
		recent := accuracyHistory
		if len(recent) > 10 {
			recent = recent[len(recent)-10:]
		}
		recentAccuracy := mean(recent)
		switch {
		case recentAccuracy >= 0.8 && recentAccuracy <= 1.2:
			confidence += 0.15
		case recentAccuracy >= 0.6 && recentAccuracy <= 1.5:
			confidence += 0.05
		}
	}

	if features["complexity_keywords"] < 0.2 {
		confidence -= 0.10
	}

	if _, known := modelSpeedFactors[model]; known {
		confidence += 0.05
	}

	return clamp(confidence, 0.3, 0.95)
}

func (e *PredictiveEstimator) generateID(prompt, mode, model string) string {
	trimmed := prompt
	if len(trimmed) > 100 {
		trimmed = trimmed[:100]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s%s%s%d", trimmed, mode, model, time.Now().UnixNano())))
	return hex.EncodeToString(sum[:])[:12]
}
