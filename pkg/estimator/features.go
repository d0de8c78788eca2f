package estimator

import "strings"

// complexityKeywords maps a complexity level to the phrases whose presence
// nudges the feature score toward that level.
var complexityKeywords = map[string][]string{
	"trivial":      {"print", "hello", "test", "simple", "quick"},
	"simple":       {"fix", "add", "remove", "change", "update"},
	"moderate":     {"refactor", "implement", "create", "build"},
	"complex":      {"architecture", "redesign", "optimize", "migrate"},
	"very_complex": {"rewrite", "overhaul", "complete system", "full rewrite"},
}

var complexityLevelScore = map[string]float64{
	"trivial":      0.1,
	"simple":       0.3,
	"moderate":     0.5,
	"complex":      0.7,
	"very_complex": 0.9,
}

// complexityOrder fixes iteration order so the highest-scoring match wins
// deterministically regardless of Go's randomized map iteration.
var complexityOrder = []string{"trivial", "simple", "moderate", "complex", "very_complex"}

// taskTypeKeywords maps a task type to the phrases that identify it.
var taskTypeKeywords = map[string][]string{
	"code_generation": {"write", "create", "implement", "add function"},
	"bug_fix":         {"fix", "bug", "error", "issue", "broken"},
	"refactoring":     {"refactor", "clean", "improve", "restructure"},
	"analysis":        {"analyze", "review", "check", "examine"},
	"search":          {"find", "search", "locate", "where is"},
}

var taskTypeOrder = []string{"code_generation", "bug_fix", "refactoring", "analysis", "search"}

// ExtractionContext carries the optional situational fields the feature
// extractor folds in alongside the prompt text.
type ExtractionContext struct {
	PreReadContent bool
	Iteration      int
}

// ExtractFeatures derives a normalized (0-1, except the signed keyword
// weight terms) feature map from prompt and ctx, mirroring the predictive
// estimator's feature set: prompt length, code line count, keyword-based
// complexity and task-type scores, and a handful of presence flags.
func ExtractFeatures(prompt string, ctx ExtractionContext) map[string]float64 {
	features := make(map[string]float64)
	promptLower := strings.ToLower(prompt)

	wordCount := len(strings.Fields(prompt))
	features["prompt_length"] = minF(float64(wordCount)/500.0, 1.0)

	codeLines := strings.Count(prompt, "\n")
	features["code_lines"] = minF(float64(codeLines)/100.0, 1.0)

	complexityScore := 0.0
	for _, level := range complexityOrder {
		for _, kw := range complexityKeywords[level] {
			if strings.Contains(promptLower, kw) {
				if s := complexityLevelScore[level]; s > complexityScore {
					complexityScore = s
				}
			}
		}
	}
	features["complexity_keywords"] = complexityScore

	for _, taskType := range taskTypeOrder {
		count := 0
		for _, kw := range taskTypeKeywords[taskType] {
			if strings.Contains(promptLower, kw) {
				count++
			}
		}
		features["task_"+taskType] = minF(float64(count)/2.0, 1.0)
	}

	features["has_file_path"] = boolF(strings.Contains(prompt, ".py") || strings.Contains(prompt, ".js") || strings.Contains(prompt, ".ts"))
	features["has_error_trace"] = boolF(strings.Contains(promptLower, "error") || strings.Contains(promptLower, "traceback"))
	features["has_code_block"] = boolF(strings.Contains(prompt, "```"))
	features["is_question"] = boolF(strings.Contains(prompt, "?"))

	features["has_pre_read"] = boolF(ctx.PreReadContent)
	features["iteration_count"] = minF(float64(ctx.Iteration)/5.0, 1.0)

	return features
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func boolF(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
