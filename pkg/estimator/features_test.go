package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFeaturesDetectsComplexityKeyword(t *testing.T) {
	f := ExtractFeatures("Please refactor this module", ExtractionContext{})
	assert.InDelta(t, 0.5, f["complexity_keywords"], 0.001)
}

func TestExtractFeaturesPicksHighestMatchingComplexity(t *testing.T) {
	f := ExtractFeatures("rewrite and also fix this", ExtractionContext{})
	assert.InDelta(t, 0.9, f["complexity_keywords"], 0.001)
}

func TestExtractFeaturesTaskTypeScores(t *testing.T) {
	f := ExtractFeatures("fix the bug causing this error", ExtractionContext{})
	assert.Greater(t, f["task_bug_fix"], 0.0)
}

func TestExtractFeaturesPresenceFlags(t *testing.T) {
	f := ExtractFeatures("Fix parser.py\n```python\ncode\n```\nIs this right?", ExtractionContext{})
	assert.Equal(t, 1.0, f["has_file_path"])
	assert.Equal(t, 1.0, f["has_code_block"])
	assert.Equal(t, 1.0, f["is_question"])
}

func TestExtractFeaturesContextFields(t *testing.T) {
	f := ExtractFeatures("do something", ExtractionContext{PreReadContent: true, Iteration: 10})
	assert.Equal(t, 1.0, f["has_pre_read"])
	assert.Equal(t, 1.0, f["iteration_count"])
}

func TestExtractFeaturesPromptLengthNormalizes(t *testing.T) {
	longPrompt := ""
	for i := 0; i < 600; i++ {
		longPrompt += "word "
	}
	f := ExtractFeatures(longPrompt, ExtractionContext{})
	assert.Equal(t, 1.0, f["prompt_length"])
}
