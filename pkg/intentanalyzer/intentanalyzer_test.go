package intentanalyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func feed(s *State, tokens []string, budget time.Duration) Decision {
	var d Decision
	for _, tok := range tokens {
		d = s.Analyze(tok, budget, budget)
	}
	return d
}

func TestAnalyzeDetectsCodeGenerationInsideFence(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"Sure, here: ", "```python\n", "def f():\n", "    return 1\n"}, time.Second)
	assert.Equal(t, IntentCodeGeneration, d.Intent)
	assert.Greater(t, d.ExtensionSeconds, time.Duration(0))
}

func TestAnalyzeDetectsToolCall(t *testing.T) {
	s := NewState()
	d := feed(s, []string{`{"tool_call": `, `{"name": "search"}}`}, time.Second)
	assert.Equal(t, IntentToolCall, d.Intent)
}

func TestAnalyzeDetectsCompletionAndShortens(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"In summary, ", "that covers it. ", "Let me know if you need more."}, 10*time.Second)
	assert.Equal(t, IntentCompletion, d.Intent)
	assert.Greater(t, d.ShortenSeconds, time.Duration(0))
}

func TestAnalyzeDetectsErrorHandling(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"Traceback (most recent call last): ", "failed to connect"}, time.Second)
	assert.Equal(t, IntentErrorHandling, d.Intent)
}

func TestAnalyzeDetectsContinuationSteps(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"Step 1: do this. ", "Next, do that."}, time.Second)
	assert.Equal(t, IntentContinuation, d.Intent)
}

func TestAnalyzeDetectsListGeneration(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"- first item\n", "- second item\n"}, time.Second)
	assert.Equal(t, IntentListGeneration, d.Intent)
}

func TestAnalyzeFallsBackToExplanation(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"The quick brown fox jumps over the lazy dog."}, time.Second)
	assert.Equal(t, IntentExplanation, d.Intent)
}

func TestAnalyzeEarlyTerminationAfterRepeatedStrongSignals(t *testing.T) {
	s := NewState()
	var d Decision
	for i := 0; i < earlyTerminationAfter+1; i++ {
		d = s.Analyze("word ", time.Second, time.Second)
	}
	d = s.Analyze("In summary, that's it. ", time.Second, time.Second)
	d = s.Analyze("I hope this helps.", time.Second, time.Second)
	assert.True(t, d.EarlyTermination)
}

func TestAnalyzeNoEarlyTerminationDuringCodeGeneration(t *testing.T) {
	s := NewState()
	for i := 0; i < earlyTerminationAfter+5; i++ {
		s.Analyze("x", time.Second, time.Second)
	}
	d := s.Analyze("```", time.Second, time.Second)
	assert.False(t, d.EarlyTermination)
}

func TestAnalyzeExtensionNeverExceedsMaxFactor(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"```python\ndef f(): pass\n"}, time.Minute)
	maxExt := time.Duration(float64(time.Minute) * (maxExtensionFactor - 1.0))
	assert.LessOrEqual(t, d.ExtensionSeconds, maxExt)
}

func TestAnalyzeShortenNeverExceedsHalfRemaining(t *testing.T) {
	s := NewState()
	d := feed(s, []string{"In summary, that's it. I hope this helps."}, time.Minute)
	assert.LessOrEqual(t, d.ShortenSeconds, time.Minute/2)
}
