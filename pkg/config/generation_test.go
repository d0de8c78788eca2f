package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGenerationConfigBuild(t *testing.T) {
	gc := DefaultGenerationConfig()
	opts := gc.Build()
	assert.Equal(t, gc.N, opts.N)
	assert.Equal(t, gc.Temperatures, opts.Temperatures)
}

func TestScoringConfigBuildOverridesDefaults(t *testing.T) {
	sc := ScoringConfig{Weights: map[string]float64{"ast_syntax": 5}, AllPassBonus: 0.3, CriticalPenaltyBase: 0.25}
	s := sc.Build()
	assert.Equal(t, 0.3, s.AllPassBonus)
	assert.Equal(t, 0.25, s.CriticalPenaltyBase)
	assert.Equal(t, 5.0, s.Weights["ast_syntax"])
}

func TestDefaultScoringConfigUsesPackageDefaults(t *testing.T) {
	sc := DefaultScoringConfig()
	s := sc.Build()
	assert.Equal(t, 0.15, s.AllPassBonus)
	assert.Equal(t, 0.5, s.CriticalPenaltyBase)
}
