package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PreferencesFileName is the user-preferences file searched for in the
// project directory and then the home directory, in that order.
const PreferencesFileName = ".qwencoderules"

// UserPreferences captures the handful of settings a caller is expected
// to tune directly; everything else (TTFT, idle, absolute deadlines,
// per-mode step lists) is derived from it.
type UserPreferences struct {
	Timeouts struct {
		MaxWait       float64 `yaml:"max_wait"`
		OnTimeout     string  `yaml:"on_timeout"`     // degrade|abort|ask
		RiskTolerance string  `yaml:"risk_tolerance"` // conservative|balanced|aggressive
	} `yaml:"timeouts"`

	Preferences struct {
		Priority       string `yaml:"priority"` // speed|balanced|quality
		PreferredModel string `yaml:"preferred_model"`
		FallbackModel  string `yaml:"fallback_model"`
	} `yaml:"preferences"`

	Modes struct {
		FastBudget float64 `yaml:"fast_budget"`
		DeepBudget float64 `yaml:"deep_budget"`
	} `yaml:"modes"`
}

// DefaultUserPreferences returns the built-in defaults used when no
// preferences file is found.
func DefaultUserPreferences() UserPreferences {
	var p UserPreferences
	p.Timeouts.MaxWait = 120
	p.Timeouts.OnTimeout = "degrade"
	p.Timeouts.RiskTolerance = "balanced"
	p.Preferences.Priority = "balanced"
	p.Modes.FastBudget = 30
	p.Modes.DeepBudget = 180
	return p
}

// LoadUserPreferences resolves {projectDir}/.qwencoderules, then
// ~/.qwencoderules, then falls back to DefaultUserPreferences. A file
// that exists but fails to parse is a hard error; a file that simply
// isn't there at either location is not.
func LoadUserPreferences(projectDir string) (UserPreferences, error) {
	paths := candidatePaths(projectDir)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return UserPreferences{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		return parsePreferences(data)
	}

	return DefaultUserPreferences(), nil
}

func candidatePaths(projectDir string) []string {
	var paths []string
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, PreferencesFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, PreferencesFileName))
	}
	return paths
}

func parsePreferences(data []byte) (UserPreferences, error) {
	prefs := DefaultUserPreferences()
	expanded := ExpandEnv(data)
	if err := yaml.Unmarshal(expanded, &prefs); err != nil {
		return UserPreferences{}, fmt.Errorf("config: parse preferences: %w", err)
	}
	return prefs, nil
}

// ModeBudget returns the seconds budget for mode under these
// preferences, mirroring the original's name-substring dispatch:
// "fast" and "search" modes scale off FastBudget, "deep6" scales
// DeepBudget by 1.5x, everything else uses DeepBudget as-is. The
// result is always capped at MaxWait.
func (p UserPreferences) ModeBudget(mode string) float64 {
	mode = strings.ToLower(mode)
	var budget float64
	switch {
	case strings.Contains(mode, "fast"):
		budget = p.Modes.FastBudget
	case strings.Contains(mode, "deep6"):
		budget = p.Modes.DeepBudget * 1.5
	case strings.Contains(mode, "deep"):
		budget = p.Modes.DeepBudget
	case strings.Contains(mode, "search"):
		budget = p.Modes.FastBudget * 2
	default:
		budget = p.Modes.DeepBudget
	}
	if budget > p.Timeouts.MaxWait {
		return p.Timeouts.MaxWait
	}
	return budget
}
