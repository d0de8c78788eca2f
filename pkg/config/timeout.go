package config

import (
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/timeoutctl"
)

// TimeoutConfig is the declarative surface for the Timeout Controller's
// three independent deadlines.
type TimeoutConfig struct {
	TTFT     time.Duration `yaml:"ttft"`
	Idle     time.Duration `yaml:"idle"`
	Absolute time.Duration `yaml:"absolute"`
}

// DefaultTimeoutConfig mirrors timeoutctl.DefaultDeadlines.
func DefaultTimeoutConfig() TimeoutConfig {
	d := timeoutctl.DefaultDeadlines()
	return TimeoutConfig{TTFT: d.TimeToFirstToken, Idle: d.InterTokenIdle, Absolute: d.Absolute}
}

// ToTimeoutConfig translates a priority preference into concrete
// deadlines: speed favors short timeouts and fast fallback, quality
// favors patience, balanced splits the difference. Each tier's
// absolute ceiling is capped at the user's MaxWait.
func (p UserPreferences) ToTimeoutConfig() TimeoutConfig {
	ceiling := func(v float64) time.Duration {
		if p.Timeouts.MaxWait > 0 && v > p.Timeouts.MaxWait {
			v = p.Timeouts.MaxWait
		}
		return time.Duration(v * float64(time.Second))
	}
	switch p.Preferences.Priority {
	case "speed":
		return TimeoutConfig{TTFT: 10 * time.Second, Idle: 8 * time.Second, Absolute: ceiling(60)}
	case "quality":
		return TimeoutConfig{TTFT: 45 * time.Second, Idle: 30 * time.Second, Absolute: ceiling(600)}
	default: // balanced
		return TimeoutConfig{TTFT: 45 * time.Second, Idle: 25 * time.Second, Absolute: ceiling(300)}
	}
}

// Build converts the declarative config into timeoutctl.Deadlines.
func (tc TimeoutConfig) Build() timeoutctl.Deadlines {
	d := timeoutctl.DefaultDeadlines()
	if tc.TTFT > 0 {
		d.TimeToFirstToken = tc.TTFT
	}
	if tc.Idle > 0 {
		d.InterTokenIdle = tc.Idle
	}
	if tc.Absolute > 0 {
		d.Absolute = tc.Absolute
	}
	return d
}
