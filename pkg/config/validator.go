package config

import (
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/pipeline"
	"github.com/northbeam-labs/codevalidator/pkg/prevalidate"
	"github.com/northbeam-labs/codevalidator/pkg/propertytest"
	"github.com/northbeam-labs/codevalidator/pkg/resourcemonitor"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
	"github.com/northbeam-labs/codevalidator/pkg/sandbox"
)

// ValidatorConfig is the declarative, user-facing surface for the
// Layered Validation Pipeline. A zero-value ValidatorConfig, once
// passed through Build, behaves exactly like pipeline.DefaultConfig.
type ValidatorConfig struct {
	StopOnFailure bool `yaml:"stop_on_failure"`

	EnablePrevalidation    bool `yaml:"enable_prevalidation"`
	EnableStaticAnalysis   bool `yaml:"enable_static_analysis"`
	EnableSandboxExecution bool `yaml:"enable_sandbox_execution"`
	EnablePropertyTests    bool `yaml:"enable_property_tests"`
	EnableResourceReport   bool `yaml:"enable_resource_report"`

	MaxCodeLength int `yaml:"max_code_length"`
	MaxLines      int `yaml:"max_lines"`
	MaxNesting    int `yaml:"max_nesting"`

	// ForbiddenImports, when non-nil, replaces the package default
	// forbidden-import set entirely rather than extending it.
	ForbiddenImports []string `yaml:"forbidden_imports,omitempty"`

	StaticAnalysisTimeout time.Duration `yaml:"static_analysis_timeout"`

	SandboxBackend  string        `yaml:"sandbox_backend"` // restricted|subprocess|container
	SandboxTimeout  time.Duration `yaml:"sandbox_timeout"`
	SandboxMemoryMB int           `yaml:"sandbox_memory_mb"`

	PropertyTestExamples int `yaml:"property_test_examples"`

	ResourceMaxMemoryMB float64       `yaml:"resource_max_memory_mb"`
	ResourceMaxWallTime time.Duration `yaml:"resource_max_wall_time"`
}

// DefaultValidatorConfig mirrors pipeline.DefaultConfig's effective
// settings in declarative form.
func DefaultValidatorConfig() ValidatorConfig {
	pd := prevalidate.NewConfig()
	rl := resourcemonitor.DefaultLimits()
	return ValidatorConfig{
		StopOnFailure:          true,
		EnablePrevalidation:    true,
		EnableStaticAnalysis:   true,
		EnableSandboxExecution: true,
		EnablePropertyTests:    true,
		EnableResourceReport:   true,
		MaxCodeLength:          pd.MaxCodeLength,
		MaxLines:               pd.MaxLines,
		MaxNesting:             pd.MaxNesting,
		StaticAnalysisTimeout:  10 * time.Second,
		SandboxBackend:         string(sandbox.BackendSubprocess),
		SandboxTimeout:         10 * time.Second,
		SandboxMemoryMB:        256,
		PropertyTestExamples:   100,
		ResourceMaxMemoryMB:    rl.MaxMemoryMB,
		ResourceMaxWallTime:    rl.MaxWallTime,
	}
}

// Build turns the declarative config into a pipeline.Config, wiring up
// every sub-package's concrete type. Levels with their Enable* flag
// cleared have their component left nil, which the Pipeline treats as
// "skip this level".
func (vc ValidatorConfig) Build() pipeline.Config {
	cfg := pipeline.Config{StopOnFailure: vc.StopOnFailure}

	if vc.EnablePrevalidation {
		pCfg := prevalidate.NewConfig()
		if vc.MaxCodeLength > 0 {
			pCfg.MaxCodeLength = vc.MaxCodeLength
		}
		if vc.MaxLines > 0 {
			pCfg.MaxLines = vc.MaxLines
		}
		if vc.MaxNesting > 0 {
			pCfg.MaxNesting = vc.MaxNesting
		}
		if len(vc.ForbiddenImports) > 0 {
			pCfg.ForbiddenImports = toSet(vc.ForbiddenImports)
		}
		cfg.Prevalidator = prevalidate.New(pCfg)
	}

	if vc.EnableStaticAnalysis {
		cfg.StaticRunner = &rules.Runner{Rules: rules.DefaultPythonRules(), Parallel: true}
	}

	if vc.EnableSandboxExecution {
		backend := sandbox.BackendType(vc.SandboxBackend)
		if backend == "" {
			backend = sandbox.BackendSubprocess
		}
		sCfg := sandbox.DefaultConfig()
		if vc.SandboxMemoryMB > 0 {
			sCfg.MaxMemoryMB = vc.SandboxMemoryMB
		}
		if vc.SandboxTimeout > 0 {
			sCfg.Timeout = vc.SandboxTimeout
		}
		cfg.SandboxExecutor = sandbox.New(backend, sCfg)
		cfg.SandboxTimeout = sCfg.Timeout
	}

	if vc.EnablePropertyTests {
		examples := vc.PropertyTestExamples
		if examples <= 0 {
			examples = 100
		}
		cfg.Tester = &propertytest.Tester{MaxExamples: examples, Seed: 1}
	}

	if vc.EnableResourceReport {
		limits := resourcemonitor.DefaultLimits()
		if vc.ResourceMaxMemoryMB > 0 {
			limits.MaxMemoryMB = vc.ResourceMaxMemoryMB
		}
		if vc.ResourceMaxWallTime > 0 {
			limits.MaxWallTime = vc.ResourceMaxWallTime
		}
		cfg.ResourceLimits = limits
	}

	return cfg
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}
