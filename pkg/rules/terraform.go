package rules

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

func init() {
	issue.Register("TF001", "resource block missing a pinned provider version")
	issue.Register("TF002", "resource attribute block is empty")
}

// terraformRule parses .tf HCL source in-process to check provider pinning
// and non-empty resource bodies, rather than shelling out for every check.
// A separate external tflint rule still covers the deeper best-practice and
// security-scan concerns this in-process pass doesn't attempt.
type terraformRule struct{}

func (r *terraformRule) Name() string        { return "terraform_hcl" }
func (r *terraformRule) Severity() Severity  { return issue.SeverityWarning }
func (r *terraformRule) BaseWeight() float64 { return 1.5 }
func (r *terraformRule) ThreadSafe() bool    { return true }

func (r *terraformRule) Check(ctx context.Context, code string) Result {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(code), "candidate.tf")
	if diags.HasErrors() {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical,
			Messages: []string{"HCL did not parse: " + diags.Error()}}
	}

	content, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "resource", LabelNames: []string{"type", "name"}},
			{Type: "provider", LabelNames: []string{"name"}},
		},
	})
	if diags.HasErrors() {
		return skip(r.Name(), "could not extract blocks: "+diags.Error())
	}

	var msgs []string
	pinnedProviders := map[string]bool{}
	for _, block := range content.Blocks {
		if block.Type == "provider" {
			attrs, _ := block.Body.JustAttributes()
			if _, ok := attrs["version"]; ok {
				pinnedProviders[block.Labels[0]] = true
			}
		}
	}
	for _, block := range content.Blocks {
		if block.Type != "resource" {
			continue
		}
		attrs, _ := block.Body.JustAttributes()
		if len(attrs) == 0 {
			msgs = append(msgs, fmt.Sprintf("TF002: resource %q %q has no attributes", block.Labels[0], block.Labels[1]))
		}
	}
	if len(pinnedProviders) == 0 && hasProviderBlock(content.Blocks) {
		msgs = append(msgs, "TF001: no provider block pins a version")
	}

	score := 1.0 - 0.2*float64(len(msgs))
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: len(msgs) == 0, Score: score, Severity: issue.SeverityWarning, Messages: msgs}
}

func hasProviderBlock(blocks hcl.Blocks) bool {
	for _, b := range blocks {
		if b.Type == "provider" {
			return true
		}
	}
	return false
}

// NewTerraformExternalRules returns the external tflint/tfsec fallback
// rules, which still honor the external-rule protocol (missing tool -> skip).
func NewTerraformExternalRules() []Rule {
	return []Rule{
		NewLintRuleExt("tflint", ".tf", "tflint", func(p string) []string {
			return []string{"--format=json", p}
		}),
		NewSecurityScanRuleExt("tfsec", ".tf", "tfsec", func(p string) []string {
			return []string{"--format", "json", p}
		}),
	}
}

// DefaultTerraformRules composes the in-process HCL rule with the external
// linter/scanner fallbacks.
func DefaultTerraformRules() []Rule {
	rules := []Rule{&terraformRule{}}
	rules = append(rules, NewTerraformExternalRules()...)
	return rules
}
