package rules

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

func init() {
	issue.Register("YAML001", "document did not parse as valid YAML")
	issue.Register("YAML002", "tab character used for indentation")
	issue.Register("YAML003", "duplicate key in mapping")
}

// yamlStyleRule is the generic-YAML content-type rule: it parses with
// yaml.v3's low-level Node API (rather than a plain Unmarshal) so duplicate
// keys and comment-less structure can be inspected, plus a couple of
// line-level style checks a structural parse alone wouldn't catch.
type yamlStyleRule struct{}

func (r *yamlStyleRule) Name() string        { return "yaml_style" }
func (r *yamlStyleRule) Severity() Severity  { return issue.SeverityWarning }
func (r *yamlStyleRule) BaseWeight() float64 { return 1.0 }
func (r *yamlStyleRule) ThreadSafe() bool    { return true }

func (r *yamlStyleRule) Check(ctx context.Context, code string) Result {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(code), &doc); err != nil {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical,
			Messages: []string{"YAML001: " + err.Error()}}
	}

	var msgs []string
	for i, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		if strings.Contains(indent, "\t") {
			msgs = append(msgs, fmt.Sprintf("YAML002: line %d uses a tab for indentation", i+1))
		}
	}
	if doc.Kind != 0 {
		msgs = append(msgs, duplicateKeyMessages(&doc)...)
	}

	score := 1.0 - 0.1*float64(len(msgs))
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: len(msgs) == 0, Score: score, Severity: issue.SeverityWarning, Messages: msgs}
}

// duplicateKeyMessages walks a parsed document tree looking for mapping
// nodes that repeat a scalar key, which yaml.v3's Unmarshal silently lets
// the last one win.
func duplicateKeyMessages(n *yaml.Node) []string {
	var msgs []string
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			seen := map[string]bool{}
			for i := 0; i+1 < len(n.Content); i += 2 {
				key := n.Content[i].Value
				if seen[key] {
					msgs = append(msgs, fmt.Sprintf("YAML003: duplicate key %q at line %d", key, n.Content[i].Line))
				}
				seen[key] = true
			}
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(n)
	return msgs
}

// DefaultYAMLRules returns the generic-YAML rule set.
func DefaultYAMLRules() []Rule {
	return []Rule{&yamlStyleRule{}}
}
