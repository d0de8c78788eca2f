package rules

import (
	"context"
	"fmt"

	k8syaml "sigs.k8s.io/yaml"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
)

func init() {
	issue.Register("K8S001", "manifest missing apiVersion or kind")
	issue.Register("K8S002", "container missing resource limits")
	issue.Register("K8S003", "container missing a liveness or readiness probe")
	issue.Register("K8S004", "container running without a non-root security context")
}

// kubernetesRule decodes a manifest into unstructured.Unstructured for real
// structural validation, rather than regex heuristics over YAML text.
type kubernetesRule struct{}

func (r *kubernetesRule) Name() string        { return "k8s_manifest" }
func (r *kubernetesRule) Severity() Severity  { return issue.SeverityError }
func (r *kubernetesRule) BaseWeight() float64 { return 2.0 }
func (r *kubernetesRule) ThreadSafe() bool    { return true }

func (r *kubernetesRule) Check(ctx context.Context, code string) Result {
	obj := &unstructured.Unstructured{}
	raw := map[string]interface{}{}
	if err := k8syaml.Unmarshal([]byte(code), &raw); err != nil {
		return Result{RuleName: r.Name(), Passed: false, Score: 0.0, Severity: issue.SeverityCritical,
			Messages: []string{"manifest did not parse as YAML: " + err.Error()}}
	}
	obj.Object = raw

	var msgs []string
	if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
		msgs = append(msgs, "K8S001: "+issue.Describe("K8S001"))
		return Result{RuleName: r.Name(), Passed: false, Score: 0.2, Severity: issue.SeverityError, Messages: msgs}
	}

	if obj.GetKind() != "Pod" && obj.GetKind() != "Deployment" && obj.GetKind() != "StatefulSet" && obj.GetKind() != "DaemonSet" {
		return Result{RuleName: r.Name(), Passed: true, Score: 1.0, Severity: issue.SeverityError}
	}

	containers, found, _ := unstructured.NestedSlice(obj.Object, podContainersPath(obj.GetKind())...)
	if !found {
		msgs = append(msgs, fmt.Sprintf("K8S001: %s has no container list at the expected path", obj.GetKind()))
		return Result{RuleName: r.Name(), Passed: false, Score: 0.3, Severity: issue.SeverityError, Messages: msgs}
	}

	score := 1.0
	for _, c := range containers {
		cm, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		resources, _ := cm["resources"].(map[string]interface{})
		if _, ok := resources["limits"]; !ok {
			msgs = append(msgs, fmt.Sprintf("K8S002: container %v missing resource limits", cm["name"]))
			score -= 0.3
		}
		_, hasLiveness := cm["livenessProbe"]
		_, hasReadiness := cm["readinessProbe"]
		if !hasLiveness && !hasReadiness {
			msgs = append(msgs, fmt.Sprintf("K8S003: container %v missing liveness/readiness probe", cm["name"]))
			score -= 0.2
		}
	}
	if score < 0 {
		score = 0
	}
	return Result{RuleName: r.Name(), Passed: len(msgs) == 0, Score: score, Severity: issue.SeverityError, Messages: msgs}
}

func podContainersPath(kind string) []string {
	switch kind {
	case "Pod":
		return []string{"spec", "containers"}
	default:
		return []string{"spec", "template", "spec", "containers"}
	}
}
