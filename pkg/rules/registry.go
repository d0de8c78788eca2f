package rules

// RulesFor returns the rule set appropriate for a classified content type.
// Ansible and unclassified content fall back to the generic YAML rule set
// (Ansible playbooks are valid YAML even though no dedicated rule exists
// for them yet), and truly unknown content gets no rules at all.
func RulesFor(ct ContentType) []Rule {
	switch ct {
	case ContentPython:
		return DefaultPythonRules()
	case ContentKubernetes:
		return []Rule{&kubernetesRule{}}
	case ContentTerraform:
		return DefaultTerraformRules()
	case ContentDockerfile:
		return DefaultDockerfileRules()
	case ContentGitHubActions:
		return DefaultGitHubActionsRules()
	case ContentYAML, ContentAnsible:
		return DefaultYAMLRules()
	default:
		return nil
	}
}
