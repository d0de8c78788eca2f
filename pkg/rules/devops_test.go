package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKubernetesRulePassesWellFormedDeployment(t *testing.T) {
	manifest := `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  template:
    spec:
      containers:
        - name: app
          image: app:1.0
          resources:
            limits:
              cpu: "1"
          livenessProbe:
            httpGet:
              path: /healthz
              port: 8080
`
	r := &kubernetesRule{}
	res := r.Check(context.Background(), manifest)
	assert.True(t, res.Passed)
}

func TestKubernetesRuleFlagsMissingLimitsAndProbes(t *testing.T) {
	manifest := `
apiVersion: v1
kind: Pod
spec:
  containers:
    - name: app
      image: app:1.0
`
	r := &kubernetesRule{}
	res := r.Check(context.Background(), manifest)
	assert.False(t, res.Passed)
	assert.Len(t, res.Messages, 2)
}

func TestKubernetesRuleFlagsMissingAPIVersion(t *testing.T) {
	r := &kubernetesRule{}
	res := r.Check(context.Background(), "kind: Pod\n")
	assert.False(t, res.Passed)
	assert.Equal(t, 0.2, res.Score)
}

func TestKubernetesRuleRejectsUnparseableYAML(t *testing.T) {
	r := &kubernetesRule{}
	res := r.Check(context.Background(), "not: valid: yaml: at: all:")
	assert.False(t, res.Passed)
}

func TestTerraformRuleFlagsUnpinnedProvider(t *testing.T) {
	src := `
provider "aws" {
  region = "us-east-1"
}

resource "aws_instance" "web" {
  ami = "ami-123"
}
`
	r := &terraformRule{}
	res := r.Check(context.Background(), src)
	assert.False(t, res.Passed)
}

func TestTerraformRulePassesPinnedProviderAndNonEmptyResource(t *testing.T) {
	src := `
provider "aws" {
  region  = "us-east-1"
  version = "~> 4.0"
}

resource "aws_instance" "web" {
  ami = "ami-123"
}
`
	r := &terraformRule{}
	res := r.Check(context.Background(), src)
	assert.True(t, res.Passed)
}

func TestTerraformRuleRejectsInvalidHCL(t *testing.T) {
	r := &terraformRule{}
	res := r.Check(context.Background(), "resource aws_instance web {")
	assert.False(t, res.Passed)
}

func TestYAMLStyleRuleFlagsDuplicateKeys(t *testing.T) {
	r := &yamlStyleRule{}
	res := r.Check(context.Background(), "name: a\nname: b\n")
	assert.False(t, res.Passed)
}

func TestYAMLStyleRuleFlagsTabIndentation(t *testing.T) {
	r := &yamlStyleRule{}
	res := r.Check(context.Background(), "name: a\nnested:\n\tchild: b\n")
	assert.False(t, res.Passed)
}

func TestYAMLStyleRulePassesCleanYAML(t *testing.T) {
	r := &yamlStyleRule{}
	res := r.Check(context.Background(), "name: a\nversion: 1\n")
	assert.True(t, res.Passed)
}

func TestDockerfileHeuristicFlagsUnpinnedBaseImage(t *testing.T) {
	r := &dockerfileHeuristicRule{}
	res := r.Check(context.Background(), "FROM golang:latest\nUSER appuser\nHEALTHCHECK CMD true\n")
	assert.False(t, res.Passed)
	require.NotEmpty(t, res.Messages)
	assert.Contains(t, res.Messages[0], "DOCK001")
}

func TestDockerfileHeuristicFlagsMissingUserAndHealthcheck(t *testing.T) {
	r := &dockerfileHeuristicRule{}
	res := r.Check(context.Background(), "FROM golang:1.22\n")
	assert.False(t, res.Passed)
	assert.Len(t, res.Messages, 2)
}

func TestDockerfileHeuristicPassesHardenedImage(t *testing.T) {
	r := &dockerfileHeuristicRule{}
	res := r.Check(context.Background(), "FROM golang:1.22\nUSER appuser\nHEALTHCHECK CMD true\n")
	assert.True(t, res.Passed)
}

func TestGitHubActionsRuleFlagsUnpinnedAction(t *testing.T) {
	workflow := `
on:
  push:
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
`
	r := &githubActionsRule{}
	res := r.Check(context.Background(), workflow)
	assert.False(t, res.Passed)
}

func TestGitHubActionsRulePassesPinnedAction(t *testing.T) {
	workflow := `
on:
  push:
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@8f4b7f84864484a7bf31766abe9204da3cbe65b3
`
	r := &githubActionsRule{}
	res := r.Check(context.Background(), workflow)
	assert.True(t, res.Passed)
}

func TestGitHubActionsRuleFlagsWriteAllPermissions(t *testing.T) {
	workflow := `
permissions: write-all
on:
  push:
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@8f4b7f84864484a7bf31766abe9204da3cbe65b3
`
	r := &githubActionsRule{}
	res := r.Check(context.Background(), workflow)
	assert.False(t, res.Passed)
}
