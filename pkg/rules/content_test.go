package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyContentDockerfile(t *testing.T) {
	assert.Equal(t, ContentDockerfile, ClassifyContent("FROM golang:1.22\nRUN go build ./...\n"))
}

func TestClassifyContentTerraform(t *testing.T) {
	assert.Equal(t, ContentTerraform, ClassifyContent(`resource "aws_instance" "web" {
  ami = "ami-123"
}`))
}

func TestClassifyContentGitHubActions(t *testing.T) {
	assert.Equal(t, ContentGitHubActions, ClassifyContent("on:\n  push:\njobs:\n  build:\n    runs-on: ubuntu-latest\n"))
}

func TestClassifyContentKubernetes(t *testing.T) {
	assert.Equal(t, ContentKubernetes, ClassifyContent("apiVersion: v1\nkind: Pod\nmetadata:\n  name: x\n"))
}

func TestClassifyContentGenericYAML(t *testing.T) {
	assert.Equal(t, ContentYAML, ClassifyContent("name: example\nversion: 1.0.0\n"))
}

func TestClassifyContentPython(t *testing.T) {
	assert.Equal(t, ContentPython, ClassifyContent("import os\n\ndef main():\n    pass\n"))
}

func TestClassifyContentUnknown(t *testing.T) {
	assert.Equal(t, ContentUnknown, ClassifyContent("???,,,,***"))
}

func TestRulesForDispatchesByContentType(t *testing.T) {
	assert.NotEmpty(t, RulesFor(ContentPython))
	assert.NotEmpty(t, RulesFor(ContentKubernetes))
	assert.NotEmpty(t, RulesFor(ContentTerraform))
	assert.NotEmpty(t, RulesFor(ContentDockerfile))
	assert.NotEmpty(t, RulesFor(ContentGitHubActions))
	assert.NotEmpty(t, RulesFor(ContentYAML))
	assert.Nil(t, RulesFor(ContentUnknown))
}
