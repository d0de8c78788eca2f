package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityError))
	assert.True(t, SeverityError.AtLeast(SeverityError))
	assert.False(t, SeverityWarning.AtLeast(SeverityError))
	assert.True(t, SeverityInfo.AtLeast(SeverityInfo))
}

func TestHasSeverityAtLeast(t *testing.T) {
	issues := []Issue{
		New(SeverityWarning, PV005WhileTrueNoBreak, "loop", 1, 0),
		New(SeverityInfo, PV020DunderInString, "str", 2, 0),
	}
	assert.False(t, HasSeverityAtLeast(issues, SeverityError))

	issues = append(issues, New(SeverityCritical, PV001ForbiddenImport, "os", 3, 0))
	assert.True(t, HasSeverityAtLeast(issues, SeverityError))
}

func TestIssueString(t *testing.T) {
	i := New(SeverityCritical, PV001ForbiddenImport, "forbidden import: os", 4, 0)
	assert.Contains(t, i.String(), "CRITICAL")
	assert.Contains(t, i.String(), "PV001")
	assert.Contains(t, i.String(), "[4:0]")
}

func TestDescribeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "code did not parse", Describe(PV000SyntaxError))
	assert.Equal(t, "TFSEC999", Describe(Code("TFSEC999")))
}

func TestRegisterAddsDescription(t *testing.T) {
	Register("TESTCODE001", "a registered test description")
	assert.Equal(t, "a registered test description", Describe("TESTCODE001"))
}
