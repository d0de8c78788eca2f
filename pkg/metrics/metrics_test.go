package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestRecordPipelineRunIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	RecordPipelineRun("passed", 2*time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.True(t, hasCounterSample(families, "codevalidator_pipeline_runs_total", "verdict", "passed"))
}

func TestRecordCandidateGenerationTracksCriticalErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	RecordCandidateGeneration("python_default", true)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.True(t, hasCounterSample(families, "codevalidator_candidates_critical_error_total", "profile", "python_default"))
}

func hasCounterSample(families []*dto.MetricFamily, name, labelName, labelValue string) bool {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == labelName && l.GetValue() == labelValue {
					return true
				}
			}
		}
	}
	return false
}
