package controller

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balazsgrill/synapse"
)

func TestFallbackIsDeterministic(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	for _, class := range []FailureClass{FailureServer, FailureNetwork} {
		t.Run(class.String(), func(t *testing.T) {
			a := Fallback(class, "exec_1", "Driver stuck", at)
			b := Fallback(class, "exec_1", "Driver stuck", at)
			assert.Equal(t, a, b)
		})
	}
}

func TestFallbackShape(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		class         FailureClass
		wantReasoning string
		wantTool      string
	}{
		{FailureServer, ServerErrorReasoning, "notify_customer"},
		{FailureNetwork, NetworkFailureReasoning, "check_traffic"},
	}

	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			exec := Fallback(tt.class, "exec_7", "Package recipient unavailable", at)

			assert.Equal(t, "exec_7", exec.ID)
			assert.Equal(t, "Package recipient unavailable", exec.Scenario)
			assert.Equal(t, at, exec.Timestamp)
			assert.False(t, exec.Success)
			assert.Equal(t, tt.wantReasoning, exec.Reasoning)

			require.Len(t, exec.PlannedActions, 1)
			require.Len(t, exec.ExecutionResults, 1)
			action := exec.PlannedActions[0]
			result := exec.ExecutionResults[0]
			assert.Equal(t, tt.wantTool, action.Tool)
			assert.Equal(t, action.Tool, result.Tool)
			assert.Equal(t, action.Params, result.Params)
			assert.Equal(t, action.Reasoning, result.Reasoning)
			assert.Equal(t, synapse.StatusSuccess, result.Status)
			assert.Empty(t, result.Error)
			assert.NotNil(t, result.Result)
		})
	}
}

func TestFallbackReasoningsDiffer(t *testing.T) {
	assert.NotEqual(t, ServerErrorReasoning, NetworkFailureReasoning)
	assert.NotEmpty(t, ServerErrorReasoning)
	assert.NotEmpty(t, NetworkFailureReasoning)
}

func TestFallbackRecordsDoNotShareParams(t *testing.T) {
	at := time.Now()
	a := Fallback(FailureNetwork, "exec_1", "s", at)
	b := Fallback(FailureNetwork, "exec_2", "s", at)

	a.PlannedActions[0].Params.(map[string]any)["location"] = "elsewhere"
	assert.Equal(t, "test_location", b.PlannedActions[0].Params.(map[string]any)["location"])
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureServer, Classify(&StatusError{Status: 502}))
	assert.Equal(t, FailureServer, Classify(errors.Wrap(&StatusError{Status: 500}, "execute")))
	assert.Equal(t, FailureNetwork, Classify(errors.New("connection refused")))
}

func TestFallbackResultParamsAreSeparateFromAction(t *testing.T) {
	at := time.Now()

	for _, class := range []FailureClass{FailureServer, FailureNetwork} {
		t.Run(class.String(), func(t *testing.T) {
			exec := Fallback(class, "exec_1", "s", at)
			want := synapse.CopyValue(exec.PlannedActions[0].Params)

			exec.ExecutionResults[0].Params.(map[string]any)["extra"] = "changed"
			assert.Equal(t, want, exec.PlannedActions[0].Params)
		})
	}
}
