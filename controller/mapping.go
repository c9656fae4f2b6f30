package controller

import (
	"fmt"
	"time"

	"github.com/balazsgrill/synapse"
)

const (
	NoReasoningProvided = "No reasoning provided"
	// MissingErrorMessage stands in for the error text of a failed tool
	// call that the upstream reported without one.
	MissingErrorMessage = "Tool call failed without an error message"
)

// MapUpstream converts an upstream success body into an AgentExecution.
// Missing fields get defaults; Success is copied verbatim.
func MapUpstream(id, scenario string, up *synapse.UpstreamExecution, at time.Time) synapse.AgentExecution {
	if up == nil {
		up = &synapse.UpstreamExecution{}
	}

	reasoning := up.AgentReasoning
	if reasoning == "" {
		reasoning = NoReasoningProvided
	}
	planned := up.PlannedActions
	if planned == nil {
		planned = []synapse.PlannedAction{}
	}
	results := make([]synapse.ExecutionResult, len(up.ExecutionResults))
	for i, r := range up.ExecutionResults {
		results[i] = normalizeResult(r)
	}

	return synapse.AgentExecution{
		ID:               id,
		Scenario:         scenario,
		Reasoning:        reasoning,
		PlannedActions:   planned,
		ExecutionResults: results,
		Timestamp:        at,
		Success:          up.Success,
	}
}

// normalizeResult enforces the result invariant: a status other than
// success is an error, and an error always carries a message.
func normalizeResult(r synapse.ExecutionResult) synapse.ExecutionResult {
	switch r.Status {
	case synapse.StatusSuccess:
		return r
	case synapse.StatusError:
		if r.Error == "" {
			r.Error = MissingErrorMessage
		}
	default:
		if r.Error == "" {
			r.Error = fmt.Sprintf("unknown result status %q", r.Status)
		}
		r.Status = synapse.StatusError
	}
	r.Result = nil
	return r
}
