package controller

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/balazsgrill/synapse"
)

// FailureClass tells which fallback record to synthesize.
type FailureClass int

const (
	// FailureNetwork covers transport errors and unparsable responses.
	FailureNetwork FailureClass = iota
	// FailureServer is a gateway answer with a non-success status.
	FailureServer
)

func (f FailureClass) String() string {
	switch f {
	case FailureServer:
		return "server_error"
	default:
		return "network_failure"
	}
}

const (
	ServerErrorReasoning    = "Reasoning service returned an error. This is a fallback execution record, not a real plan."
	NetworkFailureReasoning = "Reasoning service could not be reached. This is a fallback execution record, not a real plan."
)

// Classify maps a gateway call error to its failure class.
func Classify(err error) FailureClass {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return FailureServer
	}
	return FailureNetwork
}

// Fallback builds the record shown in place of a real execution. The output
// depends only on its arguments.
func Fallback(class FailureClass, id, scenario string, at time.Time) synapse.AgentExecution {
	exec := synapse.AgentExecution{
		ID:        id,
		Scenario:  scenario,
		Timestamp: at,
		Success:   false,
	}

	var action synapse.PlannedAction
	var result map[string]any
	switch class {
	case FailureServer:
		exec.Reasoning = ServerErrorReasoning
		action = synapse.PlannedAction{
			Tool:      "notify_customer",
			Params:    map[string]any{"customerId": "CUST_001", "message": "Your order is being looked into", "voucher": 5},
			Reasoning: "Fallback example of a customer notification",
		}
		result = map[string]any{
			"customer_id":       "CUST_001",
			"notification_sent": true,
			"message":           "Your order is being looked into",
			"voucher_amount":    5,
			"timestamp":         at.UTC().Format(synapse.TimestampLayout),
		}
	default:
		exec.Reasoning = NetworkFailureReasoning
		action = synapse.PlannedAction{
			Tool:      "check_traffic",
			Params:    map[string]any{"location": "test_location"},
			Reasoning: "Fallback example of a traffic check",
		}
		result = map[string]any{
			"location":                     "test_location",
			"condition":                    "moderate",
			"estimated_delay_minutes":      5,
			"alternative_routes_available": true,
		}
	}

	exec.PlannedActions = []synapse.PlannedAction{action}
	exec.ExecutionResults = []synapse.ExecutionResult{{
		Tool:      action.Tool,
		Params:    synapse.CopyValue(action.Params),
		Reasoning: action.Reasoning,
		Result:    result,
		Status:    synapse.StatusSuccess,
	}}
	return exec
}
