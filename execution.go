package synapse

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrEmptyScenario is returned when a scenario is blank after trimming.
var ErrEmptyScenario = errors.New("scenario must not be empty")

// Execution Request Payload, as sent to the gateway and forwarded upstream
type ExecutionRequest struct {
	Scenario string           `json:"scenario"`
	Context  ExecutionContext `json:"context"`
}

type ExecutionContext struct {
	Timestamp   string `json:"timestamp"`
	ExecutionID string `json:"executionId"`
}

// ISO-8601 with millisecond precision, always UTC
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// NewExecutionRequest trims the scenario and stamps the request context.
func NewExecutionRequest(scenario, executionID string, at time.Time) (ExecutionRequest, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return ExecutionRequest{}, ErrEmptyScenario
	}
	return ExecutionRequest{
		Scenario: scenario,
		Context: ExecutionContext{
			Timestamp:   at.UTC().Format(TimestampLayout),
			ExecutionID: executionID,
		},
	}, nil
}

type PlannedAction struct {
	Tool      string `json:"tool"`
	Params    any    `json:"params"`
	Reasoning string `json:"reasoning"`
}

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ExecutionResult is a planned action together with its outcome.
// Status "error" carries a non-empty Error; Result is then ignored.
type ExecutionResult struct {
	Tool      string       `json:"tool"`
	Params    any          `json:"params"`
	Reasoning string       `json:"reasoning"`
	Result    any          `json:"result,omitempty"`
	Status    ResultStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// AgentExecution is the settled record of one submission. Once created it
// is never modified; readers receive clones.
type AgentExecution struct {
	ID               string            `json:"id"`
	Scenario         string            `json:"scenario"`
	Reasoning        string            `json:"reasoning"`
	PlannedActions   []PlannedAction   `json:"plannedActions"`
	ExecutionResults []ExecutionResult `json:"executionResults"`
	Timestamp        time.Time         `json:"timestamp"`
	Success          bool              `json:"success"`
}

// Clone copies both sequences, including the decoded JSON held in params
// and results, so the copy shares no slice or map with e.
func (e AgentExecution) Clone() AgentExecution {
	out := e
	out.PlannedActions = make([]PlannedAction, len(e.PlannedActions))
	for i, a := range e.PlannedActions {
		a.Params = CopyValue(a.Params)
		out.PlannedActions[i] = a
	}
	out.ExecutionResults = make([]ExecutionResult, len(e.ExecutionResults))
	for i, r := range e.ExecutionResults {
		r.Params = CopyValue(r.Params)
		r.Result = CopyValue(r.Result)
		out.ExecutionResults[i] = r
	}
	return out
}

// CopyValue deep-copies the containers encoding/json produces for an any
// target. Scalars and other types are returned as they are.
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = CopyValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = CopyValue(x)
		}
		return s
	default:
		return v
	}
}

// UpstreamExecution is the success body of POST /agent/execute. Every
// field may be missing.
type UpstreamExecution struct {
	Success          bool              `json:"success"`
	AgentReasoning   string            `json:"agent_reasoning"`
	PlannedActions   []PlannedAction   `json:"planned_actions"`
	ExecutionResults []ExecutionResult `json:"execution_results"`
}
