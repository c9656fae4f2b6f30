package gateway

import "encoding/json"

// Error codes carried in ErrorBody.Error
const (
	CodeInvalidRequestBody        = "invalid_request_body"
	CodeUpstreamError             = "upstream_error"
	CodeUpstreamUnavailable       = "upstream_unavailable"
	CodeUpstreamMalformedResponse = "upstream_malformed_response"
	CodeInternal                  = "internal_error"
)

// ErrorBody is the only shape the gateway answers with on failure.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// API Request models
type ToolInvokeRequest struct {
	ToolName string          `json:"toolName"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// Body forwarded to <upstream>/tools/<name>
type ToolArgs struct {
	Args json.RawMessage `json:"args,omitempty"`
}
