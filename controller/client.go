package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/balazsgrill/synapse"
)

// Responses are read up to this size; larger bodies are rejected.
const maxResponseBody = 8 << 20

// GatewayClient is the controller's only way to reach the reasoning service.
type GatewayClient interface {
	Execute(ctx context.Context, req synapse.ExecutionRequest) (*synapse.UpstreamExecution, error)
}

// StatusError is a gateway answer with a non-2xx status.
type StatusError struct {
	Status  int
	Code    string
	Details json.RawMessage
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway returned status %d", e.Status)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.Status, e.Code)
}

// HTTPGateway talks to the proxy gateway over HTTP.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Execute posts req to /agent and decodes the upstream execution body.
func (g *HTTPGateway) Execute(ctx context.Context, req synapse.ExecutionRequest) (*synapse.UpstreamExecution, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode execution request")
	}
	body, err := g.do(ctx, http.MethodPost, "/agent", payload)
	if err != nil {
		return nil, err
	}
	var out synapse.UpstreamExecution
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode gateway response")
	}
	return &out, nil
}

// ListTools returns the upstream tool catalog as-is.
func (g *HTTPGateway) ListTools(ctx context.Context) (json.RawMessage, error) {
	return g.do(ctx, http.MethodGet, "/tools", nil)
}

// Health probes the upstream through the gateway.
func (g *HTTPGateway) Health(ctx context.Context) (json.RawMessage, error) {
	return g.do(ctx, http.MethodGet, "/agent", nil)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request %s %s", method, path)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "gateway %s %s failed", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read gateway %s %s response", method, path)
	}
	oversized := len(body) > maxResponseBody

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Status: resp.StatusCode}
		var errBody struct {
			Error   string          `json:"error"`
			Details json.RawMessage `json:"details"`
		}
		if !oversized && json.Unmarshal(body, &errBody) == nil {
			statusErr.Code = errBody.Error
			statusErr.Details = errBody.Details
		}
		return nil, statusErr
	}
	if oversized {
		return nil, errors.Newf("gateway %s %s response exceeds %d bytes", method, path, maxResponseBody)
	}
	return body, nil
}
