package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/balazsgrill/synapse"
)

// forwardExecute relays an ExecutionRequest to <upstream>/agent/execute.
// The validated body is forwarded byte for byte.
func (s *Server) forwardExecute(c *gin.Context) {
	body, err := c.GetRawData()
	if err == nil {
		var req synapse.ExecutionRequest
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		s.fail(c, routeExecute, outcomeInvalidRequest, http.StatusInternalServerError, CodeInvalidRequestBody, err.Error())
		return
	}
	s.forward(c, routeExecute, http.MethodPost, "/agent/execute", body, http.StatusInternalServerError)
}

// forwardHealth is the liveness probe; an unreachable upstream is 503.
func (s *Server) forwardHealth(c *gin.Context) {
	s.forward(c, routeHealth, http.MethodGet, "/health", nil, http.StatusServiceUnavailable)
}

func (s *Server) forwardToolList(c *gin.Context) {
	s.forward(c, routeToolList, http.MethodGet, "/tools", nil, http.StatusInternalServerError)
}

// forwardToolInvoke handles POST /tools with {toolName, args}.
func (s *Server) forwardToolInvoke(c *gin.Context) {
	var req ToolInvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, routeToolInvoke, outcomeInvalidRequest, http.StatusInternalServerError, CodeInvalidRequestBody, err.Error())
		return
	}
	s.invokeTool(c, req.ToolName, req.Args)
}

// forwardToolInvokeByPath handles POST /tools/:name with an optional {args} body.
func (s *Server) forwardToolInvokeByPath(c *gin.Context) {
	body, err := c.GetRawData()
	var req ToolArgs
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		s.fail(c, routeToolInvoke, outcomeInvalidRequest, http.StatusInternalServerError, CodeInvalidRequestBody, err.Error())
		return
	}
	s.invokeTool(c, c.Param("name"), req.Args)
}

// invokeTool does not check toolName against any catalog; upstream decides.
func (s *Server) invokeTool(c *gin.Context, toolName string, args json.RawMessage) {
	payload, err := json.Marshal(ToolArgs{Args: args})
	if err != nil {
		s.fail(c, routeToolInvoke, outcomeInvalidRequest, http.StatusInternalServerError, CodeInvalidRequestBody, err.Error())
		return
	}
	s.forward(c, routeToolInvoke, http.MethodPost, "/tools/"+url.PathEscape(toolName), payload, http.StatusInternalServerError)
}

// forward performs the upstream call and writes exactly one response.
func (s *Server) forward(c *gin.Context, route, method, path string, body []byte, unavailableStatus int) {
	start := time.Now()
	resp, err := s.upstream.Do(c.Request.Context(), method, path, body)
	s.metrics.observe(route, time.Since(start))

	if err != nil {
		if errors.Is(err, errUpstreamBodyTooLarge) {
			s.log.Warnw("Upstream response too large", "route", route)
			s.fail(c, route, outcomeMalformed, http.StatusInternalServerError, CodeUpstreamMalformedResponse, err.Error())
			return
		}
		s.log.Warnw("Upstream unreachable", "route", route, "error", err)
		s.fail(c, route, outcomeUnavailable, unavailableStatus, CodeUpstreamUnavailable, err.Error())
		return
	}

	if !resp.OK() {
		s.log.Infow("Upstream returned error", "route", route, "status", resp.Status)
		s.fail(c, route, outcomeUpstreamError, resp.Status, CodeUpstreamError, upstreamDetails(resp))
		return
	}

	if !json.Valid(resp.Body) {
		s.log.Warnw("Upstream returned non-JSON body", "route", route, "status", resp.Status)
		s.fail(c, route, outcomeMalformed, http.StatusInternalServerError, CodeUpstreamMalformedResponse,
			"upstream returned a body that is not valid JSON")
		return
	}

	s.metrics.count(route, outcomeOK)
	c.Data(resp.Status, "application/json", resp.Body)
}

func (s *Server) fail(c *gin.Context, route, outcome string, status int, code string, details any) {
	s.metrics.count(route, outcome)
	c.JSON(status, ErrorBody{Error: code, Details: details})
}

// upstreamDetails keeps a JSON error body intact, falls back to its text,
// and to the status text when empty.
func upstreamDetails(resp *UpstreamResponse) any {
	trimmed := bytes.TrimSpace(resp.Body)
	switch {
	case len(trimmed) == 0:
		return http.StatusText(resp.Status)
	case json.Valid(trimmed):
		return json.RawMessage(trimmed)
	default:
		return string(trimmed)
	}
}

func handlePreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	c.Header("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
	c.AbortWithStatus(http.StatusOK)
}
