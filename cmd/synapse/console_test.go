package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balazsgrill/synapse/controller"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	pterm.DisableStyling()
	pterm.SetDefaultOutput(&buf)
	t.Cleanup(func() {
		pterm.SetDefaultOutput(io.Discard)
		pterm.EnableStyling()
	})
	return &buf
}

func newTestGateway(t *testing.T) *controller.HTTPGateway {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /agent", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"agent_reasoning":"checked merchant","planned_actions":[{"tool":"get_merchant_status","params":{"merchant_name":"Pizza Palace"},"reasoning":"prep time"}],"execution_results":[{"tool":"get_merchant_status","params":{"merchant_name":"Pizza Palace"},"reasoning":"prep time","result":{"prep_time_minutes":40},"status":"success"}]}`)
	})
	mux.HandleFunc("GET /tools", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"tools":["get_merchant_status"]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return controller.NewHTTPGateway(srv.URL, srv.Client())
}

func TestRunConsoleSubmitsScenarios(t *testing.T) {
	out := captureOutput(t)
	gw := newTestGateway(t)
	ctrl := controller.New(gw)

	input := strings.Join([]string{
		"help",
		"Driver reports Pizza Palace is overloaded",
		"",
		"sample 2",
		"history",
		"tools",
		"exit",
		"never submitted",
	}, "\n")

	require.NoError(t, runConsole(context.Background(), strings.NewReader(input), ctrl, gw))

	entries := ctrl.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, sampleScenarios[1], entries[0].Scenario)
	assert.Equal(t, "Driver reports Pizza Palace is overloaded", entries[1].Scenario)

	text := out.String()
	assert.Contains(t, text, "checked merchant")
	assert.Contains(t, text, "get_merchant_status")
	assert.Contains(t, text, "Goodbye")
}

func TestRunConsoleResetAndEOF(t *testing.T) {
	captureOutput(t)
	gw := newTestGateway(t)
	ctrl := controller.New(gw)

	input := "Customer complains food arrived spilled\nreset\n"
	require.NoError(t, runConsole(context.Background(), strings.NewReader(input), ctrl, gw))

	assert.Zero(t, ctrl.History().Len())
}

func TestSampleIndex(t *testing.T) {
	n, ok := sampleIndex("sample 1")
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	n, ok = sampleIndex("SAMPLE 4")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	for _, line := range []string{"sample 0", "sample 5", "sample", "Driver sample 2 late"} {
		_, ok := sampleIndex(line)
		assert.False(t, ok, line)
	}
}
