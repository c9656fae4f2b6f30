package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Route labels
const (
	routeExecute    = "execute"
	routeHealth     = "health"
	routeToolList   = "tools_list"
	routeToolInvoke = "tool_invoke"
)

// Outcome labels
const (
	outcomeOK             = "ok"
	outcomeUpstreamError  = "upstream_error"
	outcomeUnavailable    = "unavailable"
	outcomeMalformed      = "malformed"
	outcomeInvalidRequest = "invalid_request"
)

// Metrics live in a per-server registry so several gateways can coexist in
// one process.
type Metrics struct {
	Registry         *prometheus.Registry
	Requests         *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synapse",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Forwarded requests by route and outcome.",
		}, []string{"route", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "synapse",
			Subsystem: "gateway",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream calls, including failed ones.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.Registry.MustRegister(m.Requests, m.UpstreamDuration)
	return m
}

func (m *Metrics) count(route, outcome string) {
	m.Requests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) observe(route string, d time.Duration) {
	m.UpstreamDuration.WithLabelValues(route).Observe(d.Seconds())
}
