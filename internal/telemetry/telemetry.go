// Package telemetry holds the Prometheus collectors and OpenTelemetry tracer
// shared by the gate and the introspection client.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ggoodman/mcp-authagent-go"

// Decision outcomes recorded by the gate.
const (
	OutcomeForwarded          = "forwarded"
	OutcomePublic             = "public"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeForbidden          = "forbidden"
	OutcomeServiceUnavailable = "service_unavailable"
)

// Introspection results.
const (
	ResultActive   = "active"
	ResultInactive = "inactive"
	ResultError    = "error"
)

// Tracer returns the tracer used for outbound authorization service calls.
// It resolves the global provider on every call so that providers installed
// after package init are honored.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Metrics records gate outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions     *prometheus.CounterVec
	introspection *prometheus.HistogramVec
}

// NewMetrics creates the gate collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpgate",
			Name:      "auth_decisions_total",
			Help:      "Authentication decisions by terminal outcome.",
		}, []string{"outcome"}),
		introspection: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcpgate",
			Name:      "introspection_duration_seconds",
			Help:      "Latency of token introspection calls by result.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.decisions, m.introspection} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Decision counts one terminal outcome.
func (m *Metrics) Decision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// Introspection observes the duration of one introspection call.
func (m *Metrics) Introspection(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.introspection.WithLabelValues(result).Observe(d.Seconds())
}
