// Package telemetry wires the roundtable session runtime into OpenTelemetry
// tracing and Prometheus metrics. Grounded on
// _examples/BaSui01-agentflow/internal/telemetry/telemetry.go's Init/Shutdown/Providers shape,
// trimmed to the tracer/meter globals this module actually needs: no OTLP
// exporter wiring, since spec.md's transport surface stops at the event bus
// and an operator wires their own exporter by setting the global
// TracerProvider before calling Tracer.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies this module's spans in any configured exporter.
const TracerName = "roundtable"

// Tracer returns the tracer sessions and iterations create spans on. It
// reads whatever TracerProvider is globally registered, defaulting to
// OpenTelemetry's noop implementation when the caller hasn't configured one.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Metrics holds the Prometheus collectors the session runtime updates over a
// session's lifetime. Grounded on _examples/BaSui01-agentflow/internal/metrics/collector.go's
// CounterVec/HistogramVec shape, narrowed to this module's domain (sessions,
// iterations, reviewer/moderator calls, tokens) in place of the teacher's
// HTTP/cache/DB surface, which this module has no equivalent of.
type Metrics struct {
	SessionsStarted   *prometheus.CounterVec
	SessionsFinished  *prometheus.CounterVec
	IterationDuration *prometheus.HistogramVec
	ReviewerCalls     *prometheus.CounterVec
	ModeratorCalls    *prometheus.CounterVec
	TokensUsed        *prometheus.CounterVec
}

// NewMetrics registers the roundtable collectors under namespace with the
// default Prometheus registry. Call it once per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of roundtable sessions started.",
		}, []string{"preset"}),
		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of roundtable sessions that reached a terminal status.",
		}, []string{"stopped_by", "status"}),
		IterationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iteration_duration_seconds",
			Help:      "Wall-clock duration of one roundtable iteration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stopped_by"}),
		ReviewerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviewer_calls_total",
			Help:      "Total number of reviewer LLM calls, by outcome.",
		}, []string{"outcome"}),
		ModeratorCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderator_calls_total",
			Help:      "Total number of moderator LLM calls, by outcome.",
		}, []string{"outcome"}),
		TokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total prompt/completion tokens consumed.",
		}, []string{"kind"}),
	}
}
