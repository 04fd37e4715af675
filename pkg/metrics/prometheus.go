package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleLatency  *prometheus.HistogramVec
	endpoints     *prometheus.CounterVec
	decodes       *prometheus.CounterVec
	sinkErrors    *prometheus.CounterVec
	orchestrators prometheus.Gauge
	breakerState  *prometheus.GaugeVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_poll_cycles_total",
				Help: "Polling cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_poll_cycle_duration_seconds",
				Help:    "Duration of a full fetch-and-merge cycle",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"outcome"},
		),
		endpoints: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_upstream_requests_total",
				Help: "Upstream endpoint results by outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		decodes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_payload_decodes_total",
				Help: "Adapter decode results by payload kind",
			},
			[]string{"endpoint", "kind"},
		),
		sinkErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_sink_errors_total",
				Help: "Snapshot sink write failures",
			},
			[]string{"sink"},
		),
		orchestrators: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signaldesk_active_orchestrators",
				Help: "Orchestrators currently held by the hub",
			},
		),
		breakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signaldesk_upstream_breaker_state",
				Help: "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open)",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordCycle records one finished polling cycle.
func (r *Recorder) RecordCycle(outcome string, d time.Duration) {
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordEndpoint records the outcome of one upstream request.
func (r *Recorder) RecordEndpoint(endpoint, outcome string) {
	r.endpoints.WithLabelValues(endpoint, outcome).Inc()
}

// RecordDecode records how an adapter classified a payload.
func (r *Recorder) RecordDecode(endpoint, kind string) {
	r.decodes.WithLabelValues(endpoint, kind).Inc()
}

// RecordSinkError records a failed snapshot write.
func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

// SetActiveOrchestrators sets the hub size gauge.
func (r *Recorder) SetActiveOrchestrators(n int) {
	r.orchestrators.Set(float64(n))
}

// SetBreakerState records a breaker transition.
func (r *Recorder) SetBreakerState(endpoint string, state int) {
	r.breakerState.WithLabelValues(endpoint).Set(float64(state))
}
