package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Calculation outcomes used as the "outcome" label.
const (
	OutcomeOK             = "ok"
	OutcomeInvalidRange   = "invalid_range"
	OutcomeDivisionByZero = "division_by_zero"
	OutcomeError          = "error"
)

// Metrics holds the Prometheus collectors for BRIS.
type Metrics struct {
	// --- Calculators ---
	Calculations        *prometheus.CounterVec
	CalculationDuration *prometheus.HistogramVec
	ComplianceResults   *prometheus.CounterVec

	// --- Knowledge backend ---
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// --- HTTP ---
	HTTPRequests *prometheus.CounterVec
	RateLimited  prometheus.Counter
	WSClients    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	calcBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.0025, 0.005, 0.01,
	}

	return &Metrics{
		Calculations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bris_calculations_total",
			Help: "Calculator invocations by engine and outcome",
		}, []string{"engine", "outcome"}),

		CalculationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bris_calculation_duration_seconds",
			Help:    "Time spent inside a calculator engine",
			Buckets: calcBuckets,
		}, []string{"engine"}),

		ComplianceResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bris_compliance_results_total",
			Help: "Compliance verdicts returned by ratio calculators",
		}, []string{"engine", "compliant"}),

		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bris_upstream_requests_total",
			Help: "Requests to the knowledge backend by operation and outcome",
		}, []string{"operation", "outcome"}),

		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bris_upstream_request_duration_seconds",
			Help:    "Knowledge backend round-trip time",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bris_http_requests_total",
			Help: "HTTP requests by route pattern and status class",
		}, []string{"route", "status"}),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "bris_rate_limited_total",
			Help: "Requests rejected by the chat rate limiter",
		}),

		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "bris_websocket_clients",
			Help: "Connected WebSocket clients",
		}),
	}
}

// ObserveCalculation records one engine run.
func (m *Metrics) ObserveCalculation(engine, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(engine, outcome).Inc()
	m.CalculationDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// ObserveCompliance records a compliance verdict.
func (m *Metrics) ObserveCompliance(engine string, compliant bool) {
	if m == nil {
		return
	}
	label := "false"
	if compliant {
		label = "true"
	}
	m.ComplianceResults.WithLabelValues(engine, label).Inc()
}

// ObserveUpstream records one knowledge backend call.
func (m *Metrics) ObserveUpstream(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
