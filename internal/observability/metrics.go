// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run statuses used as metric labels.
const (
	StatusOK                = "ok"
	StatusInvalidInput      = "invalid_input"
	StatusDataInconsistency = "data_inconsistency"
	StatusNotFound          = "not_found"
	StatusFinalized         = "finalized"
	StatusError             = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Waterfall metrics
	ScenarioRunsTotal     *prometheus.CounterVec
	RunDuration           *prometheus.HistogramVec
	PayoutsWritten        prometheus.Counter
	ConversionDecisions   *prometheus.CounterVec
	ConversionNonConverge prometheus.Counter
	UndistributedCents    prometheus.Counter

	// What-if metrics
	WhatIfSessions    prometheus.Gauge
	WhatIfEvaluations *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the global Prometheus registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "flexile_liquidation"
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		ScenarioRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "scenario_runs_total",
			Help:      "Total number of scenario runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "run_duration_seconds",
			Help:      "Waterfall computation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"operation"}),
		PayoutsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "payouts_written_total",
			Help:      "Total number of payout rows persisted",
		}),
		ConversionDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "conversion_decisions_total",
			Help:      "Convertible decisions by outcome",
		}, []string{"outcome"}),
		ConversionNonConverge: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "conversion_non_convergence_total",
			Help:      "Runs whose conversion resolution hit the pass limit",
		}),
		UndistributedCents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waterfall",
			Name:      "undistributed_cents_total",
			Help:      "Exit proceeds left over after every claim was satisfied or capped",
		}),

		WhatIfSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "whatif",
			Name:      "sessions",
			Help:      "Open what-if websocket sessions",
		}),
		WhatIfEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "whatif",
			Name:      "evaluations_total",
			Help:      "What-if evaluations by status",
		}, []string{"status"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful scenario run",
		}),

		gatherer: gatherer,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRun records a finished scenario run.
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	m.ScenarioRunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues("run").Observe(duration.Seconds())
	if status == StatusOK {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordPreview records a compute-only evaluation.
func (m *Metrics) RecordPreview(duration time.Duration) {
	m.RunDuration.WithLabelValues("preview").Observe(duration.Seconds())
}

// RecordDistribution records the outcome counters of one computed distribution.
func (m *Metrics) RecordDistribution(converted, redeemed int, converged bool, undistributedCents int64) {
	m.ConversionDecisions.WithLabelValues("converted").Add(float64(converted))
	m.ConversionDecisions.WithLabelValues("redeemed").Add(float64(redeemed))
	if !converged {
		m.ConversionNonConverge.Inc()
	}
	if undistributedCents > 0 {
		m.UndistributedCents.Add(float64(undistributedCents))
	}
}

// RecordPayoutsWritten increments the persisted payouts counter.
func (m *Metrics) RecordPayoutsWritten(n int) {
	m.PayoutsWritten.Add(float64(n))
}

// RecordWhatIf records one what-if evaluation.
func (m *Metrics) RecordWhatIf(status string) {
	m.WhatIfEvaluations.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, code int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
