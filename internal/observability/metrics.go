package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "penguindash"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the Prometheus collectors shared by the dashboard.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationResults  *prometheus.CounterVec
	ExportJobs        *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	Recomputations    prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of dashboard operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_results_total",
			Help:      "Dashboard operation outcomes by result",
		}, []string{"operation", "result"}),
		ExportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_jobs_total",
			Help:      "Export job transitions by status",
		}, []string{"status"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Dashboard sessions currently held in memory",
		}),
		Recomputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_recomputations_total",
			Help:      "Filtered view recomputations across all sessions",
		}),
	}
}

// Observe records an operation outcome.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if m == nil || operation == "" {
		return
	}
	result := ResultError
	if success {
		result = ResultSuccess
	}
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.OperationResults.WithLabelValues(operation, result).Inc()
}

// ObserveSince is Observe with the duration measured from start.
func (m *Metrics) ObserveSince(ctx context.Context, operation string, success bool, start time.Time) {
	m.Observe(ctx, operation, success, time.Since(start))
}

// ExportTransition counts an export job entering status.
func (m *Metrics) ExportTransition(status string) {
	if m == nil {
		return
	}
	m.ExportJobs.WithLabelValues(status).Inc()
}

// SetActiveSessions reports the number of live sessions.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// IncRecomputations counts one view recomputation.
func (m *Metrics) IncRecomputations() {
	if m == nil {
		return
	}
	m.Recomputations.Inc()
}
