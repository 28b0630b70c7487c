// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ReservesCreated   *prometheus.CounterVec

	// Swap metrics
	SwapVolume *prometheus.CounterVec

	// Transfer metrics
	TransfersExecuted *prometheus.CounterVec
	JournalErrors     prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSwap prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "reserve_swap"
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "operations_total",
			Help:      "Total number of reserve operations by outcome",
		}, []string{"operation", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "operation_duration_seconds",
			Help:      "Reserve operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ReservesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "reserves_created_total",
			Help:      "Total number of reserves created by tier",
		}, []string{"tier"}),

		SwapVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "volume_base_units_total",
			Help:      "Total swapped amount in base units by direction",
		}, []string{"direction"}),

		TransfersExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "transfers_executed_total",
			Help:      "Total number of committed transfer legs by authority type",
		}, []string{"authority"}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "journal_errors_total",
			Help:      "Total number of transfers that could not be journaled",
		}),

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

		LastSuccessfulSwap: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_swap_timestamp",
			Help:      "Unix timestamp of last successful swap",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordOperation records the outcome and latency of a reserve operation.
func RecordOperation(operation, status string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordReserveCreated increments the reserves created counter.
func RecordReserveCreated(tier string) {
	DefaultMetrics.ReservesCreated.WithLabelValues(tier).Inc()
}

// RecordSwap adds a committed swap to the volume counter.
func RecordSwap(direction string, amount uint64, unixSeconds int64) {
	DefaultMetrics.SwapVolume.WithLabelValues(direction).Add(float64(amount))
	DefaultMetrics.LastSuccessfulSwap.Set(float64(unixSeconds))
}

// RecordTransfer increments the committed transfer counter.
func RecordTransfer(custodial bool) {
	authority := "signer"
	if custodial {
		authority = "custodian"
	}
	DefaultMetrics.TransfersExecuted.WithLabelValues(authority).Inc()
}

// RecordJournalError increments the journal error counter.
func RecordJournalError() {
	DefaultMetrics.JournalErrors.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
