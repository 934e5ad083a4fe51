package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuditUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_units_total",
			Help: "Total number of audit units by terminal state.",
		},
		[]string{"state", "error_type"}, // state: persisted, skipped, failed
	)

	AuditUnitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_unit_duration_seconds",
			Help:    "Duration of audit units that reached a terminal state.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"domain", "viewport"},
	)

	ConsentAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consent_attempts_total",
			Help: "Consent and country dialog attempts by matching strategy.",
		},
		[]string{"dialog", "strategy"}, // strategy is "none" on a miss
	)

	UnitsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_units_in_flight",
			Help: "Number of audit units currently being processed.",
		},
	)

	once sync.Once
)

// Init registers all collectors with the default registry. It is safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuditUnitsTotal,
			AuditUnitDuration,
			ConsentAttemptsTotal,
			UnitsInFlight,
		)
	})
}
