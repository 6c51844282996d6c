package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Resolutions     *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	PolledTrackings prometheus.Counter
}

// NewMetrics registers the collectors on reg; nil means the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiptrack_aftership_requests_total",
				Help: "AfterShip API calls by operation and HTTP status (0 = transport error)",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shiptrack_aftership_request_duration_seconds",
				Help:    "AfterShip API call duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiptrack_tracker_resolutions_total",
				Help: "Tracking lookups by result (found, not_found, ambiguous, cached, skipped)",
			},
			[]string{"result"},
		),
		Registrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiptrack_registrations_total",
				Help: "Shipment registration actions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		PolledTrackings: f.NewCounter(prometheus.CounterOpts{
			Name: "shiptrack_worker_polled_trackings_total",
			Help: "Trackings fetched by the worker",
		}),
	}
}

// ObserveRequest implements aftership.Observer.
func (m *Metrics) ObserveRequest(operation string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordResolution(result string) {
	m.Resolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRegistration(kind, outcome string) {
	m.Registrations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordPolled(n int) {
	m.PolledTrackings.Add(float64(n))
}
