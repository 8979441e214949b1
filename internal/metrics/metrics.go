package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	pageViews = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "page_views_total",
			Help:      "Landing page renders.",
		},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "reservation_submissions_total",
			Help:      "Reservation form submissions by outcome.",
		},
		[]string{"outcome"},
	)

	fieldFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "validation_failures_total",
			Help:      "Field validation failures by field name.",
		},
		[]string{"field"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(pageViews, reservations, fieldFailures)
	})
}

// IncPageView counts one landing page render.
func IncPageView() {
	pageViews.Inc()
}

// IncReservation counts one submission with outcome "confirmed" or "rejected".
func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

// IncFieldFailure counts one failed rule for a field.
func IncFieldFailure(field string) {
	fieldFailures.WithLabelValues(field).Inc()
}
