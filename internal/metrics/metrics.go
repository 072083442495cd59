package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "reservation_transitions_total",
			Help:      "Reservation lifecycle actions by outcome.",
		},
		[]string{"action", "outcome"},
	)

	casConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gearbook",
			Name:      "store_cas_conflicts_total",
			Help:      "Optimistic writes lost to a concurrent update.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, casConflicts)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncTransition records a lifecycle action attempt and its outcome.
func IncTransition(action, outcome string) {
	transitions.WithLabelValues(action, outcome).Inc()
}

// IncCASConflict records a lost optimistic write.
func IncCASConflict() {
	casConflicts.Inc()
}
