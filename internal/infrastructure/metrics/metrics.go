package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func NewCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfermanager",
			Name:      "general_counters",
		},
		[]string{"result"})
}

// NewDispatchCounter counts outbox dispatch outcomes per event type.
func NewDispatchCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfermanager",
			Name:      "outbox_dispatch_total",
		},
		[]string{"event_type", "result"})
}
