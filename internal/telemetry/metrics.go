package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_workflow_operations_total",
		Help: "Workflow operations by name and outcome",
	}, []string{"operation", "outcome"})
	LedgerEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_ledger_entries_total",
		Help: "Committed ledger entries by transaction type",
	}, []string{"type"})
	NotificationsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_notifications_emitted_total",
		Help: "Notifications handed to the sink by event type",
	}, []string{"type"})
	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gigmarket_notifications_dropped_total",
		Help: "Notifications whose delivery failed and was swallowed",
	})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			Transitions,
			LedgerEntries,
			NotificationsEmitted,
			NotificationsDropped,
		)
	})
	return promhttp.Handler()
}
