// Package metrics defines the custom Prometheus collectors of the royalty
// service. It is the single source of truth for metric names, labels and help
// strings.
//
// Collectors are registered against the Registerer passed to New, so tests can
// use a private registry. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "royalty"

// Metrics groups every collector the core emits to.
type Metrics struct {
	// CollaborationTransitions counts committed collaboration transitions.
	// Labels:
	//   - to: the status reached (e.g. "approved", "cancel_requested")
	CollaborationTransitions *prometheus.CounterVec

	// LedgerOperations counts ledger calls by outcome.
	// Labels:
	//   - op: "accrue", "disburse" or "approve_transaction"
	//   - result: "ok", "replayed" or the error class (e.g. "insufficient_balance")
	LedgerOperations *prometheus.CounterVec

	// AccountOperations counts provisioning calls by outcome.
	// Labels:
	//   - op: "create", "update_profile", "delete"
	//   - result: "ok" or the error class
	AccountOperations *prometheus.CounterVec

	// NotificationsDropped counts notifications discarded because a dispatcher
	// shard was full or persistence failed.
	// Labels:
	//   - reason: "queue_full" or "persist_failed"
	NotificationsDropped *prometheus.CounterVec

	// NotificationsQueueDepth tracks pending notifications per dispatcher shard.
	// Labels:
	//   - worker_id: numeric worker index (e.g. "0", "1", …)
	NotificationsQueueDepth *prometheus.GaugeVec
}

// New builds and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CollaborationTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaboration_transitions_total",
			Help:      "Total number of committed collaboration status transitions.",
		}, []string{"to"}),
		LedgerOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Total number of ledger operations, by operation and result.",
		}, []string{"op", "result"}),
		AccountOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_operations_total",
			Help:      "Total number of account provisioning operations, by operation and result.",
		}, []string{"op", "result"}),
		NotificationsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications that were never persisted.",
		}, []string{"reason"}),
		NotificationsQueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_queue_depth",
			Help:      "Current number of notifications pending in each dispatcher worker channel.",
		}, []string{"worker_id"}),
	}
}

// Transition records a committed collaboration transition.
func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.CollaborationTransitions.WithLabelValues(to).Inc()
}

// Ledger records the outcome of a ledger operation.
func (m *Metrics) Ledger(op, result string) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(op, result).Inc()
}

// Account records the outcome of a provisioning operation.
func (m *Metrics) Account(op, result string) {
	if m == nil {
		return
	}
	m.AccountOperations.WithLabelValues(op, result).Inc()
}

// Dropped records a discarded notification.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.NotificationsDropped.WithLabelValues(reason).Inc()
}

// QueueDepth sets the pending count of one dispatcher shard.
func (m *Metrics) QueueDepth(workerID string, depth int) {
	if m == nil {
		return
	}
	m.NotificationsQueueDepth.WithLabelValues(workerID).Set(float64(depth))
}
