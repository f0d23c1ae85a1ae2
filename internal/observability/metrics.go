// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the vault service.
type Metrics struct {
	// Operation outcomes
	DepositsCommitted    prometheus.Counter
	InvestmentsCommitted prometheus.Counter
	ProtocolsAdded       prometheus.Counter
	ProtocolsToggled     prometheus.Counter
	OperationsRejected   *prometheus.CounterVec

	// Consistency hazards
	PostCommitFailures prometheus.Counter

	// Latency
	OperationDuration *prometheus.HistogramVec

	// HTTP surface
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokenized_vault"
	}

	return &Metrics{
		DepositsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "deposits_committed_total",
			Help:      "Total number of deposits committed to the ledger",
		}),
		InvestmentsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "investments_committed_total",
			Help:      "Total number of investments committed to the registry",
		}),
		ProtocolsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "protocols_added_total",
			Help:      "Total number of protocols added to whitelists",
		}),
		ProtocolsToggled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "protocols_toggled_total",
			Help:      "Total number of protocol enable/disable toggles",
		}),
		OperationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operations_rejected_total",
			Help:      "Total number of rejected operations by operation and reason",
		}, []string{"operation", "reason"}),
		PostCommitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "post_commit_failures_total",
			Help:      "Executor failures after internal state commit (ledger divergence)",
		}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Vault operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
