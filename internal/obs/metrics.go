// Package obs holds prometheus instrumentation for the orchestration core.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TaskSubmissions counts provider task submissions by kind and outcome
	// (accepted, rejected, invalid).
	TaskSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tryon",
			Subsystem: "tasks",
			Name:      "submissions_total",
			Help:      "Total provider task submissions.",
		},
		[]string{"kind", "outcome"},
	)

	// Reconciliations counts poll reconciliation outcomes by kind and result
	// (already_terminal, processing, success, failed, race_lost, transient_error).
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tryon",
			Subsystem: "tasks",
			Name:      "reconciliations_total",
			Help:      "Total poll reconciliation outcomes.",
		},
		[]string{"kind", "result"},
	)

	// RelocationFailures counts asset relocation failures by phase (fetch, upload).
	RelocationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tryon",
			Subsystem: "assets",
			Name:      "relocation_failures_total",
			Help:      "Total asset relocation failures.",
		},
		[]string{"phase"},
	)
)

// Register installs the collectors on the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(TaskSubmissions, Reconciliations, RelocationFailures)
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
