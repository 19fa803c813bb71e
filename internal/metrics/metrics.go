// Package metrics defines the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values of ValidationsTotal
const (
	OutcomeClean         = "completed_clean"
	OutcomeFindings      = "completed_with_findings"
	OutcomeTimeout       = "timed_out"
	OutcomeRunnerFailure = "runner_failure"
	OutcomeConfiguration = "configuration_failure"
)

var (
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bpmn_validations_total",
		Help: "Total number of linter invocations by outcome",
	}, []string{"outcome"})

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bpmn_validation_duration_seconds",
		Help:    "Wall clock duration of linter invocations",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bpmn_findings_total",
		Help: "Total number of findings reported by the linter by type",
	}, []string{"type"})

	// StagedUploads is the number of uploads currently held in scratch storage
	StagedUploads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bpmn_staged_uploads",
		Help: "Number of staged uploads not yet released",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
