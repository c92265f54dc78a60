package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

type PipelineMetrics struct {
	filesTotal   *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewPipelineMetrics(r *Registry) *PipelineMetrics {
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "files_total",
			Help:        "Files run through extraction and generation, by format and outcome.",
			ConstLabels: r.constLabels(),
		},
		[]string{"format", "status"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "model",
			Name:        "circuit_state",
			Help:        "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
			ConstLabels: r.constLabels(),
		},
		[]string{"operation"},
	)
	r.registry.MustRegister(filesTotal, breakerState)

	return &PipelineMetrics{
		filesTotal:   filesTotal,
		breakerState: breakerState,
	}
}

func (m *PipelineMetrics) ObserveFile(format domain.Format, err error) {
	m.filesTotal.WithLabelValues(string(format), outcome(err)).Inc()
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *PipelineMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(operation).Set(float64(to))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrFileNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, domain.ErrToolUnavailable):
		return "tool_unavailable"
	case errors.Is(err, domain.ErrNoTextLayer), errors.Is(err, domain.ErrNoText):
		return "no_text"
	case errors.Is(err, domain.ErrCorruptDocument):
		return "corrupt"
	case errors.Is(err, domain.ErrGeneration):
		return "generation_error"
	default:
		return "error"
	}
}
