package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type WorkerMetrics struct {
	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsInFlight prometheus.Gauge
}

func NewWorkerMetrics(r *Registry) *WorkerMetrics {
	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_total",
			Help:        "Annotation jobs consumed from the queue, by status.",
			ConstLabels: r.constLabels(),
		},
		[]string{"status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			Help:        "Annotation job duration in seconds by status.",
			Buckets:     []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
			ConstLabels: r.constLabels(),
		},
		[]string{"status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_in_flight",
			Help:        "Annotation jobs currently being processed.",
			ConstLabels: r.constLabels(),
		},
	)
	r.registry.MustRegister(jobsTotal, jobDuration, jobsInFlight)

	return &WorkerMetrics{
		jobsTotal:    jobsTotal,
		jobDuration:  jobDuration,
		jobsInFlight: jobsInFlight,
	}
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(duration time.Duration, err error) {
	m.jobsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(duration.Seconds())
}
