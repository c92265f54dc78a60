// Package metrics exposes Prometheus collectors for the annotator processes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "annotator"

// Registry is the per-process collector registry. Every metric carries the
// service label it was created with.
type Registry struct {
	service  string
	registry *prometheus.Registry
}

func NewRegistry(service string) *Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{service: service, registry: registry}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) constLabels() prometheus.Labels {
	return prometheus.Labels{"service": r.service}
}
