// Package metrics exposes the widget metrics to Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records map builds and is safe to use as a nil value
type Metrics struct {
	registry         *prometheus.Registry
	mapsBuilt        *prometheus.CounterVec
	containersFailed *prometheus.CounterVec
	markersBuilt     *prometheus.CounterVec
	markersSkipped   *prometheus.CounterVec
}

// New creates a fresh registry with all widget metrics registered
func New() *Metrics {
	registry := prometheus.NewRegistry()

	mapsBuilt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storemap",
		Name:      "maps_built_total",
		Help:      "Count of map containers rendered",
	}, []string{"provider"})

	containersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storemap",
		Name:      "containers_failed_total",
		Help:      "Count of map containers skipped because of an error",
	}, []string{"provider"})

	markersBuilt := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storemap",
		Name:      "markers_built_total",
		Help:      "Count of markers placed on maps",
	}, []string{"provider"})

	markersSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storemap",
		Name:      "markers_skipped_total",
		Help:      "Count of marker descriptors skipped for lack of a usable position",
	}, []string{"provider", "reason"})

	registry.MustRegister(mapsBuilt, containersFailed, markersBuilt, markersSkipped)

	return &Metrics{
		registry:         registry,
		mapsBuilt:        mapsBuilt,
		containersFailed: containersFailed,
		markersBuilt:     markersBuilt,
		markersSkipped:   markersSkipped,
	}
}

// MapBuilt records a container rendered into a map
func (m *Metrics) MapBuilt(provider string) {
	if m == nil {
		return
	}
	m.mapsBuilt.WithLabelValues(provider).Inc()
}

// ContainerFailed records a container skipped because of an error
func (m *Metrics) ContainerFailed(provider string) {
	if m == nil {
		return
	}
	m.containersFailed.WithLabelValues(provider).Inc()
}

// MarkerBuilt records a marker placed on a map
func (m *Metrics) MarkerBuilt(provider string) {
	if m == nil {
		return
	}
	m.markersBuilt.WithLabelValues(provider).Inc()
}

// MarkerSkipped records a descriptor which did not yield a marker
func (m *Metrics) MarkerSkipped(provider, reason string) {
	if m == nil {
		return
	}
	m.markersSkipped.WithLabelValues(provider, reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
