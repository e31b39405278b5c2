// Package metrics exports the session's transitions and failures to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/affinity"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/marker"
)

const (
	opLabel     = "op"
	reasonLabel = "reason"
	markerLabel = "marker"
)

// Recorder owns a private registry so several can coexist in one process.
type Recorder struct {
	registry        *prometheus.Registry
	affinityChanges *prometheus.CounterVec
	affinityErrors  *prometheus.CounterVec
	markers         *prometheus.CounterVec
	loadState       prometheus.Gauge
	attached        prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		affinityChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coremgr_affinity_changes_total",
			Help: "Affinity masks successfully applied, by operation",
		}, []string{opLabel}),
		affinityErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coremgr_affinity_errors_total",
			Help: "Affinity operations that failed, by operation and reason",
		}, []string{opLabel, reasonLabel}),
		markers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coremgr_markers_total",
			Help: "Loading markers recognised in the client log",
		}, []string{markerLabel}),
		loadState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coremgr_load_state",
			Help: "1 while the game is considered to be loading",
		}),
		attached: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coremgr_target_attached",
			Help: "1 while a live target process is being monitored",
		}),
	}
}

func (r *Recorder) AffinityChanged(op string) {
	r.affinityChanges.WithLabelValues(op).Inc()
}

func (r *Recorder) AffinityFailed(op string, err error) {
	r.affinityErrors.WithLabelValues(op, Reason(err)).Inc()
}

func (r *Recorder) MarkerSeen(m marker.Marker) {
	r.markers.WithLabelValues(m.String()).Inc()
}

func (r *Recorder) SetLoadState(s lib.LoadState) {
	if s == lib.LoadStateLoading {
		r.loadState.Set(1)
		return
	}
	r.loadState.Set(0)
}

func (r *Recorder) SetAttached(attached bool) {
	if attached {
		r.attached.Set(1)
		return
	}
	r.attached.Set(0)
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Reason buckets affinity errors into a small label set.
func Reason(err error) string {
	switch {
	case errors.Is(err, affinity.ErrCoreCountUnavailable):
		return "core_count_unavailable"
	case errors.Is(err, affinity.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, affinity.ErrTargetGone):
		return "target_gone"
	case errors.Is(err, affinity.ErrEmptyMask):
		return "empty_mask"
	default:
		return "other"
	}
}
