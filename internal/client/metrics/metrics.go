// Package metrics provides Prometheus metrics for the sync engine and the
// remote client.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "annosync"

// Pass names used as label values.
const (
	PassUpload   = "upload"
	PassDownload = "download"
	PassDelete   = "delete"
)

type Metrics struct {
	// PassesTotal counts sync passes by pass and status (ok, error, skipped).
	PassesTotal *prometheus.CounterVec

	// PassDuration measures sync pass duration.
	PassDuration *prometheus.HistogramVec

	// AnnotationsTotal counts per-annotation outcomes
	// (created, updated, failed, downloaded, deleted, filtered).
	AnnotationsTotal *prometheus.CounterVec

	// RemoteRequestDuration measures calls to the remote API by operation and
	// status class (2xx, 4xx, 5xx, error).
	RemoteRequestDuration *prometheus.HistogramVec

	// LastSuccess holds the unix time of the last successful pass.
	LastSuccess *prometheus.GaugeVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		PassesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_passes_total",
				Help:      "Total number of sync passes",
			},
			[]string{"pass", "status"},
		),
		PassDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_pass_duration_seconds",
				Help:      "Duration of sync passes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pass"},
		),
		AnnotationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_annotations_total",
				Help:      "Annotations processed by sync passes, by outcome",
			},
			[]string{"outcome"},
		),
		RemoteRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_request_duration_seconds",
				Help:      "Duration of remote annotation API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		LastSuccess: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful sync pass",
			},
			[]string{"pass"},
		),
	}
}

// RecordPass records one finished pass.
func (m *Metrics) RecordPass(pass, status string, started, finished time.Time) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(pass, status).Inc()
	m.PassDuration.WithLabelValues(pass).Observe(finished.Sub(started).Seconds())
	if status == "ok" {
		m.LastSuccess.WithLabelValues(pass).Set(float64(finished.Unix()))
	}
}

// AddAnnotations adds n to the counter for outcome. Zero is ignored.
func (m *Metrics) AddAnnotations(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AnnotationsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) ObserveRemote(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RemoteRequestDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
