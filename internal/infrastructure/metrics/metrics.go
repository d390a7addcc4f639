// Package metrics records upload and sweep outcomes on a private Prometheus
// registry. Blobber has no HTTP surface, so the registry is pushed to a
// Pushgateway after each run instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	uploadBytes    prometheus.Counter
	sweepsTotal    *prometheus.CounterVec
	blobsDeleted   prometheus.Counter
	blobsScanned   prometheus.Counter
	lastSweep      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blobber_uploads_total",
			Help: "Uploads by kind and result",
		}, []string{"kind", "result"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blobber_upload_duration_seconds",
			Help:    "Upload latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blobber_upload_bytes_total",
			Help: "Bytes written to staging files before upload",
		}),
		sweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blobber_sweeps_total",
			Help: "Retention sweeps by result",
		}, []string{"result"}),
		blobsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blobber_sweep_blobs_deleted_total",
			Help: "Blobs removed by the retention sweep",
		}),
		blobsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blobber_sweep_blobs_scanned_total",
			Help: "Blobs inspected by the retention sweep",
		}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blobber_last_successful_sweep_timestamp_seconds",
			Help: "Unix time of the last sweep that completed without error",
		}),
	}

	m.registry.MustRegister(
		m.uploadsTotal,
		m.uploadDuration,
		m.uploadBytes,
		m.sweepsTotal,
		m.blobsDeleted,
		m.blobsScanned,
		m.lastSweep,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveUpload(kind string, d time.Duration, err error) {
	m.uploadsTotal.WithLabelValues(kind, result(err)).Inc()
	if err == nil {
		m.uploadDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) AddStagedBytes(n int64) {
	m.uploadBytes.Add(float64(n))
}

func (m *Metrics) ObserveSweep(scanned, deleted int, err error) {
	m.sweepsTotal.WithLabelValues(result(err)).Inc()
	m.blobsScanned.Add(float64(scanned))
	m.blobsDeleted.Add(float64(deleted))
	if err == nil {
		m.lastSweep.SetToCurrentTime()
	}
}

// Push sends the registry to the Pushgateway at url under job. Push
// replaces every metric previously pushed for the same job.
func (m *Metrics) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
