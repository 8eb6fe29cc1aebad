// Package metrics wraps a Prometheus registry around CopyStats, an
// external/optional collaborator per spec.md §1 — the core never imports
// this package.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ferrocp/pkg/ferrocp"
)

// Registry wraps a Prometheus registry with the copy engine's metrics.
type Registry struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	filesCopiedTotal  prometheus.Counter
	filesSkippedTotal prometheus.Counter
	filesErroredTotal prometheus.Counter
	bytesCopiedTotal  prometheus.Counter
	engineSelections  *prometheus.CounterVec
	zeroCopyTotal     prometheus.Counter
	transferRateMbps  prometheus.Histogram
	thresholdMicro    prometheus.Gauge
	thresholdSmall    prometheus.Gauge
}

// NewRegistry creates a metrics registry with all ferrocp metrics
// registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferrocp_operations_total",
				Help: "Total number of copy operations",
			},
			[]string{"mode", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ferrocp_operation_duration_seconds",
				Help:    "Copy operation duration in seconds",
				Buckets: []float64{0.01, 0.1, 1, 5, 10, 30, 60, 300, 1800},
			},
			[]string{"mode"},
		),
		filesCopiedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ferrocp_files_copied_total",
				Help: "Total number of files copied",
			},
		),
		filesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ferrocp_files_skipped_total",
				Help: "Total number of files skipped by overwrite policy",
			},
		),
		filesErroredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ferrocp_files_errored_total",
				Help: "Total number of files that failed terminally",
			},
		),
		bytesCopiedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ferrocp_bytes_copied_total",
				Help: "Total number of bytes copied",
			},
		),
		engineSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferrocp_engine_selections_total",
				Help: "Total number of files dispatched to each copy engine",
			},
			[]string{"engine"},
		),
		zeroCopyTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ferrocp_zero_copy_operations_total",
				Help: "Total number of files copied via a zero-copy syscall",
			},
		),
		transferRateMbps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ferrocp_transfer_rate_mbps",
				Help:    "Observed transfer rate per operation in MB/s",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500},
			},
		),
		thresholdMicro: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ferrocp_micro_threshold_bytes",
				Help: "Current autotuned micro engine threshold in bytes",
			},
		),
		thresholdSmall: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ferrocp_small_threshold_bytes",
				Help: "Current autotuned small_sync engine threshold in bytes",
			},
		),
	}

	r.registerMetrics()
	return r
}

func (r *Registry) registerMetrics() {
	collectors := []prometheus.Collector{
		r.operationsTotal,
		r.operationDuration,
		r.filesCopiedTotal,
		r.filesSkippedTotal,
		r.filesErroredTotal,
		r.bytesCopiedTotal,
		r.engineSelections,
		r.zeroCopyTotal,
		r.transferRateMbps,
		r.thresholdMicro,
		r.thresholdSmall,
	}
	for _, c := range collectors {
		r.registry.MustRegister(c)
	}
}

// GetRegistry returns the underlying Prometheus registry, for mounting a
// /metrics HTTP handler.
func (r *Registry) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordOperation folds one completed CopyRequest's stats into the
// registry, labeled by operation mode and outcome status.
func (r *Registry) RecordOperation(mode, status string, duration time.Duration, cs ferrocp.CopyStats) {
	r.operationsTotal.WithLabelValues(mode, status).Inc()
	r.operationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	r.filesCopiedTotal.Add(float64(cs.FilesCopied))
	r.filesSkippedTotal.Add(float64(cs.FilesSkipped))
	r.filesErroredTotal.Add(float64(cs.Errors))
	r.bytesCopiedTotal.Add(float64(cs.BytesCopied))
	r.zeroCopyTotal.Add(float64(cs.ZerocopyOperations))
	if cs.ActualTransferRateMbps > 0 {
		r.transferRateMbps.Observe(cs.ActualTransferRateMbps)
	}
}

// RecordEngineSelection increments the per-engine selection counter, for
// per-file instrumentation hooked into the walker's dispatch loop.
func (r *Registry) RecordEngineSelection(engine string) {
	r.engineSelections.WithLabelValues(engine).Inc()
}

// SetThresholds mirrors the autotuner's current thresholds into gauges.
func (r *Registry) SetThresholds(micro, small uint64) {
	r.thresholdMicro.Set(float64(micro))
	r.thresholdSmall.Set(float64(small))
}
