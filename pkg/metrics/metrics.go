// Package metrics records what a sync run did as Prometheus series. A run
// is a short-lived batch job, so series live in a private registry that can
// be written to a node-exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/cmdbsync/pkg/errors"
)

const namespace = "cmdbsync"

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Recorder holds the series of one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	records    *prometheus.GaugeVec
	duration   prometheus.Gauge
	lastRun    prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Catalog write operations by action (add, update, prune, delete) and status.",
			},
			[]string{"action", "status"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inventory_records",
				Help:      "Number of records in the local and remote inventories.",
			},
			[]string{"side"},
		),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last sync run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last sync run finished.",
		}),
	}
	r.registry.MustRegister(r.operations, r.records, r.duration, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Operation counts one catalog operation.
func (r *Recorder) Operation(action, status string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(action, status).Inc()
}

// Inventory sets the record count of one side ("local" or "remote").
func (r *Recorder) Inventory(side string, n int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(side).Set(float64(n))
}

// RunFinished records the duration and completion time of a run.
func (r *Recorder) RunFinished(started, finished time.Time) {
	if r == nil {
		return
	}
	r.duration.Set(finished.Sub(started).Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes every series to path in the text exposition format.
// The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
