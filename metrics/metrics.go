// Package metrics records what a provisioning run wrote and exports it in the
// Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of one run on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	ReplicasWritten *prometheus.CounterVec
	BytesWritten    prometheus.Counter
	Seeks           prometheus.Counter
	Duration        prometheus.Gauge
	LastSuccess     prometheus.Gauge
	LastRun         prometheus.Gauge
}

// New returns a Recorder with all metrics registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ReplicasWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mkbbr_replicas_written_total",
			Help: "BBR table replica sectors written, by table copy",
		}, []string{"table"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mkbbr_bytes_written_total",
			Help: "Bytes of BBR table sectors written",
		}),
		Seeks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mkbbr_seeks_total",
			Help: "Seek calls issued while positioning table copies",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mkbbr_run_duration_seconds",
			Help: "Wall time of the last provisioning run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mkbbr_last_run_success",
			Help: "1 if the last provisioning run succeeded, 0 otherwise",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mkbbr_last_run_timestamp_seconds",
			Help: "Unix time the last provisioning run finished",
		}),
	}
	r.reg.MustRegister(r.ReplicasWritten, r.BytesWritten, r.Seeks, r.Duration, r.LastSuccess, r.LastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Seek counts one seek call.
func (r *Recorder) Seek() { r.Seeks.Inc() }

// Replica counts one replica sector of the given table copy (1 or 2).
func (r *Recorder) Replica(table int, sectorSize int) {
	r.ReplicasWritten.WithLabelValues(strconv.Itoa(table)).Inc()
	r.BytesWritten.Add(float64(sectorSize))
}

// Finish records the outcome of the run.
func (r *Recorder) Finish(start time.Time, err error) {
	now := time.Now()
	r.Duration.Set(now.Sub(start).Seconds())
	r.LastRun.Set(float64(now.Unix()))
	if err == nil {
		r.LastSuccess.Set(1)
	} else {
		r.LastSuccess.Set(0)
	}
}

// WriteFile atomically writes the metrics to path.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
