// Package metrics is the optional Prometheus sink the RPC client and
// coordinator report to. It is deliberately thinner than the teacher's
// internal/metrics/prometheus package: a fixed, small set of named metrics
// rather than a config-driven registry of arbitrary counters/gauges/
// histograms, since cryo is a one-shot batch run with a known metric set
// rather than a long-running daemon with pluggable instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder publishes run metrics to its own Prometheus registry. Every
// method is nil-receiver safe, matching report.Progress's nil-safe pattern,
// so a disabled Recorder (nil *Recorder) never needs a branch at the call
// site.
type Recorder struct {
	registry *prometheus.Registry

	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	chunks      *prometheus.CounterVec
	bytes       prometheus.Counter
}

// NewRecorder builds a Recorder against a fresh registry rather than
// prometheus.DefaultRegisterer, so repeated runs in the same process (as in
// tests, or a caller driving multiple queries) never collide on duplicate
// metric registration.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryo_rpc_calls_total",
			Help: "JSON-RPC calls issued, by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cryo_rpc_call_duration_seconds",
			Help: "JSON-RPC call latency in seconds, by method.",
		}, []string{"method"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryo_chunks_total",
			Help: "Chunks processed, by dataset and terminal status.",
		}, []string{"dataset", "status"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryo_bytes_written_total",
			Help: "Bytes written to chunk output files.",
		}),
	}
	reg.MustRegister(r.rpcCalls, r.rpcDuration, r.chunks, r.bytes)
	return r
}

// Registry exposes the underlying registry so a caller can serve it, e.g.
// via promhttp.HandlerFor; cmd/cryo does not do this itself since a
// one-shot CLI has nothing to scrape it, but a long-running embedder of the
// engine would.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRPCCall records one JSON-RPC call's outcome ("ok" or "error") and
// latency.
func (r *Recorder) ObserveRPCCall(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.rpcCalls.WithLabelValues(method, outcome).Inc()
	r.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveChunk records one finished (dataset, chunk) work item's terminal
// status ("done", "skipped", or "failed").
func (r *Recorder) ObserveChunk(dataset, status string) {
	if r == nil {
		return
	}
	r.chunks.WithLabelValues(dataset, status).Inc()
}

// AddBytesWritten adds n bytes to the cumulative output-size counter.
func (r *Recorder) AddBytesWritten(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.bytes.Add(float64(n))
}
