package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netmon/internal/classify"
	"netmon/internal/probe"
)

// Recorder exposes monitor observations as Prometheus collectors.
type Recorder struct {
	probes      *prometheus.CounterVec
	latency     prometheus.Histogram
	status      *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewRecorder registers the monitor's collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netmon_probes_total",
			Help: "Reachability probes by host and outcome.",
		}, []string{"host", "outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netmon_probe_latency_seconds",
			Help:    "Elapsed time of successful probes.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netmon_status",
			Help: "Current connectivity status (1 for the active status, 0 otherwise).",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netmon_status_transitions_total",
			Help: "Confirmed status transitions by from/to pair.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(r.probes, r.latency, r.status, r.transitions)
	return r
}

// RecordProbe counts one probe and observes its latency on success.
func (r *Recorder) RecordProbe(host string, result probe.Result) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
		r.latency.Observe(result.Elapsed.Seconds())
	}
	r.probes.WithLabelValues(host, outcome).Inc()
}

// RecordStatus marks the active status on the status gauge.
func (r *Recorder) RecordStatus(status classify.Status) {
	for _, s := range classify.Statuses() {
		value := 0.0
		if s == status {
			value = 1.0
		}
		r.status.WithLabelValues(string(s)).Set(value)
	}
}

// RecordTransition counts one confirmed transition.
func (r *Recorder) RecordTransition(from, to classify.Status) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// Serve exposes /metrics on addr and blocks until context cancellation.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
