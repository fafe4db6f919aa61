package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus instrumentation. Counters track
// cumulative outcomes; queueDepth is a gauge since it needs to go down as
// well as up.
type Metrics struct {
	sendsTotal    prometheus.Counter
	failuresTotal prometheus.Counter
	retriesTotal  prometheus.Counter
	queueDepth    prometheus.Gauge
}

// NewMetrics registers the gateway's collectors against the default
// registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// newMetrics registers the gateway's collectors against reg. Tests pass a
// fresh prometheus.NewRegistry() so repeated construction doesn't collide
// with the process-wide default registry.
func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sendsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "smsgw_sends_total",
			Help: "Total number of SMS messages successfully accepted by the network.",
		}),
		failuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "smsgw_send_failures_total",
			Help: "Total number of SMS sends that exhausted their retry budget.",
		}),
		retriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "smsgw_send_retries_total",
			Help: "Total number of SMS send retry attempts.",
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "smsgw_queue_depth",
			Help: "Current number of jobs waiting in the gateway's send queue.",
		}),
	}
}

// newMetricsServer returns an *http.Server serving /metrics on addr, or nil
// if addr is empty (the metrics endpoint is opt-in).
func newMetricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
