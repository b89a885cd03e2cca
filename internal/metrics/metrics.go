// Package metrics records bundling runs in a Prometheus registry. Batch runs
// export it in text format for a node_exporter textfile collector; the
// serve command exposes it on /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/albapepper/tour-bundler/internal/notifications"
)

type Metrics struct {
	reg *prometheus.Registry

	events      *prometheus.CounterVec
	records     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	tours       *prometheus.HistogramVec
	await       *prometheus.HistogramVec
	runDuration *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tour_bundler",
		Name:      "events_total",
		Help:      "Friend-tour events bundled",
	}, []string{"policy"})
	m.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tour_bundler",
		Name:      "notifications_total",
		Help:      "Notification records produced",
	}, []string{"policy"})
	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tour_bundler",
		Name:      "run_failures_total",
		Help:      "Bundling runs that failed",
	}, []string{"stage"})
	m.tours = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tour_bundler",
		Name:      "tours_per_notification",
		Help:      "Events collapsed into one notification",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
	}, []string{"policy"})
	m.await = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tour_bundler",
		Name:      "await_seconds",
		Help:      "Time from a bundle's first tour until it is sent",
		Buckets:   prometheus.ExponentialBuckets(60, 2, 11), // 1m .. ~17h
	}, []string{"policy"})
	m.runDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tour_bundler",
		Name:      "run_duration_seconds",
		Help:      "Duration of the last bundling run",
	}, []string{"policy"})
	m.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tour_bundler",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	}, []string{"policy"})

	m.reg.MustRegister(m.events, m.records, m.failures, m.tours, m.await, m.runDuration, m.lastSuccess)
	return m
}

// Observe records a successful run.
func (m *Metrics) Observe(res *notifications.Result) {
	p := string(res.Policy)
	m.events.WithLabelValues(p).Add(float64(res.Events))
	m.records.WithLabelValues(p).Add(float64(len(res.Records)))
	for _, r := range res.Records {
		m.tours.WithLabelValues(p).Observe(float64(r.Tours))
		m.await.WithLabelValues(p).Observe(r.MaxAwait.Seconds())
	}
	m.runDuration.WithLabelValues(p).Set(res.Duration.Seconds())
	m.lastSuccess.WithLabelValues(p).Set(float64(time.Now().Unix()))
}

// Fail counts a run that failed at stage (read, bundle, write, sink).
func (m *Metrics) Fail(stage string) {
	m.failures.WithLabelValues(stage).Inc()
}

// WriteTextfile writes the registry atomically in Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
