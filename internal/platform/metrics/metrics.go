// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes list engine and upstream activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/ratesync/internal/rates"
)

const namespace = "ratesync"

// Collector implements [rates.Recorder] and records upstream calls.
type Collector struct {
	pagesLoaded     *prometheus.CounterVec
	entriesIngested *prometheus.CounterVec
	pagesFailed     *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	countSyncs      *prometheus.CounterVec
	sessions        prometheus.Gauge
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

var _ rates.Recorder = (*Collector)(nil)

// NewCollector creates the collector and registers every metric on registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	collector := &Collector{
		pagesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_pages_loaded_total",
			Help:      "List pages fetched and ingested, by kind.",
		}, []string{"kind"}),
		entriesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_entries_ingested_total",
			Help:      "Entries placed into buckets by page loads, by kind.",
		}, []string{"kind"}),
		pagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_page_failures_total",
			Help:      "Page fetches that failed with a retryable error, by kind.",
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_mutations_total",
			Help:      "Rate mutations by operation and result.",
		}, []string{"operation", "result"}),
		countSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "count_syncs_total",
			Help:      "Status count refreshes by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Lists currently held in memory.",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_responses_total",
			Help:      "Tracking service responses by endpoint and status code.",
		}, []string{"endpoint", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Tracking service round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	registerer.MustRegister(
		collector.pagesLoaded,
		collector.entriesIngested,
		collector.pagesFailed,
		collector.mutations,
		collector.countSyncs,
		collector.sessions,
		collector.upstreamStatus,
		collector.upstreamLatency,
	)

	return collector
}

func (collector *Collector) PageLoaded(kind rates.Kind, inserted int) {
	collector.pagesLoaded.WithLabelValues(string(kind)).Inc()
	collector.entriesIngested.WithLabelValues(string(kind)).Add(float64(inserted))
}

func (collector *Collector) PageFailed(kind rates.Kind) {
	collector.pagesFailed.WithLabelValues(string(kind)).Inc()
}

func (collector *Collector) Mutation(operation rates.Operation, ok bool) {
	collector.mutations.WithLabelValues(string(operation), result(ok)).Inc()
}

func (collector *Collector) CountSync(ok bool) {
	collector.countSyncs.WithLabelValues(result(ok)).Inc()
}

func (collector *Collector) SessionOpened() { collector.sessions.Inc() }

func (collector *Collector) SessionClosed() { collector.sessions.Dec() }

// Upstream records one call to the tracking service. A statusCode of zero
// means the request never got a response.
func (collector *Collector) Upstream(endpoint string, statusCode int, elapsed time.Duration) {
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	collector.upstreamStatus.WithLabelValues(endpoint, code).Inc()
	collector.upstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
