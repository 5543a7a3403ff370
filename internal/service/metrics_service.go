package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-api/internal/models"
)

const metricsNamespace = "timetable_api"

// SystemMetrics is the JSON summary served next to the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	GenerationRuns           uint64    `json:"generationRuns"`
	GenerationFailures       uint64    `json:"generationFailures"`
	LastGenerationEntries    uint64    `json:"lastGenerationEntries"`
	QueuedGenerations        int       `json:"queuedGenerations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// durationTotal accumulates a count and a summed duration for averages.
type durationTotal struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (d *durationTotal) add(duration time.Duration) {
	d.count.Add(1)
	if duration > 0 {
		d.nanos.Add(uint64(duration))
	}
}

func (d *durationTotal) averageMs() (uint64, float64) {
	count := d.count.Load()
	if count == 0 {
		return 0, 0
	}
	return count, float64(d.nanos.Load()) / float64(count) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry and the counters behind the
// JSON summary. All methods are safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	generationRuns  *prometheus.CounterVec
	generationTime  prometheus.Histogram
	generationRows  prometheus.Gauge
	generationWarns *prometheus.CounterVec

	requests    durationTotal
	dbQueries   durationTotal
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	runs        atomic.Uint64
	failedRuns  atomic.Uint64
	lastEntries atomic.Uint64
	queueDepth  atomic.Pointer[func() int]
}

// NewMetricsService registers the API, cache, database and generation collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route template",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route template",
	}, []string{"method", "route", "status"})
	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "view_cache_read_seconds",
		Help:      "Latency of timetable view cache reads",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "view_cache_write_seconds",
		Help:      "Latency of timetable view cache writes",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "view_cache_lookups_total",
		Help:      "Timetable view cache lookups by result",
	}, []string{"result"})
	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "db_query_duration_seconds",
		Help:      "Duration of database work by label",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})
	m.generationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "generation_runs_total",
		Help:      "Timetable generation runs by outcome",
	}, []string{"status"})
	m.generationTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "generation_duration_seconds",
		Help:      "Duration of timetable generation runs",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	m.generationRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "generation_entries",
		Help:      "Entries written by the last successful generation run",
	})
	m.generationWarns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "generation_warnings_total",
		Help:      "Allocation warnings emitted by generation runs",
	}, []string{"kind"})
	cacheHitRatio := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "view_cache_hit_ratio",
		Help:      "Ratio of view cache hits to lookups",
	}, m.cacheRatio)
	queued := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "generation_queue_depth",
		Help:      "Async generation runs queued, running or waiting to retry",
	}, func() float64 { return float64(m.queued()) })
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines_total",
		Help:      "Number of live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.dbQueryDuration, m.generationRuns, m.generationTime, m.generationRows, m.generationWarns,
		cacheHitRatio, queued, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// TrackQueueDepth reports depth() as the async generation backlog.
func (m *MetricsService) TrackQueueDepth(depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.queueDepth.Store(&depth)
}

// ObserveHTTPRequest records one served request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records a view cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.cacheMisses.Add(1)
}

// ObserveCacheWrite records a view cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database timing under label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.add(duration)
}

// ObserveGenerationRun records the outcome of one generation run.
func (m *MetricsService) ObserveGenerationRun(status string, duration time.Duration, entries int) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(status).Inc()
	m.generationTime.Observe(duration.Seconds())
	m.runs.Add(1)
	if status == string(models.TimetableRunStatusFailed) {
		m.failedRuns.Add(1)
		return
	}
	m.generationRows.Set(float64(entries))
	m.lastEntries.Store(uint64(entries))
}

// RecordGenerationWarning counts one allocation warning.
func (m *MetricsService) RecordGenerationWarning(kind string) {
	if m == nil {
		return
	}
	m.generationWarns.WithLabelValues(kind).Inc()
}

// Snapshot returns aggregated metrics for the JSON summary endpoint.
func (m *MetricsService) Snapshot() SystemMetrics {
	if m == nil {
		return SystemMetrics{}
	}
	requests, avgRequestMs := m.requests.averageMs()
	dbCount, avgDBMs := m.dbQueries.averageMs()
	return SystemMetrics{
		CacheHitRatio:            m.cacheRatio(),
		CacheHits:                m.cacheHits.Load(),
		CacheMisses:              m.cacheMisses.Load(),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		GenerationRuns:           m.runs.Load(),
		GenerationFailures:       m.failedRuns.Load(),
		LastGenerationEntries:    m.lastEntries.Load(),
		QueuedGenerations:        m.queued(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) cacheRatio() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (m *MetricsService) queued() int {
	if fn := m.queueDepth.Load(); fn != nil {
		return (*fn)()
	}
	return 0
}
