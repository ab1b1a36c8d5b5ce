package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/limaJavier/schooltimetable/pkg/model"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	buildTotal      *prometheus.CounterVec
	instanceSize    *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	buildDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_build_duration_seconds",
		Help:    "Duration of timetable builds in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"strategy", "status"})

	buildTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_builds_total",
		Help: "Total number of timetable builds",
	}, []string{"strategy", "status"})

	instanceSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_instance_size",
		Help:    "Variables and clauses of the encoded SAT instances",
		Buckets: prometheus.ExponentialBuckets(1000, 4, 10),
	}, []string{"kind"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_cache_lookups_total",
		Help: "Timetable cache lookups by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, buildDuration, buildTotal, instanceSize, cacheLookups, goroutines)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		buildDuration:   buildDuration,
		buildTotal:      buildTotal,
		instanceSize:    instanceSize,
		cacheLookups:    cacheLookups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBuild implements model.Observer.
func (m *Metrics) ObserveBuild(strategy string, status model.Status, duration time.Duration, variables, clauses uint64) {
	if m == nil {
		return
	}
	m.buildDuration.WithLabelValues(strategy, string(status)).Observe(duration.Seconds())
	m.buildTotal.WithLabelValues(strategy, string(status)).Inc()
	m.instanceSize.WithLabelValues("variables").Observe(float64(variables))
	m.instanceSize.WithLabelValues("clauses").Observe(float64(clauses))
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// Middleware captures request metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
