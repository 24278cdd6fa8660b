package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoscene",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoscene",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Scene metrics
	SceneUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "scene",
		Name:      "source_updates_total",
		Help:      "Source data updates by outcome (applied, queued, discarded)",
	}, []string{"source", "outcome"})

	SceneFeatures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "scene",
		Name:      "features",
		Help:      "Features currently rendered per source",
	}, []string{"source"})

	SceneState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "scene",
		Name:      "state",
		Help:      "Scene lifecycle state (0 uninitialized, 1 ready, 2 errored)",
	})

	RenderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "scene",
		Name:      "render_errors_total",
		Help:      "Render engine errors by kind (transient, descriptive)",
	}, []string{"kind"})

	PopupsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "scene",
		Name:      "popups_opened_total",
		Help:      "Detail popups opened per variant",
	}, []string{"kind"})

	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoscene",
		Subsystem: "snapshot",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of a full snapshot refresh",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	SnapshotErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "snapshot",
		Name:      "refresh_errors_total",
		Help:      "Snapshot refresh failures by stage",
	}, []string{"stage"})

	FeatureBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "features",
		Name:      "builds_total",
		Help:      "Feature collection builds per source, by whether the memo was reused",
	}, []string{"source", "result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoscene",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoscene",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat any) {
	// Matched structurally so this package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
