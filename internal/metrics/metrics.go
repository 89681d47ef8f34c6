// Package metrics provides Prometheus instrumentation for the risk platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsights",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// MLDelegationsTotal counts model service calls by endpoint and outcome
	// (ok, unavailable, error).
	MLDelegationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "ml_delegations_total",
			Help:      "Total model service delegation attempts by path and outcome.",
		},
		[]string{"path", "outcome"},
	)

	// FraudScansTotal counts scanned transactions by result (clean, flagged).
	FraudScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "fraud_scans_total",
			Help:      "Total transactions scanned for fraud by result.",
		},
		[]string{"result"},
	)

	// FraudScoreDistribution observes computed fraud scores.
	FraudScoreDistribution = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finsights",
			Name:      "fraud_score",
			Help:      "Distribution of computed fraud scores (0-100).",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// SimulationsTotal counts simulation runs by terminal status.
	SimulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "simulations_total",
			Help:      "Total simulation runs by terminal status.",
		},
		[]string{"status"},
	)

	// SimulationDuration observes simulation processing time in seconds.
	SimulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finsights",
			Name:      "simulation_duration_seconds",
			Help:      "Simulation processing duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
		},
	)

	// ForecastsTotal counts generated forecasts by source (model, fallback).
	ForecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "forecasts_total",
			Help:      "Total forecasts generated by source.",
		},
		[]string{"source"},
	)

	// AlertsCreatedTotal counts alerts created by severity.
	AlertsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsights",
			Name:      "alerts_created_total",
			Help:      "Total alerts created by severity.",
		},
		[]string{"severity"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finsights",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "finsights", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "finsights", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "finsights", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "finsights", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MLDelegationsTotal,
		FraudScansTotal,
		FraudScoreDistribution,
		SimulationsTotal,
		SimulationDuration,
		ForecastsTotal,
		AlertsCreatedTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
