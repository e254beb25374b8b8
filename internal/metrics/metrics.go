// Package metrics provides Prometheus instrumentation for the jobchain service.
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
			Namespace: "jobchain",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobchain",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// JobsCreatedTotal counts jobs posted by clients.
	JobsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jobchain",
		Name:      "jobs_created_total",
		Help:      "Total jobs posted.",
	})

	// JobStatusTransitionsTotal counts job state machine transitions.
	JobStatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobchain",
			Name:      "job_status_transitions_total",
			Help:      "Job status transitions by from-status and to-status.",
		},
		[]string{"from", "to"},
	)

	// ProposalsTotal counts proposal lifecycle outcomes.
	ProposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobchain",
			Name:      "proposals_total",
			Help:      "Proposal operations by outcome.",
		},
		[]string{"outcome"},
	)

	// EscrowCallsTotal counts escrow contract calls by operation and result.
	EscrowCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobchain",
			Name:      "escrow_calls_total",
			Help:      "Escrow contract calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	// EscrowCallDuration observes escrow contract call latency by operation.
	EscrowCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobchain",
			Name:      "escrow_call_duration_seconds",
			Help:      "Escrow contract call duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"op"},
	)

	// SettlementAssignmentsTotal counts assignment protocol runs by result.
	SettlementAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobchain",
			Name:      "settlement_assignments_total",
			Help:      "Assignment protocol attempts by result.",
		},
		[]string{"result"},
	)

	// SettlementOrphanedDepositsTotal counts deposits stranded on-chain after
	// losing the conditional DB write.
	SettlementOrphanedDepositsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jobchain",
		Name:      "settlement_orphaned_deposits_total",
		Help:      "On-chain deposits that lost the assignment race and need reconciliation.",
	})

	// CompletionMirrorFailuresTotal counts failed best-effort on-chain
	// confirmation mirrors.
	CompletionMirrorFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jobchain",
		Name:      "completion_mirror_failures_total",
		Help:      "On-chain completion confirmations that failed after local approval.",
	})

	// ReviewsTotal counts reviews created.
	ReviewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jobchain",
		Name:      "reviews_total",
		Help:      "Total reviews created.",
	})

	// NotificationsTotal counts fan-out deliveries by kind.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobchain",
			Name:      "notifications_total",
			Help:      "Notification fan-out calls by kind (broadcast or user).",
		},
		[]string{"kind"},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobchain",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jobchain", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		JobsCreatedTotal,
		JobStatusTransitionsTotal,
		ProposalsTotal,
		EscrowCallsTotal,
		EscrowCallDuration,
		SettlementAssignmentsTotal,
		SettlementOrphanedDepositsTotal,
		CompletionMirrorFailuresTotal,
		ReviewsTotal,
		NotificationsTotal,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
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
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
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
