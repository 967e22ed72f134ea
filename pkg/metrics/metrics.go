// Package metrics 业务与 HTTP 指标（Prometheus）
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fitcoach"

var (
	assignmentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_assignment",
		Name:      "created_total",
		Help:      "Plan assignments created, by initial status.",
	}, []string{"status"})
	assignmentsTransitioned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_assignment",
		Name:      "transitions_total",
		Help:      "Plan assignment status transitions triggered by users.",
	}, []string{"to"})
	sessionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "created_total",
		Help:      "Workout sessions started, by session type.",
	}, []string{"session_type"})
	sessionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "completed_total",
		Help:      "Workout sessions completed, by session type.",
	}, []string{"session_type"})
	compensationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "compensation_failures_total",
		Help:      "Identity provider accounts that could not be rolled back and need manual reconciliation.",
	})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		assignmentsCreated,
		assignmentsTransitioned,
		sessionsCreated,
		sessionsCompleted,
		compensationFailures,
		httpDuration,
	)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordAssignmentCreated(status string) {
	assignmentsCreated.WithLabelValues(status).Inc()
}

func RecordAssignmentTransition(to string) {
	assignmentsTransitioned.WithLabelValues(to).Inc()
}

func RecordSessionCreated(sessionType string) {
	sessionsCreated.WithLabelValues(sessionType).Inc()
}

func RecordSessionCompleted(sessionType string) {
	sessionsCompleted.WithLabelValues(sessionType).Inc()
}

func RecordCompensationFailure() {
	compensationFailures.Inc()
}

// ObserveHTTPRequest 记录一次请求耗时；route 使用路由模板避免高基数
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
