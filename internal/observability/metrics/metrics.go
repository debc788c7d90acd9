// Package metrics exposes Prometheus instruments for the HTTP surface and
// the invitation lifecycle.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latencies per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_http_requests_total",
			Help: "HTTP requests processed, by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planora_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware instruments every request. Unmatched routes are grouped under
// a single label to keep cardinality bounded.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// InvitationMetrics counts invitation lifecycle outcomes.
type InvitationMetrics struct {
	issued   prometheus.Counter
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
}

func NewInvitationMetrics(reg prometheus.Registerer) *InvitationMetrics {
	m := &InvitationMetrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planora_invitations_issued_total",
			Help: "Invitations issued, including re-invites that supersede a token.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planora_invitations_accepted_total",
			Help: "Invitations accepted and converted into memberships.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_invitations_rejected_total",
			Help: "Invitation redemptions rejected, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.issued, m.accepted, m.rejected)
	return m
}

// RecordIssued increments the issued counter.
func (m *InvitationMetrics) RecordIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

// RecordAccepted increments the accepted counter.
func (m *InvitationMetrics) RecordAccepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

// RecordRejected increments the rejected counter for a reason such as
// "expired", "not_found" or "already_accepted".
func (m *InvitationMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
