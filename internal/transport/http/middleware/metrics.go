package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"route", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"},
	)
	httpDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_denied_total", Help: "Requests refused with 401 or 403"},
		[]string{"route", "status"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpDenied) }

// Metrics 按路由模板打点；未匹配的路径归为 "unmatched"，避免 label 爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		code := strconv.Itoa(status)
		httpReqTotal.WithLabelValues(route, c.Request.Method, code).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		if status == 401 || status == 403 {
			httpDenied.WithLabelValues(route, code).Inc()
		}
	}
}
