package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stemchat_http_requests_total",
		Help: "HTTP requests by path and status code.",
	}, []string{"path", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stemchat_http_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	exchangesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stemchat_analytics_exchanges_total",
		Help: "Chat exchanges recorded into analytics.",
	})

	analyticsFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stemchat_analytics_record_failures_total",
		Help: "Analytics writes that failed and were dropped.",
	})
)

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(path, strconv.Itoa(c.Response().Status)).Inc()
		return err
	}
}
