package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
)

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tasksByStatus   *prometheus.GaugeVec
	overdue         prometheus.Gauge
}

// setupMetrics registers the HTTP and task gauges on a private registry and
// serves them on /metrics.
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planr_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planr_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		tasksByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "planr_tasks",
				Help: "Tasks in the last computed stats window, by status",
			},
			[]string{"status"},
		),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planr_tasks_overdue",
			Help: "Overdue tasks in the last computed stats window",
		}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.tasksByStatus, m.overdue)
	s.metrics = m

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler pick the status before it is recorded.
				c.Error(err)
			}

			path := c.Path()
			m.requestsTotal.WithLabelValues(
				c.Request().Method,
				path,
				strconv.Itoa(c.Response().Status),
			).Inc()
			m.requestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

func (m *metrics) observeReport(r analytics.Report) {
	if m == nil {
		return
	}
	for _, st := range task.Statuses {
		m.tasksByStatus.WithLabelValues(string(st)).Set(float64(r.KPI.ByStatus[st]))
	}
	m.overdue.Set(float64(r.KPI.Overdue))
}
