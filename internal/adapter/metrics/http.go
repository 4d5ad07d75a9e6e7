package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// UnmatchedRoute labels requests that matched no registered route.
const UnmatchedRoute = "unmatched"

// Dashboard pages wait on Discord REST calls, so the buckets reach further
// than the client defaults.
var requestBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20}

var untrackedRoutes = []string{"/metrics", "/health/", "/static/"}

// HTTPMetrics records request counts and latencies per echo route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates and registers HTTP metrics on the given registry.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	labels := []string{"method", "route", "status_code"}
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard HTTP requests by route and status.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard HTTP request latency in seconds.",
			Buckets:   requestBuckets,
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Dashboard HTTP requests currently being served.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// Middleware returns an echo middleware that records every request except
// metrics, health and static asset routes.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if !tracked(route) {
				return next(c)
			}

			m.inFlight.Inc()
			start := time.Now()
			err := next(c)
			m.inFlight.Dec()

			if route == "" || errors.Is(err, echo.ErrNotFound) {
				route = UnmatchedRoute
			}
			status := strconv.Itoa(responseStatus(c, err))
			m.requests.WithLabelValues(c.Request().Method, route, status).Inc()
			m.duration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func tracked(route string) bool {
	for _, prefix := range untrackedRoutes {
		if strings.HasPrefix(route, prefix) {
			return false
		}
	}
	return true
}

// responseStatus reports the status the client will see. An echo.HTTPError
// returned past this middleware is written later by echo's error handler.
func responseStatus(c echo.Context, err error) int {
	if c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if err != nil {
		return http.StatusInternalServerError
	}
	return c.Response().Status
}
