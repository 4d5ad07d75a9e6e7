package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second

	statusPass = "pass"
	statusFail = "fail"
)

// HealthCheck is one dependency reported by the health routes. Checks with
// Startup set also gate /health/startup; all checks gate /health/ready.
type HealthCheck struct {
	Name    string
	Startup bool
	Check   func(ctx context.Context) error
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthReport struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks"`
}

type livenessReport struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) handleStartup(c echo.Context) error {
	var checks []HealthCheck
	for _, hc := range s.healthChecks {
		if hc.Startup {
			checks = append(checks, hc)
		}
	}
	return s.writeHealth(c, runChecks(c.Request().Context(), checks, startupCheckTimeout))
}

func (s *Server) handleReadiness(c echo.Context) error {
	return s.writeHealth(c, runChecks(c.Request().Context(), s.healthChecks, readinessCheckTimeout))
}

func (s *Server) handleLiveness(c echo.Context) error {
	report := livenessReport{
		Status:        statusPass,
		UptimeSeconds: s.clock.Since(s.startTime).Seconds(),
		Version:       version.Get().Version,
	}
	if err := c.JSON(http.StatusOK, report); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}

// runChecks runs every check concurrently under one shared deadline and
// reports each result in registration order.
func runChecks(ctx context.Context, checks []HealthCheck, timeout time.Duration) healthReport {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := healthReport{Status: statusPass, Checks: make([]checkResult, len(checks))}
	var g errgroup.Group
	for i, hc := range checks {
		g.Go(func() error {
			result := checkResult{Name: hc.Name, Status: statusPass}
			if err := hc.Check(ctx); err != nil {
				result.Status = statusFail
				result.Error = err.Error()
			}
			report.Checks[i] = result
			return nil
		})
	}
	_ = g.Wait()

	for _, result := range report.Checks {
		if result.Status == statusFail {
			report.Status = statusFail
			break
		}
	}
	return report
}

func (s *Server) writeHealth(c echo.Context, report healthReport) error {
	code := http.StatusOK
	if report.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	if err := c.JSON(code, report); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}
