package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/adapter/discord"
	"github.com/pscheid92/guildboard/internal/adapter/metrics"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/pscheid92/guildboard/internal/platform/config"
	"github.com/pscheid92/guildboard/internal/platform/i18n"
	"github.com/pscheid92/guildboard/web"
)

type actionService interface {
	GuildView(ctx context.Context, guildID string) (*domain.GuildView, error)
	CloneCategory(ctx context.Context, guildID, categoryID, newName string) (domain.ActionResult, error)
	CloneRole(ctx context.Context, guildID, roleID, newName string) (domain.ActionResult, error)
	CopyPermissions(ctx context.Context, guildID, fromChannelID, toChannelID string) (domain.ActionResult, error)
	SaveTemplate(ctx context.Context, guildID, categoryID string) (domain.ActionResult, error)
	ApplyTemplate(ctx context.Context, guildID, templateName, newName string) (domain.ActionResult, error)
	DeleteTemplate(ctx context.Context, guildID, name string) (domain.ActionResult, error)
	ListTemplates(ctx context.Context) ([]string, error)
}

type authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*discord.Identity, error)
}

type botPresence interface {
	BotGuildIDs(ctx context.Context) ([]string, error)
}

// Dependencies are the collaborators the server delegates to.
type Dependencies struct {
	Actions        actionService
	Sessions       domain.SessionStore
	OAuth          authenticator
	Bot            botPresence
	Locales        *i18n.Bundle
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	actions  actionService
	sessions domain.SessionStore
	oauth    authenticator
	bot      botPresence
	locales  *i18n.Bundle

	templates   *template.Template
	cookieStore *sessions.CookieStore

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck

	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := clockwork.NewRealClock()

	srv := &Server{
		echo:           e,
		config:         cfg,
		actions:        deps.Actions,
		sessions:       deps.Sessions,
		oauth:          deps.OAuth,
		bot:            deps.Bot,
		locales:        deps.Locales,
		templates:      templates,
		cookieStore:    setupSessionStore(cfg),
		httpMetrics:    deps.HTTPMetrics,
		metricsHandler: deps.MetricsHandler,
		healthChecks:   deps.HealthChecks,
		clock:          clock,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Cookie session keys. The cookie never carries the access token.
const (
	sessionName          = "guildboard-session"
	sessionKeyID         = "session_id"
	sessionKeyOAuthState = "oauth_state"

	flashSuccess = "flash_success"
	flashError   = "flash_error"

	languageCookie = "lang"
)

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	return s.renderTemplateStatus(c, http.StatusOK, name, data)
}

func (s *Server) renderTemplateStatus(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "template", name, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func (s *Server) redirect(c echo.Context, location string) error {
	if err := c.Redirect(http.StatusFound, location); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
