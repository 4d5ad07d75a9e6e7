package httpserver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

func (s *Server) registerLanguageRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.POST("/language", s.handleLanguage, s.requireAuth, csrfMiddleware)
}

func (s *Server) handleLanguage(c echo.Context) error {
	requested := strings.TrimSpace(c.FormValue("lang"))
	if requested == "" {
		return apperrors.ValidationError("lang is required").WithMessage("error.required.lang")
	}
	tag := s.locales.Match(requested)

	if sess, ok := c.Get(ctxKeySession).(*domain.Session); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), sessionTimeout)
		defer cancel()

		updated := *sess
		updated.Language = tag.String()
		if err := s.sessions.Update(ctx, &updated); err != nil {
			slog.WarnContext(ctx, "Failed to store language preference", "user_id", sess.UserID, "error", err)
		}
		c.Set(ctxKeySession, &updated)
	}
	s.setLanguageCookie(c, tag)

	return s.redirect(c, safeReturnPath(c.FormValue("return")))
}

// safeReturnPath only accepts same-origin absolute paths.
func safeReturnPath(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return "/guilds"
	}
	return path
}
