package httpserver

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

func (s *Server) registerActionRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	g := s.echo.Group("/action", rateLimiter, s.requireAuth, csrfMiddleware)
	g.POST("/clonecategory", s.handleCloneCategory)
	g.POST("/clonerole", s.handleCloneRole)
	g.POST("/copyperms", s.handleCopyPermissions)
	g.POST("/templatelist", s.handleSaveTemplate)
	g.POST("/applytemplate", s.handleApplyTemplate)
	g.POST("/deletetemplate", s.handleDeleteTemplate)
}

type actionFunc func(ctx context.Context, guildID string) (domain.ActionResult, error)

func (s *Server) handleCloneCategory(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.CloneCategory(ctx, guildID, c.FormValue("categoryId"), c.FormValue("newName"))
	})
}

func (s *Server) handleCloneRole(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.CloneRole(ctx, guildID, c.FormValue("roleId"), c.FormValue("newName"))
	})
}

func (s *Server) handleCopyPermissions(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.CopyPermissions(ctx, guildID, c.FormValue("fromChannelId"), c.FormValue("toChannelId"))
	})
}

func (s *Server) handleSaveTemplate(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.SaveTemplate(ctx, guildID, c.FormValue("categoryId"))
	})
}

func (s *Server) handleApplyTemplate(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.ApplyTemplate(ctx, guildID, c.FormValue("templateName"), c.FormValue("newName"))
	})
}

func (s *Server) handleDeleteTemplate(c echo.Context) error {
	return s.runAction(c, func(ctx context.Context, guildID string) (domain.ActionResult, error) {
		return s.actions.DeleteTemplate(ctx, guildID, c.FormValue("templateName"))
	})
}

// runAction checks manage access, runs fn and turns the outcome into a
// flash message. It always answers with a redirect.
func (s *Server) runAction(c echo.Context, fn actionFunc) error {
	ctx := c.Request().Context()
	guildID := strings.TrimSpace(c.FormValue("guildId"))
	if guildID == "" {
		s.addFlash(c, flashError, s.errorMessage(c, apperrors.ValidationError("guild ID is required").WithMessage("error.required.guild_id")))
		return s.redirect(c, "/guilds")
	}

	target := "/dashboard/" + url.PathEscape(guildID)

	if !s.canManage(c, guildID) {
		err := apperrors.ForbiddenError("manage access required").WithField("guild_id", guildID)
		logError(c, err)
		s.addFlash(c, flashError, s.errorMessage(c, err))
		return s.redirect(c, target)
	}

	result, err := fn(ctx, guildID)
	if err != nil {
		structured := apperrors.AsStructuredError(err)
		logError(c, structured)
		s.addFlash(c, flashError, s.errorMessage(c, structured))
		return s.redirect(c, target)
	}

	slog.InfoContext(ctx, "Action succeeded", "action", result.Action, "guild_id", guildID, "user_id", c.Get(ctxKeyUserID))
	s.addFlash(c, flashSuccess, s.successMessage(c, result))
	return s.redirect(c, target)
}

func (s *Server) successMessage(c echo.Context, r domain.ActionResult) string {
	t := s.translator(c)
	key := "action." + string(r.Action) + ".success"

	switch r.Action {
	case domain.ActionCloneCategory:
		return t(key, r.Source, r.Target, r.Channels)
	case domain.ActionSaveTemplate:
		return t(key, r.Target, r.Channels)
	case domain.ActionApplyTemplate:
		return t(key, r.Target, r.Source, r.Channels)
	case domain.ActionDeleteTemplate:
		return t(key, r.Source)
	default:
		return t(key, r.Source, r.Target)
	}
}

// errorMessage renders err in the request language. Errors without a
// message key fall back to a generic text for their type.
func (s *Server) errorMessage(c echo.Context, err *apperrors.Error) string {
	t := s.translator(c)
	if err.MessageKey != "" {
		return t(err.MessageKey, err.MessageArgs...)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		return t("error.validation")
	case apperrors.TypeNotFound:
		return t("error.not_found")
	case apperrors.TypeExternal:
		return t("error.external")
	case apperrors.TypeForbidden:
		return t("error.forbidden")
	case apperrors.TypeAuth:
		return t("error.auth")
	default:
		return t("error.internal")
	}
}
