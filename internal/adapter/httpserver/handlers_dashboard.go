package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

func (s *Server) registerDashboardRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/guilds", s.handleGuilds, s.requireAuth, csrfMiddleware)
	s.echo.GET("/dashboard/:guildId", s.handleDashboard, s.requireAuth, csrfMiddleware)
}

type guildEntry struct {
	ID         string
	Name       string
	Icon       string
	BotPresent bool
}

type guildsPage struct {
	Guilds []guildEntry
}

type dashboardPage struct {
	Guild     *domain.GuildView
	Templates []string
}

func (s *Server) handleGuilds(c echo.Context) error {
	ctx := c.Request().Context()
	sess, ok := c.Get(ctxKeySession).(*domain.Session)
	if !ok {
		return apperrors.InternalError("missing session in context", nil)
	}

	present := make(map[string]bool)
	ids, err := s.bot.BotGuildIDs(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list bot guilds", "user_id", sess.UserID, "error", err)
	}
	for _, id := range ids {
		present[id] = true
	}

	var data guildsPage
	for _, g := range sess.ManageableGuilds() {
		data.Guilds = append(data.Guilds, guildEntry{
			ID:         g.ID,
			Name:       g.Name,
			Icon:       g.Icon,
			BotPresent: present[g.ID],
		})
	}

	return s.renderTemplate(c, "guilds.html", s.newPage(c, data))
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	guildID := c.Param("guildId")

	if !s.canManage(c, guildID) {
		s.addFlash(c, flashError, s.translator(c)("error.forbidden"))
		return s.redirect(c, "/guilds")
	}

	view, err := s.actions.GuildView(ctx, guildID)
	if apperrors.Is(err, apperrors.TypeNotFound) {
		s.addFlash(c, flashError, s.translator(c)("guilds.bot_missing"))
		return s.redirect(c, "/guilds")
	}
	if err != nil {
		return err
	}

	templates, err := s.actions.ListTemplates(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list templates", "guild_id", guildID, "error", err)
	}

	return s.renderTemplate(c, "dashboard.html", s.newPage(c, dashboardPage{Guild: view, Templates: templates}))
}

// canManage reports whether the session's cached memberships grant manage
// access to guildID.
func (s *Server) canManage(c echo.Context, guildID string) bool {
	sess, ok := c.Get(ctxKeySession).(*domain.Session)
	if !ok || guildID == "" {
		return false
	}
	membership, ok := sess.Membership(guildID)
	return ok && membership.CanManage()
}
