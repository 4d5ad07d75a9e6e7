package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

const (
	oauthTimeout   = 10 * time.Second
	sessionTimeout = 5 * time.Second

	ctxKeySession = "session"
	ctxKeyUserID  = "userID"
)

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLogin, rateLimiter)
	s.echo.GET("/callback", s.handleOAuthCallback, rateLimiter)
	s.echo.GET("/logout", s.handleLogout, s.requireAuth)
}

func (s *Server) handleLanding(c echo.Context) error {
	if _, ok := s.currentSession(c); ok {
		return s.redirect(c, "/guilds")
	}
	return s.renderTemplate(c, "landing.html", s.newPage(c, nil))
}

// requireAuth resolves the cookie's session ID against the session store.
// Anything short of a live session sends the browser back to the landing page.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, ok := s.currentSession(c)
		if !ok {
			return s.redirect(c, "/")
		}

		c.Set(ctxKeySession, sess)
		c.Set(ctxKeyUserID, sess.UserID)
		return next(c)
	}
}

func (s *Server) currentSession(c echo.Context) (*domain.Session, bool) {
	cookie := s.cookieSession(c)

	raw, ok := cookie.Values[sessionKeyID].(string)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), sessionTimeout)
	defer cancel()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			slog.ErrorContext(ctx, "Failed to load session", "session_id", id, "error", err)
			return nil, false
		}
		slog.InfoContext(ctx, "Session expired or unknown, clearing cookie", "session_id", id)
		delete(cookie.Values, sessionKeyID)
		if err := cookie.Save(c.Request(), c.Response().Writer); err != nil {
			slog.ErrorContext(ctx, "Failed to clear stale session cookie", "error", err)
		}
		return nil, false
	}
	return sess, true
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) handleLogin(c echo.Context) error {
	if _, ok := s.currentSession(c); ok {
		return s.redirect(c, "/guilds")
	}

	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session := s.cookieSession(c)
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	return s.redirect(c, s.oauth.AuthCodeURL(state))
}

func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter").WithMessage("error.oauth_code")
	}

	session := s.cookieSession(c)
	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state").WithMessage("error.oauth_state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state").WithMessage("error.oauth_state")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	identity, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return apperrors.AuthError("failed to authenticate with Discord", err)
	}

	now := s.clock.Now()
	sess := &domain.Session{
		ID:          uuid.New(),
		UserID:      identity.UserID,
		Username:    identity.Username,
		AccessToken: identity.AccessToken,
		Guilds:      identity.Guilds,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.SessionMaxAge),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return apperrors.InternalError("failed to create session", err).WithField("user_id", identity.UserID)
	}

	// A fresh cookie session on login so a pre-auth cookie cannot be reused.
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to invalidate old session", err)
	}

	// New decodes the request cookie when present; the pre-auth values are dropped.
	session, _ = s.cookieStore.New(c.Request(), sessionName)
	session.Values = make(map[any]any)
	session.Values[sessionKeyID] = sess.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", identity.UserID, "username", identity.Username, "guilds", len(identity.Guilds))

	return s.redirect(c, "/guilds")
}

func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	sess, _ := c.Get(ctxKeySession).(*domain.Session)

	if sess != nil {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to delete session during logout", "session_id", sess.ID, "error", err)
		}
	}

	session := s.cookieSession(c)
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	if sess != nil {
		slog.InfoContext(ctx, "User logged out", "user_id", sess.UserID)
	}
	return s.redirect(c, "/")
}
