package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type flash struct {
	Kind    string
	Message string
}

type languageOption struct {
	Tag      string
	Name     string
	Selected bool
}

// page is the data every template receives. Handler-specific values go in Data.
type page struct {
	Lang      string
	T         func(key string, args ...any) string
	CSRFToken string
	Path      string
	User      *domain.Session
	Flashes   []flash
	Languages []languageOption
	Data      any
}

// resolveLanguage resolves the request language: session preference, then the
// lang cookie, then Accept-Language, then the configured default.
func (s *Server) resolveLanguage(c echo.Context) language.Tag {
	var prefs []string
	if sess, ok := c.Get(ctxKeySession).(*domain.Session); ok && sess.Language != "" {
		prefs = append(prefs, sess.Language)
	}
	if cookie, err := c.Cookie(languageCookie); err == nil {
		prefs = append(prefs, cookie.Value)
	}
	prefs = append(prefs, c.Request().Header.Get("Accept-Language"), s.config.DefaultLanguage)
	return s.locales.Match(prefs...)
}

func (s *Server) translator(c echo.Context) func(key string, args ...any) string {
	tag := s.resolveLanguage(c)
	return func(key string, args ...any) string {
		return s.locales.Translate(tag, key, args...)
	}
}

func (s *Server) newPage(c echo.Context, data any) page {
	tag := s.resolveLanguage(c)
	printer := s.locales.Printer(tag)

	p := page{
		Lang: tag.String(),
		T: func(key string, args ...any) string {
			return printer.Sprintf(key, args...)
		},
		Path: c.Request().URL.Path,
		Data: data,
	}
	if token, ok := c.Get("csrf").(string); ok {
		p.CSRFToken = token
	}
	if sess, ok := c.Get(ctxKeySession).(*domain.Session); ok {
		p.User = sess
	}
	for _, supported := range s.locales.Supported() {
		p.Languages = append(p.Languages, languageOption{
			Tag:      supported.String(),
			Name:     display.Self.Name(supported),
			Selected: supported == tag,
		})
	}
	p.Flashes = s.popFlashes(c)
	return p
}

func (s *Server) cookieSession(c echo.Context) *sessions.Session {
	session, err := s.cookieStore.Get(c.Request(), sessionName)
	if err != nil {
		// A cookie signed with a rotated secret decodes to a fresh session.
		slog.DebugContext(c.Request().Context(), "Discarding undecodable session cookie", "error", err)
	}
	return session
}

func (s *Server) addFlash(c echo.Context, kind, message string) {
	session := s.cookieSession(c)
	session.AddFlash(message, kind)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to save flash message", "error", err)
	}
}

func (s *Server) popFlashes(c echo.Context) []flash {
	session := s.cookieSession(c)

	var out []flash
	for _, kind := range []string{flashSuccess, flashError} {
		for _, v := range session.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, flash{Kind: flashKindClass(kind), Message: msg})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to clear flash messages", "error", err)
	}
	return out
}

func flashKindClass(kind string) string {
	if kind == flashError {
		return "error"
	}
	return "success"
}

func (s *Server) setLanguageCookie(c echo.Context, tag language.Tag) {
	c.SetCookie(&http.Cookie{
		Name:     languageCookie,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int(s.config.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
