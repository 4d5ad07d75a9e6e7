package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/guildboard/internal/adapter/discord"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/pscheid92/guildboard/internal/platform/config"
	"github.com/pscheid92/guildboard/internal/platform/i18n"
	"github.com/pscheid92/guildboard/internal/session"
	"github.com/pscheid92/guildboard/web"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockActions struct {
	guildViewFn       func(ctx context.Context, guildID string) (*domain.GuildView, error)
	cloneCategoryFn   func(ctx context.Context, guildID, categoryID, newName string) (domain.ActionResult, error)
	cloneRoleFn       func(ctx context.Context, guildID, roleID, newName string) (domain.ActionResult, error)
	copyPermissionsFn func(ctx context.Context, guildID, fromChannelID, toChannelID string) (domain.ActionResult, error)
	saveTemplateFn    func(ctx context.Context, guildID, categoryID string) (domain.ActionResult, error)
	applyTemplateFn   func(ctx context.Context, guildID, templateName, newName string) (domain.ActionResult, error)
	deleteTemplateFn  func(ctx context.Context, guildID, name string) (domain.ActionResult, error)
	listTemplatesFn   func(ctx context.Context) ([]string, error)
}

func (m *mockActions) GuildView(ctx context.Context, guildID string) (*domain.GuildView, error) {
	if m.guildViewFn != nil {
		return m.guildViewFn(ctx, guildID)
	}
	return &domain.GuildView{ID: guildID, Name: "Test Guild"}, nil
}

func (m *mockActions) CloneCategory(ctx context.Context, guildID, categoryID, newName string) (domain.ActionResult, error) {
	if m.cloneCategoryFn != nil {
		return m.cloneCategoryFn(ctx, guildID, categoryID, newName)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) CloneRole(ctx context.Context, guildID, roleID, newName string) (domain.ActionResult, error) {
	if m.cloneRoleFn != nil {
		return m.cloneRoleFn(ctx, guildID, roleID, newName)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) CopyPermissions(ctx context.Context, guildID, fromChannelID, toChannelID string) (domain.ActionResult, error) {
	if m.copyPermissionsFn != nil {
		return m.copyPermissionsFn(ctx, guildID, fromChannelID, toChannelID)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) SaveTemplate(ctx context.Context, guildID, categoryID string) (domain.ActionResult, error) {
	if m.saveTemplateFn != nil {
		return m.saveTemplateFn(ctx, guildID, categoryID)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) ApplyTemplate(ctx context.Context, guildID, templateName, newName string) (domain.ActionResult, error) {
	if m.applyTemplateFn != nil {
		return m.applyTemplateFn(ctx, guildID, templateName, newName)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) DeleteTemplate(ctx context.Context, guildID, name string) (domain.ActionResult, error) {
	if m.deleteTemplateFn != nil {
		return m.deleteTemplateFn(ctx, guildID, name)
	}
	return domain.ActionResult{}, errors.New("not implemented")
}

func (m *mockActions) ListTemplates(ctx context.Context) ([]string, error) {
	if m.listTemplatesFn != nil {
		return m.listTemplatesFn(ctx)
	}
	return nil, nil
}

type mockOAuth struct {
	identity *discord.Identity
	err      error
}

func (m *mockOAuth) AuthCodeURL(state string) string {
	return "https://discord.test/oauth2/authorize?state=" + url.QueryEscape(state)
}

func (m *mockOAuth) Exchange(_ context.Context, _ string) (*discord.Identity, error) {
	return m.identity, m.err
}

type mockBot struct {
	ids []string
	err error
}

func (m *mockBot) BotGuildIDs(_ context.Context) ([]string, error) {
	return m.ids, m.err
}

// --- Test helpers ---

type testEnv struct {
	srv      *Server
	sessions *session.MemoryStore
	clock    *clockwork.FakeClock
}

func newTestServer(t *testing.T, actions actionService, opts ...func(*Server)) *testEnv {
	t.Helper()

	tmpl := template.Must(template.ParseFS(web.TemplateFiles, "templates/*.html"))
	locales, err := i18n.Load()
	require.NoError(t, err)

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	clock := clockwork.NewFakeClock()
	memory := session.NewMemoryStore(clock)

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			SessionMaxAge:   time.Hour,
			DefaultLanguage: "en-US",
		},
		actions:     actions,
		sessions:    memory,
		oauth:       &mockOAuth{},
		bot:         &mockBot{},
		locales:     locales,
		templates:   tmpl,
		cookieStore: store,
		clock:       clock,
		startTime:   clock.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return &testEnv{srv: srv, sessions: memory, clock: clock}
}

func withOAuth(oauth authenticator) func(*Server) {
	return func(s *Server) {
		s.oauth = oauth
	}
}

func withBot(bot botPresence) func(*Server) {
	return func(s *Server) {
		s.bot = bot
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withMetricsHandler(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(srv *Server, handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware(srv.renderError)(handler)(c)
}

const testGuildID = "100"

func testSession(clock clockwork.Clock) *domain.Session {
	return &domain.Session{
		ID:          uuid.New(),
		UserID:      "42",
		Username:    "mika",
		AccessToken: "user-token",
		Guilds: []domain.GuildMembership{
			{ID: testGuildID, Name: "Cats", Permissions: domain.PermissionManageGuild},
			{ID: "200", Name: "Owned", Owner: true},
			{ID: "300", Name: "Visitor"},
		},
		CreatedAt: clock.Now(),
		ExpiresAt: clock.Now().Add(time.Hour),
	}
}

// login stores sess and returns the cookies of a cookie session pointing at it.
func (env *testEnv) login(t *testing.T, sess *domain.Session) []*http.Cookie {
	t.Helper()
	require.NoError(t, env.sessions.Create(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	cookie, err := env.srv.cookieStore.Get(req, sessionName)
	require.NoError(t, err)
	cookie.Values[sessionKeyID] = sess.ID.String()
	require.NoError(t, cookie.Save(req, rec))
	return liveCookies(rec)
}

// liveCookies keeps the last non-expired Set-Cookie per name.
func liveCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	var order []string
	for _, c := range rec.Result().Cookies() {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	var out []*http.Cookie
	for _, name := range order {
		if c := byName[name]; c.MaxAge >= 0 {
			out = append(out, c)
		}
	}
	return out
}

func mergeCookies(base []*http.Cookie, rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	for _, c := range base {
		byName[c.Name] = c
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(byName, c.Name)
			continue
		}
		byName[c.Name] = c
	}
	out := make([]*http.Cookie, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	return out
}

func serve(env *testEnv, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

// flashesFrom decodes the flash messages carried by the response cookies.
func flashesFrom(t *testing.T, env *testEnv, cookies []*http.Cookie) []flash {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	c := env.srv.echo.NewContext(req, rec)
	return env.srv.popFlashes(c)
}
