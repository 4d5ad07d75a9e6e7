package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/guildboard/internal/domain"
)

// --- Mock implementations ---

type mockDirectory struct {
	guildViewFn func(ctx context.Context, guildID string) (*domain.GuildView, error)
}

func (m *mockDirectory) GuildView(ctx context.Context, guildID string) (*domain.GuildView, error) {
	if m.guildViewFn != nil {
		return m.guildViewFn(ctx, guildID)
	}
	return nil, domain.ErrGuildNotFound
}

type mockManager struct {
	mu sync.Mutex

	createChannelFn     func(ctx context.Context, guildID string, spec domain.ChannelSpec) (*domain.Channel, error)
	createRoleFn        func(ctx context.Context, guildID string, spec domain.RoleSpec) (*domain.Role, error)
	replaceOverwritesFn func(ctx context.Context, channelID string, overwrites []domain.PermissionOverwrite) error
	botGuildIDsFn       func(ctx context.Context) ([]string, error)

	channels   []domain.ChannelSpec
	roles      []domain.RoleSpec
	overwrites map[string][]domain.PermissionOverwrite
	nextID     int
}

func (m *mockManager) CreateChannel(ctx context.Context, guildID string, spec domain.ChannelSpec) (*domain.Channel, error) {
	if m.createChannelFn != nil {
		if _, err := m.createChannelFn(ctx, guildID, spec); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.channels = append(m.channels, spec)
	return &domain.Channel{
		ID:               fmt.Sprintf("new-%d", m.nextID),
		Name:             spec.Name,
		Kind:             spec.Kind,
		ParentID:         spec.ParentID,
		Topic:            spec.Topic,
		NSFW:             spec.NSFW,
		RateLimitPerUser: spec.RateLimitPerUser,
		Position:         spec.Position,
		Overwrites:       spec.Overwrites,
	}, nil
}

func (m *mockManager) CreateRole(ctx context.Context, guildID string, spec domain.RoleSpec) (*domain.Role, error) {
	if m.createRoleFn != nil {
		return m.createRoleFn(ctx, guildID, spec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.roles = append(m.roles, spec)
	return &domain.Role{
		ID:          fmt.Sprintf("role-%d", m.nextID),
		Name:        spec.Name,
		Color:       spec.Color,
		Hoist:       spec.Hoist,
		Permissions: spec.Permissions,
		Mentionable: spec.Mentionable,
	}, nil
}

func (m *mockManager) ReplaceOverwrites(ctx context.Context, channelID string, overwrites []domain.PermissionOverwrite) error {
	if m.replaceOverwritesFn != nil {
		if err := m.replaceOverwritesFn(ctx, channelID, overwrites); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overwrites == nil {
		m.overwrites = make(map[string][]domain.PermissionOverwrite)
	}
	m.overwrites[channelID] = append([]domain.PermissionOverwrite(nil), overwrites...)
	return nil
}

func (m *mockManager) BotGuildIDs(ctx context.Context) ([]string, error) {
	if m.botGuildIDsFn != nil {
		return m.botGuildIDsFn(ctx)
	}
	return nil, nil
}

func (m *mockManager) mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels) + len(m.roles) + len(m.overwrites)
}

type mockTemplates struct {
	mu        sync.Mutex
	templates map[string]*domain.Template

	saveFn func(ctx context.Context, tpl *domain.Template) error
	loadFn func(ctx context.Context, name string) (*domain.Template, error)
}

func (m *mockTemplates) Save(ctx context.Context, tpl *domain.Template) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, tpl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.templates == nil {
		m.templates = make(map[string]*domain.Template)
	}
	m.templates[tpl.Category] = tpl
	return nil
}

func (m *mockTemplates) Load(ctx context.Context, name string) (*domain.Template, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[name]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return tpl, nil
}

func (m *mockTemplates) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockTemplates) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[name]; !ok {
		return domain.ErrTemplateNotFound
	}
	delete(m.templates, name)
	return nil
}

type recordedAction struct {
	action   string
	outcome  string
	channels int
}

type mockRecorder struct {
	mu      sync.Mutex
	records []recordedAction
}

func (m *mockRecorder) RecordAction(action, outcome string, channels int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedAction{action: action, outcome: outcome, channels: channels})
}

func (m *mockRecorder) last(t *testing.T) recordedAction {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		t.Fatal("no action recorded")
	}
	return m.records[len(m.records)-1]
}

// --- Fixtures ---

const testGuildID = "100"

func testView() *domain.GuildView {
	return &domain.GuildView{
		ID:   testGuildID,
		Name: "Cats",
		Categories: []domain.Category{
			{ID: "10", Name: "Team", Position: 2},
			{ID: "11", Name: "Empty", Position: 3},
		},
		Channels: []domain.Channel{
			{
				ID: "20", Name: "general", Kind: domain.ChannelKindText, ParentID: "10",
				Topic: "hello", NSFW: true, RateLimitPerUser: 5, Position: 0,
				Overwrites: []domain.PermissionOverwrite{
					{SubjectID: "30", SubjectType: domain.OverwriteSubjectRole, Allow: 1024, Deny: 2048},
				},
			},
			{ID: "21", Name: "voice", Kind: domain.ChannelKindVoice, ParentID: "10", Position: 1},
			{ID: "22", Name: "news", Kind: domain.ChannelKindAnnouncement, ParentID: "10", Position: 2},
			{ID: "23", Name: "lobby", Kind: domain.ChannelKindText, Position: 0},
		},
		Roles: []domain.Role{
			{ID: "30", Name: "Mods", Color: 0xff0000, Hoist: true, Permissions: 8, Mentionable: true, Position: 1},
		},
	}
}

type testDeps struct {
	directory *mockDirectory
	manager   *mockManager
	templates *mockTemplates
	recorder  *mockRecorder
	clock     *clockwork.FakeClock
}

func newTestExecutor(view *domain.GuildView) (*Executor, *testDeps) {
	deps := &testDeps{
		directory: &mockDirectory{
			guildViewFn: func(_ context.Context, guildID string) (*domain.GuildView, error) {
				if view == nil || guildID != view.ID {
					return nil, domain.ErrGuildNotFound
				}
				return view, nil
			},
		},
		manager:   &mockManager{},
		templates: &mockTemplates{},
		recorder:  &mockRecorder{},
		clock:     clockwork.NewFakeClock(),
	}
	exec := NewExecutor(deps.directory, deps.manager, deps.templates, deps.recorder, deps.clock, 5*time.Second)
	return exec, deps
}
