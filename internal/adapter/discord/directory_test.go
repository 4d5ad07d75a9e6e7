package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuildID = "100"

func teamChannels() []*discordgo.Channel {
	return []*discordgo.Channel{
		{ID: "12", Name: "voice-1", Type: discordgo.ChannelTypeGuildVoice, ParentID: "10", Position: 2},
		{ID: "10", Name: "Team", Type: discordgo.ChannelTypeGuildCategory, Position: 1},
		{ID: "11", Name: "general", Type: discordgo.ChannelTypeGuildText, ParentID: "10", Position: 1, Topic: "hi", RateLimitPerUser: 10,
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: "200", Type: discordgo.PermissionOverwriteTypeRole, Allow: 1024, Deny: 2048},
				{ID: "300", Type: discordgo.PermissionOverwriteTypeMember, Allow: 8},
			}},
		{ID: "13", Name: "news", Type: discordgo.ChannelTypeGuildNews, Position: 0},
		{ID: "14", Name: "stage", Type: discordgo.ChannelTypeGuildStageVoice, Position: 0},
		{ID: "15", Name: "thread", Type: discordgo.ChannelTypeGuildPublicThread, ParentID: "11"},
	}
}

func teamRoles() []*discordgo.Role {
	return []*discordgo.Role{
		{ID: testGuildID, Name: "@everyone", Position: 0},
		{ID: "201", Name: "Bot", Managed: true, Position: 3},
		{ID: "202", Name: "Mods", Color: 0xff0000, Hoist: true, Permissions: 8, Mentionable: true, Position: 2},
		{ID: "200", Name: "Members", Position: 1},
	}
}

func teamREST() *fakeREST {
	return &fakeREST{
		guildChannelsFn: func(string) ([]*discordgo.Channel, error) { return teamChannels(), nil },
		guildRolesFn:    func(string) ([]*discordgo.Role, error) { return teamRoles(), nil },
	}
}

func TestGuildView_FiltersAndOrders(t *testing.T) {
	client, m := newTestClient(teamREST())
	dir := NewDirectory(client, discordgo.NewState())

	view, err := dir.GuildView(context.Background(), testGuildID)
	require.NoError(t, err)

	assert.Equal(t, testGuildID, view.ID)
	assert.Equal(t, "Guild 100", view.Name)
	assert.Equal(t, []domain.Category{{ID: "10", Name: "Team", Position: 1}}, view.Categories)

	var channelIDs []string
	for _, c := range view.Channels {
		channelIDs = append(channelIDs, c.ID)
	}
	assert.Equal(t, []string{"13", "11", "12"}, channelIDs)

	var roleNames []string
	for _, r := range view.Roles {
		roleNames = append(roleNames, r.Name)
	}
	assert.Equal(t, []string{"Members", "Mods"}, roleNames)

	general, ok := view.Channel("11")
	require.True(t, ok)
	assert.Equal(t, domain.ChannelKindText, general.Kind)
	assert.Equal(t, "hi", general.Topic)
	assert.Equal(t, 10, general.RateLimitPerUser)
	assert.Equal(t, []domain.PermissionOverwrite{
		{SubjectID: "200", SubjectType: domain.OverwriteSubjectRole, Allow: 1024, Deny: 2048},
		{SubjectID: "300", SubjectType: domain.OverwriteSubjectMember, Allow: 8},
	}, general.Overwrites)

	news, _ := view.Channel("13")
	assert.Equal(t, domain.ChannelKindAnnouncement, news.Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("success")))
}

func TestGuildView_RefreshReplacesCachedChannels(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:   testGuildID,
		Name: "Cached",
		Channels: []*discordgo.Channel{
			{ID: "99", Name: "deleted", Type: discordgo.ChannelTypeGuildText, GuildID: testGuildID},
		},
	}))

	client, _ := newTestClient(teamREST())
	view, err := NewDirectory(client, state).GuildView(context.Background(), testGuildID)
	require.NoError(t, err)

	assert.Equal(t, "Cached", view.Name)
	_, ok := view.Channel("99")
	assert.False(t, ok)
	_, ok = view.Channel("11")
	assert.True(t, ok)
}

func TestGuildView_UnknownGuild(t *testing.T) {
	rest := &fakeREST{
		guildChannelsFn: func(string) ([]*discordgo.Channel, error) { return nil, restError(http.StatusNotFound) },
	}
	client, m := newTestClient(rest)

	_, err := NewDirectory(client, discordgo.NewState()).GuildView(context.Background(), testGuildID)
	assert.ErrorIs(t, err, domain.ErrGuildNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("not_found")))
}

func TestGuildView_FallsBackToCacheOnRefreshFailure(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: testGuildID,
		Channels: []*discordgo.Channel{
			{ID: "11", Name: "general", Type: discordgo.ChannelTypeGuildText, GuildID: testGuildID},
		},
	}))

	rest := &fakeREST{
		guildChannelsFn: func(string) ([]*discordgo.Channel, error) { return nil, restError(http.StatusBadGateway) },
	}
	client, m := newTestClient(rest)

	view, err := NewDirectory(client, state).GuildView(context.Background(), testGuildID)
	require.NoError(t, err)
	_, ok := view.Channel("11")
	assert.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("error")))
}

func TestGuildView_RefreshFailureWithoutCache(t *testing.T) {
	boom := errors.New("connection reset")
	rest := &fakeREST{
		guildChannelsFn: func(string) ([]*discordgo.Channel, error) { return nil, boom },
	}
	client, _ := newTestClient(rest)

	_, err := NewDirectory(client, discordgo.NewState()).GuildView(context.Background(), testGuildID)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrGuildNotFound)
}

func TestGuildView_CoalescesConcurrentRefreshes(t *testing.T) {
	release := make(chan struct{})
	var entered atomic.Int32
	rest := teamREST()
	rest.guildChannelsFn = func(string) ([]*discordgo.Channel, error) {
		entered.Add(1)
		<-release
		return teamChannels(), nil
	}
	client, _ := newTestClient(rest)
	dir := NewDirectory(client, discordgo.NewState())

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dir.GuildView(context.Background(), testGuildID)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return entered.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	// Callers arriving while the first refresh is in flight wait for it.
	assert.Equal(t, int32(1), entered.Load())

	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
