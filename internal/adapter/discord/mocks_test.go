package discord

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/guildboard/internal/adapter/metrics"
)

type fakeREST struct {
	mu sync.Mutex

	guildFn             func(guildID string) (*discordgo.Guild, error)
	guildChannelsFn     func(guildID string) ([]*discordgo.Channel, error)
	guildRolesFn        func(guildID string) ([]*discordgo.Role, error)
	channelCreateFn     func(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	roleCreateFn        func(guildID string, data *discordgo.RoleParams) (*discordgo.Role, error)
	channelFn           func(channelID string) (*discordgo.Channel, error)
	channelEditFn       func(channelID string, data *discordgo.ChannelEdit) (*discordgo.Channel, error)
	permissionDeleteFn  func(channelID, targetID string) error
	userGuildsFn        func(limit int, beforeID, afterID string) ([]*discordgo.UserGuild, error)
	channelsCalls       int
	permissionDeletions []string
}

func (f *fakeREST) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if f.guildFn != nil {
		return f.guildFn(guildID)
	}
	return &discordgo.Guild{ID: guildID, Name: "Guild " + guildID}, nil
}

func (f *fakeREST) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	f.channelsCalls++
	f.mu.Unlock()
	if f.guildChannelsFn != nil {
		return f.guildChannelsFn(guildID)
	}
	return nil, nil
}

func (f *fakeREST) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	if f.guildRolesFn != nil {
		return f.guildRolesFn(guildID)
	}
	return nil, nil
}

func (f *fakeREST) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelCreateFn != nil {
		return f.channelCreateFn(guildID, data)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeREST) GuildRoleCreate(guildID string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	if f.roleCreateFn != nil {
		return f.roleCreateFn(guildID, data)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeREST) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelFn != nil {
		return f.channelFn(channelID)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeREST) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelEditFn != nil {
		return f.channelEditFn(channelID, data)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeREST) ChannelPermissionDelete(channelID, targetID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	f.permissionDeletions = append(f.permissionDeletions, targetID)
	f.mu.Unlock()
	if f.permissionDeleteFn != nil {
		return f.permissionDeleteFn(channelID, targetID)
	}
	return nil
}

func (f *fakeREST) UserGuilds(limit int, beforeID, afterID string, _ bool, _ ...discordgo.RequestOption) ([]*discordgo.UserGuild, error) {
	if f.userGuildsFn != nil {
		return f.userGuildsFn(limit, beforeID, afterID)
	}
	return nil, nil
}

func restError(status int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
	}
}

func newTestClient(rest RESTClient) (*Client, *metrics.DiscordMetrics) {
	m := metrics.NewDiscordMetrics(prometheus.NewRegistry())
	return NewClient(rest, m, time.Second), m
}
