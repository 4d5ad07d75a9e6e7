package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/domain"
)

const userGuildsPageSize = 200

// Manager issues the mutating REST calls the executor needs.
type Manager struct {
	client *Client
}

var _ domain.GuildManager = (*Manager)(nil)

func NewManager(client *Client) *Manager {
	return &Manager{client: client}
}

func (m *Manager) CreateChannel(ctx context.Context, guildID string, spec domain.ChannelSpec) (*domain.Channel, error) {
	t, ok := channelType(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("unsupported channel kind %q", spec.Kind)
	}

	data := discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 t,
		Topic:                spec.Topic,
		RateLimitPerUser:     spec.RateLimitPerUser,
		Position:             spec.Position,
		PermissionOverwrites: fromOverwrites(spec.Overwrites),
		ParentID:             spec.ParentID,
		NSFW:                 spec.NSFW,
	}

	ch, err := call(ctx, m.client, "channel_create", func(opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
		return m.client.rest.GuildChannelCreateComplex(guildID, data, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %q: %w", spec.Name, err)
	}
	if ch == nil {
		return nil, errors.New("no channel returned from Discord")
	}

	kind, ok := channelKind(ch.Type)
	if !ok {
		kind = spec.Kind
	}
	out := toChannel(ch, kind)
	return &out, nil
}

func (m *Manager) CreateRole(ctx context.Context, guildID string, spec domain.RoleSpec) (*domain.Role, error) {
	params := &discordgo.RoleParams{
		Name:        spec.Name,
		Color:       &spec.Color,
		Hoist:       &spec.Hoist,
		Permissions: &spec.Permissions,
		Mentionable: &spec.Mentionable,
	}

	role, err := call(ctx, m.client, "role_create", func(opts ...discordgo.RequestOption) (*discordgo.Role, error) {
		return m.client.rest.GuildRoleCreate(guildID, params, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create role %q: %w", spec.Name, err)
	}
	if role == nil {
		return nil, errors.New("no role returned from Discord")
	}

	out := toRole(role)
	return &out, nil
}

// ReplaceOverwrites sets the channel's overwrites to exactly overwrites.
// The edit endpoint drops an empty list from the payload, so clearing
// deletes the current overwrites one by one.
func (m *Manager) ReplaceOverwrites(ctx context.Context, channelID string, overwrites []domain.PermissionOverwrite) error {
	if len(overwrites) > 0 {
		edit := &discordgo.ChannelEdit{PermissionOverwrites: fromOverwrites(overwrites)}
		_, err := call(ctx, m.client, "channel_edit", func(opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
			return m.client.rest.ChannelEdit(channelID, edit, opts...)
		})
		if err != nil {
			return fmt.Errorf("failed to replace overwrites on channel %s: %w", channelID, err)
		}
		return nil
	}

	current, err := call(ctx, m.client, "channel_get", func(opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
		return m.client.rest.Channel(channelID, opts...)
	})
	if err != nil {
		return fmt.Errorf("failed to load channel %s: %w", channelID, err)
	}

	for _, o := range current.PermissionOverwrites {
		targetID := o.ID
		_, err := call(ctx, m.client, "channel_permission_delete", func(opts ...discordgo.RequestOption) (struct{}, error) {
			return struct{}{}, m.client.rest.ChannelPermissionDelete(channelID, targetID, opts...)
		})
		if err != nil {
			return fmt.Errorf("failed to delete overwrite %s on channel %s: %w", targetID, channelID, err)
		}
	}
	return nil
}

func (m *Manager) BotGuildIDs(ctx context.Context) ([]string, error) {
	var ids []string
	after := ""
	for {
		page, err := call(ctx, m.client, "user_guilds", func(opts ...discordgo.RequestOption) ([]*discordgo.UserGuild, error) {
			return m.client.rest.UserGuilds(userGuildsPageSize, "", after, false, opts...)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list bot guilds: %w", err)
		}

		for _, g := range page {
			ids = append(ids, g.ID)
		}
		if len(page) < userGuildsPageSize {
			return ids, nil
		}
		after = page[len(page)-1].ID
	}
}
