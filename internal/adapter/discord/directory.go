package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Directory reads guilds from the gateway state cache after refreshing
// their channels and roles over REST.
type Directory struct {
	client *Client
	state  *discordgo.State
	group  singleflight.Group
}

var _ domain.GuildDirectory = (*Directory)(nil)

func NewDirectory(client *Client, state *discordgo.State) *Directory {
	return &Directory{client: client, state: state}
}

// GuildView refreshes guildID and returns its filtered view. A failed
// refresh falls back to whatever the cache holds.
func (d *Directory) GuildView(ctx context.Context, guildID string) (*domain.GuildView, error) {
	// Concurrent callers share one refresh; one caller leaving must not fail the others.
	refreshCtx := context.WithoutCancel(ctx)
	_, refreshErr, _ := d.group.Do(guildID, func() (any, error) {
		return nil, d.refresh(refreshCtx, guildID)
	})

	switch {
	case refreshErr == nil:
		d.client.metrics.RefreshesTotal.WithLabelValues("success").Inc()
	case errors.Is(refreshErr, domain.ErrGuildNotFound):
		d.client.metrics.RefreshesTotal.WithLabelValues("not_found").Inc()
		return nil, refreshErr
	default:
		d.client.metrics.RefreshesTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "Guild refresh failed, using cached state", "guild_id", guildID, "error", refreshErr)
	}

	g, err := d.state.Guild(guildID)
	if err != nil {
		if refreshErr != nil {
			return nil, fmt.Errorf("failed to refresh guild %s: %w", guildID, refreshErr)
		}
		return nil, domain.ErrGuildNotFound
	}

	d.state.RLock()
	defer d.state.RUnlock()
	return buildView(g), nil
}

func (d *Directory) refresh(ctx context.Context, guildID string) error {
	channels, err := call(ctx, d.client, "guild_channels", func(opts ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
		return d.client.rest.GuildChannels(guildID, opts...)
	})
	if err != nil {
		return d.refreshError("channels", guildID, err)
	}

	roles, err := call(ctx, d.client, "guild_roles", func(opts ...discordgo.RequestOption) ([]*discordgo.Role, error) {
		return d.client.rest.GuildRoles(guildID, opts...)
	})
	if err != nil {
		return d.refreshError("roles", guildID, err)
	}

	var updated discordgo.Guild
	cached, err := d.state.Guild(guildID)
	if err == nil {
		d.state.RLock()
		updated = *cached
		d.state.RUnlock()
	} else {
		// Not announced by the gateway yet.
		fetched, err := call(ctx, d.client, "guild", func(opts ...discordgo.RequestOption) (*discordgo.Guild, error) {
			return d.client.rest.Guild(guildID, opts...)
		})
		if err != nil {
			return d.refreshError("guild", guildID, err)
		}
		updated = *fetched
	}

	for _, ch := range channels {
		if ch != nil && ch.GuildID == "" {
			ch.GuildID = guildID
		}
	}
	updated.ID = guildID
	updated.Channels = channels
	updated.Roles = roles

	if err := d.state.GuildAdd(&updated); err != nil {
		return fmt.Errorf("failed to update guild cache: %w", err)
	}
	return nil
}

func (d *Directory) refreshError(what, guildID string, err error) error {
	if isNotFound(err) {
		return domain.ErrGuildNotFound
	}
	return fmt.Errorf("failed to fetch %s for guild %s: %w", what, guildID, err)
}
