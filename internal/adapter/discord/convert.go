package discord

import (
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/domain"
)

func channelKind(t discordgo.ChannelType) (domain.ChannelKind, bool) {
	switch t {
	case discordgo.ChannelTypeGuildCategory:
		return domain.ChannelKindCategory, true
	case discordgo.ChannelTypeGuildText:
		return domain.ChannelKindText, true
	case discordgo.ChannelTypeGuildVoice:
		return domain.ChannelKindVoice, true
	case discordgo.ChannelTypeGuildNews:
		return domain.ChannelKindAnnouncement, true
	default:
		return "", false
	}
}

func channelType(k domain.ChannelKind) (discordgo.ChannelType, bool) {
	switch k {
	case domain.ChannelKindCategory:
		return discordgo.ChannelTypeGuildCategory, true
	case domain.ChannelKindText:
		return discordgo.ChannelTypeGuildText, true
	case domain.ChannelKindVoice:
		return discordgo.ChannelTypeGuildVoice, true
	case domain.ChannelKindAnnouncement:
		return discordgo.ChannelTypeGuildNews, true
	default:
		return 0, false
	}
}

func toOverwrites(in []*discordgo.PermissionOverwrite) []domain.PermissionOverwrite {
	out := make([]domain.PermissionOverwrite, 0, len(in))
	for _, o := range in {
		if o == nil {
			continue
		}
		subject := domain.OverwriteSubjectRole
		if o.Type == discordgo.PermissionOverwriteTypeMember {
			subject = domain.OverwriteSubjectMember
		}
		out = append(out, domain.PermissionOverwrite{
			SubjectID:   o.ID,
			SubjectType: subject,
			Allow:       o.Allow,
			Deny:        o.Deny,
		})
	}
	return out
}

func fromOverwrites(in []domain.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, o := range in {
		t := discordgo.PermissionOverwriteTypeRole
		if o.SubjectType == domain.OverwriteSubjectMember {
			t = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.SubjectID,
			Type:  t,
			Allow: o.Allow,
			Deny:  o.Deny,
		})
	}
	return out
}

func toChannel(ch *discordgo.Channel, kind domain.ChannelKind) domain.Channel {
	return domain.Channel{
		ID:               ch.ID,
		Name:             ch.Name,
		Kind:             kind,
		ParentID:         ch.ParentID,
		Topic:            ch.Topic,
		NSFW:             ch.NSFW,
		RateLimitPerUser: ch.RateLimitPerUser,
		Position:         ch.Position,
		Overwrites:       toOverwrites(ch.PermissionOverwrites),
	}
}

func toRole(r *discordgo.Role) domain.Role {
	return domain.Role{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Hoist:       r.Hoist,
		Permissions: r.Permissions,
		Mentionable: r.Mentionable,
		Managed:     r.Managed,
		Position:    r.Position,
	}
}

// buildView filters and orders a cached guild. Callers hold the state read lock.
func buildView(g *discordgo.Guild) *domain.GuildView {
	view := &domain.GuildView{
		ID:         g.ID,
		Name:       g.Name,
		Categories: []domain.Category{},
		Channels:   []domain.Channel{},
		Roles:      []domain.Role{},
	}

	for _, ch := range g.Channels {
		if ch == nil {
			continue
		}
		kind, ok := channelKind(ch.Type)
		if !ok {
			continue
		}
		if kind == domain.ChannelKindCategory {
			view.Categories = append(view.Categories, domain.Category{ID: ch.ID, Name: ch.Name, Position: ch.Position})
			continue
		}
		view.Channels = append(view.Channels, toChannel(ch, kind))
	}

	for _, r := range g.Roles {
		// @everyone shares the guild ID; managed roles belong to integrations.
		if r == nil || r.ID == g.ID || r.Managed {
			continue
		}
		view.Roles = append(view.Roles, toRole(r))
	}

	sort.Slice(view.Categories, func(i, j int) bool {
		return less(view.Categories[i].Position, view.Categories[i].ID, view.Categories[j].Position, view.Categories[j].ID)
	})
	sort.Slice(view.Channels, func(i, j int) bool {
		return less(view.Channels[i].Position, view.Channels[i].ID, view.Channels[j].Position, view.Channels[j].ID)
	})
	sort.Slice(view.Roles, func(i, j int) bool {
		return less(view.Roles[i].Position, view.Roles[i].ID, view.Roles[j].Position, view.Roles[j].ID)
	})
	return view
}

// less orders by position, then by snowflake ID.
func less(posA int, idA string, posB int, idB string) bool {
	if posA != posB {
		return posA < posB
	}
	if len(idA) != len(idB) {
		return len(idA) < len(idB)
	}
	return idA < idB
}
