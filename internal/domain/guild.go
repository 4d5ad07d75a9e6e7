package domain

import "context"

// ChannelKind is the structural kind of a guild channel.
type ChannelKind string

const (
	ChannelKindCategory     ChannelKind = "category"
	ChannelKindText         ChannelKind = "text"
	ChannelKindVoice        ChannelKind = "voice"
	ChannelKindAnnouncement ChannelKind = "announcement"
)

// Valid reports whether k is one of the kinds this system manages.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelKindCategory, ChannelKindText, ChannelKindVoice, ChannelKindAnnouncement:
		return true
	}
	return false
}

// OverwriteSubject says whether an overwrite targets a role or a member.
type OverwriteSubject string

const (
	OverwriteSubjectRole   OverwriteSubject = "role"
	OverwriteSubjectMember OverwriteSubject = "member"
)

// PermissionOverwrite is a per-subject allow/deny pair attached to one channel.
type PermissionOverwrite struct {
	SubjectID   string
	SubjectType OverwriteSubject
	Allow       int64
	Deny        int64
}

type Category struct {
	ID       string
	Name     string
	Position int
}

type Channel struct {
	ID               string
	Name             string
	Kind             ChannelKind
	ParentID         string
	Topic            string
	NSFW             bool
	RateLimitPerUser int
	Position         int
	Overwrites       []PermissionOverwrite
}

type Role struct {
	ID          string
	Name        string
	Color       int
	Hoist       bool
	Permissions int64
	Mentionable bool
	Managed     bool
	Position    int
}

// GuildView is a point-in-time read of a guild. It may be stale relative to
// the live guild and is never persisted.
type GuildView struct {
	ID         string
	Name       string
	Categories []Category
	Channels   []Channel
	Roles      []Role
}

func (v *GuildView) Category(id string) (Category, bool) {
	for _, c := range v.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (v *GuildView) Channel(id string) (Channel, bool) {
	for _, c := range v.Channels {
		if c.ID == id {
			return c, true
		}
	}
	return Channel{}, false
}

func (v *GuildView) Role(id string) (Role, bool) {
	for _, r := range v.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// ChildrenOf returns the channels whose parent is categoryID, in view order.
func (v *GuildView) ChildrenOf(categoryID string) []Channel {
	var children []Channel
	for _, c := range v.Channels {
		if c.ParentID == categoryID {
			children = append(children, c)
		}
	}
	return children
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name             string
	Kind             ChannelKind
	ParentID         string
	Topic            string
	NSFW             bool
	RateLimitPerUser int
	Position         int
	Overwrites       []PermissionOverwrite
}

// RoleSpec describes a role to create.
type RoleSpec struct {
	Name        string
	Color       int
	Hoist       bool
	Permissions int64
	Mentionable bool
}

// GuildDirectory is the read-only view over the gateway cache.
type GuildDirectory interface {
	// GuildView refreshes the channel and role caches for guildID and returns
	// the filtered, ordered view. Returns ErrGuildNotFound for unknown guilds.
	GuildView(ctx context.Context, guildID string) (*GuildView, error)
}

// GuildManager issues mutating commands against the guild-management API.
type GuildManager interface {
	CreateChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	CreateRole(ctx context.Context, guildID string, spec RoleSpec) (*Role, error)
	// ReplaceOverwrites sets the channel's overwrite list to exactly overwrites.
	ReplaceOverwrites(ctx context.Context, channelID string, overwrites []PermissionOverwrite) error
	// BotGuildIDs lists the guilds the bot is currently a member of.
	BotGuildIDs(ctx context.Context) ([]string, error)
}
