package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PermissionManageGuild is the MANAGE_GUILD bit of a membership bitmask.
const PermissionManageGuild int64 = 0x20

// GuildMembership is one guild the authenticated user belongs to, as
// reported by the OAuth provider.
type GuildMembership struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Owner       bool   `json:"owner"`
	Permissions int64  `json:"permissions"`
}

// CanManage reports whether the membership grants manage-guild access.
func (m GuildMembership) CanManage() bool {
	return m.Owner || m.Permissions&PermissionManageGuild != 0
}

// Session is a per-user authenticated session. The token never leaves the
// server; the browser only holds the session ID.
type Session struct {
	ID          uuid.UUID         `json:"id"`
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	AccessToken string            `json:"access_token"`
	Guilds      []GuildMembership `json:"guilds"`
	Language    string            `json:"language"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Membership returns the cached membership for guildID.
func (s *Session) Membership(guildID string) (GuildMembership, bool) {
	for _, g := range s.Guilds {
		if g.ID == guildID {
			return g, true
		}
	}
	return GuildMembership{}, false
}

// ManageableGuilds returns the memberships with manage-guild access.
func (s *Session) ManageableGuilds() []GuildMembership {
	var out []GuildMembership
	for _, g := range s.Guilds {
		if g.CanManage() {
			out = append(out, g)
		}
	}
	return out
}

type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	// Get returns ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
