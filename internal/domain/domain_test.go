package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuildMembership_CanManage(t *testing.T) {
	tests := []struct {
		name string
		m    GuildMembership
		want bool
	}{
		{"owner", GuildMembership{Owner: true}, true},
		{"manage guild bit", GuildMembership{Permissions: 0x20}, true},
		{"administrator only", GuildMembership{Permissions: 0x8}, false},
		{"manage guild among others", GuildMembership{Permissions: 0x20 | 0x400}, true},
		{"no permissions", GuildMembership{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.CanManage())
		})
	}
}

func TestSession_ManageableGuilds(t *testing.T) {
	s := &Session{Guilds: []GuildMembership{
		{ID: "1", Owner: true},
		{ID: "2"},
		{ID: "3", Permissions: PermissionManageGuild},
	}}

	got := s.ManageableGuilds()

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	_, ok := s.Membership("2")
	assert.True(t, ok)
	_, ok = s.Membership("9")
	assert.False(t, ok)
}

func TestGuildView_ChildrenOf(t *testing.T) {
	v := &GuildView{Channels: []Channel{
		{ID: "a", ParentID: "cat"},
		{ID: "b", ParentID: "other"},
		{ID: "c", ParentID: "cat"},
		{ID: "d"},
	}}

	children := v.ChildrenOf("cat")

	assert.Len(t, children, 2)
	assert.Equal(t, "a", children[0].ID)
	assert.Equal(t, "c", children[1].ID)
	assert.Empty(t, v.ChildrenOf("missing"))
}

func TestTemplateFromChannels_DropsIdentityAndPermissions(t *testing.T) {
	children := []Channel{{
		ID:               "111",
		Name:             "general",
		Kind:             ChannelKindText,
		ParentID:         "cat",
		Topic:            "hello",
		NSFW:             true,
		RateLimitPerUser: 5,
		Overwrites:       []PermissionOverwrite{{SubjectID: "r1", Allow: 1}},
	}}

	tpl := TemplateFromChannels("g1", "Team", children)

	assert.Equal(t, "g1", tpl.GuildID)
	assert.Equal(t, "Team", tpl.Category)
	assert.Equal(t, []TemplateChannel{{Name: "general", Type: ChannelKindText, Topic: "hello", NSFW: true, RateLimitPerUser: 5}}, tpl.Channels)
}

func TestChannelKind_Valid(t *testing.T) {
	assert.True(t, ChannelKindText.Valid())
	assert.True(t, ChannelKindCategory.Valid())
	assert.False(t, ChannelKind("forum").Valid())
}
