package domain

import "context"

// Template is a structural snapshot of a category's channel layout. It never
// carries permission overwrites or channel IDs.
type Template struct {
	GuildID  string            `json:"guildId" yaml:"guildId"`
	Category string            `json:"category" yaml:"category"`
	Channels []TemplateChannel `json:"channels" yaml:"channels"`
}

type TemplateChannel struct {
	Name             string      `json:"name" yaml:"name"`
	Type             ChannelKind `json:"type" yaml:"type"`
	Topic            string      `json:"topic,omitempty" yaml:"topic,omitempty"`
	NSFW             bool        `json:"nsfw" yaml:"nsfw"`
	RateLimitPerUser int         `json:"rateLimitPerUser" yaml:"rateLimitPerUser"`
}

// TemplateFromChannels builds a template from a category's direct children.
func TemplateFromChannels(guildID, category string, children []Channel) *Template {
	tpl := &Template{
		GuildID:  guildID,
		Category: category,
		Channels: make([]TemplateChannel, 0, len(children)),
	}
	for _, c := range children {
		tpl.Channels = append(tpl.Channels, TemplateChannel{
			Name:             c.Name,
			Type:             c.Kind,
			Topic:            c.Topic,
			NSFW:             c.NSFW,
			RateLimitPerUser: c.RateLimitPerUser,
		})
	}
	return tpl
}

// TemplateRepository persists templates keyed by category name. Save
// overwrites any existing template with the same name.
type TemplateRepository interface {
	Save(ctx context.Context, tpl *Template) error
	Load(ctx context.Context, name string) (*Template, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}
