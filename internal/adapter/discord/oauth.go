package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/domain"
	"golang.org/x/oauth2"
)

// Endpoint is Discord's OAuth2 endpoint. Discord expects client
// credentials in the form body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Scopes requested at login.
var Scopes = []string{"identify", "guilds"}

// Identity is the authenticated user returned by a code exchange.
type Identity struct {
	UserID      string
	Username    string
	AccessToken string
	Guilds      []domain.GuildMembership
}

// UserAPI is the part of a bearer-token session used to read the user.
type UserAPI interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserGuilds(limit int, beforeID, afterID string, withCounts bool, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
}

// OAuth runs the authorization code flow against Discord.
type OAuth struct {
	config  *oauth2.Config
	userAPI func(accessToken string) (UserAPI, error)
}

func NewOAuth(clientID, clientSecret, redirectURI string) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     Endpoint,
			Scopes:       Scopes,
		},
		userAPI: bearerSession,
	}
}

func bearerSession(accessToken string) (UserAPI, error) {
	s, err := discordgo.New("Bearer " + accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create user session: %w", err)
	}
	return s, nil
}

// AuthCodeURL returns the authorize redirect for state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades code for a token and loads the user and their guild
// memberships.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response without access token")
	}

	api, err := o.userAPI(token.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := api.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	guilds, err := fetchUserGuilds(ctx, api)
	if err != nil {
		return nil, err
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	return &Identity{
		UserID:      user.ID,
		Username:    name,
		AccessToken: token.AccessToken,
		Guilds:      guilds,
	}, nil
}

func fetchUserGuilds(ctx context.Context, api UserAPI) ([]domain.GuildMembership, error) {
	var out []domain.GuildMembership
	after := ""
	for {
		page, err := api.UserGuilds(userGuildsPageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch user guilds: %w", err)
		}
		for _, g := range page {
			out = append(out, domain.GuildMembership{
				ID:          g.ID,
				Name:        g.Name,
				Icon:        g.Icon,
				Owner:       g.Owner,
				Permissions: g.Permissions,
			})
		}
		if len(page) < userGuildsPageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}
