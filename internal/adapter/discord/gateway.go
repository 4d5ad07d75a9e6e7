package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/platform/retry"
)

// Gateway is the persistent connection shared by every request.
type Gateway interface {
	Open() error
	Close() error
}

// NewSession creates a bot session with the state cache enabled. The
// connection is opened separately by OpenGateway.
func NewSession(botToken string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.StateEnabled = true
	s.ShouldRetryOnRateLimit = true
	return s, nil
}

// GatewayPolicy is the retry policy for opening the gateway at startup.
func GatewayPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:      5,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
		RateLimitBackoff: 15 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Discord gateway open failed, retrying", "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
		},
	}
}

// OpenGateway opens the gateway connection, retrying transient failures.
func OpenGateway(ctx context.Context, gw Gateway, policy retry.Policy) error {
	if err := retry.DoVoid(ctx, policy, Classify, gw.Open); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	slog.Info("Discord gateway connected")
	return nil
}
