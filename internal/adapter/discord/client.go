package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/adapter/metrics"
	"github.com/pscheid92/guildboard/internal/platform/retry"
	"github.com/sony/gobreaker"
)

// RESTClient is the part of *discordgo.Session this package calls.
type RESTClient interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	UserGuilds(limit int, beforeID, afterID string, withCounts bool, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
}

var _ RESTClient = (*discordgo.Session)(nil)

// Client runs REST calls with a timeout, behind a circuit breaker.
type Client struct {
	rest    RESTClient
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.DiscordMetrics
	timeout time.Duration
}

// NewClient wraps rest. The breaker opens at a 60% failure rate over at
// least 5 requests in a 10s window and half-opens after 30s. Requests
// Discord rejected with a 4xx do not count as failures.
func NewClient(rest RESTClient, m *metrics.DiscordMetrics, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "discord",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || Classify(err) == retry.Stop
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.SetBreakerState(to.String())
		},
	}

	return &Client{
		rest:    rest,
		breaker: gobreaker.NewCircuitBreaker(settings),
		metrics: m,
		timeout: timeout,
	}
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func call[T any](ctx context.Context, c *Client, operation string, fn func(opts ...discordgo.RequestOption) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return fn(discordgo.WithContext(ctx))
	})
	c.metrics.RequestsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
	c.metrics.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	var zero T
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", operation, res)
	}
	return out, nil
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
