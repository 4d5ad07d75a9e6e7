package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/guildboard/internal/adapter/discord"
	"github.com/pscheid92/guildboard/internal/adapter/filestore"
	"github.com/pscheid92/guildboard/internal/adapter/httpserver"
	"github.com/pscheid92/guildboard/internal/adapter/metrics"
	"github.com/pscheid92/guildboard/internal/adapter/redis"
	"github.com/pscheid92/guildboard/internal/app"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/pscheid92/guildboard/internal/platform/config"
	"github.com/pscheid92/guildboard/internal/platform/crypto"
	"github.com/pscheid92/guildboard/internal/platform/i18n"
	"github.com/pscheid92/guildboard/internal/platform/logging"
	"github.com/pscheid92/guildboard/internal/platform/version"
	"github.com/pscheid92/guildboard/internal/session"
)

const (
	gatewayOpenTimeout      = 2 * time.Minute
	sessionEvictInterval    = time.Minute
	shutdownTimeout         = 10 * time.Second
	redisConnectTimeout     = 10 * time.Second
	gatewayHealthCheckKey   = "discord_gateway"
	templatesHealthCheckKey = "template_store"
)

func runGracefulShutdown(srv *httpserver.Server, cleanups ...func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		for _, cleanup := range cleanups {
			cleanup()
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupGateway(cfg *config.Config) *discordgo.Session {
	dg, err := discord.NewSession(cfg.DiscordBotToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayOpenTimeout)
	defer cancel()
	if err := discord.OpenGateway(ctx, dg, discord.GatewayPolicy()); err != nil {
		slog.Error("Failed to open Discord gateway", "error", err)
		os.Exit(1)
	}
	return dg
}

// setupSessions returns the configured session backend, its health checks
// and a cleanup func.
func setupSessions(cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) (domain.SessionStore, []httpserver.HealthCheck, func()) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		defer cancel()

		client, err := redis.NewClient(ctx, cfg.RedisURL, metrics.NewRedisMetrics(reg))
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		checks := []httpserver.HealthCheck{{
			Name:    "redis",
			Startup: true,
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}}
		tokens, err := crypto.New(cfg.TokenEncryptionKey)
		if err != nil {
			slog.Error("Invalid token encryption key", "error", err)
			os.Exit(1)
		}
		if cfg.TokenEncryptionKey == "" {
			slog.Warn("TOKEN_ENCRYPTION_KEY not set, access tokens are stored unencrypted in Redis")
		}
		slog.Info("Using Redis session store")
		return redis.NewSessionStore(client, clock, tokens), checks, func() { _ = client.Close() }
	}

	store := session.NewMemoryStore(clock)
	stop := store.StartEvictionTimer(sessionEvictInterval)
	slog.Info("Using in-memory session store")
	return store, nil, stop
}

func gatewayHealthCheck(dg *discordgo.Session) httpserver.HealthCheck {
	return httpserver.HealthCheck{
		Name:    gatewayHealthCheckKey,
		Startup: true,
		Check: func(context.Context) error {
			dg.RLock()
			ready := dg.DataReady
			dg.RUnlock()
			if !ready {
				return errors.New("gateway not ready")
			}
			return nil
		},
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	reg := metrics.NewRegistry()

	locales, err := i18n.Load()
	if err != nil {
		slog.Error("Failed to load locale catalogs", "error", err)
		os.Exit(1)
	}

	dg := setupGateway(cfg)
	client := discord.NewClient(dg, metrics.NewDiscordMetrics(reg), cfg.DiscordAPITimeout)
	directory := discord.NewDirectory(client, dg.State)
	manager := discord.NewManager(client)

	templates := filestore.NewTemplateRepo(cfg.TemplatesDir)
	slog.Info("Template directory configured", "dir", templates.Dir())

	sessions, sessionChecks, closeSessions := setupSessions(cfg, reg, clock)

	executor := app.NewExecutor(directory, manager, templates, metrics.NewActionMetrics(reg), clock, cfg.DiscordAPITimeout)

	healthChecks := append([]httpserver.HealthCheck{
		gatewayHealthCheck(dg),
		{Name: templatesHealthCheckKey, Check: templates.Ping},
	}, sessionChecks...)

	srv, err := httpserver.NewServer(cfg, httpserver.Dependencies{
		Actions:        executor,
		Sessions:       sessions,
		OAuth:          discord.NewOAuth(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI),
		Bot:            manager,
		Locales:        locales,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
		HealthChecks:   healthChecks,
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	closeGateway := func() {
		if err := dg.Close(); err != nil {
			slog.Error("Failed to close Discord gateway", "error", err)
		}
	}
	done := runGracefulShutdown(srv, closeSessions, closeGateway)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
