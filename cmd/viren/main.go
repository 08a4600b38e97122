package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/api"
	"github.com/MikeSquared-Agency/viren/internal/config"
	"github.com/MikeSquared-Agency/viren/internal/discord"
	"github.com/MikeSquared-Agency/viren/internal/oracle"
	"github.com/MikeSquared-Agency/viren/internal/relay"
	"github.com/MikeSquared-Agency/viren/internal/roles"
	"github.com/MikeSquared-Agency/viren/internal/session"
	"github.com/MikeSquared-Agency/viren/internal/workflow"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	key, err := discord.ParsePublicKey(cfg.DiscordPublicKey)
	if err != nil {
		slog.Error("invalid DISCORD_PUBLIC_KEY", "error", err)
		os.Exit(1)
	}

	slog.Info("viren starting",
		"port", cfg.Port,
		"store", cfg.StoreBackend(),
		"relay_webhook", cfg.AltarPostURL != "",
		"relay_nats", cfg.NatsURL != "",
		"relay_timeout", cfg.RelayTimeout,
		"roles", cfg.RolesEnabled(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Open the session store.
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session store", "backend", cfg.StoreBackend(), "error", err)
		os.Exit(1)
	}
	slog.Info("session store ready", "backend", cfg.StoreBackend())

	// Step 2: Build relay sinks. Either, both or neither may be configured.
	var sinks []relay.Sink
	if cfg.AltarPostURL != "" {
		sinks = append(sinks, relay.NewWebhook(cfg.AltarPostURL, cfg.RelayTimeout))
	}
	var bus *relay.Bus
	if cfg.NatsURL != "" {
		bus, err = relay.NewBus(ctx, cfg.NatsURL)
		if err != nil {
			slog.Warn("NATS relay disabled", "error", err)
		} else {
			sinks = append(sinks, bus)
		}
	}
	relayClient := relay.NewClient(relay.Config{
		Secret:  cfg.AltarSigningSecret,
		Timeout: cfg.RelayTimeout,
	}, sinks...)
	if relayClient.Enabled() && !relayClient.Signed() {
		slog.Warn("relay is enabled without ALTAR_SIGNING_SECRET; deliveries are unsigned")
	}

	// Step 3: Check the bot token and set up path roles.
	rest := discord.NewREST(cfg.DiscordBotToken)
	if me, err := rest.CurrentUser(ctx); err != nil {
		slog.Warn("could not confirm bot token", "error", err)
	} else {
		slog.Info("bot identity confirmed", "bot", me.String(), "bot_id", me.ID)
	}

	opts := workflow.Options{
		DisplayLimit: cfg.DisplayLimit,
		FairyURL:     cfg.FairyURL,
		AltarURL:     cfg.AltarURL,
	}
	var (
		assigner *roles.Assigner
		roleAPI  *api.RoleAPI
	)
	if cfg.RolesEnabled() {
		assigner = roles.New(rest, roles.Config{
			GuildID: cfg.DiscordGuildID,
			PathRoles: map[oracle.Path]string{
				oracle.Witch:     cfg.WitchRoleID,
				oracle.FortyToes: cfg.FortyToesRoleID,
				oracle.Fracture:  cfg.FractureRoleID,
			},
		})
		opts.Roles = assigner
		if cfg.RoleAPIKey != "" {
			roleAPI = &api.RoleAPI{Key: cfg.RoleAPIKey, Assigner: assigner}
		}
		slog.Info("path roles enabled", "guild_id", cfg.DiscordGuildID, "assign_role_endpoint", roleAPI != nil)
	}

	// Step 4: Wire the rite and the HTTP surface.
	ctrl := workflow.New(store, relayClient, opts)
	handler := discord.NewHandler(ctrl, key)

	srv := api.NewServer(cfg.Port, api.Status{
		RelayEnabled: relayClient.Enabled(),
		RelaySigned:  relayClient.Signed(),
		StoreBackend: cfg.StoreBackend(),
		RolesEnabled: cfg.RolesEnabled(),
	}, handler, roleAPI)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("viren ready", "port", cfg.Port)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	cancel()
	relayClient.Wait()
	if assigner != nil {
		assigner.Wait()
	}
	if err := store.Close(); err != nil {
		slog.Warn("closing session store", "error", err)
	}
	if bus != nil {
		bus.Close()
	}
	slog.Info("viren stopped")
}

func openStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	switch cfg.StoreBackend() {
	case "postgres":
		s, err := session.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "redis":
		return session.NewRedisStore(ctx, cfg.RedisURL)
	default:
		return session.NewMemoryStore(), nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
