package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{"PORT", "LOG_LEVEL", "DISCORD_BOT_TOKEN", "DISCORD_PUBLIC_KEY",
	"FAIRY_URL", "ALTAR_URL", "ALTAR_POST_URL", "ALTAR_SIGNING_SECRET",
	"ALTAR_RELAY_TIMEOUT_MS", "DISPLAY_LIMIT", "NATS_URL", "REDIS_URL", "DATABASE_URL",
	"DISCORD_GUILD_ID", "ROLE_API_KEY", "WITCH_ROLE_ID", "FORTY_TOES_ROLE_ID", "FRACTURE_ROLE_ID"}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != 10000 {
		t.Errorf("expected port 10000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", cfg.LogLevel)
	}
	if cfg.FairyURL != "https://example.com/entry" {
		t.Errorf("expected default fairy url, got %s", cfg.FairyURL)
	}
	if cfg.AltarURL != "https://example.com/altar" {
		t.Errorf("expected default altar url, got %s", cfg.AltarURL)
	}
	if cfg.AltarPostURL != "" {
		t.Errorf("expected empty altar post url, got %s", cfg.AltarPostURL)
	}
	if cfg.AltarSigningSecret != "" {
		t.Errorf("expected empty signing secret, got %s", cfg.AltarSigningSecret)
	}
	if cfg.RelayTimeout != 6*time.Second {
		t.Errorf("expected 6s relay timeout, got %v", cfg.RelayTimeout)
	}
	if cfg.DisplayLimit != 1900 {
		t.Errorf("expected display limit 1900, got %d", cfg.DisplayLimit)
	}
	if cfg.StoreBackend() != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.StoreBackend())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token")
	t.Setenv("DISCORD_PUBLIC_KEY", "abcd")
	t.Setenv("ALTAR_POST_URL", "  https://altar.test/hook  ")
	t.Setenv("ALTAR_SIGNING_SECRET", "k")
	t.Setenv("ALTAR_RELAY_TIMEOUT_MS", "2500")
	t.Setenv("DISPLAY_LIMIT", "500")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.AltarPostURL != "https://altar.test/hook" {
		t.Errorf("expected trimmed altar post url, got %q", cfg.AltarPostURL)
	}
	if cfg.AltarSigningSecret != "k" {
		t.Errorf("expected signing secret k, got %s", cfg.AltarSigningSecret)
	}
	if cfg.RelayTimeout != 2500*time.Millisecond {
		t.Errorf("expected 2.5s relay timeout, got %v", cfg.RelayTimeout)
	}
	if cfg.DisplayLimit != 500 {
		t.Errorf("expected display limit 500, got %d", cfg.DisplayLimit)
	}
	if cfg.StoreBackend() != "redis" {
		t.Errorf("expected redis backend, got %s", cfg.StoreBackend())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "notanumber")

	cfg := Load()
	if cfg.Port != 10000 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Port)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearEnv(t)

	err := Load().Validate()
	if err == nil {
		t.Fatal("expected error without discord credentials")
	}
	for _, want := range []string{"DISCORD_BOT_TOKEN", "DISCORD_PUBLIC_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestStoreBackend_PostgresWins(t *testing.T) {
	cfg := Config{RedisURL: "redis://r", DatabaseURL: "postgres://p"}
	if cfg.StoreBackend() != "postgres" {
		t.Errorf("expected postgres backend, got %s", cfg.StoreBackend())
	}
}

func TestLoad_RoleSettings(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RolesEnabled() {
		t.Error("expected roles disabled without a guild id")
	}

	t.Setenv("DISCORD_GUILD_ID", "g1")
	t.Setenv("ROLE_API_KEY", "secret")
	t.Setenv("WITCH_ROLE_ID", "w")
	t.Setenv("FORTY_TOES_ROLE_ID", "ft")
	t.Setenv("FRACTURE_ROLE_ID", "f")

	cfg = Load()
	if !cfg.RolesEnabled() {
		t.Error("expected roles enabled with a guild id")
	}
	if cfg.RoleAPIKey != "secret" {
		t.Errorf("expected role api key secret, got %s", cfg.RoleAPIKey)
	}
	if cfg.WitchRoleID != "w" || cfg.FortyToesRoleID != "ft" || cfg.FractureRoleID != "f" {
		t.Errorf("expected role ids w/ft/f, got %s/%s/%s", cfg.WitchRoleID, cfg.FortyToesRoleID, cfg.FractureRoleID)
	}
}

func TestValidate_RoleKeyNeedsGuild(t *testing.T) {
	cfg := Config{
		DiscordBotToken:  "t",
		DiscordPublicKey: "k",
		DisplayLimit:     1900,
		RoleAPIKey:       "secret",
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DISCORD_GUILD_ID") {
		t.Errorf("expected guild id error, got %v", err)
	}

	cfg.DiscordGuildID = "g1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
