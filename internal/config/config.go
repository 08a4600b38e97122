package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               int
	LogLevel           string
	DiscordBotToken    string
	DiscordPublicKey   string
	FairyURL           string
	AltarURL           string
	AltarPostURL       string
	AltarSigningSecret string
	RelayTimeout       time.Duration
	DisplayLimit       int
	NatsURL            string
	RedisURL           string
	DatabaseURL        string

	// Role assignment is enabled by DiscordGuildID; the HTTP endpoint also
	// needs RoleAPIKey.
	DiscordGuildID  string
	RoleAPIKey      string
	WitchRoleID     string
	FortyToesRoleID string
	FractureRoleID  string
}

func Load() Config {
	return Config{
		Port:               envInt("PORT", 10000),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		DiscordBotToken:    envStr("DISCORD_BOT_TOKEN", ""),
		DiscordPublicKey:   envStr("DISCORD_PUBLIC_KEY", ""),
		FairyURL:           envStr("FAIRY_URL", "https://example.com/entry"),
		AltarURL:           envStr("ALTAR_URL", "https://example.com/altar"),
		AltarPostURL:       envStr("ALTAR_POST_URL", ""),
		AltarSigningSecret: envStr("ALTAR_SIGNING_SECRET", ""),
		RelayTimeout:       time.Duration(envInt("ALTAR_RELAY_TIMEOUT_MS", 6000)) * time.Millisecond,
		DisplayLimit:       envInt("DISPLAY_LIMIT", 1900),
		NatsURL:            envStr("NATS_URL", ""),
		RedisURL:           envStr("REDIS_URL", ""),
		DatabaseURL:        envStr("DATABASE_URL", ""),
		DiscordGuildID:     envStr("DISCORD_GUILD_ID", ""),
		RoleAPIKey:         envStr("ROLE_API_KEY", ""),
		WitchRoleID:        envStr("WITCH_ROLE_ID", ""),
		FortyToesRoleID:    envStr("FORTY_TOES_ROLE_ID", ""),
		FractureRoleID:     envStr("FRACTURE_ROLE_ID", ""),
	}
}

// Validate reports the settings the process cannot serve without.
func (c Config) Validate() error {
	var errs []error
	if c.DiscordBotToken == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
	}
	if c.DiscordPublicKey == "" {
		errs = append(errs, errors.New("DISCORD_PUBLIC_KEY is required"))
	}
	if c.RoleAPIKey != "" && c.DiscordGuildID == "" {
		errs = append(errs, errors.New("ROLE_API_KEY requires DISCORD_GUILD_ID"))
	}
	if c.DisplayLimit < 4 {
		errs = append(errs, errors.New("DISPLAY_LIMIT must be at least 4"))
	}
	return errors.Join(errs...)
}

// StoreBackend names the session backend selected by the connection settings.
func (c Config) StoreBackend() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.RedisURL != "":
		return "redis"
	default:
		return "memory"
	}
}

// RolesEnabled reports whether path roles can be granted.
func (c Config) RolesEnabled() bool {
	return c.DiscordGuildID != ""
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
