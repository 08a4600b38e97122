// Package roles grants seekers the guild role that matches their Path.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/viren/internal/discord"
	"github.com/MikeSquared-Agency/viren/internal/oracle"
)

const (
	DefaultReason  = "Coven Zero — Third Sacrifice path choice"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrRoleNotFound   = errors.New("roleId not found/unspecified")
	ErrMemberNotFound = errors.New("member not found")
)

// Guild is the slice of the Discord API the assigner needs.
type Guild interface {
	GuildRoles(ctx context.Context, guildID string) ([]discord.Role, error)
	AddMemberRole(ctx context.Context, guildID, userID, roleID, reason string) error
}

type Config struct {
	GuildID string
	// PathRoles maps each Path to a configured role id. Paths without an id
	// are looked up by name among the guild's roles.
	PathRoles map[oracle.Path]string
	Timeout   time.Duration
}

type Assigner struct {
	guild     Guild
	guildID   string
	pathRoles map[oracle.Path]string
	timeout   time.Duration

	wg sync.WaitGroup
}

func New(g Guild, cfg Config) *Assigner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pathRoles := make(map[oracle.Path]string, len(cfg.PathRoles))
	for p, id := range cfg.PathRoles {
		if id != "" {
			pathRoles[p] = id
		}
	}
	return &Assigner{
		guild:     g,
		guildID:   cfg.GuildID,
		pathRoles: pathRoles,
		timeout:   timeout,
	}
}

// Resolve picks the role id to grant: an explicit roleID wins, then the
// configured id for a Path name, then a guild role with the same name
// ignoring case.
func (a *Assigner) Resolve(ctx context.Context, roleName, roleID string) (string, error) {
	if roleID != "" {
		return roleID, nil
	}
	if roleName == "" {
		return "", ErrRoleNotFound
	}
	if p := oracle.Path(roleName); p.Valid() {
		if id, ok := a.pathRoles[p]; ok {
			return id, nil
		}
	}

	roles, err := a.guild.GuildRoles(ctx, a.guildID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, roleName) {
			return r.ID, nil
		}
	}
	return "", ErrRoleNotFound
}

// Assign grants the resolved role to userID and returns its id.
func (a *Assigner) Assign(ctx context.Context, userID, roleName, roleID, reason string) (string, error) {
	id, err := a.Resolve(ctx, roleName, roleID)
	if err != nil {
		return "", err
	}
	if reason == "" {
		reason = DefaultReason
	}

	err = a.guild.AddMemberRole(ctx, a.guildID, userID, id, reason)
	switch {
	case errors.Is(err, discord.ErrUnknownMember):
		return "", ErrMemberNotFound
	case errors.Is(err, discord.ErrUnknownRole):
		return "", ErrRoleNotFound
	case err != nil:
		return "", fmt.Errorf("assign role %s to %s: %w", id, userID, err)
	}
	return id, nil
}

// AssignPath grants the role for p in the background. Only paths with a
// configured role id are granted; failures are logged, never returned.
func (a *Assigner) AssignPath(userID string, p oracle.Path) {
	id, ok := a.pathRoles[p]
	if !ok {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if _, err := a.Assign(ctx, userID, string(p), id, ""); err != nil {
			slog.Warn("path role not granted", "user_id", userID, "path", p, "role_id", id, "error", err)
			return
		}
		slog.Info("path role granted", "user_id", userID, "path", p, "role_id", id)
	}()
}

// Wait blocks until background grants finish.
func (a *Assigner) Wait() {
	a.wg.Wait()
}
