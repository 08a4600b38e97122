package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAPIBase = "https://discord.com/api/v10"

// JSON error codes Discord returns alongside 404s.
const (
	codeUnknownMember = 10007
	codeUnknownRole   = 10011
)

var (
	ErrUnknownMember = errors.New("member not found")
	ErrUnknownRole   = errors.New("role not found")
)

// Role is the subset of a guild role the bot reads.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// REST calls the Discord HTTP API as the bot user.
type REST struct {
	token   string
	client  *http.Client
	apiBase string
}

func NewREST(token string) *REST {
	return &REST{
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiBase: defaultAPIBase,
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CurrentUser returns the bot's own account. It is the cheapest call that
// proves the token is accepted.
func (c *REST) CurrentUser(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/@me", "", &u); err != nil {
		return User{}, fmt.Errorf("current user: %w", err)
	}
	return u, nil
}

// GuildRoles lists every role in the guild.
func (c *REST) GuildRoles(ctx context.Context, guildID string) ([]Role, error) {
	var roles []Role
	path := "/guilds/" + url.PathEscape(guildID) + "/roles"
	if err := c.do(ctx, http.MethodGet, path, "", &roles); err != nil {
		return nil, fmt.Errorf("list guild roles: %w", err)
	}
	return roles, nil
}

// AddMemberRole grants roleID to the member. Granting a role the member
// already holds succeeds.
func (c *REST) AddMemberRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s",
		url.PathEscape(guildID), url.PathEscape(userID), url.PathEscape(roleID))
	if err := c.do(ctx, http.MethodPut, path, reason, nil); err != nil {
		return fmt.Errorf("add member role: %w", err)
	}
	return nil
}

func (c *REST) do(ctx context.Context, method, path, reason string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/MikeSquared-Agency/viren, 1.0)")
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, &apiErr)
		switch apiErr.Code {
		case codeUnknownMember:
			return ErrUnknownMember
		case codeUnknownRole:
			return ErrUnknownRole
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, apiErr.Message)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
