package workflow

import (
	"strings"

	"github.com/MikeSquared-Agency/viren/internal/oracle"
)

// StatusView is the read-only projection of a record.
type StatusView struct {
	First       bool        `json:"first"`
	Second      bool        `json:"second"`
	Surrendered bool        `json:"surrendered"`
	Path        oracle.Path `json:"path,omitempty"`
}

func (v StatusView) Render() string {
	path := "—"
	if v.Path != "" {
		path = string(v.Path)
	}
	return strings.Join([]string{
		"First: " + mark(v.First),
		"Second: " + mark(v.Second),
		"Third: " + mark(v.Surrendered),
		"Path: " + path,
	}, " | ")
}

func mark(done bool) string {
	if done {
		return "✅"
	}
	return "—"
}

const ellipsis = "..."

// Truncate caps s at limit characters, the trailing ellipsis included.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(r[:limit])
	}
	return string(r[:limit-len(ellipsis)]) + ellipsis
}
