package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Directory DirectoryConfig `json:"directory"`

	// Admins is the static operator allow-list. Required, non-empty.
	Admins []int64 `json:"admins"`

	Broadcast BroadcastConfig `json:"broadcast"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Digest    *DigestConfig   `json:"digest,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// DirectoryConfig points at the MTProto gateway sidecar used to resolve
// chats and page through their membership. The Bot API alone cannot
// enumerate group members, so extraction goes through this collaborator.
type DirectoryConfig struct {
	BaseURL string `json:"base_url"`
	// Timeout is a Go duration string applied per gateway request.
	Timeout string `json:"timeout,omitempty"`
}

type BroadcastConfig struct {
	// MessagesPerMinute caps the send rate. 0 (or omitted) = unlimited.
	MessagesPerMinute int `json:"messages_per_minute,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional campaign-history persistence layer.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "" or "none": disabled
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// DigestConfig controls the scheduled statistics digest sent to admins.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a standard 5-field cron expression. Default "0 9 * * *".
	Schedule string `json:"schedule,omitempty"`
}

// Validate checks the invariants the process cannot run without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if len(c.Admins) == 0 {
		return errors.New("admins must list at least one operator id")
	}
	if c.Broadcast.MessagesPerMinute < 0 {
		return fmt.Errorf("broadcast.messages_per_minute must be >= 0, got %d", c.Broadcast.MessagesPerMinute)
	}
	for _, raw := range []struct {
		name, val string
	}{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"directory.timeout", c.Directory.Timeout},
	} {
		if _, err := ParseDuration(raw.val, 0); err != nil {
			return fmt.Errorf("%s: %w", raw.name, err)
		}
	}
	if c.Storage != nil && c.Storage.BusyTimeout != "" {
		if _, err := ParseDuration(c.Storage.BusyTimeout, 0); err != nil {
			return fmt.Errorf("storage.busy_timeout: %w", err)
		}
	}
	return nil
}

// ParseDuration parses a Go duration string, returning def for empty input.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
