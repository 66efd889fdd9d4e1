package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
directory:
  base_url: "http://127.0.0.1:8089"
  timeout: "30s"
admins: [42, 43]
broadcast:
  messages_per_minute: 30
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: none
  path: ""
`

func TestLoadValidYAML(t *testing.T) {
	t.Parallel()
	mgr := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[0] != 42 {
		t.Fatalf("admins = %v", cfg.Admins)
	}
	if cfg.Broadcast.MessagesPerMinute != 30 {
		t.Fatalf("messages_per_minute = %d", cfg.Broadcast.MessagesPerMinute)
	}
	if got := mgr.Get(); got != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	body := strings.Replace(validYAML, "broadcast:", "broadcsat:", 1)
	mgr := NewManager(writeConfig(t, "config.yaml", body))
	if _, err := mgr.Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Telegram:  TelegramConfig{Token: "t"},
			Directory: DirectoryConfig{BaseURL: "http://localhost"},
			Admins:    []int64{1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = " " },
			wantErr: "telegram.token",
		},
		{
			name:    "empty allow-list",
			mutate:  func(c *Config) { c.Admins = nil },
			wantErr: "admins",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Broadcast.MessagesPerMinute = -1 },
			wantErr: "messages_per_minute",
		},
		{
			name:    "bad duration",
			mutate:  func(c *Config) { c.Telegram.PollTimeout = "soon" },
			wantErr: "poll_timeout",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		def     time.Duration
		want    time.Duration
		wantErr bool
	}{
		{in: "", def: 5 * time.Second, want: 5 * time.Second},
		{in: "2m", want: 2 * time.Minute},
		{in: "  500ms ", want: 500 * time.Millisecond},
		{in: "-1s", wantErr: true},
		{in: "bogus", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in, tt.def)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDuration(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDuration(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONConfigAccepted(t *testing.T) {
	t.Parallel()
	body := `{
  "telegram": {"token": "123:abc"},
  "directory": {"base_url": "http://localhost:8089"},
  "admins": [42],
  "broadcast": {},
  "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}}
}`
	mgr := NewManager(writeConfig(t, "config.json", body))
	cfg, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Broadcast.MessagesPerMinute != 0 {
		t.Fatalf("messages_per_minute = %d, want 0 (unlimited default)", cfg.Broadcast.MessagesPerMinute)
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	mgr := NewManager("unused")
	ch := mgr.Subscribe(1)
	defer mgr.Unsubscribe(ch)

	cfg := &Config{}
	mgr.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber got a different config pointer")
		}
	default:
		t.Fatal("published config not delivered")
	}

	// A full buffer drops the stale item, not the fresh one.
	first, second := &Config{}, &Config{}
	mgr.publish(first)
	mgr.publish(second)
	if got := <-ch; got != second {
		t.Fatal("subscriber should see the newest config")
	}
}
