package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Stream.URL != "ws://localhost:5000/ws" {
		t.Errorf("expected default stream url, got %s", cfg.Stream.URL)
	}
	if cfg.Stream.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected 30s heartbeat, got %v", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Stream.ReconnectBaseDelay != 1*time.Second {
		t.Errorf("expected 1s base delay, got %v", cfg.Stream.ReconnectBaseDelay)
	}
	if cfg.Stream.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("expected 30s max delay, got %v", cfg.Stream.ReconnectMaxDelay)
	}
	if cfg.Alerts.Capacity != 100 {
		t.Errorf("expected alert capacity 100, got %d", cfg.Alerts.Capacity)
	}
	if cfg.Alerts.DedupWindow != 5*time.Second {
		t.Errorf("expected 5s dedup window, got %v", cfg.Alerts.DedupWindow)
	}
	if cfg.Outbox.Capacity != 1000 {
		t.Errorf("expected outbox capacity 1000, got %d", cfg.Outbox.Capacity)
	}
	if !cfg.APIServer.Enabled || cfg.APIServer.Port != 8080 {
		t.Errorf("expected api server enabled on 8080, got %+v", cfg.APIServer)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOT_STREAM_URL", "wss://bot.example.com/ws")
	t.Setenv("STREAM_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("ALERTS_CAPACITY", "50")
	t.Setenv("ALERTS_SOUND_ON_BOOT", "false")
	t.Setenv("API_SERVER_ENABLED", "no")

	cfg := Load()

	if cfg.Stream.URL != "wss://bot.example.com/ws" {
		t.Errorf("expected env stream url, got %s", cfg.Stream.URL)
	}
	if cfg.Stream.HeartbeatInterval != 10*time.Second {
		t.Errorf("expected 10s heartbeat, got %v", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Alerts.Capacity != 50 {
		t.Errorf("expected alert capacity 50, got %d", cfg.Alerts.Capacity)
	}
	if cfg.Alerts.SoundOnBoot {
		t.Error("expected sound on boot disabled")
	}
	if cfg.APIServer.Enabled {
		t.Error("expected api server disabled")
	}
}

func TestLoadEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("ALERTS_CAPACITY", "not-a-number")
	t.Setenv("STREAM_HEARTBEAT_INTERVAL", "soon")

	cfg := Load()

	if cfg.Alerts.Capacity != 100 {
		t.Errorf("expected fallback capacity 100, got %d", cfg.Alerts.Capacity)
	}
	if cfg.Stream.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected fallback heartbeat 30s, got %v", cfg.Stream.HeartbeatInterval)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botwatch.yaml")
	content := []byte(`
stream:
  url: wss://bot.internal/ws
  heartbeat_interval: 15s
alerts:
  capacity: 25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, Defaults())
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Stream.URL != "wss://bot.internal/ws" {
		t.Errorf("expected file stream url, got %s", cfg.Stream.URL)
	}
	if cfg.Stream.HeartbeatInterval != 15*time.Second {
		t.Errorf("expected 15s heartbeat from file, got %v", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Alerts.Capacity != 25 {
		t.Errorf("expected capacity 25 from file, got %d", cfg.Alerts.Capacity)
	}
	// Fields absent from the file keep base values.
	if cfg.Outbox.Capacity != 1000 {
		t.Errorf("expected base outbox capacity preserved, got %d", cfg.Outbox.Capacity)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty url", func(c *Config) { c.Stream.URL = "" }, true},
		{"http url", func(c *Config) { c.Stream.URL = "http://bot/ws" }, true},
		{"zero heartbeat", func(c *Config) { c.Stream.HeartbeatInterval = 0 }, true},
		{"max below base", func(c *Config) { c.Stream.ReconnectMaxDelay = 500 * time.Millisecond }, true},
		{"zero alert capacity", func(c *Config) { c.Alerts.Capacity = 0 }, true},
		{"zero outbox capacity", func(c *Config) { c.Outbox.Capacity = 0 }, true},
		{"empty prefs path", func(c *Config) { c.Prefs.Path = "" }, true},
		{"bad port", func(c *Config) { c.APIServer.Port = -1 }, true},
		{"bad port but server disabled", func(c *Config) { c.APIServer.Enabled = false; c.APIServer.Port = -1 }, false},
	}

	for _, tt := range tests {
		cfg := Defaults()
		tt.mutate(cfg)
		err := cfg.Validate()
		if tt.wantErr && err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
	}
}
