package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `yaml:"is_prod"`

	// Bot event stream
	Stream StreamConfig `yaml:"stream"`

	// Alert handling
	Alerts AlertsConfig `yaml:"alerts"`

	// Outbound command queue
	Outbox OutboxConfig `yaml:"outbox"`

	// Durable local preferences
	Prefs PrefsConfig `yaml:"prefs"`

	// Telegram push for high priority alerts
	Telegram TelegramConfig `yaml:"telegram"`

	// Discord push for high priority alerts
	Discord DiscordConfig `yaml:"discord"`

	// Local API / status server
	APIServer APIServerConfig `yaml:"api_server"`
}

// StreamConfig holds the bot event stream connection configuration.
type StreamConfig struct {
	// URL is the WebSocket endpoint of the trading bot, e.g.
	// ws://localhost:5000/ws. Fixed at startup; no runtime reconfiguration.
	URL string `yaml:"url"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`

	// Reconnect backoff: delay is min(ReconnectBaseDelay << attempt, ReconnectMaxDelay).
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// AlertsConfig holds alert subsystem configuration.
type AlertsConfig struct {
	Capacity    int           `yaml:"capacity"`     // bounded alert list size
	DedupWindow time.Duration `yaml:"dedup_window"` // identical (type,message) coalescing window
	SoundOnBoot bool          `yaml:"sound_on_boot"` // default for the sound preference before prefs load
}

// OutboxConfig holds outbound queue configuration.
type OutboxConfig struct {
	// Capacity caps the number of commands buffered while disconnected.
	// Oldest entries are dropped on overflow.
	Capacity int `yaml:"capacity"`
}

// PrefsConfig holds durable preference storage configuration.
type PrefsConfig struct {
	Path string `yaml:"path"` // bbolt database file
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `yaml:"-"` // Excluded - env var only
	ProdChatID string `yaml:"prod_chat_id"`
	BetaChatID string `yaml:"beta_chat_id"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `yaml:"-"` // Excluded - env var only
	ProdChannelID string `yaml:"prod_channel_id"`
	BetaChannelID string `yaml:"beta_channel_id"`
}

// APIServerConfig holds the local API server configuration.
type APIServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		Stream: StreamConfig{
			URL:                "ws://localhost:5000/ws",
			HeartbeatInterval:  30 * time.Second,
			ConnectTimeout:     10 * time.Second,
			ReconnectBaseDelay: 1 * time.Second,
			ReconnectMaxDelay:  30 * time.Second,
		},
		Alerts: AlertsConfig{
			Capacity:    100,
			DedupWindow: 5 * time.Second,
			SoundOnBoot: true,
		},
		Outbox: OutboxConfig{
			Capacity: 1000,
		},
		Prefs: PrefsConfig{
			Path: "botwatch.db",
		},
		Telegram: TelegramConfig{},
		Discord:  DiscordConfig{},
		APIServer: APIServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Stream: StreamConfig{
			URL:                envString("BOT_STREAM_URL", "ws://localhost:5000/ws"),
			HeartbeatInterval:  envDuration("STREAM_HEARTBEAT_INTERVAL", 30*time.Second),
			ConnectTimeout:     envDuration("STREAM_CONNECT_TIMEOUT", 10*time.Second),
			ReconnectBaseDelay: envDuration("STREAM_RECONNECT_BASE_DELAY", 1*time.Second),
			ReconnectMaxDelay:  envDuration("STREAM_RECONNECT_MAX_DELAY", 30*time.Second),
		},

		Alerts: AlertsConfig{
			Capacity:    envInt("ALERTS_CAPACITY", 100),
			DedupWindow: envDuration("ALERTS_DEDUP_WINDOW", 5*time.Second),
			SoundOnBoot: envBoolDefault("ALERTS_SOUND_ON_BOOT", true),
		},

		Outbox: OutboxConfig{
			Capacity: envInt("OUTBOX_CAPACITY", 1000),
		},

		Prefs: PrefsConfig{
			Path: envString("PREFS_DB_PATH", "botwatch.db"),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		APIServer: APIServerConfig{
			Enabled: envBoolDefault("API_SERVER_ENABLED", true),
			Port:    envInt("API_SERVER_PORT", 8080),
		},
	}
}

// LoadFile overlays a YAML file onto base. Fields absent from the file keep
// their base values; tokens are never read from the file.
func LoadFile(path string, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Clone creates a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Stream.URL == "" {
		return fmt.Errorf("stream url cannot be empty")
	}
	if !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
		return fmt.Errorf("stream url must use ws:// or wss:// scheme, got %q", c.Stream.URL)
	}
	if c.Stream.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.Stream.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("reconnect base delay must be positive")
	}
	if c.Stream.ReconnectMaxDelay < c.Stream.ReconnectBaseDelay {
		return fmt.Errorf("reconnect max delay must be >= base delay")
	}
	if c.Alerts.Capacity <= 0 {
		return fmt.Errorf("alert capacity must be positive")
	}
	if c.Outbox.Capacity <= 0 {
		return fmt.Errorf("outbox capacity must be positive")
	}
	if c.Prefs.Path == "" {
		return fmt.Errorf("prefs db path cannot be empty")
	}
	if c.APIServer.Enabled && (c.APIServer.Port <= 0 || c.APIServer.Port > 65535) {
		return fmt.Errorf("invalid api server port: %d", c.APIServer.Port)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
