// Package config loads and validates relay configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Source   SourceConfig   `mapstructure:"source"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Poll     PollConfig     `mapstructure:"poll"`
	State    StateConfig    `mapstructure:"state"`
	Server   ServerConfig   `mapstructure:"server"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Events   EventsConfig   `mapstructure:"events"`
	Blobs    BlobsConfig    `mapstructure:"blobs"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TelegramConfig holds bot credentials and command-surface settings.
type TelegramConfig struct {
	Token                string  `mapstructure:"token"`
	DefaultChannel       string  `mapstructure:"default_channel"`
	UpdateTimeoutSeconds int     `mapstructure:"update_timeout_seconds"`
	Admins               []int64 `mapstructure:"admins"`
}

// SourceConfig points at the syndication endpoint used for timeline probes.
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// PollConfig governs the watcher cadence.
type PollConfig struct {
	FloorSeconds int `mapstructure:"floor_seconds"`
}

// StateConfig sets where the JSON state documents live.
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the operational HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ArchiveConfig selects the delivery-history backend.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// EventsConfig selects the delivery-event publisher.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// BlobsConfig selects the raw-payload blob backend.
type BlobsConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a meaningful default still get an empty one so viper
	// enumerates them during Unmarshal; AutomaticEnv is only consulted
	// for keys viper already knows about.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.default_channel", "")
	v.SetDefault("telegram.admins", []int64{})
	v.SetDefault("archive.dsn", "")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic_id", "")
	v.SetDefault("blobs.bucket", "")
	v.SetDefault("telegram.update_timeout_seconds", 30)
	v.SetDefault("source.base_url", "https://syndication.twitter.com")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (compatible; tweetrelay/1.0)")
	v.SetDefault("source.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("poll.floor_seconds", 30)
	v.SetDefault("state.dir", "data")
	v.SetDefault("server.port", 8080)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.table", "deliveries")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("blobs.provider", "noop")
	v.SetDefault("blobs.prefix", "posts")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Poll.FloorSeconds <= 0 {
		return fmt.Errorf("poll.floor_seconds must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Archive.Provider {
	case "noop":
	case "postgres":
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive.dsn must be set when archive.provider is postgres")
		}
	default:
		return fmt.Errorf("archive.provider must be noop or postgres")
	}
	switch c.Events.Provider {
	case "noop":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("events.provider must be noop or pubsub")
	}
	switch c.Blobs.Provider {
	case "noop":
	case "gcs":
		if c.Blobs.Bucket == "" {
			return fmt.Errorf("blobs.bucket must be set when blobs.provider is gcs")
		}
	default:
		return fmt.Errorf("blobs.provider must be noop or gcs")
	}
	return nil
}

// SourceTimeout converts the probe timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// PollFloor converts the poll floor into a duration.
func (c Config) PollFloor() time.Duration {
	return time.Duration(c.Poll.FloorSeconds) * time.Second
}
