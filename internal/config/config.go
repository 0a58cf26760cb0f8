// Package config loads and validates registry configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sync    SyncConfig    `mapstructure:"sync"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	CORS    CORSConfig    `mapstructure:"cors"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// SyncConfig governs the crawl-and-verify sweep.
type SyncConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Domains         []string `mapstructure:"domains"`
	IntervalMinutes int      `mapstructure:"interval_minutes"`
	UserAgent       string   `mapstructure:"user_agent"`
	RecordPath      string   `mapstructure:"record_path"`
	Scheme          string   `mapstructure:"scheme"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// GitHubConfig identifies the records repository and its credential.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
	RecordsDir string `mapstructure:"records_dir"`
}

// CORSConfig is the cross-origin contract for the submission endpoint.
// Origins matching AllowedOrigins exactly, or prefixed by one of
// LocalPrefixes, are echoed back; everything else gets DefaultOrigin.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LocalPrefixes  []string `mapstructure:"local_prefixes"`
	DefaultOrigin  string   `mapstructure:"default_origin"`
}

// DBConfig controls the directory store connection.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for accepted-record notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OBR")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.interval_minutes", 60)
	v.SetDefault("sync.user_agent", "NoNonsenseDirectoryBot/1.0")
	v.SetDefault("sync.record_path", "/obr-business.json")
	v.SetDefault("sync.scheme", "https")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("github.owner", "openbusinessrecord")
	v.SetDefault("github.repo", "openbusinessrecord.github.io")
	v.SetDefault("github.base_branch", "main")
	v.SetDefault("github.records_dir", "records")
	v.SetDefault("cors.allowed_origins", []string{
		"https://openbusinessrecord.github.io",
		"https://openbusinessrecord.org",
		"http://localhost:3000",
		"http://127.0.0.1:5500",
	})
	v.SetDefault("cors.local_prefixes", []string{
		"http://localhost",
		"http://127.0.0.1",
	})
	v.SetDefault("cors.default_origin", "https://openbusinessrecord.org")
	v.SetDefault("db.table", "directory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return fmt.Errorf("github.owner and github.repo must be set")
	}
	if c.CORS.DefaultOrigin == "" {
		return fmt.Errorf("cors.default_origin must be set")
	}
	if c.Sync.Enabled {
		if len(c.Sync.Domains) == 0 {
			return fmt.Errorf("sync.domains must be set when sync is enabled")
		}
		if c.Sync.IntervalMinutes <= 0 {
			return fmt.Errorf("sync.interval_minutes must be > 0 when sync is enabled")
		}
	}
	return nil
}

// RequestTimeout converts the server timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// HTTPTimeout converts the outbound client timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SyncInterval converts the sweep interval config into a duration.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}
