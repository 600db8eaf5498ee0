package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App    AppConfig
	Relay  RelayConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Client ClientConfig
	Log    LogConfig
}

// AppConfig holds application-wide settings
type AppConfig struct {
	Name string
	Env  string
}

// RelayConfig holds relay server settings
type RelayConfig struct {
	Port           string
	MaxSessions    int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// RedisConfig holds Redis bridge connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// AuthConfig holds relay token settings
type AuthConfig struct {
	Secret string
	Issuer string
}

// ClientConfig holds settings for the sync client
type ClientConfig struct {
	BaseURL  string
	RelayURL string
	Token    string
	PageSize int
	Timeout  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load reads configuration from (highest to lowest priority):
// 1. Environment variables with ADMINSYNC_ prefix (e.g., ADMINSYNC_REDIS_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ADMINSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Relay: RelayConfig{
			Port:           v.GetString("relay.port"),
			MaxSessions:    v.GetInt("relay.max_sessions"),
			AllowedOrigins: v.GetStringSlice("relay.allowed_origins"),
			ReadTimeout:    v.GetDuration("relay.read_timeout"),
			WriteTimeout:   v.GetDuration("relay.write_timeout"),
			IdleTimeout:    v.GetDuration("relay.idle_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("auth.secret"),
			Issuer: v.GetString("auth.issuer"),
		},
		Client: ClientConfig{
			BaseURL:  v.GetString("client.base_url"),
			RelayURL: v.GetString("client.relay_url"),
			Token:    v.GetString("client.token"),
			PageSize: v.GetInt("client.page_size"),
			Timeout:  v.GetDuration("client.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "adminsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Relay.Port == "" {
		cfg.Relay.Port = "5001"
	}
	if cfg.Relay.MaxSessions == 0 {
		cfg.Relay.MaxSessions = 256
	}
	if cfg.Relay.ReadTimeout == 0 {
		cfg.Relay.ReadTimeout = 15 * time.Second
	}
	if cfg.Relay.WriteTimeout == 0 {
		cfg.Relay.WriteTimeout = 15 * time.Second
	}
	if cfg.Relay.IdleTimeout == 0 {
		cfg.Relay.IdleTimeout = 120 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "adminsync:relay"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "adminsync-relay"
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = "http://localhost:5000/api"
	}
	if cfg.Client.RelayURL == "" {
		cfg.Client.RelayURL = "ws://localhost:5001/ws"
	}
	if cfg.Client.PageSize == 0 {
		cfg.Client.PageSize = 10
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

func (c *Config) validate() error {
	if c.Relay.MaxSessions < 0 {
		return fmt.Errorf("relay.max_sessions cannot be negative")
	}
	if c.Client.PageSize <= 0 {
		return fmt.Errorf("client.page_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required in production")
		}
		if len(c.Auth.Secret) < 32 {
			return fmt.Errorf("auth.secret must be at least 32 characters in production")
		}
		for _, origin := range c.Relay.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("relay.allowed_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// Addr returns the listen address for the relay server
func (r *RelayConfig) Addr() string {
	return ":" + r.Port
}
