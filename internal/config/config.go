package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all rapport configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Bind        string   `mapstructure:"bind"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // empty resolves to store.DefaultDBPath()
}

// StoreConfig selects the backend: "sqlite" or "supabase".
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	SupabaseURL string `mapstructure:"supabase_url"`
	SupabaseKey string `mapstructure:"supabase_key"`
}

// String masks the Supabase key.
func (c StoreConfig) String() string {
	return fmt.Sprintf("StoreConfig{Driver:%s, SupabaseURL:%s, SupabaseKey:%s}", c.Driver, c.SupabaseURL, maskKey(c.SupabaseKey))
}

// AuthConfig controls how the caller's owner id is resolved. With a JWT
// secret set, requests need a bearer token signed with it. Without one the
// server runs single-user: the X-Rapport-User header or DevOwner is used.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	DevOwner  string `mapstructure:"dev_owner"`
}

type ScoringConfig struct {
	DefaultReplyLatencyMin float64 `mapstructure:"default_reply_latency_min"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			DevOwner: "local",
		},
		Scoring: ScoringConfig{
			DefaultReplyLatencyMin: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads ./.env, then ~/.rapport/config.toml or ./rapport.toml, then
// RAPPORT_* environment variables, layered over Default().
func Load() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, searchPaths bool) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	d := Default()
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.supabase_url", "")
	v.SetDefault("store.supabase_key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.dev_owner", d.Auth.DevOwner)
	v.SetDefault("scoring.default_reply_latency_min", d.Scoring.DefaultReplyLatencyMin)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	if searchPaths {
		v.SetConfigType("toml")
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(homeDir(), ".rapport"))
		if _, err := os.Stat("rapport.toml"); err == nil {
			v.SetConfigFile("rapport.toml")
		}
	}

	v.SetEnvPrefix("RAPPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names the hosted backend's own tooling uses.
	_ = v.BindEnv("store.supabase_url", "RAPPORT_STORE_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("store.supabase_key", "RAPPORT_STORE_SUPABASE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = v.BindEnv("auth.jwt_secret", "RAPPORT_AUTH_JWT_SECRET", "SUPABASE_JWT_SECRET")

	if searchPaths {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case "sqlite":
	case "supabase":
		if c.Store.SupabaseURL == "" || c.Store.SupabaseKey == "" {
			return fmt.Errorf("store.supabase_url and store.supabase_key are required for the supabase driver")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite or supabase, got %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" && c.Auth.DevOwner == "" {
		return fmt.Errorf("auth.dev_owner must be set when auth.jwt_secret is empty")
	}
	if c.Scoring.DefaultReplyLatencyMin < 0 {
		return fmt.Errorf("scoring.default_reply_latency_min must be >= 0")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

func maskKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
