package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig HTTP listener settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// SessionConfig session lifetime settings.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`            // absolute expiry from creation, not sliding
	SweepInterval time.Duration `yaml:"sweep_interval"` // background eviction cadence
}

// UpstreamConfig external Polymarket endpoints.
type UpstreamConfig struct {
	ClobHost   string `yaml:"clob_host"`
	GammaHost  string `yaml:"gamma_host"`
	PolygonRPC string `yaml:"polygon_rpc"`
	ChainID    int64  `yaml:"chain_id"`
}

// RedisConfig optional session mirror. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`

	// DegradedMode keeps a session usable when upstream credential
	// derivation fails at connect time. Explicit policy switch, never
	// a silent fallback.
	DegradedMode bool `yaml:"degraded_mode"`

	// SecretDBPath is the Badger secret store location (server secret,
	// operator key material).
	SecretDBPath string `yaml:"secret_db_path"`

	// ConnectRatePerMin caps connect attempts per client IP.
	ConnectRatePerMin int `yaml:"connect_rate_per_min"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Minute,
		},
		Upstream: UpstreamConfig{
			ClobHost:   "https://clob.polymarket.com",
			GammaHost:  "https://gamma-api.polymarket.com",
			PolygonRPC: "https://polygon-rpc.com",
			ChainID:    137,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		SecretDBPath:      "data/secrets",
		ConnectRatePerMin: 30,
	}
}

// Load reads the YAML file at path (optional) and applies environment
// overrides on top. Missing file with empty path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", cfg.Session.TTL)
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = time.Minute
	}
	return cfg, nil
}

// applyEnv lets env vars override file values, matching how the rest of
// the deployment is configured (.env + real env).
func (c *Config) applyEnv() {
	if v := os.Getenv("GOCAST_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("GOCAST_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.TTL = d
		}
	}
	if v := os.Getenv("GOCAST_CLOB_HOST"); v != "" {
		c.Upstream.ClobHost = v
	}
	if v := os.Getenv("GOCAST_GAMMA_HOST"); v != "" {
		c.Upstream.GammaHost = v
	}
	if v := os.Getenv("GOCAST_POLYGON_RPC"); v != "" {
		c.Upstream.PolygonRPC = v
	}
	if v := os.Getenv("GOCAST_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("GOCAST_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("GOCAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GOCAST_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("GOCAST_SECRET_DB"); v != "" {
		c.SecretDBPath = v
	}
	if v := os.Getenv("GOCAST_DEGRADED_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DegradedMode = b
		}
	}
}
