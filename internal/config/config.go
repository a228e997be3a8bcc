package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	Port int `yaml:"port"` // /healthz and /metrics
}

type AuthConfig struct {
	TokenTTL          time.Duration `yaml:"token_ttl"`          // session/token lifetime
	GraceHours        int           `yaml:"grace_hours"`        // buffer after the nominal code validity
	BcryptCost        int           `yaml:"bcrypt_cost"`        // 0 = library default
	SweepInterval     time.Duration `yaml:"sweep_interval"`     // session sweep cadence
	InactiveRetention time.Duration `yaml:"inactive_retention"` // keep deactivated rows this long
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Admin    AdminConfig    `yaml:"admin"`
	Auth     AuthConfig     `yaml:"auth"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string, dev bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 9090
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.GraceHours <= 0 {
		c.Auth.GraceHours = 1
	}
	if c.Auth.SweepInterval <= 0 {
		c.Auth.SweepInterval = 10 * time.Minute
	}
	if c.Auth.InactiveRetention <= 0 {
		c.Auth.InactiveRetention = 7 * 24 * time.Hour
	}
}
