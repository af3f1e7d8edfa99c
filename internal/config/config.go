// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultDatabaseName = "Cluster0"

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token           string  `yaml:"token" env:"BOT_TOKEN"`
	AdminIDs        []int64 `yaml:"admin_ids" env:"ADMINS" envSeparator:","`
	DatabaseChannel int64   `yaml:"database_channel" env:"DATABASE_CHANNEL"`
	LinksChannel    int64   `yaml:"links_channel" env:"LINKS_CHANNEL"`
	ForceSub        int64   `yaml:"force_sub" env:"FORCE_SUB"`
	Workers         int     `yaml:"workers" env:"MAX_CONCURRENT_REQUESTS"` // concurrent update handlers
	SendRate        float64 `yaml:"send_rate"`                             // outbound messages per second
	SendBurst       int     `yaml:"send_burst"`
}

type TokenConfig struct {
	DurationHours       int    `yaml:"duration_hours" env:"TOKEN_DURATION"`
	VerificationEnabled *bool  `yaml:"verification_enabled" env:"TOKEN_VERIFICATION_ENABLED"`
	GetTokenURL         string `yaml:"get_token_url" env:"GET_TOKEN"`
	RenameTemplate      string `yaml:"rename_template" env:"RENAME_TEMPLATE"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`
	File     string `yaml:"file" env:"LOG_FILE"`
}

type MongoConfig struct {
	URI         string `yaml:"uri" env:"MONGODB_URI"`
	Database    string `yaml:"database" env:"MONGODB_DATABASE"`
	MaxPoolSize uint64 `yaml:"max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`
	MinPoolSize uint64 `yaml:"min_pool_size" env:"MONGODB_MIN_POOL_SIZE"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL"`
	MaxSize    int `yaml:"max_size" env:"CACHE_MAX_SIZE"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
	WindowSeconds int `yaml:"window_seconds" env:"RATE_LIMIT_WINDOW"`
}

type HTTPConfig struct {
	Port           int    `yaml:"port" env:"HTTP_PORT"`
	AdminAPISecret string `yaml:"admin_api_secret" env:"ADMIN_API_SECRET"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Token     TokenConfig     `yaml:"token"`
	Log       LogConfig       `yaml:"log"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
	Debug     bool            `yaml:"debug" env:"DEBUG"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads an optional .env file, the YAML file at path (skipped when it
// does not exist) and finally the process environment, which wins.
func Load(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 100
	}
	if c.Bot.SendRate <= 0 {
		c.Bot.SendRate = 10
	}
	if c.Bot.SendBurst <= 0 {
		c.Bot.SendBurst = 100
	}
	if c.Token.DurationHours == 0 {
		c.Token.DurationHours = 24
	}
	if c.Token.VerificationEnabled == nil {
		enabled := true
		c.Token.VerificationEnabled = &enabled
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = defaultDatabaseName
	}
	if c.Mongo.MaxPoolSize == 0 {
		c.Mongo.MaxPoolSize = 100
	}
	if c.Mongo.MinPoolSize == 0 {
		c.Mongo.MinPoolSize = 10
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 10000
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 30
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Bot.Token == "" {
		problems = append(problems, "BOT_TOKEN is required")
	}
	if c.Mongo.URI == "" {
		problems = append(problems, "MONGODB_URI is required")
	} else if u, err := url.Parse(c.Mongo.URI); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "MONGODB_URI has an invalid format")
	}
	if len(c.Bot.AdminIDs) == 0 {
		problems = append(problems, "at least one admin must be configured in ADMINS")
	}
	if c.Bot.DatabaseChannel == 0 {
		problems = append(problems, "DATABASE_CHANNEL must be configured")
	}
	if c.Token.DurationHours <= 0 {
		problems = append(problems, "TOKEN_DURATION must be positive")
	}
	if c.Cache.TTLSeconds <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}
	if c.RateLimit.Requests <= 0 {
		problems = append(problems, "RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		problems = append(problems, "RATE_LIMIT_WINDOW must be positive")
	}
	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

// OwnerID is the first configured admin.
func (c *Config) OwnerID() int64 {
	if len(c.Bot.AdminIDs) == 0 {
		return 0
	}
	return c.Bot.AdminIDs[0]
}

func (c *Config) IsAdmin(id int64) bool { return slices.Contains(c.Bot.AdminIDs, id) }

func (c *Config) IsOwner(id int64) bool { return id != 0 && id == c.OwnerID() }

func (c *Config) TokenDuration() time.Duration {
	return time.Duration(c.Token.DurationHours) * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// TokenVerificationEnabled reports the configured default; the live value is
// owned by the access use case and may be toggled at runtime.
func (c *Config) TokenVerificationEnabled() bool {
	return c.Token.VerificationEnabled == nil || *c.Token.VerificationEnabled
}

// String never includes secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config(admins_count=%d, database_channel=%d, links_channel=%d, token_duration=%d, debug=%t)",
		len(c.Bot.AdminIDs), c.Bot.DatabaseChannel, c.Bot.LinksChannel, c.Token.DurationHours, c.Debug,
	)
}
