package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"beanchain/crypto"
	"beanchain/observability/logging"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for beand.
type Config struct {
	ListenAddress string             `yaml:"listen"`
	Genesis       string             `yaml:"genesis"`
	Storage       StorageConfig      `yaml:"storage"`
	History       HistoryConfig      `yaml:"history"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Keeper        KeeperConfig       `yaml:"keeper"`
	Auth          AuthConfig         `yaml:"auth"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit"`
	CORS          CORSConfig         `yaml:"cors"`
	Log           logging.FileConfig `yaml:"log"`
}

// StorageConfig selects the ledger key-value backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// HistoryConfig points at the season report database.
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// OracleConfig tunes the price aggregation loop. FeedMaxAge is how long the
// ledger accepts a published median.
type OracleConfig struct {
	Interval   Duration `yaml:"interval"`
	MaxAge     Duration `yaml:"max_age"`
	MinFeeds   int      `yaml:"min_feeds"`
	FeedMaxAge Duration `yaml:"feed_max_age"`
	Database   string   `yaml:"database"`
	Tokens     []string `yaml:"tokens"`
	Sources    []Source `yaml:"sources"`
}

// Source describes an upstream price feed.
type Source struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Endpoint string            `yaml:"endpoint"`
	Assets   map[string]string `yaml:"assets"`
}

// KeeperConfig schedules the built-in sunrise caller.
type KeeperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Address  string `yaml:"address"`
}

// AuthConfig guards the write endpoints with HMAC signed JWTs.
type AuthConfig struct {
	Enabled    bool     `yaml:"enabled"`
	HMACSecret string   `yaml:"hmac_secret"`
	Issuer     string   `yaml:"issuer"`
	Audience   string   `yaml:"audience"`
	ScopeClaim string   `yaml:"scope_claim"`
	ClockSkew  Duration `yaml:"clock_skew"`
}

// RateLimitConfig bounds requests per client address.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// KeeperAddress decodes the configured keeper account.
func (c Config) KeeperAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(strings.TrimSpace(c.Keeper.Address))
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8645"
	}
	if cfg.Genesis == "" {
		cfg.Genesis = "genesis.toml"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "leveldb"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/ledger"
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.DSN == "" {
		cfg.History.DSN = "./data/history.sqlite"
	}
	if cfg.Oracle.Interval.Duration == 0 {
		cfg.Oracle.Interval.Duration = 30 * time.Second
	}
	if cfg.Oracle.MaxAge.Duration == 0 {
		cfg.Oracle.MaxAge.Duration = 2 * time.Minute
	}
	if cfg.Oracle.FeedMaxAge.Duration == 0 {
		cfg.Oracle.FeedMaxAge.Duration = 15 * time.Minute
	}
	if cfg.Oracle.MinFeeds <= 0 {
		cfg.Oracle.MinFeeds = 1
	}
	if cfg.Oracle.Database == "" {
		cfg.Oracle.Database = "./data/oracle.sqlite"
	}
	if cfg.Keeper.Schedule == "" {
		cfg.Keeper.Schedule = "@every 1m"
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if cfg.Auth.ClockSkew.Duration == 0 {
		cfg.Auth.ClockSkew.Duration = 2 * time.Minute
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 600
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 50
	}
}

func validate(cfg Config) error {
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return fmt.Errorf("auth.hmac_secret required when auth is enabled")
	}
	if cfg.Keeper.Enabled {
		if _, err := cfg.KeeperAddress(); err != nil {
			return fmt.Errorf("keeper.address: %w", err)
		}
		if _, err := cron.ParseStandard(cfg.Keeper.Schedule); err != nil {
			return fmt.Errorf("keeper.schedule: %w", err)
		}
	}
	if len(cfg.Oracle.Sources) > 0 && len(cfg.Oracle.Tokens) == 0 {
		return fmt.Errorf("oracle.tokens required when sources are configured")
	}
	for i, src := range cfg.Oracle.Sources {
		if strings.TrimSpace(src.Type) == "" {
			return fmt.Errorf("oracle.sources[%d]: type required", i)
		}
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}
