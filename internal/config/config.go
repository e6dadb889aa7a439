package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: GOOKIE_SERVER__READ_TIMEOUT -> server.read_timeout.
const EnvPrefix = "GOOKIE_"

// DefaultFile is read when present
const DefaultFile = "configs/config.yaml"

type Config struct {
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Redis   RedisConfig   `koanf:"redis"`
	Auction AuctionConfig `koanf:"auction"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	BurstSize         int           `koanf:"burst_size"`
	ClientTTL         time.Duration `koanf:"client_ttl"`
	MaxClients        int           `koanf:"max_clients"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval"`
}

type StoreConfig struct {
	// Driver is "memory" or "postgres"
	Driver      string `koanf:"driver"`
	DatabaseURL string `koanf:"database_url"`
}

// RedisConfig configures the shared idempotency guard. An empty Addr keeps
// claims in process memory.
type RedisConfig struct {
	Addr           string        `koanf:"addr"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
}

type AuctionConfig struct {
	MinIncrement      string        `koanf:"min_increment"`
	MaxAmount         string        `koanf:"max_amount"`
	AntiSnipeWindow   time.Duration `koanf:"anti_snipe_window"`
	ExtensionDuration time.Duration `koanf:"extension_duration"`
	TreasuryWallet    string        `koanf:"treasury_wallet"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 20,
				BurstSize:         40,
				ClientTTL:         10 * time.Minute,
				MaxClients:        10000,
				CleanupInterval:   time.Minute,
			},
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Redis: RedisConfig{
			IdempotencyTTL: 24 * time.Hour,
		},
		Auction: AuctionConfig{
			MinIncrement:      "0.05",
			MaxAmount:         "99999999999.999999999",
			AntiSnipeWindow:   5 * time.Minute,
			ExtensionDuration: 5 * time.Minute,
			TreasuryWallet:    "5vJggeRkrFSZBJw6rZvWNzuRbKTe4g44pQEwaBcyZVBP",
		},
	}
}

// Load layers defaults, the optional YAML file at path and GOOKIE_ env vars
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if rl := c.Server.RateLimit; rl.ClientTTL <= 0 || rl.MaxClients <= 0 || rl.CleanupInterval <= 0 {
		return fmt.Errorf("config: server.rate_limit client_ttl, max_clients and cleanup_interval must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if _, err := c.MinIncrement(); err != nil {
		return err
	}
	if _, err := c.MaxAmount(); err != nil {
		return err
	}
	if c.Auction.AntiSnipeWindow <= 0 {
		return fmt.Errorf("config: auction.anti_snipe_window must be positive")
	}
	if c.Auction.ExtensionDuration <= 0 {
		return fmt.Errorf("config: auction.extension_duration must be positive")
	}
	if c.Auction.TreasuryWallet == "" {
		return fmt.Errorf("config: auction.treasury_wallet is required")
	}
	return nil
}

// MinIncrement parses auction.min_increment
func (c *Config) MinIncrement() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Auction.MinIncrement)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: auction.min_increment %q: %w", c.Auction.MinIncrement, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("config: auction.min_increment must be positive, got %s", d)
	}
	return d, nil
}

// MaxAmount parses auction.max_amount, the largest accepted bid or starting bid
func (c *Config) MaxAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Auction.MaxAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: auction.max_amount %q: %w", c.Auction.MaxAmount, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("config: auction.max_amount must be positive, got %s", d)
	}
	return d, nil
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
