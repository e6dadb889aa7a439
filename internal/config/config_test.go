package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, Defaults(), cfg)
	require.Equal(t, ":8080", cfg.Addr())

	inc, err := cfg.MinIncrement()
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("0.05").Equal(inc))

	maxAmount, err := cfg.MaxAmount()
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("99999999999.999999999").Equal(maxAmount))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
server:
  port: 9090
  rate_limit:
    burst_size: 5
store:
  driver: postgres
  database_url: postgres://gookie@localhost/gookie
auction:
  min_increment: "0.10"
  anti_snipe_window: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.Server.RateLimit.BurstSize)
	require.Equal(t, float64(20), cfg.Server.RateLimit.RequestsPerSecond)
	require.Equal(t, "postgres", cfg.Store.Driver)
	require.Equal(t, 2*time.Minute, cfg.Auction.AntiSnipeWindow)
	require.Equal(t, 5*time.Minute, cfg.Auction.ExtensionDuration)

	inc, err := cfg.MinIncrement()
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("0.1").Equal(inc))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("GOOKIE_SERVER__PORT", "7070")
	t.Setenv("GOOKIE_LOG_LEVEL", "warn")
	t.Setenv("GOOKIE_REDIS__ADDR", "localhost:6379")
	t.Setenv("GOOKIE_AUCTION__EXTENSION_DURATION", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 90*time.Second, cfg.Auction.ExtensionDuration)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading config file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero max clients",
			mutate:  func(c *Config) { c.Server.RateLimit.MaxClients = 0 },
			wantErr: "server.rate_limit",
		},
		{
			name:    "zero cleanup interval",
			mutate:  func(c *Config) { c.Server.RateLimit.CleanupInterval = 0 },
			wantErr: "server.rate_limit",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "sqlite" },
			wantErr: "unknown store.driver",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "store.database_url",
		},
		{
			name:    "unparsable increment",
			mutate:  func(c *Config) { c.Auction.MinIncrement = "five cents" },
			wantErr: "auction.min_increment",
		},
		{
			name:    "zero increment",
			mutate:  func(c *Config) { c.Auction.MinIncrement = "0" },
			wantErr: "must be positive",
		},
		{
			name:    "unparsable max amount",
			mutate:  func(c *Config) { c.Auction.MaxAmount = "lots" },
			wantErr: "auction.max_amount",
		},
		{
			name:    "negative max amount",
			mutate:  func(c *Config) { c.Auction.MaxAmount = "-5" },
			wantErr: "auction.max_amount must be positive",
		},
		{
			name:    "zero snipe window",
			mutate:  func(c *Config) { c.Auction.AntiSnipeWindow = 0 },
			wantErr: "anti_snipe_window",
		},
		{
			name:    "negative extension",
			mutate:  func(c *Config) { c.Auction.ExtensionDuration = -time.Minute },
			wantErr: "extension_duration",
		},
		{
			name:    "missing treasury",
			mutate:  func(c *Config) { c.Auction.TreasuryWallet = "" },
			wantErr: "treasury_wallet",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Defaults()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
