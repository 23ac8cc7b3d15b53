package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 180*time.Millisecond, opts.VenueLatency)
	assert.True(t, opts.PartialFill)
}

func TestLoadFromFileYAMLOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
venue:
  latency: 50ms
  jitter: 0s
  cancel_latency: 10ms
  partial_fill: false
  reject_rate: 0.05
  fee_bps: 1
  slippage_bps: 2
journal:
  type: sqlite
  db_path: ./execs.db
prices:
  AAPL: 190.25
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, opts.VenueLatency)
	assert.Equal(t, time.Duration(0), opts.LatencyJitter)
	assert.False(t, opts.PartialFill)
	assert.InDelta(t, 0.05, opts.RejectRate, 1e-12)

	// Sections the file omits keep their defaults.
	assert.Equal(t, "SIM-001", cfg.Account.ID)
	assert.Equal(t, ":8080", cfg.Stream.Addr)

	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.InDelta(t, 190.25, cfg.Prices["AAPL"], 1e-9)
}

func TestLoadFromFileJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "venue": {"latency": "25ms", "partial_fill": true},
  "journal": {"type": "csv", "exec_file": "./execs.csv"}
}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, opts.VenueLatency)
}

func TestLoadFromFileRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("venue: [not: a: mapping"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestValidateCatchesBadFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad latency", func(c *Config) { c.Venue.Latency = "fast" }},
		{"negative latency", func(c *Config) { c.Venue.Latency = "-1s" }},
		{"zero balance", func(c *Config) { c.Account.Balance = 0 }},
		{"unknown journal", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv without file", func(c *Config) { c.Journal.ExecFile = "" }},
		{"negative price", func(c *Config) { c.Prices["AAPL"] = -1 }},
		{"bad calendar tz", func(c *Config) {
			c.Venue.MarketHours = true
			c.Calendar.Timezone = "Mars/Olympus"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Venue.RejectRate = 0.1
	cfg.Account.Balance = 25000

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Venue.RejectRate, 1e-12)
	assert.InDelta(t, 25000, got.Account.Balance, 1e-9)
}
