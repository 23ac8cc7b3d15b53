package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/brokersim/market"
	"github.com/rustyeddy/brokersim/sim"
)

// Config is the complete broker simulator configuration.
type Config struct {
	Venue    VenueConfig        `json:"venue" yaml:"venue"`
	Calendar CalendarConfig     `json:"calendar" yaml:"calendar"`
	Account  AccountConfig      `json:"account" yaml:"account"`
	Journal  JournalConfig      `json:"journal" yaml:"journal"`
	Stream   StreamConfig       `json:"stream" yaml:"stream"`
	Prices   map[string]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
}

// VenueConfig tunes the simulated execution venue. Durations are strings in
// time.ParseDuration form ("180ms", "1s").
type VenueConfig struct {
	Latency       string  `json:"latency" yaml:"latency"`
	Jitter        string  `json:"jitter" yaml:"jitter"`
	CancelLatency string  `json:"cancel_latency" yaml:"cancel_latency"`
	PartialFill   bool    `json:"partial_fill" yaml:"partial_fill"`
	RejectRate    float64 `json:"reject_rate" yaml:"reject_rate"`
	FeeBps        float64 `json:"fee_bps" yaml:"fee_bps"`
	SlippageBps   float64 `json:"slippage_bps" yaml:"slippage_bps"`
	MarketHours   bool    `json:"market_hours" yaml:"market_hours"`
}

// CalendarConfig describes the trading session used when venue.market_hours
// is set.
type CalendarConfig struct {
	Timezone string   `json:"timezone" yaml:"timezone"`
	Open     string   `json:"open" yaml:"open"`   // "HH:MM"
	Close    string   `json:"close" yaml:"close"` // "HH:MM"
	Holidays []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}

// AccountConfig contains paper-account initialization parameters.
type AccountConfig struct {
	ID      string  `json:"id" yaml:"id"`
	Balance float64 `json:"balance" yaml:"balance"`
}

// JournalConfig contains execution-journal parameters.
type JournalConfig struct {
	Type     string `json:"type" yaml:"type"` // "csv" or "sqlite"
	ExecFile string `json:"exec_file,omitempty" yaml:"exec_file,omitempty"`
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// StreamConfig contains the serve command's HTTP parameters.
type StreamConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	venue := sim.DefaultOptions()
	return &Config{
		Venue: VenueConfig{
			Latency:       venue.VenueLatency.String(),
			Jitter:        venue.LatencyJitter.String(),
			CancelLatency: venue.CancelLatency.String(),
			PartialFill:   venue.PartialFill,
			RejectRate:    venue.RejectRate,
			FeeBps:        venue.FeeBps,
			SlippageBps:   venue.SlippageBps,
			MarketHours:   venue.RespectMarketHours,
		},
		Calendar: CalendarConfig{
			Timezone: "America/New_York",
			Open:     "09:30",
			Close:    "16:00",
		},
		Account: AccountConfig{
			ID:      "SIM-001",
			Balance: 100000,
		},
		Journal: JournalConfig{
			Type:     "csv",
			ExecFile: "./execs.csv",
		},
		Stream: StreamConfig{
			Addr: ":8080",
		},
		Prices: map[string]float64{
			"AAPL": 187.50,
			"MSFT": 402.10,
			"SPY":  512.30,
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content). Missing fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Venue.MarketHours {
		if _, err := c.BuildCalendar(); err != nil {
			return err
		}
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.ExecFile == "" {
			return fmt.Errorf("journal.exec_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	for sym, px := range c.Prices {
		if px <= 0 {
			return fmt.Errorf("price for %s must be positive", sym)
		}
	}
	return nil
}

// Options converts the venue section into engine options.
func (c *Config) Options() (sim.Options, error) {
	opts := sim.DefaultOptions()

	var err error
	if opts.VenueLatency, err = parseDuration("venue.latency", c.Venue.Latency, opts.VenueLatency); err != nil {
		return opts, err
	}
	if opts.LatencyJitter, err = parseDuration("venue.jitter", c.Venue.Jitter, opts.LatencyJitter); err != nil {
		return opts, err
	}
	if opts.CancelLatency, err = parseDuration("venue.cancel_latency", c.Venue.CancelLatency, opts.CancelLatency); err != nil {
		return opts, err
	}

	opts.PartialFill = c.Venue.PartialFill
	opts.RejectRate = c.Venue.RejectRate
	opts.FeeBps = c.Venue.FeeBps
	opts.SlippageBps = c.Venue.SlippageBps
	opts.RespectMarketHours = c.Venue.MarketHours
	return opts, nil
}

// BuildCalendar constructs the session calendar from the calendar section.
func (c *Config) BuildCalendar() (*market.Calendar, error) {
	return market.NewCalendar(c.Calendar.Timezone, c.Calendar.Open, c.Calendar.Close, c.Calendar.Holidays...)
}

func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
