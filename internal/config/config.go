// Package config defines the racewatch configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Valid run modes. "scan" detects opportunities only, "bridge" consumes
// emitted records into Betmatic only, "full" runs both connected in-process.
const (
	ModeScan   = "scan"
	ModeBridge = "bridge"
	ModeFull   = "full"
)

// duration wraps time.Duration so TOML values can be written as "3s" / "15m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by RACEWATCH_* environment variables.
type Config struct {
	Betwatch Betwatch `toml:"betwatch"`
	Betmatic Betmatic `toml:"betmatic"`
	Scanner  Scanner  `toml:"scanner"`
	Dedup    Dedup    `toml:"dedup"`
	Redis    Redis    `toml:"redis"`
	Notify   Notify   `toml:"notify"`
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
}

// Betwatch holds data provider connection settings.
type Betwatch struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// Betmatic holds notification platform settings and credentials.
type Betmatic struct {
	BaseURL           string   `toml:"base_url"`
	Email             string   `toml:"email"`
	Password          string   `toml:"password"`
	TokenTTL          duration `toml:"token_ttl"`
	WagerType         string   `toml:"wager_type"` // "Fixed Profit" or "Fixed Win"
	WagerAmount       float64  `toml:"wager_amount"`
	TestingMode       bool     `toml:"testing_mode"`
	TestingMultiplier float64  `toml:"testing_multiplier"`
}

// Scanner holds the scan loop and eligibility parameters.
type Scanner struct {
	Interval      duration `toml:"interval"`
	MinTimeToJump duration `toml:"min_time_to_jump"`
	MaxTimeToJump duration `toml:"max_time_to_jump"`
	RaceTypes     []string `toml:"race_types"`
	Locations     []string `toml:"locations"`
	Bookmakers    []string `toml:"bookmakers"`
	Retry         Retry    `toml:"retry"`
}

// Retry holds the fetch backoff schedule.
type Retry struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   duration `toml:"base_delay"`
	Multiplier  float64  `toml:"multiplier"`
	MaxDelay    duration `toml:"max_delay"`
}

// Dedup selects the dedup registry backend.
type Dedup struct {
	Backend string `toml:"backend"` // "memory" or "redis"
}

// Redis holds connection parameters for the shared dedup registry.
type Redis struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Notify holds alert channel settings.
type Notify struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration, matching the provider's
// production endpoints and the standard Australian racing setup.
func Defaults() Config {
	return Config{
		Betwatch: Betwatch{
			Endpoint: "https://api.betwatch.com/query",
		},
		Betmatic: Betmatic{
			BaseURL:           "https://betmatic.app/api",
			TokenTTL:          duration{45 * time.Minute},
			WagerType:         "Fixed Profit",
			WagerAmount:       50,
			TestingMultiplier: 0.1,
		},
		Scanner: Scanner{
			Interval:      duration{3 * time.Second},
			MinTimeToJump: duration{2 * time.Minute},
			MaxTimeToJump: duration{15 * time.Minute},
			RaceTypes:     []string{"Greyhound", "Harness"},
			Locations:     []string{"NSW", "VIC", "QLD", "SA", "WA", "TAS", "NT", "ACT"},
			Bookmakers:    []string{"Sportsbet", "Tab", "Boombet", "Tabtouch"},
			Retry: Retry{
				MaxAttempts: 5,
				BaseDelay:   duration{time.Second},
				Multiplier:  2.0,
				MaxDelay:    duration{30 * time.Second},
			},
		},
		Dedup:    Dedup{Backend: "memory"},
		Redis:    Redis{Addr: "localhost:6379", PoolSize: 10, MaxRetries: 3},
		Mode:     ModeScan,
		LogLevel: "info",
	}
}

// Validate checks the configuration for startup-fatal problems: missing
// credentials, inverted windows, nonsense intervals. It returns the first
// problem found.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeScan, ModeBridge, ModeFull:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}

	if c.Mode != ModeBridge {
		if c.Betwatch.APIKey == "" {
			return fmt.Errorf("config: betwatch api_key is required (set RACEWATCH_BETWATCH_API_KEY)")
		}
		if c.Betwatch.Endpoint == "" {
			return fmt.Errorf("config: betwatch endpoint is required")
		}
		if c.Scanner.Interval.Duration <= 0 {
			return fmt.Errorf("config: scanner interval must be positive, got %s", c.Scanner.Interval.Duration)
		}
		if c.Scanner.MinTimeToJump.Duration < 0 {
			return fmt.Errorf("config: min_time_to_jump must not be negative")
		}
		if c.Scanner.MaxTimeToJump.Duration < c.Scanner.MinTimeToJump.Duration {
			return fmt.Errorf("config: max_time_to_jump %s is below min_time_to_jump %s",
				c.Scanner.MaxTimeToJump.Duration, c.Scanner.MinTimeToJump.Duration)
		}
		if c.Scanner.Retry.MaxAttempts < 1 {
			return fmt.Errorf("config: retry max_attempts must be at least 1")
		}
	}

	if c.Mode != ModeScan {
		if c.Betmatic.Email == "" || c.Betmatic.Password == "" {
			return fmt.Errorf("config: betmatic credentials are required (set RACEWATCH_BETMATIC_EMAIL / RACEWATCH_BETMATIC_PASSWORD)")
		}
		switch c.Betmatic.WagerType {
		case "Fixed Profit", "Fixed Win":
		default:
			return fmt.Errorf("config: wager_type must be %q or %q, got %q", "Fixed Profit", "Fixed Win", c.Betmatic.WagerType)
		}
		if c.Betmatic.WagerAmount <= 0 {
			return fmt.Errorf("config: wager_amount must be positive")
		}
		if c.Betmatic.TestingMode && (c.Betmatic.TestingMultiplier <= 0 || c.Betmatic.TestingMultiplier >= 1) {
			return fmt.Errorf("config: testing_multiplier must be in (0, 1), got %v", c.Betmatic.TestingMultiplier)
		}
	}

	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis addr is required for the redis dedup backend")
		}
	default:
		return fmt.Errorf("config: unknown dedup backend %q", c.Dedup.Backend)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	return nil
}

// WagerAmountDecimal returns the configured base stake as a decimal.
func (b Betmatic) WagerAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.WagerAmount)
}

// TestingMultiplierDecimal returns the testing-mode multiplier as a decimal.
func (b Betmatic) TestingMultiplierDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.TestingMultiplier)
}
