package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RACEWATCH_* environment variable overrides, and
// returns the final Config. A missing file is not an error — defaults plus
// environment overrides are enough to run. The returned Config has NOT been
// validated; call Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RACEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// keeps API keys and platform credentials out of the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Betwatch ──
	setStr(&cfg.Betwatch.Endpoint, "RACEWATCH_BETWATCH_ENDPOINT")
	setStr(&cfg.Betwatch.APIKey, "RACEWATCH_BETWATCH_API_KEY")

	// ── Betmatic ──
	setStr(&cfg.Betmatic.BaseURL, "RACEWATCH_BETMATIC_BASE_URL")
	setStr(&cfg.Betmatic.Email, "RACEWATCH_BETMATIC_EMAIL")
	setStr(&cfg.Betmatic.Password, "RACEWATCH_BETMATIC_PASSWORD")
	setDuration(&cfg.Betmatic.TokenTTL, "RACEWATCH_BETMATIC_TOKEN_TTL")
	setStr(&cfg.Betmatic.WagerType, "RACEWATCH_BETMATIC_WAGER_TYPE")
	setFloat64(&cfg.Betmatic.WagerAmount, "RACEWATCH_BETMATIC_WAGER_AMOUNT")
	setBool(&cfg.Betmatic.TestingMode, "RACEWATCH_BETMATIC_TESTING_MODE")
	setFloat64(&cfg.Betmatic.TestingMultiplier, "RACEWATCH_BETMATIC_TESTING_MULTIPLIER")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "RACEWATCH_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.MinTimeToJump, "RACEWATCH_SCANNER_MIN_TIME_TO_JUMP")
	setDuration(&cfg.Scanner.MaxTimeToJump, "RACEWATCH_SCANNER_MAX_TIME_TO_JUMP")
	setStringSlice(&cfg.Scanner.RaceTypes, "RACEWATCH_SCANNER_RACE_TYPES")
	setStringSlice(&cfg.Scanner.Locations, "RACEWATCH_SCANNER_LOCATIONS")
	setStringSlice(&cfg.Scanner.Bookmakers, "RACEWATCH_SCANNER_BOOKMAKERS")
	setInt(&cfg.Scanner.Retry.MaxAttempts, "RACEWATCH_SCANNER_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Scanner.Retry.BaseDelay, "RACEWATCH_SCANNER_RETRY_BASE_DELAY")
	setFloat64(&cfg.Scanner.Retry.Multiplier, "RACEWATCH_SCANNER_RETRY_MULTIPLIER")
	setDuration(&cfg.Scanner.Retry.MaxDelay, "RACEWATCH_SCANNER_RETRY_MAX_DELAY")

	// ── Dedup / Redis ──
	setStr(&cfg.Dedup.Backend, "RACEWATCH_DEDUP_BACKEND")
	setStr(&cfg.Redis.Addr, "RACEWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RACEWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RACEWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RACEWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "RACEWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "RACEWATCH_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RACEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RACEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RACEWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RACEWATCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "RACEWATCH_MODE")
	setStr(&cfg.LogLevel, "RACEWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
