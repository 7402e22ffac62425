package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validScanConfig() Config {
	cfg := Defaults()
	cfg.Betwatch.APIKey = "key"
	return cfg
}

func TestValidate_Modes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid scan config",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "turbo" },
			wantErr: "unknown mode",
		},
		{
			name:    "scan requires api key",
			mutate:  func(c *Config) { c.Betwatch.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name:    "interval must be positive",
			mutate:  func(c *Config) { c.Scanner.Interval.Duration = 0 },
			wantErr: "interval",
		},
		{
			name: "inverted jump window",
			mutate: func(c *Config) {
				c.Scanner.MinTimeToJump.Duration = 20 * time.Minute
				c.Scanner.MaxTimeToJump.Duration = 10 * time.Minute
			},
			wantErr: "max_time_to_jump",
		},
		{
			name: "bridge requires credentials",
			mutate: func(c *Config) {
				c.Mode = ModeBridge
			},
			wantErr: "credentials",
		},
		{
			name: "bridge does not require api key",
			mutate: func(c *Config) {
				c.Mode = ModeBridge
				c.Betwatch.APIKey = ""
				c.Betmatic.Email = "a@b.c"
				c.Betmatic.Password = "pw"
			},
		},
		{
			name: "bad wager type",
			mutate: func(c *Config) {
				c.Mode = ModeFull
				c.Betmatic.Email = "a@b.c"
				c.Betmatic.Password = "pw"
				c.Betmatic.WagerType = "Each Way"
			},
			wantErr: "wager_type",
		},
		{
			name: "testing multiplier out of range",
			mutate: func(c *Config) {
				c.Mode = ModeFull
				c.Betmatic.Email = "a@b.c"
				c.Betmatic.Password = "pw"
				c.Betmatic.TestingMode = true
				c.Betmatic.TestingMultiplier = 1.5
			},
			wantErr: "testing_multiplier",
		},
		{
			name: "redis backend requires addr",
			mutate: func(c *Config) {
				c.Dedup.Backend = "redis"
				c.Redis.Addr = ""
			},
			wantErr: "redis addr",
		},
		{
			name:    "unknown dedup backend",
			mutate:  func(c *Config) { c.Dedup.Backend = "memcached" },
			wantErr: "dedup backend",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validScanConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "scan"
log_level = "debug"

[betwatch]
api_key = "from-file"

[scanner]
interval = "5s"
min_time_to_jump = "1m"
max_time_to_jump = "10m"
bookmakers = ["Sportsbet"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RACEWATCH_BETWATCH_API_KEY", "from-env")
	t.Setenv("RACEWATCH_SCANNER_RACE_TYPES", "Greyhound")
	t.Setenv("RACEWATCH_BETMATIC_TESTING_MODE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Betwatch.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.Betwatch.APIKey)
	}
	if cfg.Scanner.Interval.Duration != 5*time.Second {
		t.Errorf("Interval = %s, want 5s", cfg.Scanner.Interval.Duration)
	}
	if cfg.Scanner.MinTimeToJump.Duration != time.Minute {
		t.Errorf("MinTimeToJump = %s, want 1m", cfg.Scanner.MinTimeToJump.Duration)
	}
	if len(cfg.Scanner.Bookmakers) != 1 || cfg.Scanner.Bookmakers[0] != "Sportsbet" {
		t.Errorf("Bookmakers = %v", cfg.Scanner.Bookmakers)
	}
	if len(cfg.Scanner.RaceTypes) != 1 || cfg.Scanner.RaceTypes[0] != "Greyhound" {
		t.Errorf("RaceTypes = %v, want env override", cfg.Scanner.RaceTypes)
	}
	if !cfg.Betmatic.TestingMode {
		t.Error("TestingMode = false, want env override true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Fields untouched by file and env keep their defaults.
	if cfg.Betmatic.TokenTTL.Duration != 45*time.Minute {
		t.Errorf("TokenTTL = %s, want default 45m", cfg.Betmatic.TokenTTL.Duration)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeScan {
		t.Errorf("Mode = %q, want scan default", cfg.Mode)
	}
	if cfg.Scanner.Interval.Duration != 3*time.Second {
		t.Errorf("Interval = %s, want 3s default", cfg.Scanner.Interval.Duration)
	}
}

func TestWagerAmountDecimal(t *testing.T) {
	b := Betmatic{WagerAmount: 50, TestingMultiplier: 0.1}
	if got := b.WagerAmountDecimal().String(); got != "50" {
		t.Errorf("WagerAmountDecimal = %s, want 50", got)
	}
	if got := b.TestingMultiplierDecimal().String(); got != "0.1" {
		t.Errorf("TestingMultiplierDecimal = %s, want 0.1", got)
	}
}
