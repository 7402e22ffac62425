// Command racewatch scans Betwatch race odds for bookmaker fixed prices at or
// above the Betfair lay price and, depending on the mode, alerts on them or
// submits bet notifications to Betmatic. It loads configuration, validates it,
// wires dependencies, sets up signal handling, and runs until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jcleary-au/racewatch/internal/app"
	"github.com/jcleary-au/racewatch/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "operating mode: scan, bridge, or full (overrides config)")
	interval := flag.Duration("interval", 0, "scan interval, e.g. 3s (overrides config)")
	raceTypes := flag.String("race-types", "", "comma-separated race types, e.g. Greyhound,Harness (overrides config)")
	locations := flag.String("locations", "", "comma-separated locations, e.g. VIC,NSW (overrides config)")
	flag.Parse()

	// Bootstrap logger; replaced once the configured level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Flags beat file and environment.
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *interval > 0 {
		cfg.Scanner.Interval.Duration = *interval
	}
	if *raceTypes != "" {
		cfg.Scanner.RaceTypes = splitList(*raceTypes)
	}
	if *locations != "" {
		cfg.Scanner.Locations = splitList(*locations)
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("racewatch starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Duration("interval", cfg.Scanner.Interval.Duration),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully",
				slog.Duration("uptime", time.Since(start)))
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("racewatch stopped")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
