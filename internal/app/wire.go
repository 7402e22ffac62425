package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcleary-au/racewatch/internal/betting"
	cacheredis "github.com/jcleary-au/racewatch/internal/cache/redis"
	"github.com/jcleary-au/racewatch/internal/config"
	"github.com/jcleary-au/racewatch/internal/domain"
	"github.com/jcleary-au/racewatch/internal/notify"
	"github.com/jcleary-au/racewatch/internal/platform/betmatic"
	"github.com/jcleary-au/racewatch/internal/platform/betwatch"
	"github.com/jcleary-au/racewatch/internal/scanner"
)

// Dependencies bundles the concrete implementations the application modes
// operate on. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Scan side. Nil in bridge mode.
	Source   *betwatch.Client
	Registry domain.DedupRegistry

	// Bridge side. Nil in scan mode.
	Mapper *betting.Mapper

	// Notifications (always present, may have zero senders).
	Notifier *notify.Notifier
}

// needsScanner returns true for modes that run the scan loop.
func needsScanner(mode string) bool {
	return mode == config.ModeScan || mode == config.ModeFull
}

// needsBridge returns true for modes that submit bet notifications.
func needsBridge(mode string) bool {
	return mode == config.ModeBridge || mode == config.ModeFull
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Scan side: race source and dedup registry ---
	if needsScanner(cfg.Mode) {
		deps.Source = betwatch.NewClient(cfg.Betwatch.Endpoint, cfg.Betwatch.APIKey,
			betwatch.WithLogger(logger))

		switch cfg.Dedup.Backend {
		case "redis":
			redisClient, err := cacheredis.New(ctx, cacheredis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			closers = append(closers, func() { _ = redisClient.Close() })
			deps.Registry = cacheredis.NewDedupRegistry(redisClient)
		default:
			deps.Registry = scanner.NewMemoryRegistry()
		}
	}

	// --- Bridge side: platform client, session, and mapper ---
	if needsBridge(cfg.Mode) {
		client := betmatic.NewClient(cfg.Betmatic.BaseURL)
		session := betmatic.NewSession(client, cfg.Betmatic.Email, cfg.Betmatic.Password,
			cfg.Betmatic.TokenTTL.Duration, logger)

		deps.Mapper = betting.NewMapper(betting.MapperConfig{
			WagerType:         betmatic.WagerType(cfg.Betmatic.WagerType),
			BaseAmount:        cfg.Betmatic.WagerAmountDecimal(),
			TestingMode:       cfg.Betmatic.TestingMode,
			TestingMultiplier: cfg.Betmatic.TestingMultiplierDecimal(),
		}, client, session, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	events := make([]notify.Event, 0, len(cfg.Notify.Events))
	for _, e := range cfg.Notify.Events {
		events = append(events, notify.Event(e))
	}
	deps.Notifier = notify.NewNotifier(senders, events, logger)

	return deps, cleanup, nil
}
