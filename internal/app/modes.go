package app

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jcleary-au/racewatch/internal/betting"
	"github.com/jcleary-au/racewatch/internal/config"
	"github.com/jcleary-au/racewatch/internal/domain"
	"github.com/jcleary-au/racewatch/internal/notify"
	"github.com/jcleary-au/racewatch/internal/retry"
	"github.com/jcleary-au/racewatch/internal/scanner"
)

// recordBuffer is how many emitted records full mode can hold before the
// scanner outpaces the bridge. Overflowing records are dropped with an error
// log rather than stalling the scan cycle.
const recordBuffer = 64

// newLoop assembles the scan loop from config and wired dependencies.
func (a *App) newLoop(deps *Dependencies, extraSinks ...scanner.Sink) *scanner.Loop {
	raceTypes := make([]domain.RaceType, 0, len(a.cfg.Scanner.RaceTypes))
	for _, t := range a.cfg.Scanner.RaceTypes {
		raceTypes = append(raceTypes, domain.RaceType(t))
	}

	filter := scanner.NewFilter(scanner.FilterConfig{
		MinTimeToJump: a.cfg.Scanner.MinTimeToJump.Duration,
		MaxTimeToJump: a.cfg.Scanner.MaxTimeToJump.Duration,
		RaceTypes:     raceTypes,
		Locations:     a.cfg.Scanner.Locations,
	})
	comparator := scanner.NewComparator(a.cfg.Scanner.Bookmakers)

	sinks := []scanner.Sink{notify.NewOpportunitySink(deps.Notifier)}
	sinks = append(sinks, extraSinks...)

	return scanner.NewLoop(scanner.LoopConfig{
		Interval: a.cfg.Scanner.Interval.Duration,
		Retry: retry.Policy{
			MaxAttempts: a.cfg.Scanner.Retry.MaxAttempts,
			BaseDelay:   a.cfg.Scanner.Retry.BaseDelay.Duration,
			Multiplier:  a.cfg.Scanner.Retry.Multiplier,
			MaxDelay:    a.cfg.Scanner.Retry.MaxDelay.Duration,
		},
	}, deps.Source, filter, comparator, deps.Registry, sinks, deps.Notifier, a.logger)
}

// recordLogSink logs each opportunity's text record so operators can replay
// it through bridge mode later.
func (a *App) recordLogSink() scanner.Sink {
	return scanner.SinkFunc(func(ctx context.Context, opp domain.Opportunity) error {
		a.logger.InfoContext(ctx, "opportunity record", slog.String("record", opp.EncodeText()))
		return nil
	})
}

// ScanMode runs the scan loop alone. Opportunity records are logged and
// alerted but not submitted anywhere.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.notifyStartup(ctx, deps, config.ModeScan)
	return a.newLoop(deps, a.recordLogSink()).Run(ctx)
}

// BridgeMode reads opportunity text records from stdin, one per line, and
// submits each to the betting platform. Blank lines are skipped; the mode
// exits when stdin closes or ctx is cancelled.
func (a *App) BridgeMode(ctx context.Context, deps *Dependencies) error {
	a.notifyStartup(ctx, deps, config.ModeBridge)

	records := make(chan string)
	bridge := betting.NewBridge(deps.Mapper, retry.DefaultPolicy(), deps.Notifier, a.logger)

	// The reader is a plain goroutine, not part of the shutdown path: a
	// blocked stdin read cannot be interrupted by ctx, so on cancellation
	// the bridge returns and the reader is abandoned to process exit.
	go func() {
		defer close(records)
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case records <- line:
			}
		}
		if err := sc.Err(); err != nil {
			a.logger.Error("record input failed", slog.String("error", err.Error()))
		}
	}()

	return bridge.Run(ctx, records)
}

// FullMode runs the scan loop and the bet bridge in one process, connected by
// an in-process channel: every emitted opportunity is encoded, queued, and
// submitted as a bet notification.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.notifyStartup(ctx, deps, config.ModeFull)

	records := make(chan string, recordBuffer)
	bridge := betting.NewBridge(deps.Mapper, retry.DefaultPolicy(), deps.Notifier, a.logger)

	recordSink := scanner.SinkFunc(func(ctx context.Context, opp domain.Opportunity) error {
		select {
		case records <- opp.EncodeText():
			return nil
		default:
			return fmt.Errorf("app: record queue full, dropping opportunity %s", opp.ID)
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		return a.newLoop(deps, a.recordLogSink(), recordSink).Run(ctx)
	})
	g.Go(func() error {
		return bridge.Run(ctx, records)
	})
	return g.Wait()
}

// notifyStartup announces the running mode on the configured alert channels.
func (a *App) notifyStartup(ctx context.Context, deps *Dependencies, mode string) {
	err := deps.Notifier.Notify(ctx, notify.EventStartup,
		"racewatch started", fmt.Sprintf("mode: %s", mode))
	if err != nil {
		a.logger.Warn("startup notification failed", slog.String("error", err.Error()))
	}
}
