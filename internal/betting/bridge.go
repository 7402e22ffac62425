package betting

import (
	"context"
	"log/slog"

	"github.com/jcleary-au/racewatch/internal/retry"
)

// ErrorReporter is alerted when a record fails to submit after retries. A nil
// reporter disables alerting; failures are still logged.
type ErrorReporter interface {
	ReportError(ctx context.Context, title, message string)
}

// Bridge consumes opportunity text records from a channel and submits each
// through the Mapper. Transient platform failures are retried per the policy;
// per-record failures are logged, alerted, and skipped. The bridge only stops
// when the channel closes or ctx is cancelled.
type Bridge struct {
	mapper   *Mapper
	retry    retry.Policy
	reporter ErrorReporter
	logger   *slog.Logger
}

// NewBridge creates a Bridge. reporter may be nil.
func NewBridge(mapper *Mapper, policy retry.Policy, reporter ErrorReporter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		mapper:   mapper,
		retry:    policy,
		reporter: reporter,
		logger:   logger.With(slog.String("component", "bet_bridge")),
	}
}

// Run processes records until the channel closes or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, records <-chan string) error {
	b.logger.Info("bet bridge started")
	defer b.logger.Info("bet bridge stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-records:
			if !ok {
				return nil
			}
			err := b.retry.Do(ctx, func(ctx context.Context) error {
				return b.mapper.Submit(ctx, record)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// One bad opportunity must not block the rest.
				b.logger.Error("bet submission failed",
					slog.String("record", record),
					slog.String("error", err.Error()),
				)
				if b.reporter != nil {
					b.reporter.ReportError(ctx, "bet submission failed", err.Error())
				}
			}
		}
	}
}
