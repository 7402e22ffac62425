package scanner

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
	"github.com/jcleary-au/racewatch/internal/retry"
)

// RaceSource fetches the day's races from the odds data provider.
type RaceSource interface {
	GetRaces(ctx context.Context, date string, types, locations []string) ([]domain.Race, error)
}

// Sink receives each newly emitted opportunity. Sink failures are logged and
// never abort the cycle or suppress delivery to other sinks.
type Sink interface {
	Emit(ctx context.Context, opp domain.Opportunity) error
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(ctx context.Context, opp domain.Opportunity) error

func (f SinkFunc) Emit(ctx context.Context, opp domain.Opportunity) error {
	return f(ctx, opp)
}

// ErrorReporter is alerted when a failure degrades a scan cycle. A nil
// reporter disables alerting; failures are still logged.
type ErrorReporter interface {
	ReportError(ctx context.Context, title, message string)
}

// LoopConfig holds scan loop parameters.
type LoopConfig struct {
	Interval time.Duration
	Retry    retry.Policy
}

// Loop runs the periodic scan: fetch, filter, compare, dedup, emit, sleep.
// One cycle failing never stops the loop; fetch errors degrade the cycle to a
// no-op and the next cycle starts on schedule.
type Loop struct {
	cfg        LoopConfig
	source     RaceSource
	filter     *Filter
	comparator *Comparator
	registry   domain.DedupRegistry
	sinks      []Sink
	reporter   ErrorReporter
	logger     *slog.Logger

	now func() time.Time // injectable clock for tests
}

// NewLoop assembles a scan loop from its stages. reporter may be nil.
func NewLoop(cfg LoopConfig, source RaceSource, filter *Filter, comparator *Comparator, registry domain.DedupRegistry, sinks []Sink, reporter ErrorReporter, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:        cfg,
		source:     source,
		filter:     filter,
		comparator: comparator,
		registry:   registry,
		sinks:      sinks,
		reporter:   reporter,
		logger:     logger.With(slog.String("component", "scan_loop")),
		now:        time.Now,
	}
}

// Run executes scan cycles until ctx is cancelled. The first cycle starts
// immediately; each subsequent cycle starts interval after the previous one
// began, so a cycle that overruns its interval is followed by the next one
// right away.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scan loop started", slog.Duration("interval", l.cfg.Interval))
	defer l.logger.Info("scan loop stopped")

	for {
		cycleStart := l.now()
		l.runCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sleep := l.cfg.Interval - l.now().Sub(cycleStart)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// cycleStats summarizes one scan cycle for the audit log.
type cycleStats struct {
	fetched    int
	eligible   int
	candidates int
	emitted    int
}

// runCycle performs one fetch → filter → compare → dedup → emit pass.
func (l *Loop) runCycle(ctx context.Context) {
	start := l.now()
	date := start.UTC().Format("2006-01-02")

	types := make([]string, 0, len(l.filter.cfg.RaceTypes))
	for _, t := range l.filter.cfg.RaceTypes {
		types = append(types, string(t))
	}

	var races []domain.Race
	err := l.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		races, fetchErr = l.source.GetRaces(ctx, date, types, l.filter.cfg.Locations)
		return fetchErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Degrade this cycle to a no-op; the loop keeps running.
		l.logger.Error("fetch failed, skipping cycle", slog.String("error", err.Error()))
		if l.reporter != nil {
			l.reporter.ReportError(ctx, "race fetch failed", err.Error())
		}
		return
	}

	stats := cycleStats{fetched: len(races)}
	now := l.now()

	var candidates []domain.Opportunity
	for _, race := range races {
		if !l.filter.Eligible(race, now) {
			continue
		}
		stats.eligible++
		candidates = append(candidates, l.comparator.Candidates(race, now)...)
	}
	stats.candidates = len(candidates)

	// Deterministic emit order within a cycle.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Race.StartTime.Equal(b.Race.StartTime) {
			return a.Race.StartTime.Before(b.Race.StartTime)
		}
		if a.Race.ID != b.Race.ID {
			return a.Race.ID < b.Race.ID
		}
		if a.Runner.Number != b.Runner.Number {
			return a.Runner.Number < b.Runner.Number
		}
		return a.Bookmaker < b.Bookmaker
	})

	for _, opp := range candidates {
		fresh, err := l.registry.ShouldEmit(ctx, opp.Key(), opp.Race.StartTime)
		if err != nil {
			l.logger.Error("dedup check failed",
				slog.String("key", opp.Key().String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !fresh {
			continue
		}
		l.emit(ctx, opp)
		stats.emitted++
	}

	// Quiet cycles stay at debug so the info log only carries real events.
	level := slog.LevelDebug
	if stats.emitted > 0 {
		level = slog.LevelInfo
	}
	seen, _ := l.registry.Len(ctx)
	l.logger.Log(ctx, level, "scan cycle complete",
		slog.Int("fetched", stats.fetched),
		slog.Int("eligible", stats.eligible),
		slog.Int("candidates", stats.candidates),
		slog.Int("emitted", stats.emitted),
		slog.Int("keys_seen", seen),
		slog.Duration("duration", l.now().Sub(start)),
	)
}

// emit publishes one opportunity: an audit log line plus delivery to every
// sink. The key was already marked seen by the registry, so a sink failure
// suppresses the alert for the rest of the run rather than double-alerting.
func (l *Loop) emit(ctx context.Context, opp domain.Opportunity) {
	l.logger.Info("opportunity found",
		slog.String("opp_id", opp.ID),
		slog.String("race_id", opp.Race.ID),
		slog.String("track", opp.Race.Meeting.Track),
		slog.Int("race_number", opp.Race.Number),
		slog.String("runner", opp.Runner.Name),
		slog.String("bookmaker", opp.Bookmaker),
		slog.String("fixed", opp.FixedPrice.String()),
		slog.String("lay", opp.LayPrice.String()),
		slog.Duration("time_to_jump", opp.Race.TimeToJump(l.now())),
		slog.String("link", opp.Link),
	)

	for _, sink := range l.sinks {
		if err := sink.Emit(ctx, opp); err != nil {
			l.logger.Error("sink failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
