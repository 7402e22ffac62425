// Package betting maps emitted opportunities onto the Betmatic platform and
// submits automated bet notifications. Mapping is per-opportunity: one record
// failing to parse or resolve never blocks the rest of the batch.
package betting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcleary-au/racewatch/internal/domain"
	"github.com/jcleary-au/racewatch/internal/platform/betmatic"
	"github.com/jcleary-au/racewatch/internal/retry"
)

// MapperConfig holds bet construction parameters.
type MapperConfig struct {
	WagerType  betmatic.WagerType
	BaseAmount decimal.Decimal
	// TestingMode scales the wager down by TestingMultiplier so dry runs
	// never submit full-size notifications.
	TestingMode       bool
	TestingMultiplier decimal.Decimal
}

// Mapper resolves opportunity records against platform identifiers and
// submits bet notifications through an authenticated session.
type Mapper struct {
	cfg     MapperConfig
	client  *betmatic.Client
	session *betmatic.Session
	logger  *slog.Logger

	now func() time.Time
}

// NewMapper creates a Mapper.
func NewMapper(cfg MapperConfig, client *betmatic.Client, session *betmatic.Session, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		cfg:     cfg,
		client:  client,
		session: session,
		logger:  logger.With(slog.String("component", "bet_mapper")),
		now:     time.Now,
	}
}

// BuildNotification parses an opportunity text record and resolves it into a
// submittable bet request. It fails with domain.ErrParse,
// domain.ErrUnsupportedRaceType, domain.ErrCompetitionNotFound, or
// domain.ErrBookmakerNotFound; all are fatal to this one opportunity only and
// wrapped with retry.Permanent so a retrying caller gives up immediately.
func (m *Mapper) BuildNotification(ctx context.Context, record string) (betmatic.BetRequest, error) {
	parsed, err := domain.ParseOpportunityText(record)
	if err != nil {
		return betmatic.BetRequest{}, retry.Permanent(fmt.Errorf("betting: parse record: %w", err))
	}

	// The platform does not support thoroughbred racing.
	if parsed.RaceType == domain.RaceTypeGalloping {
		return betmatic.BetRequest{}, retry.Permanent(fmt.Errorf("betting: race type %s: %w", parsed.RaceType, domain.ErrUnsupportedRaceType))
	}

	var req betmatic.BetRequest
	err = m.session.Authenticated(ctx, func(ctx context.Context, token string) error {
		compID, err := m.resolveCompetition(ctx, token, parsed)
		if err != nil {
			return err
		}
		bookID, err := m.resolveBookmaker(ctx, token, parsed.Bookmaker)
		if err != nil {
			return err
		}
		req = betmatic.BetRequest{
			CompetitionID: compID,
			BookmakerID:   bookID,
			WagerType:     m.cfg.WagerType,
			Amount:        m.wagerAmount(),
			Runner:        fmt.Sprintf("%d. %s", parsed.RunnerNumber, parsed.RunnerName),
		}
		return nil
	})
	if err != nil {
		return betmatic.BetRequest{}, err
	}
	return req, nil
}

// Submit builds and submits the notification for one opportunity record.
func (m *Mapper) Submit(ctx context.Context, record string) error {
	req, err := m.BuildNotification(ctx, record)
	if err != nil {
		return err
	}

	return m.session.Authenticated(ctx, func(ctx context.Context, token string) error {
		resp, err := m.client.CreateBet(ctx, token, req)
		if err != nil {
			return err
		}
		m.logger.Info("bet notification submitted",
			slog.Int("bet_id", resp.ID),
			slog.String("status", resp.Status),
			slog.Int("competition_id", req.CompetitionID),
			slog.Int("bookmaker_id", req.BookmakerID),
			slog.String("amount", req.Amount.String()),
		)
		return nil
	})
}

// resolveCompetition finds the platform competition matching the opportunity's
// track, race type, and race number within today's date window.
func (m *Mapper) resolveCompetition(ctx context.Context, token string, parsed domain.ParsedOpportunity) (int, error) {
	date := m.now().UTC().Format("2006-01-02")
	comps, err := m.client.ListCompetitions(ctx, token, date, date)
	if err != nil {
		return 0, err
	}

	for _, c := range comps {
		if strings.EqualFold(c.Track, parsed.Track) &&
			strings.EqualFold(c.EventType, string(parsed.RaceType)) &&
			c.RaceNumber == parsed.RaceNumber {
			return c.ID, nil
		}
	}
	return 0, retry.Permanent(fmt.Errorf("betting: %s %s R%d on %s: %w",
		parsed.RaceType, parsed.Track, parsed.RaceNumber, date, domain.ErrCompetitionNotFound))
}

// resolveBookmaker finds the platform bookmaker id by name.
func (m *Mapper) resolveBookmaker(ctx context.Context, token, name string) (int, error) {
	books, err := m.client.ListBookmakers(ctx, token)
	if err != nil {
		return 0, err
	}
	for _, b := range books {
		if strings.EqualFold(b.Name, name) {
			return b.ID, nil
		}
	}
	return 0, retry.Permanent(fmt.Errorf("betting: bookmaker %q: %w", name, domain.ErrBookmakerNotFound))
}

// wagerAmount returns the configured base stake, scaled down in testing mode.
func (m *Mapper) wagerAmount() decimal.Decimal {
	if m.cfg.TestingMode && m.cfg.TestingMultiplier.IsPositive() {
		return m.cfg.BaseAmount.Mul(m.cfg.TestingMultiplier).Round(2)
	}
	return m.cfg.BaseAmount
}
