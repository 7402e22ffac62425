package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpportunityKey identifies an opportunity for deduplication purposes. Two
// opportunities with the same key describe the same mispricing and must only
// be emitted once per process run.
type OpportunityKey struct {
	RaceID    string
	RunnerID  string
	Bookmaker string
}

func (k OpportunityKey) String() string {
	return k.RaceID + ":" + k.RunnerID + ":" + k.Bookmaker
}

// Opportunity is a detected backing/laying mismatch: a bookmaker fixed win
// price that meets or exceeds the exchange lay price for the same runner.
// Opportunities are derived during a scan cycle and never persisted.
type Opportunity struct {
	ID         string
	Race       Race
	Runner     Runner
	Bookmaker  string
	FixedPrice decimal.Decimal
	LayPrice   decimal.Decimal
	DetectedAt time.Time
	Link       string
}

// NewOpportunity builds an Opportunity with a fresh ID.
func NewOpportunity(race Race, runner Runner, bookmaker string, fixed, lay decimal.Decimal, now time.Time) Opportunity {
	return Opportunity{
		ID:         uuid.NewString(),
		Race:       race,
		Runner:     runner,
		Bookmaker:  bookmaker,
		FixedPrice: fixed,
		LayPrice:   lay,
		DetectedAt: now,
		Link:       RaceLink(race),
	}
}

// Key returns the dedup key for this opportunity.
func (o Opportunity) Key() OpportunityKey {
	return OpportunityKey{RaceID: o.Race.ID, RunnerID: o.Runner.ID, Bookmaker: o.Bookmaker}
}

// raceTypeCodes maps race types to the single-letter code used in provider
// race URLs. Unknown types fall back to "R".
var raceTypeCodes = map[RaceType]string{
	RaceTypeGreyhound: "G",
	RaceTypeHarness:   "H",
	RaceTypeGalloping: "R",
}

// RaceLink builds the provider web URL for a race.
func RaceLink(race Race) string {
	code, ok := raceTypeCodes[race.Meeting.Type]
	if !ok {
		code = "R"
	}
	return fmt.Sprintf("https://www.betwatch.com/app/racing/%s/%s/%s/%d",
		race.StartTime.UTC().Format("2006-01-02"), code,
		url.PathEscape(race.Meeting.Track), race.Number)
}

// ---------------------------------------------------------------------------
// Opportunity text record
// ---------------------------------------------------------------------------
//
// The scanner hands opportunities to the betting bridge as a single-line
// record of pipe-separated key=value pairs. Values are query-escaped so track
// and runner names may contain any character, including '|' and '='. This
// format is the wire contract between the two halves of the system; bump the
// "v" field when changing the field set.

const recordVersion = "1"

// ParsedOpportunity is the field set carried by an opportunity text record.
type ParsedOpportunity struct {
	RaceType     RaceType
	Track        string
	RaceNumber   int
	RunnerName   string
	RunnerNumber int
	Bookmaker    string
	FixedPrice   decimal.Decimal
	LayPrice     decimal.Decimal
	Link         string
}

// EncodeText serializes the opportunity into its text record form.
func (o Opportunity) EncodeText() string {
	pairs := []struct{ k, v string }{
		{"v", recordVersion},
		{"type", string(o.Race.Meeting.Type)},
		{"track", o.Race.Meeting.Track},
		{"race", strconv.Itoa(o.Race.Number)},
		{"runner", o.Runner.Name},
		{"number", strconv.Itoa(o.Runner.Number)},
		{"bookmaker", o.Bookmaker},
		{"fixed", o.FixedPrice.String()},
		{"lay", o.LayPrice.String()},
		{"link", o.Link},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.k+"="+url.QueryEscape(p.v))
	}
	return strings.Join(parts, "|")
}

// ParseOpportunityText parses a text record produced by EncodeText. It
// returns an error wrapping ErrParse when the record is malformed or a
// required field is missing.
func ParseOpportunityText(s string) (ParsedOpportunity, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(strings.TrimSpace(s), "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return ParsedOpportunity{}, fmt.Errorf("%w: malformed pair %q", ErrParse, part)
		}
		dec, err := url.QueryUnescape(v)
		if err != nil {
			return ParsedOpportunity{}, fmt.Errorf("%w: field %q: %v", ErrParse, k, err)
		}
		fields[k] = dec
	}

	if fields["v"] != recordVersion {
		return ParsedOpportunity{}, fmt.Errorf("%w: unsupported record version %q", ErrParse, fields["v"])
	}
	for _, req := range []string{"type", "track", "race", "runner", "bookmaker", "fixed", "lay"} {
		if fields[req] == "" {
			return ParsedOpportunity{}, fmt.Errorf("%w: missing field %q", ErrParse, req)
		}
	}

	raceNum, err := strconv.Atoi(fields["race"])
	if err != nil {
		return ParsedOpportunity{}, fmt.Errorf("%w: race number %q", ErrParse, fields["race"])
	}
	runnerNum := 0
	if fields["number"] != "" {
		if runnerNum, err = strconv.Atoi(fields["number"]); err != nil {
			return ParsedOpportunity{}, fmt.Errorf("%w: runner number %q", ErrParse, fields["number"])
		}
	}
	fixed, err := decimal.NewFromString(fields["fixed"])
	if err != nil {
		return ParsedOpportunity{}, fmt.Errorf("%w: fixed price %q", ErrParse, fields["fixed"])
	}
	lay, err := decimal.NewFromString(fields["lay"])
	if err != nil {
		return ParsedOpportunity{}, fmt.Errorf("%w: lay price %q", ErrParse, fields["lay"])
	}

	return ParsedOpportunity{
		RaceType:     RaceType(fields["type"]),
		Track:        fields["track"],
		RaceNumber:   raceNum,
		RunnerName:   fields["runner"],
		RunnerNumber: runnerNum,
		Bookmaker:    fields["bookmaker"],
		FixedPrice:   fixed,
		LayPrice:     lay,
		Link:         fields["link"],
	}, nil
}
