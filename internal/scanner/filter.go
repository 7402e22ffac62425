// Package scanner implements the opportunity-detection pipeline: race
// eligibility filtering, price comparison, deduplication, and the periodic
// scan loop that ties them together.
package scanner

import (
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// startedGrace tolerates small clock skew between the provider and this
// process: races that jumped less than a minute ago are still considered
// upcoming, anything older is dropped outright.
const startedGrace = time.Minute

// FilterConfig holds the race eligibility rules.
type FilterConfig struct {
	MinTimeToJump time.Duration
	MaxTimeToJump time.Duration
	RaceTypes     []domain.RaceType
	Locations     []string
}

// Filter decides which races are worth scanning. It is a pure function of
// (race, now, config); malformed races are simply ineligible.
type Filter struct {
	cfg       FilterConfig
	raceTypes map[domain.RaceType]bool
	locations map[string]bool
}

// NewFilter creates a Filter from the given rules. Empty race type or
// location lists match everything.
func NewFilter(cfg FilterConfig) *Filter {
	f := &Filter{
		cfg:       cfg,
		raceTypes: make(map[domain.RaceType]bool, len(cfg.RaceTypes)),
		locations: make(map[string]bool, len(cfg.Locations)),
	}
	for _, t := range cfg.RaceTypes {
		f.raceTypes[t] = true
	}
	for _, l := range cfg.Locations {
		f.locations[l] = true
	}
	return f
}

// Eligible reports whether the race should proceed to price comparison at the
// given instant. The time window is boundary-inclusive on both ends.
func (f *Filter) Eligible(race domain.Race, now time.Time) bool {
	switch race.Status {
	case domain.RaceStatusOpen, domain.RaceStatusSuspended:
	default:
		return false
	}

	if race.StartTime.IsZero() {
		return false
	}
	if !race.StartTime.After(now.Add(-startedGrace)) {
		return false
	}

	ttj := race.TimeToJump(now)
	if ttj < f.cfg.MinTimeToJump || ttj > f.cfg.MaxTimeToJump {
		return false
	}

	if len(f.raceTypes) > 0 && !f.raceTypes[race.Meeting.Type] {
		return false
	}
	if len(f.locations) > 0 && !f.locations[race.Meeting.Location] {
		return false
	}
	return true
}
