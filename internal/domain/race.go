// Package domain holds the core data model shared by the scanner, the
// platform clients, and the betting bridge: races, runners, prices, and
// detected opportunities.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaceType is the discipline of a race as reported by the data provider.
type RaceType string

const (
	RaceTypeGreyhound RaceType = "Greyhound"
	RaceTypeHarness   RaceType = "Harness"
	RaceTypeGalloping RaceType = "Galloping"
)

// RaceStatus is the provider-side betting status of a race.
type RaceStatus string

const (
	RaceStatusOpen      RaceStatus = "Open"
	RaceStatusSuspended RaceStatus = "Suspended"
	RaceStatusClosed    RaceStatus = "Closed"
	RaceStatusAbandoned RaceStatus = "Abandoned"
)

// Meeting describes the race meeting a race belongs to.
type Meeting struct {
	ID       string
	Track    string
	Location string // state code, e.g. "VIC"
	Type     RaceType
	Date     string // provider date string, YYYY-MM-DD
}

// Race is an immutable snapshot of a single race as fetched from the data
// provider. It is re-fetched every scan cycle and never mutated in place.
type Race struct {
	ID        string
	Meeting   Meeting
	Name      string
	Number    int
	Status    RaceStatus
	StartTime time.Time
	Runners   []Runner
}

// TimeToJump returns the remaining time until the scheduled start relative to
// now. Negative when the race has already jumped.
func (r Race) TimeToJump(now time.Time) time.Duration {
	return r.StartTime.Sub(now)
}

// BookmakerPrice is one bookmaker's fixed win price for a runner.
type BookmakerPrice struct {
	Bookmaker string
	FixedWin  decimal.Decimal
}

// Runner is a runner in a race together with its current prices. A zero
// LayPrice means no usable exchange lay price was available.
type Runner struct {
	ID            string
	Name          string
	Number        int
	Scratched     bool
	LayPrice      decimal.Decimal
	BookmakerOdds []BookmakerPrice
}

// HasLayPrice reports whether the runner carries a usable exchange lay price.
func (r Runner) HasLayPrice() bool {
	return r.LayPrice.IsPositive()
}
