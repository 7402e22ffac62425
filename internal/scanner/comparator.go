package scanner

import (
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// Comparator evaluates runners of an eligible race against the opportunity
// condition: a target bookmaker's fixed win price meets or exceeds the
// exchange lay price. Pure in-memory computation over already-fetched data.
type Comparator struct {
	bookmakers map[string]bool
}

// NewComparator creates a Comparator restricted to the given bookmakers. An
// empty list means every bookmaker is considered.
func NewComparator(bookmakers []string) *Comparator {
	m := make(map[string]bool, len(bookmakers))
	for _, b := range bookmakers {
		m[b] = true
	}
	return &Comparator{bookmakers: m}
}

// Candidates returns all qualifying (runner, bookmaker) pairs of the race as
// independent opportunities. Scratched runners and runners without a positive
// lay price never qualify, regardless of the fixed price on offer.
func (c *Comparator) Candidates(race domain.Race, now time.Time) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, runner := range race.Runners {
		if runner.Scratched || !runner.HasLayPrice() {
			continue
		}
		for _, odds := range runner.BookmakerOdds {
			if len(c.bookmakers) > 0 && !c.bookmakers[odds.Bookmaker] {
				continue
			}
			if !odds.FixedWin.IsPositive() {
				continue
			}
			if odds.FixedWin.GreaterThanOrEqual(runner.LayPrice) {
				opps = append(opps, domain.NewOpportunity(race, runner, odds.Bookmaker, odds.FixedWin, runner.LayPrice, now))
			}
		}
	}
	return opps
}
