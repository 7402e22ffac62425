package betwatch

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// API response shapes for the Betwatch GraphQL schema. Prices arrive as JSON
// numbers but are decoded into decimals to avoid float drift in comparisons.

type graphqlResponse struct {
	Data   *queryData     `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type queryData struct {
	Races []apiRace `json:"races"`
}

type apiRace struct {
	ID        string      `json:"id"`
	Meeting   apiMeeting  `json:"meeting"`
	Name      string      `json:"name"`
	Number    int         `json:"number"`
	Status    string      `json:"status"`
	StartTime string      `json:"startTime"`
	Runners   []apiRunner `json:"runners"`
}

type apiMeeting struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Track    string `json:"track"`
	Type     string `json:"type"`
	Date     string `json:"date"`
}

type apiRunner struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Number           int                  `json:"number"`
	ScratchedTime    *string              `json:"scratchedTime"`
	BookmakerMarkets []apiBookmakerMarket `json:"bookmakerMarkets"`
	BetfairMarkets   []apiBetfairMarket   `json:"betfairMarkets"`
}

type apiBookmakerMarket struct {
	ID        string    `json:"id"`
	Bookmaker string    `json:"bookmaker"`
	FixedWin  *apiPrice `json:"fixedWin"`
}

type apiBetfairMarket struct {
	ID         string          `json:"id"`
	MarketName string          `json:"marketName"`
	Back       []apiPriceLevel `json:"back"`
	Lay        []apiPriceLevel `json:"lay"`
}

type apiPrice struct {
	Price decimal.Decimal `json:"price"`
}

type apiPriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// toDomain converts an API race into the domain model, parsing the RFC 3339
// start time. Races with an unparseable start time return ok=false and are
// dropped by the caller; the filter treats a missing start time as
// ineligible anyway.
func (r apiRace) toDomain() (domain.Race, bool) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return domain.Race{}, false
	}

	runners := make([]domain.Runner, 0, len(r.Runners))
	for _, rn := range r.Runners {
		runners = append(runners, rn.toDomain())
	}

	return domain.Race{
		ID: r.ID,
		Meeting: domain.Meeting{
			ID:       r.Meeting.ID,
			Track:    r.Meeting.Track,
			Location: r.Meeting.Location,
			Type:     domain.RaceType(r.Meeting.Type),
			Date:     r.Meeting.Date,
		},
		Name:      r.Name,
		Number:    r.Number,
		Status:    domain.RaceStatus(r.Status),
		StartTime: start.UTC(),
		Runners:   runners,
	}, true
}

func (r apiRunner) toDomain() domain.Runner {
	odds := make([]domain.BookmakerPrice, 0, len(r.BookmakerMarkets))
	for _, m := range r.BookmakerMarkets {
		if m.Bookmaker == "" || m.FixedWin == nil || !m.FixedWin.Price.IsPositive() {
			continue
		}
		odds = append(odds, domain.BookmakerPrice{
			Bookmaker: m.Bookmaker,
			FixedWin:  m.FixedWin.Price,
		})
	}

	return domain.Runner{
		ID:            r.ID,
		Name:          r.Name,
		Number:        r.Number,
		Scratched:     r.ScratchedTime != nil,
		LayPrice:      bestLayPrice(r.BetfairMarkets),
		BookmakerOdds: odds,
	}
}

// bestLayPrice extracts the best available exchange lay price from explicitly
// named win markets. Place markets ("Place", "To Be Placed") are excluded, and
// the first lay level is the best offer. Returns zero when no usable price
// exists.
func bestLayPrice(markets []apiBetfairMarket) decimal.Decimal {
	for _, m := range markets {
		name := strings.ToLower(m.MarketName)
		if !strings.Contains(name, "win") ||
			strings.Contains(name, "place") ||
			strings.Contains(name, " to be placed") {
			continue
		}
		if len(m.Lay) == 0 {
			continue
		}
		if p := m.Lay[0].Price; p.IsPositive() {
			return p
		}
	}
	return decimal.Zero
}
