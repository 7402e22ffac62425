package betwatch

import (
	"testing"

	"github.com/shopspring/decimal"
)

func level(price string) apiPriceLevel {
	return apiPriceLevel{Price: decimal.RequireFromString(price)}
}

func TestBestLayPrice(t *testing.T) {
	tests := []struct {
		name    string
		markets []apiBetfairMarket
		want    string
	}{
		{
			name: "explicit win market",
			markets: []apiBetfairMarket{
				{MarketName: "R5 Win", Lay: []apiPriceLevel{level("3.40"), level("3.45")}},
			},
			want: "3.40",
		},
		{
			name: "place market ignored",
			markets: []apiBetfairMarket{
				{MarketName: "R5 Place", Lay: []apiPriceLevel{level("1.50")}},
				{MarketName: "R5 Win", Lay: []apiPriceLevel{level("4.20")}},
			},
			want: "4.20",
		},
		{
			name: "to be placed ignored",
			markets: []apiBetfairMarket{
				{MarketName: "R5 To Be Placed", Lay: []apiPriceLevel{level("1.30")}},
			},
			want: "0",
		},
		{
			name: "no lay levels",
			markets: []apiBetfairMarket{
				{MarketName: "R5 Win", Lay: nil},
			},
			want: "0",
		},
		{
			name: "zero price rejected",
			markets: []apiBetfairMarket{
				{MarketName: "R5 Win", Lay: []apiPriceLevel{level("0")}},
			},
			want: "0",
		},
		{
			name:    "no markets",
			markets: nil,
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bestLayPrice(tt.markets)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("bestLayPrice = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunnerToDomain(t *testing.T) {
	scratched := "2026-08-28T08:00:00Z"
	r := apiRunner{
		ID:            "rn1",
		Name:          "Fast Dog",
		Number:        3,
		ScratchedTime: &scratched,
		BookmakerMarkets: []apiBookmakerMarket{
			{Bookmaker: "Sportsbet", FixedWin: &apiPrice{Price: decimal.RequireFromString("3.50")}},
			{Bookmaker: "Tab", FixedWin: nil},                                              // missing price
			{Bookmaker: "Boombet", FixedWin: &apiPrice{Price: decimal.Zero}},               // zero price
			{Bookmaker: "", FixedWin: &apiPrice{Price: decimal.RequireFromString("2.00")}}, // no name
		},
		BetfairMarkets: []apiBetfairMarket{
			{MarketName: "Win", Lay: []apiPriceLevel{level("3.40")}},
		},
	}

	got := r.toDomain()
	if !got.Scratched {
		t.Error("Scratched = false, want true")
	}
	if len(got.BookmakerOdds) != 1 {
		t.Fatalf("len(BookmakerOdds) = %d, want 1", len(got.BookmakerOdds))
	}
	if got.BookmakerOdds[0].Bookmaker != "Sportsbet" {
		t.Errorf("bookmaker = %q", got.BookmakerOdds[0].Bookmaker)
	}
	if !got.HasLayPrice() {
		t.Error("HasLayPrice = false, want true")
	}
}
