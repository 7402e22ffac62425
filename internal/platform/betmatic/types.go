package betmatic

import "github.com/shopspring/decimal"

// WagerType selects how the platform sizes the bet.
type WagerType string

const (
	WagerFixedProfit WagerType = "Fixed Profit"
	WagerFixedWin    WagerType = "Fixed Win"
)

// Competition is a platform-side race the notification can target.
type Competition struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Track      string `json:"track"`
	EventType  string `json:"event_type"`
	RaceNumber int    `json:"race_number"`
	StartTime  string `json:"start_datetime"`
}

// Bookmaker is a platform-side bookmaker entry.
type Bookmaker struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BetRequest is the notification-create payload.
type BetRequest struct {
	CompetitionID int             `json:"competition"`
	BookmakerID   int             `json:"bookmaker"`
	WagerType     WagerType       `json:"bet_type"`
	Amount        decimal.Decimal `json:"amount"`
	Runner        string          `json:"runner"`
}

// BetResponse is the platform's acknowledgement of a created bet.
type BetResponse struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	Token string `json:"token"`
}
