package domain

import "github.com/shopspring/decimal"

// User is the account-service view of a player used at login.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
	// Per-user attributes loaded at login. Zero values mean "no bound".
	MaxWin     int64  `json:"maxWin,omitempty"`
	MaxStake   int64  `json:"maxStake,omitempty"`
	RetryCfg   string `json:"retryCfg,omitempty"`
	RequestCfg string `json:"requestCfg,omitempty"`
}

// Percent is the per-user stake table: comma-separated possible bets and
// denominations plus the payout percent group.
type Percent struct {
	UserID       int64
	PossBets     *string
	Denomination *string
	Percent      int
}

// Currency carries the exchange rate to EUR for one ISO code.
type Currency struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// Game is the registered game row.
type Game struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MathClass string `json:"mathClass"`
	// Take/win step policy, see gamemath.Policy. Take is a percentage in
	// [MIN_TAKE, MAX_TAKE]; Win is the ceiling in EUR.
	Take int   `json:"take"`
	Win  int64 `json:"win"`
	// Jackpot ids contributed to by this game, ordered.
	JackpotIDs []int64 `json:"jackpotIds,omitempty"`
}

// LaunchInfo is one admissible launch host. Blocked hosts are never picked.
type LaunchInfo struct {
	ID       int64  `json:"id"`
	HostName string `json:"hostName"`
	Block    bool   `json:"block"`
}
