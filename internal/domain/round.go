package domain

import "time"

// RoundStatus is the terminal disposition of a round with respect to the
// account service.
type RoundStatus string

const (
	StatusSuccess     RoundStatus = "SUCCESS"
	StatusRemoteError RoundStatus = "REMOTE_ERROR"
	StatusDecline     RoundStatus = "DECLINE"
	StatusRollback    RoundStatus = "ROLLBACK"
)

// RoundDetail marks how a round was funded. RICH rounds are promo-funded:
// the wallet sees a zero wager and promo bookkeeping carries the stake.
type RoundDetail string

const (
	DetailNormal RoundDetail = "NORMAL"
	DetailRich   RoundDetail = "RICH"
)

// Round is one play of a game. CommonID is the cross-system round identifier
// and is globally unique.
type Round struct {
	ID         int64       `json:"id"`
	CommonID   int64       `json:"commonId"`
	GameID     int64       `json:"gameId"`
	UserID     int64       `json:"userId"`
	OpenTime   time.Time   `json:"openTime"`
	CloseTime  *time.Time  `json:"closeTime,omitempty"`
	Bet        int32       `json:"bet"`
	Line       int32       `json:"line"`
	Denom      int32       `json:"denom"`
	Reels      *int32      `json:"reels,omitempty"`
	Multi      int32       `json:"multi"`
	BetCounter int32       `json:"betCounter"`
	Stake      int64       `json:"stake"`
	Win        *int64      `json:"win,omitempty"`
	Balance    *int64      `json:"balance,omitempty"`
	Detail     RoundDetail `json:"detail"`
	Status     RoundStatus `json:"status"`
}

// Open reports whether the round has not been closed yet.
func (r *Round) Open() bool { return r.CloseTime == nil }

// CommonRound is the cross-system identity row created once per round.
type CommonRound struct {
	ID     int64     `json:"id"`
	UserID int64     `json:"userId"`
	GameID int64     `json:"gameId"`
	Time   time.Time `json:"time"`
}

// RoundHistory is a round with its actions and merged tournament wins, as
// returned by the history operation.
type RoundHistory struct {
	Round   Round    `json:"round"`
	Actions []Action `json:"actions"`
}
