package protocol

import (
	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/gamemath"
)

// Response kinds.
const (
	RespJoin           = "Join"
	RespGameData       = "GameData"
	RespHistory        = "History"
	RespTournamentInfo = "TournamentInfo"
	RespError          = "Error"
)

// Envelope wraps a response body with the transport metadata the handler
// needs: the next accepted request id and whether the rendered body may be
// served again for a retransmitted request id.
type Envelope struct {
	Body   any
	NextID string
	Cache  bool
	Status int
}

// ErrorResponse is the single error packet surfaced for any player-visible
// failure.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewError builds an error envelope from any error; AppError messages pass
// through verbatim.
func NewError(err error) *Envelope {
	msg := err.Error()
	if appErr, ok := err.(*domain.AppError); ok {
		msg = appErr.Message
	}
	return &Envelope{Body: &ErrorResponse{Kind: RespError, Message: msg}, Status: 200}
}

// BetTables is the validator state shipped to the client on join.
type BetTables struct {
	Bets         []int32 `json:"bets"`
	Lines        []int   `json:"lines"`
	Denomination []int32 `json:"denomination"`
	BetCounters  []int   `json:"betCounters"`
	DefaultBet   int32   `json:"defaultBet"`
	DefaultLine  int     `json:"defaultLine"`
	DefaultDenom int32   `json:"defaultDenom"`
}

// JoinResponse is returned after Login+Join.
type JoinResponse struct {
	Kind     string            `json:"kind"`
	UserID   int64             `json:"userId"`
	Currency string            `json:"currency"`
	Balance  int64             `json:"balance"`
	Tables   BetTables         `json:"tables"`
	NextAct  domain.ActionKind `json:"nextAct"`
	Restore  string            `json:"restore,omitempty"`
}

// GameDataResponse carries one spin-class result.
type GameDataResponse struct {
	Kind       string               `json:"kind"`
	Act        domain.ActionKind    `json:"act"`
	NextAct    domain.ActionKind    `json:"nextAct"`
	Total      int64                `json:"total"`
	Balance    int64                `json:"balance"`
	Stops      []int                `json:"stops,omitempty"`
	Gains      []gamemath.Gain      `json:"gains,omitempty"`
	Special    string               `json:"special,omitempty"`
	Restore    string               `json:"restore,omitempty"`
	FreeLeft   int                  `json:"freeLeft,omitempty"`
	Jackpots   map[string]int64     `json:"jackpots,omitempty"`
	Tournament *TournamentWinNotice `json:"tournament,omitempty"`
}

// TournamentWinNotice is attached to the spin that consumes a pending win.
type TournamentWinNotice struct {
	Tour   string `json:"tour"`
	Place  int    `json:"place"`
	Amount int64  `json:"amount"`
}

// HistoryResponse lists recent rounds with their actions.
type HistoryResponse struct {
	Kind   string                `json:"kind"`
	Rounds []domain.RoundHistory `json:"rounds"`
}

// TournamentInfoResponse reports the session's tournament standing.
type TournamentInfoResponse struct {
	Kind    string          `json:"kind"`
	Tour    string          `json:"tour,omitempty"`
	Place   int             `json:"place,omitempty"`
	Balance decimal.Decimal `json:"balance,omitempty"`
}

// TournamentResult is the fan-out summary returned to the tournament server.
type TournamentResult struct {
	Winners     map[int64][]domain.TournamentAward `json:"winners"`
	Gains       []domain.TournamentGain            `json:"gains"`
	BalanceUser map[int64]domain.UserBalance       `json:"balanceUser"`
}
