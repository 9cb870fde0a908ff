package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentAward is one inbound award from the tournament server.
// Only awards whose IP matches this server's tournament IP are committed
// locally; RemoteCode == RCNotDone marks awards not yet paid out.
type TournamentAward struct {
	ID         int64           `json:"id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	User       int64           `json:"user" validate:"required"`
	RemoteID   int64           `json:"remoteId" validate:"required"`
	Tour       string          `json:"tour"`
	Place      int             `json:"place"`
	Balance    decimal.Decimal `json:"balance"`
	EventID    int64           `json:"eventId"`
	IP         string          `json:"ip"`
	RemoteCode int             `json:"remoteCode"`
}

// TournamentGain is the persisted award record. InboundID is unique and makes
// batch ingestion idempotent; OptLock guards the outbound payout commit.
type TournamentGain struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	InboundID     int64           `json:"inboundId"`
	Amount        int64           `json:"amount"`
	AmountEuro    decimal.Decimal `json:"amountEuro"`
	Place         int             `json:"place"`
	RemoteCode    int             `json:"remoteCode"`
	Tour          string          `json:"tour"`
	TimeDone      time.Time       `json:"timeDone"`
	RoundID       int64           `json:"roundId"`
	RemoteID      *int64          `json:"remoteId,omitempty"`
	RemoteMessage *string         `json:"remoteMessage,omitempty"`
	OptLock       int             `json:"optLock"`
}

// UserBalance is the tournament-side balance snapshot keyed by remote id.
type UserBalance struct {
	EventID int64           `json:"eventId"`
	Balance decimal.Decimal `json:"balance"`
	AwardID int64           `json:"awardId"`
}
