// Package proxy is the single point of contact with the external account
// service: login, wager, result, rollback, jackpots and tournament payouts.
package proxy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
)

// LoginContext carries everything the account service needs to open a game
// session.
type LoginContext struct {
	UserName  string
	SessionID string
	GameName  string
	Country   string
	IP        string
	UserAgent string
	// DemoUserID pins the demo account id; nil derives one from the name.
	DemoUserID *int64
}

// WagerRequest is a wallet debit for the opening bet of a round.
type WagerRequest struct {
	UserID        int64
	Amount        int64
	RoundID       int64
	CommonID      int64
	ExternalID    string
	GameSessionID string
}

// ResultRequest is a wallet credit for a round's win.
type ResultRequest struct {
	UserID        int64
	Amount        int64
	RoundID       int64
	CommonID      int64
	ExternalID    string
	GameSessionID string
	Final         bool
}

// RollbackRequest reverses a wager whose outcome is unknown.
type RollbackRequest struct {
	UserID     int64
	Amount     int64
	RoundID    int64
	ExternalID string
}

// JackpotHit is the wallet's answer to a jackpot check.
type JackpotHit struct {
	Wins  map[string]int64
	Count int
}

// AccountService is the wallet contract. All monetary values cross this
// boundary as decimal credits; failures are *domain.AccountError.
type AccountService interface {
	Login(ctx context.Context, lc LoginContext) (*domain.User, string, error)
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	Wager(ctx context.Context, req WagerRequest) (decimal.Decimal, error)
	Result(ctx context.Context, req ResultRequest) (decimal.Decimal, error)
	Rollback(ctx context.Context, req RollbackRequest) error
	Jackpots(ctx context.Context, userID, stake, roundID int64) (*JackpotHit, error)
	TournamentWin(ctx context.Context, gain *domain.TournamentGain) error
	Close(ctx context.Context, gameSessionID string) error
}

// Account service aliases.
const AliasDemo = "demo"

// NewAccountService instantiates the account-service variant for alias.
// The empty alias selects the demo service.
func NewAccountService(alias string, startAmount int64, currency string, logger *slog.Logger) (AccountService, error) {
	switch alias {
	case "", AliasDemo:
		return NewDemoAccountService(startAmount, currency, logger), nil
	}
	return nil, fmt.Errorf("unknown account service alias %q", alias)
}
