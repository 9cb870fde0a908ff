package proxy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/repository"
)

// SlotProxy owns a session's wallet view: the account service, the session
// currency and the cached balance in cents. It classifies wallet failures
// into the round status the coordinator must persist.
type SlotProxy struct {
	account       AccountService
	gains         repository.GainStore
	retry         *RetryService
	logger        *slog.Logger
	userID        int64
	gameSessionID string
	user          *domain.User
	currency      domain.Currency
	currencyFixed bool
	balance       int64
	jackpotIDs    []int64
}

// Options configure a proxy at login.
type Options struct {
	Account AccountService
	Gains   repository.GainStore
	Retry   *RetryService
	// Currency overrides the user's currency when set.
	Currency   *domain.Currency
	JackpotIDs []int64
	Logger     *slog.Logger
}

// NewSlotProxy builds an unauthenticated proxy; Login completes it.
func NewSlotProxy(opts Options) *SlotProxy {
	return &SlotProxy{
		account:       opts.Account,
		gains:         opts.Gains,
		retry:         opts.Retry,
		logger:        opts.Logger,
		jackpotIDs:    opts.JackpotIDs,
		currency:      orEUR(opts.Currency),
		currencyFixed: opts.Currency != nil,
	}
}

func orEUR(c *domain.Currency) domain.Currency {
	if c != nil {
		return *c
	}
	return domain.Currency{Code: "EUR", Rate: decimal.NewFromInt(1)}
}

func cents(credits decimal.Decimal) int64 {
	return credits.Mul(decimal.NewFromInt(100)).IntPart()
}

// Login authenticates against the account service and loads the user, the
// session currency and the opening balance.
func (p *SlotProxy) Login(ctx context.Context, lc LoginContext) (int64, string, error) {
	user, gameSessionID, err := p.account.Login(ctx, lc)
	if err != nil {
		return 0, "", fmt.Errorf("account login: %w", err)
	}
	p.user = user
	p.userID = user.ID
	p.gameSessionID = gameSessionID
	// an explicitly configured currency wins over the user's own
	if !p.currencyFixed && user.Currency != "" {
		p.currency.Code = user.Currency
	}

	balance, err := p.account.Balance(ctx, user.ID)
	if err != nil {
		return 0, "", fmt.Errorf("account balance: %w", err)
	}
	p.balance = cents(balance)
	return user.ID, gameSessionID, nil
}

// User returns the logged-in user; nil before Login.
func (p *SlotProxy) User() *domain.User { return p.user }

// Currency returns the session currency.
func (p *SlotProxy) Currency() domain.Currency { return p.currency }

// SetCurrency installs the resolved currency with its exchange rate.
func (p *SlotProxy) SetCurrency(c domain.Currency) { p.currency = c }

// BalanceCents returns the cached balance in cents.
func (p *SlotProxy) BalanceCents() int64 { return p.balance }

// SetBalance replaces the cached balance, in cents.
func (p *SlotProxy) SetBalance(v int64) { p.balance = v }

// RefreshBalance re-reads the wallet balance.
func (p *SlotProxy) RefreshBalance(ctx context.Context) (int64, error) {
	balance, err := p.account.Balance(ctx, p.userID)
	if err != nil {
		return p.balance, err
	}
	p.balance = cents(balance)
	return p.balance, nil
}

// Wager debits the round's stake. RICH rounds wager zero; promo bookkeeping
// carries the stake. Failures classify into the round status to persist:
// OUT_OF_MONEY declines, rollback-class codes reverse the wager first,
// everything else is a remote error awaiting reconciliation.
func (p *SlotProxy) Wager(ctx context.Context, action *domain.Action, round *domain.Round, promo *domain.PromoValue) (int64, error) {
	amount := round.Stake
	if round.Detail == domain.DetailRich {
		amount = 0
	}
	balance, err := p.account.Wager(ctx, WagerRequest{
		UserID:        p.userID,
		Amount:        amount,
		RoundID:       round.ID,
		CommonID:      round.CommonID,
		ExternalID:    action.ExternalID,
		GameSessionID: p.gameSessionID,
	})
	if err == nil {
		p.balance = cents(balance)
		return p.balance, nil
	}

	accErr, ok := domain.AsAccountError(err)
	if !ok {
		countWalletError("wager", domain.RCUnknown)
		return p.balance, &domain.AdminError{
			RoundID: round.ID, ActionID: action.ID,
			Status: domain.StatusRemoteError, Cause: err,
		}
	}
	countWalletError("wager", accErr.RC)

	status := domain.StatusRemoteError
	switch {
	case accErr.RC == domain.RCOutOfMoney:
		status = domain.StatusDecline
	case domain.IsRollbackRC(accErr.RC):
		status = domain.StatusRollback
		if rbErr := p.account.Rollback(ctx, RollbackRequest{
			UserID:     p.userID,
			Amount:     amount,
			RoundID:    round.ID,
			ExternalID: action.ExternalID,
		}); rbErr != nil {
			p.logger.Error("rollback failed", "round_id", round.ID, "error", rbErr)
		}
	}
	return p.balance, &domain.AdminError{
		RoundID: round.ID, ActionID: action.ID,
		Status: status, Cause: accErr,
	}
}

// Result credits a round's win. OPERATION_NOT_ALLOWED means the wallet
// already settled the round: the balance is silently re-read. Transient
// failures go to the deferred retry worker when one is configured.
func (p *SlotProxy) Result(ctx context.Context, action *domain.Action, round *domain.Round, win int64) (int64, error) {
	req := ResultRequest{
		UserID:        p.userID,
		Amount:        win,
		RoundID:       round.ID,
		CommonID:      round.CommonID,
		ExternalID:    action.ExternalID,
		GameSessionID: p.gameSessionID,
		Final:         !round.Open(),
	}
	balance, err := p.account.Result(ctx, req)
	if err == nil {
		p.balance = cents(balance)
		return p.balance, nil
	}

	accErr, ok := domain.AsAccountError(err)
	if ok && accErr.RC == domain.RCOperationNotAllowed {
		return p.RefreshBalance(ctx)
	}
	if ok {
		countWalletError("result", accErr.RC)
	} else {
		countWalletError("result", domain.RCUnknown)
	}
	if ok && domain.IsRollbackRC(accErr.RC) && p.retry != nil {
		if p.retry.Defer(func(ctx context.Context) error {
			_, err := p.account.Result(ctx, req)
			return err
		}) {
			p.logger.Warn("result deferred", "round_id", round.ID, "rc", accErr.RC)
			return p.balance, nil
		}
	}
	return p.balance, &domain.AdminError{
		RoundID: round.ID, ActionID: action.ID,
		Status: domain.StatusRemoteError, Cause: err,
	}
}

// CheckJackpots asks the wallet whether any configured jackpot hit for this
// stake. Returns the win map and the hit count.
func (p *SlotProxy) CheckJackpots(ctx context.Context, stake, roundID int64) (map[string]int64, int, error) {
	if len(p.jackpotIDs) == 0 {
		return nil, 0, nil
	}
	hit, err := p.account.Jackpots(ctx, p.userID, stake, roundID)
	if err != nil {
		return nil, 0, fmt.Errorf("check jackpots: %w", err)
	}
	return hit.Wins, hit.Count, nil
}

// TournamentWin commits an award to the wallet. The OptLock claim runs
// first: only the caller that wins the claim credits the wallet, so a
// re-delivered award pays at most once.
func (p *SlotProxy) TournamentWin(ctx context.Context, gain *domain.TournamentGain) error {
	won, err := p.gains.MarkCommitted(ctx, gain.ID, gain.OptLock, domain.RCSuccess, "ok")
	if err != nil {
		return err
	}
	if !won {
		p.logger.Warn("tournament gain already committed", "gain_id", gain.ID)
		return nil
	}
	if err := p.account.TournamentWin(ctx, gain); err != nil {
		return fmt.Errorf("tournament win: %w", err)
	}
	return nil
}

// Close ends the wallet game session.
func (p *SlotProxy) Close(ctx context.Context) error {
	if p.gameSessionID == "" {
		return nil
	}
	return p.account.Close(ctx, p.gameSessionID)
}
