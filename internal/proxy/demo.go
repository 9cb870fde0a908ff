package proxy

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
)

// DemoAccountService is an in-memory wallet for demo sessions and tests.
// Every user starts with the configured amount of credits.
type DemoAccountService struct {
	mu          sync.Mutex
	balances    map[int64]decimal.Decimal
	startAmount decimal.Decimal
	currency    string
	logger      *slog.Logger
}

// NewDemoAccountService creates the demo wallet. startAmount is in credits.
func NewDemoAccountService(startAmount int64, currency string, logger *slog.Logger) *DemoAccountService {
	if currency == "" {
		currency = "EUR"
	}
	return &DemoAccountService{
		balances:    make(map[int64]decimal.Decimal),
		startAmount: decimal.NewFromInt(startAmount),
		currency:    currency,
		logger:      logger,
	}
}

func demoUserID(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	id := int64(h.Sum64() & (1<<62 - 1))
	if id == 0 {
		id = 1
	}
	return id
}

func (s *DemoAccountService) Login(ctx context.Context, lc LoginContext) (*domain.User, string, error) {
	id := demoUserID(lc.UserName)
	if lc.DemoUserID != nil {
		id = *lc.DemoUserID
	}
	s.mu.Lock()
	if _, ok := s.balances[id]; !ok {
		s.balances[id] = s.startAmount
	}
	s.mu.Unlock()

	user := &domain.User{
		ID:       id,
		Name:     lc.UserName,
		Currency: s.currency,
		Country:  lc.Country,
	}
	return user, uuid.New().String(), nil
}

func (s *DemoAccountService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *DemoAccountService) Wager(ctx context.Context, req WagerRequest) (decimal.Decimal, error) {
	amount := decimal.NewFromInt(req.Amount).Div(decimal.NewFromInt(100))
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[req.UserID]
	if balance.LessThan(amount) {
		return balance, &domain.AccountError{RC: domain.RCOutOfMoney, Message: "insufficient funds"}
	}
	balance = balance.Sub(amount)
	s.balances[req.UserID] = balance
	return balance, nil
}

func (s *DemoAccountService) Result(ctx context.Context, req ResultRequest) (decimal.Decimal, error) {
	amount := decimal.NewFromInt(req.Amount).Div(decimal.NewFromInt(100))
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[req.UserID].Add(amount)
	s.balances[req.UserID] = balance
	return balance, nil
}

func (s *DemoAccountService) Rollback(ctx context.Context, req RollbackRequest) error {
	amount := decimal.NewFromInt(req.Amount).Div(decimal.NewFromInt(100))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[req.UserID] = s.balances[req.UserID].Add(amount)
	return nil
}

func (s *DemoAccountService) Jackpots(ctx context.Context, userID, stake, roundID int64) (*JackpotHit, error) {
	return &JackpotHit{Wins: map[string]int64{}}, nil
}

func (s *DemoAccountService) TournamentWin(ctx context.Context, gain *domain.TournamentGain) error {
	amount := decimal.NewFromInt(gain.Amount).Div(decimal.NewFromInt(100))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[gain.UserID] = s.balances[gain.UserID].Add(amount)
	return nil
}

func (s *DemoAccountService) Close(ctx context.Context, gameSessionID string) error { return nil }
