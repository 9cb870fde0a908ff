// Package tournament ingests award batches from the tournament server,
// persists gains idempotently and fans wins out to live sessions.
package tournament

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/spinforge/platform/internal/repository"
)

// WinSink receives a persisted gain for a live session, if one exists.
type WinSink interface {
	DeliverWin(userID int64, gain *domain.TournamentGain) bool
}

// Committer posts payout confirmations back to the tournament server.
type Committer interface {
	CommitWins(ctx context.Context, gains []domain.TournamentGain)
}

// Options wires a Manager.
type Options struct {
	// LocalIP is this server's tournament ingest address. Awards carrying
	// any other ip are reported but never committed here.
	LocalIP string
	// Currency is the platform settlement currency used to convert EUR
	// award amounts into game cents.
	Currency string
	Gains    repository.GainStore
	Games    repository.GameStore
	IDs      repository.IDGenerator
	Sink     WinSink
	// Committer may be nil when no outbound tournament URL is configured.
	Committer Committer
	Logger    *slog.Logger
}

// Manager runs the award ingestion pipeline for one batch at a time.
type Manager struct {
	localIP   string
	currency  string
	gains     repository.GainStore
	games     repository.GameStore
	ids       repository.IDGenerator
	sink      WinSink
	committer Committer
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewManager builds the ingestion manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		localIP:   opts.LocalIP,
		currency:  opts.Currency,
		gains:     opts.Gains,
		games:     opts.Games,
		ids:       opts.IDs,
		sink:      opts.Sink,
		committer: opts.Committer,
		validate:  validator.New(),
		logger:    opts.Logger,
	}
}

// Process ingests one award batch. Newly seen awards for this server are
// persisted as pending gains; awards already paid out trigger an outbound
// commit; every pending gain is offered to its owner's live session.
func (m *Manager) Process(ctx context.Context, awards []domain.TournamentAward) (*protocol.TournamentResult, error) {
	for i := range awards {
		if err := m.validate.Struct(&awards[i]); err != nil {
			return nil, domain.ErrValidation("invalid tournament award: " + err.Error())
		}
	}

	result := &protocol.TournamentResult{
		Winners:     make(map[int64][]domain.TournamentAward),
		BalanceUser: make(map[int64]domain.UserBalance),
	}
	for _, a := range awards {
		result.Winners[a.EventID] = append(result.Winners[a.EventID], a)
		result.BalanceUser[a.RemoteID] = domain.UserBalance{
			EventID: a.EventID,
			Balance: a.Balance,
			AwardID: a.ID,
		}
	}

	var pending []domain.TournamentAward
	for _, a := range awards {
		if a.IP != m.localIP {
			continue
		}
		if a.RemoteCode != domain.RCNotDone {
			continue
		}
		pending = append(pending, a)
	}

	remoteIDs := make([]int64, len(pending))
	for i, a := range pending {
		remoteIDs[i] = a.RemoteID
	}
	existing, err := m.gains.FindByRemoteIDs(ctx, remoteIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]domain.TournamentGain, len(existing))
	for _, g := range existing {
		seen[g.InboundID] = g
	}

	rate := m.userRate(ctx)
	var fresh []domain.TournamentGain
	for _, a := range pending {
		if _, ok := seen[a.RemoteID]; ok {
			continue
		}
		g, err := m.buildGain(ctx, a, rate)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, *g)
	}
	if err := m.gains.Insert(ctx, fresh); err != nil {
		return nil, err
	}

	// gains that a previous batch already paid out only need the outbound
	// confirmation the tournament server is waiting for
	var done, notPerformed []domain.TournamentGain
	for _, g := range existing {
		if g.RemoteCode == domain.RCNotDone {
			notPerformed = append(notPerformed, g)
		} else {
			done = append(done, g)
		}
	}
	if len(done) > 0 && m.committer != nil {
		go m.committer.CommitWins(context.WithoutCancel(ctx), done)
	}

	result.Gains = append(fresh, notPerformed...)
	for i := range result.Gains {
		g := result.Gains[i]
		if m.sink.DeliverWin(g.UserID, &g) {
			m.logger.Info("tournament win delivered",
				"user", g.UserID, "gain", g.ID, "amount", g.Amount)
		}
	}
	return result, nil
}

// userRate resolves the EUR exchange rate of the platform settlement
// currency. Missing rows fall back to a unit rate.
func (m *Manager) userRate(ctx context.Context) decimal.Decimal {
	if m.currency == "" || m.currency == "EUR" {
		return decimal.NewFromInt(1)
	}
	currency, err := m.games.FindCurrency(ctx, m.currency)
	if err != nil {
		m.logger.Warn("currency rate lookup failed, using unit rate",
			"currency", m.currency, "error", err)
		return decimal.NewFromInt(1)
	}
	return currency.Rate
}

func (m *Manager) buildGain(ctx context.Context, a domain.TournamentAward, rate decimal.Decimal) (*domain.TournamentGain, error) {
	id, err := m.ids.Next(ctx, repository.SeqGain)
	if err != nil {
		return nil, err
	}
	awardID := a.ID
	return &domain.TournamentGain{
		ID:         id,
		UserID:     a.User,
		InboundID:  a.RemoteID,
		Amount:     a.Amount.Mul(rate).Mul(decimal.NewFromInt(100)).IntPart(),
		AmountEuro: a.Amount.Round(2),
		Place:      a.Place,
		RemoteCode: domain.RCNotDone,
		Tour:       a.Tour,
		TimeDone:   time.Now(),
		RemoteID:   &awardID,
		OptLock:    0,
	}, nil
}
