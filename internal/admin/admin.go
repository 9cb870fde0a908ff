// Package admin owns the current round: it guards every player act with the
// round machine, drives the math engine, and persists round and action rows.
// Wallet calls stay with the proxy; the dispatcher sequences both.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/fsm"
	"github.com/spinforge/platform/internal/gamemath"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/spinforge/platform/internal/repository"
)

// RoundPublisher receives closed rounds for downstream consumers. Delivery is
// best effort and never blocks round completion.
type RoundPublisher interface {
	PublishRoundClosed(ctx context.Context, round *domain.Round)
}

// SlotAdmin coordinates one session's rounds. Not safe for concurrent use; it
// is owned by exactly one session actor.
type SlotAdmin struct {
	logger    *slog.Logger
	rounds    repository.RoundStore
	gains     repository.GainStore
	ids       repository.IDGenerator
	events    RoundPublisher
	machine   *fsm.Machine
	math      gamemath.SlotMath
	validator *gamemath.Validator
	settings  gamemath.Settings
	game      *domain.Game
	userID    int64

	historyLimit int
	promo        *domain.PromoInfo
	promoUsed    int

	round   *domain.Round
	request gamemath.Request
	// pending is the announced next act: the server event the client is
	// expected to follow up on, or the bare state when nothing is open.
	pending domain.ActionKind
}

// Options assemble an admin for one session.
type Options struct {
	Logger       *slog.Logger
	Rounds       repository.RoundStore
	Gains        repository.GainStore
	IDs          repository.IDGenerator
	Events       RoundPublisher
	Machine      *fsm.Machine
	Math         gamemath.SlotMath
	Validator    *gamemath.Validator
	Game         *domain.Game
	UserID       int64
	HistoryLimit int
	Promo        *domain.PromoInfo
}

// New builds the admin. Init must run before the first player act.
func New(opts Options) *SlotAdmin {
	return &SlotAdmin{
		logger:       opts.Logger,
		rounds:       opts.Rounds,
		gains:        opts.Gains,
		ids:          opts.IDs,
		events:       opts.Events,
		machine:      opts.Machine,
		math:         opts.Math,
		validator:    opts.Validator,
		settings:     opts.Math.Settings(),
		game:         opts.Game,
		userID:       opts.UserID,
		historyLimit: opts.HistoryLimit,
		promo:        opts.Promo,
		pending:      domain.KindBet,
	}
}

// Init restores the session from the last persisted round: an open round
// re-anchors the machine and the math engine at its last action. It returns
// the newest unreconciled error round, if any, so the caller can settle it
// with the wallet and Fix it.
func (a *SlotAdmin) Init(ctx context.Context) (*domain.Round, *domain.Action, error) {
	errRound, errActions, err := a.rounds.FindErrorRound(ctx, a.userID, a.game.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find error round: %w", err)
	}

	round, actions, err := a.rounds.FindLastRound(ctx, a.userID, a.game.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find last round: %w", err)
	}
	if round != nil && round.Open() && round.Status == domain.StatusSuccess && len(actions) > 0 {
		last := actions[0]
		a.machine.Init(last.NextAct)
		a.pending = last.NextAct.Announce()
		if err := a.math.Restore(round, actions); err != nil {
			a.logger.Warn("round restore failed, starting fresh",
				"round_id", round.ID, "error", err)
			a.machine.Reset(domain.KindBet)
			a.pending = domain.KindBet
		} else {
			a.round = round
			a.request = a.validator.FromRound(round, a.validator.MinReels())
		}
	}

	var errAction *domain.Action
	if errRound != nil && len(errActions) > 0 {
		errAction = &errActions[0]
	}
	return errRound, errAction, nil
}

// Join builds the entry packet from the current machine and validator state.
func (a *SlotAdmin) Join(balance int64, currency string) (*protocol.JoinResponse, error) {
	outcome, err := a.math.Join()
	if err != nil {
		return nil, err
	}
	def := a.validator.DefaultRequest(a.settings.DefaultIndex, nil)
	return &protocol.JoinResponse{
		Kind:     protocol.RespJoin,
		UserID:   a.userID,
		Currency: currency,
		Balance:  balance,
		Tables: protocol.BetTables{
			Bets:         a.validator.Bets,
			Lines:        a.validator.Lines,
			Denomination: a.validator.Denomination,
			BetCounters:  a.validator.BetCounters,
			DefaultBet:   def.Bet,
			DefaultLine:  def.Line,
			DefaultDenom: def.Denom,
		},
		NextAct: a.pending,
		Restore: outcome.Restore,
	}, nil
}

// advance records the server event an outcome opens. Feature events move the
// machine immediately; collect-class events wait for the client.
func (a *SlotAdmin) advance(o *gamemath.Outcome) error {
	ev := o.ServerEvent()
	a.pending = ev
	switch ev {
	case domain.KindClose, domain.KindCollectStart, domain.KindFreeCollectStart:
		return nil
	}
	_, err := a.machine.ServerAct(ev)
	return err
}

func (a *SlotAdmin) nextActionID(ctx context.Context) (int64, error) {
	return a.ids.Next(ctx, repository.SeqAction)
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *SlotAdmin) gameData(act domain.ActionKind, o *gamemath.Outcome, balance int64) *protocol.GameDataResponse {
	return &protocol.GameDataResponse{
		Kind:     protocol.RespGameData,
		Act:      act,
		NextAct:  a.pending,
		Total:    o.Total,
		Balance:  balance,
		Stops:    o.Stops,
		Gains:    o.Gains,
		Special:  o.Special,
		Restore:  o.Restore,
		FreeLeft: o.FreeLeft,
	}
}

// Spin opens a new round: normalizes the input, consumes a promo spin when
// one is pending, draws the outcome and persists the common round, the round
// and the opening BET action in one transaction. The wallet wager happens
// after, against the returned round and action.
func (a *SlotAdmin) Spin(ctx context.Context, balance int64, in gamemath.Request) (*protocol.GameDataResponse, *domain.Round, *domain.Action, *domain.PromoValue, error) {
	switch a.machine.Current() {
	case domain.KindBet:
		if _, err := a.machine.ClientAct(domain.KindBet); err != nil {
			return nil, nil, nil, nil, err
		}
	case domain.KindSpin:
		// a failed wager left the bet act already taken
	default:
		return nil, nil, nil, nil, domain.ErrIllegalState(
			fmt.Sprintf("spin from %s", a.machine.Current()))
	}

	a.validator.Correct(&in)
	detail := domain.DetailNormal
	multi := int32(1)
	var promoVal *domain.PromoValue
	if a.promo != nil && a.promoUsed < a.promo.Count {
		pr, ps, err := a.validator.PromoRequest(in.Stake(), a.promo.Stakes)
		if err != nil {
			a.logger.Warn("promo request skipped", "offer_id", a.promo.OfferID, "error", err)
		} else {
			in = pr
			detail = domain.DetailRich
			if ps.Multi > 0 {
				multi = ps.Multi
			}
			offer := a.promo.OfferID
			promoVal = &domain.PromoValue{Out: pr.Stake(), OfferID: &offer}
			a.promoUsed++
		}
	}
	stake := in.Stake()

	commonID, err := a.ids.Next(ctx, repository.SeqCommonRound)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	roundID, err := a.ids.Next(ctx, repository.SeqRound)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	actionID, err := a.nextActionID(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	outcome, err := a.math.Spin(in)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := a.math.PostProcess(outcome); err != nil {
		return nil, nil, nil, nil, err
	}
	if _, err := a.machine.ClientAct(domain.KindSpin); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := a.advance(outcome); err != nil {
		return nil, nil, nil, nil, err
	}

	now := time.Now()
	round := &domain.Round{
		ID:         roundID,
		CommonID:   commonID,
		GameID:     a.game.ID,
		UserID:     a.userID,
		OpenTime:   now,
		Bet:        in.Bet,
		Line:       int32(in.Line),
		Denom:      in.Denom,
		Multi:      multi,
		BetCounter: int32(in.BetCounter),
		Stake:      stake,
		Detail:     detail,
		Status:     domain.StatusSuccess,
	}
	if in.Reels > 0 {
		reels := int32(in.Reels)
		round.Reels = &reels
	}
	action := &domain.Action{
		ID:         actionID,
		RoundID:    roundID,
		Amount:     stake,
		Win:        outcome.Total,
		Kind:       domain.KindBet,
		NextAct:    a.machine.Current(),
		ExternalID: uuid.New().String(),
		TimeDone:   now,
		Stops:      outcome.StopsString(),
		Special:    optStr(outcome.Special),
		Restore:    optStr(outcome.Restore),
	}
	common := &domain.CommonRound{ID: commonID, UserID: a.userID, GameID: a.game.ID, Time: now}

	if err := a.rounds.StoreSpin(ctx, common, round, action, promoVal); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("store spin: %w", err)
	}
	a.round = round
	a.request = in
	return a.gameData(domain.KindSpin, outcome, balance), round, action, promoVal, nil
}

func (a *SlotAdmin) featureSpin(ctx context.Context, balance int64, kind domain.ActionKind, draw func() (*gamemath.Outcome, error)) (*protocol.GameDataResponse, *domain.Round, *domain.Action, error) {
	if a.machine.Current() != kind {
		return nil, nil, nil, domain.ErrIllegalState(
			fmt.Sprintf("%s from %s", kind, a.machine.Current()))
	}
	if a.round == nil {
		return nil, nil, nil, domain.ErrIllegalState("no open round")
	}
	outcome, err := draw()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := a.math.PostProcess(outcome); err != nil {
		return nil, nil, nil, err
	}
	if _, err := a.machine.ClientAct(kind); err != nil {
		return nil, nil, nil, err
	}
	if err := a.advance(outcome); err != nil {
		return nil, nil, nil, err
	}

	actionID, err := a.nextActionID(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	action := &domain.Action{
		ID:         actionID,
		RoundID:    a.round.ID,
		Win:        outcome.Total,
		Kind:       kind,
		NextAct:    a.machine.Current(),
		ExternalID: uuid.New().String(),
		TimeDone:   time.Now(),
		Stops:      outcome.StopsString(),
		Special:    optStr(outcome.Special),
		Restore:    optStr(outcome.Restore),
	}
	if err := a.rounds.StoreAction(ctx, action); err != nil {
		return nil, nil, nil, fmt.Errorf("store action: %w", err)
	}
	return a.gameData(kind, outcome, balance), a.round, action, nil
}

// Respin plays the pending respin on the open round.
func (a *SlotAdmin) Respin(ctx context.Context, balance int64) (*protocol.GameDataResponse, *domain.Round, *domain.Action, error) {
	return a.featureSpin(ctx, balance, domain.KindRespin, a.math.Respin)
}

// FreeSpin plays the next free spin on the open round.
func (a *SlotAdmin) FreeSpin(ctx context.Context, balance int64) (*protocol.GameDataResponse, *domain.Round, *domain.Action, error) {
	return a.featureSpin(ctx, balance, domain.KindFreeSpin, a.math.FreeSpin)
}

// Collect settles the pending win. When free spins remain the round stays
// open and the machine returns to FREE_SPIN; otherwise the round closes with
// its win and close time, and a RICH round bumps its promo stats.
func (a *SlotAdmin) Collect(ctx context.Context, balance int64) (*protocol.GameDataResponse, *domain.Round, *domain.Action, error) {
	if a.round == nil {
		return nil, nil, nil, domain.ErrIllegalState("no open round")
	}
	if a.machine.Current() == domain.KindClose {
		ev := domain.KindCollectStart
		if a.pending == domain.KindFreeCollectStart {
			ev = domain.KindFreeCollectStart
		}
		if _, err := a.machine.ServerAct(ev); err != nil {
			return nil, nil, nil, err
		}
	}

	var kind domain.ActionKind
	switch a.machine.Current() {
	case domain.KindCollect, domain.KindGambleEnd:
		kind = domain.KindCollect
	case domain.KindFreeCollect, domain.KindGambleFreeEnd:
		kind = domain.KindFreeCollect
	default:
		return nil, nil, nil, domain.ErrIllegalState(
			fmt.Sprintf("collect from %s", a.machine.Current()))
	}

	outcome, err := a.math.Collect()
	if err != nil {
		return nil, nil, nil, err
	}
	next, err := a.machine.ClientAct(kind)
	if err != nil {
		return nil, nil, nil, err
	}
	a.pending = next.Announce()

	actionID, err := a.nextActionID(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	now := time.Now()
	action := &domain.Action{
		ID:         actionID,
		RoundID:    a.round.ID,
		Win:        outcome.Total,
		Kind:       kind,
		NextAct:    next,
		ExternalID: uuid.New().String(),
		TimeDone:   now,
		Restore:    optStr(outcome.Restore),
	}
	round := a.round

	var stats *domain.PromoStats
	if next == domain.KindBet {
		round.CloseTime = &now
		win := outcome.Total
		round.Win = &win
		round.Status = domain.StatusSuccess
		if round.Detail == domain.DetailRich && a.promo != nil {
			statsID, err := a.ids.Next(ctx, repository.SeqPromoStats)
			if err != nil {
				return nil, nil, nil, err
			}
			stats = &domain.PromoStats{
				ID:      statsID,
				OfferID: a.promo.OfferID,
				UserID:  a.userID,
				Win:     outcome.Total,
			}
		}
	}
	if err := a.rounds.StoreCollect(ctx, round, action, stats); err != nil {
		return nil, nil, nil, fmt.Errorf("store collect: %w", err)
	}
	if next == domain.KindBet {
		if a.events != nil {
			a.events.PublishRoundClosed(ctx, round)
		}
		a.round = nil
	}
	return a.gameData(kind, outcome, balance), round, action, nil
}

// CloseRound force-closes the open round at session stop. A nil return with
// no error means there was nothing to close.
func (a *SlotAdmin) CloseRound(ctx context.Context) (*domain.Round, error) {
	round := a.round
	if round == nil || !round.Open() {
		a.machine.Reset(domain.KindBet)
		a.pending = domain.KindBet
		return nil, nil
	}
	outcome, err := a.math.Close()
	if err != nil {
		return nil, err
	}
	actionID, err := a.nextActionID(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	win := outcome.Total
	round.CloseTime = &now
	round.Win = &win
	round.Status = domain.StatusSuccess
	action := &domain.Action{
		ID:         actionID,
		RoundID:    round.ID,
		Win:        win,
		Kind:       domain.KindClose,
		NextAct:    domain.KindBet,
		ExternalID: uuid.New().String(),
		TimeDone:   now,
	}
	if err := a.rounds.StoreClose(ctx, round, action); err != nil {
		return nil, fmt.Errorf("store close: %w", err)
	}
	if a.events != nil {
		a.events.PublishRoundClosed(ctx, round)
	}
	a.machine.Reset(domain.KindBet)
	a.pending = domain.KindBet
	a.round = nil
	return round, nil
}

// RoundResult records the post-wallet balance on the round.
func (a *SlotAdmin) RoundResult(ctx context.Context, roundID, balance int64) error {
	return a.rounds.UpdateBalance(ctx, roundID, balance)
}

// Fix clears a reconciled REMOTE_ERROR action and marks its round SUCCESS.
func (a *SlotAdmin) Fix(ctx context.Context, roundID, actionID int64) error {
	return a.rounds.FixAction(ctx, roundID, actionID)
}

// OnError persists a wallet failure on its round and action and re-anchors
// the machine at SPIN so the next spin starts fresh.
func (a *SlotAdmin) OnError(ctx context.Context, err error) {
	var adminErr *domain.AdminError
	if errors.As(err, &adminErr) {
		rc, msg := domain.RCUnknown, adminErr.Error()
		if accErr, ok := domain.AsAccountError(err); ok {
			rc, msg = accErr.RC, accErr.Message
		}
		if uerr := a.rounds.UpdateStatus(ctx, adminErr.RoundID, adminErr.ActionID, adminErr.Status, rc, msg); uerr != nil {
			a.logger.Error("persist round error failed",
				"round_id", adminErr.RoundID, "error", uerr)
		}
		a.round = nil
	}
	a.machine.Reset(domain.KindSpin)
	a.pending = domain.KindSpin
}

// History returns recent rounds, newest first, with tournament wins merged
// into the opening BET action of their round.
func (a *SlotAdmin) History(ctx context.Context, limit int) (*protocol.HistoryResponse, error) {
	if limit <= 0 || limit > a.historyLimit {
		limit = a.historyLimit
	}
	rounds, err := a.rounds.History(ctx, a.userID, a.game.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if a.gains != nil && len(rounds) > 0 {
		ids := make([]int64, len(rounds))
		for i := range rounds {
			ids[i] = rounds[i].Round.ID
		}
		byRound, err := a.gains.FindForRounds(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load history gains: %w", err)
		}
		for i := range rounds {
			gains := byRound[rounds[i].Round.ID]
			if len(gains) == 0 {
				continue
			}
			for j := range rounds[i].Actions {
				if rounds[i].Actions[j].Kind != domain.KindBet {
					continue
				}
				for _, g := range gains {
					rounds[i].Actions[j].Win += g.Amount
				}
				break
			}
		}
	}
	return &protocol.HistoryResponse{Kind: protocol.RespHistory, Rounds: rounds}, nil
}

// Request returns the last normalized spin input, for replays of the bet.
func (a *SlotAdmin) Request() gamemath.Request { return a.request }

// Current returns the machine's announced next act.
func (a *SlotAdmin) Current() domain.ActionKind { return a.machine.Current() }

// Pending returns the announced next act for the client.
func (a *SlotAdmin) Pending() domain.ActionKind { return a.pending }

// Round returns the open round, or nil.
func (a *SlotAdmin) Round() *domain.Round { return a.round }

// Game returns the configured game row.
func (a *SlotAdmin) Game() *domain.Game { return a.game }
