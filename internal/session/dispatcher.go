package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/admin"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/gamemath"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/spinforge/platform/internal/proxy"
)

// JackpotSource answers contribution lookups for a game's jackpot ids. A
// failed lookup returns an empty map.
type JackpotSource interface {
	Contributions(ctx context.Context, ids []int64) map[string]int64
}

// Dispatcher sequences one session's requests: it enforces the request-id
// nonce, routes typed requests into the admin, performs the wallet calls
// around them and translates every failure into a single Error packet.
// Owned by the session actor; never used concurrently.
type Dispatcher struct {
	logger   *slog.Logger
	admin    *admin.SlotAdmin
	proxy    *proxy.SlotProxy
	jackpots JackpotSource
	tourName string

	nextID      string
	pendingWins []*domain.TournamentGain
}

// NewDispatcher binds an admin and proxy pair and seeds the first nonce.
func NewDispatcher(adm *admin.SlotAdmin, prx *proxy.SlotProxy, jackpots JackpotSource, tourName string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		admin:    adm,
		proxy:    prx,
		jackpots: jackpots,
		tourName: tourName,
		nextID:   uuid.New().String(),
	}
}

// NextID returns the request id the next mutating call must carry.
func (d *Dispatcher) NextID() string { return d.nextID }

// PushWin queues a tournament win for consumption on the next eligible spin.
func (d *Dispatcher) PushWin(gain *domain.TournamentGain) {
	d.pendingWins = append(d.pendingWins, gain)
}

// fail persists the failure when it carries round coordinates, resets the
// machine and renders the single error packet.
func (d *Dispatcher) fail(ctx context.Context, err error) *protocol.Envelope {
	d.admin.OnError(ctx, err)
	return protocol.NewError(err)
}

// Handle runs one raw player request under the nonce protocol.
func (d *Dispatcher) Handle(ctx context.Context, requestID string, raw json.RawMessage) *protocol.Envelope {
	req, err := protocol.ParsePlayerRequest(raw)
	if err != nil {
		return protocol.NewError(domain.ErrBadFormat())
	}
	if req.Kind == protocol.ReqLogin {
		return protocol.NewError(domain.ErrNotLoggedOn())
	}
	if req.Mutating() {
		if requestID == "" {
			return protocol.NewError(domain.ErrNullRequestID())
		}
		if requestID != d.nextID {
			return protocol.NewError(domain.ErrWrongRequestID())
		}
	}

	switch req.Kind {
	case protocol.ReqBetSpin:
		return d.spin(ctx, req)
	case protocol.ReqReSpin:
		return d.featureSpin(ctx, d.admin.Respin)
	case protocol.ReqFreeSpin:
		return d.featureSpin(ctx, d.admin.FreeSpin)
	case protocol.ReqCollect:
		return d.collect(ctx)
	case protocol.ReqHistory:
		return d.history(ctx, req.Limit)
	case protocol.ReqTournamentInfo:
		return d.tournamentInfo()
	}
	return protocol.NewError(domain.ErrBadFormat())
}

// success advances the nonce and marks the rendered body replayable.
func (d *Dispatcher) success(body any) *protocol.Envelope {
	d.nextID = uuid.New().String()
	return &protocol.Envelope{Body: body, NextID: d.nextID, Cache: true, Status: 200}
}

func (d *Dispatcher) spin(ctx context.Context, req *protocol.PlayerRequest) *protocol.Envelope {
	in := gamemath.Request{
		Bet:        req.Bet,
		Line:       req.Line,
		Denom:      req.Denom,
		BetCounter: req.BetCounter,
	}
	resp, round, action, promo, err := d.admin.Spin(ctx, d.proxy.BalanceCents(), in)
	if err != nil {
		return d.fail(ctx, err)
	}

	balance, err := d.proxy.Wager(ctx, action, round, promo)
	if err != nil {
		return d.fail(ctx, err)
	}
	resp.Balance = balance
	if err := d.admin.RoundResult(ctx, round.ID, balance); err != nil {
		d.logger.Error("record round balance", "round_id", round.ID, "error", err)
	}

	hits, hitCount, err := d.proxy.CheckJackpots(ctx, round.Stake, round.ID)
	if err != nil {
		d.logger.Error("jackpot check", "round_id", round.ID, "error", err)
	}
	if hitCount > 0 {
		resp.Jackpots = hits
	} else {
		if d.jackpots != nil {
			if ids := d.admin.Game().JackpotIDs; len(ids) > 0 {
				resp.Jackpots = d.jackpots.Contributions(ctx, ids)
			}
		}
		d.consumeWin(ctx, resp)
	}
	return d.success(resp)
}

// consumeWin pays out at most one queued tournament win on a spin that saw no
// jackpot hit.
func (d *Dispatcher) consumeWin(ctx context.Context, resp *protocol.GameDataResponse) {
	if len(d.pendingWins) == 0 {
		return
	}
	gain := d.pendingWins[0]
	if err := d.proxy.TournamentWin(ctx, gain); err != nil {
		d.logger.Error("tournament win payout", "gain_id", gain.ID, "error", err)
		return
	}
	d.pendingWins = d.pendingWins[1:]
	resp.Tournament = &protocol.TournamentWinNotice{
		Tour:   gain.Tour,
		Place:  gain.Place,
		Amount: gain.Amount,
	}
	if balance, err := d.proxy.RefreshBalance(ctx); err == nil {
		resp.Balance = balance
	}
}

func (d *Dispatcher) featureSpin(ctx context.Context, op func(context.Context, int64) (*protocol.GameDataResponse, *domain.Round, *domain.Action, error)) *protocol.Envelope {
	resp, _, _, err := op(ctx, d.proxy.BalanceCents())
	if err != nil {
		return d.fail(ctx, err)
	}
	return d.success(resp)
}

func (d *Dispatcher) collect(ctx context.Context) *protocol.Envelope {
	resp, round, action, err := d.admin.Collect(ctx, d.proxy.BalanceCents())
	if err != nil {
		return d.fail(ctx, err)
	}
	balance, err := d.proxy.Result(ctx, action, round, resp.Total)
	if err != nil {
		return d.fail(ctx, err)
	}
	resp.Balance = balance
	if err := d.admin.RoundResult(ctx, round.ID, balance); err != nil {
		d.logger.Error("record round balance", "round_id", round.ID, "error", err)
	}
	return d.success(resp)
}

func (d *Dispatcher) history(ctx context.Context, limit int) *protocol.Envelope {
	resp, err := d.admin.History(ctx, limit)
	if err != nil {
		return protocol.NewError(err)
	}
	return &protocol.Envelope{Body: resp, Status: 200}
}

func (d *Dispatcher) tournamentInfo() *protocol.Envelope {
	resp := &protocol.TournamentInfoResponse{
		Kind:    protocol.RespTournamentInfo,
		Tour:    d.tourName,
		Balance: decimal.NewFromInt(d.proxy.BalanceCents()).Div(decimal.NewFromInt(100)),
	}
	return &protocol.Envelope{Body: resp, Status: 200}
}

// Stop settles what can be settled and closes the wallet session: a pending
// collect is taken, an open round is force-closed.
func (d *Dispatcher) Stop(ctx context.Context) {
	cur := d.admin.Current()
	if cur == domain.KindCollect || cur == domain.KindGambleEnd ||
		(cur == domain.KindClose && d.admin.Pending() == domain.KindCollectStart) {
		resp, round, action, err := d.admin.Collect(ctx, d.proxy.BalanceCents())
		if err != nil {
			d.logger.Warn("collect at stop", "error", err)
		} else if _, err := d.proxy.Result(ctx, action, round, resp.Total); err != nil {
			d.logger.Warn("result at stop", "round_id", round.ID, "error", err)
		}
	}
	if _, err := d.admin.CloseRound(ctx); err != nil {
		d.logger.Warn("close round at stop", "error", err)
	}
	if err := d.proxy.Close(ctx); err != nil {
		d.logger.Warn("close wallet session", "error", err)
	}
}
