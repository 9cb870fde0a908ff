package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/fsm"
	"github.com/spinforge/platform/internal/gamemath"
	"github.com/spinforge/platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedSpin struct {
	common *domain.CommonRound
	round  *domain.Round
	action *domain.Action
	promo  *domain.PromoValue
}

type statusCall struct {
	roundID, actionID int64
	status            domain.RoundStatus
	rc                int
	info              string
}

type fakeRounds struct {
	spins    []storedSpin
	actions  []domain.Action
	collects []*domain.Action
	closes   []*domain.Action
	statuses []statusCall
	fixes    [][2]int64

	lastRound   *domain.Round
	lastActions []domain.Action
	errRound    *domain.Round
	errActions  []domain.Action

	history      []domain.RoundHistory
	historyLimit int
}

func (f *fakeRounds) StoreSpin(_ context.Context, c *domain.CommonRound, r *domain.Round, a *domain.Action, p *domain.PromoValue) error {
	f.spins = append(f.spins, storedSpin{c, r, a, p})
	f.actions = append(f.actions, *a)
	return nil
}

func (f *fakeRounds) StoreAction(_ context.Context, a *domain.Action) error {
	f.actions = append(f.actions, *a)
	return nil
}

func (f *fakeRounds) StoreCollect(_ context.Context, _ *domain.Round, a *domain.Action, _ *domain.PromoStats) error {
	f.collects = append(f.collects, a)
	f.actions = append(f.actions, *a)
	return nil
}

func (f *fakeRounds) StoreClose(_ context.Context, _ *domain.Round, a *domain.Action) error {
	f.closes = append(f.closes, a)
	f.actions = append(f.actions, *a)
	return nil
}

func (f *fakeRounds) UpdateStatus(_ context.Context, roundID, actionID int64, status domain.RoundStatus, rc int, info string) error {
	f.statuses = append(f.statuses, statusCall{roundID, actionID, status, rc, info})
	return nil
}

func (f *fakeRounds) UpdateBalance(context.Context, int64, int64) error { return nil }

func (f *fakeRounds) FixAction(_ context.Context, roundID, actionID int64) error {
	f.fixes = append(f.fixes, [2]int64{roundID, actionID})
	return nil
}

func (f *fakeRounds) FindLastRound(context.Context, int64, int64) (*domain.Round, []domain.Action, error) {
	return f.lastRound, f.lastActions, nil
}

func (f *fakeRounds) FindErrorRound(context.Context, int64, int64) (*domain.Round, []domain.Action, error) {
	return f.errRound, f.errActions, nil
}

func (f *fakeRounds) FindRound(context.Context, int64) (*domain.Round, []domain.Action, error) {
	return nil, nil, nil
}

func (f *fakeRounds) History(_ context.Context, _, _ int64, limit int) ([]domain.RoundHistory, error) {
	f.historyLimit = limit
	out := make([]domain.RoundHistory, len(f.history))
	for i, h := range f.history {
		out[i] = domain.RoundHistory{Round: h.Round, Actions: append([]domain.Action(nil), h.Actions...)}
	}
	return out, nil
}

type fakeIDs struct{ next int64 }

func (f *fakeIDs) Next(context.Context, repository.Sequence) (int64, error) {
	f.next++
	return f.next, nil
}

type fakeGains struct{ byRound map[int64][]domain.TournamentGain }

func (f *fakeGains) FindByRemoteIDs(context.Context, []int64) ([]domain.TournamentGain, error) {
	return nil, nil
}
func (f *fakeGains) Insert(context.Context, []domain.TournamentGain) error { return nil }
func (f *fakeGains) MarkCommitted(context.Context, int64, int, int, string) (bool, error) {
	return true, nil
}
func (f *fakeGains) FindForRounds(context.Context, []int64) (map[int64][]domain.TournamentGain, error) {
	return f.byRound, nil
}

// stubMath replays scripted outcomes in order.
type stubMath struct {
	gamemath.SlotMath
	queue []*gamemath.Outcome
}

func (m *stubMath) next() (*gamemath.Outcome, error) {
	if len(m.queue) == 0 {
		return &gamemath.Outcome{}, nil
	}
	o := m.queue[0]
	m.queue = m.queue[1:]
	return o, nil
}

func (m *stubMath) Settings() gamemath.Settings {
	return gamemath.Settings{
		Lines:       []int{1, 5},
		BetCounters: []int{1},
		Reels:       []int{3},
		MaxFactor:   1000,
	}
}

func (m *stubMath) Spin(gamemath.Request) (*gamemath.Outcome, error) { return m.next() }
func (m *stubMath) Respin() (*gamemath.Outcome, error)               { return m.next() }
func (m *stubMath) FreeSpin() (*gamemath.Outcome, error)             { return m.next() }
func (m *stubMath) Collect() (*gamemath.Outcome, error)              { return m.next() }
func (m *stubMath) Join() (*gamemath.Outcome, error)                 { return &gamemath.Outcome{}, nil }
func (m *stubMath) PostProcess(*gamemath.Outcome) error              { return nil }
func (m *stubMath) Close() (*gamemath.Outcome, error)                { return m.next() }
func (m *stubMath) Restore(*domain.Round, []domain.Action) error     { return nil }

type publishedRounds struct{ rounds []*domain.Round }

func (p *publishedRounds) PublishRoundClosed(_ context.Context, r *domain.Round) {
	p.rounds = append(p.rounds, r)
}

func testValidator(t *testing.T, math gamemath.SlotMath) *gamemath.Validator {
	t.Helper()
	bets, denoms := "25,50", "1"
	v, err := gamemath.NewValidator(&domain.Percent{PossBets: &bets, Denomination: &denoms}, math.Settings())
	require.NoError(t, err)
	return v
}

type fixture struct {
	admin  *SlotAdmin
	rounds *fakeRounds
	math   *stubMath
	events *publishedRounds
}

func newFixture(t *testing.T, opts func(*Options)) *fixture {
	t.Helper()
	rounds := &fakeRounds{}
	math := &stubMath{}
	events := &publishedRounds{}
	o := Options{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rounds:       rounds,
		Gains:        &fakeGains{},
		IDs:          &fakeIDs{},
		Events:       events,
		Machine:      fsm.New("testgame"),
		Math:         math,
		Validator:    testValidator(t, math),
		Game:         &domain.Game{ID: 1, Name: "testgame"},
		UserID:       42,
		HistoryLimit: 20,
	}
	if opts != nil {
		opts(&o)
	}
	a := New(o)
	_, _, err := a.Init(context.Background())
	require.NoError(t, err)
	return &fixture{admin: a, rounds: rounds, math: math, events: events}
}

func spinReq() gamemath.Request {
	return gamemath.Request{Bet: 25, Line: 1, Denom: 1, BetCounter: 1, Reels: 3}
}

func TestSpinPersistsRoundAtomically(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{{Total: 100, Stops: []int{1, 2, 3}, CollectStart: true}}

	resp, round, action, promo, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	require.Len(t, f.rounds.spins, 1)

	stored := f.rounds.spins[0]
	assert.Equal(t, round.CommonID, stored.common.ID)
	assert.Equal(t, int64(25), round.Stake)
	assert.Equal(t, domain.DetailNormal, round.Detail)
	assert.Nil(t, promo)

	assert.Equal(t, domain.KindBet, action.Kind)
	assert.Equal(t, domain.KindClose, action.NextAct)
	assert.Equal(t, "1,2,3", action.Stops)
	assert.NotEmpty(t, action.ExternalID)

	assert.Equal(t, domain.KindCollectStart, resp.NextAct)
	assert.Equal(t, int64(100), resp.Total)
}

func TestSpinCollectClosesRound(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 100, CollectStart: true},
		{Total: 100},
	}

	_, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)

	resp, round, action, err := f.admin.Collect(context.Background(), 300075)
	require.NoError(t, err)
	assert.Equal(t, domain.KindCollect, action.Kind)
	assert.Equal(t, domain.KindBet, action.NextAct)
	assert.Equal(t, domain.KindBet, resp.NextAct)
	require.NotNil(t, round.CloseTime)
	require.NotNil(t, round.Win)
	assert.Equal(t, int64(100), *round.Win)
	assert.Equal(t, domain.KindBet, f.admin.Current())
	require.Len(t, f.events.rounds, 1)
	assert.Nil(t, f.admin.Round())
}

func TestRespinFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 0, Respins: 1},
		{Total: 50, CollectStart: true},
	}

	resp, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	assert.Equal(t, domain.KindRespinStart, resp.NextAct)
	assert.Equal(t, domain.KindRespin, f.admin.Current())

	resp2, _, action, err := f.admin.Respin(context.Background(), 300000)
	require.NoError(t, err)
	assert.Equal(t, domain.KindRespin, action.Kind)
	assert.Equal(t, domain.KindClose, action.NextAct)
	assert.Equal(t, domain.KindCollectStart, resp2.NextAct)
}

func TestFreeSpinFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 0, FreeInitial: 2, FreeLeft: 2},
		{Total: 40, FreeLeft: 1},
		{Total: 40},
		{Total: 60, CollectStart: true},
		{Total: 100},
	}

	resp, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	assert.Equal(t, domain.KindFreeSpinStart, resp.NextAct)
	assert.Equal(t, domain.KindFreeSpin, f.admin.Current())

	resp2, _, _, err := f.admin.FreeSpin(context.Background(), 300000)
	require.NoError(t, err)
	assert.Equal(t, domain.KindFreeCollectStart, resp2.NextAct)

	resp3, round, _, err := f.admin.Collect(context.Background(), 300000)
	require.NoError(t, err)
	assert.Equal(t, domain.KindFreeSpinStart, resp3.NextAct)
	assert.True(t, round.Open())
	assert.Equal(t, domain.KindFreeSpin, f.admin.Current())

	_, _, _, err = f.admin.FreeSpin(context.Background(), 300000)
	require.NoError(t, err)

	_, round, _, err = f.admin.Collect(context.Background(), 300100)
	require.NoError(t, err)
	assert.False(t, round.Open())
	require.NotNil(t, round.Win)
	assert.Equal(t, int64(100), *round.Win)
}

// Every persisted action's NextAct must be reachable by a fresh machine
// replaying the action kinds in order.
func TestPersistedNextActsReplay(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 0, Respins: 1},
		{Total: 50, CollectStart: true},
		{Total: 50},
	}

	_, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	_, _, _, err = f.admin.Respin(context.Background(), 300000)
	require.NoError(t, err)
	_, _, _, err = f.admin.Collect(context.Background(), 300050)
	require.NoError(t, err)

	m := fsm.New("replay")
	for _, a := range f.rounds.actions {
		if a.Kind == domain.KindBet {
			_, err := m.ClientAct(domain.KindBet)
			require.NoError(t, err)
			next, err := m.ClientAct(domain.KindSpin)
			require.NoError(t, err)
			if next != a.NextAct {
				_, err = m.ServerAct(a.NextAct.Announce())
				require.NoError(t, err)
			}
			assert.Equal(t, a.NextAct, m.Current())
			continue
		}
		if m.Current() == domain.KindClose && a.Kind == domain.KindCollect {
			_, err := m.ServerAct(domain.KindCollectStart)
			require.NoError(t, err)
		}
		next, err := m.ClientAct(a.Kind)
		require.NoError(t, err)
		if next != a.NextAct {
			_, err = m.ServerAct(a.NextAct.Announce())
			require.NoError(t, err)
		}
		assert.Equal(t, a.NextAct, m.Current())
	}
}

func TestOnErrorResetsToSpin(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 0, CollectStart: true},
		{Total: 100, CollectStart: true},
	}

	_, round, action, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)

	f.admin.OnError(context.Background(), &domain.AdminError{
		RoundID:  round.ID,
		ActionID: action.ID,
		Status:   domain.StatusDecline,
		Cause:    &domain.AccountError{RC: domain.RCOutOfMoney, Message: "broke"},
	})

	require.Len(t, f.rounds.statuses, 1)
	st := f.rounds.statuses[0]
	assert.Equal(t, domain.StatusDecline, st.status)
	assert.Equal(t, domain.RCOutOfMoney, st.rc)
	assert.Equal(t, round.ID, st.roundID)

	// the bet act is not repeated after a reset
	assert.Equal(t, domain.KindSpin, f.admin.Current())
	_, _, _, _, err = f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
}

func TestSpinFromFeatureStateRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{{Total: 0, Respins: 1}}

	_, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)

	_, _, _, _, err = f.admin.Spin(context.Background(), 300000, spinReq())
	require.Error(t, err)
	assert.Equal(t, domain.KindRespin, f.admin.Current())
}

func TestPromoSpinMarksRich(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Promo = &domain.PromoInfo{
			OfferID: 9,
			Count:   1,
			Stakes:  []domain.PromoStake{{Stake: 50, Bet: 50, Line: 1, Denom: 1, Multi: 3}},
		}
	})
	f.math.queue = []*gamemath.Outcome{
		{Total: 0, CollectStart: true},
		{Total: 0, CollectStart: true},
	}

	_, round, _, promo, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	assert.Equal(t, domain.DetailRich, round.Detail)
	assert.Equal(t, int32(3), round.Multi)
	require.NotNil(t, promo)
	assert.Equal(t, int64(50), promo.Out)
	require.NotNil(t, promo.OfferID)
	assert.Equal(t, int64(9), *promo.OfferID)

	_, _, _, err = f.admin.Collect(context.Background(), 300000)
	require.NoError(t, err)

	// the single promo spin is spent
	_, round2, _, promo2, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)
	assert.Equal(t, domain.DetailNormal, round2.Detail)
	assert.Equal(t, int32(1), round2.Multi)
	assert.Nil(t, promo2)
}

func TestHistoryClampAndGainMerge(t *testing.T) {
	gains := &fakeGains{byRound: map[int64][]domain.TournamentGain{
		7: {{ID: 1, Amount: 500}},
	}}
	f := newFixture(t, func(o *Options) { o.Gains = gains })
	f.rounds.history = []domain.RoundHistory{
		{
			Round: domain.Round{ID: 7},
			Actions: []domain.Action{
				{ID: 2, Kind: domain.KindCollect, Win: 100},
				{ID: 1, Kind: domain.KindBet, Win: 100},
			},
		},
	}

	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"above configured clamps", 50, 20},
		{"equal passes", 20, 20},
		{"below passes", 5, 5},
		{"zero uses configured", 0, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := f.admin.History(context.Background(), tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.rounds.historyLimit)
			require.Len(t, resp.Rounds, 1)
		})
	}

	resp, err := f.admin.History(context.Background(), 5)
	require.NoError(t, err)
	// only the BET action absorbs the tournament win
	assert.Equal(t, int64(100), resp.Rounds[0].Actions[0].Win)
	assert.Equal(t, int64(600), resp.Rounds[0].Actions[1].Win)
}

func TestInitResumesOpenRound(t *testing.T) {
	rounds := &fakeRounds{
		lastRound: &domain.Round{ID: 5, Bet: 25, Line: 1, Denom: 1, BetCounter: 1, Status: domain.StatusSuccess},
		lastActions: []domain.Action{
			{ID: 2, Kind: domain.KindBet, NextAct: domain.KindRespin},
		},
	}
	f := newFixture(t, func(o *Options) { o.Rounds = rounds })

	assert.Equal(t, domain.KindRespin, f.admin.Current())
	assert.Equal(t, domain.KindRespinStart, f.admin.Pending())
	require.NotNil(t, f.admin.Round())
	assert.Equal(t, int64(5), f.admin.Round().ID)
	assert.Equal(t, int32(25), f.admin.Request().Bet)
}

func TestInitSurfacesErrorRound(t *testing.T) {
	rc := domain.RCIOError
	rounds := &fakeRounds{
		errRound: &domain.Round{ID: 6, Status: domain.StatusRemoteError},
		errActions: []domain.Action{
			{ID: 3, RoundID: 6, Kind: domain.KindCollect, RemoteCode: &rc},
		},
	}
	math := &stubMath{}
	a := New(Options{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rounds:       rounds,
		Gains:        &fakeGains{},
		IDs:          &fakeIDs{},
		Machine:      fsm.New("testgame"),
		Math:         math,
		Validator:    testValidator(t, math),
		Game:         &domain.Game{ID: 1, Name: "testgame"},
		UserID:       42,
		HistoryLimit: 20,
	})
	errRound, errAction, err := a.Init(context.Background())
	require.NoError(t, err)
	require.NotNil(t, errRound)
	require.NotNil(t, errAction)
	assert.Equal(t, int64(6), errRound.ID)
	assert.Equal(t, int64(3), errAction.ID)

	require.NoError(t, a.Fix(context.Background(), errRound.ID, errAction.ID))
	require.Len(t, rounds.fixes, 1)
}

func TestCloseRoundForcesClose(t *testing.T) {
	f := newFixture(t, nil)
	f.math.queue = []*gamemath.Outcome{
		{Total: 100, CollectStart: true},
		{Total: 100},
	}

	_, _, _, _, err := f.admin.Spin(context.Background(), 300000, spinReq())
	require.NoError(t, err)

	round, err := f.admin.CloseRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, round)
	require.NotNil(t, round.CloseTime)
	assert.Equal(t, domain.KindBet, f.admin.Current())
	require.Len(t, f.rounds.closes, 1)
	assert.Equal(t, domain.KindClose, f.rounds.closes[0].Kind)

	// idempotent when nothing is open
	round2, err := f.admin.CloseRound(context.Background())
	require.NoError(t, err)
	assert.Nil(t, round2)
}

func TestFilterPercent(t *testing.T) {
	bets, denoms := "25,50,100", "1,2"
	percent := &domain.Percent{PossBets: &bets, Denomination: &denoms}
	settings := gamemath.Settings{Lines: []int{1, 10}, MaxFactor: 100}

	t.Run("no bounds keeps everything", func(t *testing.T) {
		out, err := FilterPercent(percent, settings, &domain.User{}, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, "25,50,100", *out.PossBets)
		assert.Equal(t, "1,2", *out.Denomination)
	})

	t.Run("max stake trims bets", func(t *testing.T) {
		// stake at max line: bet*1*10 cents; bound 600 EUR cents
		out, err := FilterPercent(percent, settings, &domain.User{MaxStake: 600}, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, "25,50", *out.PossBets)
		assert.Equal(t, "1,2", *out.Denomination)
	})

	t.Run("max win trims via factor", func(t *testing.T) {
		out, err := FilterPercent(percent, settings, &domain.User{MaxWin: 30000}, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, "25", *out.PossBets)
	})

	t.Run("never empties a table", func(t *testing.T) {
		out, err := FilterPercent(percent, settings, &domain.User{MaxStake: 1}, decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.Equal(t, "25", *out.PossBets)
		assert.Equal(t, "1", *out.Denomination)
	})
}
