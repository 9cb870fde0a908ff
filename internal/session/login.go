package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spinforge/platform/internal/admin"
	"github.com/spinforge/platform/internal/auth"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/fsm"
	"github.com/spinforge/platform/internal/gamemath"
	"github.com/spinforge/platform/internal/infra"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/spinforge/platform/internal/proxy"
	"github.com/spinforge/platform/internal/repository"
)

// LoginService assembles a session: account login, math engine, validator,
// admin, dispatcher and actor, then registers it all under a fresh token.
type LoginService struct {
	cfg      *infra.Config
	logger   *slog.Logger
	rounds   repository.RoundStore
	gains    repository.GainStore
	games    repository.GameStore
	ids      repository.IDGenerator
	events   admin.RoundPublisher
	tokens   *auth.TokenService
	registry *Registry
	retry    *proxy.RetryService
	jackpots JackpotSource
	validate *validator.Validate
}

// LoginOptions wires the login service.
type LoginOptions struct {
	Config   *infra.Config
	Logger   *slog.Logger
	Rounds   repository.RoundStore
	Gains    repository.GainStore
	Games    repository.GameStore
	IDs      repository.IDGenerator
	Events   admin.RoundPublisher
	Tokens   *auth.TokenService
	Registry *Registry
	Retry    *proxy.RetryService
	Jackpots JackpotSource
}

// NewLoginService creates the builder.
func NewLoginService(opts LoginOptions) *LoginService {
	return &LoginService{
		cfg:      opts.Config,
		logger:   opts.Logger,
		rounds:   opts.Rounds,
		gains:    opts.Gains,
		games:    opts.Games,
		ids:      opts.IDs,
		events:   opts.Events,
		tokens:   opts.Tokens,
		registry: opts.Registry,
		retry:    opts.Retry,
		jackpots: opts.Jackpots,
		validate: validator.New(),
	}
}

// buildMath instantiates the engine registered for a game's math class.
func buildMath(class string) (gamemath.SlotMath, error) {
	switch class {
	case "", "thunderexpress":
		return gamemath.NewThunderExpress(), nil
	}
	return nil, fmt.Errorf("unknown math class %q", class)
}

// Login opens a session and returns its token and the Join envelope.
func (s *LoginService) Login(ctx context.Context, req *protocol.LoginRequest, ip, userAgent string) (string, *protocol.Envelope, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", nil, domain.ErrBadFormat()
	}

	game, err := s.games.FindGame(ctx, req.GameName)
	if err != nil {
		return "", nil, fmt.Errorf("find game: %w", err)
	}

	math, err := buildMath(game.MathClass)
	if err != nil {
		return "", nil, err
	}
	return s.open(ctx, req, ip, userAgent, game, math, nil)
}

// LoginReplay opens a replay session over a persisted round: a demo wallet
// and a math engine replaying the recorded actions.
func (s *LoginService) LoginReplay(ctx context.Context, roundID int64, req *protocol.LoginRequest, ip, userAgent string) (string, *protocol.Envelope, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", nil, domain.ErrBadFormat()
	}
	round, actions, err := s.rounds.FindRound(ctx, roundID)
	if err != nil {
		return "", nil, fmt.Errorf("find round: %w", err)
	}
	if round == nil {
		return "", nil, domain.ErrNotFound("round", fmt.Sprint(roundID))
	}
	game := &domain.Game{ID: round.GameID, Name: req.GameName, Take: gamemath.MaxTake}
	return s.open(ctx, req, ip, userAgent, game, gamemath.NewReplayMath(round, actions), round)
}

func (s *LoginService) open(ctx context.Context, req *protocol.LoginRequest, ip, userAgent string, game *domain.Game, math gamemath.SlotMath, replay *domain.Round) (string, *protocol.Envelope, error) {
	account, err := proxy.NewAccountService(accountAlias(req.Mode), s.cfg.StartAmount, s.cfg.ProxyCurrency, s.logger)
	if err != nil {
		return "", nil, err
	}
	prx := proxy.NewSlotProxy(proxy.Options{
		Account:    account,
		Gains:      s.gains,
		Retry:      s.retry,
		JackpotIDs: game.JackpotIDs,
		Logger:     s.logger,
	})
	userID, _, err := prx.Login(ctx, proxy.LoginContext{
		UserName:  req.UserName,
		SessionID: req.SessionID,
		GameName:  req.GameName,
		Country:   req.Country,
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return "", nil, err
	}

	currency := prx.Currency()
	if c, err := s.games.FindCurrency(ctx, currency.Code); err != nil {
		s.logger.Warn("currency lookup failed, keeping unit rate",
			"code", currency.Code, "error", err)
	} else {
		currency = *c
		prx.SetCurrency(currency)
	}

	vld, err := s.buildValidator(ctx, userID, math, prx.User(), currency, replay)
	if err != nil {
		return "", nil, err
	}

	seed := uint64(time.Now().UnixNano())
	rnd := rand.New(rand.NewPCG(seed, uint64(userID)))
	math.SetRand(rnd)
	engine := gamemath.SlotMath(math)
	if replay == nil {
		engine = gamemath.NewPolicy(math, game.Take, game.Win, currency.Rate, rnd)
	}

	adm := admin.New(admin.Options{
		Logger:       s.logger,
		Rounds:       s.rounds,
		Gains:        s.gains,
		IDs:          s.ids,
		Events:       s.events,
		Machine:      fsm.New(game.Name),
		Math:         engine,
		Validator:    vld,
		Game:         game,
		UserID:       userID,
		HistoryLimit: s.cfg.HistoryLimit,
	})
	errRound, errAction, err := adm.Init(ctx)
	if err != nil {
		return "", nil, err
	}
	if errRound != nil && errAction != nil {
		s.reconcile(ctx, adm, prx, errRound, errAction)
	}

	disp := NewDispatcher(adm, prx, s.jackpots, s.cfg.TourName, s.logger)
	actor := NewActor(disp, s.logger)
	actor.Start(context.WithoutCancel(ctx))

	token := s.tokens.Generate(userID, time.Now())
	s.registry.Register(token, userID, actor)

	join, err := adm.Join(prx.BalanceCents(), currency.Code)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("session opened",
		"user_id", userID, "game", game.Name, "mode", req.Mode, "replay", replay != nil)
	return token, &protocol.Envelope{Body: join, NextID: disp.NextID(), Status: 200}, nil
}

// reconcile retries the wallet credit for a round stuck in REMOTE_ERROR and
// clears the error when the wallet confirms it.
func (s *LoginService) reconcile(ctx context.Context, adm *admin.SlotAdmin, prx *proxy.SlotProxy, round *domain.Round, action *domain.Action) {
	if _, err := prx.Result(ctx, action, round, action.Win); err != nil {
		s.logger.Warn("error round still unsettled", "round_id", round.ID, "error", err)
		return
	}
	if err := adm.Fix(ctx, round.ID, action.ID); err != nil {
		s.logger.Error("clear error round", "round_id", round.ID, "error", err)
		return
	}
	s.logger.Info("error round reconciled", "round_id", round.ID, "action_id", action.ID)
}

func (s *LoginService) buildValidator(ctx context.Context, userID int64, math gamemath.SlotMath, user *domain.User, currency domain.Currency, replay *domain.Round) (*gamemath.Validator, error) {
	settings := math.Settings()
	percent, err := s.games.FindPercent(ctx, userID)
	if err != nil {
		if replay == nil {
			return nil, fmt.Errorf("find percent: %w", err)
		}
		// replay sessions fall back to the round's own stake
		bets := fmt.Sprint(replay.Bet)
		denoms := fmt.Sprint(replay.Denom)
		percent = &domain.Percent{UserID: userID, PossBets: &bets, Denomination: &denoms}
	}
	filtered, err := admin.FilterPercent(percent, settings, user, currency.Rate)
	if err != nil {
		return nil, err
	}
	return gamemath.NewValidator(filtered, settings)
}

// accountAlias maps a login mode to the account-service variant. The demo
// wallet is the only alias shipped here; Real deployments plug in their own.
func accountAlias(string) string { return proxy.AliasDemo }
