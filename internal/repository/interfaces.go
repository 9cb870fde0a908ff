package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spinforge/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so read paths work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Sequence names the id sequences used across the system.
type Sequence string

const (
	SeqCommonRound  Sequence = "common_round"
	SeqRound        Sequence = "round"
	SeqAction       Sequence = "action"
	SeqGain         Sequence = "gain"
	SeqPromoAccount Sequence = "promo_account"
	SeqPromoStats   Sequence = "promo_stats"
	SeqPromoTran    Sequence = "promo_tran"
)

// IDGenerator allocates the next value of a named sequence.
type IDGenerator interface {
	Next(ctx context.Context, seq Sequence) (int64, error)
}

// RoundStore persists rounds and actions. Every Store* call is one
// transaction; implementations that cannot guarantee that are rejected at
// integration.
type RoundStore interface {
	// StoreSpin writes the common round, the round, the opening BET action
	// and any promo delta atomically.
	StoreSpin(ctx context.Context, common *domain.CommonRound, round *domain.Round, action *domain.Action, promo *domain.PromoValue) error

	// StoreAction appends a respin or free-spin action to an open round.
	StoreAction(ctx context.Context, action *domain.Action) error

	// StoreCollect writes the round update, the collect action and the
	// optional promo stats bump atomically.
	StoreCollect(ctx context.Context, round *domain.Round, action *domain.Action, stats *domain.PromoStats) error

	// StoreClose writes the close-time round update and the CLOSE action
	// atomically.
	StoreClose(ctx context.Context, round *domain.Round, action *domain.Action) error

	// UpdateStatus records a wallet failure on the round and its action.
	UpdateStatus(ctx context.Context, roundID, actionID int64, status domain.RoundStatus, rc int, info string) error

	// UpdateBalance records the post-call balance on the open round.
	UpdateBalance(ctx context.Context, roundID, balance int64) error

	// FixAction clears a REMOTE_ERROR action and marks the round SUCCESS.
	FixAction(ctx context.Context, roundID, actionID int64) error

	FindLastRound(ctx context.Context, userID, gameID int64) (*domain.Round, []domain.Action, error)
	FindErrorRound(ctx context.Context, userID, gameID int64) (*domain.Round, []domain.Action, error)
	FindRound(ctx context.Context, roundID int64) (*domain.Round, []domain.Action, error)

	// History returns recent rounds with actions, rounds by open time
	// descending, actions by id descending.
	History(ctx context.Context, userID, gameID int64, limit int) ([]domain.RoundHistory, error)
}

// GainStore persists tournament gains.
type GainStore interface {
	FindByRemoteIDs(ctx context.Context, remoteIDs []int64) ([]domain.TournamentGain, error)
	Insert(ctx context.Context, gains []domain.TournamentGain) error

	// MarkCommitted bumps the gain to done iff optLock still matches.
	// Returns false when another writer won.
	MarkCommitted(ctx context.Context, id int64, optLock int, rc int, msg string) (bool, error)

	// FindForRounds returns gains grouped by round id, for history merging.
	FindForRounds(ctx context.Context, roundIDs []int64) (map[int64][]domain.TournamentGain, error)
}

// GameStore reads game, user and platform reference data.
type GameStore interface {
	FindGame(ctx context.Context, name string) (*domain.Game, error)
	FindPercent(ctx context.Context, userID int64) (*domain.Percent, error)
	FindCurrency(ctx context.Context, code string) (*domain.Currency, error)

	// JackpotContributions returns name->contribution for the given jackpot
	// ids.
	JackpotContributions(ctx context.Context, ids []int64) (map[string]int64, error)

	LaunchHosts(ctx context.Context) ([]domain.LaunchInfo, error)
}
