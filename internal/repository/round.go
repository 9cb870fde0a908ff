package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spinforge/platform/internal/domain"
)

type roundRepo struct {
	pool *pgxpool.Pool
}

// NewRoundRepository returns a pgx-backed RoundStore.
func NewRoundRepository(pool *pgxpool.Pool) RoundStore {
	return &roundRepo{pool: pool}
}

func (r *roundRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertAction(ctx context.Context, db DBTX, a *domain.Action) error {
	_, err := db.Exec(ctx, `
		INSERT INTO actions (id, round_id, amount, win, kind, next_act, external_id, time_done, remote_code, error_info, stops, special, restore)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.RoundID, a.Amount, a.Win, a.Kind, a.NextAct, a.ExternalID, a.TimeDone,
		a.RemoteCode, a.ErrorInfo, a.Stops, a.Special, a.Restore,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (r *roundRepo) StoreSpin(ctx context.Context, common *domain.CommonRound, round *domain.Round, action *domain.Action, promo *domain.PromoValue) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO common_rounds (id, user_id, game_id, time)
			VALUES ($1, $2, $3, $4)`,
			common.ID, common.UserID, common.GameID, common.Time,
		); err != nil {
			return fmt.Errorf("insert common round: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO rounds (id, common_id, game_id, user_id, open_time, bet, line, denom, reels, multi, bet_counter, stake, detail, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			round.ID, round.CommonID, round.GameID, round.UserID, round.OpenTime,
			round.Bet, round.Line, round.Denom, round.Reels, round.Multi,
			round.BetCounter, round.Stake, round.Detail, round.Status,
		); err != nil {
			return fmt.Errorf("insert round: %w", err)
		}
		if err := insertAction(ctx, tx, action); err != nil {
			return err
		}
		if promo != nil && promo.OfferID != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO promo_trans (offer_id, charge_id, round_id, amount_out)
				VALUES ($1, $2, $3, $4)`,
				promo.OfferID, promo.ChargeID, round.ID, promo.Out,
			); err != nil {
				return fmt.Errorf("insert promo tran: %w", err)
			}
		}
		return nil
	})
}

func (r *roundRepo) StoreAction(ctx context.Context, action *domain.Action) error {
	return insertAction(ctx, r.pool, action)
}

func (r *roundRepo) StoreCollect(ctx context.Context, round *domain.Round, action *domain.Action, stats *domain.PromoStats) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE rounds SET close_time = $2, win = $3, balance = $4, status = $5
			WHERE id = $1`,
			round.ID, round.CloseTime, round.Win, round.Balance, round.Status,
		); err != nil {
			return fmt.Errorf("update round: %w", err)
		}
		if err := insertAction(ctx, tx, action); err != nil {
			return err
		}
		if stats != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO promo_stats (id, offer_id, user_id, spins, win)
				VALUES ($1, $2, $3, 1, $4)
				ON CONFLICT (offer_id, user_id)
				DO UPDATE SET spins = promo_stats.spins + 1, win = promo_stats.win + EXCLUDED.win`,
				stats.ID, stats.OfferID, stats.UserID, stats.Win,
			); err != nil {
				return fmt.Errorf("bump promo stats: %w", err)
			}
		}
		return nil
	})
}

func (r *roundRepo) StoreClose(ctx context.Context, round *domain.Round, action *domain.Action) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE rounds SET close_time = $2, win = $3, status = $4
			WHERE id = $1`,
			round.ID, round.CloseTime, round.Win, round.Status,
		); err != nil {
			return fmt.Errorf("update round: %w", err)
		}
		return insertAction(ctx, tx, action)
	})
}

func (r *roundRepo) UpdateStatus(ctx context.Context, roundID, actionID int64, status domain.RoundStatus, rc int, info string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE rounds SET status = $2 WHERE id = $1`, roundID, status,
		); err != nil {
			return fmt.Errorf("update round status: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE actions SET remote_code = $2, error_info = $3 WHERE id = $1`,
			actionID, rc, info,
		); err != nil {
			return fmt.Errorf("update action error: %w", err)
		}
		return nil
	})
}

func (r *roundRepo) UpdateBalance(ctx context.Context, roundID, balance int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE rounds SET balance = $2 WHERE id = $1`, roundID, balance)
	if err != nil {
		return fmt.Errorf("update round balance: %w", err)
	}
	return nil
}

func (r *roundRepo) FixAction(ctx context.Context, roundID, actionID int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE rounds SET status = $2 WHERE id = $1`, roundID, domain.StatusSuccess,
		); err != nil {
			return fmt.Errorf("fix round: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE actions SET remote_code = NULL, error_info = NULL WHERE id = $1`, actionID,
		); err != nil {
			return fmt.Errorf("fix action: %w", err)
		}
		return nil
	})
}

const roundCols = `id, common_id, game_id, user_id, open_time, close_time, bet, line, denom, reels, multi, bet_counter, stake, win, balance, detail, status`

func scanRound(row pgx.Row) (*domain.Round, error) {
	var r domain.Round
	err := row.Scan(&r.ID, &r.CommonID, &r.GameID, &r.UserID, &r.OpenTime, &r.CloseTime,
		&r.Bet, &r.Line, &r.Denom, &r.Reels, &r.Multi, &r.BetCounter,
		&r.Stake, &r.Win, &r.Balance, &r.Detail, &r.Status)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *roundRepo) actionsFor(ctx context.Context, roundID int64) ([]domain.Action, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, round_id, amount, win, kind, next_act, external_id, time_done, remote_code, error_info, stops, special, restore
		FROM actions WHERE round_id = $1 ORDER BY id DESC`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []domain.Action
	for rows.Next() {
		var a domain.Action
		if err := rows.Scan(&a.ID, &a.RoundID, &a.Amount, &a.Win, &a.Kind, &a.NextAct,
			&a.ExternalID, &a.TimeDone, &a.RemoteCode, &a.ErrorInfo, &a.Stops, &a.Special, &a.Restore); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *roundRepo) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Round, []domain.Action, error) {
	round, err := scanRound(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("query round: %w", err)
	}
	actions, err := r.actionsFor(ctx, round.ID)
	if err != nil {
		return nil, nil, err
	}
	return round, actions, nil
}

func (r *roundRepo) FindLastRound(ctx context.Context, userID, gameID int64) (*domain.Round, []domain.Action, error) {
	return r.findOne(ctx, `
		SELECT `+roundCols+` FROM rounds
		WHERE user_id = $1 AND game_id = $2
		ORDER BY open_time DESC LIMIT 1`, userID, gameID)
}

func (r *roundRepo) FindErrorRound(ctx context.Context, userID, gameID int64) (*domain.Round, []domain.Action, error) {
	return r.findOne(ctx, `
		SELECT `+roundCols+` FROM rounds
		WHERE user_id = $1 AND game_id = $2 AND status = 'REMOTE_ERROR'
		ORDER BY open_time DESC LIMIT 1`, userID, gameID)
}

func (r *roundRepo) FindRound(ctx context.Context, roundID int64) (*domain.Round, []domain.Action, error) {
	return r.findOne(ctx, `SELECT `+roundCols+` FROM rounds WHERE id = $1`, roundID)
}

func (r *roundRepo) History(ctx context.Context, userID, gameID int64, limit int) ([]domain.RoundHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+roundCols+` FROM rounds
		WHERE user_id = $1 AND game_id = $2
		ORDER BY open_time DESC LIMIT $3`, userID, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.RoundHistory
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history round: %w", err)
		}
		out = append(out, domain.RoundHistory{Round: *round})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		actions, err := r.actionsFor(ctx, out[i].Round.ID)
		if err != nil {
			return nil, err
		}
		out[i].Actions = actions
	}
	return out, nil
}
