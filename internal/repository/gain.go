package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spinforge/platform/internal/domain"
)

type gainRepo struct {
	pool *pgxpool.Pool
}

// NewGainRepository returns a pgx-backed GainStore.
func NewGainRepository(pool *pgxpool.Pool) GainStore {
	return &gainRepo{pool: pool}
}

const gainCols = `id, user_id, inbound_id, amount, amount_euro, place, remote_code, tour, time_done, round_id, remote_id, remote_message, opt_lock`

func scanGain(row pgx.Row) (*domain.TournamentGain, error) {
	var g domain.TournamentGain
	err := row.Scan(&g.ID, &g.UserID, &g.InboundID, &g.Amount, &g.AmountEuro, &g.Place,
		&g.RemoteCode, &g.Tour, &g.TimeDone, &g.RoundID, &g.RemoteID, &g.RemoteMessage, &g.OptLock)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gainRepo) FindByRemoteIDs(ctx context.Context, remoteIDs []int64) ([]domain.TournamentGain, error) {
	if len(remoteIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+gainCols+` FROM tournament_gains WHERE inbound_id = ANY($1)`, remoteIDs)
	if err != nil {
		return nil, fmt.Errorf("query gains: %w", err)
	}
	defer rows.Close()

	var out []domain.TournamentGain
	for rows.Next() {
		g, err := scanGain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gain: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *gainRepo) Insert(ctx context.Context, gains []domain.TournamentGain) error {
	if len(gains) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, g := range gains {
		// inbound_id uniqueness makes re-posted batches idempotent
		if _, err := tx.Exec(ctx, `
			INSERT INTO tournament_gains (id, user_id, inbound_id, amount, amount_euro, place, remote_code, tour, time_done, round_id, remote_id, remote_message, opt_lock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (inbound_id) DO NOTHING`,
			g.ID, g.UserID, g.InboundID, g.Amount, g.AmountEuro, g.Place,
			g.RemoteCode, g.Tour, g.TimeDone, g.RoundID, g.RemoteID, g.RemoteMessage, g.OptLock,
		); err != nil {
			return fmt.Errorf("insert gain %d: %w", g.InboundID, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *gainRepo) MarkCommitted(ctx context.Context, id int64, optLock int, rc int, msg string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tournament_gains
		SET remote_code = $3, remote_message = $4, opt_lock = opt_lock + 1
		WHERE id = $1 AND opt_lock = $2`,
		id, optLock, rc, msg)
	if err != nil {
		return false, fmt.Errorf("commit gain: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *gainRepo) FindForRounds(ctx context.Context, roundIDs []int64) (map[int64][]domain.TournamentGain, error) {
	out := make(map[int64][]domain.TournamentGain)
	if len(roundIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+gainCols+` FROM tournament_gains WHERE round_id = ANY($1)`, roundIDs)
	if err != nil {
		return nil, fmt.Errorf("query round gains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round gain: %w", err)
		}
		out[g.RoundID] = append(out[g.RoundID], *g)
	}
	return out, rows.Err()
}
