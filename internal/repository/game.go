package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spinforge/platform/internal/domain"
)

type gameRepo struct {
	pool *pgxpool.Pool
}

// NewGameRepository returns a pgx-backed GameStore.
func NewGameRepository(pool *pgxpool.Pool) GameStore {
	return &gameRepo{pool: pool}
}

func (r *gameRepo) FindGame(ctx context.Context, name string) (*domain.Game, error) {
	var g domain.Game
	var jackpots *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, math_class, take, win, jackpot_ids
		FROM games WHERE name = $1`, name).
		Scan(&g.ID, &g.Name, &g.MathClass, &g.Take, &g.Win, &jackpots)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound("game", name)
		}
		return nil, fmt.Errorf("query game: %w", err)
	}
	if jackpots != nil && *jackpots != "" {
		for _, p := range strings.Split(*jackpots, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse jackpot ids: %w", err)
			}
			g.JackpotIDs = append(g.JackpotIDs, id)
		}
	}
	return &g, nil
}

func (r *gameRepo) FindPercent(ctx context.Context, userID int64) (*domain.Percent, error) {
	var p domain.Percent
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, poss_bets, denomination, percent
		FROM percents WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.PossBets, &p.Denomination, &p.Percent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound("percent", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("query percent: %w", err)
	}
	return &p, nil
}

func (r *gameRepo) FindCurrency(ctx context.Context, code string) (*domain.Currency, error) {
	var c domain.Currency
	err := r.pool.QueryRow(ctx,
		`SELECT code, rate FROM currencies WHERE code = $1`, code).
		Scan(&c.Code, &c.Rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound("currency", code)
		}
		return nil, fmt.Errorf("query currency: %w", err)
	}
	return &c, nil
}

func (r *gameRepo) JackpotContributions(ctx context.Context, ids []int64) (map[string]int64, error) {
	out := make(map[string]int64)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT name, contribution FROM jackpots WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query jackpots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var contribution int64
		if err := rows.Scan(&name, &contribution); err != nil {
			return nil, fmt.Errorf("scan jackpot: %w", err)
		}
		out[name] = contribution
	}
	return out, rows.Err()
}

func (r *gameRepo) LaunchHosts(ctx context.Context) ([]domain.LaunchInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, host_name, block FROM launch_info ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query launch hosts: %w", err)
	}
	defer rows.Close()

	var out []domain.LaunchInfo
	for rows.Next() {
		var li domain.LaunchInfo
		if err := rows.Scan(&li.ID, &li.HostName, &li.Block); err != nil {
			return nil, fmt.Errorf("scan launch host: %w", err)
		}
		out = append(out, li)
	}
	return out, rows.Err()
}
