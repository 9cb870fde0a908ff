package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var pgSequences = map[Sequence]string{
	SeqCommonRound:  "seq_common_round",
	SeqRound:        "seq_round",
	SeqAction:       "seq_action",
	SeqGain:         "seq_gain",
	SeqPromoAccount: "seq_promo_account",
	SeqPromoStats:   "seq_promo_stats",
	SeqPromoTran:    "seq_promo_tran",
}

type pgIDGenerator struct {
	pool *pgxpool.Pool
}

// NewPgIDGenerator allocates ids from Postgres sequences. Sequence names are
// whitelisted; unknown sequences fail.
func NewPgIDGenerator(pool *pgxpool.Pool) IDGenerator {
	return &pgIDGenerator{pool: pool}
}

func (g *pgIDGenerator) Next(ctx context.Context, seq Sequence) (int64, error) {
	name, ok := pgSequences[seq]
	if !ok {
		return 0, fmt.Errorf("unknown sequence %q", seq)
	}
	var id int64
	if err := g.pool.QueryRow(ctx, `SELECT nextval($1)`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("nextval %s: %w", name, err)
	}
	return id, nil
}

type redisIDGenerator struct {
	client *redis.Client
	prefix string
}

// NewRedisIDGenerator allocates ids with INCR so multiple server processes
// share one id space.
func NewRedisIDGenerator(client *redis.Client, prefix string) IDGenerator {
	return &redisIDGenerator{client: client, prefix: prefix}
}

func (g *redisIDGenerator) Next(ctx context.Context, seq Sequence) (int64, error) {
	if _, ok := pgSequences[seq]; !ok {
		return 0, fmt.Errorf("unknown sequence %q", seq)
	}
	id, err := g.client.Incr(ctx, g.prefix+":seq:"+string(seq)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", seq, err)
	}
	return id, nil
}

type demoIDGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewDemoIDGenerator returns random ids for demo sessions and tests. No
// uniqueness guarantee beyond the 63-bit space.
func NewDemoIDGenerator() IDGenerator {
	return &demoIDGenerator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (g *demoIDGenerator) Next(ctx context.Context, seq Sequence) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Int64N(1<<62) + 1, nil
}
