package cache

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spinforge/platform/internal/repository"
)

// DefaultJackpotTTL bounds how stale a served contribution map may be.
const DefaultJackpotTTL = 5 * time.Second

type jackpotLookup struct {
	ids   []int64
	reply chan map[string]int64
}

type jackpotEntry struct {
	insertedAt time.Time
	values     map[string]int64
}

// JackpotCoalescer collapses concurrent identical contribution lookups into
// at most one repository query per TTL window. One goroutine owns the map;
// callers only exchange messages with it.
type JackpotCoalescer struct {
	games   repository.GameStore
	ttl     time.Duration
	logger  *slog.Logger
	reqs    chan jackpotLookup
	entries map[string]jackpotEntry
}

// NewJackpotCoalescer creates the coalescer. A non-positive ttl uses the
// default.
func NewJackpotCoalescer(games repository.GameStore, ttl time.Duration, logger *slog.Logger) *JackpotCoalescer {
	if ttl <= 0 {
		ttl = DefaultJackpotTTL
	}
	return &JackpotCoalescer{
		games:   games,
		ttl:     ttl,
		logger:  logger,
		reqs:    make(chan jackpotLookup),
		entries: make(map[string]jackpotEntry),
	}
}

// Start runs the owning goroutine until ctx is cancelled.
func (c *JackpotCoalescer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-c.reqs:
				req.reply <- c.lookup(ctx, req.ids)
			}
		}
	}()
}

func jackpotKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (c *JackpotCoalescer) lookup(ctx context.Context, ids []int64) map[string]int64 {
	key := jackpotKey(ids)
	if entry, ok := c.entries[key]; ok && time.Since(entry.insertedAt) < c.ttl {
		return entry.values
	}
	values, err := c.games.JackpotContributions(ctx, ids)
	if err != nil {
		c.logger.Error("jackpot contribution lookup", "ids", key, "error", err)
		return map[string]int64{}
	}
	c.entries[key] = jackpotEntry{insertedAt: time.Now(), values: values}
	return values
}

// Contributions answers name to contribution for the ordered id list. Equal
// lists share one cache entry. Failures answer an empty map.
func (c *JackpotCoalescer) Contributions(ctx context.Context, ids []int64) map[string]int64 {
	reply := make(chan map[string]int64, 1)
	select {
	case c.reqs <- jackpotLookup{ids: ids, reply: reply}:
	case <-ctx.Done():
		return map[string]int64{}
	}
	select {
	case values := <-reply:
		return values
	case <-ctx.Done():
		return map[string]int64{}
	}
}
