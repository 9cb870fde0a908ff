package cache

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/repository"
)

// DefaultLaunchTTL is how long the host list stays cached.
const DefaultLaunchTTL = 20 * time.Minute

// the host list is one logical value; the LRU exists for its TTL
const launchKey = 0

// LaunchCache caches the admissible launch hosts and picks one uniformly at
// random per request. Blocked hosts are never picked; with no usable host the
// caller's fallback wins.
type LaunchCache struct {
	games  repository.GameStore
	lru    *expirable.LRU[int, []domain.LaunchInfo]
	logger *slog.Logger
}

// NewLaunchCache creates the cache. A non-positive ttl uses the default.
func NewLaunchCache(games repository.GameStore, ttl time.Duration, logger *slog.Logger) *LaunchCache {
	if ttl <= 0 {
		ttl = DefaultLaunchTTL
	}
	return &LaunchCache{
		games:  games,
		lru:    expirable.NewLRU[int, []domain.LaunchInfo](1, nil, ttl),
		logger: logger,
	}
}

// PickHost returns a random unblocked host, or fallback when none exists.
func (c *LaunchCache) PickHost(ctx context.Context, fallback string) string {
	hosts, ok := c.lru.Get(launchKey)
	if !ok {
		loaded, err := c.games.LaunchHosts(ctx)
		if err != nil {
			c.logger.Error("load launch hosts", "error", err)
			return fallback
		}
		c.lru.Add(launchKey, loaded)
		hosts = loaded
	}

	usable := make([]domain.LaunchInfo, 0, len(hosts))
	for _, h := range hosts {
		if !h.Block {
			usable = append(usable, h)
		}
	}
	if len(usable) == 0 {
		return fallback
	}
	return usable[rand.IntN(len(usable))].HostName
}
