// README: Tap guards reject repeated reads of the same card within a short window.
package journey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"farebox/internal/clock"
	"farebox/internal/types"
)

const tapKeyPrefix = "farebox:tap:%s"

// MemoryTapGuard remembers the last accepted tap per rider. Rejected taps do
// not extend the window.
type MemoryTapGuard struct {
	window time.Duration
	clock  clock.Clock

	mu   sync.Mutex
	last map[types.ID]time.Time
}

func NewMemoryTapGuard(window time.Duration, clk clock.Clock) *MemoryTapGuard {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryTapGuard{window: window, clock: clk, last: make(map[types.ID]time.Time)}
}

func (g *MemoryTapGuard) Allow(_ context.Context, id types.ID) (bool, error) {
	if g.window <= 0 {
		return true, nil
	}
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.last[id]; ok && now.Sub(t) < g.window {
		return false, nil
	}
	for k, t := range g.last {
		if now.Sub(t) >= g.window {
			delete(g.last, k)
		}
	}
	g.last[id] = now
	return true, nil
}

// RedisTapGuard shares the window across processes reading the same cards.
type RedisTapGuard struct {
	redis  *redis.Client
	window time.Duration
}

func NewRedisTapGuard(redis *redis.Client, window time.Duration) *RedisTapGuard {
	return &RedisTapGuard{redis: redis, window: window}
}

func (g *RedisTapGuard) Allow(ctx context.Context, id types.ID) (bool, error) {
	if g.window <= 0 {
		return true, nil
	}
	return g.redis.SetNX(ctx, tapKey(id), "1", g.window).Result()
}

func tapKey(id types.ID) string {
	return fmt.Sprintf(tapKeyPrefix, string(id))
}
