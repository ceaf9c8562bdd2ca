package batcher

import (
	"sync"
	"time"

	"scoda_backend/internals/helpers/clock"

	"github.com/google/uuid"
)

const cooldownPruneAt = 1024

// cooldownGuard allows one digest per recipient per window, across all actors.
type cooldownGuard struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	last   map[uuid.UUID]time.Time
}

func newCooldownGuard(clk clock.Clock, window time.Duration) *cooldownGuard {
	return &cooldownGuard{clock: clk, window: window, last: make(map[uuid.UUID]time.Time)}
}

// Allow reserves the recipient's slot. A false result means the digest
// must be dropped.
func (g *cooldownGuard) Allow(recipient uuid.UUID) bool {
	if g.window <= 0 {
		return true
	}
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.last[recipient]; ok && now.Sub(t) < g.window {
		return false
	}
	g.last[recipient] = now
	if len(g.last) >= cooldownPruneAt {
		for k, t := range g.last {
			if now.Sub(t) >= g.window {
				delete(g.last, k)
			}
		}
	}
	return true
}
