package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/clock"
)

// CooldownGate enforces at-most-one-fire-per-cooldown-window for each
// (user, rule, scope) key. The mutex serializes the read-modify-write so
// concurrent evaluations of the same user cannot double-fire; the TTL on
// the underlying store handles the window expiry.
type CooldownGate struct {
	store cache.Store
	clock clock.Clock
	mu    sync.Mutex
}

// NewCooldownGate creates a gate on top of a TTL store.
func NewCooldownGate(store cache.Store, clk clock.Clock) *CooldownGate {
	return &CooldownGate{store: store, clock: clk}
}

// CooldownKey builds the store key for one rule scope.
func CooldownKey(userID, ruleID, scopeID string) string {
	return fmt.Sprintf("cooldown:%s:%s:%s", userID, ruleID, scopeID)
}

// TryAcquire reports whether a firing is allowed for key. On success the
// firing timestamp is recorded with a TTL equal to the cooldown, so the next
// attempt inside the window is suppressed.
func (g *CooldownGate) TryAcquire(key string, cooldown time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var lastFired int64
	found, err := g.store.Get(key, &lastFired)
	if err != nil {
		return false, fmt.Errorf("cooldown lookup %s: %w", key, err)
	}
	if found {
		return false, nil
	}

	if err := g.store.Set(key, g.clock.Now().Unix(), cooldown); err != nil {
		return false, fmt.Errorf("cooldown record %s: %w", key, err)
	}
	return true, nil
}

// Reset clears the cooldown for key, allowing an immediate re-fire. Used
// when a user resolves an alert manually.
func (g *CooldownGate) Reset(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.Delete(key)
}
