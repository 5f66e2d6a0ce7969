// Package lock provides per-player locking for wallet operations.
// A settlement round holds its player's lock from escrow until the round is
// settled, so a second round can never double-escrow the same funds.
package lock

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrRoundInFlight is returned when a player already has an unsettled round.
var ErrRoundInFlight = errors.New("a round is already in flight for this player")

// entry pairs a player's mutex with an explicit held flag so a release
// without a matching acquire is a no-op instead of a runtime panic.
type entry struct {
	mu   sync.Mutex
	held atomic.Bool
}

// PlayerLock provides per-player mutual exclusion keyed by player ID.
type PlayerLock struct {
	locks sync.Map // map[string]*entry
}

// NewPlayerLock creates a new PlayerLock instance.
func NewPlayerLock() *PlayerLock {
	return &PlayerLock{}
}

// get retrieves or creates the entry for a player.
func (pl *PlayerLock) get(playerID string) *entry {
	if v, ok := pl.locks.Load(playerID); ok {
		return v.(*entry)
	}
	v, _ := pl.locks.LoadOrStore(playerID, &entry{})
	return v.(*entry)
}

// Lock acquires the lock for a player, blocking until it is available.
func (pl *PlayerLock) Lock(playerID string) {
	e := pl.get(playerID)
	e.mu.Lock()
	e.held.Store(true)
}

// TryLock attempts to acquire the lock without blocking.
// Returns ErrRoundInFlight if the player already holds an unsettled round.
func (pl *PlayerLock) TryLock(playerID string) error {
	e := pl.get(playerID)
	if !e.mu.TryLock() {
		return ErrRoundInFlight
	}
	e.held.Store(true)
	return nil
}

// Unlock releases the lock for a player. Releasing a player that holds no
// lock, or releasing twice, is a no-op.
func (pl *PlayerLock) Unlock(playerID string) {
	if v, ok := pl.locks.Load(playerID); ok {
		e := v.(*entry)
		if e.held.CompareAndSwap(true, false) {
			e.mu.Unlock()
		}
	}
}

// WithLock executes fn while holding the player's lock.
func (pl *PlayerLock) WithLock(playerID string, fn func() error) error {
	pl.Lock(playerID)
	defer pl.Unlock(playerID)
	return fn()
}

// IsLocked reports whether a player currently holds a lock.
// This is a point-in-time check and may change immediately after.
func (pl *PlayerLock) IsLocked(playerID string) bool {
	if v, ok := pl.locks.Load(playerID); ok {
		return v.(*entry).held.Load()
	}
	return false
}
