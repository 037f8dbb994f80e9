// Package clock provides the logical clock that versions the transactional log.
package clock

import "sync"

// LamportClock представляет логические часы Лампорта.
// Лог комнаты увеличивает их при каждом зафиксированном изменении,
// значение часов - версия, которой помечаются рассылаемые изменения.
type LamportClock struct {
	counter int64
	mu      sync.Mutex
}

// NewLamportClock creates a clock starting at the given version.
// Used to restore the version persisted by a storage backend.
func NewLamportClock(start int64) *LamportClock {
	return &LamportClock{counter: start}
}

// Tick advances the clock and returns the new version.
func (lc *LamportClock) Tick() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	return lc.counter
}

// Observe merges a version seen elsewhere: counter = max(counter, remote).
// Does not tick, so observing the current version is a no-op.
func (lc *LamportClock) Observe(remote int64) int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remote > lc.counter {
		lc.counter = remote
	}
	return lc.counter
}

// Now returns the current version without advancing it.
func (lc *LamportClock) Now() int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.counter
}
