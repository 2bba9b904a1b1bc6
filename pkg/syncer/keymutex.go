package syncer

import (
	"sync"

	"github.com/google/uuid"
)

// keyMutex serializes work per (item, location) pair while letting distinct
// pairs proceed concurrently. Mutexes are created on demand and reclaimed
// when their last holder releases.
type keyMutex struct {
	mu    sync.Mutex
	locks map[itemKey]*keyLock
}

type itemKey struct {
	item     uuid.UUID
	location uuid.UUID
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[itemKey]*keyLock)}
}

func (m *keyMutex) lock(key itemKey) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
}

func (m *keyMutex) unlock(key itemKey) {
	m.mu.Lock()
	l := m.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	l.mu.Unlock()
}
