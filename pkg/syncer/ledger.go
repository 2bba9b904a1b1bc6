package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Ledger remembers which client-local operation ids have already been
// applied, so replayed batches resolve to duplicate outcomes instead of
// double-applying stock changes.
type Ledger interface {
	// MarkApplied records the (user, localID) pair and reports whether this
	// was the first time it was seen.
	MarkApplied(ctx context.Context, userID uuid.UUID, localID string) (first bool, err error)

	// Forget removes the pair so a failed application can be retried.
	Forget(ctx context.Context, userID uuid.UUID, localID string) error
}

// MemoryLedger is an in-process Ledger with TTL-based expiry. Entries older
// than the retention window are dropped lazily on access.
type MemoryLedger struct {
	mu      sync.Mutex
	applied map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryLedger creates a memory ledger keeping entries for the given TTL.
// A zero TTL keeps entries forever.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		applied: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func ledgerKey(userID uuid.UUID, localID string) string {
	return userID.String() + ":" + localID
}

func (l *MemoryLedger) MarkApplied(_ context.Context, userID uuid.UUID, localID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := ledgerKey(userID, localID)
	if at, ok := l.applied[key]; ok {
		if l.ttl == 0 || now.Sub(at) < l.ttl {
			return false, nil
		}
	}
	l.applied[key] = now
	l.evictExpired(now)
	return true, nil
}

func (l *MemoryLedger) Forget(_ context.Context, userID uuid.UUID, localID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.applied, ledgerKey(userID, localID))
	return nil
}

// evictExpired drops stale entries. Caller must hold the lock.
func (l *MemoryLedger) evictExpired(now time.Time) {
	if l.ttl == 0 {
		return
	}
	for key, at := range l.applied {
		if now.Sub(at) >= l.ttl {
			delete(l.applied, key)
		}
	}
}

// RedisLedger is a Ledger shared across instances, backed by SET NX with a
// TTL.
type RedisLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisLedger creates a redis-backed ledger. Entries expire after the
// given TTL.
func NewRedisLedger(client redis.UniversalClient, ttl time.Duration) *RedisLedger {
	return &RedisLedger{
		client: client,
		ttl:    ttl,
		prefix: "stocksync:synced:",
	}
}

func (l *RedisLedger) MarkApplied(ctx context.Context, userID uuid.UUID, localID string) (bool, error) {
	first, err := l.client.SetNX(ctx, l.prefix+ledgerKey(userID, localID), 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return first, nil
}

func (l *RedisLedger) Forget(ctx context.Context, userID uuid.UUID, localID string) error {
	if err := l.client.Del(ctx, l.prefix+ledgerKey(userID, localID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return nil
}
