package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type levelKey struct {
	item     uuid.UUID
	location uuid.UUID
}

// MemoryProvider is an in-memory Provider implementation.
// Suitable for development and testing.
type MemoryProvider struct {
	levels       map[levelKey]Level
	transactions []Transaction
	mu           sync.RWMutex
	now          func() time.Time
}

// NewMemoryProvider creates an empty in-memory stock provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		levels: make(map[levelKey]Level),
		now:    time.Now,
	}
}

// Seed inserts or replaces a level. Intended for test and dev setup.
func (p *MemoryProvider) Seed(l Level) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = p.now()
	}
	p.levels[levelKey{l.ItemID, l.LocationID}] = l
}

func (p *MemoryProvider) Get(ctx context.Context, itemID, locationID uuid.UUID) (Level, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	l, ok := p.levels[levelKey{itemID, locationID}]
	if !ok {
		return Level{}, ErrStockNotFound
	}
	return l, nil
}

func (p *MemoryProvider) BelowReorder(ctx context.Context, f Filter) ([]Level, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Level
	for _, l := range p.levels {
		if f.Matches(l) && l.BelowReorder() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (p *MemoryProvider) List(ctx context.Context, f Filter) ([]Level, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Level
	for _, l := range p.levels {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (p *MemoryProvider) ApplyDelta(ctx context.Context, d Delta) (Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := levelKey{d.ItemID, d.LocationID}
	l, ok := p.levels[key]
	if !ok {
		return Level{}, ErrStockNotFound
	}

	l.Quantity += d.Change
	if l.Quantity < 0 {
		l.Quantity = 0
	}
	l.UpdatedAt = p.now()
	p.levels[key] = l

	p.transactions = append(p.transactions, Transaction{
		ID:                uuid.New(),
		ItemID:            d.ItemID,
		LocationID:        d.LocationID,
		Change:            d.Change,
		ResultingQuantity: l.Quantity,
		UserID:            d.UserID,
		Kind:              d.Kind,
		Notes:             d.Notes,
		CreatedAt:         l.UpdatedAt,
	})

	return l, nil
}

// Transactions returns a copy of the audit log in application order.
func (p *MemoryProvider) Transactions() []Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Transaction, len(p.transactions))
	copy(out, p.transactions)
	return out
}
