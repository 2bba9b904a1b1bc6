package notifier

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is a thread-safe in-memory Storage. Suitable for tests and
// single-node deployments without a database.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]Notification
	attempts      map[uuid.UUID]DeliveryAttempt
	preferences   map[uuid.UUID]Preference
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[uuid.UUID]Notification),
		attempts:      make(map[uuid.UUID]DeliveryAttempt),
		preferences:   make(map[uuid.UUID]Preference),
	}
}

func (s *MemoryStorage) CreateNotification(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *MemoryStorage) GetNotification(_ context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return &n, nil
}

func (s *MemoryStorage) ListNotifications(_ context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if opts.Since != nil && !n.CreatedAt.After(*opts.Since) {
			continue
		}
		if len(opts.Kinds) > 0 && !containsKind(opts.Kinds, n.Kind) {
			continue
		}
		if opts.OnlyUnread && s.isReadLocked(n.ID) {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// isReadLocked reports whether the notification's in-app attempt is read.
// Caller must hold at least the read lock.
func (s *MemoryStorage) isReadLocked(notificationID uuid.UUID) bool {
	for _, a := range s.attempts {
		if a.NotificationID == notificationID && a.Channel == ChannelInApp && a.Status == StatusRead {
			return true
		}
	}
	return false
}

func (s *MemoryStorage) LatestMatching(_ context.Context, userID uuid.UUID, itemID, locationID *uuid.UUID, kind Kind) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Notification
	for _, n := range s.notifications {
		if n.UserID != userID || n.Kind != kind {
			continue
		}
		if !uuidPtrEqual(n.ItemID, itemID) || !uuidPtrEqual(n.LocationID, locationID) {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			nc := n
			latest = &nc
		}
	}
	if latest == nil {
		return nil, ErrNotificationNotFound
	}
	return latest, nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func (s *MemoryStorage) CreateAttempt(_ context.Context, a DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ID] = a
	return nil
}

func (s *MemoryStorage) UpdateAttempt(_ context.Context, a DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[a.ID]; !ok {
		return ErrAttemptNotFound
	}
	s.attempts[a.ID] = a
	return nil
}

func (s *MemoryStorage) GetAttempt(_ context.Context, id uuid.UUID) (*DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return &a, nil
}

func (s *MemoryStorage) AttemptsFor(_ context.Context, notificationID uuid.UUID) ([]DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DeliveryAttempt
	for _, a := range s.attempts {
		if a.NotificationID == notificationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) InAppAttempt(_ context.Context, notificationID uuid.UUID) (*DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.attempts {
		if a.NotificationID == notificationID && a.Channel == ChannelInApp {
			ac := a
			return &ac, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (s *MemoryStorage) Preference(_ context.Context, userID uuid.UUID) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preferences[userID]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	return &p, nil
}

func (s *MemoryStorage) SavePreference(_ context.Context, p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[p.UserID] = p
	return nil
}

func (s *MemoryStorage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			removed++
			for aid, a := range s.attempts {
				if a.NotificationID == id {
					delete(s.attempts, aid)
				}
			}
		}
	}
	return removed, nil
}
