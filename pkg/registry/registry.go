package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgeops/stocksync/pkg/logger"
)

// Transport delivers messages to one connected client. Implementations wrap
// the underlying connection (websocket, SSE, test double) and must be safe
// for use from a single writer goroutine.
type Transport[T any] interface {
	// Send delivers one message. The context carries the per-send deadline;
	// implementations should respect it as a write deadline.
	Send(ctx context.Context, msg T) error

	// Close releases the underlying connection. Close is idempotent.
	Close() error
}

// SessionInfo is a read-only diagnostic view of one live session.
type SessionInfo struct {
	Identity    string    `json:"identity"`
	Interests   []string  `json:"interests"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Registry tracks live, addressable client sessions and their interest sets,
// and fans messages out to them. It is the most contended shared structure in
// the engine: all access goes through its methods, and a send to one slow
// client never stalls delivery to others (each session has a dedicated writer
// goroutine fed by a bounded outbox).
type Registry[T any] struct {
	sessions map[string]*session[T]
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup

	sendTimeout time.Duration
	bufferSize  int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Registry.
type Option[T any] func(*Registry[T])

// WithSendTimeout bounds each transport send. Default 5s.
func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(r *Registry[T]) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

// WithSessionBuffer sets the per-session outbox capacity. A session whose
// outbox is full is treated as a slow consumer and torn down. Default 64.
func WithSessionBuffer[T any](n int) Option[T] {
	return func(r *Registry[T]) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// WithLogger sets the logger for the Registry.
func WithLogger[T any](log *slog.Logger) Option[T] {
	return func(r *Registry[T]) {
		if log != nil {
			r.logger = log
		}
	}
}

// New creates an empty registry.
func New[T any](opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		sessions:    make(map[string]*session[T]),
		sendTimeout: 5 * time.Second,
		bufferSize:  64,
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Connect registers a session for the identity. If the identity already has a
// live session, the old one is torn down first and the new connection takes
// its place.
func (r *Registry[T]) Connect(identity string, transport Transport[T], interests []string) error {
	if identity == "" {
		return ErrEmptyIdentity
	}
	if transport == nil {
		return ErrNilTransport
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}

	old := r.sessions[identity]
	s := newSession(r, identity, transport, interests)
	r.sessions[identity] = s

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s.writeLoop()
	}()
	r.mu.Unlock()

	// Old session teardown happens outside the registry lock: its transport
	// Close may block, and the replacement is already visible.
	if old != nil {
		old.teardown()
	}

	r.logger.Debug("session connected",
		slog.String("identity", identity),
		slog.Int("interests", len(interests)))

	return nil
}

// Disconnect closes the identity's session gracefully: messages already
// enqueued are delivered before the transport closes, and no new messages are
// accepted once Disconnect returns. Disconnecting an absent identity is a
// no-op.
func (r *Registry[T]) Disconnect(identity string) {
	r.mu.RLock()
	s := r.sessions[identity]
	r.mu.RUnlock()

	if s != nil {
		s.drain()
	}
}

// SendTo delivers a message to one identity, best effort. A transport failure
// is handled as a disconnect of that session, never surfaced to the caller;
// sends to unknown identities are dropped.
func (r *Registry[T]) SendTo(identity string, msg T) {
	r.mu.RLock()
	s := r.sessions[identity]
	r.mu.RUnlock()

	if s != nil {
		s.enqueue(msg)
	}
}

// BroadcastToInterest delivers a message to every session whose interest set
// contains the given key, or whose interest set is empty (empty means
// "subscribed to everything"). Failing sessions are removed without affecting
// delivery to the rest.
func (r *Registry[T]) BroadcastToInterest(interest string, msg T) {
	for _, s := range r.snapshotSessions() {
		if s.interestedIn(interest) {
			s.enqueue(msg)
		}
	}
}

// BroadcastToAll delivers a message to every live session with the same
// per-session failure isolation as BroadcastToInterest.
func (r *Registry[T]) BroadcastToAll(msg T) {
	for _, s := range r.snapshotSessions() {
		s.enqueue(msg)
	}
}

// UpdateInterest atomically replaces a session's interest set. Broadcasts
// already iterating observe either the old or the new set, never a torn one.
func (r *Registry[T]) UpdateInterest(identity string, interests []string) error {
	r.mu.RLock()
	s := r.sessions[identity]
	r.mu.RUnlock()

	if s == nil {
		return ErrSessionNotFound
	}

	s.replaceInterests(interests)
	return nil
}

// Touch refreshes the session's liveness timestamp (heartbeat path).
func (r *Registry[T]) Touch(identity string) {
	r.mu.RLock()
	s := r.sessions[identity]
	r.mu.RUnlock()

	if s != nil {
		s.touch(r.now())
	}
}

// Snapshot returns a read-only view of all live sessions.
func (r *Registry[T]) Snapshot() []SessionInfo {
	sessions := r.snapshotSessions()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	return infos
}

// Len returns the number of live sessions.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close tears down every session and rejects further connects.
func (r *Registry[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*session[T], 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.teardown()
	}

	r.wg.Wait()
	return nil
}

// snapshotSessions copies the current session set so broadcasts iterate a
// consistent view without holding the registry lock during sends.
func (r *Registry[T]) snapshotSessions() []*session[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*session[T], 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// remove unregisters a session if it is still the one registered for its
// identity. Safe against the race between a failing send and an explicit
// Disconnect, and against a newer session having replaced this one.
func (r *Registry[T]) remove(s *session[T]) {
	r.mu.Lock()
	if current, ok := r.sessions[s.identity]; ok && current == s {
		delete(r.sessions, s.identity)
	}
	r.mu.Unlock()

	r.logger.Debug("session removed", slog.String("identity", s.identity))
}

func (r *Registry[T]) logSendFailure(identity string, err error) {
	r.logger.Warn("transport send failed, tearing session down",
		slog.String("identity", identity),
		logger.Error(err))
}
