package registry

import (
	"context"
	"sync"
	"time"
)

// session owns one live connection. The interest set is replaced wholesale
// under its own lock so broadcasts never observe a partially updated set, and
// all transport writes happen on the session's writer goroutine.
type session[T any] struct {
	registry  *Registry[T]
	identity  string
	transport Transport[T]
	outbox    chan T

	interests map[string]struct{}
	mu        sync.RWMutex

	connectedAt time.Time
	lastSeen    time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	closing   chan struct{}
	drainOnce sync.Once
	closeOnce sync.Once
}

func newSession[T any](r *Registry[T], identity string, transport Transport[T], interests []string) *session[T] {
	ctx, cancel := context.WithCancel(context.Background())
	now := r.now()

	s := &session[T]{
		registry:    r,
		identity:    identity,
		transport:   transport,
		outbox:      make(chan T, r.bufferSize),
		interests:   make(map[string]struct{}, len(interests)),
		connectedAt: now,
		lastSeen:    now,
		ctx:         ctx,
		cancel:      cancel,
		closing:     make(chan struct{}),
	}
	for _, interest := range interests {
		s.interests[interest] = struct{}{}
	}
	return s
}

// enqueue hands a message to the writer goroutine without blocking. A full
// outbox marks the session as a slow consumer and tears it down, isolating
// its latency from co-broadcast sessions.
func (s *session[T]) enqueue(msg T) {
	select {
	case <-s.ctx.Done():
	case <-s.closing:
	case s.outbox <- msg:
	default:
		go s.teardown()
	}
}

// writeLoop drains the outbox, applying the registry's send timeout to each
// transport write. Any send failure tears the session down, exactly like a
// disconnect.
func (s *session[T]) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.outbox:
			if !s.write(msg) {
				return
			}
		case <-s.closing:
			s.flush()
			return
		}
	}
}

func (s *session[T]) write(msg T) bool {
	ctx, cancel := context.WithTimeout(s.ctx, s.registry.sendTimeout)
	err := s.transport.Send(ctx, msg)
	cancel()
	if err != nil {
		s.registry.logSendFailure(s.identity, err)
		s.teardown()
		return false
	}
	return true
}

// flush writes whatever was enqueued before the drain began, then tears the
// session down.
func (s *session[T]) flush() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.outbox:
			if !s.write(msg) {
				return
			}
		default:
			s.teardown()
			return
		}
	}
}

// drain closes the session gracefully: no new messages are accepted, the
// writer delivers everything already enqueued, and only then does the
// transport close. Used on clean disconnects so acknowledgements enqueued
// just before the connection ended still reach the client.
func (s *session[T]) drain() {
	s.drainOnce.Do(func() { close(s.closing) })
}

// teardown removes the session from the registry and closes its transport
// immediately, abandoning any queued messages. Idempotent and race-free
// against concurrent Disconnect and send-failure paths.
func (s *session[T]) teardown() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.registry.remove(s)
		_ = s.transport.Close()
	})
}

func (s *session[T]) interestedIn(interest string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.interests) == 0 {
		return true
	}
	_, ok := s.interests[interest]
	return ok
}

func (s *session[T]) replaceInterests(interests []string) {
	next := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		next[interest] = struct{}{}
	}

	s.mu.Lock()
	s.interests = next
	s.mu.Unlock()
}

func (s *session[T]) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session[T]) info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interests := make([]string, 0, len(s.interests))
	for interest := range s.interests {
		interests = append(interests, interest)
	}

	return SessionInfo{
		Identity:    s.identity,
		Interests:   interests,
		ConnectedAt: s.connectedAt,
		LastSeen:    s.lastSeen,
	}
}
