// Package registry tracks live, addressable client sessions and fans
// messages out to them by interest.
//
// Each connected identity has exactly one session. A session carries an
// interest set of opaque keys (location ids in this system); an empty set
// means "subscribed to everything". Point-to-point sends, interest-scoped
// broadcasts, and global broadcasts all enqueue onto a bounded per-session
// outbox drained by a dedicated writer goroutine, so a slow or broken client
// is isolated: its session is torn down while delivery to every other
// session proceeds. Transport failures are handled exactly like disconnects
// and never surfaced to broadcasting callers.
//
// The registry is generic over the message type, mirroring how the engine's
// live surface instantiates it with its wire event type.
package registry
