// Package stock defines the boundary to the authoritative stock store.
//
// The engine consumes the Provider interface only: reads may be slightly
// stale, and the single write path, ApplyDelta, saturates resulting
// quantities at zero and records an audit Transaction per applied change.
// MemoryProvider is the in-memory implementation used by tests and local
// development.
package stock
