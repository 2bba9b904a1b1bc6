// Package syncer reconciles batches of stock operations queued on clients
// while they were offline.
//
// Each operation in a batch resolves independently to processed, failed, or
// duplicate; a batch is never transactional. Operations touching the same
// (item, location) pair are serialized through a keyed mutex so concurrent
// batches cannot interleave deltas on one item, while distinct items apply
// in parallel.
//
// Replay protection comes from a Ledger keyed by the client-assigned
// operation id. The memory ledger serves single-node deployments; the redis
// ledger shares dedup state across instances. A ledger outage degrades to
// applying without dedup rather than rejecting the batch.
//
// After every applied operation the reconciler relays the change to live
// sessions and runs a targeted alert pass, so an offline sale that crosses a
// reorder threshold alerts as soon as the batch lands.
package syncer
