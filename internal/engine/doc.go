// Package engine implements the grid sync session.
//
// A Session owns one user's view of one grid: a dense 100×100 matrix, the
// optional cell key, and a subscription to the store's change feed. Local
// edits are applied to the matrix before any store round trip and then
// persisted in at most two batches per call. Remote change events are
// total overwrites of one coordinate, so applying an event twice, or
// receiving the echo of one's own write, leaves the matrix unchanged.
//
// STATES:
//
//	Uninitialized ─Initialize─▶ Loading ─▶ Ready
//	                               │
//	                               └─(has password)─▶ PendingPassword ─SuppliedPassword─▶ Ready
//
// Dispose moves any state to Disposed, which is terminal.
//
// CONCURRENCY:
//
// All methods are safe for concurrent use. The session mutex guards the
// matrix, the key and the state; it is never held across a store round
// trip, so a local edit and its own echo may interleave. The change feed
// delivers events on its own goroutine in commit order.
//
// Events that arrive while the initial fetch is in flight are buffered and
// applied, in order, on top of the fetched snapshot.
package engine
