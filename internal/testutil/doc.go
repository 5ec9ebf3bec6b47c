// Package testutil provides in-memory doubles for exercising the sync
// engine without SQLite.
//
// FakeStore implements the engine's CellStore contract, records every
// batch it receives, can be told to fail, and lets a test drive the
// change feed by hand.
package testutil
