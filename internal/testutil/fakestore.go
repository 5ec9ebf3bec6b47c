package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/guildgrid/internal/model"
)

// Op names a FakeStore operation for error injection and call counting.
type Op string

const (
	OpQuery          Op = "query"
	OpUpsert         Op = "upsert"
	OpDelete         Op = "delete"
	OpUpdatePassword Op = "update_password"
)

// FakeStore is an in-memory CellStore.
//
// By default writes change the stored cells but publish nothing; call
// Emit to deliver events, or enable echo so every successful write is
// delivered to subscribers synchronously before the write returns.
//
// Thread-safety: all methods are safe for concurrent use. Subscriber
// callbacks run without the internal lock held.
type FakeStore struct {
	mu sync.Mutex

	cells    map[model.CellKey]model.CellRecord
	nextID   int
	clock    *DeterministicClock
	echo     bool
	errs     map[Op]error
	calls    map[Op]int
	upserts  [][]model.CellRecord
	deletes  [][]model.CellKey
	password []string

	subs    map[int]func(model.ChangeEvent)
	nextSub int

	// OnQuery, if set, runs at the start of QueryCells with the caller's
	// context. Tests use it to hold a fetch in flight.
	OnQuery func(ctx context.Context)
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		cells: make(map[model.CellKey]model.CellRecord),
		clock: NewDeterministicClock(),
		errs:  make(map[Op]error),
		calls: make(map[Op]int),
		subs:  make(map[int]func(model.ChangeEvent)),
	}
}

// SetEcho turns synchronous write echo on or off.
func (f *FakeStore) SetEcho(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echo = on
}

// FailWith makes every subsequent call of op return err. A nil err clears
// the failure.
func (f *FakeStore) FailWith(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Seed stores records without publishing events. Records without a
// StorageID get one.
func (f *FakeStore) Seed(records ...model.CellRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		if r.StorageID == "" {
			r.StorageID = f.mintID()
		}
		f.cells[r.Key()] = r
	}
}

// QueryCells returns the grid's cells ordered by row then column.
func (f *FakeStore) QueryCells(ctx context.Context, guildID, gridID string) ([]model.CellRecord, error) {
	f.mu.Lock()
	hook := f.OnQuery
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[OpQuery]++
	if err := f.errs[OpQuery]; err != nil {
		return nil, err
	}

	out := []model.CellRecord{}
	for row := 0; row < 100; row++ {
		for col := 0; col < 100; col++ {
			if r, ok := f.cells[model.CellKey{GridID: gridID, GuildID: guildID, Row: row, Column: col}]; ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// UpsertCells records the batch and applies it.
func (f *FakeStore) UpsertCells(ctx context.Context, records []model.CellRecord) error {
	f.mu.Lock()
	f.calls[OpUpsert]++
	f.upserts = append(f.upserts, append([]model.CellRecord(nil), records...))
	if err := f.errs[OpUpsert]; err != nil {
		f.mu.Unlock()
		return err
	}

	events := make([]model.ChangeEvent, 0, len(records))
	for _, r := range records {
		if r.Value == "" {
			f.mu.Unlock()
			return fmt.Errorf("fake upsert: empty value at %d,%d", r.Row, r.Column)
		}
	}
	for _, r := range records {
		typ := model.EventUpdate
		existing, ok := f.cells[r.Key()]
		switch {
		case ok:
			r.StorageID = existing.StorageID
		case r.StorageID == "":
			r.StorageID = f.mintID()
			typ = model.EventInsert
		default:
			typ = model.EventInsert
		}
		f.cells[r.Key()] = r
		events = append(events, model.ChangeEvent{Type: typ, Record: r, Seq: f.clock.Next()})
	}
	subs := f.echoTargets()
	f.mu.Unlock()

	deliver(subs, events)
	return nil
}

// DeleteCells records the batch and removes matching cells.
func (f *FakeStore) DeleteCells(ctx context.Context, keys []model.CellKey) error {
	f.mu.Lock()
	f.calls[OpDelete]++
	f.deletes = append(f.deletes, append([]model.CellKey(nil), keys...))
	if err := f.errs[OpDelete]; err != nil {
		f.mu.Unlock()
		return err
	}

	var events []model.ChangeEvent
	for _, k := range keys {
		old, ok := f.cells[k]
		if !ok {
			continue
		}
		delete(f.cells, k)
		events = append(events, model.ChangeEvent{Type: model.EventDelete, Record: old, Seq: f.clock.Next()})
	}
	subs := f.echoTargets()
	f.mu.Unlock()

	deliver(subs, events)
	return nil
}

// UpdatePassword records that gridID was marked protected.
func (f *FakeStore) UpdatePassword(ctx context.Context, gridID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[OpUpdatePassword]++
	if err := f.errs[OpUpdatePassword]; err != nil {
		return err
	}
	f.password = append(f.password, gridID)
	return nil
}

// SubscribeCellChanges registers fn for events delivered by Emit or echo.
func (f *FakeStore) SubscribeCellChanges(fn func(model.ChangeEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Emit delivers ev synchronously to every current subscriber in
// registration order. A zero Seq is stamped from the clock.
func (f *FakeStore) Emit(ev model.ChangeEvent) {
	f.mu.Lock()
	if ev.Seq == 0 {
		ev.Seq = f.clock.Next()
	}
	subs := f.subscribers()
	f.mu.Unlock()

	deliver(subs, []model.ChangeEvent{ev})
}

// Subscribers returns the number of live subscriptions.
func (f *FakeStore) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Calls returns how many times op was invoked, failures included.
func (f *FakeStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// UpsertBatches returns a copy of every upsert batch received.
func (f *FakeStore) UpsertBatches() [][]model.CellRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]model.CellRecord(nil), f.upserts...)
}

// DeleteBatches returns a copy of every delete batch received.
func (f *FakeStore) DeleteBatches() [][]model.CellKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]model.CellKey(nil), f.deletes...)
}

// ProtectedGrids returns the grid ids passed to UpdatePassword.
func (f *FakeStore) ProtectedGrids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.password...)
}

// Cell returns the stored record at a coordinate.
func (f *FakeStore) Cell(gridID, guildID string, row, col int) (model.CellRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.cells[model.CellKey{GridID: gridID, GuildID: guildID, Row: row, Column: col}]
	return r, ok
}

// Len returns the number of stored cells across all grids.
func (f *FakeStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cells)
}

func (f *FakeStore) mintID() string {
	f.nextID++
	return fmt.Sprintf("cell-%d", f.nextID)
}

// echoTargets returns the subscribers to echo to. Caller holds mu.
func (f *FakeStore) echoTargets() []func(model.ChangeEvent) {
	if !f.echo {
		return nil
	}
	return f.subscribers()
}

// subscribers snapshots the callbacks. Caller holds mu.
func (f *FakeStore) subscribers() []func(model.ChangeEvent) {
	out := make([]func(model.ChangeEvent), 0, len(f.subs))
	for i := 0; i < f.nextSub; i++ {
		if fn, ok := f.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func deliver(subs []func(model.ChangeEvent), events []model.ChangeEvent) {
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
