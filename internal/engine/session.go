package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/guildgrid/internal/cellcodec"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
)

// CellStore is the persistence contract a Session depends on.
// Implemented by *store.Store (production) and *testutil.FakeStore (tests).
type CellStore interface {
	QueryCells(ctx context.Context, guildID, gridID string) ([]model.CellRecord, error)
	UpsertCells(ctx context.Context, records []model.CellRecord) error
	DeleteCells(ctx context.Context, keys []model.CellKey) error
	UpdatePassword(ctx context.Context, gridID string) error
	SubscribeCellChanges(fn func(model.ChangeEvent)) (unsubscribe func())
}

// Session is one client's live view of one grid.
type Session struct {
	store     CellStore
	kdf       cellcodec.KDFParams
	reencrypt bool

	mu          sync.Mutex
	state       State
	doc         model.GridDocument
	matrix      *grid.Matrix
	key         *cellcodec.Key // nil means cells are plaintext
	unsubscribe func()
	cancelLoad  context.CancelFunc

	// Events received while the initial fetch is in flight.
	buffering bool
	pending   []model.ChangeEvent

	protecting     bool
	decodeFailures int
}

// Option configures a Session.
type Option func(*Session)

// WithKDFParams sets the Argon2id cost used to derive cell keys.
//
// Default: cellcodec.DefaultKDFParams.
// Tests use a tiny cost to keep derivation fast.
func WithKDFParams(p cellcodec.KDFParams) Option {
	return func(s *Session) {
		s.kdf = p
	}
}

// WithReencryptOnProtect controls whether SetPassword rewrites the cells
// already in the matrix under the new key.
//
// Default: true. With false, cells written before protection stay
// plaintext in the store.
func WithReencryptOnProtect(on bool) Option {
	return func(s *Session) {
		s.reencrypt = on
	}
}

// New creates an uninitialized session over store.
func New(store CellStore, opts ...Option) *Session {
	s := &Session{
		store:     store,
		kdf:       cellcodec.DefaultKDFParams,
		reencrypt: true,
		matrix:    grid.NewMatrix(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize binds the session to doc and loads its cells.
//
// A password-protected document stops in PendingPassword without fetching
// anything; SuppliedPassword performs the fetch. On a store failure the
// session returns to Uninitialized and may be initialized again.
func (s *Session) Initialize(ctx context.Context, doc model.GridDocument) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		defer s.mu.Unlock()
		return invalidState("initialize", s.state, StateUninitialized)
	}
	s.doc = doc
	s.transition(StateLoading)
	if doc.HasPassword {
		s.transition(StatePendingPassword)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.load(ctx, nil, StateUninitialized)
}

// SuppliedPassword unlocks a protected grid and loads its cells.
//
// A wrong passphrase is not detected: cells that fail to decode show their
// stored value and are counted by DecodeFailures. On a store failure the
// session returns to PendingPassword.
func (s *Session) SuppliedPassword(ctx context.Context, passphrase string) error {
	s.mu.Lock()
	if s.state != StatePendingPassword {
		defer s.mu.Unlock()
		return invalidState("supplied password", s.state, StatePendingPassword)
	}
	s.transition(StateLoading)
	doc := s.doc
	s.mu.Unlock()

	key, err := cellcodec.DeriveKey(passphrase, doc.ID, s.kdf)
	if err != nil {
		s.mu.Lock()
		if s.state == StateLoading {
			s.transition(StatePendingPassword)
		}
		s.mu.Unlock()
		return fmt.Errorf("supplied password: %w", err)
	}

	return s.load(ctx, key, StatePendingPassword)
}

// load fetches the grid's cells, decodes them under key and moves the
// session from Loading to Ready. The subscription opens before the fetch;
// events it delivers meanwhile are applied after the snapshot. On failure
// key is destroyed and the session returns to fallback.
func (s *Session) load(ctx context.Context, key *cellcodec.Key, fallback State) error {
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		key.Destroy()
		return fmt.Errorf("load: %w", ErrDisposed)
	}
	doc := s.doc
	s.cancelLoad = cancel
	s.buffering = true
	s.pending = nil
	s.unsubscribe = s.store.SubscribeCellChanges(s.receive)
	s.mu.Unlock()

	records, err := s.store.QueryCells(loadCtx, doc.GuildID, doc.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLoad = nil
	s.buffering = false
	pending := s.pending
	s.pending = nil

	if s.state == StateDisposed {
		key.Destroy()
		slog.Debug("discarding fetched cells after dispose", "grid_id", doc.ID, "records", len(records))
		return fmt.Errorf("load: %w", ErrDisposed)
	}
	if err != nil {
		s.stopSubscription()
		key.Destroy()
		s.transition(fallback)
		slog.Error("cell fetch failed", "grid_id", doc.ID, "guild_id", doc.GuildID, "error", err)
		return &StoreError{Op: "query_cells", Err: err}
	}

	s.key = key
	m := grid.NewMatrix()
	for _, r := range records {
		c, err := grid.NewCoord(r.Row, r.Column)
		if err != nil {
			slog.Warn("skipping stored cell outside grid", "grid_id", doc.ID, "row", r.Row, "column", r.Column)
			continue
		}
		m.Set(c, grid.Cell{Text: s.decode(r.Value), StorageID: r.StorageID})
	}
	s.matrix = m
	s.transition(StateReady)

	for _, ev := range pending {
		s.apply(ev)
	}

	slog.Info("grid session ready",
		"grid_id", doc.ID,
		"guild_id", doc.GuildID,
		"cells", len(records),
		"replayed_events", len(pending),
		"protected", key != nil,
	)
	return nil
}

// Dispose tears down the subscription and wipes the key. Any in-flight
// fetch is cancelled and its result discarded. Idempotent; valid in every
// state.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed {
		return
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.stopSubscription()
	s.key.Destroy()
	s.key = nil
	s.buffering = false
	s.pending = nil
	s.transition(StateDisposed)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns the bound grid document.
func (s *Session) Document() model.GridDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Protected reports whether a cell key is active.
func (s *Session) Protected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// Matrix returns a snapshot of the rendered grid.
func (s *Session) Matrix() *grid.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matrix.Clone()
}

// Cell returns the rendered cell at (row, col).
func (s *Session) Cell(row, col int) (grid.Cell, error) {
	c, err := grid.NewCoord(row, col)
	if err != nil {
		return grid.Cell{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matrix.At(c), nil
}

// DecodeFailures returns how many stored values failed to decode under the
// active key since the session started.
func (s *Session) DecodeFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodeFailures
}

// decode returns the text for a stored value, falling back to the value
// itself. Caller holds mu.
func (s *Session) decode(stored string) string {
	text, err := cellcodec.Open(stored, s.key)
	if err != nil {
		s.decodeFailures++
		slog.Warn("cell value did not decode under current key", "grid_id", s.doc.ID, "error", err)
		return stored
	}
	return text
}

// stopSubscription unsubscribes if subscribed. Caller holds mu.
func (s *Session) stopSubscription() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// transition moves to a new state. Caller holds mu.
func (s *Session) transition(to State) {
	slog.Debug("session state changed", "grid_id", s.doc.ID, "from", s.state.String(), "to", to.String())
	s.state = to
}
