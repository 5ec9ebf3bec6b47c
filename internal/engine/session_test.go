package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildgrid/internal/cellcodec"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
	"github.com/roach88/guildgrid/internal/testutil"
)

// testKDF keeps key derivation fast; production cost is irrelevant here.
var testKDF = cellcodec.KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}

func testDoc() model.GridDocument {
	return model.GridDocument{ID: "grid-1", GuildID: "guild-1", Slug: "sheet-abcde", Name: "Sheet"}
}

func protectedDoc() model.GridDocument {
	doc := testDoc()
	doc.HasPassword = true
	return doc
}

func record(row, col int, value string) model.CellRecord {
	return model.CellRecord{GridID: "grid-1", GuildID: "guild-1", Row: row, Column: col, Value: value}
}

func newSession(f *testutil.FakeStore, opts ...Option) *Session {
	return New(f, append([]Option{WithKDFParams(testKDF)}, opts...)...)
}

func newReadySession(t *testing.T, f *testutil.FakeStore, opts ...Option) *Session {
	t.Helper()
	s := newSession(f, opts...)
	require.NoError(t, s.Initialize(context.Background(), testDoc()))
	require.Equal(t, StateReady, s.State())
	t.Cleanup(s.Dispose)
	return s
}

func testKey(t *testing.T, passphrase string) *cellcodec.Key {
	t.Helper()
	key, err := cellcodec.DeriveKey(passphrase, "grid-1", testKDF)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	return key
}

func encrypt(t *testing.T, key *cellcodec.Key, text string) string {
	t.Helper()
	v, err := cellcodec.Encode(text, key)
	require.NoError(t, err)
	return v
}

func text(t *testing.T, s *Session, row, col int) string {
	t.Helper()
	c, err := s.Cell(row, col)
	require.NoError(t, err)
	return c.Text
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "pending_password", StatePendingPassword.String())
	assert.Equal(t, "disposed", StateDisposed.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestInitialize_PopulatesMatrix(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(2, 3, "hello"))

	s := newReadySession(t, f)

	m := s.Matrix()
	assert.Equal(t, grid.MaxRows, m.Rows())
	assert.Equal(t, grid.MaxCols, m.Cols())
	assert.Equal(t, "hello", text(t, s, 2, 3))
	assert.Equal(t, "", text(t, s, 0, 0))

	c, err := s.Cell(2, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, c.StorageID, "fetched cells remember their storage id")
	assert.Equal(t, 1, f.Subscribers())
}

func TestInitialize_OnlyOnce(t *testing.T) {
	s := newReadySession(t, testutil.NewFakeStore())

	err := s.Initialize(context.Background(), testDoc())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestInitialize_ProtectedDocumentWaitsForPassword(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newSession(f)
	defer s.Dispose()

	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))

	assert.Equal(t, StatePendingPassword, s.State())
	assert.Equal(t, 0, f.Calls(testutil.OpQuery), "no fetch before a passphrase is known")
	assert.Equal(t, 0, f.Subscribers(), "no subscription before a passphrase is known")
}

func TestInitialize_StoreFailureAllowsRetry(t *testing.T) {
	f := testutil.NewFakeStore()
	f.FailWith(testutil.OpQuery, errors.New("backend unavailable"))
	s := newSession(f)
	defer s.Dispose()

	err := s.Initialize(context.Background(), testDoc())
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Equal(t, StateUninitialized, s.State())
	assert.Equal(t, 0, f.Subscribers())

	f.FailWith(testutil.OpQuery, nil)
	require.NoError(t, s.Initialize(context.Background(), testDoc()))
	assert.Equal(t, StateReady, s.State())
}

func TestSuppliedPassword_DecodesCells(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(7, 8, encrypt(t, testKey(t, "secret"), "42")))
	s := newSession(f)
	defer s.Dispose()

	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))
	require.NoError(t, s.SuppliedPassword(context.Background(), "secret"))

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "42", text(t, s, 7, 8))
	assert.Equal(t, 0, s.DecodeFailures())
	assert.True(t, s.Protected())
	assert.Equal(t, 1, f.Subscribers())
}

func TestSuppliedPassword_WrongPassphraseIsNotAnError(t *testing.T) {
	f := testutil.NewFakeStore()
	stored := encrypt(t, testKey(t, "secret"), "42")
	f.Seed(record(0, 0, stored))
	s := newSession(f)
	defer s.Dispose()

	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))
	require.NoError(t, s.SuppliedPassword(context.Background(), "wrong"))

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, stored, text(t, s, 0, 0), "undecodable cells show their stored value")
	assert.Equal(t, 1, s.DecodeFailures())
}

func TestSuppliedPassword_EmptyPassphraseStaysPending(t *testing.T) {
	s := newSession(testutil.NewFakeStore())
	defer s.Dispose()
	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))

	err := s.SuppliedPassword(context.Background(), "")
	assert.ErrorIs(t, err, cellcodec.ErrEmptyPassphrase)
	assert.Equal(t, StatePendingPassword, s.State())
}

func TestSuppliedPassword_StoreFailureStaysPending(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newSession(f)
	defer s.Dispose()
	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))

	f.FailWith(testutil.OpQuery, errors.New("timeout"))
	err := s.SuppliedPassword(context.Background(), "secret")
	assert.True(t, IsStoreError(err))
	assert.Equal(t, StatePendingPassword, s.State())
	assert.False(t, s.Protected())
}

func TestSuppliedPassword_OnlyWhenPending(t *testing.T) {
	s := newReadySession(t, testutil.NewFakeStore())

	err := s.SuppliedPassword(context.Background(), "secret")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyLocalEdits_OptimisticThenOneUpsertBatch(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)

	err := s.ApplyLocalEdits(context.Background(), []Edit{
		{Row: 1, Col: 1, Text: "a"},
		{Row: 1, Col: 2, Text: "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "a", text(t, s, 1, 1))
	assert.Equal(t, "b", text(t, s, 1, 2))

	batches := f.UpsertBatches()
	require.Len(t, batches, 1, "one upsert per call")
	assert.Len(t, batches[0], 2)
	assert.Equal(t, 0, f.Calls(testutil.OpDelete))
}

func TestApplyLocalEdits_ClearingEmptyCellIssuesNothing(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)

	require.NoError(t, s.ApplyLocalEdits(context.Background(), []Edit{{Row: 5, Col: 5, Text: ""}}))

	assert.Equal(t, 0, f.Calls(testutil.OpDelete))
	assert.Equal(t, 0, f.Calls(testutil.OpUpsert))
	_, ok := f.Cell("grid-1", "guild-1", 5, 5)
	assert.False(t, ok)
}

func TestApplyLocalEdits_ClearingStoredCellDeletesByCoordinate(t *testing.T) {
	f := testutil.NewFakeStore()
	seeded := record(4, 4, "old")
	seeded.StorageID = "abc"
	f.Seed(seeded)
	s := newReadySession(t, f)

	require.NoError(t, s.ApplyLocalEdits(context.Background(), []Edit{{Row: 4, Col: 4, Text: ""}}))

	deletes := f.DeleteBatches()
	require.Len(t, deletes, 1)
	assert.Equal(t, []model.CellKey{{GridID: "grid-1", GuildID: "guild-1", Row: 4, Column: 4}}, deletes[0])
	assert.Equal(t, 0, f.Calls(testutil.OpUpsert))
	assert.Equal(t, "", text(t, s, 4, 4))
}

func TestApplyLocalEdits_UpsertCarriesStorageID(t *testing.T) {
	f := testutil.NewFakeStore()
	seeded := record(0, 0, "v1")
	seeded.StorageID = "abc"
	f.Seed(seeded)
	s := newReadySession(t, f)

	require.NoError(t, s.ApplyLocalEdits(context.Background(), []Edit{{Row: 0, Col: 0, Text: "v2"}}))

	batches := f.UpsertBatches()
	require.Len(t, batches, 1)
	assert.Equal(t, "abc", batches[0][0].StorageID)
	assert.Equal(t, "v2", batches[0][0].Value)
}

func TestApplyLocalEdits_MixedBatch(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(0, 0, "gone"), record(0, 1, "also gone"))
	s := newReadySession(t, f)

	err := s.ApplyLocalEdits(context.Background(), []Edit{
		{Row: 0, Col: 0, Text: ""},
		{Row: 0, Col: 1, Text: ""},
		{Row: 9, Col: 9, Text: "new"},
	})
	require.NoError(t, err)

	require.Len(t, f.DeleteBatches(), 1)
	assert.Len(t, f.DeleteBatches()[0], 2)
	require.Len(t, f.UpsertBatches(), 1)
	assert.Len(t, f.UpsertBatches()[0], 1)
}

func TestApplyLocalEdits_LastEditPerCoordinateWins(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)

	err := s.ApplyLocalEdits(context.Background(), []Edit{
		{Row: 3, Col: 3, Text: "first"},
		{Row: 3, Col: 3, Text: "second"},
	})
	require.NoError(t, err)

	assert.Equal(t, "second", text(t, s, 3, 3))
	batches := f.UpsertBatches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "second", batches[0][0].Value)
}

func TestApplyLocalEdits_AddressErrorsAreLocal(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)

	err := s.ApplyLocalEdits(context.Background(), []Edit{
		{Row: -1, Col: 0, Text: "x"},
		{Row: 0, Col: 100, Text: "y"},
		{Row: 1, Col: 1, Text: "ok"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)
	assert.True(t, grid.IsAddressError(err))
	assert.False(t, IsStoreError(err))

	assert.Equal(t, "ok", text(t, s, 1, 1))
	require.Len(t, f.UpsertBatches(), 1)
	assert.Len(t, f.UpsertBatches()[0], 1)
	assert.Equal(t, StateReady, s.State(), "address errors never end the session")
}

func TestApplyLocalEdits_StoreFailureKeepsOptimisticState(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)
	f.FailWith(testutil.OpUpsert, errors.New("write rejected"))

	err := s.ApplyLocalEdits(context.Background(), []Edit{{Row: 2, Col: 2, Text: "kept"}})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.ErrorContains(t, err, "write rejected")

	assert.Equal(t, "kept", text(t, s, 2, 2), "no rollback")
}

func TestApplyLocalEdits_BothBatchesFail(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(0, 0, "x"))
	s := newReadySession(t, f)
	f.FailWith(testutil.OpDelete, errors.New("delete down"))
	f.FailWith(testutil.OpUpsert, errors.New("upsert down"))

	err := s.ApplyLocalEdits(context.Background(), []Edit{
		{Row: 0, Col: 0, Text: ""},
		{Row: 0, Col: 1, Text: "y"},
	})
	assert.ErrorContains(t, err, "delete down")
	assert.ErrorContains(t, err, "upsert down")
}

func TestApplyLocalEdits_RequiresReady(t *testing.T) {
	s := newSession(testutil.NewFakeStore())

	err := s.ApplyLocalEdits(context.Background(), []Edit{{Row: 0, Col: 0, Text: "x"}})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorContains(t, err, "state=uninitialized")
}

func TestApplyLocalEdits_NormalizesText(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newReadySession(t, f)
	decomposed := "e\u0301"
	precomposed := "\u00e9"

	require.NoError(t, s.ApplyLocalEdits(context.Background(), []Edit{{Row: 0, Col: 0, Text: decomposed}}))

	assert.Equal(t, precomposed, text(t, s, 0, 0))
	assert.Equal(t, precomposed, f.UpsertBatches()[0][0].Value)
}

func TestApplyLocalEdits_EncryptsUnderKey(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newSession(f)
	defer s.Dispose()
	require.NoError(t, s.Initialize(context.Background(), protectedDoc()))
	require.NoError(t, s.SuppliedPassword(context.Background(), "secret"))

	require.NoError(t, s.ApplyLocalEdits(context.Background(), []Edit{{Row: 6, Col: 6, Text: "plain"}}))

	stored := f.UpsertBatches()[0][0].Value
	assert.NotEqual(t, "plain", stored, "plaintext must never reach the store")
	got, err := cellcodec.Open(stored, testKey(t, "secret"))
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
	assert.Equal(t, "plain", text(t, s, 6, 6))
}

func TestParseEdit(t *testing.T) {
	e, err := ParseEdit("R-3", "C-7", "x")
	require.NoError(t, err)
	assert.Equal(t, Edit{Row: 3, Col: 7, Text: "x"}, e)

	_, err = ParseEdit("row3", "C-7", "x")
	assert.ErrorIs(t, err, grid.ErrMalformedAddress)
}

func TestDispose_Idempotent(t *testing.T) {
	f := testutil.NewFakeStore()
	s := newSession(f)
	require.NoError(t, s.Initialize(context.Background(), testDoc()))
	require.Equal(t, 1, f.Subscribers())

	s.Dispose()
	s.Dispose()

	assert.Equal(t, StateDisposed, s.State())
	assert.Equal(t, 0, f.Subscribers())
	assert.ErrorIs(t, s.ApplyLocalEdits(context.Background(), nil), ErrInvalidState)
}

func TestDispose_FromEveryState(t *testing.T) {
	s := newSession(testutil.NewFakeStore())
	s.Dispose()
	assert.Equal(t, StateDisposed, s.State())

	p := newSession(testutil.NewFakeStore())
	require.NoError(t, p.Initialize(context.Background(), protectedDoc()))
	p.Dispose()
	assert.Equal(t, StateDisposed, p.State())
	assert.ErrorIs(t, p.SuppliedPassword(context.Background(), "pw"), ErrInvalidState)
}

func TestDispose_DuringInitializeDiscardsFetch(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(1, 1, "late"))
	started := make(chan struct{})
	f.OnQuery = func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}
	s := newSession(f)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Initialize(context.Background(), testDoc()) }()

	<-started
	s.Dispose()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrDisposed)
	case <-time.After(2 * time.Second):
		t.Fatal("initialize did not return after dispose")
	}
	assert.Equal(t, StateDisposed, s.State())
	assert.Equal(t, "", text(t, s, 1, 1), "fetched result must be discarded")
	assert.Equal(t, 0, f.Subscribers())
}

func TestLoad_EventsDuringFetchAreReplayed(t *testing.T) {
	f := testutil.NewFakeStore()
	f.Seed(record(0, 0, "snapshot"))
	f.OnQuery = func(context.Context) {
		f.Emit(model.ChangeEvent{Type: model.EventInsert, Record: record(3, 3, "during fetch")})
	}

	s := newReadySession(t, f)

	assert.Equal(t, "snapshot", text(t, s, 0, 0))
	assert.Equal(t, "during fetch", text(t, s, 3, 3))
}
