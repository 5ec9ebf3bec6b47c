package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/guildgrid/internal/model"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument inserts a grid document with minimal required fields.
func createTestDocument(t *testing.T, s *Store, guildID, slug string) model.GridDocument {
	t.Helper()
	doc, err := s.InsertDocument(context.Background(), model.GridDocument{
		GuildID:            guildID,
		Slug:               slug,
		Name:               slug,
		CreatorID:          "user-1",
		CreatorDisplayName: "alice",
	})
	if err != nil {
		t.Fatalf("InsertDocument() failed: %v", err)
	}
	return doc
}

// createTestCell builds a cell record for doc.
func createTestCell(doc model.GridDocument, row, col int, value string) model.CellRecord {
	return model.CellRecord{
		GridID:  doc.ID,
		GuildID: doc.GuildID,
		Row:     row,
		Column:  col,
		Value:   value,
	}
}

// collectEvents subscribes and returns a channel of every delivered event.
func collectEvents(t *testing.T, s *Store) <-chan model.ChangeEvent {
	t.Helper()
	ch := make(chan model.ChangeEvent, 64)
	unsubscribe := s.SubscribeCellChanges(func(ev model.ChangeEvent) { ch <- ev })
	t.Cleanup(unsubscribe)
	return ch
}

// nextEvent waits for one event or fails the test.
func nextEvent(t *testing.T, ch <-chan model.ChangeEvent) model.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return model.ChangeEvent{}
	}
}

// assertNoEvent fails if an event arrives within a short window.
func assertNoEvent(t *testing.T, ch <-chan model.ChangeEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected change event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
