package document

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildgrid/internal/model"
	"github.com/roach88/guildgrid/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedSuffix(s string) CreatorOption {
	return WithSuffixFunc(func() (string, error) { return s, nil })
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		suffix string
		want   string
	}{
		{"simple", "Raid Plan", "ab12c", "raid-plan-ab12c"},
		{"whitespace runs collapse", "Raid \t  Plan", "ab12c", "raid-plan-ab12c"},
		{"punctuation dropped", "Alice's grid!", "zzzzz", "alices-grid-zzzzz"},
		{"non-ascii dropped", "Café Ops", "00000", "caf-ops-00000"},
		{"hyphens kept", "loot-table", "x1y2z", "loot-table-x1y2z"},
		{"empty name", "", "abcde", "-abcde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input, tt.suffix))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	slug := Slugify(strings.Repeat("a", 150), "abcde")
	assert.Len(t, slug, MaxSlugLength)
}

func TestRandomSuffix(t *testing.T) {
	s, err := randomSuffix()
	require.NoError(t, err)
	require.Len(t, s, suffixLength)
	for _, r := range s {
		assert.Contains(t, base36, string(r))
	}
}

func TestCreator_DefaultName(t *testing.T) {
	s := openTestStore(t)
	c := NewCreator(s, fixedSuffix("k9k9k"))

	doc, err := c.Create(context.Background(), "guild-1", "  ", "user-1", "Alice")
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Alice's grid", doc.Name)
	assert.Equal(t, "alices-grid-k9k9k", doc.Slug)
	assert.Equal(t, "user-1", doc.CreatorID)
	assert.Equal(t, "Alice", doc.CreatorDisplayName)
	assert.False(t, doc.HasPassword)
}

func TestCreator_ThenResolve(t *testing.T) {
	s := openTestStore(t)
	c := NewCreator(s, fixedSuffix("aaaaa"))
	r := NewResolver(s)
	ctx := context.Background()

	created, err := c.Create(ctx, "guild-1", "Raid Plan", "user-1", "Alice")
	require.NoError(t, err)

	got, err := r.Resolve(ctx, "guild-1", "raid-plan-aaaaa")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreator_SlugCollision(t *testing.T) {
	s := openTestStore(t)
	c := NewCreator(s, fixedSuffix("aaaaa"))
	ctx := context.Background()

	_, err := c.Create(ctx, "guild-1", "Raid Plan", "user-1", "Alice")
	require.NoError(t, err)

	_, err = c.Create(ctx, "guild-1", "Raid Plan", "user-1", "Alice")
	assert.Error(t, err, "same slug in the same guild must be rejected")

	_, err = c.Create(ctx, "guild-2", "Raid Plan", "user-1", "Alice")
	assert.NoError(t, err, "slugs are scoped per guild")
}

func TestCreator_SuffixError(t *testing.T) {
	c := NewCreator(openTestStore(t), WithSuffixFunc(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := c.Create(context.Background(), "guild-1", "x", "user-1", "Alice")
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestCreator_RequiresGuild(t *testing.T) {
	c := NewCreator(openTestStore(t))

	_, err := c.Create(context.Background(), "", "x", "user-1", "Alice")
	assert.Error(t, err)
}

func TestResolver_NotFound(t *testing.T) {
	r := NewResolver(openTestStore(t))

	_, err := r.Resolve(context.Background(), "guild-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingReader struct{ err error }

func (f failingReader) QueryDocument(context.Context, string, string) (model.GridDocument, error) {
	return model.GridDocument{}, f.err
}

func TestResolver_StoreFailureIsNotNotFound(t *testing.T) {
	boom := errors.New("disk on fire")
	r := NewResolver(failingReader{err: boom})

	_, err := r.Resolve(context.Background(), "guild-1", "sheet")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGridURL(t *testing.T) {
	doc := model.GridDocument{GuildID: "123", Slug: "raid-plan-aaaaa"}

	got, err := GridURL("https://grid.example.com/", doc)
	require.NoError(t, err)
	assert.Equal(t, "https://grid.example.com/grids/123/raid-plan-aaaaa", got)
}
