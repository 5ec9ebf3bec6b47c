package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/guildgrid/internal/model"
	"github.com/roach88/guildgrid/internal/store"
)

// ErrNotFound is returned when no grid matches a guild and slug.
// It is a normal outcome, not a failure.
var ErrNotFound = errors.New("grid not found")

// DocumentReader looks up grid documents.
type DocumentReader interface {
	QueryDocument(ctx context.Context, guildID, slug string) (model.GridDocument, error)
}

// Resolver maps (guild, slug) to a GridDocument.
type Resolver struct {
	docs DocumentReader
}

// NewResolver creates a resolver over docs.
func NewResolver(docs DocumentReader) *Resolver {
	return &Resolver{docs: docs}
}

// Resolve returns the grid for guildID and slug, or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, guildID, slug string) (model.GridDocument, error) {
	if guildID == "" || slug == "" {
		return model.GridDocument{}, fmt.Errorf("resolve %q/%q: %w", guildID, slug, ErrNotFound)
	}

	doc, err := r.docs.QueryDocument(ctx, guildID, slug)
	if errors.Is(err, store.ErrNotFound) {
		return model.GridDocument{}, fmt.Errorf("resolve %s/%s: %w", guildID, slug, ErrNotFound)
	}
	if err != nil {
		return model.GridDocument{}, fmt.Errorf("resolve %s/%s: %w", guildID, slug, err)
	}
	return doc, nil
}
