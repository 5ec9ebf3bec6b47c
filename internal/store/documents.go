package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/guildgrid/internal/model"
)

const documentColumns = `id, guild_id, grid_slug, grid_name, has_password, created_by_id, created_by_username`

// InsertDocument stores a new grid document and returns it with its id.
// A document with an empty ID gets a generated one. HasPassword on the
// input is honoured so imports can preserve protection.
func (s *Store) InsertDocument(ctx context.Context, doc model.GridDocument) (model.GridDocument, error) {
	if doc.GuildID == "" || doc.Slug == "" {
		return model.GridDocument{}, fmt.Errorf("insert document: guild id and slug are required")
	}
	if doc.ID == "" {
		doc.ID = s.ids.Generate()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gg_grids
		(`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.GuildID,
		doc.Slug,
		doc.Name,
		doc.HasPassword,
		doc.CreatorID,
		doc.CreatorDisplayName,
	)
	if err != nil {
		return model.GridDocument{}, fmt.Errorf("insert document: %w", err)
	}

	return doc, nil
}

// QueryDocument resolves a grid by guild and slug.
// Returns ErrNotFound if no such grid exists.
func (s *Store) QueryDocument(ctx context.Context, guildID, slug string) (model.GridDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM gg_grids
		WHERE guild_id = ? AND grid_slug = ?
	`, guildID, slug)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GridDocument{}, fmt.Errorf("query document %s/%s: %w", guildID, slug, ErrNotFound)
	}
	if err != nil {
		return model.GridDocument{}, fmt.Errorf("query document: %w", err)
	}
	return doc, nil
}

// ListDocumentsByCreator returns every grid created by a user, ordered by
// name then slug. Returns an empty slice (not nil) if there are none.
func (s *Store) ListDocumentsByCreator(ctx context.Context, creatorID string) ([]model.GridDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM gg_grids
		WHERE created_by_id = ?
		ORDER BY grid_name ASC, grid_slug ASC
	`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.GridDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// UpdatePassword marks a grid as password protected.
// The flag only ever flips false→true; there is no way to clear it.
// Returns ErrNotFound if the grid does not exist.
func (s *Store) UpdatePassword(ctx context.Context, gridID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE gg_grids SET has_password = 1 WHERE id = ?
	`, gridID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update password for grid %s: %w", gridID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.GridDocument, error) {
	var doc model.GridDocument
	err := row.Scan(
		&doc.ID, &doc.GuildID, &doc.Slug, &doc.Name,
		&doc.HasPassword, &doc.CreatorID, &doc.CreatorDisplayName,
	)
	return doc, err
}
