package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/guildgrid/internal/model"
)

// Address-space bounds mirrored from the gg_cells CHECK constraints.
const (
	maxRow    = 100
	maxColumn = 100
)

// QueryCells returns every stored cell of a grid, ordered by row then
// column. Returns an empty slice (not nil) if the grid has no cells.
func (s *Store) QueryCells(ctx context.Context, guildID, gridID string) ([]model.CellRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, grid_id, guild_id, gg_row, gg_column, gg_value
		FROM gg_cells
		WHERE guild_id = ? AND grid_id = ?
		ORDER BY gg_row ASC, gg_column ASC
	`, guildID, gridID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	cells := []model.CellRecord{}
	for rows.Next() {
		var c model.CellRecord
		if err := rows.Scan(&c.StorageID, &c.GridID, &c.GuildID, &c.Row, &c.Column, &c.Value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}

	return cells, nil
}

// UpsertCells writes a batch of non-empty cells in one transaction.
//
// A record with a StorageID updates that row. A record without one updates
// whatever row already sits at its coordinate, or inserts a new row. One
// change event per record is published after commit. The whole batch fails
// if any record is invalid.
func (s *Store) UpsertCells(ctx context.Context, records []model.CellRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return fmt.Errorf("upsert cells: record %d: %w", i, err)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert cells: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	events := make([]model.ChangeEvent, 0, len(records))
	for _, r := range records {
		ev, err := s.upsertOne(ctx, tx, r)
		if err != nil {
			return fmt.Errorf("upsert cells: %w", err)
		}
		events = append(events, ev)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert cells: commit: %w", err)
	}

	s.stampAndPublish(events)
	return nil
}

func (s *Store) upsertOne(ctx context.Context, tx *sql.Tx, r model.CellRecord) (model.ChangeEvent, error) {
	if r.StorageID != "" {
		stored, err := selectCellByID(ctx, tx, r.StorageID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE gg_cells SET gg_value = ? WHERE id = ?
			`, r.Value, r.StorageID); err != nil {
				return model.ChangeEvent{}, fmt.Errorf("update cell %s: %w", r.StorageID, err)
			}
			stored.Value = r.Value
			return model.ChangeEvent{Type: model.EventUpdate, Record: stored}, nil
		case !errors.Is(err, sql.ErrNoRows):
			return model.ChangeEvent{}, fmt.Errorf("select cell %s: %w", r.StorageID, err)
		}
		// The row was deleted since the caller learned its id; fall
		// through and re-create it at the record's coordinate.
	}

	var existingID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM gg_cells
		WHERE grid_id = ? AND gg_row = ? AND gg_column = ?
	`, r.GridID, r.Row, r.Column).Scan(&existingID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `
			UPDATE gg_cells SET gg_value = ? WHERE id = ?
		`, r.Value, existingID); err != nil {
			return model.ChangeEvent{}, fmt.Errorf("update cell at %d,%d: %w", r.Row, r.Column, err)
		}
		r.StorageID = existingID
		return model.ChangeEvent{Type: model.EventUpdate, Record: r}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return model.ChangeEvent{}, fmt.Errorf("select cell at %d,%d: %w", r.Row, r.Column, err)
	}

	if r.StorageID == "" {
		r.StorageID = s.ids.Generate()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gg_cells
		(id, grid_id, guild_id, gg_row, gg_column, gg_value)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.StorageID, r.GridID, r.GuildID, r.Row, r.Column, r.Value); err != nil {
		return model.ChangeEvent{}, fmt.Errorf("insert cell at %d,%d: %w", r.Row, r.Column, err)
	}
	return model.ChangeEvent{Type: model.EventInsert, Record: r}, nil
}

// DeleteCells removes the cells matching each key in one transaction.
// Keys that match nothing are not an error and publish no event.
func (s *Store) DeleteCells(ctx context.Context, keys []model.CellKey) error {
	if len(keys) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete cells: begin tx: %w", err)
	}
	defer tx.Rollback()

	var events []model.ChangeEvent
	for _, k := range keys {
		old := model.CellRecord{GridID: k.GridID, GuildID: k.GuildID, Row: k.Row, Column: k.Column}
		err := tx.QueryRowContext(ctx, `
			SELECT id, gg_value FROM gg_cells
			WHERE grid_id = ? AND guild_id = ? AND gg_row = ? AND gg_column = ?
		`, k.GridID, k.GuildID, k.Row, k.Column).Scan(&old.StorageID, &old.Value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("delete cells: select %d,%d: %w", k.Row, k.Column, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM gg_cells WHERE id = ?`, old.StorageID); err != nil {
			return fmt.Errorf("delete cells: delete %d,%d: %w", k.Row, k.Column, err)
		}
		events = append(events, model.ChangeEvent{Type: model.EventDelete, Record: old})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete cells: commit: %w", err)
	}

	s.stampAndPublish(events)
	return nil
}

// stampAndPublish assigns commit-order sequence numbers and hands the
// events to the feed. Caller must hold writeMu.
func (s *Store) stampAndPublish(events []model.ChangeEvent) {
	for i := range events {
		events[i].Seq = s.clock.Next()
	}
	s.feed.publish(events)
}

func selectCellByID(ctx context.Context, tx *sql.Tx, id string) (model.CellRecord, error) {
	var c model.CellRecord
	err := tx.QueryRowContext(ctx, `
		SELECT id, grid_id, guild_id, gg_row, gg_column, gg_value
		FROM gg_cells WHERE id = ?
	`, id).Scan(&c.StorageID, &c.GridID, &c.GuildID, &c.Row, &c.Column, &c.Value)
	return c, err
}

func validateRecord(r model.CellRecord) error {
	if r.GridID == "" || r.GuildID == "" {
		return fmt.Errorf("grid id and guild id are required")
	}
	if r.Row < 0 || r.Row >= maxRow || r.Column < 0 || r.Column >= maxColumn {
		return fmt.Errorf("coordinate %d,%d out of bounds", r.Row, r.Column)
	}
	if r.Value == "" {
		return fmt.Errorf("empty value at %d,%d: clear cells with DeleteCells", r.Row, r.Column)
	}
	return nil
}
