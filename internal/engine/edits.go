package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/guildgrid/internal/cellcodec"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
)

// Edit sets one cell's text. Empty text clears the cell.
type Edit struct {
	Row  int    `json:"row" yaml:"row"`
	Col  int    `json:"column" yaml:"column"`
	Text string `json:"text" yaml:"text"`
}

// ParseEdit builds an Edit from "R-<n>" / "C-<n>" identifiers.
func ParseEdit(rowID, columnID, text string) (Edit, error) {
	c, err := grid.ToCoordinate(rowID, columnID)
	if err != nil {
		return Edit{}, err
	}
	return Edit{Row: c.Row, Col: c.Col, Text: text}, nil
}

// ApplyLocalEdits applies edits to the matrix immediately, then persists
// them with at most one batched delete and one batched upsert.
//
// Text is NFC-normalized. When several edits target one coordinate the
// last wins. Clearing a cell that is already empty and has no stored
// record issues nothing. An edit outside the grid fails alone with an
// *grid.AddressError; a failed batch yields a *StoreError. Every failure
// is returned joined, and the optimistic matrix is never rolled back.
func (s *Session) ApplyLocalEdits(ctx context.Context, edits []Edit) error {
	s.mu.Lock()
	if s.state != StateReady {
		defer s.mu.Unlock()
		return invalidState("apply local edits", s.state, StateReady)
	}

	var errs []error
	order := make([]grid.Coord, 0, len(edits))
	final := make(map[grid.Coord]string, len(edits))
	for i, e := range edits {
		c, err := grid.NewCoord(e.Row, e.Col)
		if err != nil {
			errs = append(errs, fmt.Errorf("edit %d: %w", i, err))
			continue
		}
		if _, ok := final[c]; !ok {
			order = append(order, c)
		}
		final[c] = grid.NormalizeText(e.Text)
	}

	doc := s.doc
	var deletes []model.CellKey
	var upserts []model.CellRecord
	for _, c := range order {
		text := final[c]
		prev := s.matrix.At(c)
		s.matrix.SetText(c, text)

		if text == "" {
			if prev.Text != "" || prev.StorageID != "" {
				deletes = append(deletes, model.CellKey{
					GridID:  doc.ID,
					GuildID: doc.GuildID,
					Row:     c.Row,
					Column:  c.Col,
				})
			}
			continue
		}

		value, err := cellcodec.Encode(text, s.key)
		if err != nil {
			errs = append(errs, fmt.Errorf("edit %s: %w", c, err))
			continue
		}
		upserts = append(upserts, model.CellRecord{
			StorageID: prev.StorageID,
			GridID:    doc.ID,
			GuildID:   doc.GuildID,
			Row:       c.Row,
			Column:    c.Col,
			Value:     value,
		})
	}
	s.mu.Unlock()

	if len(deletes) > 0 {
		if err := s.store.DeleteCells(ctx, deletes); err != nil {
			slog.Error("cell delete failed", "grid_id", doc.ID, "cells", len(deletes), "error", err)
			errs = append(errs, &StoreError{Op: "delete_cells", Err: err})
		}
	}
	if len(upserts) > 0 {
		if err := s.store.UpsertCells(ctx, upserts); err != nil {
			slog.Error("cell upsert failed", "grid_id", doc.ID, "cells", len(upserts), "error", err)
			errs = append(errs, &StoreError{Op: "upsert_cells", Err: err})
		}
	}

	slog.Debug("local edits applied",
		"grid_id", doc.ID,
		"edits", len(edits),
		"deletes", len(deletes),
		"upserts", len(upserts),
	)
	return errors.Join(errs...)
}
