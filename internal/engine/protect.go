package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/guildgrid/internal/cellcodec"
	"github.com/roach88/guildgrid/internal/model"
)

// SetPassword protects an unprotected grid.
//
// The document's password flag is flipped in the store first; only when
// that succeeds does the session adopt the key. Unless disabled with
// WithReencryptOnProtect(false), every non-empty cell in the matrix is
// then rewritten under the key in one batch.
func (s *Session) SetPassword(ctx context.Context, passphrase string) error {
	s.mu.Lock()
	if s.state != StateReady {
		defer s.mu.Unlock()
		return invalidState("set password", s.state, StateReady)
	}
	if s.key != nil || s.doc.HasPassword || s.protecting {
		s.mu.Unlock()
		return fmt.Errorf("set password: %w (grid is already protected)", ErrInvalidState)
	}
	s.protecting = true
	doc := s.doc
	s.mu.Unlock()

	key, err := cellcodec.DeriveKey(passphrase, doc.ID, s.kdf)
	if err != nil {
		s.endProtect()
		return fmt.Errorf("set password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, doc.ID); err != nil {
		key.Destroy()
		s.endProtect()
		slog.Error("password flag update failed", "grid_id", doc.ID, "error", err)
		return &StoreError{Op: "update_password", Err: err}
	}

	s.mu.Lock()
	s.protecting = false
	if s.state != StateReady {
		s.mu.Unlock()
		key.Destroy()
		return fmt.Errorf("set password: %w", ErrDisposed)
	}
	s.key = key
	s.doc.HasPassword = true

	var errs []error
	var records []model.CellRecord
	if s.reencrypt {
		for _, p := range s.matrix.NonEmpty() {
			value, err := cellcodec.Encode(p.Text, key)
			if err != nil {
				errs = append(errs, fmt.Errorf("reencrypt %s: %w", p.Coord, err))
				continue
			}
			records = append(records, model.CellRecord{
				StorageID: p.StorageID,
				GridID:    doc.ID,
				GuildID:   doc.GuildID,
				Row:       p.Row,
				Column:    p.Col,
				Value:     value,
			})
		}
	}
	s.mu.Unlock()

	slog.Info("grid protected", "grid_id", doc.ID, "reencrypted", len(records))

	if len(records) > 0 {
		if err := s.store.UpsertCells(ctx, records); err != nil {
			slog.Error("re-encryption failed", "grid_id", doc.ID, "cells", len(records), "error", err)
			errs = append(errs, &StoreError{Op: "reencrypt", Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *Session) endProtect() {
	s.mu.Lock()
	s.protecting = false
	s.mu.Unlock()
}
