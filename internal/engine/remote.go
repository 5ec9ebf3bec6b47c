package engine

import (
	"log/slog"

	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
)

// OnRemoteEvent applies one change-feed event to the matrix.
//
// Only Ready sessions apply events; anything else is ignored, as are
// events for other grids and events outside the address space. Insert and
// Update overwrite the coordinate with the decoded value and its storage
// id; Delete empties it. Each event is a total overwrite, so redelivery
// and self-echo are harmless.
func (s *Session) OnRemoteEvent(ev model.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ev)
}

// receive is the change-feed callback. It buffers while the initial fetch
// is in flight.
func (s *Session) receive(ev model.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffering {
		s.pending = append(s.pending, ev)
		return
	}
	s.apply(ev)
}

// apply reconciles one event. Caller holds mu.
func (s *Session) apply(ev model.ChangeEvent) {
	if s.state != StateReady {
		slog.Debug("ignoring remote event", "state", s.state.String(), "seq", ev.Seq)
		return
	}

	r := ev.Record
	if r.GridID != s.doc.ID || r.GuildID != s.doc.GuildID {
		return
	}

	c, err := grid.NewCoord(r.Row, r.Column)
	if err != nil {
		slog.Warn("ignoring remote event outside grid", "grid_id", s.doc.ID, "row", r.Row, "column", r.Column, "seq", ev.Seq)
		return
	}

	switch ev.Type {
	case model.EventInsert, model.EventUpdate:
		cell := grid.Cell{Text: s.decode(r.Value), StorageID: r.StorageID}
		if cell.StorageID == "" {
			cell.StorageID = s.matrix.At(c).StorageID
		}
		s.matrix.Set(c, cell)
	case model.EventDelete:
		s.matrix.Set(c, grid.Cell{})
	default:
		slog.Warn("ignoring remote event of unknown type", "type", ev.Type.String(), "seq", ev.Seq)
	}
}
