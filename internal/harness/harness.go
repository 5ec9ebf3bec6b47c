package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/guildgrid/internal/cellcodec"
	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/grid"
	"github.com/roach88/guildgrid/internal/model"
	"github.com/roach88/guildgrid/internal/testutil"
)

// kdf keeps key derivation fast and identical across runs.
var kdf = cellcodec.KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}

// Harness executes one scenario against a fresh session and fake store.
type Harness struct {
	scenario *Scenario
	doc      model.GridDocument
	store    *testutil.FakeStore
	session  *engine.Session
	logger   *slog.Logger
}

// Run executes a scenario and returns its result.
//
// The returned error is reserved for scenarios that cannot be set up
// (for example a seed that fails to encrypt). Step and expectation
// mismatches are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	doc := model.GridDocument{
		ID:          scenario.Document.ID,
		GuildID:     scenario.Document.GuildID,
		Slug:        scenario.Document.Slug,
		Name:        scenario.Name,
		HasPassword: scenario.Document.Protected,
	}
	h := &Harness{
		scenario: scenario,
		doc:      doc,
		store:    testutil.NewFakeStore(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.store.SetEcho(scenario.Echo)

	if err := h.seed(); err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithKDFParams(kdf)}
	if scenario.ReencryptOnProtect != nil {
		opts = append(opts, engine.WithReencryptOnProtect(*scenario.ReencryptOnProtect))
	}
	h.session = engine.New(h.store, opts...)
	defer h.session.Dispose()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		action, err := h.execute(ctx, step)
		state := h.session.State().String()
		result.AddTrace(i, action, state, err)
		h.logger.Debug("step executed", "scenario", scenario.Name, "step", i, "action", action, "state", state, "error", err)

		if msg := checkStepError(step.ExpectError, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, action, msg))
		}
		if step.ExpectState != "" && step.ExpectState != state {
			result.AddError(fmt.Sprintf("steps[%d] %s: state = %s, want %s", i, action, state, step.ExpectState))
		}
	}

	h.snapshot(result)
	for _, err := range checkExpectation(scenario.Expect, result) {
		result.AddError(err.Error())
	}

	return result, nil
}

func (h *Harness) seed() error {
	for i, s := range h.scenario.Seed {
		value, err := h.value(s.Value, s.EncryptWith)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		h.store.Seed(model.CellRecord{
			StorageID: s.StorageID,
			GridID:    h.doc.ID,
			GuildID:   h.doc.GuildID,
			Row:       s.Row,
			Column:    s.Column,
			Value:     value,
		})
	}
	return nil
}

// value returns text as stored, encrypting it when passphrase is set.
func (h *Harness) value(text, passphrase string) (string, error) {
	if passphrase == "" {
		return text, nil
	}
	key, err := cellcodec.DeriveKey(passphrase, h.doc.ID, kdf)
	if err != nil {
		return "", err
	}
	defer key.Destroy()
	return cellcodec.Encode(text, key)
}

func (h *Harness) execute(ctx context.Context, st Step) (string, error) {
	switch {
	case st.Initialize:
		return "initialize", h.session.Initialize(ctx, h.doc)
	case st.SupplyPassword != nil:
		return "supply_password", h.session.SuppliedPassword(ctx, *st.SupplyPassword)
	case st.SetPassword != nil:
		return "set_password", h.session.SetPassword(ctx, *st.SetPassword)
	case len(st.Edits) > 0:
		return "edits", h.session.ApplyLocalEdits(ctx, st.Edits)
	case st.Remote != nil:
		ev, err := h.event(st.Remote)
		if err != nil {
			return "remote", err
		}
		h.store.Emit(ev)
		return "remote", nil
	case st.Fail != nil:
		var err error
		if st.Fail.Message != "" {
			err = errors.New(st.Fail.Message)
		}
		h.store.FailWith(validOps[st.Fail.Op], err)
		return "fail", nil
	case st.Dispose:
		h.session.Dispose()
		return "dispose", nil
	default:
		return "", fmt.Errorf("step has no action")
	}
}

func (h *Harness) event(r *RemoteEvent) (model.ChangeEvent, error) {
	value, err := h.value(r.Value, r.EncryptWith)
	if err != nil {
		return model.ChangeEvent{}, err
	}
	rec := model.CellRecord{
		StorageID: r.StorageID,
		GridID:    r.GridID,
		GuildID:   r.GuildID,
		Row:       r.Row,
		Column:    r.Column,
		Value:     value,
	}
	if rec.GridID == "" {
		rec.GridID = h.doc.ID
	}
	if rec.GuildID == "" {
		rec.GuildID = h.doc.GuildID
	}

	typ := model.EventInsert
	switch r.Type {
	case "update":
		typ = model.EventUpdate
	case "delete":
		typ = model.EventDelete
	}
	return model.ChangeEvent{Type: typ, Record: rec}, nil
}

// snapshot copies the session's and store's end state into result.
func (h *Harness) snapshot(result *Result) {
	result.State = h.session.State().String()
	result.Protected = h.session.Protected()
	result.DecodeFailures = h.session.DecodeFailures()

	for _, p := range h.session.Matrix().NonEmpty() {
		result.Cells[p.Coord.String()] = CellSnapshot{Text: p.Text, StorageID: p.StorageID}
	}

	upserts := h.store.UpsertBatches()
	result.UpsertBatches = len(upserts)
	for _, batch := range upserts {
		for _, r := range batch {
			result.Upserted = append(result.Upserted, grid.Coord{Row: r.Row, Col: r.Column}.String())
		}
	}

	deletes := h.store.DeleteBatches()
	result.DeleteBatches = len(deletes)
	for _, batch := range deletes {
		for _, k := range batch {
			result.Deleted = append(result.Deleted, grid.Coord{Row: k.Row, Col: k.Column}.String())
		}
	}
}
