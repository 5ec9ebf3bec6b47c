package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/guildgrid/internal/document"
	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/gate"
	"github.com/roach88/guildgrid/internal/model"
	"github.com/roach88/guildgrid/internal/store"
)

// env is the per-command wiring of store, session and gate.
type env struct {
	opts      *RootOptions
	formatter *OutputFormatter
	store     *store.Store
	session   *engine.Session
	gate      *gate.Gate
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openEnv opens the configured database.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := newFormatter(opts, cmd)

	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}

	formatter.VerboseLog("Opening database %s", opts.config.Database)
	st, err := store.Open(opts.config.Database, storeOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, "failed to open database: "+err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &env{opts: opts, formatter: formatter, store: st}, nil
}

// openGrid resolves a grid and brings a session over it to Ready,
// prompting for its passphrase if it is protected.
func (e *env) openGrid(ctx context.Context, cmd *cobra.Command, guildID, slug string) (model.GridDocument, error) {
	e.session = engine.New(e.store,
		engine.WithKDFParams(e.opts.config.KDFParams()),
		engine.WithReencryptOnProtect(e.opts.config.ReencryptOnProtect),
	)
	e.gate = gate.New(
		document.NewResolver(e.store),
		e.session,
		newTermPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
	)
	return e.gate.Open(ctx, guildID, slug)
}

// Close disposes the session and closes the database.
func (e *env) Close() {
	if e.session != nil {
		e.session.Dispose()
	}
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
