package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/guildgrid/internal/engine"
	"github.com/roach88/guildgrid/internal/grid"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id> <slug>",
		Short: "Print a grid's non-empty cells",
		Long: `Print every non-empty cell of a grid in row-major order.

Protected grids prompt for their passphrase. A wrong passphrase is not an
error: cells that do not decode are printed as stored and counted.

Example:
  guildgrid show 123456 raid-plan-k3x9q`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runShow(opts *RootOptions, guildID, slug string, cmd *cobra.Command) error {
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.openGrid(commandContext(cmd), cmd, guildID, slug)
	if err != nil {
		return e.formatter.Fail("failed to open grid", err)
	}

	view := GridView{
		Grid:           summarize(doc, opts.config.BaseURL),
		Cells:          []CellView{},
		DecodeFailures: e.session.DecodeFailures(),
	}
	for _, p := range e.session.Matrix().NonEmpty() {
		view.Cells = append(view.Cells, cellView(p.Coord, p.Cell))
	}
	return e.formatter.Success(view)
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <guild-id> <slug> <R-n> <C-n> <text>",
		Short: "Set one cell's text",
		Long: `Set the text of one cell. Setting empty text clears the cell.

Example:
  guildgrid set 123456 raid-plan-k3x9q R-2 C-3 "tank: alice"`,
		Args:          cobra.ExactArgs(5),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(rootOpts, args[0], args[1], args[2], args[3], args[4], cmd)
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <guild-id> <slug> <R-n> <C-n>",
		Short: "Clear one cell",
		Long: `Clear one cell, deleting its stored record.

Example:
  guildgrid clear 123456 raid-plan-k3x9q R-2 C-3`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(rootOpts, args[0], args[1], args[2], args[3], "", cmd)
		},
	}
}

func runEdit(opts *RootOptions, guildID, slug, rowID, columnID, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	edit, err := engine.ParseEdit(rowID, columnID, text)
	if err != nil {
		return formatter.Fail("invalid cell address", err)
	}

	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	if _, err := e.openGrid(ctx, cmd, guildID, slug); err != nil {
		return e.formatter.Fail("failed to open grid", err)
	}
	if err := e.session.ApplyLocalEdits(ctx, []engine.Edit{edit}); err != nil {
		return e.formatter.Fail("failed to save cell", err)
	}

	cell, err := e.session.Cell(edit.Row, edit.Col)
	if err != nil {
		return e.formatter.Fail("failed to read cell", err)
	}
	return e.formatter.Success(cellView(grid.Coord{Row: edit.Row, Col: edit.Col}, cell))
}
