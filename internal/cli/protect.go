package cli

import (
	"github.com/spf13/cobra"
)

// NewProtectCommand creates the protect command.
func NewProtectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "protect <guild-id> <slug>",
		Short: "Protect a grid with a passphrase",
		Long: `Protect an unprotected grid with a passphrase.

Cells are encrypted from now on. Existing cells are re-encrypted unless
reencrypt_on_protect is false in the config file. Protection cannot be
removed, and the passphrase is never stored.

Example:
  guildgrid protect 123456 raid-plan-k3x9q`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProtect(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runProtect(opts *RootOptions, guildID, slug string, cmd *cobra.Command) error {
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	if _, err := e.openGrid(ctx, cmd, guildID, slug); err != nil {
		return e.formatter.Fail("failed to open grid", err)
	}
	if err := e.gate.Protect(ctx); err != nil {
		return e.formatter.Fail("failed to protect grid", err)
	}

	return e.formatter.Success(summarize(e.session.Document(), opts.config.BaseURL))
}
