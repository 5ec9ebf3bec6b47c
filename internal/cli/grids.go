package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guildgrid/internal/document"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	CreatorID   string
	CreatorName string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <guild-id> [name...]",
		Short: "Create a new grid in a guild",
		Long: `Create a new, unprotected grid owned by the given user.

The grid's slug is derived from its name plus a random suffix. Without a
name the grid is called "<creator-name>'s grid".

Example:
  guildgrid create 123456 Raid Plan --creator-id u1 --creator-name alice`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], strings.Join(args[1:], " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CreatorID, "creator-id", "", "id of the creating user (required)")
	cmd.Flags().StringVar(&opts.CreatorName, "creator-name", "", "display name of the creating user")
	_ = cmd.MarkFlagRequired("creator-id")

	return cmd
}

func runCreate(opts *CreateOptions, guildID, name string, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	var creatorOpts []document.CreatorOption
	if opts.SlugSuffix != nil {
		creatorOpts = append(creatorOpts, document.WithSuffixFunc(opts.SlugSuffix))
	}
	creatorName := opts.CreatorName
	if creatorName == "" {
		creatorName = opts.CreatorID
	}

	doc, err := document.NewCreator(e.store, creatorOpts...).
		Create(commandContext(cmd), guildID, name, opts.CreatorID, creatorName)
	if err != nil {
		return e.formatter.Fail("failed to create grid", err)
	}

	return e.formatter.Success(summarize(doc, opts.config.BaseURL))
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	CreatorID string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the grids a user created",
		Long: `List every grid created by a user, ordered by name.

Example:
  guildgrid list --creator-id u1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CreatorID, "creator-id", "", "id of the creating user (required)")
	_ = cmd.MarkFlagRequired("creator-id")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	docs, err := e.store.ListDocumentsByCreator(commandContext(cmd), opts.CreatorID)
	if err != nil {
		return e.formatter.Fail("failed to list grids", err)
	}

	list := make(GridList, len(docs))
	for i, doc := range docs {
		list[i] = summarize(doc, opts.config.BaseURL)
	}
	return e.formatter.Success(list)
}
