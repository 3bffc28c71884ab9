package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <bbid>",
		Short: "Tombstone an entity",
		Long: `Delete an entity in a new revision.

The entity keeps its history; relationships to it are removed from the
other endpoints.

Example:
  catalog delete 3f1c... -m "spam"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runDelete(opts *WriteOptions, bbid string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Delete(cmd.Context(), a.editor(opts.Editor), bbid, opts.Note)
	if err != nil {
		return f.reportEngineError(err)
	}
	if f.Format == "json" {
		return f.Success(res)
	}
	return f.Success(fmt.Sprintf("deleted %s (revision %d)", bbid, res.RevisionID))
}
