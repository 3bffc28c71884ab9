package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/revision"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	WriteOptions
	Target  string
	Sources []string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{WriteOptions: WriteOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "merge --target <bbid> --source <bbid>...",
		Short: "Merge duplicate entities into one",
		Long: `Merge source entities into a target of the same type.

Aliases, identifiers, languages and publishers are unioned into the target;
relationships pointing at a source are moved to the target. Sources are
tombstoned and redirect to the target.

Example:
  catalog merge --target 3f1c... --source 9a0b... --source 77de...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Target, "target", "", "bbid that survives the merge (required)")
	cmd.Flags().StringSliceVar(&opts.Sources, "source", nil, "bbid merged into the target (repeatable, required)")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runMerge(opts *MergeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Merge(cmd.Context(), revision.MergeRequest{
		EditorID: a.editor(opts.Editor),
		Target:   opts.Target,
		Sources:  opts.Sources,
		Note:     opts.Note,
	})
	if err != nil {
		return f.reportEngineError(err)
	}
	if f.Format == "json" {
		return f.Success(res)
	}
	return f.Success(fmt.Sprintf("merged %d %s into %s (revision %d)",
		len(opts.Sources), plural(len(opts.Sources), "entity", "entities"), opts.Target, res.RevisionID))
}
