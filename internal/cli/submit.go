package cli

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/catalog/internal/revision"
)

// WriteOptions holds flags shared by commands that create revisions.
type WriteOptions struct {
	*RootOptions
	Editor int64
	Note   string
}

func (o *WriteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.Editor, "editor", 0, "editor id (default from config)")
	cmd.Flags().StringVarP(&o.Note, "note", "m", "", "revision note")
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Save a multi-entity submission",
		Long: `Save every entity of a YAML or JSON submission in one revision.

Entities are keyed; references to a key resolve to the entity saved under
it. Entities without a bbid are created.

Example file:
  entities:
    g: { type: edition-group, nameSection: { name: The Book, sortName: "Book, The" } }
    e:
      type: edition
      nameSection: { name: First Edition, sortName: First Edition }
      attributes: { editionGroupBbid: g }

Example:
  catalog submit edition.yaml -m "import from ISBN scan"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

// loadSubmission decodes a submission file. JSON is accepted as YAML.
func loadSubmission(path string) (revision.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return revision.Submission{}, fmt.Errorf("failed to read submission: %w", err)
	}
	var sub revision.Submission
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sub); err != nil {
		return revision.Submission{}, fmt.Errorf("failed to parse submission: %w", err)
	}
	return sub, nil
}

func runSubmit(opts *WriteOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sub, err := loadSubmission(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid submission", err)
	}

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Editor != 0 || sub.EditorID == 0 {
		sub.EditorID = a.editor(opts.Editor)
	}
	if opts.Note != "" {
		sub.Note = opts.Note
	}

	res, err := a.engine.Submit(cmd.Context(), sub)
	if err != nil {
		return f.reportEngineError(err)
	}
	if f.Format == "json" {
		return f.Success(res)
	}
	return f.Success(formatResult(res))
}

// formatResult renders a write result as text.
func formatResult(res *revision.Result) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "revision %d", res.RevisionID)

	keys := make([]string, 0, len(res.Keys))
	for k := range res.Keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "\n  %s -> %s", k, res.Keys[k])
	}

	fmt.Fprintf(&buf, "\ntouched %d %s", len(res.Touched), plural(len(res.Touched), "entity", "entities"))
	return buf.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
