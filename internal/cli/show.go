package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <bbid>",
		Short: "Show an entity at its current revision",
		Long: `Show the current state of an entity, following merge redirects.

Example:
  catalog show 3f1c...
  catalog show 3f1c... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, bbid string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.engine.Fetch(cmd.Context(), bbid)
	if err != nil {
		return f.reportEngineError(err)
	}
	if v.BBID != bbid {
		f.VerboseLog("%s redirects to %s", bbid, v.BBID)
	}
	if f.Format == "json" {
		return f.Success(v)
	}
	return f.Success(formatView(v))
}

// formatView renders an entity view as text. Empty sections are omitted.
func formatView(v *model.EntityView) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s (%s) %s\n", v.Name(), v.Type, v.BBID)
	fmt.Fprintf(&buf, "revision: %d", v.RevisionID)
	if v.Deleted {
		buf.WriteString("\ndeleted")
		return buf.String()
	}

	if len(v.Aliases) > 0 {
		buf.WriteString("\naliases:")
		for _, al := range v.Aliases {
			fmt.Fprintf(&buf, "\n  - %s (%s)", al.Name, al.SortName)
			if al.LanguageID != nil {
				fmt.Fprintf(&buf, " lang %d", *al.LanguageID)
			}
			if v.DefaultAlias != nil && al.ID == v.DefaultAlias.ID {
				buf.WriteString(" [default]")
			}
		}
	}
	if len(v.Identifiers) > 0 {
		buf.WriteString("\nidentifiers:")
		for _, id := range v.Identifiers {
			fmt.Fprintf(&buf, "\n  - type %d: %s", id.TypeID, id.Value)
		}
	}
	if len(v.Relationships) > 0 {
		buf.WriteString("\nrelationships:")
		for _, r := range v.Relationships {
			fmt.Fprintf(&buf, "\n  - type %d: %s -> %s", r.TypeID, r.SourceBBID, r.TargetBBID)
		}
	}
	if len(v.Languages) > 0 {
		langs := make([]string, len(v.Languages))
		for i, l := range v.Languages {
			langs[i] = fmt.Sprint(l)
		}
		fmt.Fprintf(&buf, "\nlanguages: %s", strings.Join(langs, ", "))
	}
	if len(v.Publishers) > 0 {
		fmt.Fprintf(&buf, "\npublishers: %s", strings.Join(v.Publishers, ", "))
	}
	if v.Disambiguation != nil {
		fmt.Fprintf(&buf, "\ndisambiguation: %s", v.Disambiguation.Comment)
	}
	if v.Annotation != nil {
		fmt.Fprintf(&buf, "\nannotation: %s", v.Annotation.Content)
	}
	if len(v.Attributes) > 0 {
		buf.WriteString("\nattributes:")
		for _, k := range v.Attributes.SortedKeys() {
			fmt.Fprintf(&buf, "\n  %s: %s", k, value.Key(v.Attributes[k]))
		}
	}
	return buf.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <bbid>",
		Short: "Print the bbid a bbid redirects to",
		Long: `Follow merge redirects from a bbid and print where they end.

A bbid that was never merged resolves to itself.

Example:
  catalog resolve 9a0b...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], cmd)
		},
	}
}

// ResolveResult is the payload of resolve.
type ResolveResult struct {
	BBID     string `json:"bbid"`
	Resolved string `json:"resolved"`
}

func runResolve(opts *RootOptions, bbid string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	resolved, err := a.engine.Resolve(cmd.Context(), bbid)
	if err != nil {
		return f.reportEngineError(err)
	}
	if f.Format == "json" {
		return f.Success(ResolveResult{BBID: bbid, Resolved: resolved})
	}
	return f.Success(resolved)
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <bbid>",
		Short: "List the revisions of an entity",
		Long: `List the revisions that touched an entity, newest first.

History is read for the bbid given; merge redirects are not followed, so a
merged entity shows its own history ending in the merge.

Example:
  catalog history 3f1c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}
}

func runHistory(opts *RootOptions, bbid string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.engine.History(cmd.Context(), bbid)
	if err != nil {
		return f.reportEngineError(err)
	}
	if f.Format == "json" {
		return f.Success(history)
	}
	return f.Success(formatHistory(history))
}

func formatHistory(history []model.RevisionSummary) string {
	lines := make([]string, len(history))
	for i, rev := range history {
		var buf strings.Builder
		fmt.Fprintf(&buf, "#%d  %s  editor %d", rev.ID, rev.CreatedAt.UTC().Format(time.RFC3339), rev.AuthorID)
		if rev.IsMerge {
			buf.WriteString("  [merge]")
		}
		if rev.Deleted {
			buf.WriteString("  [deleted]")
		}
		if len(rev.ParentIDs) > 0 {
			parents := make([]string, len(rev.ParentIDs))
			for j, p := range rev.ParentIDs {
				parents[j] = fmt.Sprintf("#%d", p)
			}
			fmt.Fprintf(&buf, "  parents %s", strings.Join(parents, ","))
		}
		for _, note := range rev.Notes {
			fmt.Fprintf(&buf, "\n    %s", note)
		}
		lines[i] = buf.String()
	}
	return strings.Join(lines, "\n")
}
