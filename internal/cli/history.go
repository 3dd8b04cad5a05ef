package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Run      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded verification runs",
		Long: `List verification runs recorded with --db, newest first, or show the
failures of a single run.

Examples:
  boysref history --db runs.db
  boysref history --db runs.db --limit 5 --format json
  boysref history --db runs.db --run 0190c3f4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show a single run with its failures")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := history.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	ctx := commandContext(cmd)

	if opts.Run != "" {
		run, err := st.GetRun(ctx, opts.Run)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to read run", err)
		}
		var b strings.Builder
		writeRunLine(&b, run)
		for _, f := range run.Failures {
			if f.Entry != "" {
				fmt.Fprintf(&b, "  entry %s", f.Entry)
			} else {
				fmt.Fprintf(&b, "  (m, t) = (%d, %s)", f.M, f.T)
			}
			if f.Error != "" {
				fmt.Fprintf(&b, " error: %s\n", f.Error)
			} else {
				fmt.Fprintf(&b, " reldiff %s\n", f.RelDiff)
			}
		}
		return formatter.Success(run, b.String())
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to list runs", err)
	}
	if len(runs) == 0 {
		return formatter.Success(runs, "No runs recorded.\n")
	}
	var b strings.Builder
	for _, r := range runs {
		writeRunLine(&b, r)
	}
	return formatter.Success(runs, b.String())
}

func writeRunLine(b *strings.Builder, r history.Run) {
	fmt.Fprintf(b, "%s  %s  %-4s %-9s %d/%d failed  target %d/%d  %s\n",
		r.ID, r.CreatedAt.Format(time.RFC3339), r.Kind, r.Source, r.Failed, r.Total,
		r.TargetDigits, r.DeclaredDigits, r.File)
}
