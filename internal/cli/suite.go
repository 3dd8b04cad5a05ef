package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/history"
	"github.com/roach88/boysref/internal/suite"
)

// SuiteOptions holds flags for the suite command.
type SuiteOptions struct {
	*RootOptions
	Database string
}

// NewSuiteCommand creates the suite command.
func NewSuiteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuiteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suite <suite-file>",
		Short: "Run a verification suite",
		Long: `Run every check of a YAML (.yaml, .yml) or CUE (.cue) suite file.

A check verifies one reference file against a list of sources. The suite
passes when every source of every check agrees on every vector.

Exit codes:
  0 - Suite passed
  1 - One or more checks failed
  2 - Command error (invalid suite, unreadable files)

Examples:
  boysref suite nightly.yaml
  boysref suite nightly.cue --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record every check in this SQLite database")

	return cmd
}

func runSuite(opts *SuiteOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := suite.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load suite", err)
	}

	runOpts := suite.RunOptions{Logger: formatter.Logger()}
	if opts.Database != "" {
		st, err := history.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		runOpts.Store = st
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := suite.Run(ctx, s, runOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "suite aborted", err)
	}

	text, err := suiteText(s, result)
	if err != nil {
		return err
	}
	if result.Pass {
		return formatter.Success(result, text)
	}
	if err := formatter.Failure(result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("suite %s failed", s.Name))
}

func suiteText(s *suite.Suite, result *suite.Result) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "suite %s: %s\n", s.Name, s.Description)
	passed := 0
	for i, c := range result.Checks {
		fmt.Fprintf(&b, "\n== check %d: %s\n", i, c.File)
		if err := c.Report.WriteText(&b); err != nil {
			return "", err
		}
		if c.Report.OK() {
			passed++
		}
	}
	status := "PASS"
	if !result.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "\n%s: %d/%d checks passed\n", status, passed, len(result.Checks))
	return b.String(), nil
}
