package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/canon"
	"github.com/roach88/boysref/internal/history"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/vectorfile"
	"github.com/roach88/boysref/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Sources      []string
	TargetDigits int
	ExtraM       int
	Candidates   string
	Database     string
}

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	File         string         `json:"file"`
	FileDigest   string         `json:"file_digest"`
	ReportDigest string         `json:"report_digest"`
	Runs         []string       `json:"runs,omitempty"`
	Report       *verify.Report `json:"report"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify candidate sources against a reference file",
		Long: `Compare every vector of a reference file with the values produced by
one or more candidate sources. A candidate agrees when its relative
difference from the reference is below 10^-target.

Sources: ` + strings.Join(source.Names(), ", ") + `

Exit codes:
  0 - Every source agreed on every vector
  1 - One or more vectors failed
  2 - Command error (unreadable or malformed files, bad flags)

Examples:
  boysref verify ref.txt --source double
  boysref verify ref.txt --source series --source interval --extra-m 4
  boysref verify ref.txt --source file --candidates theirs.txt --target-digits 14
  boysref verify ref.txt --source double --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sources, "source", nil, "candidate source (repeatable)")
	cmd.Flags().IntVar(&opts.TargetDigits, "target-digits", 0, "digits that must agree (default declared-1)")
	cmd.Flags().IntVar(&opts.ExtraM, "extra-m", 0, "extra orders computed above m")
	cmd.Flags().StringVar(&opts.Candidates, "candidates", "", "results file for the file source")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	if len(opts.Sources) == 0 {
		return formatter.Fail(ExitCommandError, "no sources", fmt.Errorf("at least one --source is required (valid: %v)", source.Names()))
	}

	f, err := vectorfile.Read(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read reference file", err)
	}

	var srcOpts source.Options
	if opts.Candidates != "" {
		if srcOpts.Candidates, err = vectorfile.Read(opts.Candidates); err != nil {
			return formatter.Fail(ExitCommandError, "failed to read candidates file", err)
		}
	}
	sources := make([]source.Source, 0, len(opts.Sources))
	for _, name := range opts.Sources {
		src, err := source.ByName(name, srcOpts)
		if err != nil {
			return formatter.Fail(ExitCommandError, "invalid source", err)
		}
		sources = append(sources, src)
	}

	logger.Debug("verifying", "file", path, "vectors", len(f.Vectors), "declared_digits", f.Precision, "sources", opts.Sources)
	report, err := verify.Verify(f.Vectors, f.Precision, sources, verify.Options{
		TargetDigits: opts.TargetDigits,
		ExtraM:       opts.ExtraM,
		Logger:       logger,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, "verification failed", err)
	}

	result := VerifyResult{File: path, Report: report}
	if result.FileDigest, err = canon.FileDigest(f); err != nil {
		return formatter.Fail(ExitCommandError, "failed to digest reference file", err)
	}
	if result.ReportDigest, err = canon.ReportDigest(result.FileDigest, report.FailedKeys()); err != nil {
		return formatter.Fail(ExitCommandError, "failed to digest report", err)
	}

	if opts.Database != "" {
		ids, err := recordReport(cmd, opts.Database, result)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to record run", err)
		}
		result.Runs = ids
	}

	var text strings.Builder
	if err := report.WriteText(&text); err != nil {
		return err
	}
	if report.OK() {
		return formatter.Success(result, text.String())
	}
	if err := formatter.Failure(result, text.String()); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d failures", report.TotalFailed()))
}

func recordReport(cmd *cobra.Command, dbPath string, result VerifyResult) ([]string, error) {
	st, err := history.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	runs, err := st.RecordReport(commandContext(cmd), result.File, result.FileDigest, result.ReportDigest, result.Report)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids, nil
}
