package cli

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/canon"
	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/generate"
	"github.com/roach88/boysref/internal/verify"
)

// NewERICommand creates the eri command and its random, create and verify
// subcommands.
func NewERICommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eri",
		Short: "Primitive electron repulsion integral reference files",
		Long: `Create and verify reference values of primitive electron repulsion
integrals (ab|cd) over unnormalized Cartesian Gaussians. The Boys
function values each integral needs are computed at the same working
precision as the integral itself.

Input files hold quartets of Gaussian lines "l m n x y z alpha".
Integral files add a declared precision line and one value per quartet.`,
	}
	cmd.AddCommand(newERIRandomCommand(rootOpts))
	cmd.AddCommand(newERICreateCommand(rootOpts))
	cmd.AddCommand(newERIVerifyCommand(rootOpts))
	return cmd
}

// ERIRandomOptions holds flags for eri random.
type ERIRandomOptions struct {
	*RootOptions
	Output  string
	Seed    int64
	MaxAM   int
	Extent  float64
	Power   int
	NDigits int
	N       int
}

func newERIRandomCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ERIRandomOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Random Gaussian quartets",
		Long: `Generate n random quartets: each Gaussian gets an angular momentum in
[0, max-am] and one of its Cartesian components, coordinates uniform in
[-extent, extent] and alpha = 10^u with u uniform in [-power, power].
The same seed always produces the same quartets.

Example:
  boysref eri random --max-am 2 --seed 1 --n 20 -o quartets.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			quartets, err := eri.Random(eri.RandomOptions{
				Seed:    opts.Seed,
				MaxAM:   opts.MaxAM,
				Extent:  opts.Extent,
				Power:   opts.Power,
				NDigits: opts.NDigits,
				N:       opts.N,
			})
			if err != nil {
				return formatter.Fail(ExitCommandError, "invalid random quartets", err)
			}
			in := &eri.Input{
				Header: generate.Provenance(commandLine(cmd, args), [][2]string{
					{"random.seed", strconv.FormatInt(opts.Seed, 10)},
					{"max am", strconv.Itoa(opts.MaxAM)},
					{"extent", strconv.FormatFloat(opts.Extent, 'g', -1, 64)},
					{"power", strconv.Itoa(opts.Power)},
					{"ndigits", strconv.Itoa(opts.NDigits)},
					{"n", strconv.Itoa(opts.N)},
				}),
				Quartets: quartets,
			}
			if opts.Output == "" {
				if err := eri.EncodeInput(cmd.OutOrStdout(), in); err != nil {
					return formatter.Fail(ExitCommandError, "failed to write quartets", err)
				}
				return nil
			}
			if err := eri.WriteInput(opts.Output, in); err != nil {
				return formatter.Fail(ExitCommandError, "failed to write quartets", err)
			}
			return formatter.Success(WriteResult{Output: opts.Output, Count: len(quartets)},
				fmt.Sprintf("wrote %d quartets to %s\n", len(quartets), opts.Output))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.MaxAM, "max-am", 2, "highest angular momentum per Gaussian")
	cmd.Flags().Float64Var(&opts.Extent, "extent", 2, "coordinates in [-extent, extent]")
	cmd.Flags().IntVar(&opts.Power, "power", 1, "decades of alpha on each side of 1")
	cmd.Flags().IntVar(&opts.NDigits, "ndigits", 6, "significant digits of coordinates and alpha")
	cmd.Flags().IntVar(&opts.N, "n", 20, "number of quartets")
	return cmd
}

func newERICreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Evaluate input quartets into an integral file",
		Long: `Evaluate every quartet of an input file to the requested number of
correct digits and write an integral file. Each integral is recomputed
at a wider working precision until two evaluations agree. Quartets are
evaluated concurrently; the file keeps the input order.

Example:
  boysref eri create --input quartets.txt --digits 30 -o eri.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runERICreate(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "input quartet file (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.Digits, "digits", 30, "declared precision in significant digits")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU(), "concurrent evaluations")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runERICreate(opts *CreateOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	in, err := eri.ReadInput(opts.Input)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read input quartets", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("creating integral values", "input", opts.Input, "quartets", len(in.Quartets),
		"digits", opts.Digits, "workers", opts.Workers)
	entries, err := eri.Create(ctx, in.Quartets, opts.Digits, opts.Workers)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to create integral values", err)
	}

	header := generate.Provenance(commandLine(cmd, args), [][2]string{
		{"input", opts.Input},
		{"digits", strconv.Itoa(opts.Digits)},
	})
	if len(in.Header) > 0 {
		header = append(header, "", "Input quartets:")
		header = append(header, in.Header...)
	}
	f := &eri.File{Precision: opts.Digits, Header: header, Entries: entries}

	if opts.Output == "" {
		if err := eri.Encode(cmd.OutOrStdout(), f); err != nil {
			return formatter.Fail(ExitCommandError, "failed to write integral file", err)
		}
		return nil
	}
	if err := eri.Write(opts.Output, f); err != nil {
		return formatter.Fail(ExitCommandError, "failed to write integral file", err)
	}
	logger.Debug("integral file written", "output", opts.Output)
	return formatter.Success(WriteResult{Output: opts.Output, Count: len(entries)},
		fmt.Sprintf("wrote %d integrals to %s\n", len(entries), opts.Output))
}

func newERIVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify candidate integral sources against an integral file",
		Long: `Compare every integral of a reference file with the values produced by
one or more candidate sources. A candidate agrees when its relative
difference from the reference is below 10^-target.

Sources: ` + strings.Join(eri.SourceNames(), ", ") + `

Exit codes:
  0 - Every source agreed on every integral
  1 - One or more integrals failed
  2 - Command error (unreadable or malformed files, bad flags)

Examples:
  boysref eri verify eri.txt --source double --target-digits 10
  boysref eri verify eri.txt --source file --candidates theirs.txt --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runERIVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Sources, "source", nil, "candidate source (repeatable)")
	cmd.Flags().IntVar(&opts.TargetDigits, "target-digits", 0, "digits that must agree (default declared-1)")
	cmd.Flags().StringVar(&opts.Candidates, "candidates", "", "integral file for the file source")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	return cmd
}

func runERIVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	if len(opts.Sources) == 0 {
		return formatter.Fail(ExitCommandError, "no sources", fmt.Errorf("at least one --source is required (valid: %v)", eri.SourceNames()))
	}

	f, err := eri.Read(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read integral file", err)
	}

	var candidates *eri.File
	if opts.Candidates != "" {
		if candidates, err = eri.Read(opts.Candidates); err != nil {
			return formatter.Fail(ExitCommandError, "failed to read candidates file", err)
		}
	}
	sources := make([]eri.Source, 0, len(opts.Sources))
	for _, name := range opts.Sources {
		src, err := eri.SourceByName(name, candidates)
		if err != nil {
			return formatter.Fail(ExitCommandError, "invalid source", err)
		}
		sources = append(sources, src)
	}

	logger.Debug("verifying integrals", "file", path, "entries", len(f.Entries), "declared_digits", f.Precision, "sources", opts.Sources)
	report, err := eri.Verify(f.Entries, f.Precision, sources, verify.Options{
		TargetDigits: opts.TargetDigits,
		Logger:       logger,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, "verification failed", err)
	}

	result := VerifyResult{File: path, Report: report}
	if result.FileDigest, err = canon.IntegralFileDigest(f); err != nil {
		return formatter.Fail(ExitCommandError, "failed to digest integral file", err)
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
