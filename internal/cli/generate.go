package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/generate"
	"github.com/roach88/boysref/internal/vectorfile"
)

// GenerateOptions holds flags shared by the generate subcommands.
type GenerateOptions struct {
	*RootOptions
	Output string
	MaxM   int
	Power  int

	// random only
	Seed    int64
	NDigits int
	N       int
}

// WriteResult is the JSON payload of commands that write a file.
type WriteResult struct {
	Output string `json:"output"`
	Count  int    `json:"count"`
}

// NewGenerateCommand creates the generate command and its range and
// random subcommands.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate (m, t) input grids",
		Long: `Generate input grids of (m, t) queries for the create command.

Without -o the grid is written to stdout.`,
	}
	cmd.AddCommand(newGenerateRangeCommand(rootOpts))
	cmd.AddCommand(newGenerateRandomCommand(rootOpts))
	return cmd
}

func newGenerateRangeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "range",
		Short: "Every m up to max-m for t in {0} and j·10^i",
		Long: `Generate a regular grid: t = 0 and t = j·10^i for j in 1..9 and
i in [-power, power], with every m in [0, max-m] for each t.

Example:
  boysref generate range --max-m 8 --power 2 -o grid.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			queries, err := generate.Range(opts.MaxM, opts.Power)
			if err != nil {
				return formatter.Fail(ExitCommandError, "invalid range", err)
			}
			header := generate.Provenance(commandLine(cmd, args), [][2]string{
				{"max m", strconv.Itoa(opts.MaxM)},
				{"power", strconv.Itoa(opts.Power)},
			})
			return writeGrid(formatter, cmd, opts.Output, &vectorfile.Grid{Header: header, Queries: queries})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.MaxM, "max-m", 8, "highest order")
	cmd.Flags().IntVar(&opts.Power, "power", 2, "decades of t on each side of 1")
	return cmd
}

func newGenerateRandomCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Random m and log-uniform t",
		Long: `Generate n random queries: m uniform in [0, max-m] and t = 10^u with
u uniform in [-power, power], rounded to ndigits significant digits.
The same seed always produces the same grid.

Example:
  boysref generate random --max-m 8 --power 3 --seed 1 --ndigits 20 --n 100 -o grid.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			queries, err := generate.Random(generate.RandomOptions{
				Seed:    opts.Seed,
				MaxM:    opts.MaxM,
				Power:   opts.Power,
				NDigits: opts.NDigits,
				N:       opts.N,
			})
			if err != nil {
				return formatter.Fail(ExitCommandError, "invalid random grid", err)
			}
			header := generate.Provenance(commandLine(cmd, args), [][2]string{
				{"random.seed", strconv.FormatInt(opts.Seed, 10)},
				{"max m", strconv.Itoa(opts.MaxM)},
				{"power", strconv.Itoa(opts.Power)},
				{"ndigits", strconv.Itoa(opts.NDigits)},
				{"n", strconv.Itoa(opts.N)},
			})
			return writeGrid(formatter, cmd, opts.Output, &vectorfile.Grid{Header: header, Queries: queries})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.MaxM, "max-m", 8, "highest order")
	cmd.Flags().IntVar(&opts.Power, "power", 3, "decades of t on each side of 1")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&opts.NDigits, "ndigits", 20, "significant digits of t")
	cmd.Flags().IntVar(&opts.N, "n", 100, "number of queries")
	return cmd
}

func writeGrid(formatter *OutputFormatter, cmd *cobra.Command, output string, g *vectorfile.Grid) error {
	if output == "" {
		if err := vectorfile.EncodeGrid(cmd.OutOrStdout(), g); err != nil {
			return formatter.Fail(ExitCommandError, "failed to write grid", err)
		}
		return nil
	}
	if err := vectorfile.WriteGrid(output, g); err != nil {
		return formatter.Fail(ExitCommandError, "failed to write grid", err)
	}
	return formatter.Success(WriteResult{Output: output, Count: len(g.Queries)},
		fmt.Sprintf("wrote %d queries to %s\n", len(g.Queries), output))
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Input   string
	Output  string
	Digits  int
	Workers int
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Evaluate an input grid into a reference file",
		Long: `Evaluate every (m, t) query of an input grid to the requested number
of correct digits and write a test vector file. Queries are evaluated
concurrently; the file keeps the grid's order.

Example:
  boysref create --input grid.txt --digits 30 -o ref.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "input grid file (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.Digits, "digits", 30, "declared precision in significant digits")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU(), "concurrent evaluations")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	grid, err := vectorfile.ReadGrid(opts.Input)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read input grid", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("creating reference values", "input", opts.Input, "queries", len(grid.Queries),
		"digits", opts.Digits, "workers", opts.Workers)
	vectors, err := generate.Create(ctx, grid.Queries, opts.Digits, opts.Workers)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to create reference values", err)
	}

	header := generate.Provenance(commandLine(cmd, args), [][2]string{
		{"input", opts.Input},
		{"digits", strconv.Itoa(opts.Digits)},
	})
	if len(grid.Header) > 0 {
		header = append(header, "", "Input grid:")
		header = append(header, grid.Header...)
	}
	f := &vectorfile.File{Precision: opts.Digits, Header: header, Vectors: vectors}

	if opts.Output == "" {
		if err := vectorfile.Encode(cmd.OutOrStdout(), f); err != nil {
			return formatter.Fail(ExitCommandError, "failed to write reference file", err)
		}
		return nil
	}
	if err := vectorfile.Write(opts.Output, f); err != nil {
		return formatter.Fail(ExitCommandError, "failed to write reference file", err)
	}
	logger.Debug("reference file written", "output", opts.Output)
	return formatter.Success(WriteResult{Output: opts.Output, Count: len(vectors)},
		fmt.Sprintf("wrote %d vectors to %s\n", len(vectors), opts.Output))
}

// commandContext returns the command's context, or Background when the
// command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
