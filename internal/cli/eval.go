package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/vectorfile"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	M      int
	T      string
	Digits int
}

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	M      int      `json:"m"`
	T      string   `json:"t"`
	Digits int      `json:"digits"`
	Values []string `json:"values"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate F_0(t) … F_m(t) to a given number of digits",
		Long: `Evaluate the Boys function at a single argument.

Every order from 0 to m is printed, rounded to the requested number of
significant digits. t is read exactly as written.

Example:
  boysref eval --m 4 --t 2.5 --digits 40`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.M, "m", 0, "highest order to evaluate")
	cmd.Flags().StringVar(&opts.T, "t", "", "argument t >= 0 (required)")
	cmd.Flags().IntVar(&opts.Digits, "digits", 30, "significant digits")
	_ = cmd.MarkFlagRequired("t")

	return cmd
}

func runEval(opts *EvalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	t, err := boys.ParseArgument(opts.T)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid argument t", err)
	}
	if opts.Digits <= 0 {
		return formatter.Fail(ExitCommandError, "invalid digits",
			fmt.Errorf("digits must be positive, got %d", opts.Digits))
	}

	vals, err := boys.Orders(opts.M, t, opts.Digits+boys.GuardDigits)
	if err != nil {
		return formatter.Fail(ExitCommandError, "evaluation failed", err)
	}

	result := EvalResult{M: opts.M, T: t.Text('e'), Digits: opts.Digits, Values: make([]string, len(vals))}
	var b strings.Builder
	for i, v := range vals {
		s, err := vectorfile.FormatSci(v.F, opts.Digits)
		if err != nil {
			return formatter.Fail(ExitCommandError, "evaluation failed", err)
		}
		result.Values[i] = s
		fmt.Fprintf(&b, "F_%d(%s) = %s\n", i, opts.T, s)
	}
	return formatter.Success(result, b.String())
}
