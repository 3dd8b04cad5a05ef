package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/boysref/internal/canon"
	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/vectorfile"
	"github.com/roach88/boysref/internal/verify"
)

// DigestResult is the JSON payload of the digest command.
type DigestResult struct {
	File      string `json:"file"`
	Kind      string `json:"kind"`
	Digest    string `json:"digest"`
	Precision int    `json:"precision"`
	Vectors   int    `json:"vectors"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "digest <file>",
		Short: "Print the content digest of a test vector or integral file",
		Long: `Print the SHA-256 content digest of a test vector file, or of an
integral file with --kind eri.

Comments and formatting do not contribute: two files with the same
declared precision and the same vectors share a digest.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			result := DigestResult{File: args[0], Kind: kind}

			switch kind {
			case verify.KindBoys:
				f, err := vectorfile.Read(args[0])
				if err != nil {
					return formatter.Fail(ExitCommandError, "failed to read file", err)
				}
				if result.Digest, err = canon.FileDigest(f); err != nil {
					return formatter.Fail(ExitCommandError, "failed to digest file", err)
				}
				result.Precision, result.Vectors = f.Precision, len(f.Vectors)
			case verify.KindERI:
				f, err := eri.Read(args[0])
				if err != nil {
					return formatter.Fail(ExitCommandError, "failed to read file", err)
				}
				if result.Digest, err = canon.IntegralFileDigest(f); err != nil {
					return formatter.Fail(ExitCommandError, "failed to digest file", err)
				}
				result.Precision, result.Vectors = f.Precision, len(f.Entries)
			default:
				return formatter.Fail(ExitCommandError, "invalid kind",
					fmt.Errorf("unknown kind %q (valid: [%s %s])", kind, verify.KindBoys, verify.KindERI))
			}
			return formatter.Success(result, result.Digest+"  "+args[0]+"\n")
		},
	}
	cmd.Flags().StringVar(&kind, "kind", verify.KindBoys, "file kind (boys|eri)")
	return cmd
}
