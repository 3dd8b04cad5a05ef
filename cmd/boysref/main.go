package main

import (
	"errors"
	"os"

	"github.com/roach88/boysref/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !isReported(err) {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
	os.Exit(cli.GetExitCode(err))
}

// isReported reports whether the command already printed err through its
// output formatter.
func isReported(err error) bool {
	var exitErr *cli.ExitError
	return errors.As(err, &exitErr) && exitErr.Err != nil
}
