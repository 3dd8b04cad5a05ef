package verify

import (
	"bufio"
	"fmt"
	"io"
)

// WriteText renders the report for humans. Each source gets a header line,
// one block per failure and the summary line
//
//	<failed>/<total> failed (<percent>% passed)
//
// A failure block is four lines, (m, t) or the integral entry, reference,
// candidate and relative difference, followed by a blank line.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, warning := range r.Warnings {
		fmt.Fprintf(bw, "warning: %s\n", warning)
	}
	for i, s := range r.Sources {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "source %s: target %d digits (declared %d, working %d, extra m %d)\n",
			s.Source, r.TargetDigits, r.DeclaredDigits, r.WorkingDigits, r.ExtraM)
		for _, f := range s.Failures {
			writeFailure(bw, f)
		}
		fmt.Fprintf(bw, "%d/%d failed (%s%% passed)\n", s.Failed, s.Total, s.PercentPassed())
	}
	if len(r.Sources) > 1 {
		fmt.Fprintf(bw, "\nall sources agreed on %d/%d vectors\n", r.AllAgreed, r.Total)
	}
	return bw.Flush()
}

func writeFailure(w io.Writer, f Failure) {
	if f.Entry != "" {
		fmt.Fprintf(w, "entry %s\n", f.Entry)
	} else {
		fmt.Fprintf(w, "(m, t) = (%d, %s)\n", f.M, f.T)
	}
	fmt.Fprintf(w, "reference: %s\n", f.Reference)
	if f.Error != "" {
		fmt.Fprintf(w, "candidate: error: %s\n", f.Error)
		fmt.Fprintf(w, "reldiff:   n/a\n\n")
		return
	}
	fmt.Fprintf(w, "candidate: %s\n", f.Candidate)
	fmt.Fprintf(w, "reldiff:   %s\n\n", f.RelDiff)
}
