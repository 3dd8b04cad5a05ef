package suite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/boysref/internal/canon"
	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/history"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/vectorfile"
	"github.com/roach88/boysref/internal/verify"
)

// RunOptions configures Run.
type RunOptions struct {
	// Logger receives progress and precision warnings. Nil uses slog.Default().
	Logger *slog.Logger

	// Store records one history run per check and source when set.
	Store *history.Store
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	File         string         `json:"file"`
	FileDigest   string         `json:"file_digest"`
	ReportDigest string         `json:"report_digest"`
	Report       *verify.Report `json:"report"`
}

// Result is the outcome of a suite.
type Result struct {
	Suite  string        `json:"suite"`
	Pass   bool          `json:"pass"`
	Checks []CheckResult `json:"checks"`
}

// Run executes every check of s in order. The suite passes iff every
// source of every check agreed on every vector. Unreadable or malformed
// files abort the run.
func Run(ctx context.Context, s *Suite, opts RunOptions) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	result := &Result{Suite: s.Name, Pass: true, Checks: make([]CheckResult, 0, len(s.Checks))}
	for i, c := range s.Checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("running check", "suite", s.Name, "check", i, "file", c.File, "sources", c.Sources)

		cr, err := runCheck(ctx, c, logger, opts.Store)
		if err != nil {
			return nil, fmt.Errorf("checks[%d] (%s): %w", i, c.File, err)
		}
		if !cr.Report.OK() {
			result.Pass = false
		}
		result.Checks = append(result.Checks, cr)
	}
	return result, nil
}

func runCheck(ctx context.Context, c Check, logger *slog.Logger, store *history.Store) (CheckResult, error) {
	if c.Kind == verify.KindERI {
		return runIntegralCheck(ctx, c, logger, store)
	}
	f, err := vectorfile.Read(c.File)
	if err != nil {
		return CheckResult{}, err
	}

	var opts source.Options
	if c.Candidates != "" {
		cand, err := vectorfile.Read(c.Candidates)
		if err != nil {
			return CheckResult{}, err
		}
		opts.Candidates = cand
	}
	sources := make([]source.Source, 0, len(c.Sources))
	for _, name := range c.Sources {
		src, err := source.ByName(name, opts)
		if err != nil {
			return CheckResult{}, err
		}
		sources = append(sources, src)
	}

	report, err := verify.Verify(f.Vectors, f.Precision, sources, verify.Options{
		TargetDigits: c.TargetDigits,
		ExtraM:       c.ExtraM,
		Logger:       logger,
	})
	if err != nil {
		return CheckResult{}, err
	}

	fileDigest, err := canon.FileDigest(f)
	if err != nil {
		return CheckResult{}, err
	}
	return finishCheck(ctx, c, fileDigest, report, store)
}

func runIntegralCheck(ctx context.Context, c Check, logger *slog.Logger, store *history.Store) (CheckResult, error) {
	f, err := eri.Read(c.File)
	if err != nil {
		return CheckResult{}, err
	}

	var candidates *eri.File
	if c.Candidates != "" {
		if candidates, err = eri.Read(c.Candidates); err != nil {
			return CheckResult{}, err
		}
	}
	sources := make([]eri.Source, 0, len(c.Sources))
	for _, name := range c.Sources {
		src, err := eri.SourceByName(name, candidates)
		if err != nil {
			return CheckResult{}, err
		}
		sources = append(sources, src)
	}

	report, err := eri.Verify(f.Entries, f.Precision, sources, verify.Options{
		TargetDigits: c.TargetDigits,
		Logger:       logger,
	})
	if err != nil {
		return CheckResult{}, err
	}

	fileDigest, err := canon.IntegralFileDigest(f)
	if err != nil {
		return CheckResult{}, err
	}
	return finishCheck(ctx, c, fileDigest, report, store)
}

// finishCheck digests the report and archives it when a store is set.
func finishCheck(ctx context.Context, c Check, fileDigest string, report *verify.Report, store *history.Store) (CheckResult, error) {
	reportDigest, err := canon.ReportDigest(fileDigest, report.FailedKeys())
	if err != nil {
		return CheckResult{}, err
	}

	if store != nil {
		if _, err := store.RecordReport(ctx, c.File, fileDigest, reportDigest, report); err != nil {
			return CheckResult{}, err
		}
	}

	return CheckResult{
		File:         c.File,
		FileDigest:   fileDigest,
		ReportDigest: reportDigest,
		Report:       report,
	}, nil
}
