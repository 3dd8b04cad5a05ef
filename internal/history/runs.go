package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/boysref/internal/verify"
)

// Run is one archived verification of a file against one source.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Kind           string    `json:"kind"`
	File           string    `json:"file"`
	FileDigest     string    `json:"file_digest"`
	ReportDigest   string    `json:"report_digest,omitempty"`
	Source         string    `json:"source"`
	DeclaredDigits int       `json:"declared_digits"`
	TargetDigits   int       `json:"target_digits"`
	ExtraM         int       `json:"extra_m"`
	Total          int       `json:"total"`
	Passed         int       `json:"passed"`
	Failed         int       `json:"failed"`

	// Failures is only populated by RecordRun callers; ListRuns leaves it
	// empty. Use Failures to load them.
	Failures []verify.Failure `json:"failures,omitempty"`
}

// RecordRun stores r and its failures in one transaction. An empty r.ID
// and a zero r.CreatedAt are filled in from the store's generators. The
// stored run is returned.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	r, err = s.recordRun(ctx, tx, r)
	if err != nil {
		return Run{}, err
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

// RecordReport stores one run per source of report. All runs share one
// transaction: either the whole report is archived or none of it is.
func (s *Store) RecordReport(ctx context.Context, file, fileDigest, reportDigest string, report *verify.Report) ([]Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("record report: %w", err)
	}
	defer tx.Rollback()

	runs := make([]Run, 0, len(report.Sources))
	for _, sr := range report.Sources {
		r, err := s.recordRun(ctx, tx, Run{
			Kind:           report.Kind,
			File:           file,
			FileDigest:     fileDigest,
			ReportDigest:   reportDigest,
			Source:         sr.Source,
			DeclaredDigits: report.DeclaredDigits,
			TargetDigits:   report.TargetDigits,
			ExtraM:         report.ExtraM,
			Total:          sr.Total,
			Passed:         sr.Passed,
			Failed:         sr.Failed,
			Failures:       sr.Failures,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sr.Source, err)
		}
		runs = append(runs, r)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("record report: %w", err)
	}
	return runs, nil
}

func (s *Store) recordRun(ctx context.Context, tx *sql.Tx, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = s.ids.Generate()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if r.Kind == "" {
		r.Kind = verify.KindBoys
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, kind, file, file_digest, report_digest, source, declared_digits, target_digits, extra_m, total, passed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.CreatedAt.Format(time.RFC3339Nano),
		r.Kind,
		r.File,
		r.FileDigest,
		r.ReportDigest,
		r.Source,
		r.DeclaredDigits,
		r.TargetDigits,
		r.ExtraM,
		r.Total,
		r.Passed,
		r.Failed,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	for i, f := range r.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, ord, m, t, entry, reference, candidate, reldiff, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, i, f.M, f.T, f.Entry, f.Reference, f.Candidate, f.RelDiff, f.Error)
		if err != nil {
			return Run{}, fmt.Errorf("record failure %d: %w", i, err)
		}
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, kind, file, file_digest, report_digest, source,
		       declared_digits, target_digits, extra_m, total, passed, failed
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id, failures included.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, kind, file, file_digest, report_digest, source,
		       declared_digits, target_digits, extra_m, total, passed, failed
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %q not found", id)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Failures, err = s.Failures(ctx, id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Failures returns the failures of a run in their original order.
func (s *Store) Failures(ctx context.Context, runID string) ([]verify.Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m, t, entry, reference, candidate, reldiff, error
		FROM failures
		WHERE run_id = ?
		ORDER BY ord ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	out := []verify.Failure{}
	for rows.Next() {
		var f verify.Failure
		if err := rows.Scan(&f.M, &f.T, &f.Entry, &f.Reference, &f.Candidate, &f.RelDiff, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var created string
	err := row.Scan(&r.ID, &created, &r.Kind, &r.File, &r.FileDigest, &r.ReportDigest, &r.Source,
		&r.DeclaredDigits, &r.TargetDigits, &r.ExtraM, &r.Total, &r.Passed, &r.Failed)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return r, nil
}
