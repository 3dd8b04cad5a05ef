package eri

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/verify"
)

// Source computes a candidate value of a primitive integral at a working
// precision of digits decimal digits. Sources that cannot reach that
// precision ignore it.
type Source interface {
	Name() string
	Value(q Quartet, digits int) (*apd.Decimal, error)
}

// Reference recomputes the integral with Evaluate.
type Reference struct{}

func (Reference) Name() string { return source.NameReference }

func (Reference) Value(q Quartet, digits int) (*apd.Decimal, error) {
	return Evaluate(q, digits)
}

// Double computes the integral with EvaluateDouble.
type Double struct{}

func (Double) Name() string { return source.NameDouble }

func (Double) Value(q Quartet, _ int) (*apd.Decimal, error) {
	v, err := EvaluateDouble(q)
	if err != nil {
		return nil, err
	}
	return new(apd.Decimal).SetFloat64(v)
}

// FileSource serves integrals computed elsewhere, matched to entries by
// their Gaussians.
type FileSource struct {
	values map[string]*apd.Decimal
}

// NewFile indexes f. Two entries for the same quartet are rejected.
func NewFile(f *File) (*FileSource, error) {
	s := &FileSource{values: make(map[string]*apd.Decimal, len(f.Entries))}
	for i, e := range f.Entries {
		key := e.Quartet.Key()
		if _, dup := s.values[key]; dup {
			return nil, fmt.Errorf("candidates file has more than one entry for %s (entry %d)", e.Quartet.Label(), i)
		}
		s.values[key] = e.Value
	}
	return s, nil
}

func (*FileSource) Name() string { return source.NameFile }

// Value returns the stored integral, or an error wrapping source.ErrNotFound.
func (s *FileSource) Value(q Quartet, _ int) (*apd.Decimal, error) {
	v, ok := s.values[q.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, q.Label())
	}
	return v, nil
}

// SourceByName returns the integral source registered under name. The
// file source needs candidates.
func SourceByName(name string, candidates *File) (Source, error) {
	switch name {
	case source.NameReference:
		return Reference{}, nil
	case source.NameDouble:
		return Double{}, nil
	case source.NameFile:
		if candidates == nil {
			return nil, fmt.Errorf("source %q requires a candidates file", name)
		}
		return NewFile(candidates)
	default:
		return nil, fmt.Errorf("unknown integral source %q (valid: %v)", name, SourceNames())
	}
}

// SourceNames lists the integral sources in sorted order.
func SourceNames() []string {
	names := []string{source.NameReference, source.NameDouble, source.NameFile}
	sort.Strings(names)
	return names
}

// Verify checks every entry against every source and reports in the same
// shape as a Boys verification. Failures are named by entry index and
// angular momenta; opts.ExtraM must be zero.
func Verify(entries []Entry, declared int, sources []Source, opts verify.Options) (*verify.Report, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one candidate source is required")
	}
	if opts.ExtraM != 0 {
		return nil, fmt.Errorf("extra orders do not apply to integrals, got %d", opts.ExtraM)
	}
	target, warning, err := verify.ResolveTarget(declared, opts.TargetDigits)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	working := max(declared, target) + boys.GuardDigits
	report := &verify.Report{
		Kind:           verify.KindERI,
		DeclaredDigits: declared,
		TargetDigits:   target,
		WorkingDigits:  working,
		Total:          len(entries),
		Sources:        make([]verify.SourceReport, len(sources)),
	}
	if warning != "" {
		logger.Warn("precision insufficient for requested target",
			"declared_digits", declared, "target_digits", target)
		report.Warnings = append(report.Warnings, warning)
	}
	for i, src := range sources {
		report.Sources[i] = verify.SourceReport{Source: src.Name(), Total: len(entries), Failures: []verify.Failure{}}
	}

	ctx := boys.NewContext(working)
	tol := verify.Tolerance(target)
	for n, e := range entries {
		agreed := true
		for i, src := range sources {
			f, ok := check(ctx, src, n, e, working, tol)
			sr := &report.Sources[i]
			if ok {
				sr.Passed++
				continue
			}
			agreed = false
			sr.Failed++
			sr.Failures = append(sr.Failures, f)
			logger.Debug("integral failed", "source", src.Name(), "entry", f.Entry, "reldiff", f.RelDiff, "error", f.Error)
		}
		if agreed {
			report.AllAgreed++
		}
	}
	return report, nil
}

func check(ctx *apd.Context, src Source, n int, e Entry, working int, tol *apd.Decimal) (verify.Failure, bool) {
	f := verify.Failure{Entry: strconv.Itoa(n) + " " + e.Quartet.Label(), Reference: e.Value.Text('e')}

	cand, err := src.Value(e.Quartet, working)
	if err != nil {
		f.Error = err.Error()
		return f, false
	}
	f.Candidate = cand.Text('e')

	ok, rd, err := verify.Agree(ctx, e.Value, cand, tol)
	if err != nil {
		f.Error = err.Error()
		return f, false
	}
	if ok {
		return verify.Failure{}, true
	}
	f.RelDiff = verify.FormatRelDiff(rd)
	return f, false
}
