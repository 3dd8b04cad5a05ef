package verify

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/vectorfile"
)

// Options controls a verification run.
type Options struct {
	// TargetDigits is the number of digits that must agree. Zero selects
	// the declared precision minus one.
	TargetDigits int

	// ExtraM asks every source for that many orders above m so the
	// candidate passes through downward recursion.
	ExtraM int

	// Logger receives the precision warning. Nil uses slog.Default().
	Logger *slog.Logger
}

// Report kinds. A Boys report checks F_m(t) vectors; an integral report
// checks primitive electron repulsion integrals.
const (
	KindBoys = "boys"
	KindERI  = "eri"
)

// Failure describes one vector whose candidate disagreed with the reference
// or could not be produced. Values are rendered as decimal strings.
//
// Integral failures leave M and T empty and name the entry instead.
type Failure struct {
	M         int    `json:"m"`
	T         string `json:"t"`
	Entry     string `json:"entry,omitempty"`
	Reference string `json:"reference"`
	Candidate string `json:"candidate,omitempty"`
	RelDiff   string `json:"reldiff,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SourceReport is the tally for one candidate source.
type SourceReport struct {
	Source   string    `json:"source"`
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures"`
}

// OK reports whether every vector passed for this source.
func (s SourceReport) OK() bool { return s.Failed == 0 }

// PercentPassed formats the pass rate of this source.
func (s SourceReport) PercentPassed() string { return PercentPassed(s.Failed, s.Total) }

// Report is the outcome of Verify.
type Report struct {
	Kind           string   `json:"kind"`
	DeclaredDigits int      `json:"declared_digits"`
	TargetDigits   int      `json:"target_digits"`
	WorkingDigits  int      `json:"working_digits"`
	ExtraM         int      `json:"extra_m"`
	Total          int      `json:"total"`
	Warnings       []string `json:"warnings,omitempty"`

	// AllAgreed counts vectors on which every source passed.
	AllAgreed int `json:"all_agreed"`

	Sources []SourceReport `json:"sources"`
}

// OK reports whether every source passed every vector.
func (r *Report) OK() bool {
	for _, s := range r.Sources {
		if !s.OK() {
			return false
		}
	}
	return true
}

// TotalFailed sums the failures of all sources.
func (r *Report) TotalFailed() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Failed
	}
	return n
}

// ResolveTarget applies the default target (declared − 1) and validates
// the pair. It also returns the warning text when the target cannot be
// certified by a file of the declared precision.
func ResolveTarget(declared, target int) (int, string, error) {
	if declared <= 0 {
		return 0, "", fmt.Errorf("declared precision must be positive, got %d", declared)
	}
	if target < 0 {
		return 0, "", fmt.Errorf("target digits must be non-negative, got %d", target)
	}
	if target == 0 {
		target = declared - 1
		if target == 0 {
			target = 1
		}
	}
	if target >= declared {
		return target, fmt.Sprintf("target precision of %d digits is not below the declared precision of %d digits; agreement cannot be certified by this file", target, declared), nil
	}
	return target, "", nil
}

// Verify checks every vector against every source.
//
// Source errors for a single vector (a missing candidate, a precision
// error) are recorded as failures of that source; only invalid options
// abort the run.
func Verify(vectors []vectorfile.Vector, declared int, sources []source.Source, opts Options) (*Report, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one candidate source is required")
	}
	if opts.ExtraM < 0 {
		return nil, fmt.Errorf("extra orders must be non-negative, got %d", opts.ExtraM)
	}
	target, warning, err := ResolveTarget(declared, opts.TargetDigits)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	working := max(declared, target) + boys.GuardDigits
	report := &Report{
		Kind:           KindBoys,
		DeclaredDigits: declared,
		TargetDigits:   target,
		WorkingDigits:  working,
		ExtraM:         opts.ExtraM,
		Total:          len(vectors),
		Sources:        make([]SourceReport, len(sources)),
	}
	if warning != "" {
		logger.Warn("precision insufficient for requested target",
			"declared_digits", declared, "target_digits", target)
		report.Warnings = append(report.Warnings, warning)
	}
	for i, src := range sources {
		report.Sources[i] = SourceReport{Source: src.Name(), Total: len(vectors), Failures: []Failure{}}
	}

	ctx := boys.NewContext(working)
	tol := Tolerance(target)
	for _, v := range vectors {
		agreed := true
		for i, src := range sources {
			f, ok := check(ctx, src, v, working, opts.ExtraM, tol)
			sr := &report.Sources[i]
			if ok {
				sr.Passed++
				continue
			}
			agreed = false
			sr.Failed++
			sr.Failures = append(sr.Failures, f)
			logger.Debug("vector failed", "source", src.Name(), "m", v.M, "t", f.T, "reldiff", f.RelDiff, "error", f.Error)
		}
		if agreed {
			report.AllAgreed++
		}
	}
	return report, nil
}

func check(ctx *apd.Context, src source.Source, v vectorfile.Vector, working, extraM int, tol *apd.Decimal) (Failure, bool) {
	f := Failure{M: v.M, T: vectorfile.FormatArgument(v.T), Reference: v.Value.Text('e')}

	cand, err := source.Candidate(src, v.M, v.T, working, extraM)
	if err != nil {
		f.Error = err.Error()
		return f, false
	}
	f.Candidate = cand.Text('e')

	ok, rd, err := Agree(ctx, v.Value, cand, tol)
	if err != nil {
		f.Error = err.Error()
		return f, false
	}
	if ok {
		return Failure{}, true
	}
	f.RelDiff = FormatRelDiff(rd)
	return f, false
}

// FormatRelDiff renders a relative difference to relDiffDigits significant
// digits.
func FormatRelDiff(rd *apd.Decimal) string {
	s, err := vectorfile.FormatSci(rd, relDiffDigits)
	if err != nil {
		return rd.Text('e')
	}
	return s
}

// relDiffDigits is the number of significant digits shown for a relative
// difference.
const relDiffDigits = 6

// FailedKeys maps each source to the query keys of its failed vectors, in
// file order. Sources without failures map to an empty list.
func (r *Report) FailedKeys() map[string][]string {
	keys := make(map[string][]string, len(r.Sources))
	for _, s := range r.Sources {
		list := make([]string, 0, len(s.Failures))
		for _, f := range s.Failures {
			if f.Entry != "" {
				list = append(list, f.Entry)
				continue
			}
			t, _, err := apd.NewFromString(f.T)
			if err != nil {
				list = append(list, fmt.Sprintf("%d %s", f.M, f.T))
				continue
			}
			list = append(list, vectorfile.QueryKey(f.M, t))
		}
		keys[s.Source] = list
	}
	return keys
}
