// Package generate builds (m, t) grids and reference files.
package generate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/vectorfile"
)

// Range returns every m in [0, maxM] for each t in
// {0} ∪ {j·10^i : i ∈ [−power, power], j ∈ 1..9}, grouped by t.
func Range(maxM, power int) ([]vectorfile.Query, error) {
	if maxM < 0 {
		return nil, fmt.Errorf("max m must be non-negative, got %d", maxM)
	}
	if power < 0 {
		return nil, fmt.Errorf("power must be non-negative, got %d", power)
	}

	ts := []*apd.Decimal{new(apd.Decimal)}
	for i := -power; i <= power; i++ {
		for j := int64(1); j <= 9; j++ {
			ts = append(ts, apd.New(j, int32(i)))
		}
	}

	out := make([]vectorfile.Query, 0, len(ts)*(maxM+1))
	for _, t := range ts {
		for m := 0; m <= maxM; m++ {
			out = append(out, vectorfile.Query{M: m, T: t})
		}
	}
	return out, nil
}

// RandomOptions configures Random.
type RandomOptions struct {
	Seed    int64
	MaxM    int
	Power   int // t = 10^u with u uniform in [−Power, Power]
	NDigits int // significant digits kept in t
	N       int
}

// Random draws opts.N queries with m uniform in [0, MaxM] and t log-uniform
// over 10^±Power. The same seed always yields the same queries.
func Random(opts RandomOptions) ([]vectorfile.Query, error) {
	switch {
	case opts.MaxM < 0:
		return nil, fmt.Errorf("max m must be non-negative, got %d", opts.MaxM)
	case opts.Power < 0:
		return nil, fmt.Errorf("power must be non-negative, got %d", opts.Power)
	case opts.NDigits <= 0:
		return nil, fmt.Errorf("ndigits must be positive, got %d", opts.NDigits)
	case opts.N < 0:
		return nil, fmt.Errorf("number of samples must be non-negative, got %d", opts.N)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	ctx := boys.NewContext(opts.NDigits + 4)
	ten := apd.New(10, 0)

	out := make([]vectorfile.Query, 0, opts.N)
	for i := 0; i < opts.N; i++ {
		m := rng.Intn(opts.MaxM + 1)
		u := (2*rng.Float64() - 1) * float64(opts.Power)

		exp, err := new(apd.Decimal).SetFloat64(u)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		t := new(apd.Decimal)
		if _, err := ctx.Pow(t, ten, exp); err != nil {
			return nil, fmt.Errorf("sample %d: 10^%s: %w", i, exp.Text('f'), err)
		}
		text, err := vectorfile.FormatSci(t, opts.NDigits)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if t, err = vectorfile.ParseDecimal(text); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out = append(out, vectorfile.Query{M: m, T: t})
	}
	return out, nil
}

// Create evaluates every query to digits correct digits with boys.Target,
// using at most workers goroutines. The result keeps the input order. The
// first evaluation error cancels the remaining work.
func Create(ctx context.Context, queries []vectorfile.Query, digits, workers int) ([]vectorfile.Vector, error) {
	if digits <= 0 {
		return nil, fmt.Errorf("digits must be positive, got %d", digits)
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]vectorfile.Vector, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := boys.Target(q.M, q.T, digits)
			if err != nil {
				return fmt.Errorf("query %d (m=%d, t=%s): %w", i, q.M, q.T.Text('e'), err)
			}
			out[i] = vectorfile.Vector{M: q.M, T: q.T, Value: v.F}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Provenance returns header lines recording how a file was generated:
// the command line and its parameters, one per line.
func Provenance(args []string, params [][2]string) []string {
	lines := []string{
		"THIS FILE IS GENERATED. DO NOT EDIT",
		"",
		"Generated with:",
		"  " + strings.Join(args, " "),
	}
	if len(params) == 0 {
		return lines
	}
	width := 0
	for _, p := range params {
		width = max(width, len(p[0]))
	}
	lines = append(lines, "", strings.Repeat("-", 36))
	for _, p := range params {
		lines = append(lines, fmt.Sprintf("%*s: %s", width+2, p[0], p[1]))
	}
	lines = append(lines, strings.Repeat("-", 36))
	return lines
}
