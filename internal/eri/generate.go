package eri

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/boysref/internal/vectorfile"
)

// RandomOptions configures Random.
type RandomOptions struct {
	Seed    int64
	MaxAM   int     // angular momentum of each Gaussian uniform in [0, MaxAM]
	Extent  float64 // coordinates uniform in [−Extent, Extent]
	Power   int     // alpha = 10^u with u uniform in [−Power, Power]
	NDigits int     // significant digits kept in coordinates and exponents
	N       int
}

// Random draws opts.N quartets. For each Gaussian an angular momentum is
// drawn first and then one of its Cartesian components. The same seed
// always yields the same quartets.
func Random(opts RandomOptions) ([]Quartet, error) {
	switch {
	case opts.MaxAM < 0:
		return nil, fmt.Errorf("max am must be non-negative, got %d", opts.MaxAM)
	case opts.Extent < 0 || math.IsNaN(opts.Extent) || math.IsInf(opts.Extent, 0):
		return nil, fmt.Errorf("extent must be a finite non-negative number, got %g", opts.Extent)
	case opts.Power < 0:
		return nil, fmt.Errorf("power must be non-negative, got %d", opts.Power)
	case opts.NDigits <= 0:
		return nil, fmt.Errorf("ndigits must be positive, got %d", opts.NDigits)
	case opts.N < 0:
		return nil, fmt.Errorf("number of samples must be non-negative, got %d", opts.N)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	draw := func(x float64) (*apd.Decimal, error) {
		d, err := new(apd.Decimal).SetFloat64(x)
		if err != nil {
			return nil, err
		}
		text, err := vectorfile.FormatSci(d, opts.NDigits)
		if err != nil {
			return nil, err
		}
		return vectorfile.ParseDecimal(text)
	}

	out := make([]Quartet, 0, opts.N)
	for i := 0; i < opts.N; i++ {
		var q Quartet
		for j := range q {
			comps := Cartesian(rng.Intn(opts.MaxAM + 1))
			q[j].LMN = comps[rng.Intn(len(comps))]

			var err error
			for k := range q[j].Center {
				if q[j].Center[k], err = draw((2*rng.Float64() - 1) * opts.Extent); err != nil {
					return nil, fmt.Errorf("sample %d: %w", i, err)
				}
			}
			u := (2*rng.Float64() - 1) * float64(opts.Power)
			if q[j].Alpha, err = draw(math.Pow(10, u)); err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// Create evaluates every quartet to digits correct digits with Target,
// using at most workers goroutines. The result keeps the input order. The
// first evaluation error cancels the remaining work.
func Create(ctx context.Context, quartets []Quartet, digits, workers int) ([]Entry, error) {
	if digits <= 0 {
		return nil, fmt.Errorf("digits must be positive, got %d", digits)
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]Entry, len(quartets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range quartets {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := Target(q, digits)
			if err != nil {
				return fmt.Errorf("quartet %d %s: %w", i, q.Label(), err)
			}
			out[i] = Entry{Quartet: q, Value: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
