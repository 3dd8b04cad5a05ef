package source

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

const maxSeriesTerms = 1_000_000

// Series evaluates F_m(t) without the incomplete gamma function.
//
// For t >= m + 3/2 it first tries the long-range form
//
//	F_m(t) ≈ √(π/t)/2 · Π_{i=1..m} (2i−1)/(2t)
//
// and keeps it when the neglected e^-t tail does not change the result at
// the working precision. Otherwise it sums the short-range series
//
//	F_m(t) = e^-t/(2m+1) · Σ_k (2t)^k / ((2m+3)(2m+5)…(2m+2k+1)).
//
// Lower orders come from the downward recursion.
type Series struct{}

func (Series) Name() string { return NameSeries }

func (Series) Orders(m int, t *apd.Decimal, digits int) ([]*apd.Decimal, error) {
	return seriesOrders(boys.NewContext(digits), m, t)
}

// Interval runs the series algorithm twice, once rounding every operation
// toward −∞ and once toward +∞, and reports the midpoint. The pair brackets
// the rounding error of the computation; it is not a rigorous enclosure of
// the truncation error.
type Interval struct{}

func (Interval) Name() string { return NameInterval }

func (iv Interval) Orders(m int, t *apd.Decimal, digits int) ([]*apd.Decimal, error) {
	lo, hi, err := iv.Bounds(m, t, digits)
	if err != nil {
		return nil, err
	}
	ctx := boys.NewContext(digits)
	ed := apd.MakeErrDecimal(ctx)
	mid := make([]*apd.Decimal, len(lo))
	for i := range lo {
		mid[i] = new(apd.Decimal)
		ed.Add(mid[i], lo[i], hi[i])
		ed.Quo(mid[i], mid[i], apd.New(2, 0))
	}
	if err := ed.Err(); err != nil {
		return nil, fmt.Errorf("interval midpoint: %w", err)
	}
	return mid, nil
}

// Bounds returns the lower and upper ends of the rounding bracket for
// F_0(t) … F_m(t), with lo[i] <= hi[i].
func (Interval) Bounds(m int, t *apd.Decimal, digits int) (lo, hi []*apd.Decimal, err error) {
	down := boys.NewContext(digits)
	down.Rounding = apd.RoundFloor
	up := boys.NewContext(digits)
	up.Rounding = apd.RoundCeiling

	if lo, err = seriesOrders(down, m, t); err != nil {
		return nil, nil, err
	}
	if hi, err = seriesOrders(up, m, t); err != nil {
		return nil, nil, err
	}
	for i := range lo {
		if lo[i].Cmp(hi[i]) > 0 {
			lo[i], hi[i] = hi[i], lo[i]
		}
	}
	return lo, hi, nil
}

func seriesOrders(ctx *apd.Context, m int, t *apd.Decimal) ([]*apd.Decimal, error) {
	if err := boys.CheckQuery(m, t, int(ctx.Precision)); err != nil {
		return nil, err
	}
	ed := apd.MakeErrDecimal(ctx)
	t2 := new(apd.Decimal)
	ed.Mul(t2, t, apd.New(2, 0))
	if err := ed.Err(); err != nil {
		return nil, err
	}
	et, err := boys.ExpNeg(ctx, t)
	if err != nil {
		return nil, err
	}

	F := make([]*apd.Decimal, m+1)

	// 2t < 2m+3 is t < m + 3/2 without rounding.
	short := t2.Cmp(apd.New(int64(2*m+3), 0)) < 0
	if !short {
		fm, ok, err := longRange(ctx, m, t, t2, et)
		if err != nil {
			return nil, err
		}
		if ok {
			F[m] = fm
		} else {
			short = true
		}
	}
	if short {
		if F[m], err = shortRange(ctx, m, t2, et); err != nil {
			return nil, err
		}
	}

	for i := m - 1; i >= 0; i-- {
		F[i] = new(apd.Decimal)
		ed.Mul(F[i], t2, F[i+1])
		ed.Add(F[i], F[i], et)
		ed.Quo(F[i], F[i], apd.New(int64(2*i+1), 0))
	}
	if err := ed.Err(); err != nil {
		return nil, fmt.Errorf("downward recursion: %w", err)
	}
	return F, nil
}

// longRange returns the asymptotic value and whether its tail is negligible.
func longRange(ctx *apd.Context, m int, t, t2, et *apd.Decimal) (*apd.Decimal, bool, error) {
	pi, err := boys.Pi(int(ctx.Precision))
	if err != nil {
		return nil, false, err
	}
	ed := apd.MakeErrDecimal(ctx)
	f := new(apd.Decimal)
	ed.Quo(f, pi, t)
	ed.Sqrt(f, f)
	ed.Quo(f, f, apd.New(2, 0))
	factor := new(apd.Decimal)
	for i := 1; i <= m; i++ {
		ed.Quo(factor, apd.New(int64(2*i-1), 0), t2)
		ed.Mul(f, f, factor)
	}

	// Leading terms of the asymptotic tail e^-t/(2t) · Σ_i Π_j (2m−2j+1)/(2t),
	// summed until they stop shrinking or stop changing the sum.
	sum := new(apd.Decimal)
	term := apd.New(1, 0)
	last, abs := new(apd.Decimal), new(apd.Decimal)
	for i := 1; i < maxSeriesTerms; i++ {
		last.Abs(term)
		ed.Mul(term, term, apd.New(int64(2*m-2*i+1), 0))
		ed.Quo(term, term, t2)
		if abs.Abs(term).Cmp(last) > 0 {
			break
		}
		ed.Add(sum, sum, term)
		if negligible(term, sum, ctx.Precision) {
			break
		}
	}
	ed.Mul(sum, sum, et)
	ed.Quo(sum, sum, t2)

	test := new(apd.Decimal)
	ed.Sub(test, f, sum)
	if err := ed.Err(); err != nil {
		return nil, false, fmt.Errorf("long-range F_%d: %w", m, err)
	}
	return f, test.Cmp(f) == 0, nil
}

func shortRange(ctx *apd.Context, m int, t2, et *apd.Decimal) (*apd.Decimal, error) {
	ed := apd.MakeErrDecimal(ctx)
	sum := apd.New(1, 0)
	term := apd.New(1, 0)
	converged := false
	for i := 1; i < maxSeriesTerms; i++ {
		ed.Mul(term, term, t2)
		ed.Quo(term, term, apd.New(int64(2*m+2*i+1), 0))
		ed.Add(sum, sum, term)
		if err := ed.Err(); err != nil {
			return nil, fmt.Errorf("short-range F_%d: %w", m, err)
		}
		if negligible(term, sum, ctx.Precision) {
			converged = true
			break
		}
	}
	if !converged {
		return nil, fmt.Errorf("short-range F_%d did not converge", m)
	}
	f := new(apd.Decimal)
	ed.Mul(f, sum, et)
	ed.Quo(f, f, apd.New(int64(2*m+1), 0))
	if err := ed.Err(); err != nil {
		return nil, fmt.Errorf("short-range F_%d: %w", m, err)
	}
	return f, nil
}

// negligible reports whether term lies more than prec+1 decades below sum.
// Under RoundCeiling every positive addend moves the sum, so convergence
// cannot be detected by an unchanged sum.
func negligible(term, sum *apd.Decimal, prec uint32) bool {
	if term.IsZero() {
		return true
	}
	if sum.IsZero() {
		return false
	}
	return adjustedExponent(term) < adjustedExponent(sum)-int64(prec)-1
}

func adjustedExponent(d *apd.Decimal) int64 {
	return int64(d.Exponent) + d.NumDigits() - 1
}
