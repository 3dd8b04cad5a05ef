package verify

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// RelDiff returns |a − b| / max(|a|, |b|) at the precision of ctx. It is
// zero when a = b, including a = b = 0.
func RelDiff(ctx *apd.Context, a, b *apd.Decimal) (*apd.Decimal, error) {
	if a.Form != apd.Finite || b.Form != apd.Finite {
		return nil, fmt.Errorf("relative difference of non-finite values")
	}
	ed := apd.MakeErrDecimal(ctx)
	diff := new(apd.Decimal)
	ed.Sub(diff, a, b)
	diff.Abs(diff)
	if err := ed.Err(); err != nil {
		return nil, err
	}
	if diff.IsZero() {
		return diff, nil
	}

	den := new(apd.Decimal).Abs(a)
	if absB := new(apd.Decimal).Abs(b); absB.Cmp(den) > 0 {
		den = absB
	}
	ed.Quo(diff, diff, den)
	if err := ed.Err(); err != nil {
		return nil, err
	}
	return diff, nil
}

// Tolerance returns 10^-digits.
func Tolerance(digits int) *apd.Decimal {
	return apd.New(1, int32(-digits))
}

// Agree reports whether a and b agree to within tol relative difference.
func Agree(ctx *apd.Context, a, b, tol *apd.Decimal) (bool, *apd.Decimal, error) {
	rd, err := RelDiff(ctx, a, b)
	if err != nil {
		return false, nil, err
	}
	return rd.Cmp(tol) <= 0, rd, nil
}

// PercentPassed formats 100 − 100·failed/total with six significant digits
// and no trailing zeros, e.g. "70", "99.9667". An empty run has passed fully.
func PercentPassed(failed, total int) string {
	if total == 0 {
		return "100"
	}
	p := 100 - 100*float64(failed)/float64(total)
	return strconv.FormatFloat(p, 'g', 6, 64)
}
