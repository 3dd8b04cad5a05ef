package source

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

// exactStep is the precision increment, in digits, of the adaptive loop:
// a double needs 17 significant digits plus a few to round correctly.
const exactStep = 20

// Exact returns the reference values correctly rounded to float64. It is
// what a perfect double-precision implementation would produce. The digits
// argument is ignored; precision grows until two evaluations round to the
// same doubles for every order.
type Exact struct{}

func (Exact) Name() string { return NameExact }

func (Exact) Orders(m int, t *apd.Decimal, _ int) ([]*apd.Decimal, error) {
	prev, err := roundedOrders(m, t, 2*exactStep)
	if err != nil {
		return nil, err
	}
	for prec := 3 * exactStep; prec <= boys.MaxPrecision; prec += exactStep {
		cur, err := roundedOrders(m, t, prec)
		if err != nil {
			return nil, err
		}
		if sameFloats(prev, cur) {
			return fromFloats(cur)
		}
		prev = cur
	}
	return nil, fmt.Errorf("F_%d(%s) did not settle to double precision below %d digits", m, t.Text('e'), boys.MaxPrecision)
}

func roundedOrders(m int, t *apd.Decimal, prec int) ([]float64, error) {
	vals, err := boys.Orders(m, t, prec)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		// Float64 parses the decimal text, which rounds to nearest.
		f, err := v.F.Float64()
		if err != nil {
			return nil, fmt.Errorf("round F_%d to double: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
