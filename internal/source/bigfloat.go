package source

import (
	"fmt"
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

// BigFloat runs the two-regime series algorithm in binary floating point
// (math/big) at ceil(digits·log2 10) + 16 bits. Sharing no arithmetic with
// the decimal sources, it catches errors that base-10 rounding would hide.
type BigFloat struct{}

func (BigFloat) Name() string { return NameBigFloat }

func (BigFloat) Orders(m int, t *apd.Decimal, digits int) ([]*apd.Decimal, error) {
	if err := boys.CheckQuery(m, t, digits); err != nil {
		return nil, err
	}
	prec := bitsForDigits(digits)
	x, _, err := big.ParseFloat(t.Text('e'), 10, prec, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("convert t=%s to binary: %w", t.Text('e'), err)
	}

	vals, err := bigOrders(m, x, prec)
	if err != nil {
		return nil, err
	}
	out := make([]*apd.Decimal, len(vals))
	for i, v := range vals {
		d, _, err := apd.NewFromString(v.Text('e', digits+2))
		if err != nil {
			return nil, fmt.Errorf("convert F_%d to decimal: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func bitsForDigits(digits int) uint {
	return uint(math.Ceil(float64(digits)*math.Log2(10))) + 16
}

func newFloat(prec uint) *big.Float {
	return new(big.Float).SetPrec(prec)
}

func bigOrders(m int, t *big.Float, prec uint) ([]*big.Float, error) {
	t2 := newFloat(prec).Mul(t, big.NewFloat(2))
	et := bigExpNeg(t, prec)
	F := make([]*big.Float, m+1)

	short := t2.Cmp(big.NewFloat(float64(2*m+3))) < 0
	if !short {
		f, tail := bigLongRange(m, t, t2, et, prec)
		test := newFloat(prec).Sub(f, tail)
		if test.Cmp(f) == 0 {
			F[m] = f
		} else {
			short = true
		}
	}
	if short {
		f, err := bigShortRange(m, t2, et, prec)
		if err != nil {
			return nil, err
		}
		F[m] = f
	}

	for i := m - 1; i >= 0; i-- {
		f := newFloat(prec).Mul(t2, F[i+1])
		f.Add(f, et)
		F[i] = f.Quo(f, newFloat(prec).SetInt64(int64(2*i+1)))
	}
	return F, nil
}

// bigLongRange returns the asymptotic F_m(t) and the size of its e^-t tail.
func bigLongRange(m int, t, t2, et *big.Float, prec uint) (*big.Float, *big.Float) {
	f := newFloat(prec).Quo(bigPi(prec), t)
	f.Sqrt(f)
	f.Quo(f, big.NewFloat(2))
	factor := newFloat(prec)
	for i := 1; i <= m; i++ {
		factor.Quo(newFloat(prec).SetInt64(int64(2*i-1)), t2)
		f.Mul(f, factor)
	}

	sum := newFloat(prec)
	term := newFloat(prec).SetInt64(1)
	last, abs := newFloat(prec), newFloat(prec)
	for i := 1; i < maxSeriesTerms; i++ {
		last.Abs(term)
		term.Mul(term, newFloat(prec).SetInt64(int64(2*m-2*i+1)))
		term.Quo(term, t2)
		if abs.Abs(term).Cmp(last) > 0 {
			break
		}
		sum.Add(sum, term)
		if bigNegligible(term, sum, prec) {
			break
		}
	}
	sum.Mul(sum, et)
	sum.Quo(sum, t2)
	return f, sum
}

func bigShortRange(m int, t2, et *big.Float, prec uint) (*big.Float, error) {
	sum := newFloat(prec).SetInt64(1)
	term := newFloat(prec).SetInt64(1)
	for i := 1; i < maxSeriesTerms; i++ {
		term.Mul(term, t2)
		term.Quo(term, newFloat(prec).SetInt64(int64(2*m+2*i+1)))
		sum.Add(sum, term)
		if bigNegligible(term, sum, prec) {
			sum.Mul(sum, et)
			return sum.Quo(sum, newFloat(prec).SetInt64(int64(2*m+1))), nil
		}
	}
	return nil, fmt.Errorf("binary short-range F_%d did not converge", m)
}

// bigExpNeg computes e^-x for x >= 0 by scaling x below 2^-8, summing the
// Taylor series and squaring back up. Each squaring costs about one bit,
// so the work precision carries one extra bit per halving.
func bigExpNeg(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return newFloat(prec).SetInt64(1)
	}
	k := 0
	if e := x.MantExp(nil); e > -8 {
		k = e + 8
	}
	wp := prec + uint(k) + 16

	r := newFloat(wp).SetMantExp(x, -k)
	r.Neg(r)
	sum := newFloat(wp).SetInt64(1)
	term := newFloat(wp).SetInt64(1)
	for n := int64(1); n < maxSeriesTerms; n++ {
		term.Mul(term, r)
		term.Quo(term, newFloat(wp).SetInt64(n))
		sum.Add(sum, term)
		if bigNegligible(term, sum, wp) {
			break
		}
	}
	for i := 0; i < k; i++ {
		sum.Mul(sum, sum)
	}
	return newFloat(prec).Set(sum)
}

// bigPi computes π with Machin's formula.
func bigPi(prec uint) *big.Float {
	wp := prec + 16
	a := bigAtanInv(5, wp)
	b := bigAtanInv(239, wp)
	a.Mul(a, newFloat(wp).SetInt64(16))
	b.Mul(b, newFloat(wp).SetInt64(4))
	return newFloat(prec).Sub(a, b)
}

func bigAtanInv(n int64, prec uint) *big.Float {
	n2 := newFloat(prec).SetInt64(n * n)
	power := newFloat(prec).Quo(newFloat(prec).SetInt64(1), newFloat(prec).SetInt64(n))
	sum := newFloat(prec).Set(power)
	term := newFloat(prec)
	for k := int64(1); k < maxSeriesTerms; k++ {
		power.Quo(power, n2)
		term.Quo(power, newFloat(prec).SetInt64(2*k+1))
		if k%2 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
		if bigNegligible(term, sum, prec) {
			break
		}
	}
	return sum
}

func bigNegligible(term, sum *big.Float, prec uint) bool {
	if term.Sign() == 0 {
		return true
	}
	if sum.Sign() == 0 {
		return false
	}
	return term.MantExp(nil) < sum.MantExp(nil)-int(prec)-1
}
