package boys

import (
	"github.com/cockroachdb/apd/v3"
)

// Value is an evaluated F_m(t) tagged with the precision that produced it.
// A value computed at precision P is only meaningful for comparisons at
// P − GuardDigits digits or fewer.
type Value struct {
	M         int
	T         *apd.Decimal
	F         *apd.Decimal
	Precision int
}

// Text renders F in forced scientific notation with every stored digit.
func (v Value) Text() string {
	return v.F.Text('e')
}

// Evaluate computes F_m(t) with every operation rounded to prec
// significant decimal digits.
//
// For t = 0 the exact limit 1/(2m+1) is returned. Otherwise, with M = m+1/2,
// F_m(t) = γ(M, t) · 1/(2 t^M), evaluated through the scaled lower
// incomplete gamma function so the t^M factor cancels without being formed.
// The result is a pure function of (m, t, prec).
func Evaluate(m int, t *apd.Decimal, prec int) (Value, error) {
	if err := CheckQuery(m, t, prec); err != nil {
		return Value{}, err
	}
	ctx := NewContext(prec)
	f := new(apd.Decimal)

	if t.IsZero() {
		if _, err := ctx.Quo(f, apd.New(1, 0), apd.New(int64(2*m+1), 0)); err != nil {
			return Value{}, precisionError("1/(2m+1) for m=%d: %v", m, err)
		}
		return Value{M: m, T: new(apd.Decimal).Set(t), F: f, Precision: prec}, nil
	}

	scaled, err := scaledLowerGamma(ctx, m, t)
	if err != nil {
		return Value{}, err
	}
	if _, err := ctx.Quo(f, scaled, apd.New(2, 0)); err != nil {
		return Value{}, precisionError("F_%d(%s): %v", m, t.Text('e'), err)
	}
	return Value{M: m, T: new(apd.Decimal).Set(t), F: f, Precision: prec}, nil
}

// Orders computes F_0(t) … F_m(t) in one call. F_m comes from Evaluate and
// the lower orders from the downward recursion
//
//	F_i(t) = (2t·F_{i+1}(t) + e^-t) / (2i+1)
//
// which is numerically stable in that direction.
func Orders(m int, t *apd.Decimal, prec int) ([]Value, error) {
	top, err := Evaluate(m, t, prec)
	if err != nil {
		return nil, err
	}
	out := make([]Value, m+1)
	out[m] = top

	if t.IsZero() {
		for i := m - 1; i >= 0; i-- {
			v, err := Evaluate(i, t, prec)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	ctx := NewContext(prec)
	et, err := ExpNeg(ctx, t)
	if err != nil {
		return nil, err
	}
	ed := apd.MakeErrDecimal(ctx)
	twoT := new(apd.Decimal)
	ed.Mul(twoT, t, apd.New(2, 0))
	for i := m - 1; i >= 0; i-- {
		f := new(apd.Decimal)
		ed.Mul(f, twoT, out[i+1].F)
		ed.Add(f, f, et)
		ed.Quo(f, f, apd.New(int64(2*i+1), 0))
		out[i] = Value{M: i, T: top.T, F: f, Precision: prec}
	}
	if err := ed.Err(); err != nil {
		return nil, precisionError("downward recursion from m=%d: %v", m, err)
	}
	return out, nil
}

// Target evaluates F_m(t) at digits + GuardDigits and rounds the result to
// digits significant digits. The returned Value carries Precision = digits.
func Target(m int, t *apd.Decimal, digits int) (Value, error) {
	if digits <= 0 {
		return Value{}, precisionError("target precision must be positive, got %d", digits)
	}
	v, err := Evaluate(m, t, digits+GuardDigits)
	if err != nil {
		return Value{}, err
	}
	if _, err := NewContext(digits).Round(v.F, v.F); err != nil {
		return Value{}, precisionError("rounding F_%d to %d digits: %v", m, digits, err)
	}
	v.Precision = digits
	return v, nil
}
