package boys

import (
	"github.com/cockroachdb/apd/v3"
)

// maxIterations caps every series and continued fraction. Hitting it means
// the working precision or the argument is outside what the evaluator
// supports, which is reported as a precision error.
const maxIterations = 2_000_000

// Pi returns π rounded to prec significant digits using Machin's formula
// π = 16·atan(1/5) − 4·atan(1/239).
func Pi(prec int) (*apd.Decimal, error) {
	if prec <= 0 || prec > MaxPrecision {
		return nil, precisionError("pi: invalid precision %d", prec)
	}
	work := NewContext(prec + 5)
	a, err := atanInv(work, 5)
	if err != nil {
		return nil, err
	}
	b, err := atanInv(work, 239)
	if err != nil {
		return nil, err
	}

	ed := apd.MakeErrDecimal(work)
	pi := new(apd.Decimal)
	ed.Mul(a, a, apd.New(16, 0))
	ed.Mul(b, b, apd.New(4, 0))
	ed.Sub(pi, a, b)
	ed.Ctx = NewContext(prec)
	ed.Round(pi, pi)
	if err := ed.Err(); err != nil {
		return nil, precisionError("pi: %v", err)
	}
	return pi, nil
}

// atanInv computes atan(1/n) by its Taylor series at the precision of ctx.
func atanInv(ctx *apd.Context, n int64) (*apd.Decimal, error) {
	ed := apd.MakeErrDecimal(ctx)
	nd := apd.New(n, 0)
	n2 := apd.New(n*n, 0)

	power := new(apd.Decimal) // 1/n^(2k+1)
	ed.Quo(power, apd.New(1, 0), nd)
	sum := new(apd.Decimal).Set(power)
	term, prev := new(apd.Decimal), new(apd.Decimal)

	for k := int64(1); k < maxIterations; k++ {
		ed.Quo(power, power, n2)
		ed.Quo(term, power, apd.New(2*k+1, 0))
		prev.Set(sum)
		if k%2 == 1 {
			ed.Sub(sum, sum, term)
		} else {
			ed.Add(sum, sum, term)
		}
		if err := ed.Err(); err != nil {
			return nil, precisionError("atan(1/%d): %v", n, err)
		}
		if sum.Cmp(prev) == 0 {
			return sum, nil
		}
	}
	return nil, precisionError("atan(1/%d) did not converge", n)
}

// GammaHalf returns Γ(m+1/2) = (2m−1)!!·√π / 2^m at the precision of ctx.
func GammaHalf(ctx *apd.Context, m int) (*apd.Decimal, error) {
	if m < 0 {
		return nil, invalidArgument("GammaHalf requires m >= 0, got %d", m)
	}
	prec := int(ctx.Precision)
	work := NewContext(prec + decimalDigits(m) + 2)
	pi, err := Pi(int(work.Precision))
	if err != nil {
		return nil, err
	}

	ed := apd.MakeErrDecimal(work)
	g := new(apd.Decimal)
	ed.Sqrt(g, pi)
	half := apd.New(5, -1)
	for i := 1; i <= m; i++ {
		// Γ(i+1/2) = (i−1/2)·Γ(i−1/2)
		f := apd.New(int64(2*i-1), 0)
		ed.Mul(f, f, half)
		ed.Mul(g, g, f)
	}
	ed.Ctx = ctx
	ed.Round(g, g)
	if err := ed.Err(); err != nil {
		return nil, precisionError("Γ(%d+1/2): %v", m, err)
	}
	return g, nil
}

// LowerGamma returns the unnormalised lower incomplete gamma function
// γ(m+1/2, x) at the precision of ctx.
//
// The value grows like x^(m+1/2) for small x and approaches Γ(m+1/2) for
// large x; both ends stay inside apd's exponent range for the arguments
// the Boys function uses. Evaluate works with the scaled form
// γ(m+1/2, x)/x^(m+1/2) directly so that the power cancels exactly.
func LowerGamma(ctx *apd.Context, m int, x *apd.Decimal) (*apd.Decimal, error) {
	if err := CheckQuery(m, x, int(ctx.Precision)); err != nil {
		return nil, err
	}
	if x.IsZero() {
		return new(apd.Decimal), nil
	}
	work := NewContext(int(ctx.Precision) + 2)
	scaled, err := scaledLowerGamma(work, m, x)
	if err != nil {
		return nil, err
	}
	pow, err := halfIntegerPower(work, x, m)
	if err != nil {
		return nil, err
	}

	ed := apd.MakeErrDecimal(work)
	g := new(apd.Decimal)
	ed.Mul(g, scaled, pow)
	ed.Ctx = ctx
	ed.Round(g, g)
	if err := ed.Err(); err != nil {
		return nil, precisionError("γ(%d+1/2, %s): %v", m, x.Text('e'), err)
	}
	return g, nil
}

// halfIntegerPower returns x^(m+1/2).
func halfIntegerPower(ctx *apd.Context, x *apd.Decimal, m int) (*apd.Decimal, error) {
	ed := apd.MakeErrDecimal(ctx)
	p := new(apd.Decimal)
	ed.Pow(p, x, apd.New(int64(m), 0))
	root := new(apd.Decimal)
	ed.Sqrt(root, x)
	ed.Mul(p, p, root)
	if err := ed.Err(); err != nil {
		return nil, precisionError("%s^(%d+1/2): %v", x.Text('e'), m, err)
	}
	return p, nil
}

// scaledLowerGamma returns γ(s, x)/x^s for s = m+1/2 and x > 0.
//
// Below x = s+1 the power series
//
//	γ(s,x)/x^s = e^-x · Σ_k x^k / (s(s+1)…(s+k))
//
// converges with monotonically shrinking terms. Above it the upper
// function Γ(s,x) = e^-x x^s · CF(s,x) is evaluated with the modified
// Lentz algorithm and subtracted from Γ(s).
func scaledLowerGamma(ctx *apd.Context, m int, x *apd.Decimal) (*apd.Decimal, error) {
	// s + 1 = (2m+3)/2
	threshold := apd.New(int64(2*m+3), 0)
	if _, err := ctx.Quo(threshold, threshold, apd.New(2, 0)); err != nil {
		return nil, precisionError("series threshold: %v", err)
	}
	if x.Cmp(threshold) < 0 {
		return scaledLowerGammaSeries(ctx, m, x)
	}
	return scaledLowerGammaFraction(ctx, m, x)
}

func scaledLowerGammaSeries(ctx *apd.Context, m int, x *apd.Decimal) (*apd.Decimal, error) {
	ed := apd.MakeErrDecimal(ctx)
	twoX := new(apd.Decimal)
	ed.Mul(twoX, x, apd.New(2, 0))

	// term_0 = 1/s = 2/(2m+1); term_k = term_{k-1} · 2x/(2m+2k+1)
	term := new(apd.Decimal)
	ed.Quo(term, apd.New(2, 0), apd.New(int64(2*m+1), 0))
	sum := new(apd.Decimal).Set(term)
	prev := new(apd.Decimal)

	converged := false
	for k := 1; k < maxIterations; k++ {
		ed.Mul(term, term, twoX)
		ed.Quo(term, term, apd.New(int64(2*m+2*k+1), 0))
		prev.Set(sum)
		ed.Add(sum, sum, term)
		if err := ed.Err(); err != nil {
			return nil, precisionError("γ series for m=%d: %v", m, err)
		}
		if sum.Cmp(prev) == 0 {
			converged = true
			break
		}
	}
	if !converged {
		return nil, precisionError("γ series for m=%d, x=%s did not converge", m, x.Text('e'))
	}

	et, err := ExpNeg(ctx, x)
	if err != nil {
		return nil, err
	}
	ed.Mul(sum, sum, et)
	if err := ed.Err(); err != nil {
		return nil, precisionError("γ series for m=%d: %v", m, err)
	}
	return sum, nil
}

func scaledLowerGammaFraction(ctx *apd.Context, m int, x *apd.Decimal) (*apd.Decimal, error) {
	prec := int(ctx.Precision)
	ed := apd.MakeErrDecimal(ctx)

	s := apd.New(int64(2*m+1)*5, -1) // m + 1/2

	tiny := apd.New(1, int32(-2*prec-10))
	eps := apd.New(1, int32(1-prec))
	one := apd.New(1, 0)

	b := new(apd.Decimal)
	ed.Add(b, x, one)
	ed.Sub(b, b, s)
	c := new(apd.Decimal)
	ed.Quo(c, one, tiny)
	d := new(apd.Decimal)
	ed.Quo(d, one, b)
	h := new(apd.Decimal).Set(d)

	an, tmp, del := new(apd.Decimal), new(apd.Decimal), new(apd.Decimal)
	converged := false
	for i := int64(1); i < maxIterations; i++ {
		// a_i = -i(i-s)
		ed.Sub(an, apd.New(i, 0), s)
		ed.Mul(an, an, apd.New(-i, 0))
		ed.Add(b, b, apd.New(2, 0))

		ed.Mul(d, an, d)
		ed.Add(d, d, b)
		if tmp.Abs(d).Cmp(tiny) < 0 {
			d.Set(tiny)
		}
		ed.Quo(tmp, an, c)
		ed.Add(c, b, tmp)
		if tmp.Abs(c).Cmp(tiny) < 0 {
			c.Set(tiny)
		}
		ed.Quo(d, one, d)
		ed.Mul(del, d, c)
		ed.Mul(h, h, del)
		if err := ed.Err(); err != nil {
			return nil, precisionError("Γ continued fraction for m=%d: %v", m, err)
		}
		ed.Sub(tmp, del, one)
		if tmp.Abs(tmp).Cmp(eps) <= 0 {
			converged = true
			break
		}
	}
	if !converged {
		return nil, precisionError("Γ continued fraction for m=%d, x=%s did not converge", m, x.Text('e'))
	}

	// Γ(s)/x^s = √π/√x · Π_{i=1..m} (2i−1)/(2x); the product form never
	// leaves the exponent range even when Γ(s) and x^s separately would.
	work := NewContext(prec + decimalDigits(m) + 2)
	pi, err := Pi(int(work.Precision))
	if err != nil {
		return nil, err
	}
	wd := apd.MakeErrDecimal(work)
	lead := new(apd.Decimal)
	wd.Quo(lead, pi, x)
	wd.Sqrt(lead, lead)
	twoX := new(apd.Decimal)
	wd.Mul(twoX, x, apd.New(2, 0))
	f := new(apd.Decimal)
	for i := 1; i <= m; i++ {
		wd.Quo(f, apd.New(int64(2*i-1), 0), twoX)
		wd.Mul(lead, lead, f)
	}
	if err := wd.Err(); err != nil {
		return nil, precisionError("Γ(%d+1/2)/x^s: %v", m, err)
	}

	et, err := ExpNeg(ctx, x)
	if err != nil {
		return nil, err
	}
	upper := new(apd.Decimal)
	ed.Mul(upper, et, h)
	res := new(apd.Decimal)
	ed.Sub(res, lead, upper)
	if err := ed.Err(); err != nil {
		return nil, precisionError("γ(%d+1/2, %s): %v", m, x.Text('e'), err)
	}
	return res, nil
}
