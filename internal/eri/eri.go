package eri

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

// maxTargetRounds bounds how often Target widens its working precision
// before giving up on convergence.
const maxTargetRounds = 8

// Evaluate computes the primitive integral (q0 q1|q2 q3) with every
// operation rounded to prec significant digits.
//
// The integral is expanded over Hermite-like indices along each axis. For
// an axis the bra pair with exponents (l1, l2) and the ket pair (l3, l4)
// contribute a coefficient array A[k], k = 0 … l1+l2+l3+l4, and
//
//	(ab|cd) = K · Σ Ax[i] Ay[j] Az[k] F_{i+j+k}(γpq |P−Q|²)
//
// where K = 2π^(5/2) e^(−α1α2|AB|²/γp) e^(−α3α4|CD|²/γq) / (γp γq √(γp+γq)).
func Evaluate(q Quartet, prec int) (*apd.Decimal, error) {
	if err := q.Check(); err != nil {
		return nil, err
	}
	if prec <= 0 || prec > boys.MaxPrecision {
		return nil, precisionError("working precision must be in [1, %d], got %d", boys.MaxPrecision, prec)
	}
	ctx := boys.NewContext(prec)
	ed := &apd.ErrDecimal{Ctx: ctx}

	bra := newPair(ed, q[0], q[1])
	ket := newPair(ed, q[2], q[3])

	// γpq = γp γq / (γp + γq)
	gsum := new(apd.Decimal)
	ed.Add(gsum, bra.gamma, ket.gamma)
	gpq := new(apd.Decimal)
	ed.Mul(gpq, bra.gamma, ket.gamma)
	ed.Quo(gpq, gpq, gsum)

	var pq [3]*apd.Decimal
	pq2 := new(apd.Decimal)
	for i := range pq {
		pq[i] = new(apd.Decimal)
		ed.Sub(pq[i], bra.center[i], ket.center[i])
		sq := new(apd.Decimal)
		ed.Mul(sq, pq[i], pq[i])
		ed.Add(pq2, pq2, sq)
	}
	if err := ed.Err(); err != nil {
		return nil, precisionError("gaussian products: %v", err)
	}

	L := q.AM()
	facts := factorials(ed, L)
	var axes [3][]*apd.Decimal
	for i := range axes {
		axes[i] = axisCoefficients(ed, facts, axis{
			bra: [2]int{q[0].LMN[i], q[1].LMN[i]},
			ket: [2]int{q[2].LMN[i], q[3].LMN[i]},
			pa:  bra.toFirst[i],
			pb:  bra.toSecond[i],
			qc:  ket.toFirst[i],
			qd:  ket.toSecond[i],
			pq:  pq[i],
		}, bra.gamma, ket.gamma, gpq)
	}
	if err := ed.Err(); err != nil {
		return nil, precisionError("expansion coefficients: %v", err)
	}

	t := new(apd.Decimal)
	ed.Mul(t, pq2, gpq)
	F, err := boys.Orders(L, t, prec)
	if err != nil {
		return nil, err
	}

	sum := new(apd.Decimal)
	term := new(apd.Decimal)
	for i, ax := range axes[0] {
		if ax.IsZero() {
			continue
		}
		for j, ay := range axes[1] {
			if ay.IsZero() {
				continue
			}
			for k, az := range axes[2] {
				ed.Mul(term, ax, ay)
				ed.Mul(term, term, az)
				ed.Mul(term, term, F[i+j+k].F)
				ed.Add(sum, sum, term)
			}
		}
	}

	pfac, err := prefactor(ctx, bra, ket)
	if err != nil {
		return nil, err
	}
	ed.Mul(sum, sum, pfac)
	if err := ed.Err(); err != nil {
		return nil, precisionError("integral sum: %v", err)
	}
	return sum, nil
}

// Target evaluates q to digits correct significant digits. The integral is
// computed at digits + GuardDigits and again with another GuardDigits of
// headroom; the two must agree to digits+1 digits, otherwise the working
// precision is widened and the pair recomputed. Cancellation between the
// expansion terms is what costs the digits.
func Target(q Quartet, digits int) (*apd.Decimal, error) {
	if digits <= 0 {
		return nil, precisionError("target precision must be positive, got %d", digits)
	}
	working := digits + boys.GuardDigits
	prev, err := Evaluate(q, working)
	if err != nil {
		return nil, err
	}
	for round := 0; round < maxTargetRounds; round++ {
		working += boys.GuardDigits * (round + 1)
		if working > boys.MaxPrecision {
			break
		}
		next, err := Evaluate(q, working)
		if err != nil {
			return nil, err
		}
		ok, err := converged(prev, next, digits+1)
		if err != nil {
			return nil, err
		}
		if ok {
			out := new(apd.Decimal)
			if _, err := boys.NewContext(digits).Round(out, next); err != nil {
				return nil, precisionError("rounding to %d digits: %v", digits, err)
			}
			return out, nil
		}
		prev = next
	}
	return nil, precisionError("integral %s did not converge to %d digits below %d working digits",
		q.Label(), digits, boys.MaxPrecision)
}

// converged reports whether |a−b| <= 10^-digits·|b|. Two exact zeros agree.
func converged(a, b *apd.Decimal, digits int) (bool, error) {
	ctx := boys.NewContext(digits + boys.GuardDigits)
	diff := new(apd.Decimal)
	if _, err := ctx.Sub(diff, a, b); err != nil {
		return false, precisionError("convergence check: %v", err)
	}
	if diff.IsZero() {
		return true, nil
	}
	bound := new(apd.Decimal)
	bound.Abs(b)
	bound.Exponent -= int32(digits)
	diff.Abs(diff)
	return diff.Cmp(bound) <= 0, nil
}

// pair is the Gaussian product of two primitives: exponent γ = α1+α2,
// center P = (α1A+α2B)/γ, P−A, P−B and |A−B|².
type pair struct {
	alpha    [2]*apd.Decimal
	gamma    *apd.Decimal
	center   [3]*apd.Decimal
	toFirst  [3]*apd.Decimal
	toSecond [3]*apd.Decimal
	dist2    *apd.Decimal
}

func newPair(ed *apd.ErrDecimal, a, b Gaussian) pair {
	p := pair{
		alpha: [2]*apd.Decimal{a.Alpha, b.Alpha},
		gamma: new(apd.Decimal),
		dist2: new(apd.Decimal),
	}
	ed.Add(p.gamma, a.Alpha, b.Alpha)
	for i := 0; i < 3; i++ {
		wa := new(apd.Decimal)
		ed.Mul(wa, a.Alpha, a.Center[i])
		wb := new(apd.Decimal)
		ed.Mul(wb, b.Alpha, b.Center[i])
		p.center[i] = new(apd.Decimal)
		ed.Add(p.center[i], wa, wb)
		ed.Quo(p.center[i], p.center[i], p.gamma)

		p.toFirst[i] = new(apd.Decimal)
		ed.Sub(p.toFirst[i], p.center[i], a.Center[i])
		p.toSecond[i] = new(apd.Decimal)
		ed.Sub(p.toSecond[i], p.center[i], b.Center[i])

		d := new(apd.Decimal)
		ed.Sub(d, a.Center[i], b.Center[i])
		ed.Mul(d, d, d)
		ed.Add(p.dist2, p.dist2, d)
	}
	return p
}

// overlapExponent is α1α2|AB|²/γ, the decay of the product's prefactor.
func (p pair) overlapExponent(ed *apd.ErrDecimal) *apd.Decimal {
	x := new(apd.Decimal)
	ed.Mul(x, p.alpha[0], p.alpha[1])
	ed.Mul(x, x, p.dist2)
	ed.Quo(x, x, p.gamma)
	return x
}

func prefactor(ctx *apd.Context, bra, ket pair) (*apd.Decimal, error) {
	ed := &apd.ErrDecimal{Ctx: ctx}
	pi, err := boys.Pi(int(ctx.Precision))
	if err != nil {
		return nil, err
	}
	eBra, err := boys.ExpNeg(ctx, bra.overlapExponent(ed))
	if err != nil {
		return nil, err
	}
	eKet, err := boys.ExpNeg(ctx, ket.overlapExponent(ed))
	if err != nil {
		return nil, err
	}

	// 2 π^(5/2) = 2 π² √π
	k := new(apd.Decimal)
	sqrtPi := new(apd.Decimal)
	ed.Sqrt(sqrtPi, pi)
	ed.Mul(k, pi, pi)
	ed.Mul(k, k, sqrtPi)
	ed.Mul(k, k, apd.New(2, 0))
	ed.Mul(k, k, eBra)
	ed.Mul(k, k, eKet)

	den := new(apd.Decimal)
	ed.Add(den, bra.gamma, ket.gamma)
	ed.Sqrt(den, den)
	ed.Mul(den, den, bra.gamma)
	ed.Mul(den, den, ket.gamma)
	ed.Quo(k, k, den)
	if err := ed.Err(); err != nil {
		return nil, precisionError("prefactor: %v", err)
	}
	return k, nil
}

// axis holds the one-dimensional data of a quartet: the bra and ket
// exponents, P−A, P−B, Q−C, Q−D and P−Q.
type axis struct {
	bra, ket       [2]int
	pa, pb, qc, qd *apd.Decimal
	pq             *apd.Decimal
}

// axisCoefficients returns A[k] for one axis: the sum over every
// (lp, lq, u1, u2, t) with lp+lq−2(u1+u2)−t = k of
//
//	(−1)^(lp+t) f_lp f'_lq lp! lq! n! γp^(u1−lp) γq^(u2−lq) γpq^(n−t) (P−Q)^(n−2t)
//	─────────────────────────────────────────────────────────────────────────
//	   u1! u2! (lp−2u1)! (lq−2u2)! 4^(u1+u2+t) (n−2t)! t!
//
// with n = lp+lq−2(u1+u2), f the binomial expansion of (x−A)^l1 (x−B)^l2
// around P and f' the same for the ket around Q.
func axisCoefficients(ed *apd.ErrDecimal, facts []*apd.Decimal, a axis, gp, gq, gpq *apd.Decimal) []*apd.Decimal {
	fp := expansion(ed, a.bra[0], a.bra[1], a.pa, a.pb)
	fq := expansion(ed, a.ket[0], a.ket[1], a.qc, a.qd)

	out := make([]*apd.Decimal, len(fp)+len(fq)-1)
	for i := range out {
		out[i] = new(apd.Decimal)
	}

	g := new(apd.Decimal)
	c := new(apd.Decimal)
	den := new(apd.Decimal)
	for lp, flp := range fp {
		if flp.IsZero() {
			continue
		}
		for lq, flq := range fq {
			if flq.IsZero() {
				continue
			}
			for u1 := 0; u1 <= lp/2; u1++ {
				for u2 := 0; u2 <= lq/2; u2++ {
					n := lp + lq - 2*(u1+u2)

					ed.Mul(g, flp, flq)
					ed.Mul(g, g, facts[lp])
					ed.Mul(g, g, facts[lq])
					ed.Mul(g, g, facts[n])
					ed.Mul(g, g, intPow(ed, gp, u1-lp))
					ed.Mul(g, g, intPow(ed, gq, u2-lq))
					ed.Mul(den, facts[u1], facts[u2])
					ed.Mul(den, den, facts[lp-2*u1])
					ed.Mul(den, den, facts[lq-2*u2])
					ed.Mul(den, den, intPow(ed, apd.New(4, 0), u1+u2))
					ed.Quo(g, g, den)
					if lp%2 == 1 {
						ed.Neg(g, g)
					}

					for t := 0; t <= n/2; t++ {
						ed.Mul(c, g, intPow(ed, gpq, n-t))
						ed.Mul(c, c, intPow(ed, a.pq, n-2*t))
						ed.Mul(den, facts[n-2*t], facts[t])
						ed.Mul(den, den, intPow(ed, apd.New(4, 0), t))
						ed.Quo(c, c, den)
						if t%2 == 1 {
							ed.Neg(c, c)
						}
						ed.Add(out[n-t], out[n-t], c)
					}
				}
			}
		}
	}
	return out
}

// expansion returns f[k], the coefficient of (x−P)^k in
// (x−P+PA)^l1 (x−P+PB)^l2:
//
//	f[k] = Σ_{i+j=k} C(l1,i) C(l2,j) PA^(l1−i) PB^(l2−j)
func expansion(ed *apd.ErrDecimal, l1, l2 int, pa, pb *apd.Decimal) []*apd.Decimal {
	f := make([]*apd.Decimal, l1+l2+1)
	term := new(apd.Decimal)
	for k := range f {
		f[k] = new(apd.Decimal)
		for i := 0; i <= min(k, l1); i++ {
			j := k - i
			if j > l2 {
				continue
			}
			term.Set(apd.New(binomial(l1, i)*binomial(l2, j), 0))
			ed.Mul(term, term, intPow(ed, pa, l1-i))
			ed.Mul(term, term, intPow(ed, pb, l2-j))
			ed.Add(f[k], f[k], term)
		}
	}
	return f
}

// intPow returns x^n for any integer n; x^0 is 1 even for x = 0.
func intPow(ed *apd.ErrDecimal, x *apd.Decimal, n int) *apd.Decimal {
	r := apd.New(1, 0)
	e := n
	if e < 0 {
		e = -e
	}
	for i := 0; i < e; i++ {
		ed.Mul(r, r, x)
	}
	if n < 0 {
		ed.Quo(r, apd.New(1, 0), r)
	}
	return r
}

// factorials returns 0! … n!.
func factorials(ed *apd.ErrDecimal, n int) []*apd.Decimal {
	out := make([]*apd.Decimal, n+1)
	out[0] = apd.New(1, 0)
	for i := 1; i <= n; i++ {
		out[i] = new(apd.Decimal)
		ed.Mul(out[i], out[i-1], apd.New(int64(i), 0))
	}
	return out
}

func binomial(n, k int) int64 {
	if k < 0 || k > n {
		return 0
	}
	c := int64(1)
	for i := 0; i < k; i++ {
		c = c * int64(n-i) / int64(i+1)
	}
	return c
}
