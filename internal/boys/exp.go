package boys

import (
	"math"

	"github.com/cockroachdb/apd/v3"
)

// expChunk is the largest argument handed to apd's Exp in one call. Larger
// arguments are split so that Exp never has to raise its own precision past
// a few hundred digits.
const expChunk = 10000

// ExpNeg computes e^(-x) for x >= 0 at the precision of ctx.
//
// The result underflows to an exact zero when e^(-x) would fall below
// apd's exponent range; callers only ever add it to much larger terms.
func ExpNeg(ctx *apd.Context, x *apd.Decimal) (*apd.Decimal, error) {
	if x.Sign() < 0 {
		return nil, invalidArgument("ExpNeg requires a non-negative argument, got %s", x.Text('e'))
	}
	if x.IsZero() {
		return apd.New(1, 0), nil
	}

	xf, err := x.Float64()
	if err != nil || math.IsInf(xf, 0) {
		return new(apd.Decimal), nil
	}
	// log10(e^-x) = -x*log10(e); leave room for the precision digits.
	if xf*math.Log10E > float64(-apd.MinExponent)-float64(ctx.Precision)-2 {
		return new(apd.Decimal), nil
	}

	ed := apd.MakeErrDecimal(ctx)
	q := int64(xf / expChunk)
	r := new(apd.Decimal)
	ed.Sub(r, x, apd.New(q*expChunk, 0))
	if r.Sign() < 0 && q > 0 {
		q--
		ed.Add(r, r, apd.New(expChunk, 0))
	}

	res := new(apd.Decimal)
	ed.Exp(res, r.Neg(r))
	if q > 0 {
		chunk := new(apd.Decimal)
		ed.Exp(chunk, apd.New(-expChunk, 0))
		ed.Pow(chunk, chunk, apd.New(q, 0))
		ed.Mul(res, res, chunk)
	}
	if err := ed.Err(); err != nil {
		return nil, precisionError("e^-%s: %v", x.Text('e'), err)
	}
	return res, nil
}
