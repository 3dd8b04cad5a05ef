package boys

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

const (
	// GuardDigits is the number of extra decimal digits carried beyond a
	// target precision so that the target digits are trustworthy.
	GuardDigits = 8

	// MaxPrecision bounds the working precision. apd's exponential refuses
	// to iterate past this range for the arguments the evaluator needs.
	MaxPrecision = 2000
)

// NewContext returns a fresh apd context rounding half-even to prec
// significant decimal digits. Each evaluation creates its own context.
func NewContext(prec int) *apd.Context {
	c := apd.BaseContext.WithPrecision(uint32(prec))
	c.Rounding = apd.RoundHalfEven
	return c
}

// ParseArgument parses a decimal string exactly. The string is taken to be
// exact (infinitely many trailing zeros), so no rounding happens here.
func ParseArgument(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, invalidArgument("cannot parse %q as a decimal: %v", s, err)
	}
	if d.Form != apd.Finite {
		return nil, invalidArgument("argument %q is not a finite number", s)
	}
	return d, nil
}

// CheckQuery validates an (m, t, prec) triple before any arithmetic. It
// returns an InvalidArgument or PrecisionError *Error.
func CheckQuery(m int, t *apd.Decimal, prec int) error {
	if m < 0 {
		return invalidArgument("order m must be non-negative, got %d", m)
	}
	if t == nil || t.Form != apd.Finite {
		return invalidArgument("argument t must be a finite number")
	}
	if t.Sign() < 0 {
		return invalidArgument("argument t must be non-negative, got %s", t.Text('e'))
	}
	if prec <= 0 {
		return precisionError("working precision must be positive, got %d", prec)
	}
	if prec > MaxPrecision {
		return precisionError("working precision %d exceeds the maximum of %d digits", prec, MaxPrecision)
	}
	// 2m+1 has to be exactly representable or F_m(0) collapses onto its
	// neighbours.
	if n := len(strconv.Itoa(2*m + 1)); n > prec {
		return precisionError("working precision %d cannot represent 2m+1 = %d (%d digits); scale precision with m", prec, 2*m+1, n)
	}
	return nil
}

// decimalDigits returns the number of decimal digits of a non-negative int.
func decimalDigits(n int) int {
	return len(strconv.Itoa(n))
}
