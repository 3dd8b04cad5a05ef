package vectorfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

// FormatSci renders d rounded half-even to exactly digits significant
// digits in scientific notation, e.g. FormatSci(1/3, 5) = "3.3333e-1".
//
// The mantissa is always padded to digits digits so the text records the
// precision it was written at. Scientific notation is forced for every
// magnitude; ParseDecimal reads the output back exactly.
func FormatSci(d *apd.Decimal, digits int) (string, error) {
	if d == nil || d.Form != apd.Finite {
		return "", fmt.Errorf("cannot format non-finite value")
	}
	if digits <= 0 {
		return "", fmt.Errorf("digits must be positive, got %d", digits)
	}

	r := new(apd.Decimal)
	if _, err := boys.NewContext(digits).Round(r, d); err != nil {
		return "", fmt.Errorf("round to %d digits: %w", digits, err)
	}

	coeff := r.Coeff.String()
	exp := int64(0)
	if r.Coeff.Sign() != 0 {
		exp = int64(r.Exponent) + int64(len(coeff)) - 1
	}
	switch {
	case len(coeff) < digits:
		coeff += strings.Repeat("0", digits-len(coeff))
	case len(coeff) > digits:
		// rounding carry may leave a trailing zero beyond digits
		coeff = coeff[:digits]
	}

	var b strings.Builder
	if r.Negative && r.Coeff.Sign() != 0 {
		b.WriteByte('-')
	}
	b.WriteByte(coeff[0])
	if digits > 1 {
		b.WriteByte('.')
		b.WriteString(coeff[1:])
	}
	b.WriteByte('e')
	if exp >= 0 {
		b.WriteByte('+')
	}
	b.WriteString(strconv.FormatInt(exp, 10))
	return b.String(), nil
}

// ParseDecimal parses a finite decimal string exactly.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%q is not a finite number", s)
	}
	return d, nil
}

// SignificantDigits returns the number of significant digits of d once
// trailing zeros are removed. Zero has one significant digit.
func SignificantDigits(d *apd.Decimal) int {
	if d.IsZero() {
		return 1
	}
	r, _ := new(apd.Decimal).Reduce(d)
	return int(r.NumDigits())
}

// FormatArgument renders an argument t for reports: trailing zeros are
// dropped and moderate magnitudes print without an exponent, so 0 is "0",
// 1.50e+0 is "1.5" and 2.5e+40 stays "2.5e+40".
func FormatArgument(t *apd.Decimal) string {
	if t == nil {
		return ""
	}
	r, _ := new(apd.Decimal).Reduce(t)
	if r.IsZero() {
		return "0"
	}
	if r.Form != apd.Finite {
		return r.Text('e')
	}
	adjusted := int64(r.Exponent) + r.NumDigits() - 1
	if adjusted < -6 || adjusted > 20 {
		return r.Text('e')
	}
	return r.Text('f')
}
