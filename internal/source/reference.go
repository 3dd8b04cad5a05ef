package source

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
)

// Reference re-evaluates the closed form through boys.Orders. Verifying a
// reference file against it is a regression check of the evaluator.
type Reference struct{}

func (Reference) Name() string { return NameReference }

func (Reference) Orders(m int, t *apd.Decimal, digits int) ([]*apd.Decimal, error) {
	vals, err := boys.Orders(m, t, digits)
	if err != nil {
		return nil, err
	}
	out := make([]*apd.Decimal, len(vals))
	for i, v := range vals {
		out[i] = v.F
	}
	return out, nil
}
