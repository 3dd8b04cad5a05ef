package source

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

var sqrtPi = math.Sqrt(math.Pi)

// Double is the native float64 implementation, the fast kind of routine the
// reference data exists to certify. The digits argument is ignored.
type Double struct{}

func (Double) Name() string { return NameDouble }

func (Double) Orders(m int, t *apd.Decimal, _ int) ([]*apd.Decimal, error) {
	if m < 0 {
		return nil, fmt.Errorf("order m must be non-negative, got %d", m)
	}
	tf, err := t.Float64()
	if err != nil {
		return nil, fmt.Errorf("t=%s does not fit a double: %w", t.Text('e'), err)
	}
	if tf < 0 || math.IsInf(tf, 0) || math.IsNaN(tf) {
		return nil, fmt.Errorf("t=%s is not a finite non-negative double", t.Text('e'))
	}
	return fromFloats(BoysDouble(m, tf))
}

// BoysDouble returns F_0(t) … F_m(t) in double precision.
func BoysDouble(m int, t float64) []float64 {
	F := make([]float64, m+1)
	t2 := 2 * t
	et := math.Exp(-t)

	short := t < float64(m)+0.5
	if !short {
		F[m] = sqrtPi / (2.0 * math.Sqrt(t))
		for i := 1; i <= m; i++ {
			F[m] *= (2.0*float64(i) - 1.0) / t2
		}

		// magnitude of the neglected tail
		term, sum := 1.0, 0.0
		for i := 1; i < maxSeriesTerms; i++ {
			last := math.Abs(term)
			term *= float64(2*m-2*i+1) / t2
			if math.Abs(term) > last {
				break
			}
			prev := sum
			sum += term
			if sum == prev {
				break
			}
		}
		sum *= et / t2
		if F[m]-sum != F[m] {
			short = true
		}
	}

	if short {
		sum, term := 1.0, 1.0
		for i := 1; i < maxSeriesTerms; i++ {
			term *= t2 / float64(2*m+2*i+1)
			prev := sum
			sum += term
			if sum == prev {
				break
			}
		}
		F[m] = sum * et / float64(2*m+1)
	}

	for i := m - 1; i >= 0; i-- {
		F[i] = (t2*F[i+1] + et) / float64(2*i+1)
	}
	return F
}

func fromFloats(vals []float64) ([]*apd.Decimal, error) {
	out := make([]*apd.Decimal, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("F_%d is not finite in double precision", i)
		}
		d, err := new(apd.Decimal).SetFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("convert F_%d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}
