package eri

import (
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/vectorfile"
	"github.com/roach88/boysref/internal/verify"
)

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, err := vectorfile.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func gauss(t *testing.T, l, m, n int, x, y, z, alpha string) Gaussian {
	t.Helper()
	return Gaussian{
		LMN:    [3]int{l, m, n},
		Center: [3]*apd.Decimal{dec(t, x), dec(t, y), dec(t, z)},
		Alpha:  dec(t, alpha),
	}
}

// assertAgree fails unless a and b agree to a relative difference of
// 10^-digits.
func assertAgree(t *testing.T, want, got *apd.Decimal, digits int) {
	t.Helper()
	ok, rd, err := verify.Agree(boys.NewContext(digits+10), want, got, verify.Tolerance(digits))
	require.NoError(t, err)
	assert.True(t, ok, "want %s got %s (reldiff %s)", want.Text('e'), got.Text('e'), rd.Text('e'))
}

// mixed is a quartet with p and d functions on four distinct centers.
func mixed(t *testing.T) Quartet {
	return Quartet{
		gauss(t, 1, 0, 0, "0.1", "-0.2", "0.3", "1.3"),
		gauss(t, 0, 1, 1, "-0.4", "0.5", "0", "0.7"),
		gauss(t, 0, 0, 1, "0.6", "0.1", "-0.5", "0.9"),
		gauss(t, 2, 0, 0, "0", "-0.3", "0.2", "1.1"),
	}
}

func TestCartesian(t *testing.T) {
	assert.Equal(t, [][3]int{{0, 0, 0}}, Cartesian(0))
	assert.Equal(t, [][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Cartesian(1))
	assert.Equal(t, [][3]int{
		{2, 0, 0}, {1, 1, 0}, {1, 0, 1}, {0, 2, 0}, {0, 1, 1}, {0, 0, 2},
	}, Cartesian(2))
	assert.Nil(t, Cartesian(-1))

	for am := 0; am <= 6; am++ {
		comps := Cartesian(am)
		require.Len(t, comps, NCart(am))
		seen := map[[3]int]bool{}
		for _, c := range comps {
			assert.Equal(t, am, c[0]+c[1]+c[2])
			assert.False(t, seen[c], "duplicate %v", c)
			seen[c] = true
		}
	}
}

func TestEvaluate_SameCenterSFunctions(t *testing.T) {
	// All four on one center: (ss|ss) = 2π^(5/2) / (γp γq √(γp+γq)).
	tests := []struct {
		name  string
		alpha [4]string
		want  string
	}{
		{"unit exponents", [4]string{"1", "1", "1", "1"}, "4.37335458190621571156570541996788844468877794543604509440435"},
		{"mixed exponents", [4]string{"0.5", "1.5", "2", "0.25"}, "3.77135746498892336072033731646072510687193328279843424209619"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quartet
			for i, a := range tt.alpha {
				q[i] = gauss(t, 0, 0, 0, "0.75", "-1.25", "2", a)
			}
			got, err := Evaluate(q, 60)
			require.NoError(t, err)
			assertAgree(t, dec(t, tt.want), got, 50)
		})
	}
}

func TestEvaluate_SFunctionsMatchErf(t *testing.T) {
	q := Quartet{
		gauss(t, 0, 0, 0, "0", "0", "0", "1.2"),
		gauss(t, 0, 0, 0, "0.5", "0", "0", "0.4"),
		gauss(t, 0, 0, 0, "0", "1.1", "0", "0.8"),
		gauss(t, 0, 0, 0, "0", "0.3", "-0.7", "2.0"),
	}
	got, err := Evaluate(q, 30)
	require.NoError(t, err)
	gotF, err := got.Float64()
	require.NoError(t, err)

	// F_0(T) = √π erf(√T) / (2√T)
	gp, gq := 1.2+0.4, 0.8+2.0
	P := [3]float64{0.4 * 0.5 / gp, 0, 0}
	Q := [3]float64{0, (0.8*1.1 + 2.0*0.3) / gq, 2.0 * -0.7 / gq}
	pq2 := (P[0]-Q[0])*(P[0]-Q[0]) + (P[1]-Q[1])*(P[1]-Q[1]) + (P[2]-Q[2])*(P[2]-Q[2])
	T := pq2 * gp * gq / (gp + gq)
	f0 := math.Sqrt(math.Pi) * math.Erf(math.Sqrt(T)) / (2 * math.Sqrt(T))
	ab2, cd2 := 0.25, 0.8*0.8+0.7*0.7
	want := 2 * math.Pow(math.Pi, 2.5) / (gp * gq * math.Sqrt(gp+gq)) *
		math.Exp(-1.2*0.4*ab2/gp) * math.Exp(-0.8*2.0*cd2/gq) * f0

	assert.InEpsilon(t, want, gotF, 1e-13)
}

// shifted returns q with coordinate axis of Gaussian i moved by h.
func shifted(t *testing.T, q Quartet, i, axis int, h *apd.Decimal) Quartet {
	t.Helper()
	c := new(apd.Decimal)
	_, err := boys.NewContext(80).Add(c, q[i].Center[axis], h)
	require.NoError(t, err)
	out := q
	out[i].Center[axis] = c
	return out
}

// withLMN returns q with exponent axis of Gaussian i changed by delta.
func withLMN(q Quartet, i, axis, delta int) Quartet {
	out := q
	out[i].LMN[axis] += delta
	return out
}

// Moving a center differentiates the Gaussian:
//
//	∂φ_l/∂A = 2α φ_{l+1} − l φ_{l−1}
//
// so a central difference of the integral in one coordinate checks the
// integrals one angular momentum up.
func TestEvaluate_CenterDerivative(t *testing.T) {
	const prec = 70
	h := apd.New(1, -20)
	negH := apd.New(-1, -20)

	base := mixed(t)
	tests := []struct {
		name    string
		i, axis int
	}{
		{"bra first x", 0, 0},
		{"bra second y", 1, 1},
		{"ket first z", 2, 2},
		{"ket second x", 3, 0},
		{"ket second y", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plus, err := Evaluate(shifted(t, base, tt.i, tt.axis, h), prec)
			require.NoError(t, err)
			minus, err := Evaluate(shifted(t, base, tt.i, tt.axis, negH), prec)
			require.NoError(t, err)

			ctx := boys.NewContext(prec)
			deriv := new(apd.Decimal)
			_, err = ctx.Sub(deriv, plus, minus)
			require.NoError(t, err)
			_, err = ctx.Quo(deriv, deriv, apd.New(2, -20))
			require.NoError(t, err)

			up, err := Evaluate(withLMN(base, tt.i, tt.axis, 1), prec)
			require.NoError(t, err)
			want := new(apd.Decimal)
			_, err = ctx.Mul(want, up, base[tt.i].Alpha)
			require.NoError(t, err)
			_, err = ctx.Mul(want, want, apd.New(2, 0))
			require.NoError(t, err)
			if l := base[tt.i].LMN[tt.axis]; l > 0 {
				down, err := Evaluate(withLMN(base, tt.i, tt.axis, -1), prec)
				require.NoError(t, err)
				_, err = ctx.Mul(down, down, apd.New(int64(l), 0))
				require.NoError(t, err)
				_, err = ctx.Sub(want, want, down)
				require.NoError(t, err)
			}
			assertAgree(t, want, deriv, 25)
		})
	}
}

func TestEvaluate_PermutationSymmetry(t *testing.T) {
	q := mixed(t)
	ref, err := Evaluate(q, 50)
	require.NoError(t, err)
	require.False(t, ref.IsZero())

	perms := map[string]Quartet{
		"(ba|cd)": {q[1], q[0], q[2], q[3]},
		"(ab|dc)": {q[0], q[1], q[3], q[2]},
		"(cd|ab)": {q[2], q[3], q[0], q[1]},
		"(dc|ba)": {q[3], q[2], q[1], q[0]},
	}
	for name, p := range perms {
		t.Run(name, func(t *testing.T) {
			got, err := Evaluate(p, 50)
			require.NoError(t, err)
			assertAgree(t, ref, got, 40)
		})
	}
}

func TestEvaluate_PrecisionConvergence(t *testing.T) {
	q := mixed(t)
	low, err := Evaluate(q, 30)
	require.NoError(t, err)
	high, err := Evaluate(q, 60)
	require.NoError(t, err)
	assertAgree(t, high, low, 20)

	again, err := Evaluate(q, 30)
	require.NoError(t, err)
	assert.Equal(t, low.Text('e'), again.Text('e'))
}

func TestEvaluate_Errors(t *testing.T) {
	good := mixed(t)

	badAlpha := good
	badAlpha[2].Alpha = dec(t, "0")
	_, err := Evaluate(badAlpha, 30)
	assert.True(t, boys.IsInvalidArgument(err), "got %v", err)

	badLMN := good
	badLMN[1].LMN = [3]int{0, -1, 0}
	_, err = Evaluate(badLMN, 30)
	assert.True(t, boys.IsInvalidArgument(err), "got %v", err)

	badCenter := good
	badCenter[0].Center = [3]*apd.Decimal{dec(t, "0"), nil, dec(t, "0")}
	_, err = Evaluate(badCenter, 30)
	assert.True(t, boys.IsInvalidArgument(err), "got %v", err)

	_, err = Evaluate(good, 0)
	assert.True(t, boys.IsPrecisionError(err), "got %v", err)
	_, err = Evaluate(good, boys.MaxPrecision+1)
	assert.True(t, boys.IsPrecisionError(err), "got %v", err)
}

func TestTarget(t *testing.T) {
	q := mixed(t)
	v, err := Target(q, 20)
	require.NoError(t, err)
	assert.LessOrEqual(t, vectorfile.SignificantDigits(v), 20)

	ref, err := Evaluate(q, 60)
	require.NoError(t, err)
	assertAgree(t, ref, v, 19)

	_, err = Target(q, 0)
	assert.True(t, boys.IsPrecisionError(err), "got %v", err)
}

func TestEvaluateDouble_AgreesWithReference(t *testing.T) {
	quartets := map[string]Quartet{
		"mixed": mixed(t),
		"s on one center": {
			gauss(t, 0, 0, 0, "0", "0", "0", "1"),
			gauss(t, 0, 0, 0, "0", "0", "0", "1"),
			gauss(t, 0, 0, 0, "0", "0", "0", "1"),
			gauss(t, 0, 0, 0, "0", "0", "0", "1"),
		},
		"far apart": {
			gauss(t, 1, 1, 0, "0", "0", "0", "0.6"),
			gauss(t, 0, 0, 0, "0.2", "0", "0", "0.9"),
			gauss(t, 0, 1, 0, "4", "3", "0", "0.5"),
			gauss(t, 0, 0, 1, "4", "3.5", "0.5", "1.4"),
		},
	}
	for name, q := range quartets {
		t.Run(name, func(t *testing.T) {
			ref, err := Evaluate(q, 40)
			require.NoError(t, err)
			want, err := ref.Float64()
			require.NoError(t, err)
			got, err := EvaluateDouble(q)
			require.NoError(t, err)
			assert.InEpsilon(t, want, got, 1e-10)
		})
	}
}

func TestQuartet_KeyIgnoresTrailingZeros(t *testing.T) {
	a := Quartet{
		gauss(t, 1, 0, 0, "0.50", "0", "1.0", "2.000"),
		gauss(t, 0, 0, 0, "0", "0", "0", "1"),
		gauss(t, 0, 0, 0, "0", "0", "0", "1"),
		gauss(t, 0, 0, 0, "0", "0", "0", "1"),
	}
	b := a
	b[0] = gauss(t, 1, 0, 0, "5e-1", "0.000", "1", "2")
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "(100 000|000 000)", a.Label())
	assert.Equal(t, 1, a.AM())
}
