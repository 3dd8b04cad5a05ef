package boys

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPi(t *testing.T) {
	pi, err := Pi(50)
	require.NoError(t, err)
	assert.Equal(t, "3.1415926535897932384626433832795028841971693993751", pi.Text('f'))

	_, err = Pi(0)
	assert.True(t, IsPrecisionError(err))
}

func TestGammaHalf(t *testing.T) {
	ctx := NewContext(40)
	pi, err := Pi(45)
	require.NoError(t, err)
	sqrtPi := new(apd.Decimal)
	_, err = NewContext(45).Sqrt(sqrtPi, pi)
	require.NoError(t, err)

	g0, err := GammaHalf(ctx, 0)
	require.NoError(t, err)
	assertClose(t, sqrtPi, g0, 38)

	// Γ(3.5) = 15/8 √π
	g3, err := GammaHalf(ctx, 3)
	require.NoError(t, err)
	want := new(apd.Decimal)
	_, err = NewContext(45).Mul(want, sqrtPi, apd.New(1875, -3))
	require.NoError(t, err)
	assertClose(t, want, g3, 38)

	_, err = GammaHalf(ctx, -1)
	assert.True(t, IsInvalidArgument(err))
}

func TestLowerGamma_ScalesToBoys(t *testing.T) {
	ctx := NewContext(40)
	for _, tc := range []struct {
		m int
		x string
	}{{0, "1"}, {2, "0.3"}, {5, "6.5"}, {5, "20"}} {
		x := mustDecimal(t, tc.x)
		g, err := LowerGamma(ctx, tc.m, x)
		require.NoError(t, err)

		p, err := halfIntegerPower(NewContext(50), x, tc.m)
		require.NoError(t, err)
		f := new(apd.Decimal)
		_, err = NewContext(50).Quo(f, g, p)
		require.NoError(t, err)
		_, err = NewContext(50).Quo(f, f, apd.New(2, 0))
		require.NoError(t, err)

		v, err := Evaluate(tc.m, x, 40)
		require.NoError(t, err)
		assertClose(t, v.F, f, 34, "m=%d x=%s", tc.m, tc.x)
	}
}

func TestLowerGamma_ApproachesCompleteGamma(t *testing.T) {
	ctx := NewContext(30)
	g, err := LowerGamma(ctx, 4, mustDecimal(t, "500"))
	require.NoError(t, err)
	full, err := GammaHalf(ctx, 4)
	require.NoError(t, err)
	assertClose(t, full, g, 26)

	zero, err := LowerGamma(ctx, 4, new(apd.Decimal))
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestScaledLowerGamma_BranchesAgree(t *testing.T) {
	// Both regimes are valid on x >= m+3/2, so they must agree there.
	ctx := NewContext(40)
	for _, tc := range []struct {
		m int
		x string
	}{{0, "1.5"}, {0, "4"}, {3, "4.5"}, {3, "10"}, {10, "11.5"}, {10, "25"}} {
		t.Run(fmt.Sprintf("m=%d/x=%s", tc.m, tc.x), func(t *testing.T) {
			x := mustDecimal(t, tc.x)
			series, err := scaledLowerGammaSeries(ctx, tc.m, x)
			require.NoError(t, err)
			fraction, err := scaledLowerGammaFraction(ctx, tc.m, x)
			require.NoError(t, err)
			assertClose(t, series, fraction, 32)
		})
	}
}

func TestExpNeg(t *testing.T) {
	ctx := NewContext(40)

	one, err := ExpNeg(ctx, new(apd.Decimal))
	require.NoError(t, err)
	assert.Equal(t, 0, one.Cmp(apd.New(1, 0)))

	e1, err := ExpNeg(ctx, apd.New(1, 0))
	require.NoError(t, err)
	assertClose(t, mustDecimal(t, "0.3678794411714423215955237701614608674458"), e1, 38)

	// e^-(a+b) = e^-a · e^-b across the chunk boundary
	a, err := ExpNeg(ctx, apd.New(17500, 0))
	require.NoError(t, err)
	b, err := ExpNeg(ctx, apd.New(12500, 0))
	require.NoError(t, err)
	ab, err := ExpNeg(ctx, apd.New(30000, 0))
	require.NoError(t, err)
	prod := new(apd.Decimal)
	_, err = NewContext(60).Mul(prod, a, b)
	require.NoError(t, err)
	assertClose(t, ab, prod, 34)

	tiny, err := ExpNeg(ctx, apd.New(1, 7))
	require.NoError(t, err)
	assert.True(t, tiny.IsZero())

	_, err = ExpNeg(ctx, apd.New(-1, 0))
	assert.True(t, IsInvalidArgument(err))
}
