package generate

import (
	"context"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/vectorfile"
)

func TestRange(t *testing.T) {
	qs, err := Range(2, 1)
	require.NoError(t, err)
	require.Len(t, qs, (1+3*9)*3)

	assert.Equal(t, 0, qs[0].M)
	assert.True(t, qs[0].T.IsZero())
	assert.Equal(t, 2, qs[2].M)
	assert.Equal(t, "1e-1", qs[3].T.Text('e'))
	assert.Equal(t, 0, qs[3].M)
	last := qs[len(qs)-1]
	assert.Equal(t, 2, last.M)
	assert.Equal(t, "9e+1", last.T.Text('e'))

	_, err = Range(-1, 1)
	assert.Error(t, err)
	_, err = Range(1, -1)
	assert.Error(t, err)
}

func TestRandom_Deterministic(t *testing.T) {
	opts := RandomOptions{Seed: 42, MaxM: 6, Power: 3, NDigits: 12, N: 50}
	a, err := Random(opts)
	require.NoError(t, err)
	b, err := Random(opts)
	require.NoError(t, err)
	require.Len(t, a, 50)
	for i := range a {
		assert.Equal(t, a[i].M, b[i].M)
		assert.Equal(t, a[i].T.Text('e'), b[i].T.Text('e'))
	}

	opts.Seed = 43
	c, err := Random(opts)
	require.NoError(t, err)
	same := true
	for i := range a {
		if a[i].T.Cmp(c[i].T) != 0 {
			same = false
			break
		}
	}
	assert.False(t, same, "different seeds should give different samples")
}

func TestRandom_Bounds(t *testing.T) {
	qs, err := Random(RandomOptions{Seed: 7, MaxM: 3, Power: 2, NDigits: 8, N: 200})
	require.NoError(t, err)

	lo, _, err := apd.NewFromString("0.0099999999")
	require.NoError(t, err)
	hi, _, err := apd.NewFromString("100.00000001")
	require.NoError(t, err)
	for _, q := range qs {
		assert.GreaterOrEqual(t, q.M, 0)
		assert.LessOrEqual(t, q.M, 3)
		assert.LessOrEqual(t, vectorfile.SignificantDigits(q.T), 8)
		assert.Equal(t, 1, q.T.Cmp(lo), "t=%s", q.T.Text('e'))
		assert.Equal(t, -1, q.T.Cmp(hi), "t=%s", q.T.Text('e'))
	}
}

func TestRandom_InvalidOptions(t *testing.T) {
	for _, opts := range []RandomOptions{
		{MaxM: -1, NDigits: 5},
		{Power: -1, NDigits: 5},
		{NDigits: 0},
		{NDigits: 5, N: -1},
	} {
		_, err := Random(opts)
		assert.Error(t, err, "%+v", opts)
	}
}

func TestCreate_PreservesOrder(t *testing.T) {
	qs, err := Range(3, 1)
	require.NoError(t, err)

	vs, err := Create(context.Background(), qs, 20, 4)
	require.NoError(t, err)
	require.Len(t, vs, len(qs))
	for i, v := range vs {
		assert.Equal(t, qs[i].M, v.M)
		assert.Equal(t, 0, qs[i].T.Cmp(v.T))
		want, err := boys.Target(qs[i].M, qs[i].T, 20)
		require.NoError(t, err)
		assert.Equal(t, 0, want.F.Cmp(v.Value), "m=%d t=%s", v.M, v.T.Text('e'))
	}
}

func TestCreate_Errors(t *testing.T) {
	bad := []vectorfile.Query{{M: 0, T: apd.New(1, 0)}, {M: -1, T: apd.New(1, 0)}}
	_, err := Create(context.Background(), bad, 20, 2)
	require.Error(t, err)
	assert.True(t, boys.IsInvalidArgument(err))

	_, err = Create(context.Background(), bad[:1], 0, 2)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Create(ctx, bad[:1], 20, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvenance(t *testing.T) {
	lines := Provenance([]string{"boysref", "generate", "range"}, [][2]string{{"Max m", "4"}, {"Power", "2"}})
	assert.Equal(t, []string{
		"THIS FILE IS GENERATED. DO NOT EDIT",
		"",
		"Generated with:",
		"  boysref generate range",
		"",
		"------------------------------------",
		"  Max m: 4",
		"  Power: 2",
		"------------------------------------",
	}, lines)
}
