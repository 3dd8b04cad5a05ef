package verify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/vectorfile"
)

// constSource answers every order with the same value.
type constSource struct {
	name  string
	value *apd.Decimal
}

func (c constSource) Name() string { return c.name }

func (c constSource) Orders(m int, _ *apd.Decimal, _ int) ([]*apd.Decimal, error) {
	out := make([]*apd.Decimal, m+1)
	for i := range out {
		out[i] = c.value
	}
	return out, nil
}

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, err := vectorfile.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// referenceFile builds a file of correctly rounded reference values.
func referenceFile(t *testing.T, digits int) *vectorfile.File {
	t.Helper()
	f := &vectorfile.File{Precision: digits}
	for _, q := range []struct {
		m int
		t string
	}{{0, "0"}, {4, "0"}, {0, "2.5e-4"}, {3, "0.75"}, {6, "5.5"}, {2, "18"}, {9, "320"}} {
		v, err := boys.Target(q.m, dec(t, q.t), digits)
		require.NoError(t, err)
		f.Vectors = append(f.Vectors, vectorfile.Vector{M: q.m, T: v.T, Value: v.F})
	}
	return f
}

func sourcesByName(t *testing.T, names ...string) []source.Source {
	t.Helper()
	out := make([]source.Source, len(names))
	for i, n := range names {
		src, err := source.ByName(n, source.Options{})
		require.NoError(t, err)
		out[i] = src
	}
	return out
}

func TestVerify_SelfCheckPasses(t *testing.T) {
	f := referenceFile(t, 30)
	srcs := sourcesByName(t, "reference", "series", "interval", "bigfloat")

	r, err := Verify(f.Vectors, f.Precision, srcs, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.True(t, r.OK(), "failures: %+v", r.Sources)
	assert.Equal(t, 29, r.TargetDigits)
	assert.Equal(t, 38, r.WorkingDigits)
	assert.Equal(t, len(f.Vectors), r.AllAgreed)
	assert.Empty(t, r.Warnings)
	for _, s := range r.Sources {
		assert.Equal(t, len(f.Vectors), s.Passed)
		assert.Equal(t, "100", s.PercentPassed())
	}
}

func TestVerify_ExtraOrders(t *testing.T) {
	f := referenceFile(t, 25)
	r, err := Verify(f.Vectors, f.Precision, sourcesByName(t, "reference", "series"), Options{ExtraM: 4, Logger: quietLogger()})
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Equal(t, 4, r.ExtraM)
}

func TestVerify_DoubleNeedsLowerTarget(t *testing.T) {
	f := referenceFile(t, 30)
	srcs := sourcesByName(t, "double", "exact")

	strict, err := Verify(f.Vectors, f.Precision, srcs, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.False(t, strict.OK())
	assert.Positive(t, strict.TotalFailed())

	loose, err := Verify(f.Vectors, f.Precision, srcs, Options{TargetDigits: 11, Logger: quietLogger()})
	require.NoError(t, err)
	assert.True(t, loose.OK(), "failures: %+v", loose.Sources)
}

func TestVerify_InsufficientPrecisionWarns(t *testing.T) {
	f := referenceFile(t, 20)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	r, err := Verify(f.Vectors, f.Precision, sourcesByName(t, "reference"), Options{TargetDigits: 25, Logger: logger})
	require.NoError(t, err)

	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "cannot be certified")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "target_digits=25")

	// The requested tolerance is applied: F_0(0) = 1 is exact and agrees,
	// 20-digit roundings of other values do not agree to 25 digits.
	assert.Equal(t, 25, r.TargetDigits)
	assert.Equal(t, 33, r.WorkingDigits)
	sr := r.Sources[0]
	assert.Equal(t, len(f.Vectors), sr.Passed+sr.Failed)
	assert.GreaterOrEqual(t, sr.Passed, 1)
	assert.Positive(t, sr.Failed)
	for _, fail := range sr.Failures {
		assert.False(t, fail.M == 0 && fail.T == "0", "F_0(0) must agree")
	}
}

func TestVerify_Idempotent(t *testing.T) {
	f := referenceFile(t, 20)
	srcs := sourcesByName(t, "double", "reference")
	opts := Options{TargetDigits: 16, Logger: quietLogger()}

	first, err := Verify(f.Vectors, f.Precision, srcs, opts)
	require.NoError(t, err)
	second, err := Verify(f.Vectors, f.Precision, srcs, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVerify_Errors(t *testing.T) {
	f := referenceFile(t, 10)
	srcs := sourcesByName(t, "reference")

	_, err := Verify(f.Vectors, f.Precision, nil, Options{})
	assert.ErrorContains(t, err, "at least one")

	_, err = Verify(f.Vectors, 0, srcs, Options{})
	assert.ErrorContains(t, err, "declared precision")

	_, err = Verify(f.Vectors, f.Precision, srcs, Options{TargetDigits: -2})
	assert.ErrorContains(t, err, "target digits")

	_, err = Verify(f.Vectors, f.Precision, srcs, Options{ExtraM: -1})
	assert.ErrorContains(t, err, "extra orders")
}

func TestResolveTarget(t *testing.T) {
	target, warning, err := ResolveTarget(20, 0)
	require.NoError(t, err)
	assert.Equal(t, 19, target)
	assert.Empty(t, warning)

	target, warning, err = ResolveTarget(20, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, target)
	assert.NotEmpty(t, warning)

	target, _, err = ResolveTarget(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, target)
}

func TestReport_GoldenText(t *testing.T) {
	vectors := []vectorfile.Vector{
		{M: 0, T: dec(t, "0"), Value: dec(t, "1.0000e+0")},
		{M: 1, T: dec(t, "0"), Value: dec(t, "3.3333e-1")},
		{M: 2, T: dec(t, "1.5e+0"), Value: dec(t, "1.2345e-1")},
	}
	candidates, err := source.NewFile(&vectorfile.File{
		Precision: 5,
		Vectors: []vectorfile.Vector{
			{M: 0, T: dec(t, "0"), Value: dec(t, "1.0000e+0")},
			{M: 1, T: dec(t, "0"), Value: dec(t, "3.3433e-1")},
		},
	})
	require.NoError(t, err)
	srcs := []source.Source{candidates, constSource{name: "ones", value: apd.New(1, 0)}}

	r, err := Verify(vectors, 5, srcs, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Equal(t, 4, r.TotalFailed())
	assert.Equal(t, 1, r.AllAgreed)
	assert.Equal(t, "0", r.Sources[1].Failures[0].T)
	assert.Equal(t, "1.5", r.Sources[1].Failures[1].T)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report_two_sources", buf.Bytes())
}

func TestReport_WarningsPrintedFirst(t *testing.T) {
	r := &Report{
		DeclaredDigits: 20,
		TargetDigits:   25,
		WorkingDigits:  33,
		Total:          0,
		Warnings:       []string{"not certifiable"},
		Sources:        []SourceReport{{Source: "reference", Failures: []Failure{}}},
	}
	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Equal(t, "warning: not certifiable\n"+
		"source reference: target 25 digits (declared 20, working 33, extra m 0)\n"+
		"0/0 failed (100% passed)\n", buf.String())
}

func TestReport_FailedKeys(t *testing.T) {
	r := &Report{Sources: []SourceReport{
		{Source: "a", Failures: []Failure{{M: 2, T: "1.50e+0"}, {M: 0, T: "0e+0"}}},
		{Source: "b", Failures: []Failure{}},
	}}
	keys := r.FailedKeys()
	assert.Equal(t, []string{
		vectorfile.QueryKey(2, dec(t, "1.5")),
		vectorfile.QueryKey(0, dec(t, "0")),
	}, keys["a"])
	assert.Empty(t, keys["b"])
	assert.Contains(t, keys, "b")
}
