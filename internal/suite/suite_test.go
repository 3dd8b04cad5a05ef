package suite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/history"
	"github.com/roach88/boysref/internal/vectorfile"
	"github.com/roach88/boysref/internal/verify"
)

// writeReference writes a reference file of F_m(t) at digits digits. When
// skew is set every value is multiplied by it.
func writeReference(t *testing.T, path string, digits int, skew string) {
	t.Helper()
	queries := []struct {
		m int
		t string
	}{{0, "0"}, {1, "0.5"}, {3, "2.5"}, {2, "40"}}

	f := &vectorfile.File{Precision: digits, Header: []string{"suite fixture"}}
	for _, q := range queries {
		arg, err := boys.ParseArgument(q.t)
		require.NoError(t, err)
		v, err := boys.Target(q.m, arg, digits)
		require.NoError(t, err)
		value := v.F
		if skew != "" {
			factor, _, err := apd.NewFromString(skew)
			require.NoError(t, err)
			value = new(apd.Decimal)
			_, err = boys.NewContext(digits).Mul(value, v.F, factor)
			require.NoError(t, err)
		}
		f.Vectors = append(f.Vectors, vectorfile.Vector{M: q.m, T: arg, Value: value})
	}
	require.NoError(t, vectorfile.Write(path, f))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")
	path := filepath.Join(dir, "nightly.yaml")
	writeFile(t, path, `name: nightly
description: cross-check sources
checks:
  - file: ref.txt
    sources: [reference, series]
    target_digits: 12
    extra_m: 2
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", s.Name)
	assert.Equal(t, path, s.Path)
	require.Len(t, s.Checks, 1)
	c := s.Checks[0]
	assert.Equal(t, filepath.Join(dir, "ref.txt"), c.File)
	assert.Equal(t, []string{"reference", "series"}, c.Sources)
	assert.Equal(t, 12, c.TargetDigits)
	assert.Equal(t, 2, c.ExtraM)
	assert.Empty(t, c.Candidates)
}

func TestLoad_CUE(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")
	writeReference(t, filepath.Join(dir, "other.txt"), 20, "")
	path := filepath.Join(dir, "nightly.cue")
	writeFile(t, path, `name:        "nightly"
description: "cross-check against another implementation"
checks: [{
	file:       "ref.txt"
	sources:    ["file", "double"]
	candidates: "other.txt"
	target_digits: 10
}]
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Checks, 1)
	c := s.Checks[0]
	assert.Equal(t, filepath.Join(dir, "ref.txt"), c.File)
	assert.Equal(t, filepath.Join(dir, "other.txt"), c.Candidates)
	assert.Equal(t, []string{"file", "double"}, c.Sources)
	assert.Equal(t, 10, c.TargetDigits)
	assert.Equal(t, 0, c.ExtraM)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "yaml unknown field",
			file:    "typo.yaml",
			content: "name: a\ndescription: b\ncheck:\n  - file: ref.txt\n    sources: [reference]\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "missing description",
			file:    "nodesc.yaml",
			content: "name: a\nchecks:\n  - file: ref.txt\n    sources: [reference]\n",
			want:    "description is required",
		},
		{
			name:    "no checks",
			file:    "nochecks.yaml",
			content: "name: a\ndescription: b\n",
			want:    "checks list is required",
		},
		{
			name:    "unknown source",
			file:    "badsource.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    sources: [reference, quad]\n",
			want:    `checks[0].sources[1]: unknown source "quad"`,
		},
		{
			name:    "file source without candidates",
			file:    "nocand.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    sources: [file]\n",
			want:    "requires candidates",
		},
		{
			name:    "missing reference file",
			file:    "missing.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: nope.txt\n    sources: [reference]\n",
			want:    "reference file not found",
		},
		{
			name:    "negative extra_m",
			file:    "negative.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    sources: [reference]\n    extra_m: -1\n",
			want:    "extra_m must be non-negative",
		},
		{
			name:    "unknown kind",
			file:    "kind.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    kind: overlap\n    sources: [reference]\n",
			want:    `checks[0]: unknown kind "overlap"`,
		},
		{
			name:    "extra_m on integrals",
			file:    "eriextra.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    kind: eri\n    sources: [reference]\n    extra_m: 2\n",
			want:    `extra_m does not apply to kind "eri"`,
		},
		{
			name:    "boys only source on integrals",
			file:    "erisource.yaml",
			content: "name: a\ndescription: b\nchecks:\n  - file: ref.txt\n    kind: eri\n    sources: [series]\n",
			want:    `checks[0].sources[0]: unknown source "series"`,
		},
		{
			name:    "cue unknown kind",
			file:    "kind.cue",
			content: "name: \"a\"\ndescription: \"b\"\nchecks: [{file: \"ref.txt\", kind: \"overlap\", sources: [\"reference\"]}]\n",
			want:    "failed to validate CUE",
		},
		{
			name:    "cue unknown field",
			file:    "typo.cue",
			content: "name: \"a\"\ndescription: \"b\"\nchecks: [{file: \"ref.txt\", sources: [\"reference\"], extram: 1}]\n",
			want:    "unknown field checks[0].extram",
		},
		{
			name:    "cue wrong type",
			file:    "type.cue",
			content: "name: \"a\"\ndescription: \"b\"\nchecks: [{file: \"ref.txt\", sources: [\"reference\"], target_digits: \"12\"}]\n",
			want:    "failed to validate CUE",
		},
		{
			name:    "cue syntax",
			file:    "syntax.cue",
			content: "name: \"a\"\ndescription: \n",
			want:    "failed to compile CUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read suite file")
}

func TestRun_PassAndFail(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "good.txt"), 20, "")
	writeReference(t, filepath.Join(dir, "skewed.txt"), 20, "1.00001")
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, `name: mixed
description: one good file, one skewed file
checks:
  - file: good.txt
    sources: [reference, bigfloat]
  - file: skewed.txt
    sources: [reference]
`)
	s, err := Load(path)
	require.NoError(t, err)

	res, err := Run(context.Background(), s, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "mixed", res.Suite)
	assert.False(t, res.Pass)
	require.Len(t, res.Checks, 2)

	good := res.Checks[0]
	assert.True(t, good.Report.OK())
	assert.Len(t, good.FileDigest, 64)
	assert.Len(t, good.ReportDigest, 64)

	skewed := res.Checks[1]
	assert.False(t, skewed.Report.OK())
	assert.Equal(t, 4, skewed.Report.Sources[0].Failed)
	assert.NotEqual(t, good.FileDigest, skewed.FileDigest)
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "skewed.txt"), 15, "1.0000001")
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, "name: d\ndescription: d\nchecks:\n  - file: skewed.txt\n    sources: [series, double]\n    target_digits: 10\n")
	s, err := Load(path)
	require.NoError(t, err)

	a, err := Run(context.Background(), s, RunOptions{})
	require.NoError(t, err)
	b, err := Run(context.Background(), s, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, a.Checks[0].ReportDigest, b.Checks[0].ReportDigest)
	assert.Equal(t, a.Checks[0].Report, b.Checks[0].Report)
}

func TestRun_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, "name: h\ndescription: h\nchecks:\n  - file: ref.txt\n    sources: [reference, series, interval]\n")
	s, err := Load(path)
	require.NoError(t, err)

	store, err := history.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	res, err := Run(context.Background(), s, RunOptions{Store: store})
	require.NoError(t, err)
	assert.True(t, res.Pass)

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, res.Checks[0].FileDigest, r.FileDigest)
		assert.Equal(t, res.Checks[0].ReportDigest, r.ReportDigest)
		assert.Equal(t, 4, r.Passed)
	}
	assert.Equal(t, "interval", runs[0].Source)
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, "name: c\ndescription: c\nchecks:\n  - file: ref.txt\n    sources: [reference]\n")
	s, err := Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, s, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// writeIntegrals writes an integral file of two quartets at digits digits.
// When skew is set the second value is multiplied by it.
func writeIntegrals(t *testing.T, path string, digits int, skew string) {
	t.Helper()
	in, err := eri.ParseInput(strings.NewReader(
		"0 0 0 0 0 0 1\n0 0 0 0 0 0 1\n0 0 0 0 0 0 1\n0 0 0 0 0 0 1\n\n"+
			"1 0 0 0.1 0 0 1.3\n0 0 0 0 0.2 0 0.7\n0 1 0 0 0 0.3 0.9\n0 0 0 -0.1 0 0 1.1\n"), "fixture")
	require.NoError(t, err)
	entries, err := eri.Create(context.Background(), in.Quartets, digits, 2)
	require.NoError(t, err)
	if skew != "" {
		factor, _, err := apd.NewFromString(skew)
		require.NoError(t, err)
		value := new(apd.Decimal)
		_, err = boys.NewContext(digits).Mul(value, entries[1].Value, factor)
		require.NoError(t, err)
		entries[1].Value = value
	}
	require.NoError(t, eri.Write(path, &eri.File{Precision: digits, Header: []string{"suite fixture"}, Entries: entries}))
}

func TestRun_IntegralChecks(t *testing.T) {
	dir := t.TempDir()
	writeReference(t, filepath.Join(dir, "ref.txt"), 20, "")
	writeIntegrals(t, filepath.Join(dir, "eri.txt"), 20, "")
	writeIntegrals(t, filepath.Join(dir, "skewed.txt"), 20, "1.001")
	path := filepath.Join(dir, "suite.cue")
	writeFile(t, path, `name: "mixed kinds"
description: "boys vectors and integrals"
checks: [
	{file: "ref.txt", sources: ["reference"]},
	{file: "eri.txt", kind: "eri", sources: ["reference", "double"], target_digits: 6},
	{file: "skewed.txt", kind: "eri", sources: ["reference"]},
]
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, verify.KindERI, s.Checks[1].Kind)

	store, err := history.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	res, err := Run(context.Background(), s, RunOptions{Store: store})
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Checks, 3)

	assert.Equal(t, verify.KindBoys, res.Checks[0].Report.Kind)
	assert.True(t, res.Checks[0].Report.OK())
	assert.Equal(t, verify.KindERI, res.Checks[1].Report.Kind)
	assert.True(t, res.Checks[1].Report.OK(), "failures: %+v", res.Checks[1].Report.Sources)

	skewed := res.Checks[2].Report
	assert.False(t, skewed.OK())
	require.Len(t, skewed.Sources[0].Failures, 1)
	assert.Equal(t, "1 (100 000|010 000)", skewed.Sources[0].Failures[0].Entry)
	assert.NotEqual(t, res.Checks[1].FileDigest, res.Checks[2].FileDigest)

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	kinds := map[string]int{}
	for _, r := range runs {
		kinds[r.Kind]++
	}
	assert.Equal(t, map[string]int{verify.KindBoys: 1, verify.KindERI: 3}, kinds)
}
