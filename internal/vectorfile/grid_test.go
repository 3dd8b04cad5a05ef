package vectorfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_RoundTrip(t *testing.T) {
	g := &Grid{
		Header: []string{"boysref generate range --max-m 1 --power 0"},
		Queries: []Query{
			{M: 0, T: dec(t, "0")},
			{M: 1, T: dec(t, "0")},
			{M: 0, T: dec(t, "1.5e-3")},
			{M: 1, T: dec(t, "1.5e-3")},
		},
	}
	path := filepath.Join(t.TempDir(), "grid.txt")
	require.NoError(t, WriteGrid(path, g))

	got, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, g.Header, got.Header)
	require.Len(t, got.Queries, 4)
	for i, q := range got.Queries {
		assert.Equal(t, g.Queries[i].M, q.M)
		assert.Equal(t, 0, g.Queries[i].T.Cmp(q.T))
	}
}

func TestParseGrid_RejectsValueColumn(t *testing.T) {
	_, err := ParseGrid(strings.NewReader("# grid\n0 1\n0 1 1\n"), "grid.txt")
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
	assert.Contains(t, fe.Message, "expected 2 tokens")
}
