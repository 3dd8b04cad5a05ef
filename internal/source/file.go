package source

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/vectorfile"
)

// FileSource serves candidate values computed elsewhere, read from a test
// vector file. Entries are matched to queries by (m, t).
type FileSource struct {
	precision int
	values    map[string]*apd.Decimal
}

// NewFile indexes f. Two entries for the same query are rejected.
func NewFile(f *vectorfile.File) (*FileSource, error) {
	s := &FileSource{precision: f.Precision, values: make(map[string]*apd.Decimal, len(f.Vectors))}
	for _, v := range f.Vectors {
		key := v.Key()
		if _, dup := s.values[key]; dup {
			return nil, fmt.Errorf("candidates file has more than one entry for m=%d t=%s", v.M, v.T.Text('e'))
		}
		s.values[key] = v.Value
	}
	return s, nil
}

func (*FileSource) Name() string { return NameFile }

// Precision is the declared precision of the candidates file.
func (s *FileSource) Precision() int { return s.precision }

// Value returns the stored F_m(t), or an error wrapping ErrNotFound.
func (s *FileSource) Value(m int, t *apd.Decimal) (*apd.Decimal, error) {
	v, ok := s.values[vectorfile.QueryKey(m, t)]
	if !ok {
		return nil, fmt.Errorf("%w: m=%d t=%s", ErrNotFound, m, t.Text('e'))
	}
	return v, nil
}

// Orders returns the stored F_0(t) … F_m(t); every order must be present.
func (s *FileSource) Orders(m int, t *apd.Decimal, _ int) ([]*apd.Decimal, error) {
	out := make([]*apd.Decimal, m+1)
	for i := 0; i <= m; i++ {
		v, err := s.Value(i, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
