package vectorfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Query is one (m, t) line of an input grid file.
type Query struct {
	M int
	T *apd.Decimal
}

// Grid is an input grid file: comment lines followed by "m t" lines. Grids
// are produced by the generators and consumed when creating reference files.
type Grid struct {
	Header  []string
	Queries []Query
}

// ReadGrid parses the grid file at path.
func ReadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file: %w", err)
	}
	defer f.Close()
	return ParseGrid(f, path)
}

// ParseGrid reads a grid from r. Every non-comment, non-blank line must hold
// exactly two tokens.
func ParseGrid(r io.Reader, name string) (*Grid, error) {
	g := &Grid{}
	err := ScanLines(r, name, func(lineNo int, line string) error {
		if text, ok := CommentText(line); ok {
			g.Header = append(g.Header, text)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		if len(fields) != 2 {
			return Errorf(name, lineNo, "expected 2 tokens (m t), got %d", len(fields))
		}
		m, t, err := parseQuery(name, lineNo, fields[0], fields[1])
		if err != nil {
			return err
		}
		g.Queries = append(g.Queries, Query{M: m, T: t})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// WriteGrid encodes g to path.
func WriteGrid(path string, g *Grid) error {
	var buf bytes.Buffer
	if err := EncodeGrid(&buf, g); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write grid file: %w", err)
	}
	return nil
}

// EncodeGrid writes g to w. Arguments are written exactly.
func EncodeGrid(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	WriteHeader(bw, g.Header)
	for i, q := range g.Queries {
		if err := checkQuery(q.M, q.T); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
		fmt.Fprintf(bw, "%d %s\n", q.M, q.T.Text('e'))
	}
	return bw.Flush()
}
