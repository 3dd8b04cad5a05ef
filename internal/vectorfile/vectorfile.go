// Package vectorfile reads and writes Boys function test vector files.
//
// A test vector file is plain text:
//
//	# provenance comment lines, ignored by readers
//	30
//	0 0e+0 1.00000000000000000000000000000e+0
//	1 0e+0 3.33333333333333333333333333333e-1
//
// The first non-comment line is the declared precision in decimal digits.
// Every following non-comment line holds exactly three tokens: the order m,
// the argument t and the reference value F_m(t). t and the value are decimal
// strings; values are written in scientific notation padded to the declared
// precision. Any malformed line fails the whole read with a FormatError.
package vectorfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// CommentMarker starts a provenance line.
const CommentMarker = "#"

// Vector is one (m, t, value) record.
type Vector struct {
	M     int
	T     *apd.Decimal
	Value *apd.Decimal
}

// Key identifies a vector by its query. Two vectors share a key iff their
// orders match and their arguments are numerically equal.
func (v Vector) Key() string {
	return QueryKey(v.M, v.T)
}

// File is a parsed test vector file.
type File struct {
	// Precision is the declared precision in decimal digits.
	Precision int

	// Header holds the comment lines with the marker and one following
	// space removed.
	Header []string

	Vectors []Vector
}

// Read parses the test vector file at path.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a test vector file from r. name is used in error messages.
func Parse(r io.Reader, name string) (*File, error) {
	out := &File{}
	declared := false

	err := ScanLines(r, name, func(lineNo int, line string) error {
		if text, ok := CommentText(line); ok {
			out.Header = append(out.Header, text)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}

		if !declared {
			if len(fields) != 1 {
				return Errorf(name, lineNo, "declared precision line must hold one integer, got %d tokens", len(fields))
			}
			p, err := strconv.Atoi(fields[0])
			if err != nil || p <= 0 {
				return Errorf(name, lineNo, "declared precision must be a positive integer, got %q", fields[0])
			}
			out.Precision = p
			declared = true
			return nil
		}

		if len(fields) != 3 {
			return Errorf(name, lineNo, "expected 3 tokens (m t value), got %d", len(fields))
		}
		m, t, err := parseQuery(name, lineNo, fields[0], fields[1])
		if err != nil {
			return err
		}
		value, err := ParseDecimal(fields[2])
		if err != nil {
			return Errorf(name, lineNo, "value: %v", err)
		}
		if n := SignificantDigits(value); n > out.Precision {
			return Errorf(name, lineNo, "value %s carries %d significant digits, more than the declared %d", fields[2], n, out.Precision)
		}
		out.Vectors = append(out.Vectors, Vector{M: m, T: t, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !declared {
		return nil, Errorf(name, 0, "missing declared precision line")
	}
	return out, nil
}

// Write encodes f to path, replacing any existing file.
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}
	return nil
}

// Encode writes f in the test vector file format. Values are rounded to
// f.Precision significant digits.
func Encode(w io.Writer, f *File) error {
	if f.Precision <= 0 {
		return fmt.Errorf("declared precision must be positive, got %d", f.Precision)
	}
	bw := bufio.NewWriter(w)
	WriteHeader(bw, f.Header)
	fmt.Fprintf(bw, "%d\n", f.Precision)

	for i, v := range f.Vectors {
		if err := checkQuery(v.M, v.T); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		value, err := FormatSci(v.Value, f.Precision)
		if err != nil {
			return fmt.Errorf("vector %d (m=%d, t=%s): %w", i, v.M, v.T.Text('e'), err)
		}
		fmt.Fprintf(bw, "%d %s %s\n", v.M, v.T.Text('e'), value)
	}
	return bw.Flush()
}

// QueryKey returns the lookup key for (m, t). Trailing zeros of t do not
// change the key.
func QueryKey(m int, t *apd.Decimal) string {
	r, _ := new(apd.Decimal).Reduce(t)
	if r.IsZero() {
		r.Negative = false
	}
	return strconv.Itoa(m) + " " + r.Text('e')
}

// WriteHeader writes header as comment lines.
func WriteHeader(w *bufio.Writer, header []string) {
	for _, h := range header {
		for _, line := range strings.Split(h, "\n") {
			if line == "" {
				w.WriteString(CommentMarker + "\n")
				continue
			}
			w.WriteString(CommentMarker + " " + line + "\n")
		}
	}
}

// CommentText returns the text of a comment line without the marker and
// one following space.
func CommentText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, CommentMarker) {
		return "", false
	}
	text := strings.TrimPrefix(trimmed, CommentMarker)
	return strings.TrimPrefix(text, " "), true
}

// ScanLines calls fn for every line of r with its 1-based number and
// stops at the first error.
func ScanLines(r io.Reader, name string, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := fn(lineNo, sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func parseQuery(name string, lineNo int, mTok, tTok string) (int, *apd.Decimal, error) {
	m, err := strconv.Atoi(mTok)
	if err != nil {
		return 0, nil, Errorf(name, lineNo, "order m: %q is not an integer", mTok)
	}
	if m < 0 {
		return 0, nil, Errorf(name, lineNo, "order m must be non-negative, got %d", m)
	}
	t, err := ParseDecimal(tTok)
	if err != nil {
		return 0, nil, Errorf(name, lineNo, "argument t: %v", err)
	}
	if t.Sign() < 0 {
		return 0, nil, Errorf(name, lineNo, "argument t must be non-negative, got %s", tTok)
	}
	return m, t, nil
}

func checkQuery(m int, t *apd.Decimal) error {
	if m < 0 {
		return fmt.Errorf("order m must be non-negative, got %d", m)
	}
	if t == nil || t.Form != apd.Finite || t.Sign() < 0 {
		return fmt.Errorf("argument t must be a finite non-negative number")
	}
	return nil
}
