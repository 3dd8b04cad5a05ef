package eri

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/vectorfile"
)

// An integral file shares the comment and declared precision conventions
// of a Boys test vector file. Each entry is four Gaussian lines followed by
// the integral value:
//
//	# header
//	30
//	1 0 0 0.0 0.0 0.0 1.5
//	0 0 0 0.0 0.0 1.4 0.8
//	0 0 0 0.5 0.0 0.0 1.2
//	0 1 0 0.0 0.3 0.0 0.6
//	3.14159265358979323846264338328e-1
//
// An input file holds only the Gaussian lines, with no precision line and
// no values. Blank lines are ignored in both.

// Entry is one integral with its reference value.
type Entry struct {
	Quartet Quartet
	Value   *apd.Decimal
}

// File is a parsed integral file.
type File struct {
	Precision int
	Header    []string
	Entries   []Entry
}

// Input is a parsed input file: the quartets create evaluates.
type Input struct {
	Header   []string
	Quartets []Quartet
}

// gaussianTokens is the number of fields on a Gaussian line.
const gaussianTokens = 7

// Read parses the integral file at path.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open integral file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads an integral file from r. name is used in error messages.
func Parse(r io.Reader, name string) (*File, error) {
	out := &File{}
	declared := false
	var pending []Gaussian

	err := vectorfile.ScanLines(r, name, func(lineNo int, line string) error {
		if text, ok := vectorfile.CommentText(line); ok {
			out.Header = append(out.Header, text)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}

		if !declared {
			if len(fields) != 1 {
				return vectorfile.Errorf(name, lineNo, "declared precision line must hold one integer, got %d tokens", len(fields))
			}
			p, err := strconv.Atoi(fields[0])
			if err != nil || p <= 0 {
				return vectorfile.Errorf(name, lineNo, "declared precision must be a positive integer, got %q", fields[0])
			}
			out.Precision = p
			declared = true
			return nil
		}

		if len(pending) < len(Quartet{}) {
			g, err := parseGaussian(name, lineNo, fields)
			if err != nil {
				return err
			}
			pending = append(pending, g)
			return nil
		}

		if len(fields) != 1 {
			return vectorfile.Errorf(name, lineNo, "expected the integral value after 4 gaussians, got %d tokens", len(fields))
		}
		value, err := vectorfile.ParseDecimal(fields[0])
		if err != nil {
			return vectorfile.Errorf(name, lineNo, "value: %v", err)
		}
		if n := vectorfile.SignificantDigits(value); n > out.Precision {
			return vectorfile.Errorf(name, lineNo, "value %s carries %d significant digits, more than the declared %d", fields[0], n, out.Precision)
		}
		var q Quartet
		copy(q[:], pending)
		out.Entries = append(out.Entries, Entry{Quartet: q, Value: value})
		pending = pending[:0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !declared {
		return nil, vectorfile.Errorf(name, 0, "missing declared precision line")
	}
	if len(pending) > 0 {
		return nil, vectorfile.Errorf(name, 0, "incomplete entry at end of file: %d of 4 gaussians and no value", len(pending))
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
		return fmt.Errorf("write integral file: %w", err)
	}
	return nil
}

// Encode writes f in the integral file format. Values are rounded to
// f.Precision significant digits.
func Encode(w io.Writer, f *File) error {
	if f.Precision <= 0 {
		return fmt.Errorf("declared precision must be positive, got %d", f.Precision)
	}
	bw := bufio.NewWriter(w)
	vectorfile.WriteHeader(bw, f.Header)
	fmt.Fprintf(bw, "%d\n", f.Precision)

	for i, e := range f.Entries {
		if err := e.Quartet.Check(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		value, err := vectorfile.FormatSci(e.Value, f.Precision)
		if err != nil {
			return fmt.Errorf("entry %d %s: %w", i, e.Quartet.Label(), err)
		}
		for _, g := range e.Quartet {
			fmt.Fprintln(bw, g.String())
		}
		fmt.Fprintf(bw, "%s\n\n", value)
	}
	return bw.Flush()
}

// ReadInput parses the input file at path.
func ReadInput(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()
	return ParseInput(f, path)
}

// ParseInput reads an input file from r. name is used in error messages.
func ParseInput(r io.Reader, name string) (*Input, error) {
	out := &Input{}
	var pending []Gaussian

	err := vectorfile.ScanLines(r, name, func(lineNo int, line string) error {
		if text, ok := vectorfile.CommentText(line); ok {
			out.Header = append(out.Header, text)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		g, err := parseGaussian(name, lineNo, fields)
		if err != nil {
			return err
		}
		pending = append(pending, g)
		if len(pending) == len(Quartet{}) {
			var q Quartet
			copy(q[:], pending)
			out.Quartets = append(out.Quartets, q)
			pending = pending[:0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, vectorfile.Errorf(name, 0, "incomplete quartet at end of file: %d of 4 gaussians", len(pending))
	}
	return out, nil
}

// WriteInput encodes in to path, replacing any existing file.
func WriteInput(path string, in *Input) error {
	var buf bytes.Buffer
	if err := EncodeInput(&buf, in); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	return nil
}

// EncodeInput writes in in the input file format, one blank line between
// quartets.
func EncodeInput(w io.Writer, in *Input) error {
	bw := bufio.NewWriter(w)
	vectorfile.WriteHeader(bw, in.Header)
	for i, q := range in.Quartets {
		if err := q.Check(); err != nil {
			return fmt.Errorf("quartet %d: %w", i, err)
		}
		if i > 0 {
			fmt.Fprintln(bw)
		}
		for _, g := range q {
			fmt.Fprintln(bw, g.String())
		}
	}
	return bw.Flush()
}

func parseGaussian(name string, lineNo int, fields []string) (Gaussian, error) {
	if len(fields) != gaussianTokens {
		return Gaussian{}, vectorfile.Errorf(name, lineNo, "expected %d tokens (l m n x y z alpha), got %d", gaussianTokens, len(fields))
	}
	var g Gaussian
	for i := 0; i < 3; i++ {
		e, err := strconv.Atoi(fields[i])
		if err != nil {
			return Gaussian{}, vectorfile.Errorf(name, lineNo, "exponent %c: %q is not an integer", "lmn"[i], fields[i])
		}
		if e < 0 {
			return Gaussian{}, vectorfile.Errorf(name, lineNo, "exponent %c must be non-negative, got %d", "lmn"[i], e)
		}
		g.LMN[i] = e
	}
	for i := 0; i < 3; i++ {
		c, err := vectorfile.ParseDecimal(fields[3+i])
		if err != nil {
			return Gaussian{}, vectorfile.Errorf(name, lineNo, "coordinate %c: %v", "xyz"[i], err)
		}
		g.Center[i] = c
	}
	alpha, err := vectorfile.ParseDecimal(fields[6])
	if err != nil {
		return Gaussian{}, vectorfile.Errorf(name, lineNo, "alpha: %v", err)
	}
	if alpha.Sign() <= 0 {
		return Gaussian{}, vectorfile.Errorf(name, lineNo, "alpha must be positive, got %s", fields[6])
	}
	g.Alpha = alpha
	return g, nil
}
