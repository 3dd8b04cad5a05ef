// Package source provides candidate implementations of the Boys function
// for the verifier.
//
// Every source follows the calling convention of the implementations under
// test: one call returns F_0(t) … F_m(t). Sources disagree in how they get
// there (closed form, series, directed rounding, binary floating point,
// native doubles, or values read from another file) which is what makes an
// n-way agreement check meaningful.
package source

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/vectorfile"
)

// Source computes F_0(t) … F_m(t) at a working precision of digits decimal
// digits. Sources that cannot reach that precision (double, exact) ignore it.
type Source interface {
	Name() string
	Orders(m int, t *apd.Decimal, digits int) ([]*apd.Decimal, error)
}

// Pointwise is implemented by sources that can only answer F_m(t) for the
// exact queries they hold, such as a file of external results. Candidate
// prefers it over Orders.
type Pointwise interface {
	Value(m int, t *apd.Decimal) (*apd.Decimal, error)
}

// ErrNotFound is returned when a pointwise source has no entry for a query.
var ErrNotFound = errors.New("no candidate for query")

// Source names accepted by ByName.
const (
	NameReference = "reference"
	NameSeries    = "series"
	NameInterval  = "interval"
	NameBigFloat  = "bigfloat"
	NameDouble    = "double"
	NameExact     = "exact"
	NameFile      = "file"
)

// Options configures sources that need more than a name.
type Options struct {
	// Candidates backs the "file" source.
	Candidates *vectorfile.File
}

// ByName returns the source registered under name.
func ByName(name string, opts Options) (Source, error) {
	switch name {
	case NameReference:
		return Reference{}, nil
	case NameSeries:
		return Series{}, nil
	case NameInterval:
		return Interval{}, nil
	case NameBigFloat:
		return BigFloat{}, nil
	case NameDouble:
		return Double{}, nil
	case NameExact:
		return Exact{}, nil
	case NameFile:
		if opts.Candidates == nil {
			return nil, fmt.Errorf("source %q requires a candidates file", name)
		}
		return NewFile(opts.Candidates)
	default:
		return nil, fmt.Errorf("unknown source %q (valid: %v)", name, Names())
	}
}

// Names lists every registered source name in sorted order.
func Names() []string {
	names := []string{NameReference, NameSeries, NameInterval, NameBigFloat, NameDouble, NameExact, NameFile}
	sort.Strings(names)
	return names
}

// IsValidName reports whether name is a registered source.
func IsValidName(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Candidate returns F_m(t) from src. The source is asked for orders up to
// m+extraM and element m is returned, so extraM > 0 routes the candidate
// through the source's downward recursion.
func Candidate(src Source, m int, t *apd.Decimal, digits, extraM int) (*apd.Decimal, error) {
	if p, ok := src.(Pointwise); ok {
		return p.Value(m, t)
	}
	if extraM < 0 {
		return nil, fmt.Errorf("extra orders must be non-negative, got %d", extraM)
	}
	vals, err := src.Orders(m+extraM, t, digits)
	if err != nil {
		return nil, err
	}
	if len(vals) <= m {
		return nil, fmt.Errorf("source %s returned %d orders for m=%d", src.Name(), len(vals), m+extraM)
	}
	return vals[m], nil
}
