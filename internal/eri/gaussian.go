// Package eri computes reference values of primitive electron repulsion
// integrals over unnormalized Cartesian Gaussians,
//
//	(ab|cd) = ∫∫ φa(r1) φb(r1) 1/|r1−r2| φc(r2) φd(r2) dr1 dr2
//	φ(r) = x^l y^m z^n exp(−α |r−A|²)
//
// with every operation carried out in apd decimal arithmetic. The Boys
// function values the integral needs come from the boys package at the
// same working precision, which is what makes these files a second,
// downstream consumer of the Boys reference values.
package eri

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/boys"
	"github.com/roach88/boysref/internal/vectorfile"
)

// Gaussian is one primitive Cartesian Gaussian. LMN holds the exponents of
// x, y and z; Center and Alpha are exact decimals.
type Gaussian struct {
	LMN    [3]int
	Center [3]*apd.Decimal
	Alpha  *apd.Decimal
}

// AM is the total angular momentum l+m+n.
func (g Gaussian) AM() int { return g.LMN[0] + g.LMN[1] + g.LMN[2] }

// Check validates g before any arithmetic.
func (g Gaussian) Check() error {
	for i, e := range g.LMN {
		if e < 0 {
			return invalidArgument("exponent %c must be non-negative, got %d", "lmn"[i], e)
		}
	}
	for i, c := range g.Center {
		if c == nil || c.Form != apd.Finite {
			return invalidArgument("coordinate %c must be a finite number", "xyz"[i])
		}
	}
	if g.Alpha == nil || g.Alpha.Form != apd.Finite || g.Alpha.Sign() <= 0 {
		return invalidArgument("exponent alpha must be a finite positive number")
	}
	return nil
}

// String renders g as it appears in a file: "l m n x y z alpha".
func (g Gaussian) String() string {
	return fmt.Sprintf("%d %d %d %s %s %s %s",
		g.LMN[0], g.LMN[1], g.LMN[2],
		vectorfile.FormatArgument(g.Center[0]),
		vectorfile.FormatArgument(g.Center[1]),
		vectorfile.FormatArgument(g.Center[2]),
		vectorfile.FormatArgument(g.Alpha))
}

// Quartet is the four Gaussians of an integral (ab|cd) in bra-ket order.
type Quartet [4]Gaussian

// AM is the total angular momentum of the quartet, the highest Boys order
// its integral needs.
func (q Quartet) AM() int {
	n := 0
	for _, g := range q {
		n += g.AM()
	}
	return n
}

// Check validates every Gaussian of q.
func (q Quartet) Check() error {
	for i, g := range q {
		if err := g.Check(); err != nil {
			return fmt.Errorf("gaussian %d: %w", i, err)
		}
	}
	return nil
}

// Key identifies q by the numerical values of its Gaussians, so trailing
// zeros in the file text do not matter.
func (q Quartet) Key() string {
	parts := make([]string, len(q))
	for i, g := range q {
		parts[i] = g.String()
	}
	return strings.Join(parts, " | ")
}

// Label is a short human description of q's angular momenta, e.g.
// "(100 000|000 011)".
func (q Quartet) Label() string {
	lmn := func(g Gaussian) string {
		return fmt.Sprintf("%d%d%d", g.LMN[0], g.LMN[1], g.LMN[2])
	}
	return fmt.Sprintf("(%s %s|%s %s)", lmn(q[0]), lmn(q[1]), lmn(q[2]), lmn(q[3]))
}

// Cartesian lists the exponents of every Cartesian Gaussian of angular
// momentum am in the conventional order: {am,0,0}, {am−1,1,0},
// {am−1,0,1}, {am−2,2,0}, … , {0,0,am}.
func Cartesian(am int) [][3]int {
	if am < 0 {
		return nil
	}
	out := make([][3]int, 0, NCart(am))
	lmn := [3]int{am, 0, 0}
	for {
		out = append(out, lmn)
		if lmn[2] >= am {
			return out
		}
		if lmn[2] < am-lmn[0] {
			lmn[1]--
			lmn[2]++
		} else {
			lmn[0]--
			lmn[1] = am - lmn[0]
			lmn[2] = 0
		}
	}
}

// NCart is the number of Cartesian Gaussians of angular momentum am.
func NCart(am int) int {
	return (am + 1) * (am + 2) / 2
}

func invalidArgument(format string, args ...any) *boys.Error {
	return &boys.Error{Code: boys.ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func precisionError(format string, args ...any) *boys.Error {
	return &boys.Error{Code: boys.ErrCodePrecision, Message: fmt.Sprintf(format, args...)}
}
