package eri

import (
	"fmt"
	"math"

	"github.com/roach88/boysref/internal/source"
)

// EvaluateDouble computes the same integral as Evaluate in native float64
// arithmetic, with the Boys values from source.BoysDouble. It is the kind
// of routine the reference files exist to check.
func EvaluateDouble(q Quartet) (float64, error) {
	if err := q.Check(); err != nil {
		return 0, err
	}
	var alpha [4]float64
	var center [4][3]float64
	for i, g := range q {
		a, err := g.Alpha.Float64()
		if err != nil {
			return 0, fmt.Errorf("gaussian %d: alpha does not fit a double: %w", i, err)
		}
		alpha[i] = a
		for j, c := range g.Center {
			if center[i][j], err = c.Float64(); err != nil {
				return 0, fmt.Errorf("gaussian %d: coordinate does not fit a double: %w", i, err)
			}
		}
	}

	gp := alpha[0] + alpha[1]
	gq := alpha[2] + alpha[3]
	gpq := gp * gq / (gp + gq)

	var P, Q, PQ [3]float64
	var ab2, cd2, pq2 float64
	for i := 0; i < 3; i++ {
		P[i] = (alpha[0]*center[0][i] + alpha[1]*center[1][i]) / gp
		Q[i] = (alpha[2]*center[2][i] + alpha[3]*center[3][i]) / gq
		PQ[i] = P[i] - Q[i]
		ab2 += (center[0][i] - center[1][i]) * (center[0][i] - center[1][i])
		cd2 += (center[2][i] - center[3][i]) * (center[2][i] - center[3][i])
		pq2 += PQ[i] * PQ[i]
	}

	F := source.BoysDouble(q.AM(), pq2*gpq)

	var axes [3][]float64
	for i := range axes {
		fp := expansionDouble(q[0].LMN[i], q[1].LMN[i], P[i]-center[0][i], P[i]-center[1][i])
		fq := expansionDouble(q[2].LMN[i], q[3].LMN[i], Q[i]-center[2][i], Q[i]-center[3][i])
		axes[i] = axisDouble(fp, fq, gp, gq, gpq, PQ[i])
	}

	sum := 0.0
	for i, ax := range axes[0] {
		for j, ay := range axes[1] {
			for k, az := range axes[2] {
				sum += ax * ay * az * F[i+j+k]
			}
		}
	}

	pfac := 2 * math.Pow(math.Pi, 2.5) *
		math.Exp(-alpha[0]*alpha[1]*ab2/gp) *
		math.Exp(-alpha[2]*alpha[3]*cd2/gq) /
		(gp * gq * math.Sqrt(gp+gq))
	r := sum * pfac
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("integral %s is not finite in double precision", q.Label())
	}
	return r, nil
}

func axisDouble(fp, fq []float64, gp, gq, gpq, pq float64) []float64 {
	out := make([]float64, len(fp)+len(fq)-1)
	for lp := range fp {
		for lq := range fq {
			for u1 := 0; u1 <= lp/2; u1++ {
				for u2 := 0; u2 <= lq/2; u2++ {
					n := lp + lq - 2*(u1+u2)
					g := neg1Pow(lp) * fp[lp] * fq[lq] * fact(lp) * fact(lq) * fact(n) *
						math.Pow(gp, float64(u1-lp)) * math.Pow(gq, float64(u2-lq))
					g /= fact(u1) * fact(u2) * fact(lp-2*u1) * fact(lq-2*u2) * math.Pow(4, float64(u1+u2))
					for t := 0; t <= n/2; t++ {
						c := neg1Pow(t) * g * math.Pow(gpq, float64(n-t)) * math.Pow(pq, float64(n-2*t))
						c /= fact(n-2*t) * fact(t) * math.Pow(4, float64(t))
						out[n-t] += c
					}
				}
			}
		}
	}
	return out
}

func expansionDouble(l1, l2 int, pa, pb float64) []float64 {
	f := make([]float64, l1+l2+1)
	for k := range f {
		for i := 0; i <= min(k, l1); i++ {
			j := k - i
			if j > l2 {
				continue
			}
			f[k] += float64(binomial(l1, i)*binomial(l2, j)) *
				math.Pow(pa, float64(l1-i)) * math.Pow(pb, float64(l2-j))
		}
	}
	return f
}

func neg1Pow(n int) float64 {
	if n%2 == 1 {
		return -1
	}
	return 1
}

func fact(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
