package chart

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when a fit has fewer points than coefficients.
var ErrTooFewPoints = errors.New("too few points for polynomial fit")

// Poly holds polynomial coefficients, lowest order first.
type Poly []float64

// Eval evaluates the polynomial at x.
func (p Poly) Eval(x float64) float64 {
	var y float64
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// PolyFit returns the least-squares polynomial of the given degree through
// (xs, ys).
func PolyFit(xs, ys []float64, degree int) (Poly, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("polyfit: %d xs and %d ys", len(xs), len(ys))
	}
	if degree < 0 {
		return nil, fmt.Errorf("polyfit: negative degree %d", degree)
	}
	n, m := len(xs), degree+1
	if n < m {
		return nil, fmt.Errorf("%w: %d points for degree %d", ErrTooFewPoints, n, degree)
	}

	a := mat.NewDense(n, m, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j < m; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), ys...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("polyfit: %w", err)
	}
	out := make(Poly, m)
	for j := range out {
		out[j] = c.AtVec(j)
	}
	return out, nil
}
