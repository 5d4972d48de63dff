package exprcluster

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// quadFit is a fitted second-degree polynomial y = c0 + c1·x + c2·x².
type quadFit [3]float64

func (c quadFit) eval(x float64) float64 {
	return c[0] + c[1]*x + c[2]*x*x
}

// fitQuadratic solves the least-squares quadratic through (x, y) via QR.
// ok is false when there are fewer than 3 points or the design matrix is
// rank-deficient (e.g. all x identical).
func fitQuadratic(x, y []float64) (quadFit, bool) {
	n := len(x)
	if n < 3 {
		return quadFit{}, false
	}
	a := mat.NewDense(n, 3, nil)
	for i, v := range x {
		a.Set(i, 0, 1)
		a.Set(i, 1, v)
		a.Set(i, 2, v*v)
	}
	b := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(a)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, b); err != nil {
		return quadFit{}, false
	}
	return quadFit{beta.AtVec(0), beta.AtVec(1), beta.AtVec(2)}, true
}

// polySelectRows returns the original row indices of probes whose SD exceeds
// the fitted SD~mean expectation of at least one of three quadratic
// regressions: over all probes, over probes above the median mean, and over
// probes below it. A half with fewer than 3 probes contributes no curve.
// Row order of the result follows the input order.
func polySelectRows(stats []probeStat) ([]int, error) {
	n := len(stats)
	if n < 3 {
		return nil, fmt.Errorf("%w: polynomial selection needs at least 3 probes, got %d", ErrInvalidParameter, n)
	}

	means := make([]float64, n)
	sds := make([]float64, n)
	for i, s := range stats {
		means[i] = s.Mean
		sds[i] = s.SD
	}
	med := median(means)

	var upX, upY, loX, loY []float64
	for i := range stats {
		switch {
		case means[i] > med:
			upX = append(upX, means[i])
			upY = append(upY, sds[i])
		case means[i] < med:
			loX = append(loX, means[i])
			loY = append(loY, sds[i])
		}
	}

	all, allOK := fitQuadratic(means, sds)
	upper, upperOK := fitQuadratic(upX, upY)
	lower, lowerOK := fitQuadratic(loX, loY)
	if !allOK && !upperOK && !lowerOK {
		return nil, fmt.Errorf("%w: no SD~mean curve could be fitted", ErrInvalidData)
	}

	var rows []int
	for i := range stats {
		m, sd := means[i], sds[i]
		selected := allOK && sd > all.eval(m)
		if !selected && upperOK && m > med {
			selected = sd > upper.eval(m)
		}
		if !selected && lowerOK && m < med {
			selected = sd > lower.eval(m)
		}
		if selected {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
