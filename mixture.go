package exprcluster

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MixtureComponent describes one Gaussian component of the fitted CV mixture.
type MixtureComponent struct {
	Mean     float64
	Variance float64
	Weight   float64
}

// MixtureReport is the diagnostic side output of AdaptiveCount: the chosen
// mixture, per-probe component assignments, and the BIC trace across tried
// component counts. Downstream stages do not consume it; it exists for
// reporting adapters.
type MixtureReport struct {
	// Components of the BIC-best mixture, in fit order.
	Components []MixtureComponent
	// Assignments holds each probe's MAP component index (into Components),
	// aligned with the matrix's probe rows.
	Assignments []int
	// BICByComponents[k-1] is the BIC of the k-component fit. NaN marks
	// component counts that could not be fitted.
	BICByComponents []float64
	// ChosenComponents is the component count with the lowest BIC.
	ChosenComponents int
	// LogLikelihood of the chosen fit.
	LogLikelihood float64
	// SelectedProbes is the number of probes assigned to the component with
	// the highest mean CV.
	SelectedProbes int
}

// fitCVMixture fits univariate Gaussian mixtures over the per-probe CV for
// component counts 1..MaxComponents, picks the lowest-BIC fit, and counts the
// probes whose MAP component has the highest mean CV. Probes with an
// infinite CV (zero mean, nonzero SD) are excluded from the fit and counted
// as selected.
func fitCVMixture(ctx context.Context, stats []probeStat, cfg AdaptiveCount) (*MixtureReport, error) {
	maxComp := cfg.MaxComponents
	if maxComp == 0 {
		maxComp = 5
	}
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 200
	}
	tol := cfg.Tolerance
	if tol == 0 {
		tol = 1e-6
	}
	if maxComp < 1 || maxIter < 1 || tol < 0 {
		return nil, fmt.Errorf("%w: adaptive mixture config %+v", ErrInvalidParameter, cfg)
	}

	// Split finite CVs (fit input) from infinite ones (always selected).
	xs := make([]float64, 0, len(stats))
	finiteRow := make([]int, 0, len(stats))
	infinite := 0
	for i, s := range stats {
		if math.IsInf(s.CV, 0) {
			infinite++
			continue
		}
		xs = append(xs, s.CV)
		finiteRow = append(finiteRow, i)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: mixture fit needs at least 2 probes with finite CV, got %d",
			ErrInvalidData, len(xs))
	}

	bics := make([]float64, maxComp)
	for i := range bics {
		bics[i] = math.NaN()
	}

	var best *gmmFit
	bestBIC := math.Inf(1)
	bestK := 0
	for k := 1; k <= maxComp && k <= len(xs); k++ {
		fit, err := fitGMM(ctx, xs, k, maxIter, tol)
		if err != nil {
			return nil, err
		}
		bic := -2*fit.logLikelihood + float64(3*k-1)*math.Log(float64(len(xs)))
		bics[k-1] = bic
		if bic < bestBIC {
			bestBIC = bic
			best = fit
			bestK = k
		}
	}

	// MAP assignment against the chosen mixture.
	top := 0
	for j, c := range best.components {
		if c.Mean > best.components[top].Mean {
			top = j
		}
	}
	assignments := make([]int, len(stats))
	selected := infinite
	for i := range assignments {
		assignments[i] = top // overwritten below for finite rows
	}
	for fi, row := range finiteRow {
		comp := best.mapComponent(xs[fi])
		assignments[row] = comp
		if comp == top {
			selected++
		}
	}

	return &MixtureReport{
		Components:       best.components,
		Assignments:      assignments,
		BICByComponents:  bics,
		ChosenComponents: bestK,
		LogLikelihood:    best.logLikelihood,
		SelectedProbes:   selected,
	}, nil
}

type gmmFit struct {
	components    []MixtureComponent
	logLikelihood float64
}

// mapComponent returns the index of the component with the highest posterior
// density at x.
func (f *gmmFit) mapComponent(x float64) int {
	best, bestLP := 0, math.Inf(-1)
	for j, c := range f.components {
		lp := math.Log(c.Weight) + normalLogProb(x, c)
		if lp > bestLP {
			best, bestLP = j, lp
		}
	}
	return best
}

func normalLogProb(x float64, c MixtureComponent) float64 {
	return distuv.Normal{Mu: c.Mean, Sigma: math.Sqrt(c.Variance)}.LogProb(x)
}

// fitGMM runs EM for a k-component univariate Gaussian mixture over xs.
// Initialization is deterministic: component means at evenly spread sample
// quantiles, shared overall variance, uniform weights. ctx is checked between
// EM iterations.
func fitGMM(ctx context.Context, xs []float64, k, maxIter int, tol float64) (*gmmFit, error) {
	n := len(xs)
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	overallVar := stat.Variance(xs, nil)
	varFloor := 1e-12
	if overallVar > 0 {
		varFloor = overallVar * 1e-6
	}
	if overallVar < varFloor {
		overallVar = varFloor
	}

	comps := make([]MixtureComponent, k)
	for j := range comps {
		q := (float64(j) + 0.5) / float64(k)
		comps[j] = MixtureComponent{
			Mean:     stat.Quantile(q, stat.Empirical, sorted, nil),
			Variance: overallVar,
			Weight:   1 / float64(k),
		}
	}

	resp := make([]float64, n*k)
	logp := make([]float64, k)
	prevLL := math.Inf(-1)
	var ll float64

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// E-step with log-sum-exp for stability.
		ll = 0
		for i, x := range xs {
			maxLP := math.Inf(-1)
			for j, c := range comps {
				logp[j] = math.Log(c.Weight) + normalLogProb(x, c)
				if logp[j] > maxLP {
					maxLP = logp[j]
				}
			}
			var sum float64
			for j := range logp {
				sum += math.Exp(logp[j] - maxLP)
			}
			lse := maxLP + math.Log(sum)
			ll += lse
			for j := range logp {
				resp[i*k+j] = math.Exp(logp[j] - lse)
			}
		}

		// M-step.
		for j := range comps {
			var nj, mu float64
			for i, x := range xs {
				r := resp[i*k+j]
				nj += r
				mu += r * x
			}
			if nj < 1e-10 {
				// collapsed component; re-anchor at the overall spread
				comps[j].Weight = 1e-10
				comps[j].Variance = overallVar
				continue
			}
			mu /= nj
			var v float64
			for i, x := range xs {
				d := x - mu
				v += resp[i*k+j] * d * d
			}
			v /= nj
			if v < varFloor {
				v = varFloor
			}
			comps[j] = MixtureComponent{Mean: mu, Variance: v, Weight: nj / float64(n)}
		}

		if ll-prevLL < tol && iter > 0 {
			break
		}
		prevLL = ll
	}

	return &gmmFit{components: comps, logLikelihood: ll}, nil
}
