package exprcluster

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GapReport carries the per-k traces of a gap-statistic run for plotting
// adapters: observed and expected log-dispersions, gap values, and the
// simulation standard errors used by the 1-SE rule.
type GapReport struct {
	// Gap[k-1] is ExpectedLogW[k-1] − ObservedLogW[k-1].
	Gap []float64
	// StdErr[k-1] is sd_k · √(1 + 1/B).
	StdErr []float64
	// ObservedLogW[k-1] is log W_k on the actual data.
	ObservedLogW []float64
	// ExpectedLogW[k-1] is the bootstrap mean of log W_k on uniform
	// reference data.
	ExpectedLogW []float64
	// ChosenK is the smallest k with Gap(k) >= Gap(k+1) − StdErr(k+1),
	// or MaxK when no k satisfies the rule.
	ChosenK int
}

// gapStatistic implements the Tibshirani, Walther & Hastie (2001) gap
// statistic on the matrix's sample columns. Reference datasets are uniform
// draws over the per-feature bounding box of the data (their method (a));
// dispersion is W_k = Σ_r D_r/(2 n_r) on squared Euclidean distances.
func gapStatistic(ctx context.Context, m *ExpressionMatrix, cfg GapStatistic) (*GapReport, error) {
	samples := m.Samples()
	maxK := cfg.MaxK
	if maxK == 0 {
		maxK = 10
		if maxK > samples-1 {
			maxK = samples - 1
		}
		if maxK < 1 {
			maxK = 1
		}
	}
	if maxK < 1 || maxK > samples {
		return nil, fmt.Errorf("%w: gap statistic MaxK %d outside 1..%d", ErrInvalidParameter, maxK, samples)
	}
	bootstraps := cfg.Bootstraps
	if bootstraps == 0 {
		bootstraps = 50
	}
	if bootstraps < 2 {
		return nil, fmt.Errorf("%w: gap statistic needs at least 2 bootstraps, got %d",
			ErrInvalidParameter, bootstraps)
	}

	vecs := m.sampleVectors()
	dims := len(vecs[0])

	// Per-feature bounding box for the uniform reference distribution.
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	copy(lo, vecs[0])
	copy(hi, vecs[0])
	for _, v := range vecs[1:] {
		for d, x := range v {
			if x < lo[d] {
				lo[d] = x
			}
			if x > hi[d] {
				hi[d] = x
			}
		}
	}

	report := &GapReport{
		Gap:          make([]float64, maxK),
		StdErr:       make([]float64, maxK),
		ObservedLogW: make([]float64, maxK),
		ExpectedLogW: make([]float64, maxK),
	}

	refLogW := make([]float64, bootstraps)
	for k := 1; k <= maxK; k++ {
		logW, err := logDispersion(vecs, k, cfg.Seed+uint64(k))
		if err != nil {
			return nil, err
		}
		report.ObservedLogW[k-1] = logW

		for b := 0; b < bootstraps; b++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			refSeed := cfg.Seed + uint64(k)*1_000_003 + uint64(b)
			ref := uniformReference(lo, hi, len(vecs), refSeed)
			refLogW[b], err = logDispersion(ref, k, refSeed)
			if err != nil {
				return nil, err
			}
		}

		mean, sd := stat.MeanStdDev(refLogW, nil)
		report.ExpectedLogW[k-1] = mean
		report.Gap[k-1] = mean - logW
		report.StdErr[k-1] = sd * math.Sqrt(1+1/float64(bootstraps))
	}

	report.ChosenK = chooseGapK(report.Gap, report.StdErr)
	return report, nil
}

// chooseGapK applies the 1-SE rule: the smallest k with
// Gap(k) >= Gap(k+1) − StdErr(k+1). Falls back to the largest candidate when
// no k satisfies the rule.
func chooseGapK(gap, stdErr []float64) int {
	for k := 1; k < len(gap); k++ {
		if gap[k-1] >= gap[k]-stdErr[k] {
			return k
		}
	}
	return len(gap)
}

// logDispersion clusters vecs into k groups and returns log of the pooled
// within-cluster dispersion W_k = Σ_r D_r/(2 n_r), where D_r is the sum of
// pairwise squared Euclidean distances inside cluster r. A degenerate
// k-means partition (possible on a pathological reference draw) is reseeded
// up to twice before the error propagates.
func logDispersion(vecs [][]float64, k int, seed uint64) (float64, error) {
	labels, err := kmeansPartition(vecs, k, seed, 0)
	for reseed := uint64(1); err != nil && reseed <= 2; reseed++ {
		labels, err = kmeansPartition(vecs, k, seed+reseed*7919, 0)
	}
	if err != nil {
		return 0, err
	}

	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}

	var w float64
	for _, idx := range members {
		var d float64
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				d += euclideanSq(vecs[idx[a]], vecs[idx[b]])
			}
		}
		// D_r counts ordered pairs in the original formulation; with
		// unordered pairs the factor 2 cancels the /2.
		w += d / float64(len(idx))
	}
	if w <= 0 {
		// degenerate but legal (all points identical); keep the log finite
		w = math.SmallestNonzeroFloat64
	}
	return math.Log(w), nil
}

// uniformReference draws n vectors uniformly over the [lo, hi] box.
func uniformReference(lo, hi []float64, n int, seed uint64) [][]float64 {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	dims := len(lo)
	us := make([]distuv.Uniform, dims)
	for d := range us {
		maxV := hi[d]
		if maxV == lo[d] {
			maxV = lo[d] + math.SmallestNonzeroFloat64
		}
		us[d] = distuv.Uniform{Min: lo[d], Max: maxV, Src: src}
	}
	out := make([][]float64, n)
	flat := make([]float64, n*dims)
	for i := range out {
		v := flat[i*dims : (i+1)*dims]
		for d := range v {
			v[d] = us[d].Rand()
		}
		out[i] = v
	}
	return out
}
