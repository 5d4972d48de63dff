package exprcluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// probeStat holds the per-probe summary statistics the selectors and rankers
// score on. SD is the sample standard deviation (n−1 denominator, matching
// gonum's stat.StdDev).
type probeStat struct {
	Mean float64
	SD   float64
	// CV is |SD/Mean|, the scale-free coefficient of variation. +Inf when
	// the mean is exactly zero and the SD is not.
	CV float64
	// Range is max−min across samples.
	Range float64
}

func computeProbeStat(row []float64) probeStat {
	mean, sd := stat.MeanStdDev(row, nil)
	if len(row) < 2 {
		sd = 0
	}
	var cv float64
	switch {
	case mean != 0:
		cv = math.Abs(sd / mean)
	case sd != 0:
		cv = math.Inf(1)
	}
	lo, hi := row[0], row[0]
	for _, v := range row[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return probeStat{Mean: mean, SD: sd, CV: cv, Range: hi - lo}
}

// median returns the middle value (mean of the two middle values for even
// lengths). The input is not modified.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ranks assigns fractional ranks (1-based, ties get the average of the ranks
// they span). Used for the Spearman probe metric.
func ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// ranks i+1..j+1 averaged across the tie run
		r := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			out[idx[k]] = r
		}
		i = j + 1
	}
	return out
}

// euclideanSq is the squared Euclidean distance, shared by k-means and the
// gap-statistic dispersion.
func euclideanSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
