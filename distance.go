package exprcluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SampleMetric names the distance used between sample columns during
// clustering.
type SampleMetric string

const (
	MetricEuclidean SampleMetric = "euclidean"
	MetricManhattan SampleMetric = "manhattan"
	MetricMaximum   SampleMetric = "maximum"
	MetricCanberra  SampleMetric = "canberra"
	MetricBinary    SampleMetric = "binary"
	MetricMinkowski SampleMetric = "minkowski"
)

// ProbeMetric names the distance used between probe rows when building the
// probe ordering of hierarchical clustering. The correlation-family metrics
// are correlation distances: 1−r (or 1−|r| for abspearson).
type ProbeMetric string

const (
	ProbeMetricEuclidean  ProbeMetric = "euclidean"
	ProbeMetricPearson    ProbeMetric = "pearson"
	ProbeMetricAbsPearson ProbeMetric = "abspearson"
	ProbeMetricSpearman   ProbeMetric = "spearman"
	ProbeMetricKendall    ProbeMetric = "kendall"
)

type distanceFunc func(a, b []float64) float64

// sampleDistanceFunc resolves a SampleMetric to its distance function.
// minkowskiP is only consulted for MetricMinkowski and must be >= 1.
func sampleDistanceFunc(metric SampleMetric, minkowskiP float64) (distanceFunc, error) {
	switch metric {
	case MetricEuclidean:
		return func(a, b []float64) float64 { return math.Sqrt(euclideanSq(a, b)) }, nil
	case MetricManhattan:
		return manhattanDistance, nil
	case MetricMaximum:
		return maximumDistance, nil
	case MetricCanberra:
		return canberraDistance, nil
	case MetricBinary:
		return binaryDistance, nil
	case MetricMinkowski:
		if minkowskiP < 1 {
			return nil, fmt.Errorf("%w: minkowski p must be >= 1, got %v", ErrInvalidParameter, minkowskiP)
		}
		p := minkowskiP
		return func(a, b []float64) float64 {
			var sum float64
			for i := range a {
				sum += math.Pow(math.Abs(a[i]-b[i]), p)
			}
			return math.Pow(sum, 1/p)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sample metric %q", ErrInvalidParameter, metric)
	}
}

// probeDistanceFunc resolves a ProbeMetric to its distance function.
func probeDistanceFunc(metric ProbeMetric) (distanceFunc, error) {
	switch metric {
	case ProbeMetricEuclidean:
		return func(a, b []float64) float64 { return math.Sqrt(euclideanSq(a, b)) }, nil
	case ProbeMetricPearson:
		return func(a, b []float64) float64 { return 1 - stat.Correlation(a, b, nil) }, nil
	case ProbeMetricAbsPearson:
		return func(a, b []float64) float64 { return 1 - math.Abs(stat.Correlation(a, b, nil)) }, nil
	case ProbeMetricSpearman:
		return func(a, b []float64) float64 { return 1 - stat.Correlation(ranks(a), ranks(b), nil) }, nil
	case ProbeMetricKendall:
		return func(a, b []float64) float64 { return 1 - stat.Kendall(a, b, nil) }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported probe metric %q", ErrInvalidParameter, metric)
	}
}

func manhattanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

func maximumDistance(a, b []float64) float64 {
	var maxVal float64
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// canberraDistance sums |x−y| / (|x|+|y|), skipping terms where both
// coordinates are zero (the R dist convention).
func canberraDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		denom := math.Abs(a[i]) + math.Abs(b[i])
		if denom == 0 {
			continue
		}
		sum += math.Abs(a[i]-b[i]) / denom
	}
	return sum
}

// binaryDistance treats nonzero coordinates as "on" and returns the fraction
// of discordant positions among positions where at least one vector is on.
// Two all-zero vectors have distance 0.
func binaryDistance(a, b []float64) float64 {
	var on, discordant int
	for i := range a {
		x, y := a[i] != 0, b[i] != 0
		if x || y {
			on++
			if x != y {
				discordant++
			}
		}
	}
	if on == 0 {
		return 0
	}
	return float64(discordant) / float64(on)
}

// pairwiseDistances computes the full n×n symmetric distance matrix over the
// given vectors, in flat row-major layout.
func pairwiseDistances(vecs [][]float64, dist distanceFunc) []float64 {
	n := len(vecs)
	result := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist(vecs[i], vecs[j])
			result[i*n+j] = d
			result[j*n+i] = d
		}
	}
	return result
}
