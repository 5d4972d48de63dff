package exprcluster

import (
	"fmt"
)

// ClusteringAlgorithm selects the partitioning strategy for samples.
type ClusteringAlgorithm string

const (
	// KMeansAlgorithm partitions samples by Lloyd's k-means with k-means++
	// seeding. Distance/linkage parameters do not apply.
	KMeansAlgorithm ClusteringAlgorithm = "kmeans"
	// HClustAlgorithm clusters samples agglomeratively with a configurable
	// metric and linkage, then cuts the dendrogram into the requested number
	// of groups. It also hierarchically clusters the probe rows to produce a
	// display ordering.
	HClustAlgorithm ClusteringAlgorithm = "hclust"
)

// ClusteringConfig controls the ClusterSamples stage. Start from
// DefaultClusteringConfig and override what you need.
type ClusteringConfig struct {
	// Algorithm is "kmeans" or "hclust". Default: "hclust".
	Algorithm ClusteringAlgorithm

	// Seed makes k-means reproducible; it drives the k-means++ draws.
	// Ignored by hclust, which is deterministic. Default: 1.
	Seed uint64

	// MaxIterations caps k-means refinement passes. 0 means 100.
	MaxIterations int

	// Distance is the sample-column metric for hclust.
	// Default: euclidean.
	Distance SampleMetric

	// MinkowskiP is the exponent for Distance == "minkowski". Must be >= 1
	// when that metric is chosen. Default: 2.
	MinkowskiP float64

	// Linkage is the agglomeration rule for hclust, applied to both the
	// sample and the probe dendrograms. Default: ward.
	Linkage Linkage

	// ProbeDistance is the probe-row metric for the display-ordering
	// dendrogram. Default: pearson.
	ProbeDistance ProbeMetric
}

// DefaultClusteringConfig returns a ClusteringConfig with the defaults above.
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		Algorithm:     HClustAlgorithm,
		Seed:          1,
		Distance:      MetricEuclidean,
		MinkowskiP:    2,
		Linkage:       LinkageWard,
		ProbeDistance: ProbeMetricPearson,
	}
}

// ClusterSamples partitions the matrix's sample columns into k clusters and
// returns the assignment with labels 1..k. For hclust the second result is
// the probe display ordering (original row indices, dendrogram leaf order);
// it is nil for k-means. Labels carry no canonical meaning across runs
// beyond what the seed pins down; label 1 is always the first sample's
// cluster.
//
// Fails with ErrDegenerateClustering when k exceeds the sample count or an
// empty cluster results, and ErrInvalidParameter for unknown metric,
// linkage, or algorithm names.
func ClusterSamples(m *ExpressionMatrix, k int, cfg ClusteringConfig) (*ClusterAssignment, []int, error) {
	samples := m.Samples()
	if k < 1 || k > samples {
		return nil, nil, fmt.Errorf("%w: %d clusters requested for %d samples",
			ErrDegenerateClustering, k, samples)
	}

	switch cfg.Algorithm {
	case KMeansAlgorithm:
		maxIter := cfg.MaxIterations
		if maxIter == 0 {
			maxIter = 100
		}
		raw, err := kmeansPartition(m.sampleVectors(), k, cfg.Seed, maxIter)
		if err != nil {
			return nil, nil, err
		}
		return newAssignment(m.SampleIDs, raw, k)

	case HClustAlgorithm:
		sampleDist, err := sampleDistanceFunc(cfg.Distance, cfg.MinkowskiP)
		if err != nil {
			return nil, nil, err
		}
		probeDist, err := probeDistanceFunc(cfg.ProbeDistance)
		if err != nil {
			return nil, nil, err
		}

		merges, err := agglomerate(pairwiseDistances(m.sampleVectors(), sampleDist), samples, cfg.Linkage)
		if err != nil {
			return nil, nil, err
		}
		labels, err := cutTree(merges, samples, k)
		if err != nil {
			return nil, nil, err
		}

		// Independent probe clustering, purely for display order.
		probeVecs := make([][]float64, m.Probes())
		for i := range probeVecs {
			probeVecs[i] = m.Row(i)
		}
		probeMerges, err := agglomerate(pairwiseDistances(probeVecs, probeDist), len(probeVecs), cfg.Linkage)
		if err != nil {
			return nil, nil, err
		}
		ordering := leafOrder(probeMerges, len(probeVecs))

		asg := &ClusterAssignment{SampleIDs: m.SampleIDs, Labels: labels, K: k}
		if _, err := asg.clusterSizes(); err != nil {
			return nil, nil, fmt.Errorf("%w: dendrogram cut left an unused label", ErrDegenerateClustering)
		}
		return asg, ordering, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown clustering algorithm %q", ErrInvalidParameter, cfg.Algorithm)
	}
}

// newAssignment converts 0-based raw labels into a ClusterAssignment with
// labels 1..k assigned in order of first appearance, and verifies every
// label is used.
func newAssignment(sampleIDs []string, raw []int, k int) (*ClusterAssignment, []int, error) {
	relabel := make(map[int]int, k)
	labels := make([]int, len(raw))
	next := 1
	for i, r := range raw {
		l, ok := relabel[r]
		if !ok {
			l = next
			relabel[r] = l
			next++
		}
		labels[i] = l
	}
	asg := &ClusterAssignment{SampleIDs: sampleIDs, Labels: labels, K: k}
	if _, err := asg.clusterSizes(); err != nil {
		return nil, nil, fmt.Errorf("%w: clustering left an empty cluster", ErrDegenerateClustering)
	}
	return asg, nil, nil
}
