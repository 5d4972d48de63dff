package exprcluster

import "fmt"

// AverageExpression computes, for every probe and cluster label, the mean
// expression across the samples assigned to that cluster. The assignment
// must cover exactly the matrix's sample columns. Per-probe work is split
// across numWorkers row-range workers (<= 1 means sequential).
//
// The result satisfies the weighted-mean identity: for every probe,
// Σ_label size(label)·mean(label) equals the sum of the probe's raw values.
func AverageExpression(m *ExpressionMatrix, asg *ClusterAssignment, numWorkers int) (*AverageExpressionMatrix, error) {
	if len(asg.SampleIDs) != m.Samples() {
		return nil, fmt.Errorf("%w: assignment covers %d samples, matrix has %d",
			ErrInvalidParameter, len(asg.SampleIDs), m.Samples())
	}
	for j, id := range m.SampleIDs {
		if asg.SampleIDs[j] != id {
			return nil, fmt.Errorf("%w: assignment sample %q at column %d, matrix has %q",
				ErrInvalidParameter, asg.SampleIDs[j], j, id)
		}
	}

	sizes, err := asg.clusterSizes()
	if err != nil {
		return nil, err
	}

	return &AverageExpressionMatrix{
		ProbeIDs: m.ProbeIDs,
		K:        asg.K,
		Data:     clusterMeansParallel(m, asg.Labels, sizes, asg.K, numWorkers),
	}, nil
}
