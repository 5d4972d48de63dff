package exprcluster

import (
	"context"
	"fmt"
)

// ClusterCountMode decides how many sample clusters the engine forms.
type ClusterCountMode interface {
	isClusterCountMode()
}

// FixedClusters uses exactly k clusters.
type FixedClusters int

// GapStatistic estimates the cluster count with the Tibshirani gap statistic:
// for each candidate k it compares the observed within-cluster dispersion to
// the dispersion of Bootstraps uniform reference datasets drawn from the
// data's per-feature bounding box, and picks the smallest k satisfying the
// 1-SE rule Gap(k) >= Gap(k+1) − s(k+1).
//
// The bootstrap loop is the expensive path of cluster-count selection
// (Bootstraps × MaxK k-means runs). ctx is checked between bootstrap
// iterations; cancellation propagates without retry.
type GapStatistic struct {
	// MaxK bounds the candidate cluster counts. 0 means min(10, samples−1).
	MaxK int
	// Bootstraps is the number of reference datasets per candidate k.
	// 0 means 50.
	Bootstraps int
	// Seed drives the reference draws and the internal k-means seeding.
	Seed uint64
}

func (FixedClusters) isClusterCountMode() {}
func (GapStatistic) isClusterCountMode()  {}

// SelectClusterCount decides the number of sample clusters. The report is
// non-nil only for GapStatistic, which emits its per-k traces for plotting.
func SelectClusterCount(ctx context.Context, m *ExpressionMatrix, mode ClusterCountMode) (int, *GapReport, error) {
	samples := m.Samples()
	switch md := mode.(type) {
	case FixedClusters:
		k := int(md)
		if k < 1 || k > samples {
			return 0, nil, fmt.Errorf("%w: cluster count %d outside 1..%d", ErrInvalidParameter, k, samples)
		}
		return k, nil, nil

	case GapStatistic:
		report, err := gapStatistic(ctx, m, md)
		if err != nil {
			return 0, nil, err
		}
		return report.ChosenK, report, nil

	default:
		return 0, nil, fmt.Errorf("%w: unknown cluster-count mode %T", ErrInvalidParameter, mode)
	}
}
