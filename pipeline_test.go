package exprcluster

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func pipelineFixture(t *testing.T) (*ExpressionMatrix, map[string]ClinicalRecord) {
	t.Helper()
	m := twoGroupMatrix(t, 30, 10, 500)
	clinical := make(map[string]ClinicalRecord, m.Samples())
	for j, id := range m.SampleIDs {
		// first group fails early, second survives censored
		if j < m.Samples()/2 {
			clinical[id] = ClinicalRecord{TimeMonths: float64(j + 1), Event: true}
		} else {
			clinical[id] = ClinicalRecord{TimeMonths: 90 + float64(j), Event: false}
		}
	}
	return m, clinical
}

func TestRunEndToEndHClust(t *testing.T) {
	m, clinical := pipelineFixture(t)

	cfg := DefaultConfig()
	cfg.ProbeCount = FixedCount(12)
	cfg.ClusterCount = FixedClusters(2)

	res, err := Run(context.Background(), m, clinical, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ProbeCount != 12 || res.Ranked.Probes() != 12 {
		t.Errorf("probe count: got %d (%d ranked), want 12", res.ProbeCount, res.Ranked.Probes())
	}
	if res.ClusterCount != 2 || res.Assignment.K != 2 {
		t.Errorf("cluster count: got %d", res.ClusterCount)
	}
	if len(res.ProbeOrdering) != 12 {
		t.Errorf("probe ordering length: got %d, want 12", len(res.ProbeOrdering))
	}
	if res.Averages == nil || len(res.Averages.Data) != 12*2 {
		t.Errorf("averages: %+v", res.Averages)
	}
	if res.Survival == nil {
		t.Fatal("survival result missing")
	}
	if res.Survival.PValue >= 0.05 {
		t.Errorf("p-value: got %v, want < 0.05 for split survival groups", res.Survival.PValue)
	}
	if res.Mixture != nil || res.Gap != nil {
		t.Error("diagnostic reports present for fixed modes")
	}

	// the expression split matches the survival split, so clusters must
	// align with the sample halves
	if res.Assignment.Labels[0] == res.Assignment.Labels[9] {
		t.Error("well-separated sample groups share a cluster")
	}
}

func TestRunEndToEndKMeansNoClinical(t *testing.T) {
	m, _ := pipelineFixture(t)

	cfg := DefaultConfig()
	cfg.ProbeCount = PercentCount(50)
	cfg.RankMethod = CVRank
	cfg.ClusterCount = FixedClusters(2)
	cfg.Clustering = ClusteringConfig{Algorithm: KMeansAlgorithm, Seed: 5}

	res, err := Run(context.Background(), m, nil, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Survival != nil {
		t.Error("survival ran without clinical records")
	}
	if res.ProbeOrdering != nil {
		t.Error("probe ordering present for k-means")
	}
	if res.ProbeCount != 15 {
		t.Errorf("probe count: got %d, want 15", res.ProbeCount)
	}
}

func TestRunPolyModesPairTogether(t *testing.T) {
	m, _ := pipelineFixture(t)

	cfg := DefaultConfig()
	cfg.ProbeCount = PolyCount{}
	cfg.RankMethod = SDRank
	if _, err := Run(context.Background(), m, nil, cfg); !errors.Is(err, ErrConflictingParameters) {
		t.Errorf("PolyCount with SDRank: got %v, want ErrConflictingParameters", err)
	}

	cfg = DefaultConfig()
	cfg.RankMethod = PolyRank
	if _, err := Run(context.Background(), m, nil, cfg); !errors.Is(err, ErrConflictingParameters) {
		t.Errorf("PolyRank without PolyCount: got %v, want ErrConflictingParameters", err)
	}
}

func TestRunPolyPipeline(t *testing.T) {
	m := highVarMatrix(t, 10, 90, 10)

	cfg := DefaultConfig()
	cfg.ProbeCount = PolyCount{}
	cfg.RankMethod = PolyRank
	cfg.ClusterCount = FixedClusters(2)
	cfg.Clustering = ClusteringConfig{Algorithm: KMeansAlgorithm, Seed: 2}

	res, err := Run(context.Background(), m, nil, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ProbeCount != res.Ranked.Probes() {
		t.Errorf("curve-implied count %d disagrees with ranked matrix %d",
			res.ProbeCount, res.Ranked.Probes())
	}
	if res.ProbeCount < 1 {
		t.Error("poly pipeline selected no probes")
	}
}

func TestRunAdaptiveAndGapDiagnostics(t *testing.T) {
	m := highVarMatrix(t, 10, 40, 10)

	cfg := DefaultConfig()
	cfg.ProbeCount = AdaptiveCount{MaxComponents: 3}
	cfg.ClusterCount = GapStatistic{MaxK: 3, Bootstraps: 10, Seed: 4}
	cfg.Clustering = ClusteringConfig{Algorithm: KMeansAlgorithm, Seed: 4}

	res, err := Run(context.Background(), m, nil, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mixture == nil {
		t.Error("mixture report missing for adaptive mode")
	}
	if res.Gap == nil {
		t.Error("gap report missing for gap mode")
	}
}

func TestDefaultConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.ProbeCount.(PercentCount); !ok {
		t.Errorf("ProbeCount: got %T, want PercentCount", cfg.ProbeCount)
	}
	if cfg.RankMethod != SDRank {
		t.Errorf("RankMethod: got %q, want %q", cfg.RankMethod, SDRank)
	}
	if _, ok := cfg.ClusterCount.(FixedClusters); !ok {
		t.Errorf("ClusterCount: got %T, want FixedClusters", cfg.ClusterCount)
	}
	if cfg.Clustering.Algorithm != HClustAlgorithm {
		t.Errorf("Algorithm: got %q, want hclust", cfg.Clustering.Algorithm)
	}
	if cfg.Clustering.Linkage != LinkageWard {
		t.Errorf("Linkage: got %q, want ward", cfg.Clustering.Linkage)
	}
}

func TestRunZeroValueConfig(t *testing.T) {
	m, _ := pipelineFixture(t)
	// the zero Config must be usable with defaults filled in
	res, err := Run(context.Background(), m, nil, Config{})
	if err != nil {
		t.Fatalf("Run with zero config: %v", err)
	}
	if res.Ranked == nil || res.Assignment == nil {
		t.Fatalf("incomplete result: %+v", res)
	}
	// 10% of 30 probes
	if res.ProbeCount != 3 {
		t.Errorf("default probe count: got %d, want 3", res.ProbeCount)
	}
}

func ExampleRun() {
	probeIDs := []string{"TP53", "BRCA1", "EGFR", "MYC"}
	sampleIDs := []string{"s1", "s2", "s3", "s4"}
	data := []float64{
		1.0, 1.1, 9.0, 9.2,
		2.0, 2.2, 8.0, 8.1,
		0.5, 0.4, 7.5, 7.8,
		3.0, 3.1, 6.0, 6.2,
	}
	matrix, err := NewExpressionMatrix(probeIDs, sampleIDs, data)
	if err != nil {
		panic(err)
	}

	cfg := DefaultConfig()
	cfg.ProbeCount = FixedCount(4)
	cfg.ClusterCount = FixedClusters(2)

	result, err := Run(context.Background(), matrix, nil, cfg)
	if err != nil {
		panic(err)
	}
	fmt.Println("clusters:", result.Assignment.Labels)
	// Output:
	// clusters: [1 1 2 2]
}
