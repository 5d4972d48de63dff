package exprcluster

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-logr/logr"
)

// Config controls the full analysis pipeline.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// ProbeCount decides how many probes to retain.
	// Default: PercentCount(10).
	ProbeCount ProbeCountMode

	// RankMethod scores and orders probes. Default: SDRank. Must be
	// PolyRank when ProbeCount is PolyCount, since that selection is
	// curve-implied rather than count-driven.
	RankMethod RankMethod

	// ClusterCount decides how many sample clusters to form.
	// Default: FixedClusters(2).
	ClusterCount ClusterCountMode

	// Clustering configures the partitioning stage.
	// Default: DefaultClusteringConfig().
	Clustering ClusteringConfig

	// Workers controls goroutines for the per-probe stages (ranking
	// statistics, cluster means). 0 means runtime.NumCPU().
	Workers int

	// Logger receives warnings (dropped clinical samples) and stage
	// progress. Default: logr.Discard().
	Logger logr.Logger
}

// DefaultConfig returns a Config with reasonable defaults: keep the top 10%
// of probes by standard deviation and split samples into two groups by Ward
// hierarchical clustering.
func DefaultConfig() Config {
	return Config{
		ProbeCount:   PercentCount(10),
		RankMethod:   SDRank,
		ClusterCount: FixedClusters(2),
		Clustering:   DefaultClusteringConfig(),
		Workers:      0,
		Logger:       logr.Discard(),
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ProbeCount == nil {
		cfg.ProbeCount = PercentCount(10)
	}
	if cfg.RankMethod == "" {
		cfg.RankMethod = SDRank
	}
	if cfg.ClusterCount == nil {
		cfg.ClusterCount = FixedClusters(2)
	}
	if cfg.Clustering.Algorithm == "" {
		cfg.Clustering = DefaultClusteringConfig()
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
}

func validateConfig(cfg *Config) error {
	_, isPolyCount := cfg.ProbeCount.(PolyCount)
	if isPolyCount != (cfg.RankMethod == PolyRank) {
		return fmt.Errorf("%w: PolyCount and PolyRank must be used together", ErrConflictingParameters)
	}
	return nil
}

// Result contains every artifact of a pipeline run, in stage order.
// Diagnostic reports are nil unless the corresponding adaptive mode ran,
// and Survival is nil when no clinical records were supplied.
type Result struct {
	// ProbeCount is the number of probes retained by the selector. For
	// curve-implied selection it equals Ranked.Probes().
	ProbeCount int

	// Ranked is the reduced matrix: the selected probes in descending score
	// order, all sample columns unchanged.
	Ranked *ExpressionMatrix

	// ClusterCount is the number of sample clusters formed.
	ClusterCount int

	// Assignment maps each sample to a cluster label 1..ClusterCount.
	Assignment *ClusterAssignment

	// ProbeOrdering is the probe display order from hierarchical
	// clustering's row dendrogram (indices into Ranked's rows), or nil for
	// k-means.
	ProbeOrdering []int

	// Averages is the per-cluster mean expression of every ranked probe.
	Averages *AverageExpressionMatrix

	// Survival compares survival across clusters; nil when no clinical
	// records were supplied.
	Survival *SurvivalResult

	// Mixture is the adaptive probe-count diagnostic report, if that mode ran.
	Mixture *MixtureReport

	// Gap is the gap-statistic diagnostic report, if that mode ran.
	Gap *GapReport
}

// Run executes the five pipeline stages in order: probe-count selection,
// probe ranking, cluster-count selection, sample clustering, and
// summarization. Each stage consumes the previous stage's output; nothing is
// mutated in place. ctx cancels the long-running selectors (mixture EM, gap
// bootstrap) between iterations.
//
// clinical may be nil to skip survival analysis; samples missing from a
// non-nil map are dropped from the survival stage with a warning.
func Run(ctx context.Context, m *ExpressionMatrix, clinical map[string]ClinicalRecord, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	res := &Result{}

	count, mixture, err := SelectProbeCount(ctx, m, cfg.ProbeCount)
	if err != nil {
		return nil, err
	}
	res.ProbeCount = count
	res.Mixture = mixture
	cfg.Logger.V(1).Info("probe count selected", "count", count, "total", m.Probes())

	rankCount := count
	if cfg.RankMethod == PolyRank {
		rankCount = 0
	}
	ranked, err := RankProbes(m, rankCount, cfg.RankMethod, cfg.Workers)
	if err != nil {
		return nil, err
	}
	res.Ranked = ranked
	res.ProbeCount = ranked.Probes()

	k, gap, err := SelectClusterCount(ctx, ranked, cfg.ClusterCount)
	if err != nil {
		return nil, err
	}
	res.ClusterCount = k
	res.Gap = gap
	cfg.Logger.V(1).Info("cluster count selected", "k", k)

	assignment, ordering, err := ClusterSamples(ranked, k, cfg.Clustering)
	if err != nil {
		return nil, err
	}
	res.Assignment = assignment
	res.ProbeOrdering = ordering

	averages, err := AverageExpression(ranked, assignment, cfg.Workers)
	if err != nil {
		return nil, err
	}
	res.Averages = averages

	if clinical != nil {
		survival, err := SurvivalAnalysis(assignment, clinical, cfg.Logger)
		if err != nil {
			return nil, err
		}
		res.Survival = survival
	}

	return res, nil
}
