// Package exprcluster implements a gene-expression analysis pipeline: given
// a probes × samples expression matrix it selects an informative probe
// subset, clusters the samples, and correlates the clusters with clinical
// survival outcome.
//
// The pipeline has five stages, each consuming the previous stage's output:
// probe-count selection, probe ranking, cluster-count selection, sample
// clustering, and cluster summarization (per-cluster mean expression plus
// Cox/log-rank/Kaplan–Meier survival statistics).
//
// Basic usage:
//
//	cfg := exprcluster.DefaultConfig()
//	cfg.ProbeCount = exprcluster.FixedCount(500)
//	cfg.ClusterCount = exprcluster.FixedClusters(3)
//	result, err := exprcluster.Run(ctx, matrix, clinical, cfg)
//	// result.Assignment.Labels[j] is the cluster for sample j (1..k)
//	// result.Averages.At(i, label) is probe i's mean in that cluster
//	// result.Survival.PValue is the log-rank p-value across clusters
//
// Stages are also exposed individually (SelectProbeCount, RankProbes,
// SelectClusterCount, ClusterSamples, AverageExpression, SurvivalAnalysis)
// for callers that only need part of the pipeline.
//
// # Long-running selectors
//
// The adaptive probe-count selector (Gaussian-mixture EM) and the
// gap-statistic cluster-count selector (bootstrap resampling) can run for
// a long time on large matrices. Both take a context and check it between
// iterations; cancellation propagates immediately and nothing is retried.
//
// File parsing, normalization, plotting, and output writing are deliberately
// out of scope: the package consumes prebuilt matrices and clinical records
// and returns plain data structures for adapters to render.
package exprcluster
