package exprcluster

import "errors"

// Error kinds returned by the pipeline stages. Every error returned by this
// package wraps exactly one of these sentinels, so callers can separate
// parameter misuse from data problems with errors.Is.
var (
	// ErrInvalidParameter indicates a user-supplied parameter is out of range
	// or names an unsupported metric/linkage. Parameters are rejected, never
	// clamped.
	ErrInvalidParameter = errors.New("exprcluster: invalid parameter")

	// ErrConflictingParameters indicates more than one selection mode was
	// supplied where exactly one is required.
	ErrConflictingParameters = errors.New("exprcluster: conflicting parameters")

	// ErrInvalidData indicates a malformed input value (NaN or infinite
	// matrix cell, non-positive survival time).
	ErrInvalidData = errors.New("exprcluster: invalid data")

	// ErrDegenerateClustering indicates the requested partition cannot be
	// realized: more clusters than samples, or an empty cluster produced by
	// the algorithm.
	ErrDegenerateClustering = errors.New("exprcluster: degenerate clustering")

	// ErrEmptyCluster indicates a downstream consumer found a cluster label
	// with no samples. Unreachable if clustering upheld its contract, but
	// checked defensively.
	ErrEmptyCluster = errors.New("exprcluster: empty cluster")

	// ErrMissingClinicalData indicates no clustered sample had a clinical
	// record. Individual missing samples are dropped with a warning; this
	// error fires only when nothing survives the join.
	ErrMissingClinicalData = errors.New("exprcluster: missing clinical data")

	// ErrInsufficientSurvivalData indicates survival analysis cannot run:
	// fewer than two non-empty clusters after the clinical join, or no
	// observed events at all.
	ErrInsufficientSurvivalData = errors.New("exprcluster: insufficient survival data")
)
