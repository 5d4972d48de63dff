package exprcluster

import (
	"context"
	"fmt"
	"math"
)

// ProbeCountMode selects how many probes the ranking stage retains. Exactly
// one mode is supplied per call; the tagged types make conflicting modes
// unrepresentable. Use ResolveProbeCountMode to bridge flag-style inputs
// where several nullable parameters could historically be set at once.
type ProbeCountMode interface {
	isProbeCountMode()
}

// FixedCount retains exactly n probes.
type FixedCount int

// PercentCount retains round(p/100 × totalProbes) probes, p in (0, 100].
type PercentCount float64

// PolyCount derives the count from three quadratic SD~mean regressions
// (all probes, probes above the median mean, probes below): a probe counts
// if its SD exceeds the fitted expectation of any applicable curve.
type PolyCount struct{}

// AdaptiveCount fits a univariate Gaussian mixture over per-probe CV and
// returns the number of probes assigned to the highest-CV component.
// Component counts 1..MaxComponents are scored by BIC.
//
// Cost is O(probes × EM iterations × components tried); on large matrices
// this is the slowest selector. The fit checks ctx between EM iterations and
// stops with ctx.Err() on cancellation.
type AdaptiveCount struct {
	// MaxComponents bounds the mixture sizes tried. 0 means 5.
	MaxComponents int
	// MaxIterations caps EM iterations per component count. 0 means 200.
	MaxIterations int
	// Tolerance is the log-likelihood improvement below which EM stops.
	// 0 means 1e-6.
	Tolerance float64
}

func (FixedCount) isProbeCountMode()    {}
func (PercentCount) isProbeCountMode()  {}
func (PolyCount) isProbeCountMode()     {}
func (AdaptiveCount) isProbeCountMode() {}

// ResolveProbeCountMode converts legacy flag-style selection parameters
// (several nullable values, exactly one expected) into a ProbeCountMode.
// Returns ErrConflictingParameters if more than one is set and
// ErrInvalidParameter if none is.
func ResolveProbeCountMode(fixed *int, percent *float64, poly, adaptive bool) (ProbeCountMode, error) {
	var modes []ProbeCountMode
	if fixed != nil {
		modes = append(modes, FixedCount(*fixed))
	}
	if percent != nil {
		modes = append(modes, PercentCount(*percent))
	}
	if poly {
		modes = append(modes, PolyCount{})
	}
	if adaptive {
		modes = append(modes, AdaptiveCount{})
	}
	switch len(modes) {
	case 0:
		return nil, fmt.Errorf("%w: no probe-count selection mode supplied", ErrInvalidParameter)
	case 1:
		return modes[0], nil
	default:
		return nil, fmt.Errorf("%w: %d probe-count selection modes supplied, want exactly 1",
			ErrConflictingParameters, len(modes))
	}
}

// SelectProbeCount decides how many probes to retain. The report is non-nil
// only for AdaptiveCount, which emits mixture diagnostics as a side output.
// Fixed and Percent modes are pure functions of their parameter and the
// probe total; Poly and Adaptive depend on the matrix contents.
func SelectProbeCount(ctx context.Context, m *ExpressionMatrix, mode ProbeCountMode) (int, *MixtureReport, error) {
	total := m.Probes()
	switch md := mode.(type) {
	case FixedCount:
		n := int(md)
		if n <= 0 || n > total {
			return 0, nil, fmt.Errorf("%w: fixed probe count %d outside 1..%d", ErrInvalidParameter, n, total)
		}
		return n, nil, nil

	case PercentCount:
		p := float64(md)
		if p <= 0 || p > 100 {
			return 0, nil, fmt.Errorf("%w: probe percentage %v outside (0, 100]", ErrInvalidParameter, p)
		}
		n := int(math.Round(p / 100 * float64(total)))
		if n < 1 {
			n = 1
		}
		return n, nil, nil

	case PolyCount:
		stats := computeProbeStats(m)
		rows, err := polySelectRows(stats)
		if err != nil {
			return 0, nil, err
		}
		return len(rows), nil, nil

	case AdaptiveCount:
		stats := computeProbeStats(m)
		report, err := fitCVMixture(ctx, stats, md)
		if err != nil {
			return 0, nil, err
		}
		return report.SelectedProbes, report, nil

	default:
		return 0, nil, fmt.Errorf("%w: unknown probe-count mode %T", ErrInvalidParameter, mode)
	}
}
