package exprcluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SurvivalPoint is one step of a Kaplan–Meier curve: the survival probability
// just after Time.
type SurvivalPoint struct {
	Time        float64
	Probability float64
}

// CoxCoefficient is the fitted effect of one cluster relative to the
// baseline cluster (the lowest label with clinical data).
type CoxCoefficient struct {
	Cluster        int
	LogHazardRatio float64
	StdErr         float64
}

// SurvivalResult is the outcome of comparing survival across clusters:
// the log-rank test, the Cox proportional-hazards fit, and per-cluster
// Kaplan–Meier curves for plotting.
type SurvivalResult struct {
	// PValue is the log-rank test p-value (χ² with DF degrees of freedom).
	PValue    float64
	ChiSquare float64
	DF        int

	// Curves maps each cluster label to its Kaplan–Meier curve. Every curve
	// starts at (0, 1) and steps down at observed event times.
	Curves map[int][]SurvivalPoint

	// Coefficients holds one Cox log hazard ratio per non-baseline cluster.
	Coefficients []CoxCoefficient

	// DroppedSamples counts clustered samples that had no clinical record
	// and were excluded from the analysis.
	DroppedSamples int
}

// subject is one joined (assignment, clinical) observation.
type subject struct {
	time  float64
	event bool
	group int // dense 0-based group index
}

// SurvivalAnalysis joins the cluster assignment with clinical records, fits
// per-cluster Kaplan–Meier curves, runs the multi-group log-rank test, and
// fits a Cox proportional-hazards model with cluster label as a categorical
// covariate (Breslow tie handling, Newton–Raphson).
//
// Samples without a clinical record are dropped with a warning on logger and
// counted in DroppedSamples; ErrMissingClinicalData fires only if nothing
// survives the join. Requires at least two non-empty clusters and at least
// one observed event, else ErrInsufficientSurvivalData.
func SurvivalAnalysis(asg *ClusterAssignment, clinical map[string]ClinicalRecord, logger logr.Logger) (*SurvivalResult, error) {
	var subjects []subject
	labels := make([]int, 0, asg.K) // dense group index -> cluster label
	groupOf := make(map[int]int, asg.K)
	dropped := 0

	for i, id := range asg.SampleIDs {
		rec, ok := clinical[id]
		if !ok {
			dropped++
			logger.Info("dropping sample without clinical record", "sample", id)
			continue
		}
		if rec.TimeMonths <= 0 || math.IsNaN(rec.TimeMonths) || math.IsInf(rec.TimeMonths, 0) {
			return nil, fmt.Errorf("%w: survival time %v for sample %q", ErrInvalidData, rec.TimeMonths, id)
		}
		label := asg.Labels[i]
		g, ok := groupOf[label]
		if !ok {
			g = len(labels)
			groupOf[label] = g
			labels = append(labels, label)
		}
		subjects = append(subjects, subject{time: rec.TimeMonths, event: rec.Event, group: g})
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no clustered sample has a clinical record", ErrMissingClinicalData)
	}
	if dropped > 0 {
		logger.Info("survival analysis excluding samples without clinical data", "dropped", dropped)
	}

	// Re-index groups by ascending cluster label so the baseline is the
	// lowest label and output order is stable.
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return labels[order[a]] < labels[order[b]] })
	rank := make([]int, len(labels))
	sortedLabels := make([]int, len(labels))
	for newG, oldG := range order {
		rank[oldG] = newG
		sortedLabels[newG] = labels[oldG]
	}
	for i := range subjects {
		subjects[i].group = rank[subjects[i].group]
	}
	labels = sortedLabels

	totalEvents := 0
	for _, s := range subjects {
		if s.event {
			totalEvents++
		}
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: %d non-empty clusters after the clinical join, need >= 2",
			ErrInsufficientSurvivalData, len(labels))
	}
	if totalEvents == 0 {
		return nil, fmt.Errorf("%w: no observed events", ErrInsufficientSurvivalData)
	}

	curves := make(map[int][]SurvivalPoint, len(labels))
	for g, label := range labels {
		curves[label] = kaplanMeier(subjects, g)
	}

	chi2, df := logRank(subjects, len(labels))
	p := distuv.ChiSquared{K: float64(df)}.Survival(chi2)
	if p <= 0 {
		p = math.SmallestNonzeroFloat64
	}
	if p > 1 {
		p = 1
	}

	coefs, err := coxFit(subjects, labels)
	if err != nil {
		return nil, err
	}

	return &SurvivalResult{
		PValue:         p,
		ChiSquare:      chi2,
		DF:             df,
		Curves:         curves,
		Coefficients:   coefs,
		DroppedSamples: dropped,
	}, nil
}

// kaplanMeier fits the product-limit survival curve for one group.
func kaplanMeier(subjects []subject, group int) []SurvivalPoint {
	var times []float64
	byTime := make(map[float64][2]int) // time -> [events, total leaving]
	atRisk := 0
	for _, s := range subjects {
		if s.group != group {
			continue
		}
		atRisk++
		c := byTime[s.time]
		if s.event {
			c[0]++
		}
		c[1]++
		byTime[s.time] = c
	}
	for t := range byTime {
		times = append(times, t)
	}
	sort.Float64s(times)

	curve := []SurvivalPoint{{Time: 0, Probability: 1}}
	surv := 1.0
	for _, t := range times {
		c := byTime[t]
		if c[0] > 0 {
			surv *= 1 - float64(c[0])/float64(atRisk)
			curve = append(curve, SurvivalPoint{Time: t, Probability: surv})
		}
		atRisk -= c[1]
	}
	return curve
}

// eventTable summarizes the pooled sample at each distinct event time:
// per-group at-risk and event counts, in ascending time order.
type eventTable struct {
	times   []float64
	atRisk  [][]int // per event time, per group
	events  [][]int
	nGroups int
}

func buildEventTable(subjects []subject, nGroups int) *eventTable {
	sorted := make([]subject, len(subjects))
	copy(sorted, subjects)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].time < sorted[b].time })

	et := &eventTable{nGroups: nGroups}
	i := 0
	// Risk counts at time t are subjects with time >= t; walk ascending and
	// subtract those already left.
	risk := make([]int, nGroups)
	for _, s := range sorted {
		risk[s.group]++
	}
	for i < len(sorted) {
		t := sorted[i].time
		ev := make([]int, nGroups)
		leaving := make([]int, nGroups)
		anyEvent := false
		j := i
		for j < len(sorted) && sorted[j].time == t {
			leaving[sorted[j].group]++
			if sorted[j].event {
				ev[sorted[j].group]++
				anyEvent = true
			}
			j++
		}
		if anyEvent {
			r := make([]int, nGroups)
			copy(r, risk)
			et.times = append(et.times, t)
			et.atRisk = append(et.atRisk, r)
			et.events = append(et.events, ev)
		}
		for g, l := range leaving {
			risk[g] -= l
		}
		i = j
	}
	return et
}

// logRank computes the multi-group log-rank χ² statistic with the full
// covariance form over the first nGroups−1 groups, falling back to the
// Σ(O−E)²/E approximation if the covariance matrix is singular.
func logRank(subjects []subject, nGroups int) (chi2 float64, df int) {
	et := buildEventTable(subjects, nGroups)
	df = nGroups - 1

	obs := make([]float64, nGroups)
	exp := make([]float64, nGroups)
	cov := mat.NewSymDense(df, nil)

	for j := range et.times {
		var nj, dj float64
		for g := 0; g < nGroups; g++ {
			nj += float64(et.atRisk[j][g])
			dj += float64(et.events[j][g])
		}
		for g := 0; g < nGroups; g++ {
			ng := float64(et.atRisk[j][g])
			obs[g] += float64(et.events[j][g])
			exp[g] += dj * ng / nj
		}
		if nj <= 1 {
			continue
		}
		scale := dj * (nj - dj) / (nj - 1)
		for g := 0; g < df; g++ {
			ng := float64(et.atRisk[j][g])
			for h := g; h < df; h++ {
				nh := float64(et.atRisk[j][h])
				delta := 0.0
				if g == h {
					delta = 1
				}
				cov.SetSym(g, h, cov.At(g, h)+scale*(ng/nj)*(delta-nh/nj))
			}
		}
	}

	z := mat.NewVecDense(df, nil)
	for g := 0; g < df; g++ {
		z.SetVec(g, obs[g]-exp[g])
	}

	var chol mat.Cholesky
	if chol.Factorize(cov) {
		var sol mat.VecDense
		if err := chol.SolveVecTo(&sol, z); err == nil {
			return mat.Dot(z, &sol), df
		}
	}

	// Singular covariance: conservative approximation.
	for g := 0; g < nGroups; g++ {
		if exp[g] > 0 {
			d := obs[g] - exp[g]
			chi2 += d * d / exp[g]
		}
	}
	return chi2, df
}

// coxFit fits a Cox proportional-hazards model with the cluster label as a
// categorical covariate (one indicator per non-baseline group), using the
// Breslow approximation for ties. Because the covariates are one-hot group
// indicators, the score and information reduce to per-group risk-set sums.
func coxFit(subjects []subject, labels []int) ([]CoxCoefficient, error) {
	nGroups := len(labels)
	p := nGroups - 1
	et := buildEventTable(subjects, nGroups)

	beta := make([]float64, p)
	grad := make([]float64, p)
	hess := mat.NewSymDense(p, nil)

	logLik := func(b []float64) float64 {
		var ll float64
		for j := range et.times {
			var dj, sb, denom float64
			for g := 0; g < nGroups; g++ {
				bg := 0.0
				if g > 0 {
					bg = b[g-1]
				}
				dj += float64(et.events[j][g])
				sb += float64(et.events[j][g]) * bg
				denom += float64(et.atRisk[j][g]) * math.Exp(bg)
			}
			ll += sb - dj*math.Log(denom)
		}
		return ll
	}

	prevLL := logLik(beta)
	for iter := 0; iter < 25; iter++ {
		for g := range grad {
			grad[g] = 0
		}
		hess.Zero()

		for j := range et.times {
			var dj, denom float64
			ew := make([]float64, nGroups) // r_g · exp(β_g)
			for g := 0; g < nGroups; g++ {
				bg := 0.0
				if g > 0 {
					bg = beta[g-1]
				}
				ew[g] = float64(et.atRisk[j][g]) * math.Exp(bg)
				denom += ew[g]
				dj += float64(et.events[j][g])
			}
			for g := 1; g < nGroups; g++ {
				mu := ew[g] / denom
				grad[g-1] += float64(et.events[j][g]) - dj*mu
				for h := g; h < nGroups; h++ {
					muh := ew[h] / denom
					delta := 0.0
					if g == h {
						delta = 1
					}
					hess.SetSym(g-1, h-1, hess.At(g-1, h-1)+dj*mu*(delta-muh))
				}
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(hess) {
			return nil, fmt.Errorf("%w: singular information matrix in Cox fit", ErrInsufficientSurvivalData)
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, mat.NewVecDense(p, grad)); err != nil {
			return nil, fmt.Errorf("%w: Cox Newton step failed", ErrInsufficientSurvivalData)
		}

		// Newton update with step halving if the likelihood worsens.
		scale := 1.0
		var ll float64
		trial := make([]float64, p)
		for h := 0; h < 6; h++ {
			for g := range trial {
				trial[g] = beta[g] + scale*step.AtVec(g)
			}
			ll = logLik(trial)
			if ll >= prevLL || h == 5 {
				break
			}
			scale /= 2
		}
		copy(beta, trial)
		if math.Abs(ll-prevLL) < 1e-9 {
			prevLL = ll
			break
		}
		prevLL = ll
	}

	// Standard errors from the inverse information at the solution.
	var chol mat.Cholesky
	ses := make([]float64, p)
	if chol.Factorize(hess) {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err == nil {
			for g := 0; g < p; g++ {
				ses[g] = math.Sqrt(inv.At(g, g))
			}
		}
	}

	coefs := make([]CoxCoefficient, p)
	for g := 0; g < p; g++ {
		coefs[g] = CoxCoefficient{
			Cluster:        labels[g+1],
			LogHazardRatio: beta[g],
			StdErr:         ses[g],
		}
	}
	return coefs, nil
}
