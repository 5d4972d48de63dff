package exprcluster

import (
	"fmt"
	"math"
)

// ExpressionMatrix is a real-valued probes × samples matrix in flat row-major
// layout. Row order is preserved for reproducibility; probe and sample IDs
// are unique. Values are assumed normalized upstream; the constructor rejects
// NaN and infinite cells but performs no other numeric validation.
//
// An ExpressionMatrix is immutable once built. Pipeline stages that subset or
// reorder rows return a new matrix sharing no storage with the input.
type ExpressionMatrix struct {
	ProbeIDs  []string
	SampleIDs []string
	// Data holds Probes()*Samples() values; Data[i*Samples()+j] is the
	// expression of probe i in sample j.
	Data []float64
}

// NewExpressionMatrix validates IDs and values and returns the matrix.
// Returns ErrInvalidParameter for dimension/ID problems and ErrInvalidData
// for non-finite cells.
func NewExpressionMatrix(probeIDs, sampleIDs []string, data []float64) (*ExpressionMatrix, error) {
	if len(probeIDs) == 0 || len(sampleIDs) == 0 {
		return nil, fmt.Errorf("%w: matrix must have at least one probe and one sample", ErrInvalidParameter)
	}
	if len(data) != len(probeIDs)*len(sampleIDs) {
		return nil, fmt.Errorf("%w: data length %d does not match %d probes × %d samples",
			ErrInvalidParameter, len(data), len(probeIDs), len(sampleIDs))
	}
	if dup, ok := firstDuplicate(probeIDs); ok {
		return nil, fmt.Errorf("%w: duplicate probe ID %q", ErrInvalidParameter, dup)
	}
	if dup, ok := firstDuplicate(sampleIDs); ok {
		return nil, fmt.Errorf("%w: duplicate sample ID %q", ErrInvalidParameter, dup)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %v at probe %q, sample %q",
				ErrInvalidData, v, probeIDs[i/len(sampleIDs)], sampleIDs[i%len(sampleIDs)])
		}
	}
	return &ExpressionMatrix{ProbeIDs: probeIDs, SampleIDs: sampleIDs, Data: data}, nil
}

// Probes returns the number of rows.
func (m *ExpressionMatrix) Probes() int { return len(m.ProbeIDs) }

// Samples returns the number of columns.
func (m *ExpressionMatrix) Samples() int { return len(m.SampleIDs) }

// Row returns probe i's values across all samples. The returned slice aliases
// the matrix storage and must not be modified.
func (m *ExpressionMatrix) Row(i int) []float64 {
	s := m.Samples()
	return m.Data[i*s : (i+1)*s]
}

// At returns the expression of probe i in sample j.
func (m *ExpressionMatrix) At(i, j int) float64 {
	return m.Data[i*m.Samples()+j]
}

// subsetRows builds a new matrix containing the given probe rows in the given
// order. Sample columns are unchanged.
func (m *ExpressionMatrix) subsetRows(rows []int) *ExpressionMatrix {
	s := m.Samples()
	out := &ExpressionMatrix{
		ProbeIDs:  make([]string, len(rows)),
		SampleIDs: m.SampleIDs,
		Data:      make([]float64, len(rows)*s),
	}
	for k, r := range rows {
		out.ProbeIDs[k] = m.ProbeIDs[r]
		copy(out.Data[k*s:(k+1)*s], m.Row(r))
	}
	return out
}

// sampleVectors returns one vector per sample (the matrix columns), each of
// dimension Probes(). Used by the clustering stages, which partition samples.
func (m *ExpressionMatrix) sampleVectors() [][]float64 {
	p, s := m.Probes(), m.Samples()
	vecs := make([][]float64, s)
	flat := make([]float64, s*p)
	for j := 0; j < s; j++ {
		v := flat[j*p : (j+1)*p]
		for i := 0; i < p; i++ {
			v[i] = m.Data[i*s+j]
		}
		vecs[j] = v
	}
	return vecs
}

// ClusterAssignment maps each sample to a cluster label in 1..K. Labels is
// aligned with SampleIDs; every label in 1..K is used by at least one sample.
type ClusterAssignment struct {
	SampleIDs []string
	Labels    []int
	K         int
}

// ByID returns the assignment as a sample-ID keyed map.
func (a *ClusterAssignment) ByID() map[string]int {
	out := make(map[string]int, len(a.SampleIDs))
	for i, id := range a.SampleIDs {
		out[id] = a.Labels[i]
	}
	return out
}

// clusterSizes counts samples per label (index 0 unused). Returns
// ErrEmptyCluster if any label in 1..K has no samples.
func (a *ClusterAssignment) clusterSizes() ([]int, error) {
	sizes := make([]int, a.K+1)
	for _, l := range a.Labels {
		if l < 1 || l > a.K {
			return nil, fmt.Errorf("%w: label %d outside 1..%d", ErrInvalidData, l, a.K)
		}
		sizes[l]++
	}
	for l := 1; l <= a.K; l++ {
		if sizes[l] == 0 {
			return nil, fmt.Errorf("%w: label %d has no samples", ErrEmptyCluster, l)
		}
	}
	return sizes, nil
}

// AverageExpressionMatrix holds per-cluster mean expression: rows are probes
// (same set and order as the ranked matrix), columns are cluster labels 1..K.
type AverageExpressionMatrix struct {
	ProbeIDs []string
	K        int
	// Data[i*K + (label-1)] is the mean of probe i over cluster label.
	Data []float64
}

// At returns the mean expression of probe i in cluster label (1-based).
func (m *AverageExpressionMatrix) At(i, label int) float64 {
	return m.Data[i*m.K+label-1]
}

// ClinicalRecord is one sample's survival observation: follow-up time in
// months and whether the event was observed (false = censored).
type ClinicalRecord struct {
	TimeMonths float64
	Event      bool
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}
