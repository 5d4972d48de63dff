package exprcluster

import (
	"math"
	"testing"
)

func TestSampleMetricValues(t *testing.T) {
	a := []float64{0, 3, 1}
	b := []float64{4, 0, 1}

	tests := []struct {
		metric SampleMetric
		p      float64
		want   float64
	}{
		{MetricEuclidean, 0, 5},
		{MetricManhattan, 0, 7},
		{MetricMaximum, 0, 4},
		{MetricMinkowski, 1, 7},
		{MetricMinkowski, 2, 5},
		// canberra: |0-4|/4 + |3-0|/3 + 0/2 = 2
		{MetricCanberra, 0, 2},
		// binary: positions 0,1 discordant, position 2 concordant-on -> 2/3
		{MetricBinary, 0, 2.0 / 3},
	}
	for _, tt := range tests {
		f, err := sampleDistanceFunc(tt.metric, tt.p)
		if err != nil {
			t.Fatalf("%s: %v", tt.metric, err)
		}
		if got := f(a, b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s(p=%v): got %v, want %v", tt.metric, tt.p, got, tt.want)
		}
	}
}

func TestBinaryDistanceAllZero(t *testing.T) {
	f, err := sampleDistanceFunc(MetricBinary, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := f([]float64{0, 0}, []float64{0, 0}); got != 0 {
		t.Errorf("all-zero vectors: got %v, want 0", got)
	}
}

func TestProbeCorrelationDistances(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5}
	down := []float64{5, 4, 3, 2, 1}
	scaled := []float64{2, 4, 6, 8, 10}

	for _, tt := range []struct {
		name   string
		metric ProbeMetric
		a, b   []float64
		want   float64
	}{
		{"pearson identical trend", ProbeMetricPearson, up, scaled, 0},
		{"pearson opposite trend", ProbeMetricPearson, up, down, 2},
		{"abspearson opposite trend", ProbeMetricAbsPearson, up, down, 0},
		{"spearman monotone", ProbeMetricSpearman, up, []float64{1, 10, 100, 1000, 10000}, 0},
		{"kendall opposite", ProbeMetricKendall, up, down, 2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f, err := probeDistanceFunc(tt.metric)
			if err != nil {
				t.Fatal(err)
			}
			if got := f(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRanksAverageTies(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranks: got %v, want %v", got, want)
		}
	}
}

func TestPairwiseDistancesSymmetric(t *testing.T) {
	vecs := [][]float64{{0, 0}, {3, 4}, {6, 8}}
	f, _ := sampleDistanceFunc(MetricEuclidean, 0)
	d := pairwiseDistances(vecs, f)
	n := len(vecs)
	for i := 0; i < n; i++ {
		if d[i*n+i] != 0 {
			t.Errorf("diagonal %d: got %v", i, d[i*n+i])
		}
		for j := 0; j < n; j++ {
			if d[i*n+j] != d[j*n+i] {
				t.Errorf("asymmetry at (%d,%d)", i, j)
			}
		}
	}
	if d[0*n+1] != 5 || d[0*n+2] != 10 {
		t.Errorf("distances: got %v", d)
	}
}
