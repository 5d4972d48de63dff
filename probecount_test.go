package exprcluster

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFixedCountIsPure(t *testing.T) {
	m := twoGroupMatrix(t, 20, 6, 10)
	for _, n := range []int{1, 7, 20} {
		got, report, err := SelectProbeCount(context.Background(), m, FixedCount(n))
		if err != nil {
			t.Fatalf("FixedCount(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("FixedCount(%d): got %d", n, got)
		}
		if report != nil {
			t.Errorf("FixedCount(%d): unexpected mixture report", n)
		}
	}
}

func TestPercentCount(t *testing.T) {
	m := twoGroupMatrix(t, 200, 6, 10)
	tests := []struct {
		percent float64
		want    int
	}{
		{100, 200},
		{50, 100},
		{10, 20},
		{0.1, 1}, // rounds to 0, floored at 1
		{33.3, 67},
	}
	for _, tt := range tests {
		got, _, err := SelectProbeCount(context.Background(), m, PercentCount(tt.percent))
		if err != nil {
			t.Fatalf("PercentCount(%v): %v", tt.percent, err)
		}
		if got != tt.want {
			t.Errorf("PercentCount(%v): got %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestSelectProbeCountRejectsBadParameters(t *testing.T) {
	m := twoGroupMatrix(t, 20, 6, 10)
	tests := []struct {
		name string
		mode ProbeCountMode
	}{
		{"fixed negative", FixedCount(-5)},
		{"fixed zero", FixedCount(0)},
		{"fixed too large", FixedCount(21)},
		{"percent zero", PercentCount(0)},
		{"percent negative", PercentCount(-10)},
		{"percent above 100", PercentCount(100.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SelectProbeCount(context.Background(), m, tt.mode)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestResolveProbeCountMode(t *testing.T) {
	n := 10
	p := 25.0

	mode, err := ResolveProbeCountMode(&n, nil, false, false)
	if err != nil {
		t.Fatalf("fixed only: %v", err)
	}
	if got, ok := mode.(FixedCount); !ok || int(got) != 10 {
		t.Errorf("fixed only: got %#v", mode)
	}

	if _, err := ResolveProbeCountMode(&n, &p, false, false); !errors.Is(err, ErrConflictingParameters) {
		t.Errorf("fixed+percent: got %v, want ErrConflictingParameters", err)
	}
	if _, err := ResolveProbeCountMode(nil, &p, true, false); !errors.Is(err, ErrConflictingParameters) {
		t.Errorf("percent+poly: got %v, want ErrConflictingParameters", err)
	}
	if _, err := ResolveProbeCountMode(nil, nil, false, false); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("none: got %v, want ErrInvalidParameter", err)
	}
}

// highVarMatrix builds a matrix where the first nHigh probes swing strongly
// across samples and the rest are nearly flat around distinct levels.
func highVarMatrix(t *testing.T, nHigh, nLow, samples int) *ExpressionMatrix {
	t.Helper()
	probes := nHigh + nLow
	probeIDs := make([]string, probes)
	sampleIDs := make([]string, samples)
	for i := range probeIDs {
		probeIDs[i] = fmt.Sprintf("probe%d", i)
	}
	for j := range sampleIDs {
		sampleIDs[j] = fmt.Sprintf("sample%d", j)
	}
	data := make([]float64, probes*samples)
	for i := 0; i < probes; i++ {
		for j := 0; j < samples; j++ {
			if i < nHigh {
				// large alternating swings around level 10, plus a small
				// per-sample jitter so no two columns coincide
				v := 10.0 + 0.01*float64(j)
				if j%2 == 0 {
					v += 8 + 0.1*float64(i)
				} else {
					v -= 8 + 0.1*float64(i)
				}
				data[i*samples+j] = v
			} else {
				// tight spread around a level that varies by probe
				data[i*samples+j] = 5 + 0.05*float64(i) + 0.01*float64(j)
			}
		}
	}
	return mustMatrix(t, probeIDs, sampleIDs, data)
}

func TestPolyCountSelectsHighVarianceProbes(t *testing.T) {
	m := highVarMatrix(t, 10, 90, 8)
	got, _, err := SelectProbeCount(context.Background(), m, PolyCount{})
	if err != nil {
		t.Fatalf("PolyCount: %v", err)
	}
	if got < 1 || got > m.Probes() {
		t.Fatalf("PolyCount: count %d outside 1..%d", got, m.Probes())
	}
	// the curve-implied count should land near the high-variance group size
	if got > 40 {
		t.Errorf("PolyCount: got %d, expected a small high-variance subset", got)
	}
}

func TestPolyCountNeedsThreeProbes(t *testing.T) {
	m := mustMatrix(t, []string{"p1", "p2"}, []string{"s1", "s2"}, []float64{1, 2, 3, 4})
	if _, _, err := SelectProbeCount(context.Background(), m, PolyCount{}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}

func TestAdaptiveCountCancellation(t *testing.T) {
	m := highVarMatrix(t, 10, 90, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := SelectProbeCount(ctx, m, AdaptiveCount{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
