package exprcluster

import (
	"math"
	"testing"
)

func TestFitQuadraticRecoversExactPolynomial(t *testing.T) {
	// y = 2 − x + 0.5x²
	xs := []float64{-2, -1, 0, 1, 2, 3}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2 - x + 0.5*x*x
	}
	fit, ok := fitQuadratic(xs, ys)
	if !ok {
		t.Fatal("fit failed")
	}
	want := quadFit{2, -1, 0.5}
	for i := range want {
		if math.Abs(fit[i]-want[i]) > 1e-9 {
			t.Errorf("coefficient %d: got %v, want %v", i, fit[i], want[i])
		}
	}
	if got := fit.eval(4); math.Abs(got-(2-4+8)) > 1e-9 {
		t.Errorf("eval(4): got %v, want 6", got)
	}
}

func TestFitQuadraticDegenerateInputs(t *testing.T) {
	if _, ok := fitQuadratic([]float64{1, 2}, []float64{1, 2}); ok {
		t.Error("fit succeeded with 2 points")
	}
	// identical x values make the design matrix rank-deficient
	if _, ok := fitQuadratic([]float64{3, 3, 3, 3}, []float64{1, 2, 3, 4}); ok {
		t.Error("fit succeeded on constant x")
	}
}

func TestPolySelectRowsFlagsOutliers(t *testing.T) {
	// 30 probes on a smooth SD~mean trend plus 3 with far higher SD
	stats := make([]probeStat, 0, 33)
	for i := 0; i < 30; i++ {
		mean := 1 + float64(i)*0.2
		stats = append(stats, probeStat{Mean: mean, SD: 0.1 + 0.05*mean})
	}
	for i := 0; i < 3; i++ {
		mean := 2 + float64(i)
		stats = append(stats, probeStat{Mean: mean, SD: 5})
	}
	rows, err := polySelectRows(stats)
	if err != nil {
		t.Fatalf("polySelectRows: %v", err)
	}
	selected := make(map[int]bool, len(rows))
	for _, r := range rows {
		selected[r] = true
	}
	for i := 30; i < 33; i++ {
		if !selected[i] {
			t.Errorf("high-SD probe %d not selected", i)
		}
	}
	if len(rows) > 15 {
		t.Errorf("selected %d probes, expected mostly the 3 outliers", len(rows))
	}
}
