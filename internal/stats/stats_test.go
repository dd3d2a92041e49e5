package stats

import (
	"math"
	"testing"
)

func TestRankWithTies(t *testing.T) {
	got := RankWithTies([]float64{1, 2, 2, 4})
	want := []float64{1, 2.5, 2.5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRankWithTiesAllEqual(t *testing.T) {
	got := RankWithTies([]float64{5, 5, 5})
	for i, r := range got {
		if r != 2 {
			t.Fatalf("rank[%d] = %v, want 2", i, r)
		}
	}
}

func TestSpearmanIdenticalOrder(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{10, 20, 30, 40, 50}
	if r := Spearman(a, b); math.Abs(r-1) > 1e-12 {
		t.Fatalf("expected ~1, got %v", r)
	}
}

func TestSpearmanInverted(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{50, 40, 30, 20, 10}
	if r := Spearman(a, b); math.Abs(r+1) > 1e-12 {
		t.Fatalf("expected ~-1, got %v", r)
	}
}

func TestSpearmanTooShort(t *testing.T) {
	if r := Spearman([]float64{1}, []float64{2}); !math.IsNaN(r) {
		t.Fatalf("expected NaN for single element, got %v", r)
	}
}

func TestWinsorizeBounds(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	out := Winsorize(xs, 0.05, 0.95)
	if len(out) != len(xs) {
		t.Fatalf("length changed: %d", len(out))
	}
	var mn, mx = out[0], out[0]
	for _, v := range out {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	if mn != 1 {
		t.Fatalf("min changed, got %v", mn)
	}
	if mx >= 100 {
		t.Fatalf("outlier not clipped, max %v", mx)
	}
	for _, v := range out {
		if v < 1 || v > 100 {
			t.Fatalf("value %v outside original range", v)
		}
	}
}

func TestMedianEven(t *testing.T) {
	if m := Median([]float64{4, 1, 3, 2}); m != 2.5 {
		t.Fatalf("median = %v, want 2.5", m)
	}
}

func TestMedianEmpty(t *testing.T) {
	if m := Median(nil); m != 0 {
		t.Fatalf("median of empty = %v, want 0", m)
	}
}

func TestPopStdDevEmpty(t *testing.T) {
	if sd := PopStdDev(nil); !math.IsNaN(sd) {
		t.Fatalf("expected NaN for empty input, got %v", sd)
	}
}

func TestPopStdDevConstant(t *testing.T) {
	if sd := PopStdDev([]float64{0.5, 0.5, 0.5}); sd != 0 {
		t.Fatalf("expected 0 for constant input, got %v", sd)
	}
}

func TestRollingMeans(t *testing.T) {
	out := RollingMeans([]float64{1, 2, 3, 4}, 2)
	want := []float64{1.5, 2.5, 3.5}
	if len(out) != len(want) {
		t.Fatalf("got %d windows, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("window[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestRollingMeansShortInput(t *testing.T) {
	out := RollingMeans([]float64{2, 4}, 6)
	if len(out) != 1 || out[0] != 3 {
		t.Fatalf("expected single window of 3, got %v", out)
	}
}

func TestLogLoss(t *testing.T) {
	got := LogLoss(0.2, false)
	want := -math.Log(0.8)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("logloss = %v, want %v", got, want)
	}
	if !math.IsInf(LogLoss(0, true), 1) {
		t.Fatalf("expected +Inf for p=0 with true label")
	}
}

func TestEntropyUniform(t *testing.T) {
	ws := map[string]float64{"a": 0.5, "b": 0.5, "c": 0}
	got := Entropy(ws)
	want := math.Log(2)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("entropy = %v, want %v", got, want)
	}
}
