package sampler

import (
	"testing"
	"time"

	domrepo "ForecastArena/internal/domain/repository"
)

func TestMulberry32Deterministic(t *testing.T) {
	a := NewMulberry32(42)
	b := NewMulberry32(42)
	for i := 0; i < 100; i++ {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatalf("same seed diverged at draw %d: %v vs %v", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, va)
		}
	}
	c := NewMulberry32(43)
	var differs bool
	a = NewMulberry32(42)
	for i := 0; i < 16; i++ {
		if a.Next() != c.Next() {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatalf("different seeds produced identical sequences")
	}
}

func mkPool(n int, step time.Duration, dist float64, label bool) []Candidate {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			SnapTime: base.Add(time.Duration(i) * step),
			Distance: dist,
			Labels:   map[domrepo.Horizon]bool{domrepo.H1h: label},
		}
	}
	return out
}

func TestProximityFiltersAndSeparates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 100
	cfg.MaxDistance = 0.001
	cfg.MinSeparation = 30 * time.Minute
	s := New(cfg, NewMulberry32(1))

	near := mkPool(12, 10*time.Minute, 0.0005, true) // every 10 min
	far := mkPool(12, 10*time.Minute, 0.01, true)
	out := s.Proximity(append(near, far...))

	// 12 instants 10 min apart thinned to one every 30 min
	if len(out) != 4 {
		t.Fatalf("kept %d instants, want 4", len(out))
	}
	for i := 1; i < len(out); i++ {
		if gap := out[i].SnapTime.Sub(out[i-1].SnapTime); gap < cfg.MinSeparation {
			t.Fatalf("gap %v below minimum separation", gap)
		}
	}
	for _, c := range out {
		if c.Distance > cfg.MaxDistance {
			t.Fatalf("distant candidate kept: %v", c.Distance)
		}
	}
}

func TestProximityStopsAtTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 3
	cfg.MinSeparation = time.Minute
	s := New(cfg, NewMulberry32(1))
	out := s.Proximity(mkPool(50, time.Hour, 0.0001, true))
	if len(out) != 3 {
		t.Fatalf("kept %d, want target 3", len(out))
	}
}

func TestBalancedShareWithinBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 10
	s := New(cfg, NewMulberry32(7))

	pool := append(mkPool(20, time.Hour, 0.01, true), mkPool(20, time.Minute, 0.01, false)...)
	out := s.Balanced(pool, domrepo.H1h)
	if len(out) != 10 {
		t.Fatalf("selected %d, want 10", len(out))
	}
	var nPos int
	for _, c := range out {
		if c.Labels[domrepo.H1h] {
			nPos++
		}
	}
	if nPos < 3 || nPos > 7 {
		t.Fatalf("positive count %d outside [3,7]", nPos)
	}
}

func TestBalancedMinorityFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 20
	cfg.MinPositiveFrac = 0
	cfg.MaxPositiveFrac = 0.1 // band alone would allow 2 positives
	cfg.MinMinority = 5
	s := New(cfg, NewMulberry32(7))

	pool := append(mkPool(8, time.Hour, 0.01, true), mkPool(40, time.Minute, 0.01, false)...)
	out := s.Balanced(pool, domrepo.H1h)
	var nPos int
	for _, c := range out {
		if c.Labels[domrepo.H1h] {
			nPos++
		}
	}
	if nPos != 5 {
		t.Fatalf("minority floor: got %d positives, want 5", nPos)
	}
	if len(out) != 20 {
		t.Fatalf("selected %d, want 20", len(out))
	}
}

func TestBalancedScarcePoolShrinksTotal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 100
	s := New(cfg, NewMulberry32(7))
	pool := append(mkPool(4, time.Hour, 0.01, true), mkPool(6, time.Minute, 0.01, false)...)
	out := s.Balanced(pool, domrepo.H1h)
	if len(out) != 10 {
		t.Fatalf("scarce pool must yield all %d candidates, got %d", 10, len(out))
	}
}

func TestBalancedDeterministicAcrossRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 12
	pool := append(mkPool(30, time.Hour, 0.01, true), mkPool(30, time.Minute, 0.01, false)...)

	first := New(cfg, NewMulberry32(99)).Balanced(pool, domrepo.H1h)
	second := New(cfg, NewMulberry32(99)).Balanced(pool, domrepo.H1h)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].SnapTime.Equal(second[i].SnapTime) {
			t.Fatalf("selection %d differs with the same seed", i)
		}
	}
}

func TestCombinedFallsBackToBalanced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 10
	cfg.MaxDistance = 0.0001 // nothing is close enough
	s := New(cfg, NewMulberry32(3))

	pool := append(mkPool(20, time.Hour, 0.01, true), mkPool(20, time.Minute, 0.01, false)...)
	out := s.Combined(pool, domrepo.H1h)
	if len(out) != 10 {
		t.Fatalf("fallback must reach the target, got %d", len(out))
	}
}

func TestCombinedPrefersProximity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = 4
	cfg.MaxDistance = 0.001
	cfg.MinSeparation = time.Minute
	s := New(cfg, NewMulberry32(3))

	pool := mkPool(10, time.Hour, 0.0005, true)
	out := s.Combined(pool, domrepo.H1h)
	if len(out) != 4 {
		t.Fatalf("proximity met the target, got %d", len(out))
	}
	for _, c := range out {
		if c.Distance > cfg.MaxDistance {
			t.Fatalf("combined must use the proximity selection")
		}
	}
}
