package sampler

import (
	"math"
	"testing"
)

func isSimplex(p []float64) bool {
	sum := 0.0
	for _, v := range p {
		if v < 0 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) < 1e-9
}

func TestAlleleFrequenciesSimplex(t *testing.T) {
	s := New(1)
	cur := []float64{0.7, 0.2, 0.1}
	for i := 0; i < 1000; i++ {
		prop := s.AlleleFrequencies(cur, 0.5)
		if !isSimplex(prop) {
			t.Fatalf("proposal is not a simplex: %v", prop)
		}
		cur = prop
	}
}

func TestAlleleFrequenciesDegenerate(t *testing.T) {
	s := New(1)
	// boundary input still yields a valid simplex
	prop := s.AlleleFrequencies([]float64{1, 0}, 1)
	if !isSimplex(prop) {
		t.Errorf("proposal is not a simplex: %v", prop)
	}
}

func TestCoiDeltaZeroMean(t *testing.T) {
	s := New(2)
	for i := 0; i < 100; i++ {
		if d := s.CoiDelta(0); d != 0 {
			t.Fatalf("CoiDelta(0)=%d, want 0", d)
		}
	}
}

func TestCoiDeltaSymmetric(t *testing.T) {
	s := New(3)
	sum := 0
	for i := 0; i < 100000; i++ {
		sum += s.CoiDelta(2)
	}
	mean := float64(sum) / 100000
	if math.Abs(mean) > 0.1 {
		t.Errorf("CoiDelta mean %v, expected near 0", mean)
	}
}

func TestGenotypes(t *testing.T) {
	s := New(4)
	freqs := []float64{0.5, 0.3, 0.2}
	draws := s.Genotypes(5, freqs, 20)
	if len(draws) != 20 {
		t.Fatalf("got %d draws, want 20", len(draws))
	}
	for _, g := range draws {
		total := 0
		for _, n := range g {
			if n < 0 {
				t.Fatalf("negative count in %v", g)
			}
			total += n
		}
		if total != 5 {
			t.Errorf("genotype %v sums to %d, want 5", g, total)
		}
	}
	// coi=0 yields the all-zero genotype
	for _, g := range s.Genotypes(0, freqs, 3) {
		for _, n := range g {
			if n != 0 {
				t.Errorf("coi=0 genotype not empty: %v", g)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if a.CoiDelta(1.5) != b.CoiDelta(1.5) {
			t.Fatal("CoiDelta diverged for equal seeds")
		}
		if a.LogMHAcceptance() != b.LogMHAcceptance() {
			t.Fatal("LogMHAcceptance diverged for equal seeds")
		}
		if a.Epsilon(0.1, 0.01) != b.Epsilon(0.1, 0.01) {
			t.Fatal("Epsilon diverged for equal seeds")
		}
	}
}

func TestLogMHAcceptance(t *testing.T) {
	s := New(5)
	for i := 0; i < 1000; i++ {
		v := s.LogMHAcceptance()
		if v > 0 || math.IsInf(v, -1) || math.IsNaN(v) {
			t.Fatalf("LogMHAcceptance()=%v, want finite non-positive", v)
		}
	}
}

func TestDirichlet(t *testing.T) {
	s := New(6)
	for i := 0; i < 100; i++ {
		if p := s.Dirichlet([]float64{1, 1, 1, 1}); !isSimplex(p) {
			t.Fatalf("Dirichlet draw not a simplex: %v", p)
		}
	}
}

func TestTruncatedPoisson(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.TruncatedPoisson(3, 10)
		if v < 1 || v > 10 {
			t.Fatalf("TruncatedPoisson out of range: %d", v)
		}
	}
}
