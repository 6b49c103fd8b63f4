package sim

import "testing"

func TestSimulate(t *testing.T) {
	cfg := &Config{
		NumSamples: 20,
		NumLoci:    5,
		NumAlleles: 4,
		MeanCOI:    3,
		MaxCOI:     10,
		Alpha:      1,
		EpsPos:     0.05,
		EpsNeg:     0.1,
	}
	data, truth, err := Simulate(cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := data.Validate(); err != nil {
		t.Error("simulated data does not validate:", err)
	}
	if len(truth.M) != cfg.NumSamples || len(truth.P) != cfg.NumLoci {
		t.Error("truth dimensions do not match config")
	}
	for i, m := range truth.M {
		if m < 1 || m > cfg.MaxCOI {
			t.Errorf("true COI %d for sample %d out of [1, %d]", m, i, cfg.MaxCOI)
		}
	}
	for i, coi := range data.ObservedCOI {
		if coi < 1 || coi > cfg.NumAlleles {
			t.Errorf("initial COI guess %d for sample %d out of range", coi, i)
		}
	}
}

func TestSimulateNoiseFree(t *testing.T) {
	// with one allele and no noise every presence call must be positive
	cfg := &Config{
		NumSamples: 10,
		NumLoci:    3,
		NumAlleles: 1,
		MeanCOI:    2,
		MaxCOI:     5,
		Alpha:      1,
	}
	data, _, err := Simulate(cfg, 2)
	if err != nil {
		t.Fatal(err)
	}
	for j := range data.Observed {
		for i := range data.Observed[j] {
			if data.Observed[j][i][0] != 1 {
				t.Fatalf("locus %d, sample %d: expected presence", j, i)
			}
		}
	}
}

func TestSimulateInvalidConfig(t *testing.T) {
	if _, _, err := Simulate(&Config{}, 1); err == nil {
		t.Error("expected error for zero config")
	}
	cfg := &Config{NumSamples: 1, NumLoci: 1, NumAlleles: 1, MeanCOI: 1, MaxCOI: 1, Alpha: 1, EpsPos: 1}
	if _, _, err := Simulate(cfg, 1); err == nil {
		t.Error("expected error for eps_pos=1")
	}
}

func TestSimulateDeterminism(t *testing.T) {
	cfg := &Config{
		NumSamples: 5, NumLoci: 2, NumAlleles: 3,
		MeanCOI: 2, MaxCOI: 5, Alpha: 1, EpsPos: 0.01, EpsNeg: 0.05,
	}
	a, _, err := Simulate(cfg, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Simulate(cfg, 42)
	if err != nil {
		t.Fatal(err)
	}
	for j := range a.Observed {
		for i := range a.Observed[j] {
			for k := range a.Observed[j][i] {
				if a.Observed[j][i][k] != b.Observed[j][i][k] {
					t.Fatal("simulation diverged for equal seeds")
				}
			}
		}
	}
}
