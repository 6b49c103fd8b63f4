package run

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"polycoi/chain"
	"polycoi/genotype"
	"polycoi/sim"
)

func simData(t *testing.T) *genotype.Data {
	t.Helper()
	cfg := &sim.Config{
		NumSamples: 8,
		NumLoci:    3,
		NumAlleles: 3,
		MeanCOI:    2,
		MaxCOI:     5,
		Alpha:      1,
		EpsPos:     0.02,
		EpsNeg:     0.1,
	}
	data, _, err := sim.Simulate(cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func testSettings() *Settings {
	s := DefaultSettings()
	s.Iterations = 40
	s.BurnIn = 10
	s.Chains = 2
	s.Seed = 1
	s.ReportPeriod = 10
	s.AccPeriod = 0
	return s
}

func TestRun(t *testing.T) {
	data := simData(t)
	params := chain.DefaultParameters()
	params.MaxCOI = 5

	var buf bytes.Buffer
	r, err := NewRunner(data, params, testSettings(), &buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := r.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if len(res.LogLik) != 30 {
			t.Errorf("chain %d recorded %d draws, want 30", res.Chain, len(res.LogLik))
		}
		if len(res.M) != len(res.LogLik) || len(res.P) != len(res.LogLik) {
			t.Errorf("chain %d draw arrays have inconsistent lengths", res.Chain)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[0], "chain\titeration") {
		t.Error("missing trajectory header")
	}
	// 2 chains × 4 report lines
	if len(lines) != 9 {
		t.Errorf("got %d trajectory lines, want 9", len(lines))
	}
}

func TestRunDeterminism(t *testing.T) {
	data := simData(t)
	params := chain.DefaultParameters()
	params.MaxCOI = 5

	var a, b []*Result
	for _, out := range []*[]*Result{&a, &b} {
		r, err := NewRunner(data, params, testSettings(), nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		*out, err = r.Run()
		if err != nil {
			t.Fatal(err)
		}
	}
	for ci := range a {
		for d := range a[ci].LogLik {
			if a[ci].LogLik[d] != b[ci].LogLik[d] {
				t.Fatalf("chain %d draw %d diverged for equal seeds", ci, d)
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	data := simData(t)
	params := chain.DefaultParameters()
	params.MaxCOI = 5

	r, err := NewRunner(data, params, testSettings(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := r.Run()
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(results, 0.95)

	if s.Draws != 60 {
		t.Errorf("pooled %d draws, want 60", s.Draws)
	}
	if len(s.M) != data.NumSamples {
		t.Fatalf("summarized %d samples, want %d", len(s.M), data.NumSamples)
	}
	for i, q := range s.M {
		if q.Lower > q.Mean || q.Mean > q.Upper {
			t.Errorf("sample %d: inconsistent quantiles %+v", i, q)
		}
		if q.Mean < 1 || q.Mean > 5 {
			t.Errorf("sample %d: mean COI %v out of [1, 5]", i, q.Mean)
		}
	}
	for j, p := range s.PMean {
		sum := 0.0
		for _, v := range p {
			if v < 0 {
				t.Errorf("locus %d: negative mean frequency", j)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("locus %d: mean frequencies sum to %v", j, sum)
		}
	}
	for j, h := range s.Heterozygosity {
		if h.Mean < 0 || h.Mean > 1 {
			t.Errorf("locus %d: heterozygosity %v out of [0, 1]", j, h.Mean)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	s.Iterations = 0
	if err := s.Validate(); err == nil {
		t.Error("expected error for zero iterations")
	}
	s = DefaultSettings()
	s.BurnIn = s.Iterations
	if err := s.Validate(); err == nil {
		t.Error("expected error for burn-in >= iterations")
	}
	s = DefaultSettings()
	s.Chains = 0
	if err := s.Validate(); err == nil {
		t.Error("expected error for zero chains")
	}
}
