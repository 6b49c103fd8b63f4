// Package sim generates synthetic genotyping data with a known truth, for
// tests and for the sim command.
package sim

import (
	"fmt"

	"github.com/op/go-logging"

	"polycoi/genotype"
	"polycoi/sampler"
)

// log is the global logging variable.
var log = logging.MustGetLogger("sim")

// Config describes the generative model for one synthetic data set.
type Config struct {
	NumSamples int
	NumLoci    int
	// NumAlleles is the allele count used for every locus.
	NumAlleles int
	// MeanCOI is the rate of the zero-truncated Poisson COI is drawn
	// from.
	MeanCOI float64
	MaxCOI  int
	// Alpha is the symmetric Dirichlet concentration for allele
	// frequencies.
	Alpha float64
	// EpsPos and EpsNeg are the observation error rates.
	EpsPos float64
	EpsNeg float64
}

// Truth holds the latent values the data was generated from.
type Truth struct {
	M []int
	P [][]float64
}

// Simulate draws allele frequencies, per-sample COI and true genotypes,
// then applies the false-positive/false-negative observation process.
func Simulate(cfg *Config, seed uint64) (*genotype.Data, *Truth, error) {
	if cfg.NumSamples < 1 || cfg.NumLoci < 1 || cfg.NumAlleles < 1 {
		return nil, nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.MaxCOI < 1 || cfg.MeanCOI <= 0 {
		return nil, nil, fmt.Errorf("COI settings must be positive")
	}
	if cfg.Alpha <= 0 {
		return nil, nil, fmt.Errorf("Dirichlet concentration must be positive")
	}
	if cfg.EpsPos < 0 || cfg.EpsPos >= 1 || cfg.EpsNeg < 0 || cfg.EpsNeg >= 1 {
		return nil, nil, fmt.Errorf("error rates must be in [0, 1)")
	}

	s := sampler.New(seed)

	truth := &Truth{
		M: make([]int, cfg.NumSamples),
		P: make([][]float64, cfg.NumLoci),
	}
	for i := range truth.M {
		truth.M[i] = s.TruncatedPoisson(cfg.MeanCOI, cfg.MaxCOI)
	}
	alpha := make([]float64, cfg.NumAlleles)
	for k := range alpha {
		alpha[k] = cfg.Alpha
	}
	for j := range truth.P {
		truth.P[j] = s.Dirichlet(alpha)
	}

	data := &genotype.Data{
		NumSamples:  cfg.NumSamples,
		NumLoci:     cfg.NumLoci,
		NumAlleles:  make([]int, cfg.NumLoci),
		Observed:    make([][][]int, cfg.NumLoci),
		ObservedCOI: make([]int, cfg.NumSamples),
	}
	for j := 0; j < cfg.NumLoci; j++ {
		data.NumAlleles[j] = cfg.NumAlleles
		data.Observed[j] = make([][]int, cfg.NumSamples)
		for i := 0; i < cfg.NumSamples; i++ {
			draws := s.Genotypes(truth.M[i], truth.P[j], 1)
			data.Observed[j][i] = observe(s, draws[0], cfg.EpsPos, cfg.EpsNeg)
		}
	}
	for i := 0; i < cfg.NumSamples; i++ {
		data.ObservedCOI[i] = naiveCOI(data, i)
	}

	log.Infof("Simulated %d samples at %d loci, mean true COI %.2f",
		cfg.NumSamples, cfg.NumLoci, meanInt(truth.M))
	return data, truth, nil
}

// observe applies the four-case error model to one true genotype.
func observe(s *sampler.Sampler, g []int, epsPos, epsNeg float64) []int {
	obs := make([]int, len(g))
	for k, n := range g {
		if n > 0 {
			if !s.Bernoulli(epsNeg) {
				obs[k] = 1
			}
		} else {
			if s.Bernoulli(epsPos) {
				obs[k] = 1
			}
		}
	}
	return obs
}

// naiveCOI is the usual initial guess: the largest number of alleles seen
// at any single locus, at least one.
func naiveCOI(data *genotype.Data, sample int) int {
	max := 1
	for j := 0; j < data.NumLoci; j++ {
		n := 0
		for _, v := range data.Observed[j][sample] {
			n += v
		}
		if n > max {
			max = n
		}
	}
	return max
}

func meanInt(xs []int) float64 {
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}
