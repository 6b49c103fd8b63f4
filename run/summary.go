package run

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantiles summarizes the pooled posterior draws of one scalar.
type Quantiles struct {
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Summary stores posterior summaries pooled over chains.
type Summary struct {
	// Draws is the number of pooled post-burn-in draws.
	Draws int `json:"draws"`
	// LogLik summarizes the aggregate log-likelihood.
	LogLik Quantiles `json:"logLik"`
	// EpsPos and EpsNeg summarize the error rates.
	EpsPos Quantiles `json:"epsPos"`
	EpsNeg Quantiles `json:"epsNeg"`
	// M summarizes per-sample COI.
	M []Quantiles `json:"coi"`
	// PMean is the posterior mean allele frequency per locus.
	PMean [][]float64 `json:"alleleFrequencies"`
	// Heterozygosity summarizes per-locus expected heterozygosity,
	// 1 − Σ_k p_k².
	Heterozygosity []Quantiles `json:"heterozygosity"`
}

// Summarize pools draws from all chains. prob is the credible-interval
// mass, e.g. 0.95.
func Summarize(results []*Result, prob float64) *Summary {
	s := &Summary{}
	if len(results) == 0 {
		return s
	}

	var epsPos, epsNeg, llik []float64
	for _, r := range results {
		epsPos = append(epsPos, r.EpsPos...)
		epsNeg = append(epsNeg, r.EpsNeg...)
		llik = append(llik, r.LogLik...)
	}
	s.Draws = len(llik)
	if s.Draws == 0 {
		return s
	}
	s.LogLik = quantiles(llik, prob)
	s.EpsPos = quantiles(epsPos, prob)
	s.EpsNeg = quantiles(epsNeg, prob)

	numSamples := len(results[0].M[0])
	s.M = make([]Quantiles, numSamples)
	for i := 0; i < numSamples; i++ {
		var draws []float64
		for _, r := range results {
			for _, m := range r.M {
				draws = append(draws, float64(m[i]))
			}
		}
		s.M[i] = quantiles(draws, prob)
	}

	numLoci := len(results[0].P[0])
	s.PMean = make([][]float64, numLoci)
	s.Heterozygosity = make([]Quantiles, numLoci)
	for j := 0; j < numLoci; j++ {
		numAlleles := len(results[0].P[0][j])
		mean := make([]float64, numAlleles)
		var hets []float64
		n := 0
		for _, r := range results {
			for _, p := range r.P {
				het := 1.0
				for k, f := range p[j] {
					mean[k] += f
					het -= f * f
				}
				hets = append(hets, het)
				n++
			}
		}
		for k := range mean {
			mean[k] /= float64(n)
		}
		s.PMean[j] = mean
		s.Heterozygosity[j] = quantiles(hets, prob)
	}
	return s
}

// quantiles computes the mean and the equal-tailed credible interval.
func quantiles(draws []float64, prob float64) Quantiles {
	mean := stat.Mean(draws, nil)
	sorted := append([]float64(nil), draws...)
	sort.Float64s(sorted)
	tail := (1 - prob) / 2
	return Quantiles{
		Mean:  mean,
		Lower: stat.Quantile(tail, stat.Empirical, sorted, nil),
		Upper: stat.Quantile(1-tail, stat.Empirical, sorted, nil),
	}
}
