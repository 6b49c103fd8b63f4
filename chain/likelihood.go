package chain

import "math"

// reweight transforms allele frequencies into the importance distribution:
// alleles consistent with the observation under the error-rate hypothesis
// are upweighted, a small floor keeps every allele reachable, and the result
// is renormalized to a simplex. The returned slice is the chain's scratch
// buffer.
func (c *Chain) reweight(freqs []float64, obs []int, epsNeg, epsPos float64) []float64 {
	res := c.reweighted[:len(freqs)]
	sum := 0.0
	for k, f := range freqs {
		w := epsNeg
		if obs[k] == 1 {
			w = 1 - epsNeg
		}
		res[k] = f*w + epsPos + reweightFloor
		sum += res[k]
	}
	inv := 1 / sum
	for k := range res {
		res[k] *= inv
	}
	return res
}

// genotypeLogPmf is the multinomial log pmf of a latent genotype under an
// allele-frequency vector:
//
//	lgamma(coi+1) + Σ_k [g_k·log(f_k) − lgamma(g_k+1)]
//
// For coi = 0 the unique all-zero genotype has log pmf 0.
func (c *Chain) genotypeLogPmf(g []int, coi int, freqs []float64) float64 {
	res := c.lookup.Lgamma(coi + 1)
	for k, n := range g {
		if n > 0 {
			res += float64(n)*math.Log(freqs[k]+logFloor) - c.lookup.Lgamma(n+1)
		}
	}
	return res
}

// obsLogLik is the log probability of the observed presence/absence vector
// given a latent genotype, under the four-case error model. True calls are
// scaled by the per-allele strain count.
func (c *Chain) obsLogLik(obs []int, g []int, epsNeg, epsPos float64) float64 {
	tp := math.Log(math.Max(1-epsNeg, underflow))
	tn := math.Log(math.Max(1-epsPos, underflow))
	fp := math.Log(math.Max(epsPos, underflow))
	fn := math.Log(math.Max(epsNeg, underflow))

	llik := 0.0
	for k, n := range g {
		if obs[k] == 1 {
			if n > 0 {
				llik += float64(n) * tp
			} else {
				llik += fp
			}
		} else {
			if n > 0 {
				llik += float64(n) * fn
			} else {
				llik += tn
			}
		}
	}
	return llik
}

// marginalLogLikelihood estimates log P(obs | coi, freqs, eps) with the
// latent genotype integrated out, by self-normalized importance sampling:
// draw latent genotypes from the reweighted distribution and average the
// importance-corrected observation likelihoods.
func (c *Chain) marginalLogLikelihood(obs []int, coi int, freqs []float64, epsNeg, epsPos float64) float64 {
	depth := c.lookup.Depth(coi, len(freqs))
	reweighted := c.reweight(freqs, obs, epsNeg, epsPos)
	draws := c.sampler.Genotypes(coi, reweighted, depth)

	sum := 0.0
	for _, g := range draws {
		importance := c.genotypeLogPmf(g, coi, reweighted)
		target := c.genotypeLogPmf(g, coi, freqs)
		observed := c.obsLogLik(obs, g, epsNeg, epsPos)
		sum += math.Exp(observed + target - importance)
	}
	return math.Log(math.Max(sum/float64(depth), underflow))
}

// initializeLikelihood fills the cache with a full evaluation for the
// current state.
func (c *Chain) initializeLikelihood() {
	if c.llikOld == nil {
		c.llikOld = make([][]float64, c.data.NumLoci)
		c.llikNew = make([][]float64, c.data.NumLoci)
		for j := 0; j < c.data.NumLoci; j++ {
			c.llikOld[j] = make([]float64, c.data.NumSamples)
			c.llikNew[j] = make([]float64, c.data.NumSamples)
		}
	}
	for j := 0; j < c.data.NumLoci; j++ {
		for i := 0; i < c.data.NumSamples; i++ {
			llik := c.marginalLogLikelihood(c.data.Observed[j][i], c.m[i], c.p[j], c.epsNeg, c.epsPos)
			c.llikOld[j][i] = llik
			c.llikNew[j][i] = llik
		}
	}
}
