package chain

import "math"

// UpdateM applies one Metropolis step to every sample's COI. An unchanged
// proposal is an automatic accept with no likelihood recomputation; an
// out-of-range proposal is rejected outright. The per-sample proposal mean
// follows a Robbins-Monro step toward the target acceptance rate, floored
// at zero.
func (c *Chain) UpdateM(iter int) {
	gamma := step(iter)
	for i := 0; i < c.data.NumSamples; i++ {
		prop := c.m[i] + c.sampler.CoiDelta(c.mPropMean[i])

		if prop == c.m[i] {
			c.mPropMean[i] += (1 - TargetAcceptance) * gamma
			c.mAccept[i]++
			c.trace(iter, BlockM, i, true, float64(c.m[i]))
			continue
		}
		if prop < 1 || prop > c.params.MaxCOI {
			c.trace(iter, BlockM, i, false, float64(c.m[i]))
			continue
		}

		sumNew, sumOld := 0.0, 0.0
		for j := 0; j < c.data.NumLoci; j++ {
			c.llikNew[j][i] = c.marginalLogLikelihood(c.data.Observed[j][i], prop, c.p[j], c.epsNeg, c.epsPos)
			sumNew += c.llikNew[j][i]
			sumOld += c.llikOld[j][i]
		}

		if c.sampler.LogMHAcceptance() <= sumNew-sumOld {
			c.m[i] = prop
			c.mAccept[i]++
			c.mPropMean[i] += (1 - TargetAcceptance) * gamma
			for j := 0; j < c.data.NumLoci; j++ {
				c.llikOld[j][i] = c.llikNew[j][i]
			}
			c.trace(iter, BlockM, i, true, float64(prop))
		} else {
			c.mPropMean[i] -= TargetAcceptance * gamma
			if c.mPropMean[i] < 0 {
				c.mPropMean[i] = 0
			}
			c.trace(iter, BlockM, i, false, float64(c.m[i]))
		}
	}
}

// UpdateP applies one Metropolis step to every locus's allele-frequency
// simplex. The per-locus proposal variance adapts on the log scale, so it
// stays positive without an explicit floor.
func (c *Chain) UpdateP(iter int) {
	gamma := step(iter)
	for j := 0; j < c.data.NumLoci; j++ {
		prop := c.sampler.AlleleFrequencies(c.p[j], c.pPropVar[j])

		sumNew, sumOld := 0.0, 0.0
		for i := 0; i < c.data.NumSamples; i++ {
			c.llikNew[j][i] = c.marginalLogLikelihood(c.data.Observed[j][i], c.m[i], prop, c.epsNeg, c.epsPos)
			sumNew += c.llikNew[j][i]
			sumOld += c.llikOld[j][i]
		}

		if c.sampler.LogMHAcceptance() <= sumNew-sumOld {
			c.p[j] = prop
			c.pAccept[j]++
			c.pPropVar[j] = math.Exp(math.Log(c.pPropVar[j]) + (1-TargetAcceptance)*gamma)
			for i := 0; i < c.data.NumSamples; i++ {
				c.llikOld[j][i] = c.llikNew[j][i]
			}
			c.trace(iter, BlockP, j, true, prop[0])
		} else {
			c.pPropVar[j] = math.Exp(math.Log(c.pPropVar[j]) - TargetAcceptance*gamma)
			c.trace(iter, BlockP, j, false, c.p[j][0])
		}
	}
}

// UpdateEpsPos applies one Metropolis step to the false-positive rate.
func (c *Chain) UpdateEpsPos(iter int) {
	c.updateEps(iter, BlockEpsPos)
}

// UpdateEpsNeg applies one Metropolis step to the false-negative rate.
func (c *Chain) UpdateEpsNeg(iter int) {
	c.updateEps(iter, BlockEpsNeg)
}

// updateEps is the shared error-rate move. A proposal outside (0, max) is
// rejected without recomputation or adaptation; otherwise the full cache is
// recomputed under the proposal and the MH test is applied to the grand
// sum. The proposal variance adapts additively, floored against underflow.
func (c *Chain) updateEps(iter int, block Block) {
	cur, max, variance := c.epsPos, c.params.MaxEpsPos, c.epsPosVar
	if block == BlockEpsNeg {
		cur, max, variance = c.epsNeg, c.params.MaxEpsNeg, c.epsNegVar
	}

	prop := c.sampler.Epsilon(cur, variance)
	if prop <= 0 || prop >= max {
		c.trace(iter, block, -1, false, cur)
		return
	}

	epsNeg, epsPos := c.epsNeg, prop
	if block == BlockEpsNeg {
		epsNeg, epsPos = prop, c.epsPos
	}

	sumNew, sumOld := 0.0, 0.0
	for j := 0; j < c.data.NumLoci; j++ {
		for i := 0; i < c.data.NumSamples; i++ {
			c.llikNew[j][i] = c.marginalLogLikelihood(c.data.Observed[j][i], c.m[i], c.p[j], epsNeg, epsPos)
			sumNew += c.llikNew[j][i]
			sumOld += c.llikOld[j][i]
		}
	}

	gamma := step(iter)
	if c.sampler.LogMHAcceptance() <= sumNew-sumOld {
		variance += (1 - TargetAcceptance) * gamma
		if block == BlockEpsPos {
			c.epsPos = prop
			c.epsPosVar = variance
			c.epsPosAccept++
		} else {
			c.epsNeg = prop
			c.epsNegVar = variance
			c.epsNegAccept++
		}
		for j := 0; j < c.data.NumLoci; j++ {
			for i := 0; i < c.data.NumSamples; i++ {
				c.llikOld[j][i] = c.llikNew[j][i]
			}
		}
		c.trace(iter, block, -1, true, prop)
	} else {
		variance -= TargetAcceptance * gamma
		if variance < underflow {
			variance = underflow
		}
		if block == BlockEpsPos {
			c.epsPosVar = variance
		} else {
			c.epsNegVar = variance
		}
		c.trace(iter, block, -1, false, cur)
	}
}
