// Package sampler isolates all randomness used by a chain behind named
// operations. A Sampler owns its generator, so independently seeded chains
// produce independent, reproducible streams.
package sampler

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// logitFloor keeps the logit transform away from 0 and 1.
const logitFloor = 1e-12

// Sampler draws all random variates for a single chain. It is not safe for
// concurrent use; every chain owns exactly one Sampler.
type Sampler struct {
	rng    *rand.Rand
	normal distuv.Normal

	// genotype draw buffers, one per allele count, reused across calls
	genotypes map[int][][]int
}

// New creates a Sampler seeded explicitly.
func New(seed uint64) *Sampler {
	src := rand.NewSource(seed)
	return &Sampler{
		rng:       rand.New(src),
		normal:    distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		genotypes: make(map[int][][]int),
	}
}

// CoiDelta draws an integer random-walk step as the difference of two iid
// geometric variates. The distribution is symmetric around zero, includes
// zero, and spreads with the adaptive mean.
func (s *Sampler) CoiDelta(mean float64) int {
	if mean <= 0 {
		return 0
	}
	q := 1 / (1 + mean)
	return s.geometric(q) - s.geometric(q)
}

// geometric draws the number of failures before the first success.
func (s *Sampler) geometric(q float64) int {
	if q >= 1 {
		return 0
	}
	u := s.rng.Float64()
	for u == 0 {
		u = s.rng.Float64()
	}
	return int(math.Log(u) / math.Log(1-q))
}

// AlleleFrequencies proposes a new simplex from the current one via a
// logit-normal perturbation: every coordinate is perturbed on the logit
// scale and the result is renormalized, so the proposal is always a valid
// simplex.
func (s *Sampler) AlleleFrequencies(p []float64, variance float64) []float64 {
	res := make([]float64, len(p))
	sd := math.Sqrt(variance)
	sum := 0.0
	for i, v := range p {
		if v < logitFloor {
			v = logitFloor
		} else if v > 1-logitFloor {
			v = 1 - logitFloor
		}
		z := math.Log(v/(1-v)) + s.normal.Rand()*sd
		res[i] = 1 / (1 + math.Exp(-z))
		sum += res[i]
	}
	for i := range res {
		res[i] /= sum
	}
	return res
}

// Epsilon proposes a new error rate with a Gaussian random walk. Bounds are
// enforced by the caller, which rejects out-of-range proposals.
func (s *Sampler) Epsilon(cur, variance float64) float64 {
	return cur + s.normal.Rand()*math.Sqrt(variance)
}

// Genotypes draws depth independent latent genotypes: each is a multinomial
// draw of coi strain units over the allele frequencies. The returned matrix
// is an internal buffer overwritten by the next call for the same allele
// count; callers must consume it before drawing again.
func (s *Sampler) Genotypes(coi int, freqs []float64, depth int) [][]int {
	k := len(freqs)
	buf := s.genotypes[k]
	for len(buf) < depth {
		buf = append(buf, make([]int, k))
	}
	s.genotypes[k] = buf

	for d := 0; d < depth; d++ {
		g := buf[d]
		for i := range g {
			g[i] = 0
		}
		for u := 0; u < coi; u++ {
			g[s.categorical(freqs)]++
		}
	}
	return buf[:depth]
}

// categorical draws an index proportional to the weights, which must sum
// to one up to rounding.
func (s *Sampler) categorical(freqs []float64) int {
	u := s.rng.Float64()
	cum := 0.0
	for i, f := range freqs {
		cum += f
		if u < cum {
			return i
		}
	}
	return len(freqs) - 1
}

// LogMHAcceptance draws log(U), U uniform on (0,1), for the MH accept test.
func (s *Sampler) LogMHAcceptance() float64 {
	u := s.rng.Float64()
	for u == 0 {
		u = s.rng.Float64()
	}
	return math.Log(u)
}

// Dirichlet draws a simplex with the given concentration parameters. Used
// by the simulator.
func (s *Sampler) Dirichlet(alpha []float64) []float64 {
	res := make([]float64, len(alpha))
	sum := 0.0
	for i, a := range alpha {
		g := distuv.Gamma{Alpha: a, Beta: 1, Src: s.rng}
		res[i] = g.Rand()
		sum += res[i]
	}
	for i := range res {
		res[i] /= sum
	}
	return res
}

// TruncatedPoisson draws from a Poisson distribution conditioned on the
// result lying in [1, max]. Used by the simulator for COI.
func (s *Sampler) TruncatedPoisson(lambda float64, max int) int {
	pois := distuv.Poisson{Lambda: lambda, Src: s.rng}
	for {
		v := int(pois.Rand())
		if v >= 1 && v <= max {
			return v
		}
	}
}

// Bernoulli draws true with probability p. Used by the simulator for the
// observation noise process.
func (s *Sampler) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}
