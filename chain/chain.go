// Package chain implements the MCMC engine: chain state, the four adaptive
// Metropolis-Hastings update rules and the importance-sampled marginal
// likelihood for the latent genotype composition.
package chain

import (
	"fmt"
	"math"

	"github.com/op/go-logging"

	"polycoi/checkpoint"
	"polycoi/genotype"
	"polycoi/lookup"
	"polycoi/sampler"
)

// log is the global logging variable.
var log = logging.MustGetLogger("chain")

// Chain owns the mutable inference state for one MCMC run. All methods
// mutate state in place; a Chain must not be used from more than one
// goroutine.
type Chain struct {
	data    *genotype.Data
	lookup  *lookup.Lookup
	params  *Parameters
	sampler *sampler.Sampler

	// parameter blocks
	m      []int
	p      [][]float64
	epsPos float64
	epsNeg float64

	// per-locus-per-sample cached log marginal likelihoods; llikOld is
	// the single source of truth for the current state
	llikOld [][]float64
	llikNew [][]float64

	// adaptive proposal tuning
	mPropMean []float64
	pPropVar  []float64
	epsPosVar float64
	epsNegVar float64

	// acceptance counters, diagnostic only
	mAccept      []int
	pAccept      []int
	epsPosAccept int
	epsNegAccept int

	// scratch buffer for the importance distribution
	reweighted []float64

	tracer Tracer
}

// New constructs a chain from immutable inputs and runs the initial full
// likelihood evaluation. seed determines the chain's private random stream.
func New(data *genotype.Data, lk *lookup.Lookup, params *Parameters, seed uint64) (*Chain, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genotyping data: %v", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %v", err)
	}

	c := &Chain{
		data:    data,
		lookup:  lk,
		params:  params,
		sampler: sampler.New(seed),

		epsPos: params.EpsPos0,
		epsNeg: params.EpsNeg0,

		mPropMean: make([]float64, data.NumSamples),
		pPropVar:  make([]float64, data.NumLoci),
		epsPosVar: params.EpsVar0,
		epsNegVar: params.EpsVar0,

		mAccept: make([]int, data.NumSamples),
		pAccept: make([]int, data.NumLoci),

		reweighted: make([]float64, data.MaxNumAlleles()),
	}
	for i := range c.mPropMean {
		c.mPropMean[i] = params.COIPropMean0
	}
	for j := range c.pPropVar {
		c.pPropVar[j] = params.PPropVar0
	}

	c.initializeM()
	c.p = data.EmpiricalFrequencies()
	c.initializeLikelihood()

	log.Debugf("Chain ready: %d samples, %d loci, llik=%f",
		data.NumSamples, data.NumLoci, c.LogLikelihood())
	return c, nil
}

// initializeM copies the supplied initial COI guesses, clamped into
// [1, MaxCOI].
func (c *Chain) initializeM() {
	c.m = make([]int, c.data.NumSamples)
	for i, coi := range c.data.ObservedCOI {
		switch {
		case coi < 1:
			c.m[i] = 1
		case coi > c.params.MaxCOI:
			c.m[i] = c.params.MaxCOI
		default:
			c.m[i] = coi
		}
	}
}

// SetTracer installs a tracer for proposal diagnostics; nil disables
// tracing.
func (c *Chain) SetTracer(t Tracer) {
	c.tracer = t
}

// Step applies the four update rules in their fixed order. iter is the
// 1-based iteration number used by the Robbins-Monro step size.
func (c *Chain) Step(iter int) {
	c.UpdateM(iter)
	c.UpdateP(iter)
	c.UpdateEpsPos(iter)
	c.UpdateEpsNeg(iter)
}

// LogLikelihood returns the aggregate log-likelihood of the current state.
func (c *Chain) LogLikelihood() float64 {
	llik := 0.0
	for j := range c.llikOld {
		for i := range c.llikOld[j] {
			llik += c.llikOld[j][i]
		}
	}
	return llik
}

// M returns a copy of the current per-sample COI.
func (c *Chain) M() []int {
	m := make([]int, len(c.m))
	copy(m, c.m)
	return m
}

// P returns a copy of the current per-locus allele frequencies.
func (c *Chain) P() [][]float64 {
	p := make([][]float64, len(c.p))
	for j := range c.p {
		p[j] = make([]float64, len(c.p[j]))
		copy(p[j], c.p[j])
	}
	return p
}

// EpsPos returns the current false-positive rate.
func (c *Chain) EpsPos() float64 { return c.epsPos }

// EpsNeg returns the current false-negative rate.
func (c *Chain) EpsNeg() float64 { return c.epsNeg }

// MAcceptance returns a copy of the per-sample COI acceptance counters.
func (c *Chain) MAcceptance() []int {
	a := make([]int, len(c.mAccept))
	copy(a, c.mAccept)
	return a
}

// PAcceptance returns a copy of the per-locus acceptance counters.
func (c *Chain) PAcceptance() []int {
	a := make([]int, len(c.pAccept))
	copy(a, c.pAccept)
	return a
}

// EpsAcceptance returns the error-rate acceptance counters.
func (c *Chain) EpsAcceptance() (pos, neg int) {
	return c.epsPosAccept, c.epsNegAccept
}

// MeanCOI returns the mean COI over samples for the current state.
func (c *Chain) MeanCOI() float64 {
	sum := 0
	for _, m := range c.m {
		sum += m
	}
	return float64(sum) / float64(len(c.m))
}

// Snapshot captures the chain state for checkpointing.
func (c *Chain) Snapshot(iter int) *checkpoint.State {
	return &checkpoint.State{
		Iteration: iter,
		M:         c.M(),
		P:         c.P(),
		EpsPos:    c.epsPos,
		EpsNeg:    c.epsNeg,
		MPropMean: append([]float64(nil), c.mPropMean...),
		PPropVar:  append([]float64(nil), c.pPropVar...),
		EpsPosVar: c.epsPosVar,
		EpsNegVar: c.epsNegVar,
		LogLik:    c.LogLikelihood(),
	}
}

// Restore resets the chain to a checkpointed state and refreshes the
// likelihood cache with a full evaluation. The snapshot is validated in
// full before any state is mutated, so a corrupted checkpoint leaves the
// chain untouched.
func (c *Chain) Restore(s *checkpoint.State) error {
	if len(s.M) != c.data.NumSamples || len(s.P) != c.data.NumLoci {
		return fmt.Errorf("checkpoint dimensions (%d samples, %d loci) don't match data (%d, %d)",
			len(s.M), len(s.P), c.data.NumSamples, c.data.NumLoci)
	}
	if len(s.MPropMean) != c.data.NumSamples || len(s.PPropVar) != c.data.NumLoci {
		return fmt.Errorf("checkpoint tuning state (%d means, %d variances) doesn't match data (%d, %d)",
			len(s.MPropMean), len(s.PPropVar), c.data.NumSamples, c.data.NumLoci)
	}
	for i, m := range s.M {
		if m < 1 || m > c.params.MaxCOI {
			return fmt.Errorf("checkpoint COI %d for sample %d out of range", m, i)
		}
	}
	for j := range s.P {
		if len(s.P[j]) != c.data.NumAlleles[j] {
			return fmt.Errorf("checkpoint locus %d has %d alleles, expected %d",
				j, len(s.P[j]), c.data.NumAlleles[j])
		}
	}
	if s.EpsPos < 0 || s.EpsPos >= c.params.MaxEpsPos {
		return fmt.Errorf("checkpoint eps_pos %v out of [0, %v)", s.EpsPos, c.params.MaxEpsPos)
	}
	if s.EpsNeg < 0 || s.EpsNeg >= c.params.MaxEpsNeg {
		return fmt.Errorf("checkpoint eps_neg %v out of [0, %v)", s.EpsNeg, c.params.MaxEpsNeg)
	}
	for i, mean := range s.MPropMean {
		if mean < 0 {
			return fmt.Errorf("checkpoint COI proposal mean %v for sample %d is negative", mean, i)
		}
	}
	for j, variance := range s.PPropVar {
		if variance <= 0 {
			return fmt.Errorf("checkpoint proposal variance %v for locus %d is not positive", variance, j)
		}
	}
	if s.EpsPosVar <= 0 || s.EpsNegVar <= 0 {
		return fmt.Errorf("checkpoint error-rate proposal variances (%v, %v) must be positive",
			s.EpsPosVar, s.EpsNegVar)
	}

	copy(c.m, s.M)
	for j := range s.P {
		copy(c.p[j], s.P[j])
	}
	c.epsPos = s.EpsPos
	c.epsNeg = s.EpsNeg
	copy(c.mPropMean, s.MPropMean)
	copy(c.pPropVar, s.PPropVar)
	c.epsPosVar = s.EpsPosVar
	c.epsNegVar = s.EpsNegVar
	c.initializeLikelihood()
	log.Noticef("Restored chain from iteration %d, llik=%f", s.Iteration, c.LogLikelihood())
	return nil
}

// step returns the Robbins-Monro step size for an iteration.
func step(iter int) float64 {
	if iter < 1 {
		iter = 1
	}
	return 1 / math.Sqrt(float64(iter))
}
