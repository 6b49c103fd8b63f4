package chain

import "fmt"

// Named algorithm constants.
const (
	// TargetAcceptance is the acceptance rate the Robbins-Monro
	// adaptation aims for, the optimal rate for high-dimensional
	// random-walk Metropolis.
	TargetAcceptance = 0.23
	// underflow is the floor for probabilities and proposal variances
	// that would otherwise underflow to zero.
	underflow = 1e-100
	// reweightFloor keeps every allele reachable in the importance
	// distribution.
	reweightFloor = 1e-6
	// logFloor pads log arguments in the multinomial pmf.
	logFloor = 1e-12
)

// Parameters is the immutable chain configuration.
type Parameters struct {
	// MaxCOI is the largest multiplicity of infection considered.
	MaxCOI int `toml:"max_coi"`
	// EpsPos0 and EpsNeg0 are the initial false-positive and
	// false-negative rates. Zero is allowed and starts the chain on an
	// exact noise-free model; the (0, max) invariant holds from the
	// first accepted error-rate move, since proposals outside the open
	// interval are always rejected.
	EpsPos0 float64 `toml:"eps_pos_0"`
	EpsNeg0 float64 `toml:"eps_neg_0"`
	// MaxEpsPos and MaxEpsNeg bound the error rates; proposals at or
	// beyond a bound are rejected.
	MaxEpsPos float64 `toml:"max_eps_pos"`
	MaxEpsNeg float64 `toml:"max_eps_neg"`
	// ImportanceSamplingDepth bounds the number of Monte Carlo draws
	// per marginal-likelihood evaluation.
	ImportanceSamplingDepth int `toml:"importance_sampling_depth"`
	// EpsVar0 is the initial proposal variance for both error rates.
	EpsVar0 float64 `toml:"eps_var_0"`
	// COIPropMean0 is the initial COI proposal mean.
	COIPropMean0 float64 `toml:"coi_prop_mean_0"`
	// PPropVar0 is the initial allele-frequency proposal variance.
	PPropVar0 float64 `toml:"p_prop_var_0"`
}

// DefaultParameters returns parameters with reasonable defaults.
func DefaultParameters() *Parameters {
	return &Parameters{
		MaxCOI:                  20,
		EpsPos0:                 0.01,
		EpsNeg0:                 0.1,
		MaxEpsPos:               0.5,
		MaxEpsNeg:               0.5,
		ImportanceSamplingDepth: 100,
		EpsVar0:                 0.05,
		COIPropMean0:            1,
		PPropVar0:               1,
	}
}

// Validate checks the configuration; errors are fatal before any
// iteration runs.
func (p *Parameters) Validate() error {
	if p.MaxCOI < 1 {
		return fmt.Errorf("max COI must be positive, got %d", p.MaxCOI)
	}
	if p.ImportanceSamplingDepth < 1 {
		return fmt.Errorf("importance sampling depth must be positive, got %d",
			p.ImportanceSamplingDepth)
	}
	if p.EpsPos0 < 0 || p.EpsPos0 >= 1 {
		return fmt.Errorf("initial eps_pos must be in [0, 1), got %v", p.EpsPos0)
	}
	if p.EpsNeg0 < 0 || p.EpsNeg0 >= 1 {
		return fmt.Errorf("initial eps_neg must be in [0, 1), got %v", p.EpsNeg0)
	}
	if p.MaxEpsPos <= p.EpsPos0 || p.MaxEpsPos > 1 {
		return fmt.Errorf("max eps_pos must be in (eps_pos_0, 1], got %v", p.MaxEpsPos)
	}
	if p.MaxEpsNeg <= p.EpsNeg0 || p.MaxEpsNeg > 1 {
		return fmt.Errorf("max eps_neg must be in (eps_neg_0, 1], got %v", p.MaxEpsNeg)
	}
	if p.EpsVar0 <= 0 || p.COIPropMean0 < 0 || p.PPropVar0 <= 0 {
		return fmt.Errorf("proposal tuning parameters must be positive")
	}
	return nil
}
