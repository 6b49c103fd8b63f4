// Package lookup precomputes quantities needed in the innermost sampling
// loop: a log-gamma table and the importance-sampling depth cap.
package lookup

import (
	"fmt"
	"math"
)

// Lookup holds tables built once per run and read-only afterwards.
type Lookup struct {
	lgamma []float64
	// depth[coi][k] is the importance-sampling depth for a sample with
	// the given COI at a locus with k alleles.
	depth [][]int
}

// New builds the tables. maxCOI bounds the per-sample COI, maxAlleles the
// per-locus allele count, maxDepth the configured importance-sampling depth.
func New(maxCOI, maxAlleles, maxDepth int) (*Lookup, error) {
	if maxCOI < 1 {
		return nil, fmt.Errorf("max COI must be positive, got %d", maxCOI)
	}
	if maxAlleles < 1 {
		return nil, fmt.Errorf("max allele count must be positive, got %d", maxAlleles)
	}
	if maxDepth < 1 {
		return nil, fmt.Errorf("sampling depth must be positive, got %d", maxDepth)
	}

	l := &Lookup{
		lgamma: make([]float64, maxCOI+2),
		depth:  make([][]int, maxCOI+1),
	}
	for n := range l.lgamma {
		l.lgamma[n], _ = math.Lgamma(float64(n))
	}
	for coi := 0; coi <= maxCOI; coi++ {
		l.depth[coi] = make([]int, maxAlleles+1)
		for k := 1; k <= maxAlleles; k++ {
			l.depth[coi][k] = depthCap(coi, k, maxDepth)
		}
	}
	return l, nil
}

// depthCap bounds the Monte Carlo depth by the size of the latent genotype
// space: there are C(coi+k-1, k-1) ways to distribute coi strains over k
// alleles, so small spaces need few draws for acceptable variance.
func depthCap(coi, k, maxDepth int) int {
	a, _ := math.Lgamma(float64(coi + k))
	b, _ := math.Lgamma(float64(coi + 1))
	c, _ := math.Lgamma(float64(k))
	logStates := a - b - c
	if logStates > math.Log(float64(maxDepth)) {
		return maxDepth
	}
	states := int(math.Round(math.Exp(logStates)))
	if states < 1 {
		states = 1
	}
	if states > maxDepth {
		return maxDepth
	}
	return states
}

// Lgamma returns log Γ(n) from the table.
func (l *Lookup) Lgamma(n int) float64 {
	return l.lgamma[n]
}

// Depth returns the importance-sampling depth for a COI and allele count.
func (l *Lookup) Depth(coi, numAlleles int) int {
	return l.depth[coi][numAlleles]
}
