package chain

// Block identifies one of the four parameter blocks updated per iteration.
type Block int

// Parameter blocks in their per-iteration update order.
const (
	BlockM Block = iota
	BlockP
	BlockEpsPos
	BlockEpsNeg
)

func (b Block) String() string {
	switch b {
	case BlockM:
		return "m"
	case BlockP:
		return "p"
	case BlockEpsPos:
		return "eps_pos"
	case BlockEpsNeg:
		return "eps_neg"
	}
	return "unknown"
}

// Event describes a single proposal outcome.
type Event struct {
	// Iteration is the 1-based iteration number.
	Iteration int
	// Block is the parameter block the proposal belongs to.
	Block Block
	// Index is the sample (BlockM) or locus (BlockP) index, -1 for the
	// scalar blocks.
	Index int
	// Accepted reports whether the proposal was accepted.
	Accepted bool
	// Value is the parameter value after the accept/reject decision.
	// For BlockP it is the first allele frequency of the locus.
	Value float64
}

// Tracer receives proposal outcomes for diagnostics. Implementations must
// be cheap; Trace is called from the hot loop.
type Tracer interface {
	Trace(Event)
}

func (c *Chain) trace(iter int, block Block, index int, accepted bool, value float64) {
	if c.tracer == nil {
		return
	}
	c.tracer.Trace(Event{
		Iteration: iter,
		Block:     block,
		Index:     index,
		Accepted:  accepted,
		Value:     value,
	})
}
