// Package run drives one or more independent chains: burn-in, posterior
// recording, trajectory output, checkpointing and signal handling.
package run

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/op/go-logging"
	bolt "go.etcd.io/bbolt"

	"polycoi/chain"
	"polycoi/checkpoint"
	"polycoi/genotype"
	"polycoi/lookup"
)

// log is the global logging variable.
var log = logging.MustGetLogger("run")

// Settings control the driver, not the model.
type Settings struct {
	// Iterations is the total number of iterations per chain,
	// including burn-in.
	Iterations int
	// BurnIn is the number of leading iterations discarded from the
	// posterior record.
	BurnIn int
	// Chains is the number of independent chains run in parallel.
	Chains int
	// Seed seeds chain c with Seed+c.
	Seed uint64
	// ReportPeriod is the trajectory output period in iterations.
	ReportPeriod int
	// AccPeriod is the acceptance-rate logging period in iterations.
	AccPeriod int
	// CheckpointSeconds is the minimum interval between checkpoint
	// saves.
	CheckpointSeconds float64
	// Resume restarts chains from their checkpoints when present.
	Resume bool
}

// DefaultSettings returns driver settings with reasonable defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Iterations:        10000,
		BurnIn:            1000,
		Chains:            1,
		Seed:              1,
		ReportPeriod:      10,
		AccPeriod:         200,
		CheckpointSeconds: 30,
	}
}

// Validate checks the driver settings.
func (s *Settings) Validate() error {
	if s.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", s.Iterations)
	}
	if s.BurnIn < 0 || s.BurnIn >= s.Iterations {
		return fmt.Errorf("burn-in must be in [0, iterations), got %d", s.BurnIn)
	}
	if s.Chains < 1 {
		return fmt.Errorf("need at least one chain, got %d", s.Chains)
	}
	return nil
}

// Result holds the post-burn-in draws of one chain.
type Result struct {
	Chain  int
	M      [][]int
	P      [][][]float64
	EpsPos []float64
	EpsNeg []float64
	LogLik []float64
}

// Runner owns the chains for one inference run. Chains share nothing but
// the read-only inputs, so they run fully in parallel.
type Runner struct {
	data     *genotype.Data
	params   *chain.Parameters
	settings *Settings

	out   io.Writer
	outMu sync.Mutex
	db    *bolt.DB

	sig  chan os.Signal
	stop chan struct{}
}

// NewRunner creates a runner. out receives the TSV trajectory and may be
// nil; db enables checkpointing and may be nil.
func NewRunner(data *genotype.Data, params *chain.Parameters, settings *Settings, out io.Writer, db *bolt.DB) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		data:     data,
		params:   params,
		settings: settings,
		out:      out,
		db:       db,
		stop:     make(chan struct{}),
	}, nil
}

// WatchSignals requests a graceful stop when one of the signals arrives.
// Chains finish their current iteration and record what they have.
func (r *Runner) WatchSignals(sigs ...os.Signal) {
	r.sig = make(chan os.Signal, 1)
	signal.Notify(r.sig, sigs...)
	go func() {
		s := <-r.sig
		log.Warningf("Received signal %v, stopping after the current iteration.", s)
		close(r.stop)
	}()
}

// Run executes all chains and returns their posterior draws.
func (r *Runner) Run() ([]*Result, error) {
	lk, err := lookup.New(r.params.MaxCOI, r.data.MaxNumAlleles(), r.params.ImportanceSamplingDepth)
	if err != nil {
		return nil, err
	}

	r.printHeader()

	results := make([]*Result, r.settings.Chains)
	errs := make([]error, r.settings.Chains)
	var wg sync.WaitGroup
	for ci := 0; ci < r.settings.Chains; ci++ {
		wg.Add(1)
		go func(ci int) {
			defer wg.Done()
			results[ci], errs[ci] = r.runChain(ci, lk)
		}(ci)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// traceLogger forwards accepted scalar-block proposals to the debug log,
// the counterpart of the reference implementation's inline diagnostics.
type traceLogger struct {
	chain int
}

func (t *traceLogger) Trace(e chain.Event) {
	if e.Accepted && e.Index < 0 {
		log.Debugf("chain %d: %d: %v -> %f", t.chain, e.Iteration, e.Block, e.Value)
	}
}

func (r *Runner) runChain(ci int, lk *lookup.Lookup) (*Result, error) {
	c, err := chain.New(r.data, lk, r.params, r.settings.Seed+uint64(ci))
	if err != nil {
		return nil, err
	}
	c.SetTracer(&traceLogger{chain: ci})

	var ckpt *checkpoint.IO
	start := 1
	if r.db != nil {
		key := []byte(fmt.Sprintf("chain-%d", ci))
		ckpt = checkpoint.NewIO(r.db, key, r.settings.CheckpointSeconds)
		if r.settings.Resume {
			state, err := ckpt.Load()
			if err != nil {
				return nil, err
			}
			if state != nil && !state.Final {
				if err := c.Restore(state); err != nil {
					return nil, err
				}
				start = state.Iteration + 1
			}
		}
	}

	res := &Result{Chain: ci}
	accepted := 0
	lastAccepted := 0

Iter:
	for iter := start; iter <= r.settings.Iterations; iter++ {
		c.Step(iter)

		if iter > r.settings.BurnIn {
			res.M = append(res.M, c.M())
			res.P = append(res.P, c.P())
			res.EpsPos = append(res.EpsPos, c.EpsPos())
			res.EpsNeg = append(res.EpsNeg, c.EpsNeg())
			res.LogLik = append(res.LogLik, c.LogLikelihood())
		}

		if iter%r.settings.ReportPeriod == 0 {
			r.printLine(ci, iter, c)
		}
		if r.settings.AccPeriod > 0 && iter%r.settings.AccPeriod == 0 {
			accepted = totalAccepted(c)
			moves := r.settings.AccPeriod * (r.data.NumSamples + r.data.NumLoci + 2)
			log.Infof("chain %d: acceptance rate %.2f%%", ci,
				100*float64(accepted-lastAccepted)/float64(moves))
			lastAccepted = accepted
		}
		if ckpt != nil && ckpt.Old() {
			if err := ckpt.Save(c.Snapshot(iter)); err != nil {
				log.Error("checkpoint save failed:", err)
			}
		}

		select {
		case <-r.stop:
			log.Noticef("chain %d stopped at iteration %d", ci, iter)
			break Iter
		default:
		}
	}

	if ckpt != nil {
		state := c.Snapshot(r.settings.Iterations)
		state.Final = true
		if err := ckpt.Save(state); err != nil {
			log.Error("final checkpoint save failed:", err)
		}
	}

	log.Noticef("chain %d finished: llik=%f, mean COI=%.2f, eps_pos=%.4f, eps_neg=%.4f",
		ci, c.LogLikelihood(), c.MeanCOI(), c.EpsPos(), c.EpsNeg())
	return res, nil
}

func totalAccepted(c *chain.Chain) int {
	total := 0
	for _, a := range c.MAcceptance() {
		total += a
	}
	for _, a := range c.PAcceptance() {
		total += a
	}
	pos, neg := c.EpsAcceptance()
	return total + pos + neg
}

func (r *Runner) printHeader() {
	if r.out == nil {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, "chain\titeration\tlikelihood\teps_pos\teps_neg\tmean_coi\n")
}

func (r *Runner) printLine(ci, iter int, c *chain.Chain) {
	if r.out == nil {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, "%d\t%d\t%f\t%f\t%f\t%f\n",
		ci, iter, c.LogLikelihood(), c.EpsPos(), c.EpsNeg(), c.MeanCOI())
}
