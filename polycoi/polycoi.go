/*

Polycoi estimates complexity of infection (COI) and allele frequencies
from noisy presence/absence genotyping data of polyallelic loci, using
adaptive Metropolis-Hastings MCMC with an importance-sampled marginal
likelihood.

The basic usage looks like this:

	polycoi run data.json

, this will run a single chain with default parameters.

Multiple chains, custom parameters and posterior output:

	polycoi run -p params.toml --chains 4 --json posterior.json data.json

Synthetic data generation:

	polycoi sim --samples 100 --loci 20 --alleles 5 --out data.json

To see all the options run:

	polycoi help

*/
package main

import (
	"encoding/json"
	"os"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/op/go-logging"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/alecthomas/kingpin.v2"

	"polycoi/chain"
	"polycoi/genotype"
	"polycoi/run"
	"polycoi/sim"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = "branch: " + gitbranch + ", revision: " + githash + ", build time: " + buildstamp

// Logger settings.
var log = logging.MustGetLogger("polycoi")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("polycoi", "complexity of infection and allele frequency estimation from noisy genotypes").Version(version)

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()
	outLogF    = app.Flag("log", "write log to a file").String()
	logLevel   = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")

	// run command
	runCmd     = app.Command("run", "run MCMC inference")
	dataF      = runCmd.Arg("data", "genotyping data (JSON)").Required().ExistingFile()
	paramsF    = runCmd.Flag("params", "model parameters (TOML)").Short('p').ExistingFile()
	iterations = runCmd.Flag("iter", "number of iterations per chain").Default("10000").Int()
	burnIn     = runCmd.Flag("burnin", "number of burn-in iterations (10% by default)").Default("-1").Int()
	chains     = runCmd.Flag("chains", "number of independent chains").Default("1").Int()
	seed       = runCmd.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	report     = runCmd.Flag("report", "report every N iterations").Default("10").Int()
	accept     = runCmd.Flag("accept", "report acceptance rate every N iterations").Default("200").Int()
	outF       = runCmd.Flag("out", "write sampling trajectory to a file").String()
	jsonF      = runCmd.Flag("json", "write posterior summary in json format to a file").String()
	prob       = runCmd.Flag("prob", "credible interval probability mass").Default("0.95").Float64()
	ckptF      = runCmd.Flag("checkpoint", "checkpoint database file").String()
	ckptEvery  = runCmd.Flag("checkpoint-every", "minimum seconds between checkpoints").Default("30").Float64()
	resume     = runCmd.Flag("resume", "resume chains from the checkpoint database").Bool()

	// sim command
	simCmd     = app.Command("sim", "generate synthetic genotyping data")
	simSamples = simCmd.Flag("samples", "number of samples").Default("100").Int()
	simLoci    = simCmd.Flag("loci", "number of loci").Default("20").Int()
	simAlleles = simCmd.Flag("alleles", "number of alleles per locus").Default("5").Int()
	simMeanCOI = simCmd.Flag("mean-coi", "mean COI (zero-truncated Poisson)").Default("3").Float64()
	simMaxCOI  = simCmd.Flag("max-coi", "maximum COI").Default("20").Int()
	simAlpha   = simCmd.Flag("alpha", "Dirichlet concentration for allele frequencies").Default("1").Float64()
	simEpsPos  = simCmd.Flag("eps-pos", "false positive rate").Default("0.01").Float64()
	simEpsNeg  = simCmd.Flag("eps-neg", "false negative rate").Default("0.1").Float64()
	simSeed    = simCmd.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	simOutF    = simCmd.Flag("out", "output file (JSON), stdout by default").String()
)

// effectiveSeed converts the -1 default into a time-based seed.
func effectiveSeed(seed int64) uint64 {
	if seed == -1 {
		seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", seed)
	return uint64(seed)
}

func runInference() {
	dataFile, err := os.Open(*dataF)
	if err != nil {
		log.Fatal(err)
	}
	defer dataFile.Close()
	data, err := genotype.Read(dataFile)
	if err != nil {
		log.Fatal(err)
	}

	params := chain.DefaultParameters()
	if *paramsF != "" {
		if _, err := toml.DecodeFile(*paramsF, params); err != nil {
			log.Fatal("Error reading parameter file:", err)
		}
	}
	if err := params.Validate(); err != nil {
		log.Fatal(err)
	}

	settings := run.DefaultSettings()
	settings.Iterations = *iterations
	settings.BurnIn = *burnIn
	if settings.BurnIn < 0 {
		settings.BurnIn = *iterations / 10
	}
	settings.Chains = *chains
	settings.Seed = effectiveSeed(*seed)
	settings.ReportPeriod = *report
	settings.AccPeriod = *accept
	settings.CheckpointSeconds = *ckptEvery
	settings.Resume = *resume

	var out *os.File
	if *outF != "" {
		out, err = os.Create(*outF)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer out.Close()
	} else {
		out = os.Stdout
	}

	var db *bolt.DB
	if *ckptF != "" {
		db, err = bolt.Open(*ckptF, 0644, nil)
		if err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer db.Close()
	}

	runner, err := run.NewRunner(data, params, settings, out, db)
	if err != nil {
		log.Fatal(err)
	}
	runner.WatchSignals(os.Interrupt, syscall.SIGTERM)

	startTime := time.Now()
	results, err := runner.Run()
	if err != nil {
		log.Fatal(err)
	}
	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	summary := run.Summarize(results, *prob)
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}

func runSim() {
	cfg := &sim.Config{
		NumSamples: *simSamples,
		NumLoci:    *simLoci,
		NumAlleles: *simAlleles,
		MeanCOI:    *simMeanCOI,
		MaxCOI:     *simMaxCOI,
		Alpha:      *simAlpha,
		EpsPos:     *simEpsPos,
		EpsNeg:     *simEpsNeg,
	}
	data, _, err := sim.Simulate(cfg, effectiveSeed(*simSeed))
	if err != nil {
		log.Fatal(err)
	}

	out := os.Stdout
	if *simOutF != "" {
		out, err = os.Create(*simOutF)
		if err != nil {
			log.Fatal("Error creating output file:", err)
		}
		defer out.Close()
	}
	if err := data.Write(out); err != nil {
		log.Fatal(err)
	}
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, pkg := range []string{"polycoi", "run", "chain", "genotype", "sim", "checkpoint"} {
		logging.SetLevel(level, pkg)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *nThreads > 0 {
		runtime.GOMAXPROCS(*nThreads)
	}
	log.Infof("Using threads: %d.", runtime.GOMAXPROCS(0))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	switch cmd {
	case runCmd.FullCommand():
		runInference()
	case simCmd.FullCommand():
		runSim()
	}
}
