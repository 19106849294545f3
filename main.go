package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/cortexplan/lcp/internal/chronicles"
	"github.com/cortexplan/lcp/lcp"
	"github.com/cortexplan/lcp/planio"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagDomain = flag.String(
	"domain",
	"",
	"path to a separate domain (template library) file",
)

var flagOutput = flag.String(
	"o",
	"",
	"write the plan to this file instead of stdout",
)

var flagMinDepth = flag.Int(
	"min-depth",
	0,
	"minimum HTN decomposition depth to try",
)

var flagMaxDepth = flag.Int(
	"max-depth",
	-1,
	"maximum HTN decomposition depth to try (default: same as -min-depth)",
)

var flagOptimize = flag.Bool(
	"optimize",
	false,
	"run the iterative makespan-tightening loop instead of stopping at the first plan",
)

var flagNoSearch = flag.Bool(
	"no-search",
	false,
	"stop after the initial propagation pass and report consistency only",
)

type config struct {
	domainFile  string
	problemFile string
	outputFile  string
	memProfile  bool
	cpuProfile  bool
	opts        lcp.Options
}

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing problem file")
	}

	opts := lcp.DefaultOptions()
	opts.MinDepth = *flagMinDepth
	if *flagMaxDepth >= 0 {
		opts.MaxDepth = *flagMaxDepth
		opts.MaxDepthSet = true
	}
	opts.OptimizeMakespan = *flagOptimize
	opts.NoSearch = *flagNoSearch

	return &config{
		domainFile:  *flagDomain,
		problemFile: flag.Arg(0),
		outputFile:  *flagOutput,
		memProfile:  *flagMemProfile,
		cpuProfile:  *flagCPUProfile,
		opts:        opts,
	}, nil
}

// exit codes per spec.md §6 "CLI".
const (
	exitOK          = 0
	exitParseError  = 1
	exitNoPlan      = 2
	exitInterrupted = 3
)

func run(cfg *config) int {
	var problem *chronicles.FiniteProblem
	var err error
	if cfg.domainFile != "" {
		problem, err = planio.LoadProblemWithDomain(cfg.domainFile, cfg.problemFile)
	} else {
		problem, err = planio.LoadProblem(cfg.problemFile)
	}
	if err != nil {
		log.Printf("lcp: %s", err)
		return exitParseError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	t := time.Now()
	pr, err := lcp.SolveContext(ctx, problem, cfg.opts)
	elapsed := time.Since(t)
	log.Printf("c time (sec): %f", elapsed.Seconds())

	switch {
	case errors.Is(err, lcp.ErrInterrupted):
		return exitInterrupted
	case errors.Is(err, lcp.ErrUnsat):
		log.Printf("c status:     unsat")
		return exitNoPlan
	case err != nil:
		log.Printf("lcp: %s", err)
		return exitParseError
	}

	out := os.Stdout
	if cfg.outputFile != "" {
		f, err := os.Create(cfg.outputFile)
		if err != nil {
			log.Printf("lcp: %s", err)
			return exitParseError
		}
		defer f.Close()
		out = f
	}

	if problem.Hierarchical {
		err = planio.WriteHierarchicalPlan(out, pr)
	} else {
		err = planio.WriteFlatPlan(out, pr)
	}
	if err != nil {
		log.Printf("lcp: %s", err)
		return exitParseError
	}
	return exitOK
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
	}

	code := run(cfg)

	if cfg.cpuProfile {
		pprof.StopCPUProfile()
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}

	os.Exit(code)
}
