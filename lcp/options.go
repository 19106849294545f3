package lcp

import (
	"os"
	"strconv"

	"github.com/cortexplan/lcp/internal/chronicles"
)

// Options configures one Solve call (spec.md §6 "Planner entry point").
type Options struct {
	// MinDepth/MaxDepth bound the HTN decomposition-depth search; ignored
	// in flat mode. MaxDepth defaults to MinDepth when MaxDepthSet is false.
	MinDepth    int
	MaxDepth    int
	MaxDepthSet bool

	// OptimizeMakespan runs the iterative makespan-tightening loop instead
	// of stopping at the first plan found.
	OptimizeMakespan bool

	// NoSearch stops after the initial propagate-to-quiescence pass,
	// reporting consistency without branching.
	NoSearch bool

	Symmetry   chronicles.SymmetryBreaking
	NumWorkers int

	// PreferMinValue selects the value heuristic for the default VSIDS
	// brancher: lower bound first instead of the last saved phase.
	PreferMinValue bool

	InitialAllowedConflicts float64
	ConflictIncreaseRatio   float64
}

// DefaultOptions returns spec.md §6's defaults.
func DefaultOptions() Options {
	return Options{
		MinDepth:                0,
		Symmetry:                chronicles.SymmetrySimple,
		NumWorkers:              1,
		InitialAllowedConflicts: 100,
		ConflictIncreaseRatio:   1.5,
	}
}

// applyEnv overrides opts with the ARIES_* environment variables of
// spec.md §6, read once at solver construction (§9 "Global state").
func applyEnv(opts Options) Options {
	if v, ok := os.LookupEnv("ARIES_LCP_SYMMETRY_BREAKING"); ok {
		switch v {
		case "none":
			opts.Symmetry = chronicles.SymmetryNone
		case "simple":
			opts.Symmetry = chronicles.SymmetrySimple
		}
	}
	if v, ok := os.LookupEnv("ARIES_SMT_PREFER_MIN_VALUE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.PreferMinValue = b
		}
	}
	if v, ok := os.LookupEnv("ARIES_SMT_INITIALLY_ALLOWED_CONFLICT"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.InitialAllowedConflicts = f
		}
	}
	if v, ok := os.LookupEnv("ARIES_SMT_INCREASE_RATIO_FOR_ALLOWED_CONFLICTS"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.ConflictIncreaseRatio = f
		}
	}
	return opts
}
