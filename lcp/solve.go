// Package lcp is the chronicle-based CDCL+theory planner's library entry
// point: Solve encodes a chronicles.FiniteProblem, searches it with a
// portfolio of workers, and reads a solved model back into a planio plan
// (spec.md §6 "Planner entry point").
package lcp

import (
	"context"

	"github.com/cortexplan/lcp/internal/brancher"
	"github.com/cortexplan/lcp/internal/chronicles"
	"github.com/cortexplan/lcp/internal/portfolio"
	"github.com/cortexplan/lcp/planio"
)

// Solve runs SolveContext with context.Background().
func Solve(problem *chronicles.FiniteProblem, opts Options) (*planio.PlanResult, error) {
	return SolveContext(context.Background(), problem, opts)
}

// SolveContext encodes problem and searches for a plan, iterating HTN
// decomposition depth from opts.MinDepth to opts.MaxDepth (ignored in flat
// mode) and returning the first plan found, ErrUnsat if every depth is
// unsatisfiable, or ErrInterrupted if ctx is cancelled first.
func SolveContext(ctx context.Context, problem *chronicles.FiniteProblem, opts Options) (*planio.PlanResult, error) {
	opts = applyEnv(opts)
	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}

	minDepth, maxDepth := opts.MinDepth, opts.MinDepth
	if opts.MaxDepthSet {
		maxDepth = opts.MaxDepth
	}
	if !problem.Hierarchical {
		minDepth, maxDepth = 0, 0
	}

	for depth := minDepth; depth <= maxDepth; depth++ {
		inst, err := build(problem, opts, depth)
		if err != nil {
			return nil, err
		}
		if conflict := inst.coord.Propagate(); conflict != nil {
			continue // unsatisfiable at this depth; try the next one
		}

		if opts.NoSearch {
			return extractResult(inst), nil
		}

		pr, found, interrupted, err := solveOnce(ctx, problem, opts, depth, inst)
		if err != nil {
			return nil, err
		}
		if interrupted {
			return nil, ErrInterrupted
		}
		if found {
			return pr, nil
		}
	}
	return nil, ErrUnsat
}

func extractResult(inst *instance) *planio.PlanResult {
	return planio.ExtractPlan(inst.store, planio.NewSymbolTable(), inst.encoder.Chronicles())
}

func valueHeuristic(opts Options) brancher.ValueHeuristic {
	if opts.PreferMinValue {
		return brancher.PreferMinValue
	}
	return brancher.PreferSavedPhase
}

func newRestartPolicy(opts Options) *brancher.RestartPolicy {
	return brancher.NewRestartPolicy(opts.InitialAllowedConflicts, opts.ConflictIncreaseRatio)
}

// solveOnce runs one full portfolio search (or, under opts.OptimizeMakespan,
// one portfolio of optimizing workers) over primary plus opts.NumWorkers-1
// independently built clones (spec.md §4.9).
func solveOnce(ctx context.Context, problem *chronicles.FiniteProblem, opts Options, depth int, primary *instance) (*planio.PlanResult, bool, bool, error) {
	instances := []*instance{primary}
	for i := 1; i < opts.NumWorkers; i++ {
		clone, err := build(problem, opts, depth)
		if err != nil {
			return nil, false, false, err
		}
		if conflict := clone.coord.Propagate(); conflict != nil {
			continue // this clone's root is already inconsistent; skip it
		}
		instances = append(instances, clone)
	}

	support := chronicles.SupportScore(primary.store, primary.encoder.Chronicles())
	branchers := make([]brancher.Brancher, len(instances))
	branchers[0] = brancher.New(instances[0].store, instances[0].engine, instances[0].boolVars, valueHeuristic(opts))
	for i := 1; i < len(instances); i++ {
		branchers[i] = brancher.NewForwardSearch(instances[i].store, instances[i].boolVars, support, brancher.PreferMinValue)
	}

	workers := make([]portfolio.Worker, len(instances))
	sws := make([]*searchWorker, len(instances))
	for i, in := range instances {
		sw := newSearchWorker(i, in, branchers[i], newRestartPolicy(opts))
		sws[i] = sw
		if opts.OptimizeMakespan {
			root := in.encoder.Chronicles()[0]
			workers[i] = newOptimizeWorker(sw, root.End)
		} else {
			workers[i] = sw
		}
	}

	pf := portfolio.New(workers, portfolio.DefaultLimiter())
	for _, sw := range sws {
		sw.pf = pf
	}
	for i := range sws {
		sws[i].pfIndex = i
	}

	res := pf.Run(ctx)
	switch {
	case res.Interrupted:
		return nil, false, true, nil
	case res.Solved:
		if opts.OptimizeMakespan {
			ow := workers[res.WorkerID].(*optimizeWorker)
			return ow.best, true, false, nil
		}
		return extractResult(instances[res.WorkerID]), true, false, nil
	default:
		return nil, false, false, nil
	}
}
