// Package optimizer implements the iterative makespan-tightening loop
// (C10, spec.md §4.10): solve, record the objective, forbid it, restart.
package optimizer

import (
	"context"

	"github.com/cortexplan/lcp/internal/domain"
)

// SolveFunc runs one search to either a solution or UNSAT. found reports
// whether a solution was reached; objective is only meaningful when found
// is true.
type SolveFunc func(ctx context.Context) (found bool, objective int32, interrupted bool)

// Bound posts `objective <= v-1` at the root and restarts the underlying
// solver so the next SolveFunc call searches under the tightened bound.
type Bound func(maxObjective int32)

// Solution is one improving assignment found during the loop, in the order
// they were produced.
type Solution struct {
	Objective int32
}

// Loop drives spec.md §4.10: solve; on a solution with objective v, record
// it, bound the objective to v-1 at root, and repeat; terminate when a
// solve call reports UNSAT. OnSolution, if non-nil, is invoked synchronously
// between solve calls (spec.md §9 "Coroutines / callbacks": a value-type
// callback, no suspension inside the solver).
type Loop struct {
	solve      SolveFunc
	bound      Bound
	OnSolution func(Solution)
}

// New returns a Loop over the given solve/bound callbacks.
func New(solve SolveFunc, bound Bound) *Loop {
	return &Loop{solve: solve, bound: bound}
}

// Run executes the loop until UNSAT, interruption, or ctx is cancelled,
// returning every improving solution in the order found, the best one last
// (zero Solutions if none).
func (l *Loop) Run(ctx context.Context) []Solution {
	var best []Solution
	for {
		found, objective, interrupted := l.solve(ctx)
		if interrupted {
			return best
		}
		if !found {
			return best
		}
		sol := Solution{Objective: objective}
		best = append(best, sol)
		if l.OnSolution != nil {
			l.OnSolution(sol)
		}
		l.bound(objective)
	}
}

// ExternalImprovement lets the portfolio feed in a solution found by
// another worker (spec.md §4.10 "Solutions received from other workers are
// treated identically to locally found ones"): it posts the same root bound
// Run posts after a local solution with that objective. The bound is posted
// whether or not objective improves on earlier ones, and the solution is not
// added to Run's result nor passed to OnSolution.
func (l *Loop) ExternalImprovement(objective int32) {
	l.bound(objective)
}

// ObjectiveLiteral builds the `o <= maxValue` literal a Bound callback
// posts at root to forbid every objective value above maxValue.
func ObjectiveLiteral(objective domain.VarID, maxValue int32) domain.Literal {
	return domain.Leq(objective, maxValue)
}
