package lcp

import (
	"context"

	"github.com/cortexplan/lcp/internal/brancher"
	"github.com/cortexplan/lcp/internal/coordinator"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/portfolio"
	"github.com/cortexplan/lcp/internal/sat"
)

// shortLearntClause is the length under which a worker shares a learnt
// clause with the rest of the portfolio (spec.md §4.9 "a worker that learns
// a short clause may broadcast it"); the spec leaves the exact threshold
// unspecified, this keeps broadcast to clauses cheap enough to be worth a
// stranger's decision level.
const shortLearntClause = 8

// searchWorker drives one single-threaded CDCL+theory search over inst,
// following the teacher's Solver.Search restart loop (internal/sat/solver.go
// in the retrieval pack), generalized to resolve conflicts through the
// coordinator instead of the SAT engine alone so a theory-detected conflict
// restarts the search exactly like a SAT one.
type searchWorker struct {
	id      int
	inst    *instance
	coord   *coordinator.Coordinator
	engine  *sat.Engine
	brnch   brancher.Brancher
	restart *brancher.RestartPolicy

	pf      *portfolio.Portfolio
	pfIndex int
}

func newSearchWorker(id int, inst *instance, b brancher.Brancher, restart *brancher.RestartPolicy) *searchWorker {
	w := &searchWorker{id: id, inst: inst, coord: inst.coord, engine: inst.engine, brnch: b, restart: restart}
	if vb, ok := b.(*brancher.VSIDS); ok {
		inst.engine.OnUnassign(func(v domain.VarID) {
			_, ub := inst.store.Bounds(v)
			vb.Reinsert(v, ub >= 1)
		})
	}
	return w
}

// Run implements portfolio.Worker: search to quiescence, polling inbox at
// every decision boundary (spec.md §5 "messages are polled ... never
// mid-propagation").
func (w *searchWorker) Run(ctx context.Context, inbox <-chan portfolio.Message) portfolio.Result {
	for {
		select {
		case <-ctx.Done():
			return portfolio.Result{WorkerID: w.id, Interrupted: true}
		case msg := <-inbox:
			if !w.handleMessage(msg) {
				return portfolio.Result{WorkerID: w.id, Interrupted: true}
			}
		default:
		}

		if conflict := w.coord.Propagate(); conflict != nil {
			if !w.resolve(conflict) {
				return portfolio.Result{WorkerID: w.id, Unsat: true}
			}
			continue
		}

		if w.restart.ShouldRestart() {
			w.engine.CancelUntil(0)
			w.restart.Reset()
			continue
		}

		lit, ok := w.brnch.Next()
		if !ok {
			if w.pf != nil {
				w.pf.Broadcast(portfolio.Message{Kind: portfolio.MsgSolutionFound}, w.pfIndex)
			}
			return portfolio.Result{WorkerID: w.id, Solved: true}
		}
		if !w.engine.Decide(lit) {
			panic("lcp: decide produced an immediate contradiction on an unassigned literal")
		}
	}
}

func (w *searchWorker) handleMessage(msg portfolio.Message) bool {
	switch msg.Kind {
	case portfolio.MsgInterrupt:
		return false
	case portfolio.MsgLearnedClause:
		if w.engine.DecisionLevel() == 0 {
			w.engine.Record(msg.Clause)
		}
	case portfolio.MsgSolutionFound:
		return false
	}
	return true
}

// resolve dispatches a coordinator.Conflict to the engine's 1-UIP analysis
// (SAT-detected, conflict.Clause != nil) or to the refined-nogood path
// (theory-detected), returning false on a root-level conflict (UNSAT).
func (w *searchWorker) resolve(conflict *coordinator.Conflict) bool {
	w.restart.OnConflict()

	if conflict.Clause != nil {
		if w.engine.DecisionLevel() == 0 {
			return false
		}
		learnt, backtrack := w.engine.Analyze(conflict.Clause)
		w.engine.CancelUntil(backtrack)
		w.engine.Record(learnt)
		w.engine.DecayClaActivity()
		w.engine.DecayVarActivity()
		w.bumpBrancher(learnt)
		w.broadcast(learnt)
		return true
	}

	if w.engine.DecisionLevel() == 0 {
		return false
	}
	nogood := conflict.NogoodClause()
	// Record asserts nogood[0]: put the highest-level literal there, the
	// one left unassigned after backtracking.
	for i := range nogood {
		if w.engine.Level(nogood[i].Var) > w.engine.Level(nogood[0].Var) {
			nogood[0], nogood[i] = nogood[i], nogood[0]
		}
	}
	w.engine.CancelUntil(w.backtrackLevel(nogood))
	w.engine.Record(nogood)
	w.bumpBrancher(nogood)
	w.broadcast(nogood)
	return true
}

// backtrackLevel returns the second-highest decision level among clause's
// literals: the level search must return to before re-installing clause so
// its remaining literal gets unit-propagated immediately (the same
// asserting-clause invariant sat.Engine.Analyze maintains for SAT conflicts,
// applied directly since a theory nogood is already a valid forbidding
// clause with no further resolution to do).
func (w *searchWorker) backtrackLevel(clause []domain.Literal) int {
	max, second := -1, -1
	for _, l := range clause {
		lvl := w.engine.Level(l.Var)
		switch {
		case lvl > max:
			second = max
			max = lvl
		case lvl > second:
			second = lvl
		}
	}
	if second < 0 {
		return 0
	}
	return second
}

func (w *searchWorker) bumpBrancher(clause []domain.Literal) {
	vb, ok := w.brnch.(*brancher.VSIDS)
	if !ok {
		return
	}
	for _, l := range clause {
		vb.Bump(l.Var)
	}
}

func (w *searchWorker) broadcast(clause []domain.Literal) {
	if w.pf == nil || len(clause) > shortLearntClause {
		return
	}
	w.pf.Broadcast(portfolio.Message{Kind: portfolio.MsgLearnedClause, Clause: clause}, w.pfIndex)
}
