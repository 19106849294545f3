package lcp

import (
	"context"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/optimizer"
	"github.com/cortexplan/lcp/internal/portfolio"
	"github.com/cortexplan/lcp/planio"
)

// optimizeWorker drives an optimizer.Loop over a searchWorker, the
// iterative makespan-tightening loop of spec.md §4.10. It reacts to a
// sibling's MsgSolutionFound by feeding it into the same Loop through
// ExternalImprovement, so an improvement found anywhere in the portfolio
// tightens every worker's bound identically (spec.md §4.10 "Solutions
// received from other workers are treated identically to locally found
// ones").
type optimizeWorker struct {
	sw           *searchWorker
	objectiveVar domain.VarID
	loop         *optimizer.Loop
	inbox        <-chan portfolio.Message
	noInbox      chan portfolio.Message

	best            *planio.PlanResult
	lastInterrupted bool
}

func newOptimizeWorker(sw *searchWorker, objectiveVar domain.VarID) *optimizeWorker {
	w := &optimizeWorker{sw: sw, objectiveVar: objectiveVar, noInbox: make(chan portfolio.Message)}
	w.loop = optimizer.New(w.solveOnce, w.bound)
	w.loop.OnSolution = w.onSolution
	return w
}

// Run implements portfolio.Worker by driving the Loop to completion; inbox
// is polled once per search attempt inside solveOnce, a coarser granularity
// than a plain searchWorker's per-decision poll, traded for letting the
// Loop own the restart-and-tighten sequence end to end.
func (w *optimizeWorker) Run(ctx context.Context, inbox <-chan portfolio.Message) portfolio.Result {
	w.inbox = inbox
	w.loop.Run(ctx)
	if w.best != nil {
		return portfolio.Result{WorkerID: w.sw.id, Solved: true}
	}
	if w.lastInterrupted {
		return portfolio.Result{WorkerID: w.sw.id, Interrupted: true}
	}
	return portfolio.Result{WorkerID: w.sw.id, Unsat: true}
}

// solveOnce is the Loop's SolveFunc: drain pending portfolio messages,
// then run one restart-to-completion search.
func (w *optimizeWorker) solveOnce(ctx context.Context) (found bool, objective int32, interrupted bool) {
	for {
		select {
		case msg := <-w.inbox:
			if !w.handleMessage(msg) {
				w.lastInterrupted = true
				return false, 0, true
			}
			continue
		case <-ctx.Done():
			w.lastInterrupted = true
			return false, 0, true
		default:
		}
		break
	}

	res := w.sw.Run(ctx, w.noInbox)
	w.lastInterrupted = res.Interrupted
	switch {
	case res.Interrupted:
		return false, 0, true
	case res.Unsat:
		return false, 0, false
	default:
		lb, _ := w.sw.inst.store.Bounds(w.objectiveVar)
		return true, lb, false
	}
}

func (w *optimizeWorker) handleMessage(msg portfolio.Message) bool {
	switch msg.Kind {
	case portfolio.MsgInterrupt:
		return false
	case portfolio.MsgLearnedClause:
		if w.sw.engine.DecisionLevel() == 0 {
			w.sw.engine.Record(msg.Clause)
		}
	case portfolio.MsgSolutionFound:
		if msg.HasObjective {
			w.loop.ExternalImprovement(msg.Objective)
		}
	}
	return true
}

// bound posts `objective <= v-1` at the root, the Loop's Bound callback.
func (w *optimizeWorker) bound(v int32) {
	w.sw.engine.CancelUntil(0)
	_ = w.sw.engine.AddClause([]domain.Literal{optimizer.ObjectiveLiteral(w.objectiveVar, v-1)})
}

// onSolution snapshots the plan for the most recent improvement and tells
// the rest of the portfolio about it, the Loop's OnSolution callback.
func (w *optimizeWorker) onSolution(sol optimizer.Solution) {
	w.best = extractResult(w.sw.inst)
	if w.sw.pf != nil {
		w.sw.pf.Broadcast(portfolio.Message{Kind: portfolio.MsgSolutionFound, Objective: sol.Objective, HasObjective: true}, w.sw.pfIndex)
	}
}
