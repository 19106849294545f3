// Package portfolio runs N independent solver workers over clones of the
// same encoded model, racing to the first solution or full UNSAT (C9,
// spec.md §4.9, §5). Grounded on the teacher's single-threaded design
// generalized to the errgroup-coordinated worker-pool shape used across the
// retrieval pack's Kubernetes-style controllers for bounded fan-out.
package portfolio

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cortexplan/lcp/internal/domain"
)

// MessageKind tags the payload carried on a worker's input channel
// (spec.md §4.9, §5).
type MessageKind uint8

const (
	MsgInterrupt MessageKind = iota
	MsgLearnedClause
	MsgSolutionFound
)

// Message is one entry of a worker's bounded input channel.
type Message struct {
	Kind    MessageKind
	Clause  []domain.Literal
	Objective int32
	HasObjective bool
}

// Result is what a worker reports back to the portfolio once its search
// loop ends.
type Result struct {
	WorkerID    int
	Solved      bool
	Unsat       bool
	Interrupted bool
}

// Worker is the narrow interface the portfolio drives; package lcp's
// searchWorker and optimizeWorker implement it, each wrapping one clone of
// engine/coordinator/brancher.
type Worker interface {
	// Run executes the worker's search loop, polling inbox at the top of
	// every decision (spec.md §5 "messages are polled ... never mid-
	// propagation"), until a result is reached or ctx is cancelled.
	Run(ctx context.Context, inbox <-chan Message) Result
}

// Portfolio coordinates a fixed set of workers and the broadcast fan-out
// between them.
type Portfolio struct {
	workers  []Worker
	inboxes  []chan Message
	limiter  *rate.Limiter
}

// New returns a Portfolio over workers, one bounded inbox per worker. Clause
// broadcast is throttled by limiter so a single worker's bursty learning
// cannot starve the others' channels (spec.md §4.9 "a worker that learns a
// short clause may broadcast it").
func New(workers []Worker, limiter *rate.Limiter) *Portfolio {
	p := &Portfolio{workers: workers, limiter: limiter}
	for range workers {
		p.inboxes = append(p.inboxes, make(chan Message, 64))
	}
	return p
}

// Broadcast pushes msg to every worker's inbox except skip, dropping it
// (rather than blocking) for any worker whose inbox is currently full —
// learned-clause sharing is best-effort.
func (p *Portfolio) Broadcast(msg Message, skip int) {
	if msg.Kind == MsgLearnedClause && p.limiter != nil && !p.limiter.Allow() {
		return
	}
	for i, inbox := range p.inboxes {
		if i == skip {
			continue
		}
		select {
		case inbox <- msg:
		default:
		}
	}
}

// Run starts every worker concurrently and returns the first reported
// solution, or Unsat if every worker reports UNSAT (spec.md §4.9 "The
// portfolio returns the first reported solution (or UNSAT if all report
// UNSAT)"). Interrupting ctx stops every remaining worker at its next
// decision boundary (spec.md §5 "Cancellation").
func (p *Portfolio) Run(ctx context.Context) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result, len(p.workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range p.workers {
		i, w := i, w
		g.Go(func() error {
			results <- w.Run(gctx, p.inboxes[i])
			return nil
		})
	}

	unsatCount := 0
	var final Result
	for range p.workers {
		r := <-results
		if r.Solved {
			final = r
			cancel()
			break
		}
		if r.Unsat {
			unsatCount++
		}
		if r.Interrupted {
			final = r
			cancel()
			break
		}
	}
	_ = g.Wait()

	if final.Solved || final.Interrupted {
		return final
	}
	if unsatCount == len(p.workers) {
		return Result{Unsat: true}
	}
	return final
}

// DefaultLimiter returns the clause-broadcast rate limiter spec.md §4.9
// leaves unspecified in exact numbers: a steady 200 clauses/sec with a
// burst of 32, generous enough not to throttle normal learning rates while
// still bounding worst-case channel pressure.
func DefaultLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(200), 32)
}
