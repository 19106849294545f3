// Package coordinator drives the propagate-to-quiescence loop (C6) that
// lets the SAT engine and every theory cooperate under a shared domain store,
// following the Nelson-Oppen-style propagate-and-explain contract of
// spec.md §4.6.
package coordinator

import (
	"fmt"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/theory"
)

// Conflict is the refined explanation produced when propagation fails.
type Conflict struct {
	// Clause is the conflicting clause when the SAT engine itself detected
	// the conflict (pass it to sat.Engine.Analyze); nil when a theory did.
	Clause *sat.Clause

	// Literals is the refined set of entailed antecedent literals whose
	// conjunction is inconsistent: the negation of each falsified literal
	// domain.Store.RefineExplanation returns. Only meaningful when Clause
	// is nil: a SAT conflict is resolved through Clause + Engine.Analyze
	// instead.
	Literals []domain.Literal
	Writer   domain.Writer
}

// NogoodClause turns a theory Conflict's entailed-literal explanation into
// the clause that forbids it: the disjunction of each literal's negation.
// Install it with sat.Engine.Record.
func (c *Conflict) NogoodClause() []domain.Literal {
	out := make([]domain.Literal, len(c.Literals))
	for i, l := range c.Literals {
		out[i] = l.Opposite()
	}
	return out
}

// Coordinator owns the binding-queue cursor and the propagate loop. It does
// not own the domain.Store or trail.Trail themselves — those are shared
// with every reasoner it drives.
type Coordinator struct {
	store    *domain.Store
	interner *expr.Interner
	cursor   *expr.Cursor
	engine   *sat.Engine
	theories []theory.Theory

	explainers map[domain.Writer]domain.Explainer

	// pending_tautologies: literals known at root before the first
	// Propagate call (spec.md §4.6 step 2, carried over from
	// solver/src/solver.rs's `pending_tautologies` field).
	pendingTautologies []domain.Literal

	// numSet counts the store modifications seen through Notify.
	numSet int
}

// New wires a Coordinator around the given store, interner and reasoners.
func New(store *domain.Store, interner *expr.Interner, engine *sat.Engine, theories ...theory.Theory) *Coordinator {
	c := &Coordinator{
		store:      store,
		interner:   interner,
		cursor:     interner.NewCursor(),
		engine:     engine,
		theories:   theories,
		explainers: map[domain.Writer]domain.Explainer{domain.WriterSAT: engine},
	}
	for _, th := range theories {
		c.explainers[th.Writer()] = th
	}
	store.Subscribe(c)
	return c
}

// Notify implements domain.Observer, counting every successful Set.
func (c *Coordinator) Notify(domain.Literal) { c.numSet++ }

// SetTautology records a literal known at the root but not yet processed;
// the caller (typically the chronicle encoder) must only call this before
// the first Propagate, per the invariant documented in solver.rs.
func (c *Coordinator) SetTautology(l domain.Literal) {
	c.pendingTautologies = append(c.pendingTautologies, l)
}

// Propagate drains the binding queue, asserts pending tautologies, and runs
// SAT and every theory in round-robin order until a full round passes
// without any new trail events, or a conflict is found (spec.md §4.6).
func (c *Coordinator) Propagate() *Conflict {
	if conf := c.drainBindings(); conf != nil {
		return conf
	}

	for _, l := range c.pendingTautologies {
		c.store.Set(l, domain.DecisionCause)
	}
	c.pendingTautologies = c.pendingTautologies[:0]

	for {
		if conflict := c.engine.Propagate(); conflict != nil {
			return c.refineSATConflict(conflict)
		}

		anyModified := false
		for _, th := range c.theories {
			before := c.snapshotLevelMarker()
			if contra := th.Propagate(c.store); contra != nil {
				return c.refineTheoryConflict(th, contra)
			}
			if c.snapshotLevelMarker() != before {
				anyModified = true
			}
		}

		if !anyModified {
			return nil
		}
		// Loop again: a theory may have unblocked further SAT propagation,
		// and vice versa, until a full round changes nothing.
	}
}

// snapshotLevelMarker is a cheap proxy for "did anything change": the
// number of store modifications the Coordinator has been notified of, so a
// theory Propagate call that tightened any bound changes the marker and
// Propagate runs another SAT-then-theories round.
func (c *Coordinator) snapshotLevelMarker() int { return c.numSet }

func (c *Coordinator) drainBindings() *Conflict {
	for _, b := range c.interner.Drain(c.cursor) {
		if b.Target.IsAlias {
			if err := c.engine.AddClause([]domain.Literal{b.Lit.Opposite(), b.Target.Alias}); err != nil {
				panic(fmt.Sprintf("coordinator: alias binding failed: %s", err))
			}
			if err := c.engine.AddClause([]domain.Literal{b.Target.Alias.Opposite(), b.Lit}); err != nil {
				panic(fmt.Sprintf("coordinator: alias binding failed: %s", err))
			}
			continue
		}

		claimed, err := c.engine.Bind(b.Lit, b.Target.Expr)
		if err != nil {
			panic(fmt.Sprintf("coordinator: sat binding failed: %s", err))
		}
		if claimed {
			continue
		}

		claimedByTheory := false
		for _, th := range c.theories {
			status, err := th.Bind(c.store, b.Lit, b.Target.Expr)
			if err != nil {
				panic(fmt.Sprintf("coordinator: theory binding failed: %s", err))
			}
			if status != theory.Unsupported {
				claimedByTheory = true
				break
			}
		}
		if !claimedByTheory {
			panic(fmt.Sprintf("coordinator: binding unsupported by any reasoner: %v", b.Target))
		}
	}
	return nil
}

// refineSATConflict wraps a SAT conflict as-is: the SAT engine's own
// Engine.Analyze performs the proper first-UIP resolution (spec.md §4.4,
// T4), which domain.Store.RefineExplanation's generic breadth-first
// expansion does not reproduce, so the caller is expected to call
// Engine.Analyze(conflict.Clause) rather than read conflict.Literals here.
func (c *Coordinator) refineSATConflict(clause *sat.Clause) *Conflict {
	return &Conflict{Clause: clause, Writer: domain.WriterSAT}
}

func (c *Coordinator) refineTheoryConflict(th theory.Theory, contra *theory.Contradiction) *Conflict {
	negated := make([]domain.Literal, len(contra.Literals))
	for i, l := range contra.Literals {
		negated[i] = l.Opposite()
	}
	refined := c.store.RefineExplanation(negated, c.explainers)
	for i, l := range refined {
		refined[i] = l.Opposite()
	}
	return &Conflict{Literals: refined, Writer: th.Writer()}
}
