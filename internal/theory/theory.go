// Package theory defines the plug-in contract every theory (at minimum the
// Simple Temporal Network theory) must satisfy to cooperate with the SAT
// engine under the coordinator's Nelson-Oppen-style propagate-and-explain
// loop (spec.md §4.5, §9 "Deep dispatch on theories").
package theory

import (
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// BindStatus reports what a theory did with a binding queue entry.
type BindStatus uint8

const (
	Unsupported BindStatus = iota
	Enforced
	Refined
)

// Theory is reachable only through this capability set; it receives the
// domain store by reference on every call and must not keep a back
// reference to the solver (spec.md §9).
type Theory interface {
	// Bind offers the theory a (literal, expression) pair from the binding
	// queue. It returns Unsupported if the theory does not recognize the
	// expression's shape.
	Bind(store *domain.Store, l domain.Literal, target expr.Expr) (BindStatus, error)

	// Propagate runs the theory's incremental inference to a local
	// fixed point, tightening bounds through store.Set. It returns a
	// Contradiction (spec.md §4.5) with an explanation on failure.
	Propagate(store *domain.Store) *Contradiction

	// Explain expands a theory-produced inference into its antecedent
	// literals; it implements domain.Explainer for this theory's Writer id.
	Explain(l domain.Literal, cause domain.Cause, out []domain.Literal) []domain.Literal

	// Save/NumSaved/RestoreLast/Restore let the coordinator assert that
	// every reasoner's backtracking depth stays in lock-step (spec.md §4.1).
	Save() int
	NumSaved() int
	RestoreLast()
	Restore(level int)

	// Writer returns this theory's stable 8-bit reasoner id.
	Writer() domain.Writer
}

// Contradiction is returned by Propagate on failure; Literals lists the
// antecedent bound literals whose conjunction is inconsistent (e.g. the
// edges of a negative cycle for the STN theory).
type Contradiction struct {
	Literals []domain.Literal
}

func (c *Contradiction) Error() string {
	return "theory: contradiction"
}
