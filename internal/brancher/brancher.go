// Package brancher implements the search-decision strategies (C7): a
// VSIDS-ordered default brancher grounded on the teacher's
// internal/sat/ordering.go, generalized from a boolean-only variable order to
// one that can sit in front of any domain.Store and skip already-entailed
// or non-boolean-branchable variables.
package brancher

import (
	"github.com/rhartert/yagh"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/sat"
)

// Brancher picks the next decision literal, or reports that the current
// assignment is already complete.
type Brancher interface {
	// Next returns the next decision literal and true, or false if every
	// variable this brancher is responsible for is already assigned.
	Next() (domain.Literal, bool)
}

// ValueHeuristic decides which polarity to try first for a variable the
// order picked.
type ValueHeuristic func(v domain.VarID, savedPhase bool) bool

// PreferSavedPhase is the teacher's phase-saving heuristic: try whatever
// value the variable held the last time it was assigned.
func PreferSavedPhase(_ domain.VarID, savedPhase bool) bool { return savedPhase }

// PreferMinValue always tries to keep a variable at its lower bound first,
// the standard choice for the search variables of a planning encoding
// (fewer actions, earlier times) when no phase has been saved yet.
func PreferMinValue(_ domain.VarID, _ bool) bool { return false }

// VSIDS is the default brancher (spec.md §4.7): a binary heap over boolean
// variable activity, generalized from the teacher's VarOrder to read
// activity directly off the shared sat.Engine instead of maintaining its
// own score array, and to skip variables already entailed by the domain
// store (optional variables whose presence literal is false, or variables
// fixed by unit propagation).
type VSIDS struct {
	store  *domain.Store
	engine *sat.Engine
	order  *yagh.IntMap[float64]

	phases []bool
	value  ValueHeuristic

	vars []domain.VarID
}

// New returns a VSIDS brancher over the given candidate variables, all of
// which must already be registered with engine via RegisterVar.
func New(store *domain.Store, engine *sat.Engine, vars []domain.VarID, value ValueHeuristic) *VSIDS {
	if value == nil {
		value = PreferSavedPhase
	}
	b := &VSIDS{
		store:  store,
		engine: engine,
		order:  yagh.New[float64](len(vars)),
		phases: make([]bool, engine.NumVariables()),
		value:  value,
		vars:   append([]domain.VarID{}, vars...),
	}
	for _, v := range vars {
		b.order.Put(int(v), -engine.Activity(v))
	}
	return b
}

// Bump must be called by the solver whenever engine.BumpVarActivity changes
// v's score, so the heap key stays consistent with the engine's activity
// array. The heap is keyed on the engine's variable activity; clause
// deletion (ReduceDB) ranks clauses by their own, separate clause activity.
func (b *VSIDS) Bump(v domain.VarID) {
	if b.order.Contains(int(v)) {
		b.order.Put(int(v), -b.engine.Activity(v))
	}
}

// Reinsert adds v back to the candidate set with the value it was last
// assigned saved for phase-saving, called by the solver on backtrack.
func (b *VSIDS) Reinsert(v domain.VarID, wasTrue bool) {
	b.phases[v] = wasTrue
	if !b.order.Contains(int(v)) {
		b.order.Put(int(v), -b.engine.Activity(v))
	}
}

// Next pops the highest-activity variable that is not yet entailed either
// way and returns the literal chosen by the value heuristic.
func (b *VSIDS) Next() (domain.Literal, bool) {
	for {
		next, ok := b.order.Pop()
		if !ok {
			return domain.Literal{}, false
		}
		v := domain.VarID(next.Elem)
		if b.store.Entails(domain.Leq(v, 0)) || b.store.Entails(domain.Geq(v, 1)) {
			continue
		}
		if b.store.Entails(b.store.Presence(v).Opposite()) {
			continue
		}
		if b.value(v, b.phases[v]) {
			return domain.Geq(v, 1), true
		}
		return domain.Leq(v, 0), true
	}
}
