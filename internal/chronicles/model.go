// Package chronicles implements the chronicle-to-constraint encoder (C8):
// it lowers a FiniteProblem into domain variables, SAT clauses and theory
// atoms, grounded on the encoding rules of spec.md §4.8.
package chronicles

import (
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// Kind classifies a chronicle.
type Kind uint8

const (
	KindProblem Kind = iota
	KindMethod
	KindAction
	KindDurativeAction
)

// Condition is a (state-variable, value, interval) triple a chronicle
// requires to hold.
type Condition struct {
	StateVar []domain.VarID
	Value    domain.VarID
	Start    domain.VarID
	End      domain.VarID
}

// Effect is a (state-variable, value, interval) triple a chronicle asserts.
// TransitionStart is when the write happens; PersistenceStart/End bound the
// interval during which the value holds for causal support purposes.
type Effect struct {
	StateVar         []domain.VarID
	Value            domain.VarID
	TransitionStart  domain.VarID
	PersistenceStart domain.VarID
	PersistenceEnd   domain.VarID
}

// Subtask is an open task a chronicle delegates to hierarchical
// decomposition.
type Subtask struct {
	ID    int
	Task  []domain.VarID
	Start domain.VarID
	End   domain.VarID
}

// ConstraintKind is the operator of a chronicle-level constraint.
type ConstraintKind uint8

const (
	CLt ConstraintKind = iota
	CLeq
	CEq
	CNeq
	CInTable
	COr
	CDuration
	CLinearEq
)

// Constraint is one atom-level constraint attached to a chronicle, lowered
// to SAT/theory clauses by the encoder.
type Constraint struct {
	Kind ConstraintKind

	// Lt/Leq/Eq/Neq/Duration operate on exactly two atoms.
	A, B domain.VarID

	// Duration bounds, inclusive, when Kind == CDuration.
	MinDur, MaxDur int32

	// InTable.
	Table   *expr.Table
	Columns []domain.VarID

	// Or is a disjunction of nested constraints.
	Or []Constraint

	// LinearEq: sum of Terms == 0.
	Terms []expr.LinearTerm
}

// Chronicle is one instance: a presence-gated bundle of conditions,
// effects, subtasks and constraints, spanning [Start, End] (spec.md §3).
type Chronicle struct {
	Presence domain.Literal
	Start    domain.VarID
	End      domain.VarID
	Name     []domain.VarID
	Kind     Kind

	// Task is the signature this chronicle refines, non-nil only for
	// Method/Action chronicles reachable through HTN decomposition.
	Task []domain.VarID

	Conditions  []Condition
	Effects     []Effect
	Subtasks    []Subtask
	Constraints []Constraint

	// GenerationID orders instances of the same Template for symmetry
	// breaking (spec.md §4.8 "Simple symmetry breaking").
	GenerationID int

	// TemplateName groups instances produced by the same Template.
	TemplateName string

	// InstanceID is this chronicle's position in Encoder.Chronicles(),
	// assigned by Encoder.addChronicle; planio reads it back to number
	// plan actions and decompositions (spec.md §6 "Plan output").
	InstanceID int

	// RefinesInstanceID/RefinesSubtaskID identify the open subtask (owner
	// chronicle instance id, subtask index within it) this chronicle was
	// built to refine during HTN expansion; -1/-1 for chronicles that are
	// not the product of hierarchical decomposition (the root Problem
	// chronicle, or any flat-mode template instance).
	RefinesInstanceID int
	RefinesSubtaskID  int
}

// Builder constructs one fresh Chronicle instance, allocating every atom
// under m. scope is the presence literal the new chronicle's own presence
// must be entailed by (its parent chronicle, or domain.True at the root).
//
// Modeling a template as a closure over a Model, rather than as a data
// structure to be deep-copied, sidesteps the need for reflection-based
// cloning: each call already produces fresh domain variables.
type Builder func(m *Model, scope domain.Literal) Chronicle

// Template is an instantiatable chronicle blueprint.
type Template struct {
	Name         string
	Build        Builder
	MaxInstances int

	// IsAction marks templates the HTN expander may use as leaf
	// refinements; method templates introduce further subtasks.
	IsAction bool
}

// Table aliases expr.Table for convenience in FiniteProblem.
type Table = expr.Table

// FiniteProblem is the encoder's input (spec.md §4.8).
type FiniteProblem struct {
	Horizon   int32
	Tables    map[string]*Table
	Problem   Builder // the root Problem chronicle, scope is always domain.True
	Templates []Template

	// Hierarchical selects HTN mode (Encoder.EncodeHTN) over flat mode
	// (Encoder.EncodeFlat): true when the root Problem chronicle declares
	// subtasks to decompose (spec.md §4.8 "HTN expansion").
	Hierarchical bool
}

// Model is the variable/expression allocator the encoder hands to every
// Builder; it wraps domain.Store and expr.Interner behind the narrow
// surface a chronicle builder needs.
type Model struct {
	Store    *domain.Store
	Interner *expr.Interner
	Horizon  int32

	// OnNewVar, if set, is called after every variable allocation so the
	// SAT engine can grow its per-variable bookkeeping (sat.Engine.RegisterVar)
	// in lockstep with the domain store.
	OnNewVar func(domain.VarID)
}

// NewVar allocates a plain integer variable in [lb, ub], labeled for
// debugging only. Model implements expr.VarAllocator through this method.
func (m *Model) NewVar(lb, ub int32, label string) domain.VarID {
	v := m.Store.NewVar(lb, ub, label)
	if m.OnNewVar != nil {
		m.OnNewVar(v)
	}
	return v
}

// NewOptionalVar allocates a variable meaningful only while presence holds.
func (m *Model) NewOptionalVar(lb, ub int32, presence domain.Literal) domain.VarID {
	v := m.Store.NewOptionalVar(lb, ub, presence, "")
	if m.OnNewVar != nil {
		m.OnNewVar(v)
	}
	return v
}

// NewBool allocates a fresh boolean (0/1) variable.
func (m *Model) NewBool() domain.VarID { return m.NewVar(0, 1, "") }

// NewPresence allocates a fresh presence literal for a chronicle nested
// under scope, registering the presence-scoping invariant (spec.md §4.2 I1,
// §9 "presence implication ... asserted eagerly as a clause, enforced
// structurally by the domain store, or both — the spec mandates both to be
// safe") at the domain-store level. The encoder additionally posts the
// clause form when it knows the concrete scope literal (see
// Encoder.EncodeHTN), covering the other half of that decision.
func (m *Model) NewPresence(scope domain.Literal) domain.Literal {
	v := m.NewBool()
	p := domain.TrueLit(v)
	if scope != domain.True {
		m.Store.RegisterImplication(scope, p)
	}
	return p
}
