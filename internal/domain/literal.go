// Package domain implements the optional-variable bound-literal store (C2):
// every decision variable has an integer domain [lb, ub] and, optionally, a
// presence literal that gates whether the variable's value is meaningful.
package domain

import "fmt"

// VarID identifies a decision variable. Variables are never destroyed once
// created (spec.md §3 "Lifecycle").
type VarID int32

// ZeroVar is the reserved variable fixed to 0 from which the TRUE/FALSE
// constant literals are derived (spec.md §3).
const ZeroVar VarID = 0

// Kind distinguishes the two shapes of bound literal.
type Kind uint8

const (
	KindLeq Kind = iota // v <= bound
	KindGeq             // v >= bound
)

// Literal is the atomic unit of the solver: "v <= k" or "v >= k".
type Literal struct {
	Var   VarID
	Kind  Kind
	Bound int32
}

// Leq builds the literal "v <= k".
func Leq(v VarID, k int32) Literal { return Literal{Var: v, Kind: KindLeq, Bound: k} }

// Geq builds the literal "v >= k".
func Geq(v VarID, k int32) Literal { return Literal{Var: v, Kind: KindGeq, Bound: k} }

// Opposite returns the logical negation of l: not(v<=k) == v>=k+1, and
// not(v>=k) == v<=k-1.
func (l Literal) Opposite() Literal {
	switch l.Kind {
	case KindLeq:
		return Geq(l.Var, l.Bound+1)
	default:
		return Leq(l.Var, l.Bound-1)
	}
}

func (l Literal) String() string {
	if l.Kind == KindLeq {
		return fmt.Sprintf("(v%d <= %d)", l.Var, l.Bound)
	}
	return fmt.Sprintf("(v%d >= %d)", l.Var, l.Bound)
}

// TrueLit returns the literal asserting that boolean variable v holds.
func TrueLit(v VarID) Literal { return Geq(v, 1) }

// FalseLit returns the literal asserting that boolean variable v does not
// hold.
func FalseLit(v VarID) Literal { return Leq(v, 0) }

// True and False are the constant literals over ZeroVar, which is fixed to
// the domain [0, 0] at store construction (spec.md §3).
var (
	True  = Geq(ZeroVar, 0) // 0 >= 0: always holds
	False = Geq(ZeroVar, 1) // 0 >= 1: never holds
)

// Writer is the stable 8-bit identity of a reasoner that can produce
// inferences (spec.md §4.6). It is carried in every non-decision Cause so
// that explanation refinement can dispatch back to the writer.
type Writer uint8

const (
	WriterDomain Writer = iota // presence-implication closure (I1)
	WriterSAT
	WriterSTN
	WriterEncoder
	WriterLinear
)

// CauseKind distinguishes how a bound literal came to be set.
type CauseKind uint8

const (
	Decision CauseKind = iota
	Inference
	External
)

// Cause records why a bound was tightened. Payload is writer-specific: for
// the SAT engine it is a clause index, for the STN theory an edge or path
// id. refine_explanation (§4.2) dispatches on Writer to interpret it.
type Cause struct {
	Kind    CauseKind
	Writer  Writer
	Payload uint32
}

// DecisionCause is the Cause used for branching decisions.
var DecisionCause = Cause{Kind: Decision}

// ExternalCause is the Cause used for facts asserted outside of any reasoner
// (e.g. the encoder fixing a root-level literal).
var ExternalCause = Cause{Kind: External}
