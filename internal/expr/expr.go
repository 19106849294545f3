// Package expr implements the expression interner (C3): an immutable,
// hash-consed tree of boolean expressions, each bound to a reification
// literal.
package expr

import (
	"fmt"
	"strings"

	"github.com/cortexplan/lcp/internal/domain"
)

// Op is the operator of an Expr node. spec.md §3 fixes the canonical set.
type Op uint8

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpLeq       // leq(a, k): a <= k
	OpEq        // eq(a, b)
	OpDiffLeq   // diff(a, b) <= k: a - b <= k, a difference constraint for the STN theory
	OpLinearLeq // linear_sum <= 0
	OpLinearGeq // linear_sum >= 0
	OpInTable
)

// LinearTerm is one `coeff * var` summand of a linear_sum expression.
type LinearTerm struct {
	Coeff int32
	Var   domain.VarID
}

// Expr is an immutable boolean expression tree. Cycles are structurally
// impossible: a node can only reference children built (and interned)
// strictly before it (spec.md §9 "Cyclic expression graphs").
type Expr struct {
	Op uint8

	// OpAnd / OpOr / OpNot operands, given as reification literals of
	// already-interned sub-expressions.
	Operands []domain.Literal

	// OpLeq / OpEq
	A, B domain.VarID
	K    int32

	// OpLinearLeq / OpLinearGeq
	Terms []LinearTerm

	// OpInTable
	Table   *Table
	Columns []domain.VarID
}

// Table is a finite relation used by InTable constraints (spec.md §4.8).
type Table struct {
	Name string
	Rows [][]int32
}

// key returns a canonical string encoding of e, used for structural hash
// consing. Two structurally equal expressions always produce the same key.
func (e Expr) key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", e.Op)
	switch Op(e.Op) {
	case OpAnd, OpOr:
		for _, o := range e.Operands {
			fmt.Fprintf(&sb, ",%d:%d:%d", o.Var, o.Kind, o.Bound)
		}
	case OpNot:
		o := e.Operands[0]
		fmt.Fprintf(&sb, ",%d:%d:%d", o.Var, o.Kind, o.Bound)
	case OpLeq:
		fmt.Fprintf(&sb, ",%d,%d", e.A, e.K)
	case OpEq, OpDiffLeq:
		fmt.Fprintf(&sb, ",%d,%d,%d", e.A, e.B, e.K)
	case OpLinearLeq, OpLinearGeq:
		for _, t := range e.Terms {
			fmt.Fprintf(&sb, ",%d*%d", t.Coeff, t.Var)
		}
	case OpInTable:
		fmt.Fprintf(&sb, ",%s", e.Table.Name)
		for _, c := range e.Columns {
			fmt.Fprintf(&sb, ",%d", c)
		}
	}
	return sb.String()
}
