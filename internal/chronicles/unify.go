package chronicles

import (
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// unifiable reports whether two atoms could denote the same symbol: since
// every atom is backed by a domain variable whose bounds are the indices of
// the symbols it could still take (spec.md §3 "symbolic variables"), two
// atoms are unifiable exactly when their current bound intervals overlap.
func unifiable(store *domain.Store, a, b domain.VarID) bool {
	alb, aub := store.Bounds(a)
	blb, bub := store.Bounds(b)
	return alb <= bub && blb <= aub
}

// stateVarsUnifiable reports whether two state-variable vectors have equal
// arity and are pairwise unifiable (spec.md §4.8 "Compatibility filter").
func stateVarsUnifiable(store *domain.Store, a, b []domain.VarID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !unifiable(store, a[i], b[i]) {
			return false
		}
	}
	return true
}

// eqAtom returns the reification literal for `a = b`, interned as one OpEq
// expression (the STN theory binds it as the two zero-weight edges
// a - b <= 0 and b - a <= 0) so repeated calls with the same pair of atoms
// share one literal.
func eqAtom(in *expr.Interner, a, b domain.VarID) domain.Literal {
	return in.InternExpr(expr.Expr{Op: uint8(expr.OpEq), A: a, B: b})
}
