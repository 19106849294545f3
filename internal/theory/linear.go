package theory

import (
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// linearConstraint is one `sum(coeff*var) <= 0` constraint, active only
// while its gating literal is entailed.
type linearConstraint struct {
	id     int
	terms  []expr.LinearTerm
	active domain.Literal
}

// Linear is the integer linear-sum theory (spec.md §4.3 "linear_sum(≤|≥) 0"):
// bound-consistency propagation over `sum(coeff_i * x_i) <= 0`. OpLinearGeq
// bindings are normalized to this same `<= 0` shape by negating every
// coefficient, so Propagate only ever has to tighten one direction.
type Linear struct {
	constraints []linearConstraint
}

// NewLinear returns an empty Linear theory.
func NewLinear() *Linear { return &Linear{} }

func (l *Linear) Writer() domain.Writer { return domain.WriterLinear }

func (l *Linear) addConstraint(terms []expr.LinearTerm, active domain.Literal) {
	l.constraints = append(l.constraints, linearConstraint{id: len(l.constraints), terms: terms, active: active})
}

// Bind accepts `linear_sum <= 0` and `linear_sum >= 0` expressions.
func (l *Linear) Bind(store *domain.Store, active domain.Literal, target expr.Expr) (BindStatus, error) {
	switch expr.Op(target.Op) {
	case expr.OpLinearLeq:
		l.addConstraint(target.Terms, active)
		return Enforced, nil
	case expr.OpLinearGeq:
		negated := make([]expr.LinearTerm, len(target.Terms))
		for i, t := range target.Terms {
			negated[i] = expr.LinearTerm{Coeff: -t.Coeff, Var: t.Var}
		}
		l.addConstraint(negated, active)
		return Enforced, nil
	default:
		return Unsupported, nil
	}
}

// extreme returns t's contribution to the constraint's minimum possible sum:
// coeff*lb for a non-negative coefficient, coeff*ub for a negative one.
func extreme(store *domain.Store, t expr.LinearTerm) int32 {
	lb, ub := store.Bounds(t.Var)
	if t.Coeff >= 0 {
		return t.Coeff * lb
	}
	return t.Coeff * ub
}

// floorDiv is integer floor division for a positive divisor.
func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// Propagate sweeps every active constraint to a local fixed point: for
// `sum(coeff_i*x_i) <= 0`, a term's coefficient times the rest of the sum at
// its loosest (minimum) extreme bounds how far that term's own variable can
// range, the same bound-consistency tightening CP solvers use for linear
// inequalities.
func (l *Linear) Propagate(store *domain.Store) *Contradiction {
	changed := true
	for changed {
		changed = false
		for _, c := range l.constraints {
			if ok, known := store.ValueOf(c.active); !known || !ok {
				continue
			}

			var minSum int32
			for _, t := range c.terms {
				minSum += extreme(store, t)
			}
			if minSum > 0 {
				return &Contradiction{Literals: []domain.Literal{c.active}}
			}

			for _, t := range c.terms {
				if t.Coeff == 0 {
					continue
				}
				bound := -(minSum - extreme(store, t)) // coeff*x <= bound

				var res domain.SetResult
				if t.Coeff > 0 {
					res = store.Set(domain.Leq(t.Var, floorDiv(bound, t.Coeff)), domain.Cause{
						Kind: domain.Inference, Writer: domain.WriterLinear, Payload: uint32(c.id),
					})
				} else {
					res = store.Set(domain.Geq(t.Var, -floorDiv(bound, -t.Coeff)), domain.Cause{
						Kind: domain.Inference, Writer: domain.WriterLinear, Payload: uint32(c.id),
					})
				}
				if res == domain.Contradiction {
					return &Contradiction{Literals: []domain.Literal{c.active}}
				}
				if res == domain.Modified {
					changed = true
				}
			}
		}
	}
	return nil
}

// Explain reports the constraint's gating literal as the sole antecedent of
// any bound it tightened.
func (l *Linear) Explain(lit domain.Literal, cause domain.Cause, out []domain.Literal) []domain.Literal {
	return append(out, l.constraints[cause.Payload].active)
}

// Save/NumSaved/RestoreLast/Restore are pass-throughs for the same reason as
// STN's: constraints are only ever added at the root, before search begins.
func (l *Linear) Save() int         { return 0 }
func (l *Linear) NumSaved() int     { return 0 }
func (l *Linear) RestoreLast()      {}
func (l *Linear) Restore(level int) {}
