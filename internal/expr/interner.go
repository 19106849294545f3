package expr

import "github.com/cortexplan/lcp/internal/domain"

// Target is the consumer-facing value of a binding queue entry: either an
// alias to another literal, or an expression that still needs to be claimed
// by SAT or a theory (spec.md §3 "Binding queue").
type Target struct {
	IsAlias bool
	Alias   domain.Literal
	Expr    Expr
}

// Binding is one entry of the binding queue: the queue is a linearly ordered
// log of (literal, target) pairs (spec.md §3).
type Binding struct {
	Lit    domain.Literal
	Target Target
}

// VarAllocator is the subset of domain.Store the interner needs to mint
// fresh boolean variables for new reification literals.
type VarAllocator interface {
	NewVar(lb, ub int32, label string) domain.VarID
}

// Interner hash-conses expressions to reification literals and appends
// newly-seen expressions to a binding queue for SAT/theories to claim.
type Interner struct {
	vars     VarAllocator
	table    map[string]domain.Literal
	bindings []Binding
	nextID   int
}

// New returns an empty Interner allocating fresh variables through vars.
func New(vars VarAllocator) *Interner {
	return &Interner{
		vars:  vars,
		table: map[string]domain.Literal{},
	}
}

// InternExpr returns the reification literal for e, allocating and queuing a
// new binding only the first time an expression with this structural key is
// seen. Repeated calls with an equal expression return the same literal and
// append nothing (spec.md §4.3).
func (in *Interner) InternExpr(e Expr) domain.Literal {
	k := e.key()
	if l, ok := in.table[k]; ok {
		return l
	}

	v := in.vars.NewVar(0, 1, in.debugLabel(e))
	l := domain.TrueLit(v)
	in.table[k] = l
	in.bindings = append(in.bindings, Binding{Lit: l, Target: Target{Expr: e}})
	return l
}

// Alias records that literal a and b are equivalent, queuing a trivial
// binding that SAT can collapse (spec.md §4.4 "trivial equivalences").
func (in *Interner) Alias(a, b domain.Literal) {
	in.bindings = append(in.bindings, Binding{Lit: a, Target: Target{IsAlias: true, Alias: b}})
}

func (in *Interner) debugLabel(e Expr) string {
	in.nextID++
	return e.key()
}

// Cursor tracks which bindings a particular consumer has already seen.
type Cursor struct {
	next int
}

// NewCursor returns a cursor positioned at the start of the binding queue.
func (in *Interner) NewCursor() *Cursor { return &Cursor{} }

// Drain returns bindings appended since the cursor last advanced, and moves
// the cursor to the end of the queue.
func (in *Interner) Drain(c *Cursor) []Binding {
	out := append([]Binding{}, in.bindings[c.next:]...)
	c.next = len(in.bindings)
	return out
}
