package expr

import (
	"testing"

	"github.com/cortexplan/lcp/internal/domain"
)

type fakeAllocator struct{ n int32 }

func (a *fakeAllocator) NewVar(lb, ub int32, label string) domain.VarID {
	a.n++
	return domain.VarID(a.n)
}

func TestInterner_InternExpr_DedupsStructurallyEqualExpressions(t *testing.T) {
	in := New(&fakeAllocator{})
	e := Expr{Op: uint8(OpLeq), A: 5, K: 3}

	l1 := in.InternExpr(e)
	l2 := in.InternExpr(e)

	if l1 != l2 {
		t.Fatalf("InternExpr returned different literals for structurally equal expressions: %v != %v", l1, l2)
	}

	cursor := in.NewCursor()
	bindings := in.Drain(cursor)
	if len(bindings) != 1 {
		t.Fatalf("Drain() returned %d bindings, want 1 (second InternExpr must not re-queue)", len(bindings))
	}
}

func TestInterner_InternExpr_DistinctExpressionsGetDistinctLiterals(t *testing.T) {
	in := New(&fakeAllocator{})
	a := in.InternExpr(Expr{Op: uint8(OpLeq), A: 1, K: 3})
	b := in.InternExpr(Expr{Op: uint8(OpLeq), A: 1, K: 4})

	if a == b {
		t.Fatalf("distinct expressions got the same literal: %v", a)
	}
}

func TestInterner_Drain_OnlyReturnsBindingsSinceCursor(t *testing.T) {
	in := New(&fakeAllocator{})
	in.InternExpr(Expr{Op: uint8(OpLeq), A: 1, K: 1})

	c := in.NewCursor()
	in.Drain(c) // a new cursor starts at the head of the queue; consume the first binding
	in.InternExpr(Expr{Op: uint8(OpLeq), A: 2, K: 2})
	in.InternExpr(Expr{Op: uint8(OpLeq), A: 3, K: 3})

	bindings := in.Drain(c)
	if len(bindings) != 2 {
		t.Fatalf("Drain() returned %d bindings, want 2 (only those queued after the cursor last advanced)", len(bindings))
	}

	if more := in.Drain(c); len(more) != 0 {
		t.Fatalf("second Drain() with no new bindings returned %d, want 0", len(more))
	}
}

func TestInterner_Alias_QueuesAliasBinding(t *testing.T) {
	in := New(&fakeAllocator{})
	a := domain.TrueLit(1)
	b := domain.TrueLit(2)
	in.Alias(a, b)

	bindings := in.Drain(in.NewCursor())
	if len(bindings) != 1 {
		t.Fatalf("Drain() = %d bindings, want 1", len(bindings))
	}
	got := bindings[0]
	if !got.Target.IsAlias || got.Target.Alias != b || got.Lit != a {
		t.Fatalf("Alias binding = %+v, want Lit=%v Target.Alias=%v", got, a, b)
	}
}
