package theory

import (
	"testing"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/trail"
)

func TestSTN_Propagate_TightensBoundAcrossEdge(t *testing.T) {
	store := domain.NewStore(trail.New())
	x := store.NewVar(0, 10, "x")
	y := store.NewVar(0, 10, "y")

	stn := NewSTN(ModeFull)
	stn.AddEdge(x, y, 5, domain.True) // y - x <= 5

	store.Set(domain.Leq(x, 3), domain.DecisionCause)

	if conflict := stn.Propagate(store); conflict != nil {
		t.Fatalf("Propagate() returned a conflict: %v", conflict.Literals)
	}

	_, ub := store.Bounds(y)
	if ub != 8 {
		t.Fatalf("Bounds(y) ub = %d, want 8 (x's ub 3 + weight 5)", ub)
	}
}

func TestSTN_Propagate_NegativeCycleIsAContradiction(t *testing.T) {
	store := domain.NewStore(trail.New())
	x := store.NewVar(0, 10, "x")
	y := store.NewVar(0, 10, "y")

	stn := NewSTN(ModeFull)
	stn.AddEdge(x, y, -1, domain.True) // y - x <= -1
	stn.AddEdge(y, x, -1, domain.True) // x - y <= -1

	conflict := stn.Propagate(store)
	if conflict == nil {
		t.Fatalf("Propagate() = nil, want a contradiction (x < y < x is unsatisfiable)")
	}
	if len(conflict.Literals) == 0 {
		t.Fatalf("contradiction carries no literals")
	}
}

func TestSTN_Propagate_InactiveEdgeIsIgnored(t *testing.T) {
	store := domain.NewStore(trail.New())
	p := store.NewVar(0, 1, "p")
	x := store.NewVar(0, 10, "x")
	y := store.NewVar(0, 10, "y")

	stn := NewSTN(ModeFull)
	stn.AddEdge(x, y, -100, domain.TrueLit(p)) // only active once p holds

	store.Set(domain.Geq(x, 3), domain.DecisionCause)
	if conflict := stn.Propagate(store); conflict != nil {
		t.Fatalf("Propagate() returned a conflict while the edge is inactive: %v", conflict.Literals)
	}

	_, ub := store.Bounds(y)
	if ub != 10 {
		t.Fatalf("Bounds(y) ub = %d, want 10 (edge must stay inactive until p holds)", ub)
	}
}
