package coordinator

import (
	"testing"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/theory"
	"github.com/cortexplan/lcp/internal/trail"
)

func newFixture() (*domain.Store, *sat.Engine, *expr.Interner) {
	tr := trail.New()
	store := domain.NewStore(tr)
	engine := sat.NewEngine(store, tr, sat.DefaultOptions)
	interner := expr.New(store)
	return store, engine, interner
}

func TestCoordinator_Propagate_TheoryContradictionIsRefined(t *testing.T) {
	store, engine, interner := newFixture()
	x := store.NewVar(0, 10, "x")
	y := store.NewVar(0, 10, "y")

	// y - x <= -1 and x - y <= -1: a negative cycle, unsatisfiable
	// regardless of any decision.
	stn := theory.NewSTN(theory.ModeFull)
	stn.AddEdge(x, y, -1, domain.True)
	stn.AddEdge(y, x, -1, domain.True)
	coord := New(store, interner, engine, stn)

	conflict := coord.Propagate()
	if conflict == nil {
		t.Fatalf("Propagate() = nil, want a conflict (negative cycle)")
	}
	if conflict.Writer != domain.WriterSTN {
		t.Errorf("conflict.Writer = %v, want WriterSTN", conflict.Writer)
	}
	if len(conflict.Literals) == 0 {
		t.Errorf("conflict.Literals is empty")
	}
	if conflict.Clause != nil {
		t.Errorf("conflict.Clause = %v, want nil for a theory conflict", conflict.Clause)
	}
}

func TestCoordinator_Propagate_PendingTautologyIsAsserted(t *testing.T) {
	store, engine, interner := newFixture()
	p := store.NewVar(0, 1, "p")
	coord := New(store, interner, engine)

	coord.SetTautology(domain.TrueLit(p))
	if conflict := coord.Propagate(); conflict != nil {
		t.Fatalf("Propagate() returned a conflict: %+v", conflict)
	}

	if !store.Entails(domain.TrueLit(p)) {
		t.Fatalf("p must be entailed true after Propagate asserts its pending tautology")
	}
}

func TestCoordinator_NogoodClause_NegatesEveryLiteral(t *testing.T) {
	c := &Conflict{Literals: []domain.Literal{domain.TrueLit(1), domain.Leq(domain.VarID(2), 3)}}
	clause := c.NogoodClause()
	if len(clause) != 2 {
		t.Fatalf("len(NogoodClause()) = %d, want 2", len(clause))
	}
	if clause[0] != domain.FalseLit(1) {
		t.Errorf("clause[0] = %v, want FalseLit(1)", clause[0])
	}
	if clause[1] != domain.Geq(domain.VarID(2), 4) {
		t.Errorf("clause[1] = %v, want Geq(2, 4)", clause[1])
	}
}
