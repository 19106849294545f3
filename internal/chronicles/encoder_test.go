package chronicles

import (
	"testing"

	"github.com/cortexplan/lcp/internal/coordinator"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/theory"
	"github.com/cortexplan/lcp/internal/trail"
)

func newEncoderFixture() (*Model, *coordinator.Coordinator, *sat.Engine) {
	tr := trail.New()
	store := domain.NewStore(tr)
	engine := sat.NewEngine(store, tr, sat.DefaultOptions)
	// As in lcp's build, the interner allocates through the Model so its
	// reification variables are registered with the engine too.
	model := &Model{Store: store, Horizon: 100, OnNewVar: engine.RegisterVar}
	interner := expr.New(model)
	model.Interner = interner
	stn := theory.NewSTN(theory.ModeFull)
	coord := coordinator.New(store, interner, engine, stn)
	return model, coord, engine
}

// TestEncoder_CausalSupport_NoPanicOnEqBinding is a regression test for the
// binding-queue contract: causalSupport interns an OpEq atom for every
// candidate (condition, effect) pair, which must be claimable by a theory
// once the coordinator drains it, or Propagate panics.
func TestEncoder_CausalSupport_NoPanicOnEqBinding(t *testing.T) {
	model, coord, engine := newEncoderFixture()
	enc := New(model, coord, engine.AddClause, SymmetryNone)

	condSV := model.NewVar(0, 5, "cond-sv")
	condVal := model.NewVar(0, 5, "cond-val")
	condStart := model.NewVar(5, 5, "cond-start")
	condEnd := model.NewVar(10, 10, "cond-end")
	cond := Chronicle{
		Presence:   domain.True,
		Start:      condStart,
		End:        condEnd,
		Conditions: []Condition{{StateVar: []domain.VarID{condSV}, Value: condVal, Start: condStart, End: condEnd}},
	}
	enc.addChronicle(cond)

	// Unifiable effect: its state-var/value bounds overlap cond's.
	effSV := model.NewVar(2, 2, "eff-sv")
	effVal := model.NewVar(3, 3, "eff-val")
	effTransStart := model.NewVar(0, 0, "eff-trans")
	effPersStart := model.NewVar(0, 0, "eff-pers-start")
	effPersEnd := model.NewVar(20, 20, "eff-pers-end")
	supporting := Chronicle{
		Presence: domain.True,
		Start:    effTransStart,
		End:      effPersEnd,
		Effects: []Effect{{
			StateVar:         []domain.VarID{effSV},
			Value:            effVal,
			TransitionStart:  effTransStart,
			PersistenceStart: effPersStart,
			PersistenceEnd:   effPersEnd,
		}},
	}
	enc.addChronicle(supporting)

	// Non-unifiable effect: disjoint state-var bounds, must be skipped by
	// the compatibility filter rather than posted as a candidate support.
	farSV := model.NewVar(50, 50, "far-sv")
	farVal := model.NewVar(3, 3, "far-val")
	farTransStart := model.NewVar(0, 0, "far-trans")
	farPersStart := model.NewVar(0, 0, "far-pers-start")
	farPersEnd := model.NewVar(20, 20, "far-pers-end")
	nonSupporting := Chronicle{
		Presence: domain.True,
		Start:    farTransStart,
		End:      farPersEnd,
		Effects: []Effect{{
			StateVar:         []domain.VarID{farSV},
			Value:            farVal,
			TransitionStart:  farTransStart,
			PersistenceStart: farPersStart,
			PersistenceEnd:   farPersEnd,
		}},
	}
	enc.addChronicle(nonSupporting)

	if err := enc.finish(); err != nil {
		t.Fatalf("finish(): %s", err)
	}

	if conflict := coord.Propagate(); conflict != nil {
		t.Fatalf("Propagate() returned a conflict: %+v", conflict)
	}
}

// TestEncoder_Threats_CollidingEffectsPropagateWithoutConflict checks that
// the threat clauses posted for two effects on unifiable state variables,
// with neither ordering decided yet, encode and propagate without a
// conflict. It does not check that an ordering is forced.
func TestEncoder_Threats_CollidingEffectsPropagateWithoutConflict(t *testing.T) {
	model, coord, engine := newEncoderFixture()
	enc := New(model, coord, engine.AddClause, SymmetryNone)

	sv1 := model.NewVar(1, 1, "sv1")
	val1 := model.NewVar(0, 1, "val1")
	ts1 := model.NewVar(0, 10, "ts1")
	ps1 := model.NewVar(0, 10, "ps1")
	pe1 := model.NewVar(0, 10, "pe1")
	c1 := Chronicle{
		Presence: domain.True,
		Start:    ts1,
		End:      pe1,
		Effects:  []Effect{{StateVar: []domain.VarID{sv1}, Value: val1, TransitionStart: ts1, PersistenceStart: ps1, PersistenceEnd: pe1}},
	}
	enc.addChronicle(c1)

	sv2 := model.NewVar(1, 1, "sv2")
	val2 := model.NewVar(0, 1, "val2")
	ts2 := model.NewVar(0, 10, "ts2")
	ps2 := model.NewVar(0, 10, "ps2")
	pe2 := model.NewVar(0, 10, "pe2")
	c2 := Chronicle{
		Presence: domain.True,
		Start:    ts2,
		End:      pe2,
		Effects:  []Effect{{StateVar: []domain.VarID{sv2}, Value: val2, TransitionStart: ts2, PersistenceStart: ps2, PersistenceEnd: pe2}},
	}
	enc.addChronicle(c2)

	if err := enc.finish(); err != nil {
		t.Fatalf("finish(): %s", err)
	}

	if conflict := coord.Propagate(); conflict != nil {
		t.Fatalf("Propagate() returned a conflict: %+v", conflict)
	}
}

// TestEncoder_HierarchicalDecomposition_AtLeastOneRefiner checks that
// refuting every candidate refiner of an open subtask is unsatisfiable.
func TestEncoder_HierarchicalDecomposition_AtLeastOneRefiner(t *testing.T) {
	model, coord, engine := newEncoderFixture()
	enc := New(model, coord, engine.AddClause, SymmetryNone)

	taskVar := model.NewVar(0, 0, "task")
	st := Subtask{ID: 0, Task: []domain.VarID{taskVar}, Start: model.NewVar(0, 10, "st-start"), End: model.NewVar(0, 10, "st-end")}

	r1 := Chronicle{Presence: domain.TrueLit(model.NewBool()), Start: model.NewVar(0, 10, "r1-start"), End: model.NewVar(0, 10, "r1-end"), Task: []domain.VarID{taskVar}}
	r2 := Chronicle{Presence: domain.TrueLit(model.NewBool()), Start: model.NewVar(0, 10, "r2-start"), End: model.NewVar(0, 10, "r2-end"), Task: []domain.VarID{taskVar}}

	if err := enc.hierarchicalDecomposition(st, []Chronicle{r1, r2}); err != nil {
		t.Fatalf("hierarchicalDecomposition(): %s", err)
	}

	if !engine.Decide(r1.Presence.Opposite()) {
		t.Fatalf("Decide(r1 absent) produced an immediate contradiction")
	}
	if conflict := engine.Propagate(); conflict != nil {
		t.Fatalf("Propagate() after refuting only r1 returned a conflict: %+v", conflict)
	}
	if !model.Store.Entails(r2.Presence) {
		t.Fatalf("refuting r1 must force r2, the only other refiner, present")
	}
	// r2 is now entailed present, so refuting it too is an immediate
	// contradiction: Decide reports false.
	if engine.Decide(r2.Presence.Opposite()) {
		t.Fatalf("Decide(r2 absent) after refuting r1: want a contradiction, got none")
	}
}

// TestEncoder_HierarchicalDecomposition_MutuallyExclusive checks that
// choosing one refiner forces every other one absent.
func TestEncoder_HierarchicalDecomposition_MutuallyExclusive(t *testing.T) {
	model, coord, engine := newEncoderFixture()
	enc := New(model, coord, engine.AddClause, SymmetryNone)

	taskVar := model.NewVar(0, 0, "task")
	st := Subtask{ID: 0, Task: []domain.VarID{taskVar}, Start: model.NewVar(0, 10, "st-start"), End: model.NewVar(0, 10, "st-end")}

	r1 := Chronicle{Presence: domain.TrueLit(model.NewBool()), Start: model.NewVar(0, 10, "r1-start"), End: model.NewVar(0, 10, "r1-end"), Task: []domain.VarID{taskVar}}
	r2 := Chronicle{Presence: domain.TrueLit(model.NewBool()), Start: model.NewVar(0, 10, "r2-start"), End: model.NewVar(0, 10, "r2-end"), Task: []domain.VarID{taskVar}}

	if err := enc.hierarchicalDecomposition(st, []Chronicle{r1, r2}); err != nil {
		t.Fatalf("hierarchicalDecomposition(): %s", err)
	}

	if !engine.Decide(r1.Presence) {
		t.Fatalf("Decide(r1 present) produced an immediate contradiction")
	}
	if conflict := engine.Propagate(); conflict != nil {
		t.Fatalf("Propagate() after choosing r1 returned a conflict: %+v", conflict)
	}
	if !model.Store.Entails(r2.Presence.Opposite()) {
		t.Errorf("choosing r1 must force r2 absent")
	}
}

// TestEncoder_BreakSymmetry_PresenceNonIncreasing is a regression test for
// the documented ordering: presence must be non-increasing in generation
// id, i.e. present(j) for a higher generation id forces present(i) for
// every lower one.
func TestEncoder_BreakSymmetry_PresenceNonIncreasing(t *testing.T) {
	model, coord, engine := newEncoderFixture()
	enc := New(model, coord, engine.AddClause, SymmetrySimple)

	presA := domain.TrueLit(model.NewBool())
	presB := domain.TrueLit(model.NewBool())
	instances := []Chronicle{
		{Presence: presA, Start: model.NewVar(0, 10, "a-start"), End: model.NewVar(0, 10, "a-end"), GenerationID: 0},
		{Presence: presB, Start: model.NewVar(0, 10, "b-start"), End: model.NewVar(0, 10, "b-end"), GenerationID: 1},
	}

	if err := enc.breakSymmetry(instances); err != nil {
		t.Fatalf("breakSymmetry(): %s", err)
	}

	if !engine.Decide(presB) {
		t.Fatalf("Decide(presB) produced an immediate contradiction")
	}
	if conflict := engine.Propagate(); conflict != nil {
		t.Fatalf("Propagate() returned a conflict: %+v", conflict)
	}
	if !model.Store.Entails(presA) {
		t.Errorf("present(generation 1) must force present(generation 0); got presA unentailed")
	}
}
