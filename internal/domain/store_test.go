package domain

import (
	"testing"

	"github.com/cortexplan/lcp/internal/trail"
)

func TestStore_Set_TightensBounds(t *testing.T) {
	s := NewStore(trail.New())
	v := s.NewVar(0, 10, "v")

	if got := s.Set(Leq(v, 5), DecisionCause); got != Modified {
		t.Fatalf("Set(v<=5) = %v, want Modified", got)
	}
	lb, ub := s.Bounds(v)
	if lb != 0 || ub != 5 {
		t.Fatalf("Bounds(v) = (%d, %d), want (0, 5)", lb, ub)
	}

	if got := s.Set(Leq(v, 8), DecisionCause); got != NoOp {
		t.Fatalf("Set(v<=8) = %v, want NoOp (already entailed)", got)
	}
}

func TestStore_Set_ContradictionOnAlwaysPresentVar(t *testing.T) {
	s := NewStore(trail.New())
	v := s.NewVar(0, 10, "v")

	s.Set(Leq(v, 3), DecisionCause)
	if got := s.Set(Geq(v, 4), DecisionCause); got != Contradiction {
		t.Fatalf("Set(v>=4) = %v, want Contradiction", got)
	}
}

func TestStore_Set_OptionalVarAbsentsInsteadOfContradicting(t *testing.T) {
	s := NewStore(trail.New())
	p := s.NewVar(0, 1, "p")
	presence := TrueLit(p)
	v := s.NewOptionalVar(0, 10, presence, "v")

	s.Set(Leq(v, 3), DecisionCause)
	if got := s.Set(Geq(v, 4), DecisionCause); got != Modified {
		t.Fatalf("Set(v>=4) = %v, want Modified (absenting p)", got)
	}
	if s.Entails(presence) {
		t.Fatalf("presence of v must not be entailed after its domain was emptied")
	}
	if !s.Entails(FalseLit(p)) {
		t.Fatalf("p must be forced false once v's domain is emptied")
	}
}

func TestStore_RegisterImplication_PropagatesOnSet(t *testing.T) {
	s := NewStore(trail.New())
	p := s.NewVar(0, 1, "p")
	q := s.NewVar(0, 1, "q")
	s.RegisterImplication(TrueLit(p), TrueLit(q))

	s.Set(TrueLit(p), DecisionCause)

	if !s.Entails(TrueLit(q)) {
		t.Fatalf("q must be entailed once p is entailed via RegisterImplication")
	}
}

func TestStore_Undo_RevertsOnTrailRestore(t *testing.T) {
	tr := trail.New()
	s := NewStore(tr)
	v := s.NewVar(0, 10, "v")

	tr.Save()
	s.Set(Leq(v, 5), DecisionCause)
	lb, ub := s.Bounds(v)
	if ub != 5 {
		t.Fatalf("Bounds(v) after Set = (%d, %d), want ub 5", lb, ub)
	}

	tr.RestoreLast()

	lb, ub = s.Bounds(v)
	if lb != 0 || ub != 10 {
		t.Fatalf("Bounds(v) after restore = (%d, %d), want (0, 10)", lb, ub)
	}
}

type countingObserver struct{ notified []Literal }

func (o *countingObserver) Notify(l Literal) { o.notified = append(o.notified, l) }

func TestStore_Subscribe_NotifiesOnModification(t *testing.T) {
	s := NewStore(trail.New())
	v := s.NewVar(0, 10, "v")
	obs := &countingObserver{}
	s.Subscribe(obs)

	s.Set(Leq(v, 5), DecisionCause)
	s.Set(Leq(v, 5), DecisionCause) // already entailed: must not notify again

	if len(obs.notified) != 1 {
		t.Fatalf("notified %d times, want 1", len(obs.notified))
	}
	if obs.notified[0] != Leq(v, 5) {
		t.Fatalf("notified %v, want Leq(v, 5)", obs.notified[0])
	}
}

func TestLiteral_Opposite(t *testing.T) {
	v := VarID(3)
	tests := []struct {
		l    Literal
		want Literal
	}{
		{Leq(v, 5), Geq(v, 6)},
		{Geq(v, 5), Leq(v, 4)},
	}
	for _, tt := range tests {
		if got := tt.l.Opposite(); got != tt.want {
			t.Errorf("%v.Opposite() = %v, want %v", tt.l, got, tt.want)
		}
	}
	if tt := (Leq(v, 5)).Opposite().Opposite(); tt != Leq(v, 5) {
		t.Errorf("Opposite is not involutive: got %v", tt)
	}
}
