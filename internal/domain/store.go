package domain

import (
	"fmt"

	"github.com/cortexplan/lcp/internal/trail"
)

// SetResult reports the effect of tightening a bound (spec.md §4.2 `set`).
type SetResult uint8

const (
	NoOp SetResult = iota
	Modified
	Contradiction
)

type varState struct {
	lb, ub   int32
	presence Literal // True if the variable is always present
	label    string  // debug only, per model/src/label.rs in original_source
}

type boundEvent struct {
	v      VarID
	prevLB int32
	prevUB int32
	cause  Cause
}

// Store is the trail-backed bound-literal state of every variable (C2).
type Store struct {
	vars  []varState
	tr    *trail.Trail
	// implications[p] lists literals that must be entailed whenever p is
	// entailed, registered at variable-creation time (presence scoping, I1).
	implications map[Literal][]Literal
	events       []boundEvent // one entry pushed to the trail per modification
	observers    []Observer
}

// NewStore returns a Store with the reserved ZeroVar fixed to [0, 0] and
// backed by tr for backtracking.
func NewStore(tr *trail.Trail) *Store {
	s := &Store{
		tr:           tr,
		implications: map[Literal][]Literal{},
	}
	zero := s.allocVar(0, 0, True, "zero")
	if zero != ZeroVar {
		panic("domain: ZeroVar must be the first allocated variable")
	}
	return s
}

func (s *Store) allocVar(lb, ub int32, presence Literal, label string) VarID {
	id := VarID(len(s.vars))
	s.vars = append(s.vars, varState{lb: lb, ub: ub, presence: presence, label: label})
	return id
}

// NewVar allocates an always-present variable with domain [lb, ub].
func (s *Store) NewVar(lb, ub int32, label string) VarID {
	return s.allocVar(lb, ub, True, label)
}

// NewOptionalVar allocates a variable whose value is only meaningful when
// presence holds. RegisterImplication is used by callers (typically the
// encoder) to additionally assert that the new variable's own presence
// literal entails `presence`, satisfying the presence scoping invariant.
func (s *Store) NewOptionalVar(lb, ub int32, presence Literal, label string) VarID {
	return s.allocVar(lb, ub, presence, label)
}

// Presence returns the presence literal of v (True if v is always present).
func (s *Store) Presence(v VarID) Literal {
	return s.vars[v].presence
}

// Bounds returns the current (lb, ub) of v.
func (s *Store) Bounds(v VarID) (int32, int32) {
	vs := &s.vars[v]
	return vs.lb, vs.ub
}

// Label returns the debug label of v, if any.
func (s *Store) Label(v VarID) string {
	return s.vars[v].label
}

// RegisterImplication records that, whenever p is entailed, q must also be
// entailed (spec.md §4.2 invariant I1). It is evaluated lazily: Set walks
// this table after every successful tightening.
func (s *Store) RegisterImplication(p, q Literal) {
	s.implications[p] = append(s.implications[p], q)
}

// Entails returns true iff the current bounds already imply l.
func (s *Store) Entails(l Literal) bool {
	lb, ub := s.Bounds(l.Var)
	if l.Kind == KindLeq {
		return ub <= l.Bound
	}
	return lb >= l.Bound
}

// ValueOf returns Some(true)/Some(false)/None for l, mirroring §4.2.
func (s *Store) ValueOf(l Literal) (value bool, known bool) {
	if s.Entails(l) {
		return true, true
	}
	if s.Entails(l.Opposite()) {
		return false, true
	}
	return false, false
}

// Set tightens the bound indicated by l. It returns Contradiction only when
// the tightening would empty v's domain *and* v's presence is entailed;
// otherwise the emptied domain is absorbed by falsifying the presence
// literal instead (spec.md §4.2).
func (s *Store) Set(l Literal, cause Cause) SetResult {
	if s.Entails(l) {
		return NoOp
	}
	if s.Entails(l.Opposite()) {
		return s.handleContradiction(l)
	}

	vs := &s.vars[l.Var]
	prevLB, prevUB := vs.lb, vs.ub

	switch l.Kind {
	case KindLeq:
		vs.ub = l.Bound
	default:
		vs.lb = l.Bound
	}

	if vs.lb > vs.ub {
		// Domain emptied: undo locally and re-route through contradiction
		// handling, which may instead falsify the presence literal.
		vs.lb, vs.ub = prevLB, prevUB
		return s.handleContradiction(l)
	}

	s.push(boundEvent{v: l.Var, prevLB: prevLB, prevUB: prevUB, cause: cause})
	for _, obs := range s.observers {
		obs.Notify(l)
	}

	result := Modified
	for _, implied := range s.implications[l] {
		if r := s.Set(implied, Cause{Kind: Inference, Writer: WriterDomain}); r == Contradiction {
			result = Contradiction
		}
	}
	return result
}

// Observer is notified whenever a literal becomes newly entailed, regardless
// of which reasoner made the call to Set. The SAT engine registers itself as
// an observer so that its watch lists stay correct even when a theory (or
// the encoder) tightens a boolean variable it also watches.
type Observer interface {
	Notify(l Literal)
}

// Subscribe registers obs to be notified on every successful Set.
func (s *Store) Subscribe(obs Observer) {
	s.observers = append(s.observers, obs)
}

// handleContradiction is reached when asserting l would empty v's domain.
// If v's presence is entailed, the whole search branch is inconsistent. If
// not, the domain is kept intact and the presence literal is falsified
// instead (the variable becomes absent).
func (s *Store) handleContradiction(l Literal) SetResult {
	presence := s.vars[l.Var].presence
	if s.Entails(presence) {
		return Contradiction
	}
	return s.Set(presence.Opposite(), Cause{Kind: Inference, Writer: WriterDomain})
}

func (s *Store) push(ev boundEvent) {
	s.events = append(s.events, ev)
	s.tr.Push(s, ev)
}

// Undo implements trail.Undoer. The trail calls this with the boundEvent
// payload pushed alongside each modification, in the reverse order they were
// pushed; since Store is the sole pusher of its own events, popping the tail
// of s.events stays in lock-step with the trail's own LIFO unwinding.
func (s *Store) Undo(payload any) {
	ev := payload.(boundEvent)
	vs := &s.vars[ev.v]
	vs.lb, vs.ub = ev.prevLB, ev.prevUB
	s.events = s.events[:len(s.events)-1]
}

// ImplyingEvent returns the modification that made l entailed (the event
// after which l first held), or false if l is not currently entailed by an
// explicit event (e.g. it is true of the initial domain).
func (s *Store) ImplyingEvent(l Literal) (Cause, bool) {
	if !s.Entails(l) {
		return Cause{}, false
	}
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if ev.v != l.Var {
			continue
		}
		// Bounds only tighten along the trail, so l holds just after every
		// event walked so far; this one made l entailed if l did not hold
		// before it.
		heldBefore := ev.prevUB <= l.Bound
		if l.Kind == KindGeq {
			heldBefore = ev.prevLB >= l.Bound
		}
		if !heldBefore {
			return ev.cause, true
		}
	}
	return Cause{}, false
}

// Explainer expands an inference cause into the antecedent literals that
// produced it. Each writer (SAT engine, each theory) implements this.
type Explainer interface {
	Explain(l Literal, cause Cause, out []Literal) []Literal
}

// RefineExplanation walks the causes of the literals in expl (a set of
// currently-falsified literals forming a partial explanation), asking the
// writer registry to expand any Inference cause into antecedent literals,
// until only Decision/External literals remain. The worklist is processed
// breadth-first so the result is deterministic across runs.
func (s *Store) RefineExplanation(expl []Literal, explainers map[Writer]Explainer) []Literal {
	pending := append([]Literal{}, expl...)
	var settled []Literal

	for len(pending) > 0 {
		l := pending[0]
		pending = pending[1:]

		cause, ok := s.ImplyingEvent(l.Opposite())
		if !ok || cause.Kind != Inference {
			settled = append(settled, l)
			continue
		}
		explainer, ok := explainers[cause.Writer]
		if !ok {
			panic(fmt.Sprintf("domain: no explainer registered for writer %d", cause.Writer))
		}
		// Explain takes the entailed literal and returns entailed
		// antecedents; negate them to keep pending in falsified form.
		for _, a := range explainer.Explain(l.Opposite(), cause, nil) {
			pending = append(pending, a.Opposite())
		}
	}
	return settled
}
