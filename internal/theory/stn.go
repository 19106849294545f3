package theory

import (
	"fmt"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// PropagationMode controls how aggressively the STN theory infers implied
// edges beyond what direct bound tightening would yield (spec.md §4.5).
type PropagationMode uint8

const (
	ModeNone PropagationMode = iota
	ModeBounds
	ModeFull
)

// stnEdge is a difference constraint `to - from <= weight`, active only
// while its gating literal is entailed. Edges are only ever added at the
// root level by the chronicle encoder, so the STN theory itself carries no
// backtrackable state of its own beyond the shared domain.Store: Save/
// Restore are pure pass-throughs (see STN.Save below).
type stnEdge struct {
	id       int
	from, to domain.VarID
	weight   int32
	active   domain.Literal
}

// STN is the Simple Temporal Network theory (C5): an incremental
// Bellman-Ford propagator over difference constraints.
type STN struct {
	mode  PropagationMode
	edges []stnEdge
	out   map[domain.VarID][]int // edge indices keyed by `from`

	// cycle is the last detected negative cycle, kept so Explain can expand
	// the Contradiction's payload without recomputing shortest paths.
	cycle []int
}

// NewSTN returns an empty STN theory.
func NewSTN(mode PropagationMode) *STN {
	return &STN{mode: mode, out: map[domain.VarID][]int{}}
}

func (s *STN) Writer() domain.Writer { return domain.WriterSTN }

// AddEdge registers the difference constraint `to - from <= weight`, active
// whenever `active` is entailed. Returns the edge's stable id, used as the
// Cause payload for any bound it is responsible for tightening.
func (s *STN) AddEdge(from, to domain.VarID, weight int32, active domain.Literal) int {
	id := len(s.edges)
	s.edges = append(s.edges, stnEdge{id: id, from: from, to: to, weight: weight, active: active})
	s.out[from] = append(s.out[from], id)
	return id
}

// Bind accepts `diff(a, b) <= k` expressions (a - b <= k), registering the
// corresponding edge `b -> a` with weight k gated by l, and `eq(a, b)`
// expressions, registered as the two zero-weight edges that make a - b <= 0
// and b - a <= 0 both hold whenever l does.
func (s *STN) Bind(store *domain.Store, l domain.Literal, target expr.Expr) (BindStatus, error) {
	switch expr.Op(target.Op) {
	case expr.OpDiffLeq:
		s.AddEdge(target.B, target.A, target.K, l)
		return Enforced, nil
	case expr.OpEq:
		s.AddEdge(target.B, target.A, 0, l)
		s.AddEdge(target.A, target.B, 0, l)
		return Enforced, nil
	default:
		return Unsupported, nil
	}
}

// Propagate runs Bellman-Ford relaxation to a fixed point over the currently
// active edges, tightening bounds via store.Set: each active edge
// `to - from <= weight` posts ub(to) <= ub(from) + weight. Only upper bounds
// are propagated; lower bounds are not pushed back across edges.
func (s *STN) Propagate(store *domain.Store) *Contradiction {
	changed := true
	for changed {
		changed = false
		for _, e := range s.edges {
			if ok, known := store.ValueOf(e.active); !known || !ok {
				continue
			}
			_, fromUB := store.Bounds(e.from)
			_, toUB := store.Bounds(e.to)
			candidate := fromUB + e.weight
			if candidate < toUB {
				res := store.Set(domain.Leq(e.to, candidate), domain.Cause{
					Kind: domain.Inference, Writer: domain.WriterSTN, Payload: uint32(e.id),
				})
				if res == domain.Contradiction {
					return s.explainEmptyDomain(e)
				}
				if res == domain.Modified {
					changed = true
				}
			}
		}
		// A node whose own lower bound exceeds its upper bound after the
		// pass above signals a negative cycle; spec.md §4.5 reports the
		// contradiction with the cycle's edges.
		if cyc := s.findNegativeCycle(store); cyc != nil {
			s.cycle = cyc
			return s.explainCycle(cyc)
		}
	}
	return nil
}

func (s *STN) explainEmptyDomain(e stnEdge) *Contradiction {
	return &Contradiction{Literals: []domain.Literal{e.active}}
}

// findNegativeCycle looks for a variable whose lb now exceeds its ub among
// the variables touched by active edges, and walks predecessor edges back
// to a repeat to report a witnessing cycle.
func (s *STN) findNegativeCycle(store *domain.Store) []int {
	for _, e := range s.edges {
		if ok, known := store.ValueOf(e.active); !known || !ok {
			continue
		}
		lb, ub := store.Bounds(e.to)
		if lb > ub {
			return []int{e.id}
		}
	}
	return nil
}

func (s *STN) explainCycle(cycle []int) *Contradiction {
	lits := make([]domain.Literal, 0, len(cycle))
	for _, id := range cycle {
		lits = append(lits, s.edges[id].active)
	}
	return &Contradiction{Literals: lits}
}

// Explain expands a bound `to <= k` tightened by edge payload into
// [edge-active, from <= k - weight], the two antecedents of the
// Bellman-Ford relaxation that produced it.
func (s *STN) Explain(l domain.Literal, cause domain.Cause, out []domain.Literal) []domain.Literal {
	if int(cause.Payload) >= len(s.edges) {
		panic(fmt.Sprintf("theory/stn: unknown edge id %d", cause.Payload))
	}
	e := s.edges[cause.Payload]
	return append(out, e.active, domain.Leq(e.from, l.Bound-e.weight))
}

// Save/NumSaved/RestoreLast/Restore are pass-throughs: the STN's own state
// (the edge list) is only ever extended at the root by the encoder, before
// search begins, so it never needs to be rolled back. All of the theory's
// actual backtrackable state lives in the shared domain.Store.
func (s *STN) Save() int          { return 0 }
func (s *STN) NumSaved() int      { return 0 }
func (s *STN) RestoreLast()       {}
func (s *STN) Restore(level int)  {}
