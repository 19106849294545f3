package chronicles

import (
	"fmt"

	"github.com/cortexplan/lcp/internal/coordinator"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// SymmetryBreaking selects how aggressively the encoder breaks symmetries
// between instances of the same template (spec.md §4.8, §6
// ARIES_LCP_SYMMETRY_BREAKING).
type SymmetryBreaking uint8

const (
	SymmetryNone SymmetryBreaking = iota
	SymmetrySimple
)

// Encoder lowers a FiniteProblem into the shared domain.Store/expr.Interner,
// posting clauses through the coordinator's SAT engine.
type Encoder struct {
	model   *Model
	coord   *coordinator.Coordinator
	sym     SymmetryBreaking
	ors     func([]domain.Literal) error // AddClause, injected to avoid an import cycle on sat

	chronicles []Chronicle
}

// New returns an Encoder over model, posting hard clauses through addClause
// (normally sat.Engine.AddClause) and coordinating binding/propagation
// through coord.
func New(model *Model, coord *coordinator.Coordinator, addClause func([]domain.Literal) error, sym SymmetryBreaking) *Encoder {
	return &Encoder{model: model, coord: coord, sym: sym, ors: addClause}
}

// EncodeFlat instantiates every template exactly maxInstances[name] times
// (or Template.MaxInstances if absent from the map), the "flat mode" of
// spec.md §4.8.
func (e *Encoder) EncodeFlat(problem *FiniteProblem, maxInstances map[string]int) error {
	root := problem.Problem(e.model, domain.True)
	root.RefinesInstanceID, root.RefinesSubtaskID = -1, -1
	e.addChronicle(root)

	for _, tmpl := range problem.Templates {
		n := tmpl.MaxInstances
		if override, ok := maxInstances[tmpl.Name]; ok {
			n = override
		}
		gen := 0
		var siblings []Chronicle
		for i := 0; i < n; i++ {
			c := tmpl.Build(e.model, domain.True)
			c.TemplateName = tmpl.Name
			c.GenerationID = gen
			c.RefinesInstanceID, c.RefinesSubtaskID = -1, -1
			gen++
			e.addChronicle(c)
			siblings = append(siblings, c)
		}
		if e.sym == SymmetrySimple {
			if err := e.breakSymmetry(siblings); err != nil {
				return err
			}
		}
	}
	return e.finish()
}

// EncodeHTN expands root subtasks down to maxDepth using unifiable
// refinement templates, the "HTN mode" of spec.md §4.8.
func (e *Encoder) EncodeHTN(problem *FiniteProblem, maxDepth int) error {
	root := problem.Problem(e.model, domain.True)
	root.RefinesInstanceID, root.RefinesSubtaskID = -1, -1
	rootID := e.addChronicle(root)

	frontier := append([]Subtask{}, root.Subtasks...)
	frontierScope := make([]domain.Literal, len(frontier))
	frontierOwner := make([]int, len(frontier))
	for i := range frontierScope {
		frontierScope[i] = root.Presence
		frontierOwner[i] = rootID
	}

	instancesByTemplate := map[string][]Chronicle{}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier []Subtask
		var nextScope []domain.Literal
		var nextOwner []int

		for i, st := range frontier {
			scope := frontierScope[i]
			owner := frontierOwner[i]
			var refiners []Chronicle
			for _, tmpl := range problem.Templates {
				if depth == maxDepth-1 && !tmpl.IsAction {
					continue // final depth: skip refinements that still introduce subtasks
				}
				cand := tmpl.Build(e.model, scope)
				if !stateVarsUnifiable(e.model.Store, cand.Task, st.Task) {
					continue
				}
				cand.TemplateName = tmpl.Name
				cand.GenerationID = len(instancesByTemplate[tmpl.Name])
				cand.RefinesInstanceID, cand.RefinesSubtaskID = owner, st.ID
				instancesByTemplate[tmpl.Name] = append(instancesByTemplate[tmpl.Name], cand)
				candID := e.addChronicle(cand)
				cand.InstanceID = candID
				if scope != domain.True {
					// scope => presence, the clause half of the presence-scoping
					// invariant (the structural half was registered by
					// Model.NewPresence when the builder allocated cand.Presence).
					if err := e.clause(scope.Opposite(), cand.Presence); err != nil {
						return err
					}
				}
				refiners = append(refiners, cand)
			}
			if err := e.hierarchicalDecomposition(st, refiners); err != nil {
				return err
			}
			for _, r := range refiners {
				for _, sub := range r.Subtasks {
					nextFrontier = append(nextFrontier, sub)
					nextScope = append(nextScope, r.Presence)
					nextOwner = append(nextOwner, r.InstanceID)
				}
			}
		}
		frontier, frontierScope, frontierOwner = nextFrontier, nextScope, nextOwner
	}

	if e.sym == SymmetrySimple {
		for _, group := range instancesByTemplate {
			if err := e.breakSymmetry(group); err != nil {
				return err
			}
		}
	}
	return e.finish()
}

// addChronicle records c and posts its per-chronicle clauses (temporal
// frame, constraints). Causal support, threats and the HTN linkage for
// subtasks not yet refined are posted once by finish/hierarchicalDecomposition
// after every chronicle in a batch is known.
func (e *Encoder) addChronicle(c Chronicle) int {
	c.InstanceID = len(e.chronicles)
	e.chronicles = append(e.chronicles, c)
	e.temporalFrame(c)
	for _, k := range c.Constraints {
		e.lowerConstraint(c.Presence, k)
	}
	return c.InstanceID
}

// finish posts the cross-chronicle clauses (causal support, threats) once
// every chronicle of the problem is known.
func (e *Encoder) finish() error {
	if err := e.causalSupport(); err != nil {
		return err
	}
	return e.threats()
}

// Chronicles returns every chronicle instance the encoder produced, for
// the caller to read back presences/starts/names out of a solved model.
func (e *Encoder) Chronicles() []Chronicle { return e.chronicles }

func (e *Encoder) clause(lits ...domain.Literal) error {
	return e.ors(lits)
}

// temporalFrame posts spec.md §4.8 "Temporal frame" clauses for c.
func (e *Encoder) temporalFrame(c Chronicle) {
	// start <= end
	e.assertUnderScope(c.Presence, e.leq(c.Start, c.End))
	// presence => end <= horizon
	e.assertUnderScope(c.Presence, domain.Leq(c.End, e.model.Horizon))

	for _, st := range c.Subtasks {
		e.assertUnderScope(c.Presence, e.leq(c.Start, st.Start))
		e.assertUnderScope(c.Presence, e.leq(st.Start, st.End))
		e.assertUnderScope(c.Presence, e.leq(st.End, c.End))
	}
	for _, cond := range c.Conditions {
		e.assertUnderScope(c.Presence, e.leq(cond.Start, cond.End))
	}
	for _, eff := range c.Effects {
		e.assertUnderScope(c.Presence, e.leq(eff.TransitionStart, eff.PersistenceStart))
		e.assertUnderScope(c.Presence, e.leq(eff.PersistenceStart, eff.PersistenceEnd))
	}
}

// leq returns the reification literal for the difference constraint
// `a - b <= 0` (i.e. a <= b), claimed by the STN theory (spec.md §4.5).
func (e *Encoder) leq(a, b domain.VarID) domain.Literal {
	return e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpDiffLeq), A: a, B: b, K: 0})
}

// assertUnderScope posts `¬scope ∨ lit` as a hard clause, unless scope is
// domain.True in which case lit is asserted as a root tautology.
func (e *Encoder) assertUnderScope(scope domain.Literal, lit domain.Literal) {
	if scope == domain.True {
		e.coord.SetTautology(lit)
		return
	}
	if err := e.clause(scope.Opposite(), lit); err != nil {
		panic(fmt.Sprintf("chronicles: failed to post clause: %s", err))
	}
}

// condRef and effRef pair a chronicle with one of its conditions or
// effects, used while building the cross-chronicle causal-support and
// threat clauses.
type condRef struct {
	chronicle *Chronicle
	cond      Condition
}

type effRef struct {
	chronicle *Chronicle
	eff       Effect
}

// causalSupport posts, for every condition, the disjunction of compatible
// effects that could support it (spec.md §4.8 "Causal support").
func (e *Encoder) causalSupport() error {
	var conds []condRef
	var effs []effRef
	for i := range e.chronicles {
		c := &e.chronicles[i]
		for _, cond := range c.Conditions {
			conds = append(conds, condRef{c, cond})
		}
		for _, eff := range c.Effects {
			effs = append(effs, effRef{c, eff})
		}
	}

	for _, cr := range conds {
		disjuncts := []domain.Literal{cr.chronicle.Presence.Opposite()}
		for _, er := range effs {
			if !stateVarsUnifiable(e.model.Store, cr.cond.StateVar, er.eff.StateVar) {
				continue
			}
			if !unifiable(e.model.Store, cr.cond.Value, er.eff.Value) {
				continue
			}
			support := e.model.NewBool()
			supportLit := domain.TrueLit(support)

			// support <=> pe & sv(c)=sv(e) & value(c)=value(e)
			//             & e.persistence_start <= c.start & c.end <= e.persistence_end
			parts := []domain.Literal{er.chronicle.Presence}
			for i := range cr.cond.StateVar {
				parts = append(parts, eqAtom(e.model.Interner, cr.cond.StateVar[i], er.eff.StateVar[i]))
			}
			parts = append(parts, eqAtom(e.model.Interner, cr.cond.Value, er.eff.Value))
			parts = append(parts, e.leq(er.eff.PersistenceStart, cr.cond.Start))
			parts = append(parts, e.leq(cr.cond.End, er.eff.PersistenceEnd))

			for _, p := range parts {
				if err := e.clause(supportLit.Opposite(), p); err != nil {
					return err
				}
			}
			notAll := make([]domain.Literal, 0, len(parts)+1)
			notAll = append(notAll, supportLit)
			for _, p := range parts {
				notAll = append(notAll, p.Opposite())
			}
			if err := e.clause(notAll...); err != nil {
				return err
			}

			disjuncts = append(disjuncts, supportLit)
		}
		if err := e.clause(disjuncts...); err != nil {
			return err
		}
	}
	return nil
}

// threats posts, for every ordered pair of effects that could collide,
// the mutex clause of spec.md §4.8 "Threat (mutex)".
func (e *Encoder) threats() error {
	var effs []effRef
	for i := range e.chronicles {
		c := &e.chronicles[i]
		for _, eff := range c.Effects {
			effs = append(effs, effRef{c, eff})
		}
	}

	for i := 0; i < len(effs); i++ {
		for j := i + 1; j < len(effs); j++ {
			e1, e2 := effs[i], effs[j]
			if !stateVarsUnifiable(e.model.Store, e1.eff.StateVar, e2.eff.StateVar) {
				continue
			}
			lits := []domain.Literal{e1.chronicle.Presence.Opposite(), e2.chronicle.Presence.Opposite()}
			for k := range e1.eff.StateVar {
				neq, err := e.neqAtom(e1.eff.StateVar[k], e2.eff.StateVar[k])
				if err != nil {
					return err
				}
				lits = append(lits, neq)
			}
			lits = append(lits, e.leq(e2.eff.PersistenceEnd, e1.eff.TransitionStart))
			lits = append(lits, e.leq(e1.eff.PersistenceEnd, e2.eff.TransitionStart))
			if err := e.clause(lits...); err != nil {
				return err
			}
		}
	}
	return nil
}

// neqAtom returns the reification literal for `a != b`, defined as
// `¬(a = b)`.
func (e *Encoder) neqAtom(a, b domain.VarID) (domain.Literal, error) {
	return eqAtom(e.model.Interner, a, b).Opposite(), nil
}

// hierarchicalDecomposition posts spec.md §4.8 "Hierarchical decomposition"
// clauses for an open subtask st refined by candidates refiners.
func (e *Encoder) hierarchicalDecomposition(st Subtask, refiners []Chronicle) error {
	if len(refiners) == 0 {
		return nil
	}

	atLeastOne := make([]domain.Literal, 0, len(refiners))
	for _, r := range refiners {
		atLeastOne = append(atLeastOne, r.Presence)
	}
	if err := e.clause(atLeastOne...); err != nil {
		return err
	}

	for i := range refiners {
		for j := range refiners {
			if i == j {
				continue
			}
			if err := e.clause(refiners[i].Presence.Opposite(), refiners[j].Presence.Opposite()); err != nil {
				return err
			}
		}
	}

	for _, r := range refiners {
		e.assertUnderScope(r.Presence, e.leq(r.Start, st.Start))
		e.assertUnderScope(r.Presence, e.leq(st.Start, r.Start))
		e.assertUnderScope(r.Presence, e.leq(r.End, st.End))
		e.assertUnderScope(r.Presence, e.leq(st.End, r.End))
		for k := range st.Task {
			e.assertUnderScope(r.Presence, eqAtom(e.model.Interner, r.Task[k], st.Task[k]))
		}
	}
	return nil
}

// lowerConstraint posts the clauses of spec.md §4.8 "Constraints" for one
// chronicle-level constraint under scope.
func (e *Encoder) lowerConstraint(scope domain.Literal, k Constraint) {
	switch k.Kind {
	case CLeq:
		e.assertUnderScope(scope, e.leq(k.A, k.B))
	case CLt:
		e.assertUnderScope(scope, e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpDiffLeq), A: k.A, B: k.B, K: -1}))
	case CEq:
		e.assertUnderScope(scope, eqAtom(e.model.Interner, k.A, k.B))
	case CNeq:
		e.assertUnderScope(scope, eqAtom(e.model.Interner, k.A, k.B).Opposite())
	case CDuration:
		e.assertUnderScope(scope, e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpDiffLeq), A: k.B, B: k.A, K: k.MaxDur}))
		e.assertUnderScope(scope, e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpDiffLeq), A: k.A, B: k.B, K: -k.MinDur}))
	case CInTable:
		e.lowerInTable(scope, k)
	case COr:
		lits := make([]domain.Literal, 0, len(k.Or)+1)
		lits = append(lits, scope.Opposite())
		for _, sub := range k.Or {
			lits = append(lits, e.constraintLiteral(sub))
		}
		if err := e.clause(lits...); err != nil {
			panic(fmt.Sprintf("chronicles: failed to post Or clause: %s", err))
		}
	case CLinearEq:
		leqLit := e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpLinearLeq), Terms: k.Terms})
		geqLit := e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpLinearGeq), Terms: k.Terms})
		e.assertUnderScope(scope, leqLit)
		e.assertUnderScope(scope, geqLit)
	}
}

// constraintLiteral returns a reification literal standing for k, used when
// k appears as a disjunct of an Or constraint.
func (e *Encoder) constraintLiteral(k Constraint) domain.Literal {
	switch k.Kind {
	case CLeq:
		return e.leq(k.A, k.B)
	case CEq:
		return eqAtom(e.model.Interner, k.A, k.B)
	case CNeq:
		return eqAtom(e.model.Interner, k.A, k.B).Opposite()
	default:
		panic(fmt.Sprintf("chronicles: unsupported nested Or constraint kind %d", k.Kind))
	}
}

// lowerInTable posts `¬scope ∨ in_table(cols)` by decomposing directly into
// the disjunction-of-conjunctions spec.md §4.3 prescribes for InTable:
// `pc ⇒ ⋁_rows ⋀_cols (var = val)`. Each cell compares a column to a
// constant, so it is just a pair of plain bound literals (no interning
// needed, unlike var-to-var equality); the whole constraint then reduces to
// nested Or/And that the SAT engine's Bind already claims directly.
func (e *Encoder) lowerInTable(scope domain.Literal, k Constraint) {
	rowLits := make([]domain.Literal, 0, len(k.Table.Rows))
	for _, row := range k.Table.Rows {
		cellLits := make([]domain.Literal, 0, 2*len(k.Columns))
		for i, col := range k.Columns {
			cellLits = append(cellLits, domain.Leq(col, row[i]), domain.Geq(col, row[i]))
		}
		rowLits = append(rowLits, e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpAnd), Operands: cellLits}))
	}
	lit := e.model.Interner.InternExpr(expr.Expr{Op: uint8(expr.OpOr), Operands: rowLits})
	e.assertUnderScope(scope, lit)
}

// breakSymmetry posts spec.md §4.8 "Simple symmetry breaking" clauses over
// instances of the same template, ordered by GenerationID: presence must be
// non-increasing in generation id, so a higher-generation instance can only
// be present if every lower-generation one already is.
func (e *Encoder) breakSymmetry(instances []Chronicle) error {
	for i := 0; i < len(instances); i++ {
		for j := 0; j < len(instances); j++ {
			if instances[i].GenerationID >= instances[j].GenerationID {
				continue
			}
			// present(j) => present(i): ¬present(j) ∨ present(i)
			if err := e.clause(instances[j].Presence.Opposite(), instances[i].Presence); err != nil {
				return err
			}
			e.assertUnderScope(instances[j].Presence, e.leq(instances[i].Start, instances[j].Start))
		}
	}
	return nil
}
