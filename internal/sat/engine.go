// Package sat implements the two-watched-literal CDCL engine (C4). The
// engine only ever asserts/reads *boolean* bound literals (domain.TrueLit/
// domain.FalseLit); it delegates all bound storage, backtracking and
// presence-scoping to the shared domain.Store, and registers itself as a
// domain.Observer so its watch lists stay correct no matter which reasoner
// caused a literal to become entailed.
package sat

import (
	"fmt"
	"sort"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
	"github.com/cortexplan/lcp/internal/trail"
)

// widx maps a boolean literal to a dense index usable for watch-list arrays,
// mirroring the teacher's Literal(varID*2 [+1 if negative]) packing.
func widx(l domain.Literal) int {
	i := int(l.Var) * 2
	if l.Kind == domain.KindLeq {
		i++
	}
	return i
}

type watcher struct {
	clause *Clause
	guard  domain.Literal
}

// Options mirrors the teacher's sat.Options/DefaultOptions.
type Options struct {
	ClauseDecay   float64
	VariableDecay float64
}

var DefaultOptions = Options{
	ClauseDecay:   0.999,
	VariableDecay: 0.95,
}

// Engine is the CDCL reasoner. It is registered with the coordinator under
// domain.WriterSAT.
type Engine struct {
	store *domain.Store
	tr    *trail.Trail

	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	activities []float64
	varInc     float64
	varDecay   float64
	levels     []int // per-variable assigned decision level, -1 if unassigned
	reasons    []*Clause

	watchers  [][]watcher
	propQueue *Queue[domain.Literal]
	satTrail  []domain.Literal // boolean literals in the order they were asserted
	numVars   int

	seenVar     *ResetSet
	tmpWatchers []watcher
	tmpLearnts  []domain.Literal
	tmpReason   []domain.Literal

	onUnassign []func(domain.VarID)

	unsat bool

	TotalConflicts int64
	TotalRestarts  int64
}

// NewEngine returns an Engine sharing store and tr with the rest of the
// solver.
func NewEngine(store *domain.Store, tr *trail.Trail, opts Options) *Engine {
	e := &Engine{
		store:       store,
		tr:          tr,
		clauseDecay: opts.ClauseDecay,
		varDecay:    opts.VariableDecay,
		clauseInc:   1,
		varInc:      1,
		propQueue:   NewQueue[domain.Literal](128),
		seenVar:     &ResetSet{},
	}
	store.Subscribe(e)
	return e
}

// RegisterVar must be called once for every boolean variable the encoder or
// interner creates, growing the engine's per-literal bookkeeping.
func (e *Engine) RegisterVar(v domain.VarID) {
	for int(v) >= e.numVars {
		e.watchers = append(e.watchers, nil, nil)
		e.activities = append(e.activities, 0)
		e.levels = append(e.levels, -1)
		e.reasons = append(e.reasons, nil)
		e.seenVar.Expand()
		e.numVars++
	}
}

// OnUnassign registers a callback invoked whenever a tracked variable
// becomes unassigned again by backtracking; the brancher uses this to
// reinsert the variable into its selection heap.
func (e *Engine) OnUnassign(f func(domain.VarID)) {
	e.onUnassign = append(e.onUnassign, f)
}

func (e *Engine) NumVariables() int               { return e.numVars }
func (e *Engine) NumConstraints() int             { return len(e.constraints) }
func (e *Engine) NumLearnts() int                  { return len(e.learnts) }
func (e *Engine) Activity(v domain.VarID) float64  { return e.activities[v] }
func (e *Engine) Level(v domain.VarID) int         { return e.levels[v] }
func (e *Engine) DecisionLevel() int               { return e.tr.CurrentLevel() }
func (e *Engine) IsUnsat() bool                    { return e.unsat }
func (e *Engine) MarkUnsat()                       { e.unsat = true }

// Notify implements domain.Observer: any boolean literal we track that
// becomes entailed (no matter who called Store.Set) is queued for
// propagation and recorded on the engine's own literal trail, keyed so that
// backtracking it is a pure LIFO pop (Engine.Undo).
func (e *Engine) Notify(l domain.Literal) {
	if int(l.Var) >= e.numVars {
		return
	}
	e.levels[l.Var] = e.tr.CurrentLevel()
	e.satTrail = append(e.satTrail, l)
	e.tr.Push(e, l.Var)
	e.propQueue.Push(l)
}

// Undo implements trail.Undoer.
func (e *Engine) Undo(payload any) {
	v := payload.(domain.VarID)
	e.levels[v] = -1
	e.reasons[v] = nil
	e.satTrail = e.satTrail[:len(e.satTrail)-1]
	for _, cb := range e.onUnassign {
		cb(v)
	}
}

func (e *Engine) watch(c *Clause, w domain.Literal, guard domain.Literal) {
	idx := widx(w)
	e.watchers[idx] = append(e.watchers[idx], watcher{clause: c, guard: guard})
}

func (e *Engine) unwatch(c *Clause, w domain.Literal) {
	idx := widx(w)
	list := e.watchers[idx]
	j := 0
	for i := range list {
		if list[i].clause != c {
			list[j] = list[i]
			j++
		}
	}
	e.watchers[idx] = list[:j]
}

// enqueue asserts l with the given cause, returning false on conflict.
func (e *Engine) enqueue(l domain.Literal, cause domain.Cause) bool {
	if v, known := e.store.ValueOf(l); known {
		return v
	}
	return e.store.Set(l, cause) != domain.Contradiction
}

// enqueueReason is enqueue with the reason clause recorded first, so that
// Analyze can later find it via reasonOf.
func (e *Engine) enqueueReason(l domain.Literal, c *Clause) bool {
	e.reasons[l.Var] = c
	ok := e.enqueue(l, domain.Cause{Kind: domain.Inference, Writer: domain.WriterSAT})
	if !ok {
		e.reasons[l.Var] = nil
	}
	return ok
}

// Decide asserts l as a branching decision, opening a new decision level.
func (e *Engine) Decide(l domain.Literal) bool {
	e.tr.Save()
	return e.enqueue(l, domain.DecisionCause)
}

// CancelUntil unwinds the trail back to level, undoing every reasoner's
// state in lock-step (spec.md §4.1).
func (e *Engine) CancelUntil(level int) {
	e.tr.Restore(level)
}

// AddClause installs a hard (problem) clause. It must only be called at the
// root decision level (spec.md §4.4).
func (e *Engine) AddClause(lits []domain.Literal) error {
	if e.tr.CurrentLevel() != 0 {
		return fmt.Errorf("sat: AddClause called at decision level %d, want 0", e.tr.CurrentLevel())
	}
	c, ok := e.attach(lits, false)
	if c != nil {
		e.constraints = append(e.constraints, c)
	}
	if !ok {
		e.unsat = true
	}
	return nil
}

// attach builds (and, for size >= 2, watches) a clause from lits, simplifying
// away already-falsified literals and detecting root-level tautologies. It
// returns (nil, true) for a unit/tautological clause and (nil, false) for an
// immediate contradiction.
func (e *Engine) attach(lits []domain.Literal, learnt bool) (*Clause, bool) {
	tmp := append([]domain.Literal{}, lits...)
	size := len(tmp)

	if !learnt {
		seen := map[domain.Literal]struct{}{}
		for i := size - 1; i >= 0; i-- {
			if _, ok := seen[tmp[i].Opposite()]; ok {
				return nil, true // tautology
			}
			if _, ok := seen[tmp[i]]; ok {
				size--
				tmp[i], tmp[size] = tmp[size], tmp[i]
				continue
			}
			seen[tmp[i]] = struct{}{}

			if v, known := e.store.ValueOf(tmp[i]); known {
				if v {
					return nil, true
				}
				size--
				tmp[i], tmp[size] = tmp[size], tmp[i]
			}
		}
		tmp = tmp[:size]
	}

	switch size {
	case 0:
		return nil, false
	case 1:
		return nil, e.enqueue(tmp[0], domain.ExternalCause)
	default:
		c := newClause(tmp, learnt)
		if learnt {
			// Move the literal with the highest decision level into position
			// 1 so the watch immediately re-triggers on backtrack.
			maxLevel, wl := -1, -1
			for i := 1; i < len(c.literals); i++ {
				if lvl := e.levels[c.literals[i].Var]; lvl > maxLevel {
					maxLevel, wl = lvl, i
				}
			}
			c.literals[wl], c.literals[1] = c.literals[1], c.literals[wl]
		}
		e.watch(c, c.literals[0].Opposite(), c.literals[1])
		e.watch(c, c.literals[1].Opposite(), c.literals[0])
		return c, true
	}
}

// Bind claims a top-level l <=> expr equivalence for and/or/not expressions,
// installing Tseitin clauses (spec.md §4.4). It reports whether it claimed
// the expression; anything else (linear sums, tables, leq-over-int-vars) is
// left for a theory or the encoder to claim directly.
func (e *Engine) Bind(l domain.Literal, target expr.Expr) (claimed bool, err error) {
	switch expr.Op(target.Op) {
	case expr.OpAnd:
		for _, o := range target.Operands {
			if err := e.AddClause([]domain.Literal{l.Opposite(), o}); err != nil {
				return true, err
			}
		}
		big := append([]domain.Literal{l}, negateAll(target.Operands)...)
		return true, e.AddClause(big)
	case expr.OpOr:
		big := append([]domain.Literal{l.Opposite()}, target.Operands...)
		if err := e.AddClause(big); err != nil {
			return true, err
		}
		for _, o := range target.Operands {
			if err := e.AddClause([]domain.Literal{l, o.Opposite()}); err != nil {
				return true, err
			}
		}
		return true, nil
	case expr.OpNot:
		o := target.Operands[0]
		if err := e.AddClause([]domain.Literal{l.Opposite(), o.Opposite()}); err != nil {
			return true, err
		}
		return true, e.AddClause([]domain.Literal{l, o})
	default:
		return false, nil
	}
}

func negateAll(lits []domain.Literal) []domain.Literal {
	out := make([]domain.Literal, len(lits))
	for i, l := range lits {
		out[i] = l.Opposite()
	}
	return out
}

// Simplify removes root-level-satisfied clauses from both databases.
func (e *Engine) Simplify() bool {
	if e.tr.CurrentLevel() != 0 {
		panic("sat: Simplify called above decision level 0")
	}
	if e.propQueue.Size() != 0 {
		panic("sat: Simplify called with a non-empty propagation queue")
	}
	if e.unsat || e.Propagate() != nil {
		e.unsat = true
		return false
	}
	e.simplifyPtr(&e.learnts)
	e.simplifyPtr(&e.constraints)
	return true
}

func (e *Engine) simplifyPtr(clauses *[]*Clause) {
	cs := *clauses
	j := 0
	for i := range cs {
		if e.clauseSatisfied(cs[i]) {
			e.detach(cs[i])
		} else {
			cs[j] = cs[i]
			j++
		}
	}
	*clauses = cs[:j]
}

func (e *Engine) clauseSatisfied(c *Clause) bool {
	for _, l := range c.literals {
		if v, known := e.store.ValueOf(l); known && v {
			return true
		}
	}
	return false
}

func (e *Engine) detach(c *Clause) {
	e.unwatch(c, c.literals[0].Opposite())
	e.unwatch(c, c.literals[1].Opposite())
}

// ReduceDB deletes half of the non-locked, low-activity learnt clauses, the
// same two-tier policy the teacher uses in internal/sat/solver.go.
func (e *Engine) ReduceDB() {
	if len(e.learnts) == 0 {
		return
	}
	lim := e.clauseInc / float64(len(e.learnts))

	sort.Slice(e.learnts, func(i, j int) bool {
		return e.learnts[i].activity < e.learnts[j].activity
	})

	i, j := 0, 0
	for ; i < len(e.learnts)/2; i++ {
		if e.locked(e.learnts[i]) {
			e.learnts[j] = e.learnts[i]
			j++
		} else {
			e.detach(e.learnts[i])
		}
	}
	for ; i < len(e.learnts); i++ {
		if !e.locked(e.learnts[i]) && e.learnts[i].activity < lim && !e.learnts[i].protected() {
			e.detach(e.learnts[i])
		} else {
			e.learnts[j] = e.learnts[i]
			j++
		}
	}
	e.learnts = e.learnts[:j]
}

func (e *Engine) locked(c *Clause) bool {
	return e.reasons[c.literals[0].Var] == c
}

func (e *Engine) BumpClaActivity(c *Clause) {
	c.activity += e.clauseInc
	if c.activity > 1e100 {
		e.clauseInc *= 1e-100
		for _, l := range e.learnts {
			l.activity *= 1e-100
		}
	}
}

func (e *Engine) BumpVarActivity(l domain.Literal) {
	v := l.Var
	e.activities[v] += e.varInc
	if e.activities[v] > 1e100 {
		e.varInc *= 1e-100
		for i := range e.activities {
			e.activities[i] *= 1e-100
		}
	}
}

func (e *Engine) DecayClaActivity() { e.clauseInc *= e.clauseDecay }
func (e *Engine) DecayVarActivity() { e.varInc *= e.varDecay }

// Propagate drains the propagation queue, walking watch lists exactly as
// spec.md §4.4 describes. It returns the falsified clause on conflict, or
// nil once the queue empties without one.
func (e *Engine) Propagate() *Clause {
	for e.propQueue.Size() > 0 {
		l := e.propQueue.Pop()
		idx := widx(l)

		e.tmpWatchers = append(e.tmpWatchers[:0], e.watchers[idx]...)
		e.watchers[idx] = e.watchers[idx][:0]

		for i, w := range e.tmpWatchers {
			if v, known := e.store.ValueOf(w.guard); known && v {
				e.watchers[idx] = append(e.watchers[idx], w)
				continue
			}
			if e.propagateClause(w.clause, l) {
				continue
			}
			e.watchers[idx] = append(e.watchers[idx], e.tmpWatchers[i+1:]...)
			e.propQueue.Clear()
			return e.tmpWatchers[i].clause
		}
	}
	return nil
}

// propagateClause mirrors Clause.Propagate in the teacher: l is the literal
// that just became true; its opposite is being watched by c.
func (e *Engine) propagateClause(c *Clause, l domain.Literal) bool {
	opp := l.Opposite()
	if c.literals[0] == opp {
		c.literals[0], c.literals[1] = c.literals[1], opp
	}

	if v, known := e.store.ValueOf(c.literals[0]); known && v {
		e.watch(c, l, c.literals[0])
		return true
	}

	for i := 2; i < len(c.literals); i++ {
		if v, known := e.store.ValueOf(c.literals[i]); !(known && !v) {
			c.literals[1], c.literals[i] = c.literals[i], opp
			e.watch(c, c.literals[1].Opposite(), c.literals[0])
			return true
		}
	}

	e.watch(c, l, c.literals[0])
	return e.enqueueReason(c.literals[0], c)
}

// explainClause returns the antecedent literals of a clause's unit
// propagation (start==1, skipping the asserted literal itself) or, for the
// conflicting clause itself, every literal negated (start==0).
func (e *Engine) explainClause(c *Clause, isConflict bool) []domain.Literal {
	e.tmpReason = e.tmpReason[:0]
	start := 1
	if isConflict {
		start = 0
	}
	for i := start; i < len(c.literals); i++ {
		e.tmpReason = append(e.tmpReason, c.literals[i].Opposite())
	}
	if c.learnt() {
		e.BumpClaActivity(c)
	}
	return e.tmpReason
}

// Explain implements domain.Explainer for domain.WriterSAT.
func (e *Engine) Explain(l domain.Literal, cause domain.Cause, out []domain.Literal) []domain.Literal {
	c := e.reasons[l.Var]
	if c == nil {
		panic(fmt.Sprintf("sat: no reason clause recorded for %s", l))
	}
	return append(out, e.explainClause(c, false)...)
}

// Analyze performs first-UIP resolution against the conflicting clause,
// returning the learnt clause (FUIP negation first) and the backtrack level
// (spec.md §4.4).
func (e *Engine) Analyze(conflict *Clause) ([]domain.Literal, int) {
	nImplicationPoints := 0
	e.tmpLearnts = e.tmpLearnts[:0]
	e.tmpLearnts = append(e.tmpLearnts, domain.Literal{}) // placeholder for the FUIP
	nextIdx := len(e.satTrail) - 1

	var l domain.Literal
	confl := conflict
	isConflictLit := true
	e.seenVar.Clear()
	backtrackLevel := 0

	for {
		for _, q := range e.explainClause(confl, isConflictLit) {
			v := q.Var
			if e.seenVar.Contains(int(v)) {
				continue
			}
			e.seenVar.Add(int(v))
			e.BumpVarActivity(q)

			if e.levels[v] == e.tr.CurrentLevel() {
				nImplicationPoints++
				continue
			}
			e.tmpLearnts = append(e.tmpLearnts, q.Opposite())
			if lvl := e.levels[v]; lvl > backtrackLevel {
				backtrackLevel = lvl
			}
		}

		for {
			l = e.satTrail[nextIdx]
			nextIdx--
			v := l.Var
			confl = e.reasons[v]
			if e.seenVar.Contains(int(v)) {
				break
			}
		}
		isConflictLit = false

		nImplicationPoints--
		if nImplicationPoints <= 0 {
			break
		}
	}

	e.tmpLearnts[0] = l.Opposite()
	return append([]domain.Literal{}, e.tmpLearnts...), backtrackLevel
}

// Record installs a learnt clause and immediately asserts its first literal
// (the FUIP negation), exactly as NewClause+enqueue do in the teacher.
func (e *Engine) Record(lits []domain.Literal) {
	c, ok := e.attach(lits, true)
	if !ok {
		e.unsat = true
		return
	}
	if c == nil {
		return // unit clause, already enqueued by attach
	}
	e.enqueueReason(lits[0], c)
	e.learnts = append(e.learnts, c)
}
