package planio

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cortexplan/lcp/internal/chronicles"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
)

// reader opens filename, transparently decompressing it if it ends in
// ".gz", mirroring the teacher's parsers.reader helper.
func reader(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if strings.HasSuffix(filename, ".gz") {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// LoadProblem reads a ProblemFile from filename and builds the
// chronicles.FiniteProblem the encoder consumes. Variable allocation is
// deferred: the returned FiniteProblem's Builders only run once a
// chronicles.Model (bound to a live domain.Store/expr.Interner) is
// available, so this function performs no domain-store mutation itself.
func LoadProblem(filename string) (*chronicles.FiniteProblem, error) {
	pf, err := decodeProblemFile(filename)
	if err != nil {
		return nil, err
	}
	return buildFiniteProblem(pf)
}

// LoadProblemWithDomain reads templates from domainFile and
// horizon/tables/problem from problemFile, the two-file form of spec.md §6
// ("lcp [--domain PATH] PROBLEM"): the domain file holds the reusable
// template library, the problem file the instance-specific initial
// chronicle. Templates declared directly in problemFile, if any, are kept
// alongside domainFile's.
func LoadProblemWithDomain(domainFile, problemFile string) (*chronicles.FiniteProblem, error) {
	domain, err := decodeProblemFile(domainFile)
	if err != nil {
		return nil, err
	}
	pf, err := decodeProblemFile(problemFile)
	if err != nil {
		return nil, err
	}
	pf.Templates = append(append([]TemplateSpec{}, domain.Templates...), pf.Templates...)
	return buildFiniteProblem(pf)
}

func decodeProblemFile(filename string) (*ProblemFile, error) {
	rc, err := reader(filename)
	if err != nil {
		return nil, fmt.Errorf("planio: opening %q: %w", filename, err)
	}
	defer rc.Close()

	var pf ProblemFile
	if err := json.NewDecoder(rc).Decode(&pf); err != nil {
		return nil, fmt.Errorf("planio: decoding %q: %w", filename, err)
	}
	return &pf, nil
}

// loader carries the per-load constant cache so repeated Builder
// invocations (HTN re-instantiation) share one variable per distinct
// integer constant instead of allocating a fresh one every time.
type loader struct {
	consts map[int32]domain.VarID
	tables map[string]*expr.Table
}

func buildFiniteProblem(pf *ProblemFile) (*chronicles.FiniteProblem, error) {
	l := &loader{consts: map[int32]domain.VarID{}, tables: map[string]*expr.Table{}}
	for _, t := range pf.Tables {
		l.tables[t.Name] = &expr.Table{Name: t.Name, Rows: t.Rows}
	}

	fp := &chronicles.FiniteProblem{
		Horizon:      pf.Horizon,
		Tables:       l.tables,
		Hierarchical: len(pf.Problem.Subtasks) > 0,
		Problem: func(m *chronicles.Model, scope domain.Literal) chronicles.Chronicle {
			c, err := l.buildChronicle(m, pf.Problem, domain.True)
			if err != nil {
				panic(fmt.Sprintf("planio: encoding error building problem chronicle: %s", err))
			}
			return c
		},
	}
	for _, ts := range pf.Templates {
		ts := ts
		fp.Templates = append(fp.Templates, chronicles.Template{
			Name:         ts.Name,
			MaxInstances: ts.MaxInstances,
			IsAction:     ts.IsAction,
			Build: func(m *chronicles.Model, scope domain.Literal) chronicles.Chronicle {
				c, err := l.buildChronicle(m, ts.Body, scope)
				if err != nil {
					panic(fmt.Sprintf("planio: encoding error building template %q: %s", ts.Name, err))
				}
				return c
			},
		})
	}
	return fp, nil
}

var kindByName = map[string]chronicles.Kind{
	"problem":          chronicles.KindProblem,
	"method":           chronicles.KindMethod,
	"action":           chronicles.KindAction,
	"durative_action":  chronicles.KindDurativeAction,
}

func (l *loader) buildChronicle(m *chronicles.Model, cs ChronicleSpec, scope domain.Literal) (chronicles.Chronicle, error) {
	kind, ok := kindByName[cs.Kind]
	if !ok {
		return chronicles.Chronicle{}, fmt.Errorf("unknown chronicle kind %q", cs.Kind)
	}

	params := map[string]domain.VarID{}
	for _, p := range cs.Params {
		params[p.Name] = m.NewVar(p.Lb, p.Ub, p.Name)
	}

	resolve := func(a AtomSpec) (domain.VarID, error) { return l.resolveAtom(m, a, params) }
	resolveAll := func(as []AtomSpec) ([]domain.VarID, error) {
		out := make([]domain.VarID, len(as))
		for i, a := range as {
			v, err := resolve(a)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	start, ok1 := params["start"]
	end, ok2 := params["end"]
	if !ok1 || !ok2 {
		return chronicles.Chronicle{}, fmt.Errorf("chronicle of kind %q is missing reserved \"start\"/\"end\" params", cs.Kind)
	}

	var presence domain.Literal
	if kind == chronicles.KindProblem {
		presence = domain.True
	} else {
		presence = m.NewPresence(scope)
	}

	name, err := resolveAll(cs.Name)
	if err != nil {
		return chronicles.Chronicle{}, fmt.Errorf("name atom: %w", err)
	}
	task, err := resolveAll(cs.Task)
	if err != nil {
		return chronicles.Chronicle{}, fmt.Errorf("task signature: %w", err)
	}

	c := chronicles.Chronicle{
		Presence: presence,
		Start:    start,
		End:      end,
		Name:     name,
		Kind:     kind,
		Task:     task,
	}

	for _, cond := range cs.Conditions {
		sv, err := resolveAll(cond.StateVar)
		if err != nil {
			return chronicles.Chronicle{}, fmt.Errorf("condition state_var: %w", err)
		}
		value, err := resolve(cond.Value)
		if err != nil {
			return chronicles.Chronicle{}, fmt.Errorf("condition value: %w", err)
		}
		cstart, err := resolve(cond.Start)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		cend, err := resolve(cond.End)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		c.Conditions = append(c.Conditions, chronicles.Condition{StateVar: sv, Value: value, Start: cstart, End: cend})
	}

	for _, eff := range cs.Effects {
		sv, err := resolveAll(eff.StateVar)
		if err != nil {
			return chronicles.Chronicle{}, fmt.Errorf("effect state_var: %w", err)
		}
		value, err := resolve(eff.Value)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		ts, err := resolve(eff.TransitionStart)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		ps, err := resolve(eff.PersistenceStart)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		// persistence_end is a fresh variable bounded by the horizon
		// (spec.md §4.8 "Temporal frame"), not part of the wire format.
		pe := m.NewVar(0, m.Horizon, "persistence_end")
		c.Effects = append(c.Effects, chronicles.Effect{
			StateVar: sv, Value: value,
			TransitionStart: ts, PersistenceStart: ps, PersistenceEnd: pe,
		})
	}

	for i, st := range cs.Subtasks {
		task, err := resolveAll(st.Task)
		if err != nil {
			return chronicles.Chronicle{}, fmt.Errorf("subtask task: %w", err)
		}
		sstart, err := resolve(st.Start)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		send, err := resolve(st.End)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		c.Subtasks = append(c.Subtasks, chronicles.Subtask{ID: i, Task: task, Start: sstart, End: send})
	}

	for _, k := range cs.Constraints {
		lowered, err := l.buildConstraint(m, k, params)
		if err != nil {
			return chronicles.Chronicle{}, err
		}
		c.Constraints = append(c.Constraints, lowered)
	}

	return c, nil
}

var constraintKindByName = map[string]chronicles.ConstraintKind{
	"lt": chronicles.CLt, "leq": chronicles.CLeq, "eq": chronicles.CEq, "neq": chronicles.CNeq,
	"in_table": chronicles.CInTable, "or": chronicles.COr, "duration": chronicles.CDuration, "linear_eq": chronicles.CLinearEq,
}

func (l *loader) buildConstraint(m *chronicles.Model, k ConstraintSpec, params map[string]domain.VarID) (chronicles.Constraint, error) {
	kind, ok := constraintKindByName[k.Kind]
	if !ok {
		return chronicles.Constraint{}, fmt.Errorf("unknown constraint kind %q", k.Kind)
	}
	out := chronicles.Constraint{Kind: kind, MinDur: k.MinDur, MaxDur: k.MaxDur}

	switch kind {
	case chronicles.CLt, chronicles.CLeq, chronicles.CEq, chronicles.CNeq, chronicles.CDuration:
		a, err := l.resolveAtom(m, k.A, params)
		if err != nil {
			return chronicles.Constraint{}, err
		}
		b, err := l.resolveAtom(m, k.B, params)
		if err != nil {
			return chronicles.Constraint{}, err
		}
		out.A, out.B = a, b
	case chronicles.CInTable:
		t, ok := l.tables[k.Table]
		if !ok {
			return chronicles.Constraint{}, fmt.Errorf("unknown table %q", k.Table)
		}
		cols := make([]domain.VarID, len(k.Columns))
		for i, col := range k.Columns {
			v, err := l.resolveAtom(m, col, params)
			if err != nil {
				return chronicles.Constraint{}, err
			}
			cols[i] = v
		}
		if len(cols) != 0 && len(t.Rows) != 0 && len(cols) != len(t.Rows[0]) {
			return chronicles.Constraint{}, fmt.Errorf("table %q has %d columns, constraint supplies %d", k.Table, len(t.Rows[0]), len(cols))
		}
		out.Table, out.Columns = t, cols
	case chronicles.COr:
		for _, sub := range k.Or {
			lowered, err := l.buildConstraint(m, sub, params)
			if err != nil {
				return chronicles.Constraint{}, err
			}
			out.Or = append(out.Or, lowered)
		}
	case chronicles.CLinearEq:
		for _, t := range k.Terms {
			v, ok := params[t.Var]
			if !ok {
				return chronicles.Constraint{}, fmt.Errorf("linear_eq term references unknown param %q", t.Var)
			}
			out.Terms = append(out.Terms, expr.LinearTerm{Coeff: t.Coeff, Var: v})
		}
	}
	return out, nil
}

func (l *loader) resolveAtom(m *chronicles.Model, a AtomSpec, params map[string]domain.VarID) (domain.VarID, error) {
	if a.Const != nil {
		if v, ok := l.consts[*a.Const]; ok {
			return v, nil
		}
		v := m.NewVar(*a.Const, *a.Const, "")
		l.consts[*a.Const] = v
		return v, nil
	}
	v, ok := params[a.Param]
	if !ok {
		return 0, fmt.Errorf("reference to unknown param %q", a.Param)
	}
	return v, nil
}
