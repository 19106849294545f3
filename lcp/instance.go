package lcp

import (
	"github.com/cortexplan/lcp/internal/chronicles"
	"github.com/cortexplan/lcp/internal/coordinator"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/expr"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/theory"
	"github.com/cortexplan/lcp/internal/trail"
)

// instance bundles one fully encoded copy of a problem: every reasoner the
// coordinator drives, plus the variables Solve needs to build branchers and
// read a model back out as a plan. Building the same problem twice through
// build() is a deterministic clone: the builder closures allocate variables
// in the same order every time, so two instances number their variables
// identically and a learnt clause from one is meaningful on the other
// (spec.md §4.9 "N worker solvers ... sharing the same encoded model").
type instance struct {
	store    *domain.Store
	engine   *sat.Engine
	stn      *theory.STN
	linear   *theory.Linear
	coord    *coordinator.Coordinator
	encoder  *chronicles.Encoder

	allVars  []domain.VarID
	boolVars []domain.VarID
}

// build encodes problem into a fresh instance at the given HTN depth (0 in
// flat mode, since EncodeFlat ignores it).
func build(problem *chronicles.FiniteProblem, opts Options, depth int) (*instance, error) {
	tr := trail.New()
	store := domain.NewStore(tr)
	engine := sat.NewEngine(store, tr, sat.DefaultOptions)
	stn := theory.NewSTN(theory.ModeFull)
	lin := theory.NewLinear()

	in := &instance{store: store, engine: engine, stn: stn, linear: lin}

	model := &chronicles.Model{
		Store:   store,
		Horizon: problem.Horizon,
		OnNewVar: func(v domain.VarID) {
			engine.RegisterVar(v)
			in.allVars = append(in.allVars, v)
		},
	}
	model.Interner = expr.New(model)

	coord := coordinator.New(store, model.Interner, engine, stn, lin)
	in.coord = coord

	enc := chronicles.New(model, coord, engine.AddClause, opts.Symmetry)
	in.encoder = enc

	var err error
	if problem.Hierarchical {
		err = enc.EncodeHTN(problem, depth)
	} else {
		err = enc.EncodeFlat(problem, nil)
	}
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	for _, v := range in.allVars {
		lb, ub := store.Bounds(v)
		if lb == 0 && ub == 1 {
			in.boolVars = append(in.boolVars, v)
		}
	}
	return in, nil
}
