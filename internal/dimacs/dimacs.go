// Package dimacs loads DIMACS CNF benchmark instances directly into the
// bound-literal SAT engine (C4), grounded on the teacher's own
// parsers.LoadDIMACS (parsers/parsers.go) which wraps the same
// github.com/rhartert/dimacs parser. It exists purely as internal/sat's
// unit-test cross-check against known SAT/UNSAT instances; the chronicle
// encoder is the only producer of clauses in production use.
package dimacs

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/sat"
)

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// Load parses the DIMACS CNF file at filename into store/engine, returning
// the boolean domain.VarID allocated for each DIMACS variable in file order
// (so index i holds variable i+1's var).
func Load(filename string, gzipped bool, store *domain.Store, engine *sat.Engine) ([]domain.VarID, error) {
	r, err := reader(filename, gzipped)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer r.Close()

	b := &builder{store: store, engine: engine}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return nil, err
	}
	return b.vars, nil
}

// builder adapts store/engine to dimacs.Builder: each DIMACS variable
// becomes a fresh boolean (domain [0,1]) variable, and each DIMACS literal
// becomes the corresponding true/false bound literal.
type builder struct {
	store  *domain.Store
	engine *sat.Engine
	vars   []domain.VarID
}

func (b *builder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("dimacs: instance of type %q is not supported", problem)
	}
	b.vars = make([]domain.VarID, nVars)
	for i := 0; i < nVars; i++ {
		v := b.store.NewVar(0, 1, "")
		b.engine.RegisterVar(v)
		b.vars[i] = v
	}
	return nil
}

func (b *builder) Clause(tmpClause []int) error {
	clause := make([]domain.Literal, len(tmpClause))
	for i, l := range tmpClause {
		if l < 0 {
			clause[i] = domain.FalseLit(b.vars[-l-1])
		} else {
			clause[i] = domain.TrueLit(b.vars[l-1])
		}
	}
	return b.engine.AddClause(clause)
}

func (b *builder) Comment(_ string) error { return nil }
