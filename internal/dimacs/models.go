package dimacs

import (
	"fmt"

	"github.com/rhartert/dimacs"
)

// ParseModels returns every model listed in a DIMACS model file: one line
// per model, one literal per variable in the instance's own numbering,
// exactly as the teacher's parsers.ReadModels reads them.
func ParseModels(filename string) ([][]bool, error) {
	r, err := reader(filename, false)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %s", filename, err)
	}
	defer r.Close()

	b := &modelBuilder{}
	if err := dimacs.ReadBuilder(r, b); err != nil {
		return nil, err
	}
	return b.models, nil
}

// modelBuilder adapts dimacs.Builder to a model file, which never carries a
// problem line: every Clause call instead reports one satisfying model.
type modelBuilder struct {
	models [][]bool
}

func (b *modelBuilder) Problem(problem string, nVars int, nClauses int) error {
	return fmt.Errorf("dimacs: model files should not have a problem line")
}

func (b *modelBuilder) Comment(_ string) error { return nil }

func (b *modelBuilder) Clause(tmpClause []int) error {
	model := make([]bool, len(tmpClause))
	for i, l := range tmpClause {
		model[i] = l > 0
	}
	b.models = append(b.models, model)
	return nil
}
