package dimacs

import (
	"testing"

	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/trail"
)

func newEngine() (*domain.Store, *sat.Engine) {
	tr := trail.New()
	store := domain.NewStore(tr)
	return store, sat.NewEngine(store, tr, sat.DefaultOptions)
}

func TestLoad_RegistersVariablesAndClauses(t *testing.T) {
	store, engine := newEngine()
	vars, err := Load("testdata/instance.cnf", false, store, engine)
	if err != nil {
		t.Fatalf("Load(): %s", err)
	}
	if len(vars) != 2 {
		t.Fatalf("Load() returned %d vars, want 2", len(vars))
	}
	// VarIDs 1 and 2 plus the slot of the reserved ZeroVar (VarID 0).
	if engine.NumVariables() != 3 {
		t.Errorf("NumVariables() = %d, want 3", engine.NumVariables())
	}
	if engine.NumConstraints() != 2 {
		t.Errorf("NumConstraints() = %d, want 2", engine.NumConstraints())
	}
}

func TestLoad_NoFile(t *testing.T) {
	store, engine := newEngine()
	if _, err := Load("", false, store, engine); err == nil {
		t.Errorf("Load(\"\"): want error, got none")
	}
}

func TestParseModels(t *testing.T) {
	models, err := ParseModels("testdata/instance.cnf.models")
	if err != nil {
		t.Fatalf("ParseModels(): %s", err)
	}
	want := [][]bool{{true, false}, {false, true}}
	if len(models) != len(want) {
		t.Fatalf("ParseModels() returned %d models, want %d", len(models), len(want))
	}
}
