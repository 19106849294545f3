package sat_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cortexplan/lcp/internal/brancher"
	"github.com/cortexplan/lcp/internal/dimacs"
	"github.com/cortexplan/lcp/internal/domain"
	"github.com/cortexplan/lcp/internal/sat"
	"github.com/cortexplan/lcp/internal/trail"
)

// This test cross-checks the CDCL engine against a set of DIMACS CNF
// instances with known models, pre-computed by trusted reference SAT
// solvers such as MiniSAT and Glucose, rather than any clause set the
// chronicle encoder would produce itself.
//
// Each instance under testdataDir is an ".cnf" file paired with a
// ".cnf.models" file listing every satisfying model, one per line, using
// the same variable numbering as the instance.
var testdataDir = "testdata"

type testCase struct {
	instanceName string
	instanceFile string
	modelsFile   string
}

func listTestCases(dir string) ([]testCase, error) {
	var cases []testCase
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".cnf") {
			return nil
		}
		cases = append(cases, testCase{
			instanceName: d.Name(),
			instanceFile: path,
			modelsFile:   path + ".models",
		})
		return nil
	})
	return cases, err
}

func toString(model []bool) string {
	s := make([]byte, 0, len(model))
	for _, b := range model {
		if b {
			s = append(s, 1)
		} else {
			s = append(s, 0)
		}
	}
	return string(s)
}

func toSet(models [][]bool) map[string]struct{} {
	set := map[string]struct{}{}
	for _, m := range models {
		set[toString(m)] = struct{}{}
	}
	return set
}

// solveAll exhaustively enumerates every model of the clauses already
// loaded into engine, forbidding each model found so the next search finds
// a different one, the same technique the reference solvers' own
// enumeration mode uses.
func solveAll(store *domain.Store, engine *sat.Engine, vars []domain.VarID) [][]bool {
	if engine.IsUnsat() {
		return nil
	}

	b := brancher.New(store, engine, vars, brancher.PreferSavedPhase)
	restart := brancher.NewRestartPolicy(100, 2)

	var models [][]bool
	for {
		if conflict := engine.Propagate(); conflict != nil {
			if engine.DecisionLevel() == 0 {
				return models
			}
			learnt, backtrack := engine.Analyze(conflict)
			engine.CancelUntil(backtrack)
			engine.Record(learnt)
			engine.DecayClaActivity()
			engine.DecayVarActivity()
			restart.OnConflict()
			continue
		}

		if restart.ShouldRestart() {
			engine.CancelUntil(0)
			restart.Reset()
			continue
		}

		lit, ok := b.Next()
		if !ok {
			model := make([]bool, len(vars))
			block := make([]domain.Literal, len(vars))
			for i, v := range vars {
				model[i] = store.Entails(domain.TrueLit(v))
				if model[i] {
					block[i] = domain.FalseLit(v)
				} else {
					block[i] = domain.TrueLit(v)
				}
			}
			models = append(models, model)

			engine.CancelUntil(0)
			if err := engine.AddClause(block); err != nil {
				panic(err)
			}
			if engine.IsUnsat() {
				return models
			}
			continue
		}

		if !engine.Decide(lit) {
			panic("sat: decide produced an immediate contradiction on an unassigned literal")
		}
	}
}

func TestSolveAll_MatchesKnownModels(t *testing.T) {
	cases, err := listTestCases(testdataDir)
	if err != nil {
		t.Fatalf("listTestCases: %s", err)
	}
	if len(cases) == 0 {
		t.Fatalf("no test cases found under %q", testdataDir)
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.instanceName, func(t *testing.T) {
			t.Parallel()

			want, err := dimacs.ParseModels(tc.modelsFile)
			if err != nil {
				t.Fatalf("ParseModels(%q): %s", tc.modelsFile, err)
			}

			tr := trail.New()
			store := domain.NewStore(tr)
			engine := sat.NewEngine(store, tr, sat.DefaultOptions)
			vars, err := dimacs.Load(tc.instanceFile, false, store, engine)
			if err != nil {
				t.Fatalf("Load(%q): %s", tc.instanceFile, err)
			}

			got := solveAll(store, engine, vars)

			if len(got) != len(want) {
				t.Errorf("got %d models, want %d", len(got), len(want))
			}
			if !cmp.Equal(toSet(got), toSet(want)) {
				t.Errorf("model mismatch: got %v, want %v", toSet(got), toSet(want))
			}
		})
	}
}
