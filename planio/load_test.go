package planio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProblem_BuildsFlatFiniteProblem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "problem.json", `{
		"horizon": 10,
		"problem": {
			"kind": "problem",
			"params": [{"name": "start", "lb": 0, "ub": 0}, {"name": "end", "lb": 0, "ub": 10}]
		}
	}`)

	fp, err := LoadProblem(path)
	if err != nil {
		t.Fatalf("LoadProblem: %s", err)
	}
	if fp.Hierarchical {
		t.Errorf("Hierarchical = true, want false (problem has no subtasks)")
	}
	if fp.Horizon != 10 {
		t.Errorf("Horizon = %d, want 10", fp.Horizon)
	}
}

func TestLoadProblemWithDomain_MergesTemplatesFromBothFiles(t *testing.T) {
	dir := t.TempDir()
	domainFile := writeFile(t, dir, "domain.json", `{
		"horizon": 10,
		"problem": {"kind": "problem", "params": []},
		"templates": [{
			"name": "from-domain",
			"max_instances": 1,
			"is_action": true,
			"body": {"kind": "action", "params": [{"name": "start", "lb": 0, "ub": 10}, {"name": "end", "lb": 0, "ub": 10}]}
		}]
	}`)
	problemFile := writeFile(t, dir, "problem.json", `{
		"horizon": 10,
		"problem": {
			"kind": "problem",
			"params": [{"name": "start", "lb": 0, "ub": 0}, {"name": "end", "lb": 0, "ub": 10}]
		},
		"templates": [{
			"name": "from-problem",
			"max_instances": 1,
			"is_action": true,
			"body": {"kind": "action", "params": [{"name": "start", "lb": 0, "ub": 10}, {"name": "end", "lb": 0, "ub": 10}]}
		}]
	}`)

	fp, err := LoadProblemWithDomain(domainFile, problemFile)
	if err != nil {
		t.Fatalf("LoadProblemWithDomain: %s", err)
	}
	if len(fp.Templates) != 2 {
		t.Fatalf("len(Templates) = %d, want 2 (one from each file)", len(fp.Templates))
	}
	names := map[string]bool{}
	for _, tpl := range fp.Templates {
		names[tpl.Name] = true
	}
	if !names["from-domain"] || !names["from-problem"] {
		t.Fatalf("Templates = %v, want both from-domain and from-problem", names)
	}
}
