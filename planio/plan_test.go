package planio

import (
	"strings"
	"testing"
)

func TestWriteFlatPlan_SortsByStartAndFormatsArgs(t *testing.T) {
	pr := &PlanResult{
		Actions: []PlanAction{
			{InstanceID: 1, Start: 5, Name: "move", Args: []string{"r1", "a", "b"}},
			{InstanceID: 0, Start: 1, Name: "pick-up", Args: []string{"r1", "a"}},
			{InstanceID: 2, Start: 1, Name: "noop"},
		},
	}

	var sb strings.Builder
	if err := WriteFlatPlan(&sb, pr); err != nil {
		t.Fatalf("WriteFlatPlan: %s", err)
	}

	want := "  1: (pick-up r1 a)\n  1: (noop)\n  5: (move r1 a b)\n"
	if sb.String() != want {
		t.Fatalf("WriteFlatPlan output =\n%q\nwant\n%q", sb.String(), want)
	}
}

func TestWriteHierarchicalPlan_EmitsHeaderActionsDecompositionsFooter(t *testing.T) {
	pr := &PlanResult{
		Actions: []PlanAction{
			{InstanceID: 2, Start: 0, Name: "pick-up", Args: []string{"a"}},
		},
		Decompositions: []PlanDecomposition{
			{InstanceID: 1, TaskName: "get", TaskArgs: []string{"a"}, Method: "m1", Children: []int{2}},
		},
	}

	var sb strings.Builder
	if err := WriteHierarchicalPlan(&sb, pr); err != nil {
		t.Fatalf("WriteHierarchicalPlan: %s", err)
	}

	want := "==>\n2 (pick-up a)\n1 (get a) -> (m1) 2\n<==\n"
	if sb.String() != want {
		t.Fatalf("WriteHierarchicalPlan output =\n%q\nwant\n%q", sb.String(), want)
	}
}

func TestSymbolTable_Name_FallsBackToIndex(t *testing.T) {
	st := NewSymbolTable()
	st.Bind(3, "robot1")

	if got := st.Name(3); got != "robot1" {
		t.Errorf("Name(3) = %q, want %q", got, "robot1")
	}
	if got := st.Name(42); got != "42" {
		t.Errorf("Name(42) = %q, want %q (unbound index formats as decimal)", got, "42")
	}
}
