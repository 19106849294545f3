package planio

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SymbolTable maps the integer atoms the solver reasons about back to their
// source-level names, the one piece of information the encoder does not
// need but plan printing does.
type SymbolTable struct {
	names map[int32]string
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable { return &SymbolTable{names: map[int32]string{}} }

// Bind records the name for a symbol index.
func (t *SymbolTable) Bind(idx int32, name string) { t.names[idx] = name }

// Name returns the bound name, or the index itself formatted as a decimal
// string if nothing was bound (e.g. a literal integer argument).
func (t *SymbolTable) Name(idx int32) string {
	if n, ok := t.names[idx]; ok {
		return n
	}
	return fmt.Sprintf("%d", idx)
}

// PlanAction is one activated action instance, its arguments already
// resolved to names.
type PlanAction struct {
	InstanceID int
	Start      int32
	Name       string
	Args       []string
}

// PlanDecomposition is one activated method instance and the child
// instance ids it decomposes into (spec.md §6 "Plan output (hierarchical)").
type PlanDecomposition struct {
	InstanceID int
	TaskName   string
	TaskArgs   []string
	Method     string
	Children   []int
}

// PlanResult is the solved plan handed back across the planio boundary.
// Flat mode populates only Actions; hierarchical mode additionally
// populates Decompositions.
type PlanResult struct {
	Actions        []PlanAction
	Decompositions []PlanDecomposition
}

// WriteFlatPlan formats pr per spec.md §6 "Plan output (flat)": one action
// per line, `SS: (name arg1 … argn)`, sorted by start time, right-aligned
// to width 3.
func WriteFlatPlan(w io.Writer, pr *PlanResult) error {
	actions := append([]PlanAction{}, pr.Actions...)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Start < actions[j].Start })
	for _, a := range actions {
		if _, err := fmt.Fprintf(w, "%3d: (%s)\n", a.Start, actionText(a.Name, a.Args)); err != nil {
			return err
		}
	}
	return nil
}

// WriteHierarchicalPlan formats pr per spec.md §6 "Plan output
// (hierarchical)": a `==>` header, action lines, decomposition lines, and a
// `<==` footer.
func WriteHierarchicalPlan(w io.Writer, pr *PlanResult) error {
	if _, err := fmt.Fprintln(w, "==>"); err != nil {
		return err
	}
	for _, a := range pr.Actions {
		if _, err := fmt.Fprintf(w, "%d (%s)\n", a.InstanceID, actionText(a.Name, a.Args)); err != nil {
			return err
		}
	}
	for _, d := range pr.Decompositions {
		line := fmt.Sprintf("%d (%s) -> (%s)", d.InstanceID, actionText(d.TaskName, d.TaskArgs), d.Method)
		for _, c := range d.Children {
			line += fmt.Sprintf(" %d", c)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "<==")
	return err
}

func actionText(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
