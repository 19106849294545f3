package planio

import (
	"github.com/cortexplan/lcp/internal/chronicles"
	"github.com/cortexplan/lcp/internal/domain"
)

// ExtractPlan reads every chronicle instance entailed present out of store
// into a PlanResult (spec.md §6 "Plan output"): chronicles with no subtasks
// become PlanActions, chronicles with subtasks become PlanDecompositions
// whose Children are the active chronicles refining them (identified by
// chronicles.Chronicle.RefinesInstanceID, spec.md §4.8 "Hierarchical
// decomposition").
func ExtractPlan(store *domain.Store, symtab *SymbolTable, cs []chronicles.Chronicle) *PlanResult {
	active := make(map[int]bool, len(cs))
	for _, c := range cs {
		if v, known := store.ValueOf(c.Presence); known && v {
			active[c.InstanceID] = true
		}
	}

	pr := &PlanResult{}
	for _, c := range cs {
		if c.Kind == chronicles.KindProblem || !active[c.InstanceID] {
			continue
		}
		if len(c.Subtasks) == 0 {
			start, _ := store.Bounds(c.Start)
			name, args := resolveNameArgs(store, symtab, c.Name)
			pr.Actions = append(pr.Actions, PlanAction{InstanceID: c.InstanceID, Start: start, Name: name, Args: args})
			continue
		}

		taskName, taskArgs := resolveNameArgs(store, symtab, c.Task)
		var children []int
		for _, other := range cs {
			if active[other.InstanceID] && other.RefinesInstanceID == c.InstanceID {
				children = append(children, other.InstanceID)
			}
		}
		pr.Decompositions = append(pr.Decompositions, PlanDecomposition{
			InstanceID: c.InstanceID,
			TaskName:   taskName,
			TaskArgs:   taskArgs,
			Method:     c.TemplateName,
			Children:   children,
		})
	}
	return pr
}

func resolveNameArgs(store *domain.Store, symtab *SymbolTable, atoms []domain.VarID) (string, []string) {
	if len(atoms) == 0 {
		return "", nil
	}
	lb, _ := store.Bounds(atoms[0])
	name := symtab.Name(lb)
	args := make([]string, 0, len(atoms)-1)
	for _, a := range atoms[1:] {
		alb, _ := store.Bounds(a)
		args = append(args, symtab.Name(alb))
	}
	return name, args
}
