package planio

import "fmt"

// ValidatePlan re-checks a produced PlanResult's structural consistency
// before it is printed: a diagnostic sanity pass, not an invariant, so it
// returns an error rather than panicking (spec.md §5 supplement,
// originally the CLI binary's pre-print validation pass).
//
// This is a structural cross-check over the plan the encoder already
// proved consistent at the clause level (every instance id is unique,
// every decomposition references children that exist and are each claimed
// by exactly one parent) — it is not a re-derivation of causal support or
// mutex freedom, which the SAT+STN solve already established.
func ValidatePlan(pr *PlanResult) error {
	seen := map[int]bool{}
	for _, a := range pr.Actions {
		if seen[a.InstanceID] {
			return fmt.Errorf("planio: duplicate action instance id %d", a.InstanceID)
		}
		seen[a.InstanceID] = true
	}
	for _, d := range pr.Decompositions {
		if seen[d.InstanceID] {
			return fmt.Errorf("planio: duplicate instance id %d", d.InstanceID)
		}
		seen[d.InstanceID] = true
	}

	claimedBy := map[int]int{}
	for _, d := range pr.Decompositions {
		for _, child := range d.Children {
			if !seen[child] {
				return fmt.Errorf("planio: decomposition %d references unknown child instance %d", d.InstanceID, child)
			}
			if owner, ok := claimedBy[child]; ok {
				return fmt.Errorf("planio: instance %d claimed by both %d and %d", child, owner, d.InstanceID)
			}
			claimedBy[child] = d.InstanceID
		}
	}

	for _, a := range pr.Actions {
		if a.Start < 0 {
			return fmt.Errorf("planio: action %d has negative start time %d", a.InstanceID, a.Start)
		}
	}
	return nil
}
