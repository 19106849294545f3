package chronicles

import "github.com/cortexplan/lcp/internal/domain"

// SupportScore returns, for each chronicle's presence variable, a count of
// how many of that chronicle's conditions are already causally supported by
// some other chronicle currently entailed present: the heuristic the
// forward-search brancher ranks candidates by (spec.md §4.9 "prefers actions
// whose enabling conditions are already supported"). The count is computed
// once, against the root-level store, rather than recomputed on every
// decision: cheap enough to matter for a brancher meant to stay simple, at
// the cost of not reacting to support gained mid-search.
func SupportScore(store *domain.Store, cs []Chronicle) func(domain.VarID) int {
	scores := map[domain.VarID]int{}
	for _, c := range cs {
		n := 0
		for _, cond := range c.Conditions {
		others:
			for _, other := range cs {
				if !store.Entails(other.Presence) {
					continue
				}
				for _, eff := range other.Effects {
					if stateVarsUnifiable(store, cond.StateVar, eff.StateVar) && unifiable(store, cond.Value, eff.Value) {
						n++
						break others
					}
				}
			}
		}
		scores[c.Presence.Var] = n
	}
	return func(v domain.VarID) int { return scores[v] }
}
