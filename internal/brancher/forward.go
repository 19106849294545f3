package brancher

import "github.com/cortexplan/lcp/internal/domain"

// SupportScore reports how many of a candidate variable's causal
// prerequisites are already entailed true, higher meaning more support.
// The chronicle encoder supplies one of these per search variable (spec.md
// §4.9 "forward-search brancher").
type SupportScore func(v domain.VarID) int

// ForwardSearch is the second portfolio brancher (spec.md §5): rather than
// ranking by learned activity, it always tries the still-unassigned subtask
// or action variable whose preconditions are already causally supported,
// breaking ties by declaration order. It is deliberately simple — no heap,
// no activity bookkeeping — because it exists to diversify the portfolio's
// search order, not to replace VSIDS.
type ForwardSearch struct {
	store   *domain.Store
	vars    []domain.VarID
	support SupportScore
	value   ValueHeuristic
}

// NewForwardSearch returns a forward-search brancher over vars, scored by
// support.
func NewForwardSearch(store *domain.Store, vars []domain.VarID, support SupportScore, value ValueHeuristic) *ForwardSearch {
	if value == nil {
		value = PreferMinValue
	}
	return &ForwardSearch{
		store:   store,
		vars:    append([]domain.VarID{}, vars...),
		support: support,
		value:   value,
	}
}

// Next scans for the unassigned variable with the highest support score,
// breaking ties by the order vars was given in.
func (f *ForwardSearch) Next() (domain.Literal, bool) {
	best := -1
	bestScore := -1
	for i, v := range f.vars {
		if f.store.Entails(domain.Leq(v, 0)) || f.store.Entails(domain.Geq(v, 1)) {
			continue
		}
		if s := f.support(v); s > bestScore {
			bestScore = s
			best = i
		}
	}
	if best < 0 {
		return domain.Literal{}, false
	}
	v := f.vars[best]
	if f.value(v, false) {
		return domain.Geq(v, 1), true
	}
	return domain.Leq(v, 0), true
}
