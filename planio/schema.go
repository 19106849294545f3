// Package planio is the domain stack's I/O boundary (spec.md §6): it loads
// a FiniteProblem from its JSON wire form, and formats a solved PlanResult
// back out as a flat or hierarchical plan. PDDL/HDDL parsing and chronicle
// preprocessing upstream of this JSON form are out of scope (spec.md §1).
package planio

// ProblemFile is the on-disk JSON schema for a grounded FiniteProblem: an
// already-compiled PDDL/HDDL instance, not raw PDDL/HDDL source.
type ProblemFile struct {
	Horizon int32             `json:"horizon"`
	Tables  []TableSpec       `json:"tables,omitempty"`
	Problem ChronicleSpec     `json:"problem"`
	Templates []TemplateSpec  `json:"templates,omitempty"`
}

// TableSpec is the wire form of an InTable relation.
type TableSpec struct {
	Name string    `json:"name"`
	Rows [][]int32 `json:"rows"`
}

// AtomSpec references an atom either by a named parameter (resolved against
// the enclosing chronicle/template's parameter list) or as a literal
// integer constant.
type AtomSpec struct {
	Param string `json:"param,omitempty"`
	Const *int32 `json:"const,omitempty"`
}

// ConditionSpec is the wire form of chronicles.Condition.
type ConditionSpec struct {
	StateVar []AtomSpec `json:"state_var"`
	Value    AtomSpec   `json:"value"`
	Start    AtomSpec   `json:"start"`
	End      AtomSpec   `json:"end"`
}

// EffectSpec is the wire form of chronicles.Effect.
type EffectSpec struct {
	StateVar         []AtomSpec `json:"state_var"`
	Value            AtomSpec   `json:"value"`
	TransitionStart  AtomSpec   `json:"transition_start"`
	PersistenceStart AtomSpec   `json:"persistence_start"`
}

// SubtaskSpec is the wire form of chronicles.Subtask.
type SubtaskSpec struct {
	Task  []AtomSpec `json:"task"`
	Start AtomSpec   `json:"start"`
	End   AtomSpec   `json:"end"`
}

// ConstraintSpec is the wire form of chronicles.Constraint.
type ConstraintSpec struct {
	Kind      string           `json:"kind"` // lt|leq|eq|neq|in_table|or|duration|linear_eq
	A, B      AtomSpec         `json:"a,omitempty"`
	MinDur    int32            `json:"min_dur,omitempty"`
	MaxDur    int32            `json:"max_dur,omitempty"`
	Table     string           `json:"table,omitempty"`
	Columns   []AtomSpec       `json:"columns,omitempty"`
	Or        []ConstraintSpec `json:"or,omitempty"`
	Terms     []TermSpec       `json:"terms,omitempty"`
}

// TermSpec is the wire form of expr.LinearTerm.
type TermSpec struct {
	Coeff int32  `json:"coeff"`
	Var   string `json:"var"`
}

// ChronicleSpec is the wire form of a chronicle instance or template body:
// every parameter it introduces is listed in Params, and every atom
// reference elsewhere in the spec names one of them (or a literal const).
type ChronicleSpec struct {
	Kind        string           `json:"kind"` // problem|method|action|durative_action
	Params      []ParamSpec      `json:"params,omitempty"`
	Name        []AtomSpec       `json:"name,omitempty"`
	Task        []AtomSpec       `json:"task,omitempty"`
	Conditions  []ConditionSpec  `json:"conditions,omitempty"`
	Effects     []EffectSpec     `json:"effects,omitempty"`
	Subtasks    []SubtaskSpec    `json:"subtasks,omitempty"`
	Constraints []ConstraintSpec `json:"constraints,omitempty"`
}

// ParamSpec declares one template parameter's symbol domain.
type ParamSpec struct {
	Name string `json:"name"`
	Lb   int32  `json:"lb"`
	Ub   int32  `json:"ub"`
}

// TemplateSpec is the wire form of chronicles.Template.
type TemplateSpec struct {
	Name         string        `json:"name"`
	Body         ChronicleSpec `json:"body"`
	MaxInstances int           `json:"max_instances"`
	IsAction     bool          `json:"is_action"`
}
