package models

// ExprKind is the kind of a node in a compiled expression tree.
type ExprKind string

const (
	ExprAnd       ExprKind = "AND"
	ExprOr        ExprKind = "OR"
	ExprCondition ExprKind = "CONDITION"
	ExprBranch    ExprKind = "BRANCH"
)

// Operator compares a resolved context field against a rule value.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpContains     Operator = "contains"
	OpMatches      Operator = "matches"
)

// Operators lists every supported condition operator.
var Operators = []Operator{
	OpEqual, OpNotEqual,
	OpGreater, OpLess, OpGreaterEqual, OpLessEqual,
	OpIn, OpNotIn, OpContains, OpMatches,
}

// IsValid reports whether the operator is supported.
func (o Operator) IsValid() bool {
	for _, op := range Operators {
		if op == o {
			return true
		}
	}

	return false
}

// Condition is a single field/operator/value predicate. Negate inverts the
// evaluated result; the compiler sets it on the guard of a false branch so
// that a condition that fails (including on missing context data) routes
// down the false path.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value"`
	Negate   bool     `json:"negate,omitempty"`
}

// ExprNode is one node of a compiled expression tree. Exactly one of the
// kind-specific fields is populated:
//
//   - CONDITION carries Condition
//   - AND / OR carry Children
//   - BRANCH carries Actions, the ordered side effects of a terminal path
type ExprNode struct {
	Kind      ExprKind    `json:"kind"`
	Condition *Condition  `json:"condition,omitempty"`
	Children  []*ExprNode `json:"children,omitempty"`
	Actions   []Action    `json:"actions,omitempty"`
}

// Expression is the compiled, executable form of a workflow graph.
// It is immutable once compiled and stamped with the workflow version it
// was derived from, so stale copies are detectable wherever they surface.
type Expression struct {
	Version int       `json:"version"`
	Root    *ExprNode `json:"root"`
}
