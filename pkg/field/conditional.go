package field

// Combinator joins the results of a field's conditions.
type Combinator string

// Combinators.
const (
	CombineAll Combinator = "all"
	CombineAny Combinator = "any"
)

// Operator compares a referenced answer with a condition's answer.
type Operator string

// Condition operators.
const (
	OpExists       Operator = "exists"
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Known reports whether op is a supported operator.
func (op Operator) Known() bool {
	switch op {
	case OpExists, OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Condition is one clause of a visibility rule.
type Condition struct {
	QuestionID string   `json:"questionId" validate:"required"`
	Operator   Operator `json:"operator" validate:"oneof=exists = != > < >= <="`
	Answer     any      `json:"answer,omitempty"`
}

// Conditional is a field's visibility rule.
type Conditional struct {
	Enabled    bool        `json:"enabled"`
	Operator   Combinator  `json:"operator,omitempty" validate:"omitempty,oneof=all any"`
	Conditions []Condition `json:"conditions,omitempty" validate:"dive"`
}

// Active reports whether the rule should be evaluated at all.
func (c *Conditional) Active() bool {
	return c != nil && c.Enabled && len(c.Conditions) > 0
}

// Combinator returns the effective combinator; anything but "any" means all.
func (c *Conditional) Combinator() Combinator {
	if c != nil && c.Operator == CombineAny {
		return CombineAny
	}
	return CombineAll
}

// References returns the linkIds the rule depends on.
func (c *Conditional) References() []string {
	if c == nil {
		return nil
	}
	refs := make([]string, 0, len(c.Conditions))
	for _, cond := range c.Conditions {
		refs = append(refs, cond.QuestionID)
	}
	return refs
}

// Clone returns a copy of c.
func (c *Conditional) Clone() *Conditional {
	if c == nil {
		return nil
	}
	out := *c
	if c.Conditions != nil {
		out.Conditions = append([]Condition(nil), c.Conditions...)
	}
	return &out
}
