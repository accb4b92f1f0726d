// Package schema builds per-linkId validation rules from field
// configuration and checks answer sets against them.
package schema

import (
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/primitive"
	"github.com/gofhir/forms/pkg/rules"
)

// MsgRequired is reported for a required field without an answer.
const MsgRequired = "This field is required"

// Source marks issues raised by schema validation.
const Source = "schema"

// check is one step of a rule. It sees a single non-empty value.
type check struct {
	name string
	fn   func(value any) rules.Result
}

// Rule validates the answer of one field.
type Rule struct {
	LinkID   string
	Type     field.Type
	Format   primitive.Format
	Required bool
	Repeats  bool

	checks []check
}

// Steps lists the names of the checks in evaluation order.
func (r *Rule) Steps() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.name
	}
	return names
}

// Check validates value. Empty values pass unless the field is required;
// list values are checked element by element and the first failure wins.
func (r *Rule) Check(value any) rules.Result {
	if primitive.IsEmpty(value) {
		if r.Required {
			return rules.Fail(MsgRequired)
		}
		return rules.OK
	}

	if list, ok := asList(value); ok {
		present := 0
		for _, item := range list {
			if primitive.IsEmpty(item) {
				continue
			}
			present++
			if res := r.checkOne(item); !res.IsValid {
				return res
			}
		}
		if present == 0 && r.Required {
			return rules.Fail(MsgRequired)
		}
		return rules.OK
	}

	return r.checkOne(value)
}

func (r *Rule) checkOne(value any) rules.Result {
	for _, c := range r.checks {
		if res := c.fn(value); !res.IsValid {
			return res
		}
	}
	return rules.OK
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Schema is the composite validation schema of a form.
type Schema struct {
	rules       map[string]*Rule
	order       []string
	diagnostics *issue.Result
}

func newSchema() *Schema {
	return &Schema{
		rules:       make(map[string]*Rule),
		diagnostics: issue.NewResult(),
	}
}

func (s *Schema) add(r *Rule) {
	if _, exists := s.rules[r.LinkID]; !exists {
		s.order = append(s.order, r.LinkID)
	}
	s.rules[r.LinkID] = r
}

// Rule returns the rule for linkID.
func (s *Schema) Rule(linkID string) (*Rule, bool) {
	r, ok := s.rules[linkID]
	return r, ok
}

// LinkIDs returns the validated linkIds in field order.
func (s *Schema) LinkIDs() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of rules.
func (s *Schema) Len() int {
	return len(s.order)
}

// Diagnostics returns the configuration problems skipped while building the schema.
func (s *Schema) Diagnostics() *issue.Result {
	return s.diagnostics
}

// ValidateField checks one answer. Unknown linkIds carry no rule and pass.
func (s *Schema) ValidateField(linkID string, value any) rules.Result {
	r, ok := s.rules[linkID]
	if !ok {
		return rules.OK
	}
	return r.Check(value)
}

// Validate checks every visible field. A nil visible func treats all fields
// as visible; answers without a rule are ignored.
func (s *Schema) Validate(answers map[string]any, visible func(linkID string) bool) *issue.Result {
	result := issue.NewResult()
	for _, linkID := range s.order {
		if visible != nil && !visible(linkID) {
			continue
		}
		r := s.rules[linkID]
		res := r.Check(answers[linkID])
		if res.IsValid {
			continue
		}
		id := issue.DiagAnswerInvalid
		if res.Error == MsgRequired {
			id = issue.DiagAnswerRequired
		}
		result.AddWithID(id, map[string]any{"message": res.Error}, linkID)
		result.Issues[len(result.Issues)-1].Source = Source
	}
	return result
}

// Errors maps each failing visible field to its first error message.
func (s *Schema) Errors(answers map[string]any, visible func(linkID string) bool) map[string]string {
	return s.Validate(answers, visible).FirstByExpression()
}
