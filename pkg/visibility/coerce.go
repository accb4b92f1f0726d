package visibility

import (
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/primitive"
)

// Kind is the comparison domain a value was coerced into.
type Kind int

// Coercion kinds, in the order they are tried.
const (
	KindNumber Kind = iota
	KindBool
	KindString
)

// Value is a scalar after coercion.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
}

// Coerce applies the comparison policy to one scalar: a JSON number or a
// string that parses as a number is numeric; otherwise a Go bool or the
// literals "true"/"false" is boolean; anything else compares as text.
func Coerce(v any) Value {
	if n, ok := primitive.AsNumber(v); ok {
		return Value{Kind: KindNumber, Num: n}
	}
	if b, ok := primitive.AsBool(v); ok {
		return Value{Kind: KindBool, Bool: b}
	}
	s, _ := primitive.AsString(v)
	return Value{Kind: KindString, Str: s}
}

// Equal compares two coerced values. Values of different kinds are
// compared through their text form, so "5" equals 5 and "abc" never
// equals a number.
func Equal(a, b Value) bool {
	if a.Kind == b.Kind {
		switch a.Kind {
		case KindNumber:
			return a.Num == b.Num
		case KindBool:
			return a.Bool == b.Bool
		default:
			return a.Str == b.Str
		}
	}
	return a.text() == b.text()
}

func (v Value) text() string {
	switch v.Kind {
	case KindNumber:
		s, _ := primitive.AsString(v.Num)
		return s
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return v.Str
	}
}

// Compare evaluates one condition operator. actual is the referenced
// answer, already nil when the question is unanswered or hidden.
//
// exists is true for any non-empty answer. The other operators are false
// for a missing answer or a missing expected value. List answers satisfy
// "=" when any element matches and "!=" when none does; ordering
// operators never hold for lists. Ordering needs both sides numeric.
func Compare(op field.Operator, actual, expected any) bool {
	if op == field.OpExists {
		return !primitive.IsEmpty(actual)
	}
	if primitive.IsEmpty(actual) || expected == nil {
		return false
	}

	want := Coerce(expected)
	if list, ok := actual.([]any); ok {
		switch op {
		case field.OpEqual:
			return anyEqual(list, want)
		case field.OpNotEqual:
			return !anyEqual(list, want)
		default:
			return false
		}
	}

	got := Coerce(actual)
	switch op {
	case field.OpEqual:
		return Equal(got, want)
	case field.OpNotEqual:
		return !Equal(got, want)
	}

	if got.Kind != KindNumber || want.Kind != KindNumber {
		return false
	}
	switch op {
	case field.OpGreater:
		return got.Num > want.Num
	case field.OpLess:
		return got.Num < want.Num
	case field.OpGreaterEqual:
		return got.Num >= want.Num
	case field.OpLessEqual:
		return got.Num <= want.Num
	}
	return false
}

func anyEqual(list []any, want Value) bool {
	for _, item := range list {
		if Equal(Coerce(item), want) {
			return true
		}
	}
	return false
}
