// Package field defines the canonical in-memory model of a configurable form:
// one Config per question, grouped into a Form.
package field

// Type identifies the kind of a field. It decides which validation and
// rendering rules apply.
type Type string

// Field types understood by the engine.
const (
	TypeText       Type = "text"
	TypeTextarea   Type = "textarea"
	TypeDate       Type = "date"
	TypeDateTime   Type = "datetime"
	TypeTime       Type = "time"
	TypeInteger    Type = "integer"
	TypeDecimal    Type = "decimal"
	TypeBoolean    Type = "boolean"
	TypeChoice     Type = "choice"
	TypeOpenChoice Type = "open-choice"
	TypeRadio      Type = "radio"
	TypeCheckbox   Type = "checkbox-group"
	TypeSignature  Type = "signature"
	TypeAttachment Type = "attachment"
	TypeDisplay    Type = "display"
	TypeGroup      Type = "group"
)

var knownTypes = map[Type]struct{}{
	TypeText: {}, TypeTextarea: {}, TypeDate: {}, TypeDateTime: {}, TypeTime: {},
	TypeInteger: {}, TypeDecimal: {}, TypeBoolean: {}, TypeChoice: {}, TypeOpenChoice: {},
	TypeRadio: {}, TypeCheckbox: {}, TypeSignature: {}, TypeAttachment: {},
	TypeDisplay: {}, TypeGroup: {},
}

// Types returns every known field type in palette order.
func Types() []Type {
	return []Type{
		TypeText, TypeTextarea, TypeDate, TypeDateTime, TypeTime, TypeInteger,
		TypeDecimal, TypeBoolean, TypeChoice, TypeOpenChoice, TypeRadio, TypeCheckbox,
		TypeSignature, TypeAttachment, TypeDisplay, TypeGroup,
	}
}

// Known reports whether t is one of the engine's field types.
func (t Type) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Normalize returns t, or TypeText when t is unknown.
func (t Type) Normalize() Type {
	if t.Known() {
		return t
	}
	return TypeText
}

// AcceptsOptions reports whether the field is configured with an option list.
func (t Type) AcceptsOptions() bool {
	switch t {
	case TypeChoice, TypeOpenChoice, TypeRadio, TypeCheckbox:
		return true
	}
	return false
}

// IsClosedChoice reports whether answers must come from the option list.
func (t Type) IsClosedChoice() bool {
	switch t {
	case TypeChoice, TypeRadio, TypeCheckbox:
		return true
	}
	return false
}

// IsContainer reports whether the field only holds other fields.
func (t Type) IsContainer() bool {
	return t == TypeGroup
}

// CarriesAnswer reports whether the field collects a value at all.
func (t Type) CarriesAnswer() bool {
	t = t.Normalize()
	return t != TypeDisplay && t != TypeGroup
}

// IsStringType reports whether length bounds apply.
func (t Type) IsStringType() bool {
	t = t.Normalize()
	return t == TypeText || t == TypeTextarea
}

// IsNumericType reports whether numeric bounds apply.
func (t Type) IsNumericType() bool {
	return t == TypeInteger || t == TypeDecimal
}

// IsRepeatable reports whether repeats=true means anything for the type.
func (t Type) IsRepeatable() bool {
	return t.AcceptsOptions() || t == TypeAttachment
}
