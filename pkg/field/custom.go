package field

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// ValidatorKind names a rule from the validator library.
type ValidatorKind string

// Custom validator kinds.
const (
	ValidatorGeorgianID ValidatorKind = "georgian-id"
	ValidatorEmail      ValidatorKind = "email"
	ValidatorPhone      ValidatorKind = "phone"
	ValidatorURL        ValidatorKind = "url"
	ValidatorPastDate   ValidatorKind = "past-date"
	ValidatorDateRange  ValidatorKind = "date-range"
	ValidatorExpression ValidatorKind = "expression"

	// ValidatorInvalid marks configuration that could not be understood.
	// The raw payload is kept so it survives a save.
	ValidatorInvalid ValidatorKind = "invalid"
)

var knownValidators = map[ValidatorKind]struct{}{
	ValidatorGeorgianID: {}, ValidatorEmail: {}, ValidatorPhone: {}, ValidatorURL: {},
	ValidatorPastDate: {}, ValidatorDateRange: {}, ValidatorExpression: {},
}

// CustomValidator is the parsed form of a field's customValidator setting.
//
// On the wire it is either a bare name ("email") or an object carrying the
// name and the parameters of that kind:
//
//	{"name": "date-range", "allowFuture": true, "maxAgeYears": 100}
//	{"name": "expression", "expression": "value.length() > 3", "message": "Too short"}
type CustomValidator struct {
	Kind ValidatorKind

	// date-range
	AllowFuture bool
	MaxAgeYears int

	// expression
	Expression string
	Message    string

	// Raw holds the original payload when Kind is ValidatorInvalid.
	Raw json.RawMessage
	// Reason explains why the payload was rejected.
	Reason string
}

type customValidatorWire struct {
	Name        string `json:"name"`
	AllowFuture *bool  `json:"allowFuture,omitempty"`
	MaxAgeYears *int   `json:"maxAgeYears,omitempty"`
	Expression  string `json:"expression,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Named returns a parameterless validator of the given kind.
func Named(kind ValidatorKind) *CustomValidator {
	return &CustomValidator{Kind: kind}
}

// Valid reports whether the validator was understood.
func (c *CustomValidator) Valid() bool {
	return c != nil && c.Kind != ValidatorInvalid && c.Kind != ""
}

// ParseCustomValidator parses a customValidator payload. It never fails:
// anything it cannot interpret comes back with Kind ValidatorInvalid.
func ParseCustomValidator(data []byte) *CustomValidator {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	invalid := func(reason string) *CustomValidator {
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		return &CustomValidator{Kind: ValidatorInvalid, Raw: raw, Reason: reason}
	}

	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return invalid(err.Error())
		}
		if strings.TrimSpace(name) == "" {
			return nil
		}
		return fromName(strings.TrimSpace(name), customValidatorWire{}, invalid)
	}

	var w customValidatorWire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return invalid(err.Error())
	}
	return fromName(strings.TrimSpace(w.Name), w, invalid)
}

func fromName(name string, w customValidatorWire, invalid func(string) *CustomValidator) *CustomValidator {
	kind := ValidatorKind(name)
	if _, ok := knownValidators[kind]; !ok {
		return invalid("unknown validator '" + name + "'")
	}

	c := &CustomValidator{Kind: kind}
	switch kind {
	case ValidatorDateRange:
		c.MaxAgeYears = 120
		if w.AllowFuture != nil {
			c.AllowFuture = *w.AllowFuture
		}
		if w.MaxAgeYears != nil {
			if *w.MaxAgeYears <= 0 {
				return invalid("maxAgeYears must be positive")
			}
			c.MaxAgeYears = *w.MaxAgeYears
		}
	case ValidatorExpression:
		if strings.TrimSpace(w.Expression) == "" {
			return invalid("expression validator without expression")
		}
		c.Expression = w.Expression
		c.Message = w.Message
	}
	return c
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error so a
// bad validator setting cannot prevent the rest of the form from loading.
func (c *CustomValidator) UnmarshalJSON(data []byte) error {
	parsed := ParseCustomValidator(data)
	if parsed == nil {
		*c = CustomValidator{}
		return nil
	}
	*c = *parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c CustomValidator) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ValidatorInvalid:
		if len(c.Raw) > 0 {
			return c.Raw, nil
		}
		return []byte("null"), nil
	case ValidatorDateRange:
		allow := c.AllowFuture
		maxAge := c.MaxAgeYears
		return json.Marshal(customValidatorWire{Name: string(c.Kind), AllowFuture: &allow, MaxAgeYears: &maxAge})
	case ValidatorExpression:
		return json.Marshal(customValidatorWire{Name: string(c.Kind), Expression: c.Expression, Message: c.Message})
	default:
		return json.Marshal(string(c.Kind))
	}
}

// Clone returns a copy of c.
func (c *CustomValidator) Clone() *CustomValidator {
	if c == nil {
		return nil
	}
	out := *c
	if c.Raw != nil {
		out.Raw = append(json.RawMessage(nil), c.Raw...)
	}
	return &out
}
