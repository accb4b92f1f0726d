package field

import (
	"sort"

	"github.com/goccy/go-json"
)

// Option is one entry of a choice-like field.
type Option struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label"`
}

// Validation is the optional constraint bag of a field.
// Nil bounds are unconstrained.
type Validation struct {
	Required        bool             `json:"required,omitempty"`
	MinLength       *int             `json:"minLength,omitempty" validate:"omitempty,gte=0"`
	MaxLength       *int             `json:"maxLength,omitempty" validate:"omitempty,gte=0"`
	Min             *float64         `json:"min,omitempty"`
	Max             *float64         `json:"max,omitempty"`
	Pattern         string           `json:"pattern,omitempty"`
	PatternMessage  string           `json:"patternMessage,omitempty"`
	CustomValidator *CustomValidator `json:"customValidator,omitempty"`
}

// Clone returns a deep copy of v.
func (v *Validation) Clone() *Validation {
	if v == nil {
		return nil
	}
	out := *v
	out.MinLength = cloneInt(v.MinLength)
	out.MaxLength = cloneInt(v.MaxLength)
	out.Min = cloneFloat(v.Min)
	out.Max = cloneFloat(v.Max)
	out.CustomValidator = v.CustomValidator.Clone()
	return &out
}

// PatientBinding configures pre-filling a field from the patient record.
type PatientBinding struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
}

// Config is one configurable question.
type Config struct {
	ID             string          `json:"id"`
	LinkID         string          `json:"linkId" validate:"required"`
	Type           Type            `json:"type" validate:"fieldtype"`
	Label          string          `json:"label,omitempty"`
	Text           string          `json:"text,omitempty"`
	SecondaryLabel string          `json:"secondaryLabel,omitempty"`
	Required       bool            `json:"required,omitempty"`
	ReadOnly       bool            `json:"readOnly,omitempty"`
	Repeats        bool            `json:"repeats,omitempty"`
	DefaultValue   any             `json:"defaultValue,omitempty"`
	Validation     *Validation     `json:"validation,omitempty"`
	Options        []Option        `json:"options,omitempty" validate:"dive"`
	HasTextInput   bool            `json:"hasTextInput,omitempty"`
	Conditional    *Conditional    `json:"conditional,omitempty"`
	Styling        map[string]any  `json:"styling,omitempty"`
	PatientBinding *PatientBinding `json:"patientBinding,omitempty"`
	Order          *int            `json:"order,omitempty"`
	Items          []Config        `json:"items,omitempty" validate:"dive"`

	// UnknownExtensions carries Questionnaire extensions the converter did not
	// recognise, so they are written back unchanged.
	UnknownExtensions []json.RawMessage `json:"unknownExtensions,omitempty"`
}

// EffectiveRequired reports whether an answer is mandatory, from either the
// field flag or its validation bag.
func (c *Config) EffectiveRequired() bool {
	if c.Required {
		return true
	}
	return c.Validation != nil && c.Validation.Required
}

// Clone returns a deep copy of c. Styling and default values are copied one
// level deep; they hold JSON scalars in practice.
func (c *Config) Clone() Config {
	out := *c
	out.Validation = c.Validation.Clone()
	out.Conditional = c.Conditional.Clone()
	out.Order = cloneInt(c.Order)
	if c.Options != nil {
		out.Options = append([]Option(nil), c.Options...)
	}
	if c.Styling != nil {
		out.Styling = cloneMap(c.Styling)
	}
	if c.PatientBinding != nil {
		pb := *c.PatientBinding
		out.PatientBinding = &pb
	}
	if c.Items != nil {
		out.Items = CloneAll(c.Items)
	}
	out.UnknownExtensions = cloneRawList(c.UnknownExtensions)
	return out
}

// CloneAll deep-copies a field list.
func CloneAll(fields []Config) []Config {
	if fields == nil {
		return nil
	}
	out := make([]Config, len(fields))
	for i := range fields {
		out[i] = fields[i].Clone()
	}
	return out
}

// Walk visits every field depth-first, children after their group.
// parent is nil for top-level fields.
func Walk(fields []Config, fn func(f *Config, parent *Config)) {
	walk(fields, nil, fn)
}

func walk(fields []Config, parent *Config, fn func(f *Config, parent *Config)) {
	for i := range fields {
		f := &fields[i]
		fn(f, parent)
		if len(f.Items) > 0 {
			walk(f.Items, f, fn)
		}
	}
}

// Flatten returns pointers to every field, depth-first.
func Flatten(fields []Config) []*Config {
	var out []*Config
	Walk(fields, func(f *Config, _ *Config) {
		out = append(out, f)
	})
	return out
}

// IndexByLinkID maps linkId to field. Later duplicates win.
func IndexByLinkID(fields []Config) map[string]*Config {
	idx := make(map[string]*Config)
	Walk(fields, func(f *Config, _ *Config) {
		idx[f.LinkID] = f
	})
	return idx
}

// SortByOrder orders fields, and the children of every group, by their
// explicit order. A field without one sorts as if its order were its array
// position; ties keep array position.
func SortByOrder(fields []Config) {
	type keyed struct {
		key int
		f   Config
	}
	tmp := make([]keyed, len(fields))
	for i := range fields {
		k := i
		if fields[i].Order != nil {
			k = *fields[i].Order
		}
		tmp[i] = keyed{key: k, f: fields[i]}
	}
	sort.SliceStable(tmp, func(i, j int) bool { return tmp[i].key < tmp[j].key })
	for i := range tmp {
		fields[i] = tmp[i].f
		SortByOrder(fields[i].Items)
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneRawList(list []json.RawMessage) []json.RawMessage {
	if list == nil {
		return nil
	}
	out := make([]json.RawMessage, len(list))
	for i, raw := range list {
		out[i] = append(json.RawMessage(nil), raw...)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
