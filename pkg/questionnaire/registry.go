// Package questionnaire converts forms to and from FHIR R4 Questionnaire
// resources. Builder settings FHIR has no slot for travel in extensions
// whose URIs come from an injected Registry.
package questionnaire

import "strings"

// Default extension namespace.
const (
	DefaultBase    = "http://gofhir.io/fhir/StructureDefinition/forms"
	DefaultVersion = "v1"
)

// Standard HL7 extensions and code systems.
const (
	URIMinLength   = "http://hl7.org/fhir/StructureDefinition/minLength"
	URIMinValue    = "http://hl7.org/fhir/StructureDefinition/minValue"
	URIMaxValue    = "http://hl7.org/fhir/StructureDefinition/maxValue"
	URIRegex       = "http://hl7.org/fhir/StructureDefinition/regex"
	URIItemControl = "http://hl7.org/fhir/StructureDefinition/questionnaire-itemControl"

	SystemItemControl = "http://hl7.org/fhir/questionnaire-item-control"
)

// Item control codes.
const (
	ControlRadio    = "radio-button"
	ControlCheckbox = "check-box"
)

// Registry is the table of extension URIs shared by both conversion
// directions. Changing a URI breaks documents already stored with it.
type Registry struct {
	Base    string
	Version string

	FieldType       string
	HelpText        string
	SecondaryLabel  string
	Styling         string
	PatientBinding  string
	Order           string
	HasTextInput    string
	PatternMessage  string
	CustomValidator string
	Conditional     string
	FormStyling     string

	// OptionSystem is the coding system of answerOption codings.
	OptionSystem string

	MinLength   string
	MinValue    string
	MaxValue    string
	Regex       string
	ItemControl string
}

// NewRegistry builds the URI table under base and version, for example
// {base}/{version}/field-styling.
func NewRegistry(base, version string) *Registry {
	base = strings.TrimRight(base, "/")
	uri := func(name string) string {
		return base + "/" + version + "/" + name
	}
	return &Registry{
		Base:            base,
		Version:         version,
		FieldType:       uri("field-type"),
		HelpText:        uri("help-text"),
		SecondaryLabel:  uri("secondary-label"),
		Styling:         uri("field-styling"),
		PatientBinding:  uri("patient-binding"),
		Order:           uri("field-order"),
		HasTextInput:    uri("has-text-input"),
		PatternMessage:  uri("pattern-message"),
		CustomValidator: uri("custom-validator"),
		Conditional:     uri("conditional-logic"),
		FormStyling:     uri("form-styling"),
		OptionSystem:    uri("answer-option"),
		MinLength:       URIMinLength,
		MinValue:        URIMinValue,
		MaxValue:        URIMaxValue,
		Regex:           URIRegex,
		ItemControl:     URIItemControl,
	}
}

// DefaultRegistry returns the registry for DefaultBase and DefaultVersion.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultBase, DefaultVersion)
}

// URIs returns every extension URI keyed by its role.
func (r *Registry) URIs() map[string]string {
	return map[string]string{
		"fieldType":       r.FieldType,
		"helpText":        r.HelpText,
		"secondaryLabel":  r.SecondaryLabel,
		"styling":         r.Styling,
		"patientBinding":  r.PatientBinding,
		"order":           r.Order,
		"hasTextInput":    r.HasTextInput,
		"patternMessage":  r.PatternMessage,
		"customValidator": r.CustomValidator,
		"conditional":     r.Conditional,
		"formStyling":     r.FormStyling,
		"minLength":       r.MinLength,
		"minValue":        r.MinValue,
		"maxValue":        r.MaxValue,
		"regex":           r.Regex,
		"itemControl":     r.ItemControl,
	}
}

// Known reports whether url is one the converter reads.
func (r *Registry) Known(url string) bool {
	for _, u := range r.URIs() {
		if u == url {
			return true
		}
	}
	return false
}
