package questionnaire

import (
	"errors"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/logger"
)

// ErrNilQuestionnaire is returned when a nil resource is converted.
var ErrNilQuestionnaire = errors.New("questionnaire: nil resource")

// ErrNilForm is returned when a nil form is converted.
var ErrNilForm = errors.New("questionnaire: nil form")

// Source marks issues raised by the converter.
const Source = "questionnaire"

// formLinkID names the Questionnaire itself in logs and conversion issues.
const formLinkID = "form"

// Converter maps forms to Questionnaires and back.
type Converter struct {
	reg *Registry
	log *logger.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for unreadable extensions.
func WithLogger(l *logger.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// NewConverter creates a Converter over reg. A nil registry means DefaultRegistry.
func NewConverter(reg *Registry, opts ...Option) *Converter {
	if reg == nil {
		reg = DefaultRegistry()
	}
	c := &Converter{reg: reg, log: logger.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the extension URI table in use.
func (c *Converter) Registry() *Registry {
	return c.reg
}

// itemTypes maps builder kinds to Questionnaire item types.
var itemTypes = map[field.Type]string{
	field.TypeText:       "string",
	field.TypeTextarea:   "text",
	field.TypeDate:       "date",
	field.TypeDateTime:   "dateTime",
	field.TypeTime:       "time",
	field.TypeInteger:    "integer",
	field.TypeDecimal:    "decimal",
	field.TypeBoolean:    "boolean",
	field.TypeChoice:     "choice",
	field.TypeRadio:      "choice",
	field.TypeCheckbox:   "choice",
	field.TypeOpenChoice: "open-choice",
	field.TypeSignature:  "attachment",
	field.TypeAttachment: "attachment",
	field.TypeDisplay:    "display",
	field.TypeGroup:      "group",
}

// fieldTypes maps Questionnaire item types back when no field-type extension is present.
var fieldTypes = map[string]field.Type{
	"string":      field.TypeText,
	"text":        field.TypeTextarea,
	"date":        field.TypeDate,
	"dateTime":    field.TypeDateTime,
	"time":        field.TypeTime,
	"integer":     field.TypeInteger,
	"decimal":     field.TypeDecimal,
	"boolean":     field.TypeBoolean,
	"choice":      field.TypeChoice,
	"open-choice": field.TypeOpenChoice,
	"attachment":  field.TypeAttachment,
	"display":     field.TypeDisplay,
	"group":       field.TypeGroup,
}

// ItemType returns the Questionnaire item type for t. Unknown kinds map to "string".
func ItemType(t field.Type) string {
	if it, ok := itemTypes[t]; ok {
		return it
	}
	return "string"
}

// ToQuestionnaire serializes form.
func (c *Converter) ToQuestionnaire(form *field.Form) (*r4.Questionnaire, error) {
	if form == nil {
		return nil, ErrNilForm
	}

	q := &r4.Questionnaire{
		Id:          optString(form.ID),
		Title:       optString(form.Title),
		Description: optString(form.Description),
	}
	status := form.Status
	if status == "" {
		status = field.StatusDraft
	}
	ps := r4.PublicationStatus(status)
	q.Status = &ps

	if len(form.FormStyling) > 0 {
		if ext, ok := c.jsonExtension(c.reg.FormStyling, form.FormStyling, formLinkID); ok {
			q.Extension = append(q.Extension, ext)
		}
	}
	q.Extension = append(q.Extension, c.passThrough(form.UnknownExtensions, formLinkID)...)

	q.Item = make([]r4.QuestionnaireItem, 0, len(form.Fields))
	for i := range form.Fields {
		q.Item = append(q.Item, c.ToItem(&form.Fields[i]))
	}
	return q, nil
}

// FromQuestionnaire deserializes q. Unreadable extensions are logged and kept
// as unknown extensions.
func (c *Converter) FromQuestionnaire(q *r4.Questionnaire) (*field.Form, error) {
	form, _, err := c.FromQuestionnaireReport(q)
	return form, err
}

// FromQuestionnaireReport is FromQuestionnaire that also returns the
// conversion issues.
func (c *Converter) FromQuestionnaireReport(q *r4.Questionnaire) (*field.Form, *issue.Result, error) {
	if q == nil {
		return nil, nil, ErrNilQuestionnaire
	}

	report := issue.NewResult()
	form := &field.Form{
		ID:          derefString(q.Id),
		Title:       derefString(q.Title),
		Description: derefString(q.Description),
		Fields:      make([]field.Config, 0, len(q.Item)),
	}
	if q.Status != nil {
		switch s := field.Status(*q.Status); s {
		case field.StatusDraft, field.StatusActive, field.StatusRetired:
			form.Status = s
		default:
			form.Status = field.StatusDraft
		}
	}

	for _, ext := range q.Extension {
		if ext.Url == c.reg.FormStyling {
			var styling map[string]any
			if c.decodeJSONExtension(ext, &styling, formLinkID, report) {
				form.FormStyling = styling
			} else {
				form.UnknownExtensions = c.keepExtension(form.UnknownExtensions, ext)
			}
			continue
		}
		report.AddWithID(issue.DiagUnknownExtension, map[string]any{"url": ext.Url, "linkId": formLinkID})
		report.Issues[len(report.Issues)-1].Source = Source
		form.UnknownExtensions = c.keepExtension(form.UnknownExtensions, ext)
	}

	for i := range q.Item {
		form.Fields = append(form.Fields, c.fromItem(&q.Item[i], report))
	}
	field.SortByOrder(form.Fields)
	return form, report, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optBool(b bool) *bool {
	if !b {
		return nil
	}
	return &b
}
