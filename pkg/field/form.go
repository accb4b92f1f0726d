package field

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Status is the publication status of a form.
type Status string

// Form statuses.
const (
	StatusDraft   Status = "draft"
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

// Form is a complete form definition. It owns its fields exclusively.
type Form struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      Status         `json:"status" validate:"omitempty,oneof=draft active retired"`
	Fields      []Config       `json:"fields" validate:"dive"`
	FormStyling map[string]any `json:"formStyling,omitempty"`

	// UnknownExtensions carries Questionnaire-level extensions the converter
	// did not recognise, so they are written back unchanged.
	UnknownExtensions []json.RawMessage `json:"unknownExtensions,omitempty"`
}

// NewForm returns an empty draft.
func NewForm(title string) *Form {
	return &Form{Title: title, Status: StatusDraft, Fields: []Config{}}
}

// Clone returns a deep copy of f.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	out := *f
	out.Fields = CloneAll(f.Fields)
	if f.FormStyling != nil {
		out.FormStyling = cloneMap(f.FormStyling)
	}
	out.UnknownExtensions = cloneRawList(f.UnknownExtensions)
	return &out
}

// ErrSyntax is returned by ParseForm for a document that is not valid JSON.
var ErrSyntax = errors.New("field: malformed JSON document")

// ParseForm decodes a form document. The document as a whole must be valid
// JSON; a bad custom validator setting inside it still decodes as
// ValidatorInvalid.
func ParseForm(data []byte) (*Form, error) {
	if !json.Valid(data) {
		return nil, ErrSyntax
	}
	var f Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("fieldtype", validateFieldType)
}

func validateFieldType(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Known()
}

// Validate checks the form's shape at the model boundary: status, field
// types, operators and required identifiers. Cross-field invariants such as
// linkId uniqueness are reported by the builder's diagnostics instead.
func (f *Form) Validate() error {
	if f == nil {
		return errors.New("form is nil")
	}
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}
