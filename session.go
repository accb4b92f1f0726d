package forms

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/pkg/builder"
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/primitive"
	"github.com/gofhir/forms/pkg/schema"
	"github.com/gofhir/forms/pkg/visibility"
)

// ErrUnknownQuestion is returned when an answer names no field of the form.
var ErrUnknownQuestion = errors.New("unknown question")

// View is what the rendering layer draws after each intent.
type View struct {
	Fields           []field.Config    `json:"fields"`
	SelectedFieldID  string            `json:"selectedFieldId,omitempty"`
	VisibleLinkIDs   []string          `json:"visibleLinkIds"`
	ValidationErrors map[string]string `json:"validationErrors"`
	Answers          map[string]any    `json:"answers,omitempty"`
	CanUndo          bool              `json:"canUndo"`
	CanRedo          bool              `json:"canRedo"`
}

// Intent is one user action from the rendering layer.
type Intent interface {
	apply(s *Session) error
}

// AddField appends a field. Missing id, type and linkId are filled in.
type AddField struct {
	Field field.Config `json:"field"`
}

// InsertField places a field at an index.
type InsertField struct {
	Index int          `json:"index"`
	Field field.Config `json:"field"`
}

// UpdateField replaces the field with the same id.
type UpdateField struct {
	Field field.Config `json:"field"`
}

// DeleteField removes a field and its children.
type DeleteField struct {
	ID string `json:"id"`
}

// Reorder moves the field at From to To.
type Reorder struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Select selects a field; an empty ID clears the selection.
type Select struct {
	ID string `json:"id"`
}

// SetAnswer records the preview answer of a question. An empty value
// removes the answer.
type SetAnswer struct {
	LinkID string `json:"linkId"`
	Value  any    `json:"value"`
}

// Undo reverts the last field edit.
type Undo struct{}

// Redo reapplies the last undone field edit.
type Redo struct{}

func (i AddField) apply(s *Session) error {
	s.state.Add(i.Field)
	return nil
}

func (i InsertField) apply(s *Session) error {
	_, err := s.state.Insert(i.Index, i.Field)
	return err
}

func (i UpdateField) apply(s *Session) error {
	return s.state.Update(i.Field.ID, func(f *field.Config) {
		*f = i.Field.Clone()
	})
}

func (i DeleteField) apply(s *Session) error {
	return s.state.Delete(i.ID)
}

func (i Reorder) apply(s *Session) error {
	return s.state.Reorder(i.From, i.To)
}

func (i Select) apply(s *Session) error {
	return s.state.Select(i.ID)
}

func (i SetAnswer) apply(s *Session) error {
	if _, ok := field.IndexByLinkID(s.state.Fields())[i.LinkID]; !ok {
		return fmt.Errorf("answer %q: %w", i.LinkID, ErrUnknownQuestion)
	}
	if primitive.IsEmpty(i.Value) {
		delete(s.answers, i.LinkID)
		return nil
	}
	s.answers[i.LinkID] = i.Value
	return nil
}

func (Undo) apply(s *Session) error {
	return s.state.Undo()
}

func (Redo) apply(s *Session) error {
	return s.state.Redo()
}

// Session is one user editing and previewing one form. Every intent
// recomputes the schema and the visible set in full. A Session is not safe
// for concurrent use.
type Session struct {
	engine  *Engine
	state   *builder.State
	answers map[string]any

	schema *schema.Schema
	vis    *visibility.Result
	view   View
}

// NewSession starts a session on a copy of form. A nil form starts empty.
func (e *Engine) NewSession(form *field.Form) *Session {
	s := &Session{
		engine: e,
		state: builder.New(form,
			builder.WithHistoryLimit(e.opts.HistoryLimit),
			builder.WithLogger(e.opts.Logger),
		),
		answers: make(map[string]any),
	}
	s.recompute()
	return s
}

// OpenQuestionnaire starts a session on the form stored in q.
func (e *Engine) OpenQuestionnaire(q *r4.Questionnaire) (*Session, *issue.Result, error) {
	form, report, err := e.FromQuestionnaire(q)
	if err != nil {
		return nil, nil, err
	}
	return e.NewSession(form), report, nil
}

// Dispatch applies intent and returns the new view. A failed intent leaves
// the session unchanged.
func (s *Session) Dispatch(intent Intent) (View, error) {
	if intent == nil {
		return s.View(), errors.New("intent is nil")
	}
	if err := intent.apply(s); err != nil {
		return s.View(), err
	}
	s.recompute()
	return s.View(), nil
}

// View returns the current view.
func (s *Session) View() View {
	v := s.view
	v.Fields = field.CloneAll(s.view.Fields)
	v.VisibleLinkIDs = append([]string(nil), s.view.VisibleLinkIDs...)
	v.ValidationErrors = copyMap(s.view.ValidationErrors)
	v.Answers = copyAnyMap(s.view.Answers)
	return v
}

// Form returns a copy of the form being edited.
func (s *Session) Form() *field.Form {
	return s.state.Form()
}

// Answers returns a copy of the current preview answers.
func (s *Session) Answers() map[string]any {
	return copyAnyMap(s.answers)
}

// Diagnostics lints the form being edited.
func (s *Session) Diagnostics() *issue.Result {
	res := s.state.Diagnostics()
	res.Merge(s.schema.Diagnostics())
	return res
}

// Save converts the form being edited to a Questionnaire.
func (s *Session) Save() (*r4.Questionnaire, error) {
	return s.engine.ToQuestionnaire(s.state.Form())
}

func (s *Session) recompute() {
	fields := s.state.Fields()

	sch, err := s.engine.Schema(fields)
	if err != nil {
		// Generate only fails on a nil list and Fields never returns one.
		s.engine.opts.Logger.Error("schema generation failed: %v", err)
		return
	}
	s.schema = sch
	s.vis = s.engine.Visibility(fields, s.answers)
	s.answers = visibility.ClearHidden(s.answers, s.vis)

	start := time.Now()
	res := sch.Validate(s.answers, s.vis.Visible)
	s.engine.metrics.RecordValidation(time.Since(start), res)

	s.view = View{
		Fields:           fields,
		SelectedFieldID:  s.state.Selected(),
		VisibleLinkIDs:   s.vis.VisibleLinkIDs(),
		ValidationErrors: res.FirstByExpression(),
		Answers:          copyAnyMap(s.answers),
		CanUndo:          s.state.CanUndo(),
		CanRedo:          s.state.CanRedo(),
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
