// Package builder holds the working copy of a form while it is being edited:
// the ordered field list, the selected field and an undo/redo history.
//
// Every mutation keeps each field's order equal to its position in its list
// and records the previous field list, so any edit can be undone. State is
// not safe for concurrent use.
package builder

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/logger"
)

// DefaultHistoryLimit is the number of undo steps kept by default.
const DefaultHistoryLimit = 100

var (
	// ErrUnknownField is returned when no field has the given id.
	ErrUnknownField = errors.New("unknown field")
	// ErrIndexOutOfRange is returned for positions outside the field list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNothingToUndo is returned by Undo on an empty history.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo when no undone step remains.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Option configures a State.
type Option func(*State)

// WithHistoryLimit caps the number of undo steps. Non-positive values are ignored.
func WithHistoryLimit(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *logger.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new field ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *State) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// State is the builder's single mutable owner of a form's fields.
type State struct {
	form     *field.Form
	selected string
	past     [][]field.Config
	future   [][]field.Config

	limit int
	log   *logger.Logger
	newID func() string
}

// New starts editing form. The form is copied; a nil form starts an empty
// draft. Fields are sorted by their explicit order, then renumbered to match
// their positions.
func New(form *field.Form, opts ...Option) *State {
	if form == nil {
		form = field.NewForm("")
	}
	s := &State{
		form:  form.Clone(),
		limit: DefaultHistoryLimit,
		log:   logger.Default(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.form.Fields == nil {
		s.form.Fields = []field.Config{}
	}
	field.SortByOrder(s.form.Fields)
	renumber(s.form.Fields)
	return s
}

// Len returns the number of top-level fields.
func (s *State) Len() int {
	return len(s.form.Fields)
}

// Fields returns a copy of the field list.
func (s *State) Fields() []field.Config {
	return field.CloneAll(s.form.Fields)
}

// Field returns a copy of the field with the given id, at any depth.
func (s *State) Field(id string) (field.Config, bool) {
	list, i := locate(&s.form.Fields, id)
	if list == nil {
		return field.Config{}, false
	}
	return (*list)[i].Clone(), true
}

// Selected returns the selected field id, or "" when nothing is selected.
func (s *State) Selected() string {
	return s.selected
}

// Form returns a copy of the form being edited.
func (s *State) Form() *field.Form {
	return s.form.Clone()
}

// Add appends f to the top level and returns the stored copy. A missing id
// gets a UUID, a missing type becomes text and a missing linkId becomes
// "<type>-<n>" with the first free n.
func (s *State) Add(f field.Config) field.Config {
	out, _ := s.Insert(len(s.form.Fields), f)
	return out
}

// Insert places f at index among the top-level fields.
func (s *State) Insert(index int, f field.Config) (field.Config, error) {
	if index < 0 || index > len(s.form.Fields) {
		return field.Config{}, fmt.Errorf("insert at %d of %d: %w", index, len(s.form.Fields), ErrIndexOutOfRange)
	}
	f = f.Clone()
	s.complete(&f)

	s.record()
	fields := make([]field.Config, 0, len(s.form.Fields)+1)
	fields = append(fields, s.form.Fields[:index]...)
	fields = append(fields, f)
	fields = append(fields, s.form.Fields[index:]...)
	s.form.Fields = fields
	renumber(s.form.Fields)
	return s.form.Fields[index].Clone(), nil
}

// Update applies fn to a copy of the field with the given id and stores the
// result. The field keeps its id and its position.
func (s *State) Update(id string, fn func(*field.Config)) error {
	list, i := locate(&s.form.Fields, id)
	if list == nil {
		return fmt.Errorf("update %q: %w", id, ErrUnknownField)
	}
	updated := (*list)[i].Clone()
	fn(&updated)
	updated.ID = id

	s.record()
	// record copied the fields, so locate again in the live list.
	list, i = locate(&s.form.Fields, id)
	(*list)[i] = updated
	renumber(*list)
	return nil
}

// Delete removes the field with the given id, including its children, and
// clears the selection when it pointed at a removed field.
func (s *State) Delete(id string) error {
	list, i := locate(&s.form.Fields, id)
	if list == nil {
		return fmt.Errorf("delete %q: %w", id, ErrUnknownField)
	}
	removed := (*list)[i]

	s.record()
	list, i = locate(&s.form.Fields, id)
	*list = append((*list)[:i], (*list)[i+1:]...)
	renumber(*list)

	if s.selected != "" && contains(&removed, s.selected) {
		s.selected = ""
	}
	return nil
}

// Reorder moves the top-level field at from to position to and renumbers
// every field. Moving a field onto itself is not recorded.
func (s *State) Reorder(from, to int) error {
	n := len(s.form.Fields)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder %d to %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}

	s.record()
	moved := s.form.Fields[from]
	fields := append(s.form.Fields[:from:from], s.form.Fields[from+1:]...)
	fields = append(fields[:to], append([]field.Config{moved}, fields[to:]...)...)
	s.form.Fields = fields
	renumber(s.form.Fields)
	return nil
}

// Select marks the field with the given id as selected. An empty id clears
// the selection. Selecting is not an undoable edit.
func (s *State) Select(id string) error {
	if id == "" {
		s.selected = ""
		return nil
	}
	if list, _ := locate(&s.form.Fields, id); list == nil {
		return fmt.Errorf("select %q: %w", id, ErrUnknownField)
	}
	s.selected = id
	return nil
}

// CanUndo reports whether Undo has a step to revert.
func (s *State) CanUndo() bool {
	return len(s.past) > 0
}

// CanRedo reports whether Redo has a step to reapply.
func (s *State) CanRedo() bool {
	return len(s.future) > 0
}

// Undo restores the field list from before the last edit.
func (s *State) Undo() error {
	if len(s.past) == 0 {
		return ErrNothingToUndo
	}
	prev := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append(s.future, s.form.Fields)
	s.form.Fields = prev
	s.dropDanglingSelection()
	return nil
}

// Redo reapplies the last undone edit.
func (s *State) Redo() error {
	if len(s.future) == 0 {
		return ErrNothingToRedo
	}
	next := s.future[len(s.future)-1]
	s.future = s.future[:len(s.future)-1]
	s.past = append(s.past, s.form.Fields)
	s.form.Fields = next
	s.dropDanglingSelection()
	return nil
}

// Diagnostics lints the current fields and logs every finding.
func (s *State) Diagnostics() *issue.Result {
	res := Lint(s.form.Fields)
	for _, iss := range res.Issues {
		if iss.Severity == issue.SeverityInformation {
			s.log.Info("form %q: %s", s.form.Title, iss.Diagnostics)
			continue
		}
		s.log.Warn("form %q: %s", s.form.Title, iss.Diagnostics)
	}
	return res
}

// record pushes the current field list onto the undo stack. The live list
// is replaced by a copy, so the stored snapshot is never mutated.
func (s *State) record() {
	s.past = append(s.past, s.form.Fields)
	if len(s.past) > s.limit {
		s.past = append([][]field.Config(nil), s.past[len(s.past)-s.limit:]...)
	}
	s.future = nil
	s.form.Fields = field.CloneAll(s.form.Fields)
}

func (s *State) complete(f *field.Config) {
	if f.ID == "" {
		f.ID = s.newID()
	}
	if f.Type == "" {
		f.Type = field.TypeText
	}
	if f.LinkID == "" {
		f.LinkID = s.nextLinkID(f.Type)
	}
}

func (s *State) nextLinkID(t field.Type) string {
	taken := make(map[string]bool)
	count := 0
	field.Walk(s.form.Fields, func(f, _ *field.Config) {
		taken[f.LinkID] = true
		if f.Type == t {
			count++
		}
	})
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", t, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func (s *State) dropDanglingSelection() {
	if s.selected == "" {
		return
	}
	if list, _ := locate(&s.form.Fields, s.selected); list == nil {
		s.selected = ""
	}
}

// locate finds the list holding the field with id and its index in it.
func locate(fields *[]field.Config, id string) (*[]field.Config, int) {
	for i := range *fields {
		f := &(*fields)[i]
		if f.ID == id {
			return fields, i
		}
		if list, j := locate(&f.Items, id); list != nil {
			return list, j
		}
	}
	return nil, -1
}

func contains(f *field.Config, id string) bool {
	if f.ID == id {
		return true
	}
	for i := range f.Items {
		if contains(&f.Items[i], id) {
			return true
		}
	}
	return false
}

// renumber sets every field's order to its index, recursively.
func renumber(fields []field.Config) {
	for i := range fields {
		fields[i].Order = field.IntPtr(i)
		renumber(fields[i].Items)
	}
}
