package builder

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/logger"
)

func newState(t *testing.T, opts ...Option) *State {
	t.Helper()
	n := 0
	ids := WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	return New(nil, append([]Option{ids, WithLogger(logger.Nop())}, opts...)...)
}

func linkIDs(fields []field.Config) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.LinkID
	}
	return out
}

func assertOrders(t *testing.T, fields []field.Config) {
	t.Helper()
	for i, f := range fields {
		if f.Order == nil || *f.Order != i {
			t.Fatalf("field %q at index %d has order %v", f.LinkID, i, f.Order)
		}
		assertOrders(t, f.Items)
	}
}

func TestAddFillsDefaults(t *testing.T) {
	s := newState(t)

	a := s.Add(field.Config{Type: field.TypeText})
	b := s.Add(field.Config{Type: field.TypeText})
	c := s.Add(field.Config{})
	d := s.Add(field.Config{ID: "keep", LinkID: "dob", Type: field.TypeDate})

	if a.ID != "id-1" || b.ID != "id-2" || c.ID != "id-3" || d.ID != "keep" {
		t.Errorf("ids = %q %q %q %q", a.ID, b.ID, c.ID, d.ID)
	}
	if got := linkIDs(s.Fields()); !reflect.DeepEqual(got, []string{"text-1", "text-2", "text-3", "dob"}) {
		t.Errorf("linkIds = %v", got)
	}
	if c.Type != field.TypeText {
		t.Errorf("empty type = %q, want text", c.Type)
	}
	if *d.Order != 3 {
		t.Errorf("order = %d, want 3", *d.Order)
	}
}

func TestAddSkipsTakenLinkIDs(t *testing.T) {
	s := New(&field.Form{Fields: []field.Config{
		{ID: "x", LinkID: "integer-2", Type: field.TypeText},
	}}, WithLogger(logger.Nop()))

	got := s.Add(field.Config{Type: field.TypeInteger})
	if got.LinkID != "integer-1" {
		t.Errorf("first = %q", got.LinkID)
	}
	got = s.Add(field.Config{Type: field.TypeInteger})
	if got.LinkID != "integer-3" {
		t.Errorf("second = %q, want integer-3", got.LinkID)
	}
}

func TestInsert(t *testing.T) {
	s := newState(t)
	s.Add(field.Config{LinkID: "a"})
	s.Add(field.Config{LinkID: "c"})

	if _, err := s.Insert(1, field.Config{LinkID: "b"}); err != nil {
		t.Fatal(err)
	}
	if got := linkIDs(s.Fields()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("linkIds = %v", got)
	}
	assertOrders(t, s.Fields())

	for _, index := range []int{-1, 4} {
		if _, err := s.Insert(index, field.Config{}); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Insert(%d) error = %v", index, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	s := newState(t)
	f := s.Add(field.Config{LinkID: "name"})

	err := s.Update(f.ID, func(c *field.Config) {
		c.Label = "Full name"
		c.Required = true
		c.ID = "hijacked"
	})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := s.Field(f.ID)
	if !ok || got.Label != "Full name" || !got.Required {
		t.Errorf("Field() = %+v, %v", got, ok)
	}
	if err := s.Update("missing", func(*field.Config) {}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("error = %v", err)
	}
}

func TestUpdateNestedField(t *testing.T) {
	s := New(&field.Form{Fields: []field.Config{
		{ID: "g", LinkID: "g", Type: field.TypeGroup, Items: []field.Config{
			{ID: "c1", LinkID: "c1"},
			{ID: "c2", LinkID: "c2"},
		}},
	}}, WithLogger(logger.Nop()))

	if err := s.Update("c2", func(c *field.Config) { c.Label = "second" }); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Field("c2")
	if got.Label != "second" {
		t.Errorf("label = %q", got.Label)
	}
	assertOrders(t, s.Fields())
}

func TestDeleteClearsSelection(t *testing.T) {
	s := newState(t)
	a := s.Add(field.Config{LinkID: "a"})
	b := s.Add(field.Config{LinkID: "b"})

	if err := s.Select(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(b.ID); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != a.ID {
		t.Errorf("deleting another field changed the selection to %q", s.Selected())
	}
	if err := s.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != "" {
		t.Errorf("Selected() = %q after deleting it", s.Selected())
	}
	if err := s.Delete(a.ID); !errors.Is(err, ErrUnknownField) {
		t.Errorf("error = %v", err)
	}
}

func TestDeleteGroupClearsChildSelection(t *testing.T) {
	s := New(&field.Form{Fields: []field.Config{
		{ID: "g", LinkID: "g", Type: field.TypeGroup, Items: []field.Config{{ID: "child", LinkID: "child"}}},
	}}, WithLogger(logger.Nop()))

	_ = s.Select("child")
	if err := s.Delete("g"); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != "" || s.Len() != 0 {
		t.Errorf("Selected() = %q, Len() = %d", s.Selected(), s.Len())
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", 3, 1, []string{"a", "d", "b", "c"}},
		{"adjacent", 1, 2, []string{"a", "c", "b", "d"}},
		{"same", 2, 2, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t)
			for _, id := range []string{"a", "b", "c", "d"} {
				s.Add(field.Config{LinkID: id})
			}
			if err := s.Reorder(tt.from, tt.to); err != nil {
				t.Fatal(err)
			}
			if got := linkIDs(s.Fields()); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("linkIds = %v, want %v", got, tt.want)
			}
			assertOrders(t, s.Fields())
		})
	}

	s := newState(t)
	s.Add(field.Config{})
	if err := s.Reorder(0, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("error = %v", err)
	}
}

func TestOrderMatchesIndexAfterRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newState(t)

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || s.Len() < 2:
			s.Add(field.Config{Type: field.TypeText})
		case op == 1:
			fields := s.Fields()
			if err := s.Delete(fields[rng.Intn(len(fields))].ID); err != nil {
				t.Fatal(err)
			}
		case op == 2:
			if err := s.Reorder(rng.Intn(s.Len()), rng.Intn(s.Len())); err != nil {
				t.Fatal(err)
			}
		default:
			if s.CanUndo() {
				if err := s.Undo(); err != nil {
					t.Fatal(err)
				}
			}
		}
		assertOrders(t, s.Fields())
	}
}

func TestSelect(t *testing.T) {
	s := newState(t)
	f := s.Add(field.Config{})

	if err := s.Select("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("error = %v", err)
	}
	if err := s.Select(f.ID); err != nil || s.Selected() != f.ID {
		t.Errorf("Select() = %v, Selected() = %q", err, s.Selected())
	}
	if err := s.Select(""); err != nil || s.Selected() != "" {
		t.Errorf("clearing selection: %v, %q", err, s.Selected())
	}
	if len(s.past) != 1 {
		t.Error("selection must not be recorded in history")
	}
}

func TestUndoRedo(t *testing.T) {
	s := newState(t)
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() on empty history = %v", err)
	}
	if err := s.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() on empty history = %v", err)
	}

	a := s.Add(field.Config{LinkID: "a"})
	s.Add(field.Config{LinkID: "b"})
	_ = s.Update(a.ID, func(c *field.Config) { c.Label = "A" })

	edited := s.Fields()

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Field(a.ID); got.Label != "" {
		t.Errorf("label after undo = %q", got.Label)
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if got := linkIDs(s.Fields()); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("linkIds after two undos = %v", got)
	}
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false")
	}

	_ = s.Redo()
	_ = s.Redo()
	if !reflect.DeepEqual(s.Fields(), edited) {
		t.Errorf("redo did not restore the edited list: %+v", s.Fields())
	}
	if s.CanRedo() {
		t.Error("CanRedo() = true after replaying everything")
	}

	_ = s.Undo()
	s.Add(field.Config{LinkID: "c"})
	if s.CanRedo() {
		t.Error("a new edit must clear the redo stack")
	}
}

func TestUndoClearsDanglingSelection(t *testing.T) {
	s := newState(t)
	f := s.Add(field.Config{})
	_ = s.Select(f.ID)

	_ = s.Undo()
	if s.Selected() != "" {
		t.Errorf("Selected() = %q after undoing its creation", s.Selected())
	}
}

func TestHistoryLimit(t *testing.T) {
	s := newState(t, WithHistoryLimit(3))
	for i := 0; i < 5; i++ {
		s.Add(field.Config{})
	}
	undone := 0
	for s.CanUndo() {
		_ = s.Undo()
		undone++
	}
	if undone != 3 {
		t.Errorf("undo steps = %d, want 3", undone)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d after exhausting history, want 2", s.Len())
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := newState(t)
	f := s.Add(field.Config{LinkID: "a", Options: []field.Option{{Value: "x"}}})

	out := s.Fields()
	out[0].Options[0].Value = "mutated"
	_ = s.Update(f.ID, func(c *field.Config) { c.Options[0].Value = "y" })
	_ = s.Undo()

	got, _ := s.Field(f.ID)
	if got.Options[0].Value != "x" {
		t.Errorf("undo restored %q, want x", got.Options[0].Value)
	}
}

func TestNewCopiesForm(t *testing.T) {
	form := &field.Form{Title: "Intake", Fields: []field.Config{
		{ID: "1", LinkID: "a", Order: field.IntPtr(5)},
		{ID: "2", LinkID: "b", Order: field.IntPtr(5)},
	}}
	s := New(form, WithLogger(logger.Nop()))

	if *form.Fields[0].Order != 5 {
		t.Error("New modified its input")
	}
	got := s.Form()
	if got.Title != "Intake" {
		t.Errorf("Title = %q", got.Title)
	}
	assertOrders(t, got.Fields)
}

func TestNewSortsByExplicitOrder(t *testing.T) {
	form := &field.Form{Fields: []field.Config{
		{ID: "1", LinkID: "a", Order: field.IntPtr(2)},
		{ID: "2", LinkID: "b", Order: field.IntPtr(0)},
		{ID: "3", LinkID: "c", Order: field.IntPtr(1)},
	}}
	s := New(form, WithLogger(logger.Nop()))

	if got := linkIDs(s.Fields()); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("fields = %v, want [b c a]", got)
	}
	assertOrders(t, s.Fields())
}
