package field

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestTypeHelpers(t *testing.T) {
	tests := []struct {
		typ        Type
		options    bool
		container  bool
		answer     bool
		repeatable bool
	}{
		{TypeText, false, false, true, false},
		{TypeChoice, true, false, true, true},
		{TypeOpenChoice, true, false, true, true},
		{TypeRadio, true, false, true, true},
		{TypeCheckbox, true, false, true, true},
		{TypeAttachment, false, false, true, true},
		{TypeDisplay, false, false, false, false},
		{TypeGroup, false, true, false, false},
		{Type("slider"), false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.AcceptsOptions(); got != tt.options {
				t.Errorf("AcceptsOptions() = %v, want %v", got, tt.options)
			}
			if got := tt.typ.IsContainer(); got != tt.container {
				t.Errorf("IsContainer() = %v, want %v", got, tt.container)
			}
			if got := tt.typ.CarriesAnswer(); got != tt.answer {
				t.Errorf("CarriesAnswer() = %v, want %v", got, tt.answer)
			}
			if got := tt.typ.IsRepeatable(); got != tt.repeatable {
				t.Errorf("IsRepeatable() = %v, want %v", got, tt.repeatable)
			}
		})
	}

	if Type("slider").Normalize() != TypeText {
		t.Error("unknown type should normalize to text")
	}
	if len(Types()) != 16 {
		t.Errorf("expected 16 field types, got %d", len(Types()))
	}
}

func TestParseCustomValidator(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantNil  bool
		wantKind ValidatorKind
		check    func(t *testing.T, c *CustomValidator)
	}{
		{name: "bare name", payload: `"email"`, wantKind: ValidatorEmail},
		{name: "empty name", payload: `""`, wantNil: true},
		{name: "null", payload: `null`, wantNil: true},
		{
			name:     "date range defaults",
			payload:  `{"name":"date-range"}`,
			wantKind: ValidatorDateRange,
			check: func(t *testing.T, c *CustomValidator) {
				if c.MaxAgeYears != 120 || c.AllowFuture {
					t.Errorf("unexpected defaults: %+v", c)
				}
			},
		},
		{
			name:     "date range params",
			payload:  `{"name":"date-range","allowFuture":true,"maxAgeYears":18}`,
			wantKind: ValidatorDateRange,
			check: func(t *testing.T, c *CustomValidator) {
				if c.MaxAgeYears != 18 || !c.AllowFuture {
					t.Errorf("params not applied: %+v", c)
				}
			},
		},
		{name: "negative age", payload: `{"name":"date-range","maxAgeYears":-1}`, wantKind: ValidatorInvalid},
		{name: "unknown name", payload: `"zip-code"`, wantKind: ValidatorInvalid},
		{name: "malformed object", payload: `{"name": 12`, wantKind: ValidatorInvalid},
		{name: "expression without body", payload: `{"name":"expression"}`, wantKind: ValidatorInvalid},
		{
			name:     "expression",
			payload:  `{"name":"expression","expression":"value > 3","message":"too small"}`,
			wantKind: ValidatorExpression,
			check: func(t *testing.T, c *CustomValidator) {
				if c.Expression != "value > 3" || c.Message != "too small" {
					t.Errorf("expression not parsed: %+v", c)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ParseCustomValidator([]byte(tt.payload))
			if tt.wantNil {
				if c != nil {
					t.Fatalf("expected nil, got %+v", c)
				}
				return
			}
			if c == nil {
				t.Fatal("expected validator, got nil")
			}
			if c.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", c.Kind, tt.wantKind)
			}
			if c.Kind == ValidatorInvalid && len(c.Raw) == 0 {
				t.Error("invalid validator should retain its raw payload")
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestConfigDecodeToleratesBadValidator(t *testing.T) {
	data := `{"id":"f1","linkId":"q1","type":"text","validation":{"maxLength":5,"customValidator":{"name":"nope"}}}`
	var cfg Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Validation == nil || cfg.Validation.MaxLength == nil || *cfg.Validation.MaxLength != 5 {
		t.Fatalf("validation bag not decoded: %+v", cfg.Validation)
	}
	if cfg.Validation.CustomValidator.Kind != ValidatorInvalid {
		t.Errorf("expected invalid validator, got %q", cfg.Validation.CustomValidator.Kind)
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"customValidator":{"name":"nope"}`) {
		t.Errorf("raw validator payload not preserved: %s", out)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Config{
		ID:         "f1",
		LinkID:     "q1",
		Type:       TypeGroup,
		Validation: &Validation{MinLength: IntPtr(2)},
		Options:    []Option{{Value: "a", Label: "A"}},
		Conditional: &Conditional{
			Enabled:    true,
			Conditions: []Condition{{QuestionID: "q0", Operator: OpExists}},
		},
		Styling: map[string]any{"width": "50%", "font": map[string]any{"size": 12.0}},
		Items:   []Config{{ID: "c1", LinkID: "child", Type: TypeText}},
	}

	cp := orig.Clone()
	*cp.Validation.MinLength = 9
	cp.Options[0].Value = "z"
	cp.Conditional.Conditions[0].QuestionID = "other"
	cp.Styling["font"].(map[string]any)["size"] = 20.0
	cp.Items[0].LinkID = "changed"

	if *orig.Validation.MinLength != 2 {
		t.Error("validation shared with clone")
	}
	if orig.Options[0].Value != "a" {
		t.Error("options shared with clone")
	}
	if orig.Conditional.Conditions[0].QuestionID != "q0" {
		t.Error("conditions shared with clone")
	}
	if orig.Styling["font"].(map[string]any)["size"] != 12.0 {
		t.Error("nested styling shared with clone")
	}
	if orig.Items[0].LinkID != "child" {
		t.Error("children shared with clone")
	}
}

func TestWalkAndIndex(t *testing.T) {
	fields := []Config{
		{LinkID: "a", Type: TypeText},
		{LinkID: "g", Type: TypeGroup, Items: []Config{
			{LinkID: "g.1", Type: TypeText},
			{LinkID: "g.2", Type: TypeBoolean},
		}},
	}

	var order []string
	parents := map[string]string{}
	Walk(fields, func(f *Config, parent *Config) {
		order = append(order, f.LinkID)
		if parent != nil {
			parents[f.LinkID] = parent.LinkID
		}
	})
	if strings.Join(order, ",") != "a,g,g.1,g.2" {
		t.Errorf("unexpected walk order %v", order)
	}
	if parents["g.2"] != "g" {
		t.Errorf("expected g.2 parent g, got %q", parents["g.2"])
	}

	idx := IndexByLinkID(fields)
	if idx["g.1"] == nil || idx["g.1"].Type != TypeText {
		t.Error("child missing from index")
	}
	if len(Flatten(fields)) != 4 {
		t.Errorf("expected 4 flattened fields, got %d", len(Flatten(fields)))
	}
}

func TestParseForm(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "valid", data: `{"title":"T","fields":[{"linkId":"q1","type":"text","validation":{"customValidator":"email"}}]}`},
		{name: "bad validator setting", data: `{"title":"T","fields":[{"linkId":"q1","type":"text","validation":{"customValidator":{"name":"nope"}}}]}`},
		{name: "broken validator value", data: `{"title":"T","fields":[{"linkId":"q1","type":"text","validation":{"customValidator":{"name":}}}]}`, wantErr: ErrSyntax},
		{name: "truncated", data: `{"title":"T","fields":[`, wantErr: ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := ParseForm([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(form.Fields) != 1 || form.Fields[0].LinkID != "q1" {
				t.Errorf("unexpected fields %+v", form.Fields)
			}
		})
	}
}

func TestSortByOrder(t *testing.T) {
	fields := []Config{
		{LinkID: "c", Order: IntPtr(2)},
		{LinkID: "a", Order: IntPtr(0)},
		{LinkID: "b", Order: IntPtr(1)},
	}
	SortByOrder(fields)
	got := fields[0].LinkID + fields[1].LinkID + fields[2].LinkID
	if got != "abc" {
		t.Errorf("expected abc, got %s", got)
	}
}

func TestSortByOrderNested(t *testing.T) {
	fields := []Config{
		{LinkID: "g", Type: TypeGroup, Order: IntPtr(1), Items: []Config{
			{LinkID: "y", Order: IntPtr(1)},
			{LinkID: "x", Order: IntPtr(0)},
		}},
		{LinkID: "a", Order: IntPtr(0)},
	}
	SortByOrder(fields)
	if fields[0].LinkID != "a" || fields[1].LinkID != "g" {
		t.Fatalf("top level = %s %s, want a g", fields[0].LinkID, fields[1].LinkID)
	}
	kids := fields[1].Items
	if kids[0].LinkID != "x" || kids[1].LinkID != "y" {
		t.Errorf("children = %s %s, want x y", kids[0].LinkID, kids[1].LinkID)
	}
}

func TestFormValidate(t *testing.T) {
	f := NewForm("Intake")
	f.Fields = []Config{
		{ID: "1", LinkID: "name", Type: TypeText},
		{ID: "2", LinkID: "sex", Type: TypeRadio, Options: []Option{{Value: "f", Label: "Female"}}},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.Status = "published"
	f.Fields[0].Type = "slider"
	f.Fields[1].Conditional = &Conditional{
		Enabled:    true,
		Operator:   "xor",
		Conditions: []Condition{{QuestionID: "name", Operator: "~"}},
	}
	err := f.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"Status", "Type", "Operator"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}
