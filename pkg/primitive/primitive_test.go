package primitive

import (
	"encoding/json"
	"testing"

	"github.com/gofhir/forms/pkg/field"
)

func TestForType(t *testing.T) {
	tests := []struct {
		typ  field.Type
		want Format
	}{
		{field.TypeText, FormatString},
		{field.TypeTextarea, FormatString},
		{field.TypeChoice, FormatString},
		{field.TypeCheckbox, FormatString},
		{field.TypeInteger, FormatInteger},
		{field.TypeDecimal, FormatDecimal},
		{field.TypeBoolean, FormatBoolean},
		{field.TypeDate, FormatDate},
		{field.TypeDateTime, FormatDateTime},
		{field.TypeTime, FormatTime},
		{field.TypeSignature, FormatAttachment},
		{field.TypeAttachment, FormatAttachment},
		{field.TypeDisplay, FormatNone},
		{field.TypeGroup, FormatNone},
		{field.Type("slider"), FormatString},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := ForType(tt.typ); got != tt.want {
				t.Errorf("ForType(%q) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		value   any
		wantErr string
	}{
		{name: "string ok", format: FormatString, value: "hello"},
		{name: "string wrong type", format: FormatString, value: 12.0, wantErr: MsgString},
		{name: "integer json", format: FormatInteger, value: 42.0},
		{name: "integer string", format: FormatInteger, value: "-17"},
		{name: "integer fraction", format: FormatInteger, value: 4.5, wantErr: MsgInteger},
		{name: "integer text", format: FormatInteger, value: "4.0", wantErr: MsgInteger},
		{name: "integer overflow", format: FormatInteger, value: 3000000000.0, wantErr: MsgIntRange},
		{name: "integer json.Number", format: FormatInteger, value: json.Number("12")},
		{name: "decimal", format: FormatDecimal, value: "3.14"},
		{name: "decimal leading dot", format: FormatDecimal, value: ".5"},
		{name: "decimal text", format: FormatDecimal, value: "abc", wantErr: MsgDecimal},
		{name: "decimal NaN string", format: FormatDecimal, value: "NaN", wantErr: MsgDecimal},
		{name: "boolean", format: FormatBoolean, value: true},
		{name: "boolean literal", format: FormatBoolean, value: "false"},
		{name: "boolean yes", format: FormatBoolean, value: "yes", wantErr: MsgBoolean},
		{name: "date", format: FormatDate, value: "2026-10-15"},
		{name: "date impossible", format: FormatDate, value: "2026-02-30", wantErr: MsgDate},
		{name: "date partial", format: FormatDate, value: "2026-10", wantErr: MsgDate},
		{name: "date slashes", format: FormatDate, value: "15/10/2026", wantErr: MsgDate},
		{name: "datetime local", format: FormatDateTime, value: "2026-10-15T09:30"},
		{name: "datetime zoned", format: FormatDateTime, value: "2026-10-15T09:30:00.123+04:00"},
		{name: "datetime utc", format: FormatDateTime, value: "2026-10-15T09:30:00Z"},
		{name: "datetime date only", format: FormatDateTime, value: "2026-10-15", wantErr: MsgDateTime},
		{name: "datetime bad hour", format: FormatDateTime, value: "2026-10-15T25:00", wantErr: MsgDateTime},
		{name: "time short", format: FormatTime, value: "08:05"},
		{name: "time seconds", format: FormatTime, value: "23:59:59"},
		{name: "time bad", format: FormatTime, value: "8:5", wantErr: MsgTime},
		{name: "attachment object", format: FormatAttachment, value: map[string]any{"url": "x"}},
		{name: "attachment string", format: FormatAttachment, value: "data:image/png;base64,AAA"},
		{name: "attachment number", format: FormatAttachment, value: 1.0, wantErr: MsgValue},
		{name: "none", format: FormatNone, value: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.format, tt.value)
			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("expected valid, got %q", res.Error)
				}
				return
			}
			if res.IsValid {
				t.Fatal("expected invalid")
			}
			if res.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		value any
		want  string
		ok    bool
	}{
		{"abc", "abc", true},
		{22125503.0, "22125503", true},
		{2.5, "2.5", true},
		{true, "true", true},
		{nil, "", false},
		{[]any{"a"}, "", false},
	}
	for _, tt := range tests {
		got, ok := AsString(tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AsString(%v) = %q, %v; want %q, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	empty := []any{nil, "", "   ", []any{}, []string{}}
	for _, v := range empty {
		if !IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = false", v)
		}
	}
	present := []any{"x", 0.0, false, []any{"a"}, map[string]any{}}
	for _, v := range present {
		if IsEmpty(v) {
			t.Errorf("IsEmpty(%#v) = true", v)
		}
	}
}
