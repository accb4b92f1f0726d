package issue

import (
	"testing"
)

func TestNewResult(t *testing.T) {
	r := NewResult()
	if r == nil {
		t.Fatal("NewResult() returned nil")
	}
	if len(r.Issues) != 0 {
		t.Errorf("NewResult() should have no issues, got %d", len(r.Issues))
	}
}

func TestResultAddError(t *testing.T) {
	r := NewResult()
	r.AddError(CodeValue, "Must be a whole number", "age")

	if len(r.Issues) != 1 {
		t.Fatalf("Result should have 1 issue, got %d", len(r.Issues))
	}
	if r.Issues[0].Severity != SeverityError {
		t.Errorf("Issue severity = %q, want %q", r.Issues[0].Severity, SeverityError)
	}
	if r.Issues[0].Code != CodeValue {
		t.Errorf("Issue code = %q, want %q", r.Issues[0].Code, CodeValue)
	}
	if len(r.Issues[0].Expression) != 1 || r.Issues[0].Expression[0] != "age" {
		t.Errorf("Issue expression = %v, want [age]", r.Issues[0].Expression)
	}
	if !r.HasErrors() || r.ErrorCount() != 1 {
		t.Error("expected one error")
	}
}

func TestResultCounts(t *testing.T) {
	r := NewResult()
	r.AddError(CodeValue, "bad", "a")
	r.AddWithID(DiagDuplicateLinkID, map[string]any{"linkId": "b", "count": 2}, "b")
	r.AddWithID(DiagMissingOptions, map[string]any{"linkId": "c"}, "c")

	if r.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d, want 1", r.ErrorCount())
	}
	if r.WarningCount() != 2 {
		t.Errorf("WarningCount() = %d, want 2", r.WarningCount())
	}

	other := NewResult()
	other.AddError(CodeRequired, "missing", "d")
	r.Merge(other)
	r.Merge(nil)
	if r.ErrorCount() != 2 {
		t.Errorf("after merge ErrorCount() = %d, want 2", r.ErrorCount())
	}
}

func TestAddWithID(t *testing.T) {
	r := NewResult()
	r.AddWithID(DiagDanglingReference, map[string]any{"linkId": "q2", "questionId": "ghost"}, "q2")

	if len(r.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(r.Issues))
	}
	iss := r.Issues[0]
	if iss.Severity != SeverityWarning || iss.Code != CodeNotFound {
		t.Errorf("unexpected severity/code %s/%s", iss.Severity, iss.Code)
	}
	want := "Field 'q2' has a condition on unknown question 'ghost'"
	if iss.Diagnostics != want {
		t.Errorf("Diagnostics = %q, want %q", iss.Diagnostics, want)
	}
	if iss.MessageID != string(DiagDanglingReference) {
		t.Errorf("MessageID = %q", iss.MessageID)
	}
	if len(r.ByMessageID(DiagDanglingReference)) != 1 {
		t.Error("ByMessageID did not find the issue")
	}
}

func TestAddWithIDUnknownID(t *testing.T) {
	r := NewResult()
	iss := r.AddWithID("NOPE", nil, "x")
	if iss.Severity != SeverityError || iss.Code != CodeProcessing || iss.Diagnostics != "NOPE" {
		t.Errorf("unexpected issue %+v", iss)
	}
}

func TestFirstByExpression(t *testing.T) {
	r := NewResult()
	r.AddError(CodeValue, "first", "a")
	r.AddError(CodeValue, "second", "a")
	r.AddWithID(DiagUnknownOperator, map[string]any{"linkId": "b", "operator": "~"}, "b")
	r.AddError(CodeRequired, "required", "c")

	got := r.FirstByExpression()
	if len(got) != 2 || got["a"] != "first" || got["c"] != "required" {
		t.Errorf("unexpected map %v", got)
	}
}

func TestToOperationOutcome(t *testing.T) {
	empty := NewResult().ToOperationOutcome()
	if len(empty.Issue) != 1 || *empty.Issue[0].Diagnostics != "All OK" {
		t.Fatalf("empty result should produce an All OK issue, got %+v", empty.Issue)
	}

	r := NewResult()
	r.AddError(CodeRequired, "This field is required", "name")
	oo := r.ToOperationOutcome()
	if len(oo.Issue) != 1 {
		t.Fatalf("expected 1 outcome issue, got %d", len(oo.Issue))
	}
	oi := oo.Issue[0]
	if string(*oi.Severity) != "error" || string(*oi.Code) != "required" {
		t.Errorf("unexpected severity/code %s/%s", *oi.Severity, *oi.Code)
	}
	if len(oi.Expression) != 1 || oi.Expression[0] != "name" {
		t.Errorf("unexpected expression %v", oi.Expression)
	}
}
