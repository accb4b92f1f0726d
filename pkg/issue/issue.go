// Package issue defines form validation issues aligned with FHIR OperationOutcome.
package issue

// Severity represents the severity of an issue.
type Severity string

// Severity constants aligned with FHIR IssueSeverity.
const (
	SeverityFatal       Severity = "fatal"
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Code represents the type of issue (IssueType).
type Code string

// Code constants aligned with FHIR IssueType.
const (
	CodeInvalid       Code = "invalid"
	CodeStructure     Code = "structure"
	CodeRequired      Code = "required"
	CodeValue         Code = "value"
	CodeInvariant     Code = "invariant"
	CodeProcessing    Code = "processing"
	CodeNotSupported  Code = "not-supported"
	CodeDuplicate     Code = "duplicate"
	CodeNotFound      Code = "not-found"
	CodeTooLong       Code = "too-long"
	CodeExtension     Code = "extension"
	CodeInformational Code = "informational"
	CodeException     Code = "exception"
)

// Issue represents a single validation issue or builder diagnostic.
type Issue struct {
	// Severity indicates the severity level (error, warning, etc.)
	Severity Severity `json:"severity"`

	// Code indicates the type of issue
	Code Code `json:"code"`

	// Diagnostics is the human-readable description of the issue
	Diagnostics string `json:"diagnostics"`

	// Expression holds the linkId(s) the issue is about
	Expression []string `json:"expression,omitempty"`

	// Source names the component that raised the issue (schema, builder, ...)
	Source string `json:"source,omitempty"`

	// MessageID is the identifier from the diagnostic catalogue
	MessageID string `json:"messageId,omitempty"`
}

// IsError reports whether the issue is an error or fatal.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// Result holds a collection of issues.
type Result struct {
	Issues []Issue `json:"issues"`
}

// defaultIssueCapacity is the pre-allocated capacity for Issues slice.
const defaultIssueCapacity = 8

// NewResult creates a new empty Result with pre-allocated capacity.
func NewResult() *Result {
	return &Result{
		Issues: make([]Issue, 0, defaultIssueCapacity),
	}
}

// AddError adds an error-level issue.
func (r *Result) AddError(code Code, diagnostics string, expression ...string) {
	r.Issues = append(r.Issues, Issue{
		Severity:    SeverityError,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  expression,
	})
}

// HasErrors returns true if there are any error-level issues.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.IsError() {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// Merge combines another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// ByMessageID returns the issues raised from one catalogue entry.
func (r *Result) ByMessageID(id DiagnosticID) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.MessageID == string(id) {
			out = append(out, issue)
		}
	}
	return out
}

// FirstByExpression maps each expression to the first error raised for it.
func (r *Result) FirstByExpression() map[string]string {
	out := make(map[string]string)
	for _, issue := range r.Issues {
		if !issue.IsError() || len(issue.Expression) == 0 {
			continue
		}
		if _, seen := out[issue.Expression[0]]; !seen {
			out[issue.Expression[0]] = issue.Diagnostics
		}
	}
	return out
}
