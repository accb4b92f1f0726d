package issue

import (
	"github.com/gofhir/fhir/r4"
)

// ToOperationOutcome renders the result as an R4 OperationOutcome.
// An empty result yields a single informational "All OK" issue, as FHIR
// requires at least one issue.
func (r *Result) ToOperationOutcome() *r4.OperationOutcome {
	out := &r4.OperationOutcome{}

	if r == nil || len(r.Issues) == 0 {
		sev := r4.IssueSeverity(SeverityInformation)
		code := r4.IssueType(CodeInformational)
		msg := "All OK"
		out.Issue = []r4.OperationOutcomeIssue{{Severity: &sev, Code: &code, Diagnostics: &msg}}
		return out
	}

	out.Issue = make([]r4.OperationOutcomeIssue, 0, len(r.Issues))
	for _, iss := range r.Issues {
		sev := r4.IssueSeverity(iss.Severity)
		code := r4.IssueType(iss.Code)
		msg := iss.Diagnostics
		oi := r4.OperationOutcomeIssue{
			Severity:    &sev,
			Code:        &code,
			Diagnostics: &msg,
		}
		if len(iss.Expression) > 0 {
			oi.Expression = append([]string(nil), iss.Expression...)
		}
		out.Issue = append(out.Issue, oi)
	}
	return out
}
