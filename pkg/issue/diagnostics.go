// Package issue provides diagnostic message templates for form validation.
package issue

import (
	"fmt"
	"strings"
)

// DiagnosticID identifies a specific diagnostic message.
type DiagnosticID string

// Diagnostic IDs for answer validation.
const (
	DiagAnswerRequired DiagnosticID = "ANSWER_REQUIRED"
	DiagAnswerInvalid  DiagnosticID = "ANSWER_INVALID"
)

// Diagnostic IDs for structural checks of a form definition.
const (
	DiagDuplicateLinkID    DiagnosticID = "FORM_DUPLICATE_LINKID"
	DiagMissingLinkID      DiagnosticID = "FORM_MISSING_LINKID"
	DiagSelfReference      DiagnosticID = "CONDITION_SELF_REFERENCE"
	DiagConditionalCycle   DiagnosticID = "CONDITION_CYCLE"
	DiagDanglingReference  DiagnosticID = "CONDITION_DANGLING_REFERENCE"
	DiagUnknownOperator    DiagnosticID = "CONDITION_UNKNOWN_OPERATOR"
	DiagMissingOptions     DiagnosticID = "OPTIONS_MISSING"
	DiagDuplicateOption    DiagnosticID = "OPTIONS_DUPLICATE_VALUE"
	DiagRepeatsIgnored     DiagnosticID = "FIELD_REPEATS_IGNORED"
	DiagUnknownType        DiagnosticID = "FIELD_UNKNOWN_TYPE"
	DiagInvalidValidator   DiagnosticID = "CONSTRAINT_INVALID_VALIDATOR"
	DiagInvalidPattern     DiagnosticID = "CONSTRAINT_INVALID_PATTERN"
	DiagInvalidExpression  DiagnosticID = "CONSTRAINT_INVALID_EXPRESSION"
	DiagFormShape          DiagnosticID = "FORM_SHAPE"
	DiagUnknownExtension   DiagnosticID = "EXTENSION_UNKNOWN"
	DiagMalformedExtension DiagnosticID = "EXTENSION_MALFORMED"
)

// diagnosticTemplate is the severity, code and message of one DiagnosticID.
type diagnosticTemplate struct {
	Severity Severity
	Code     Code
	Template string
}

// diagnosticTemplates maps diagnostic IDs to their templates.
// Templates use {placeholder} syntax for variable substitution.
var diagnosticTemplates = map[DiagnosticID]diagnosticTemplate{
	DiagAnswerRequired: {
		Severity: SeverityError,
		Code:     CodeRequired,
		Template: "{message}",
	},
	DiagAnswerInvalid: {
		Severity: SeverityError,
		Code:     CodeValue,
		Template: "{message}",
	},

	DiagDuplicateLinkID: {
		Severity: SeverityWarning,
		Code:     CodeDuplicate,
		Template: "linkId '{linkId}' is used by {count} fields; the last one wins",
	},
	DiagMissingLinkID: {
		Severity: SeverityWarning,
		Code:     CodeRequired,
		Template: "Field '{id}' has no linkId",
	},
	DiagSelfReference: {
		Severity: SeverityWarning,
		Code:     CodeInvariant,
		Template: "Field '{linkId}' has a condition that references itself; it will stay hidden",
	},
	DiagConditionalCycle: {
		Severity: SeverityWarning,
		Code:     CodeInvariant,
		Template: "Conditional logic cycle between {cycle}; these fields will stay hidden",
	},
	DiagDanglingReference: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "Field '{linkId}' has a condition on unknown question '{questionId}'",
	},
	DiagUnknownOperator: {
		Severity: SeverityWarning,
		Code:     CodeNotSupported,
		Template: "Field '{linkId}' uses unknown condition operator '{operator}'",
	},
	DiagMissingOptions: {
		Severity: SeverityWarning,
		Code:     CodeRequired,
		Template: "Required field '{linkId}' has no options to choose from",
	},
	DiagDuplicateOption: {
		Severity: SeverityWarning,
		Code:     CodeDuplicate,
		Template: "Field '{linkId}' has more than one option with value '{value}'",
	},
	DiagRepeatsIgnored: {
		Severity: SeverityInformation,
		Code:     CodeInformational,
		Template: "Field '{linkId}' of type '{type}' cannot hold multiple answers; repeats is ignored",
	},
	DiagUnknownType: {
		Severity: SeverityWarning,
		Code:     CodeNotSupported,
		Template: "Field '{linkId}' has unknown type '{type}'; it is treated as text",
	},
	DiagInvalidValidator: {
		Severity: SeverityWarning,
		Code:     CodeProcessing,
		Template: "Field '{linkId}' has an unusable custom validator ({reason}); it is ignored",
	},
	DiagInvalidPattern: {
		Severity: SeverityWarning,
		Code:     CodeProcessing,
		Template: "Field '{linkId}' has an invalid pattern ({error}); it is ignored",
	},
	DiagInvalidExpression: {
		Severity: SeverityWarning,
		Code:     CodeProcessing,
		Template: "Field '{linkId}' has an expression that does not compile ({error}); it is ignored",
	},
	DiagFormShape: {
		Severity: SeverityWarning,
		Code:     CodeStructure,
		Template: "{error}",
	},
	DiagUnknownExtension: {
		Severity: SeverityInformation,
		Code:     CodeExtension,
		Template: "Extension '{url}' on '{linkId}' is not recognised and is kept as-is",
	},
	DiagMalformedExtension: {
		Severity: SeverityWarning,
		Code:     CodeExtension,
		Template: "Extension '{url}' on '{linkId}' could not be read: {error}",
	},
}

// formatTemplate replaces {placeholder} with values from params.
func formatTemplate(template string, params map[string]any) string {
	result := template
	for key, value := range params {
		placeholder := "{" + key + "}"
		result = strings.ReplaceAll(result, placeholder, fmt.Sprint(value))
	}
	return result
}

// AddWithID adds an issue using a diagnostic template and its own severity.
func (r *Result) AddWithID(id DiagnosticID, params map[string]any, expression ...string) Issue {
	tmpl, ok := diagnosticTemplates[id]
	if !ok {
		tmpl = diagnosticTemplate{Severity: SeverityError, Code: CodeProcessing, Template: string(id)}
	}

	iss := Issue{
		Severity:    tmpl.Severity,
		Code:        tmpl.Code,
		Diagnostics: formatTemplate(tmpl.Template, params),
		Expression:  expression,
		MessageID:   string(id),
	}
	r.Issues = append(r.Issues, iss)
	return iss
}
