package builder

import (
	"regexp"
	"strings"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/visibility"
)

// Source marks issues raised by the builder.
const Source = "builder"

// Lint reports structural problems of a field list. Nothing it finds stops
// the form from working: duplicate linkIds resolve to the last field,
// cyclic fields stay hidden and broken constraints are skipped.
//
// Missing and duplicate linkIds are reported first, then per-field findings
// in field order, then dangling references and cycles.
func Lint(fields []field.Config) *issue.Result {
	res := issue.NewResult()
	add := func(id issue.DiagnosticID, params map[string]any, linkID string) {
		var expr []string
		if linkID != "" {
			expr = []string{linkID}
		}
		res.AddWithID(id, params, expr...)
		res.Issues[len(res.Issues)-1].Source = Source
	}

	counts := make(map[string]int)
	var linkIDs []string
	field.Walk(fields, func(f, _ *field.Config) {
		if f.LinkID == "" {
			add(issue.DiagMissingLinkID, map[string]any{"id": f.ID}, "")
			return
		}
		if counts[f.LinkID] == 0 {
			linkIDs = append(linkIDs, f.LinkID)
		}
		counts[f.LinkID]++
	})
	for _, id := range linkIDs {
		if counts[id] > 1 {
			add(issue.DiagDuplicateLinkID, map[string]any{"linkId": id, "count": counts[id]}, id)
		}
	}

	field.Walk(fields, func(f, _ *field.Config) {
		lintField(f, add)
	})

	vis := visibility.Evaluate(fields, nil)
	for _, ref := range vis.Dangling() {
		add(issue.DiagDanglingReference, map[string]any{"linkId": ref.LinkID, "questionId": ref.QuestionID}, ref.LinkID)
	}
	for _, cycle := range vis.Cycles() {
		if len(cycle) < 2 {
			// Reported per field as a self-reference.
			continue
		}
		add(issue.DiagConditionalCycle, map[string]any{"cycle": quoteAll(cycle)}, cycle[0])
	}
	return res
}

func lintField(f *field.Config, add func(issue.DiagnosticID, map[string]any, string)) {
	linkID := f.LinkID

	if f.Type != "" && !f.Type.Known() {
		add(issue.DiagUnknownType, map[string]any{"linkId": linkID, "type": f.Type}, linkID)
	}
	t := f.Type.Normalize()

	if t.AcceptsOptions() {
		if f.EffectiveRequired() && len(f.Options) == 0 {
			add(issue.DiagMissingOptions, map[string]any{"linkId": linkID}, linkID)
		}
		seen := make(map[string]int)
		for _, opt := range f.Options {
			seen[opt.Value]++
			if seen[opt.Value] == 2 {
				add(issue.DiagDuplicateOption, map[string]any{"linkId": linkID, "value": opt.Value}, linkID)
			}
		}
	}

	if f.Repeats && !t.IsRepeatable() {
		add(issue.DiagRepeatsIgnored, map[string]any{"linkId": linkID, "type": t}, linkID)
	}

	if v := f.Validation; v != nil {
		if cv := v.CustomValidator; cv != nil && !cv.Valid() {
			reason := cv.Reason
			if reason == "" {
				reason = "no validator name"
			}
			add(issue.DiagInvalidValidator, map[string]any{"linkId": linkID, "reason": reason}, linkID)
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				add(issue.DiagInvalidPattern, map[string]any{"linkId": linkID, "error": err}, linkID)
			}
		}
	}

	if !f.Conditional.Active() {
		return
	}
	selfReported := false
	for _, c := range f.Conditional.Conditions {
		if c.QuestionID == linkID && !selfReported {
			add(issue.DiagSelfReference, map[string]any{"linkId": linkID}, linkID)
			selfReported = true
		}
		if !c.Operator.Known() {
			add(issue.DiagUnknownOperator, map[string]any{"linkId": linkID, "operator": c.Operator}, linkID)
		}
	}
}

func quoteAll(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "'" + id + "'"
	}
	return strings.Join(quoted, ", ")
}
