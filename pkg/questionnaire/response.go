package questionnaire

import (
	json "github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"
)

// AnswersFromResponse flattens a QuestionnaireResponse into a linkId answer
// map. Single answers become scalars and repeated answers lists; codings
// contribute their code. Nested items, including items under answers, are
// included.
func AnswersFromResponse(qr *r4.QuestionnaireResponse) map[string]any {
	answers := make(map[string]any)
	if qr == nil {
		return answers
	}
	collectAnswers(qr.Item, answers)
	return answers
}

func collectAnswers(items []r4.QuestionnaireResponseItem, answers map[string]any) {
	for i := range items {
		item := &items[i]
		linkID := derefString(item.LinkId)

		values := make([]any, 0, len(item.Answer))
		for j := range item.Answer {
			ans := &item.Answer[j]
			if v, ok := answerToValue(ans); ok {
				values = append(values, v)
			}
			collectAnswers(ans.Item, answers)
		}

		if linkID != "" {
			switch len(values) {
			case 0:
			case 1:
				answers[linkID] = values[0]
			default:
				answers[linkID] = values
			}
		}
		collectAnswers(item.Item, answers)
	}
}

func answerToValue(ans *r4.QuestionnaireResponseItemAnswer) (any, bool) {
	switch {
	case ans.ValueBoolean != nil:
		return *ans.ValueBoolean, true
	case ans.ValueInteger != nil:
		return float64(*ans.ValueInteger), true
	case ans.ValueDecimal != nil:
		return *ans.ValueDecimal, true
	case ans.ValueDate != nil:
		return *ans.ValueDate, true
	case ans.ValueDateTime != nil:
		return *ans.ValueDateTime, true
	case ans.ValueTime != nil:
		return *ans.ValueTime, true
	case ans.ValueString != nil:
		return *ans.ValueString, true
	case ans.ValueUri != nil:
		return *ans.ValueUri, true
	case ans.ValueCoding != nil:
		return derefString(ans.ValueCoding.Code), true
	case ans.ValueAttachment != nil:
		raw, err := json.Marshal(ans.ValueAttachment)
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}
