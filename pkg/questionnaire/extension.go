package questionnaire

import (
	json "github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
)

func stringExtension(url, value string) r4.Extension {
	return r4.Extension{Url: url, ValueString: &value}
}

func integerExtension(url string, value int) r4.Extension {
	return r4.Extension{Url: url, ValueInteger: &value}
}

func booleanExtension(url string, value bool) r4.Extension {
	return r4.Extension{Url: url, ValueBoolean: &value}
}

// boundExtension writes a minValue/maxValue bound typed after the field.
func boundExtension(url string, t field.Type, value float64) r4.Extension {
	if t == field.TypeInteger && value == float64(int(value)) {
		return integerExtension(url, int(value))
	}
	return r4.Extension{Url: url, ValueDecimal: &value}
}

func extensionNumber(ext r4.Extension) *float64 {
	switch {
	case ext.ValueDecimal != nil:
		v := *ext.ValueDecimal
		return &v
	case ext.ValueInteger != nil:
		v := float64(*ext.ValueInteger)
		return &v
	}
	return nil
}

func (c *Converter) itemControl(code string) r4.Extension {
	system := SystemItemControl
	return r4.Extension{
		Url: c.reg.ItemControl,
		ValueCodeableConcept: &r4.CodeableConcept{
			Coding: []r4.Coding{{System: &system, Code: &code}},
		},
	}
}

func itemControlCode(ext r4.Extension) string {
	if ext.ValueCodeableConcept == nil {
		return ""
	}
	for _, coding := range ext.ValueCodeableConcept.Coding {
		if code := derefString(coding.Code); code != "" {
			return code
		}
	}
	return ""
}

// jsonExtension packs a structured payload as a JSON string.
func (c *Converter) jsonExtension(url string, payload any, linkID string) (r4.Extension, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("%s: cannot encode extension %s: %v", linkID, url, err)
		return r4.Extension{}, false
	}
	return stringExtension(url, string(raw)), true
}

// decodeJSONExtension unpacks a JSON string payload into out. Failures are
// logged and reported; the caller decides whether to keep the raw extension.
func (c *Converter) decodeJSONExtension(ext r4.Extension, out any, linkID string, report *issue.Result) bool {
	url := ext.Url
	if ext.ValueString == nil {
		c.malformed(report, url, linkID, "missing valueString")
		return false
	}
	if err := json.Unmarshal([]byte(*ext.ValueString), out); err != nil {
		c.malformed(report, url, linkID, err.Error())
		return false
	}
	return true
}

func (c *Converter) malformed(report *issue.Result, url, linkID, reason string) {
	iss := report.AddWithID(issue.DiagMalformedExtension, map[string]any{
		"url":    url,
		"linkId": linkID,
		"error":  reason,
	}, linkID)
	report.Issues[len(report.Issues)-1].Source = Source
	c.log.Warn("%s", iss.Diagnostics)
}

// keepExtension appends ext to the pass-through list in its JSON form.
func (c *Converter) keepExtension(kept []json.RawMessage, ext r4.Extension) []json.RawMessage {
	raw, err := json.Marshal(ext)
	if err != nil {
		c.log.Warn("cannot keep extension %s: %v", ext.Url, err)
		return kept
	}
	return append(kept, raw)
}

// passThrough decodes kept extensions for writing back. Unreadable ones are
// logged and dropped.
func (c *Converter) passThrough(kept []json.RawMessage, linkID string) []r4.Extension {
	var out []r4.Extension
	for _, raw := range kept {
		var ext r4.Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			c.log.Warn("%s: dropping unreadable pass-through extension: %v", linkID, err)
			continue
		}
		out = append(out, ext)
	}
	return out
}
