package questionnaire

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/primitive"
)

// ToItem maps one field, and its children when it is a group.
func (c *Converter) ToItem(f *field.Config) r4.QuestionnaireItem {
	typ := f.Type
	it := r4.QuestionnaireItemType(ItemType(typ.Normalize()))

	item := r4.QuestionnaireItem{
		Id:       optString(f.ID),
		LinkId:   optString(f.LinkID),
		Text:     optString(f.Label),
		Type:     &it,
		ReadOnly: optBool(f.ReadOnly),
	}
	if !typ.Normalize().IsContainer() && typ != field.TypeDisplay {
		item.Required = optBool(f.EffectiveRequired())
	}
	if f.Repeats || typ == field.TypeCheckbox {
		item.Repeats = optBool(true)
	}

	if typ != "" {
		item.Extension = append(item.Extension, stringExtension(c.reg.FieldType, string(typ)))
	}
	c.addPresentation(&item, f)
	c.addConstraints(&item, f)

	for _, o := range f.Options {
		code, display := o.Value, o.Label
		item.AnswerOption = append(item.AnswerOption, r4.QuestionnaireItemAnswerOption{
			ValueCoding: &r4.Coding{
				System:  optString(c.reg.OptionSystem),
				Code:    &code,
				Display: optString(display),
			},
		})
	}

	if initial, ok := initialValue(typ, f.DefaultValue); ok {
		item.Initial = []r4.QuestionnaireItemInitial{initial}
	}

	c.addConditional(&item, f)

	item.Extension = append(item.Extension, c.passThrough(f.UnknownExtensions, f.LinkID)...)

	for i := range f.Items {
		item.Item = append(item.Item, c.ToItem(&f.Items[i]))
	}
	return item
}

func (c *Converter) addPresentation(item *r4.QuestionnaireItem, f *field.Config) {
	if f.Text != "" {
		item.Extension = append(item.Extension, stringExtension(c.reg.HelpText, f.Text))
	}
	if f.SecondaryLabel != "" {
		item.Extension = append(item.Extension, stringExtension(c.reg.SecondaryLabel, f.SecondaryLabel))
	}
	if len(f.Styling) > 0 {
		if ext, ok := c.jsonExtension(c.reg.Styling, f.Styling, f.LinkID); ok {
			item.Extension = append(item.Extension, ext)
		}
	}
	if f.PatientBinding != nil {
		if ext, ok := c.jsonExtension(c.reg.PatientBinding, f.PatientBinding, f.LinkID); ok {
			item.Extension = append(item.Extension, ext)
		}
	}
	if f.Order != nil {
		item.Extension = append(item.Extension, integerExtension(c.reg.Order, *f.Order))
	}
	if f.HasTextInput {
		item.Extension = append(item.Extension, booleanExtension(c.reg.HasTextInput, true))
	}
	switch f.Type {
	case field.TypeRadio:
		item.Extension = append(item.Extension, c.itemControl(ControlRadio))
	case field.TypeCheckbox:
		item.Extension = append(item.Extension, c.itemControl(ControlCheckbox))
	}
}

func (c *Converter) addConstraints(item *r4.QuestionnaireItem, f *field.Config) {
	v := f.Validation
	if v == nil {
		return
	}
	if v.MaxLength != nil {
		n := *v.MaxLength
		item.MaxLength = &n
	}
	if v.MinLength != nil {
		item.Extension = append(item.Extension, integerExtension(c.reg.MinLength, *v.MinLength))
	}
	if v.Min != nil {
		item.Extension = append(item.Extension, boundExtension(c.reg.MinValue, f.Type, *v.Min))
	}
	if v.Max != nil {
		item.Extension = append(item.Extension, boundExtension(c.reg.MaxValue, f.Type, *v.Max))
	}
	if v.Pattern != "" {
		item.Extension = append(item.Extension, stringExtension(c.reg.Regex, v.Pattern))
	}
	if v.PatternMessage != "" {
		item.Extension = append(item.Extension, stringExtension(c.reg.PatternMessage, v.PatternMessage))
	}
	if v.CustomValidator != nil {
		raw, err := json.Marshal(v.CustomValidator)
		if err != nil {
			c.log.Warn("field %s: cannot encode custom validator: %v", f.LinkID, err)
			return
		}
		item.Extension = append(item.Extension, stringExtension(c.reg.CustomValidator, string(raw)))
	}
}

// nativeConditional reports whether cond fits enableWhen without loss.
func nativeConditional(cond *field.Conditional) bool {
	if !cond.Active() {
		return false
	}
	for _, cd := range cond.Conditions {
		if !cd.Operator.Known() {
			return false
		}
		if cd.Operator != field.OpExists {
			if _, ok := answerValue(cd.Answer); !ok {
				return false
			}
		}
	}
	return true
}

func (c *Converter) addConditional(item *r4.QuestionnaireItem, f *field.Config) {
	cond := f.Conditional
	if cond == nil {
		return
	}
	if !nativeConditional(cond) {
		if ext, ok := c.jsonExtension(c.reg.Conditional, cond, f.LinkID); ok {
			item.Extension = append(item.Extension, ext)
		}
		return
	}

	for _, cd := range cond.Conditions {
		question := cd.QuestionID
		op := r4.QuestionnaireItemOperator(cd.Operator)
		ew := r4.QuestionnaireItemEnableWhen{Question: &question, Operator: &op}
		if cd.Operator == field.OpExists {
			t := true
			ew.AnswerBoolean = &t
		} else {
			ans, _ := answerValue(cd.Answer)
			ans.apply(&ew)
		}
		item.EnableWhen = append(item.EnableWhen, ew)
	}
	behavior := r4.EnableWhenBehavior(cond.Combinator())
	item.EnableBehavior = &behavior
}

// typedAnswer is a condition answer in its enableWhen form.
type typedAnswer struct {
	b *bool
	i *int
	d *float64
	s *string
}

func (a typedAnswer) apply(ew *r4.QuestionnaireItemEnableWhen) {
	ew.AnswerBoolean = a.b
	ew.AnswerInteger = a.i
	ew.AnswerDecimal = a.d
	ew.AnswerString = a.s
}

func answerValue(v any) (typedAnswer, bool) {
	switch val := v.(type) {
	case bool:
		return typedAnswer{b: &val}, true
	case string:
		return typedAnswer{s: &val}, true
	case nil:
		return typedAnswer{}, false
	}
	n, ok := primitive.AsNumber(v)
	if !ok {
		return typedAnswer{}, false
	}
	if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
		i := int(n)
		return typedAnswer{i: &i}, true
	}
	return typedAnswer{d: &n}, true
}

func initialValue(t field.Type, v any) (r4.QuestionnaireItemInitial, bool) {
	var init r4.QuestionnaireItemInitial
	if v == nil || !t.CarriesAnswer() {
		return init, false
	}
	switch t {
	case field.TypeInteger:
		if n, ok := primitive.AsNumber(v); ok && n == math.Trunc(n) {
			i := int(n)
			init.ValueInteger = &i
			return init, true
		}
	case field.TypeDecimal:
		if n, ok := primitive.AsNumber(v); ok {
			init.ValueDecimal = &n
			return init, true
		}
	case field.TypeBoolean:
		if b, ok := primitive.AsBool(v); ok {
			init.ValueBoolean = &b
			return init, true
		}
	case field.TypeDate:
		if s, ok := v.(string); ok {
			init.ValueDate = &s
			return init, true
		}
	case field.TypeDateTime:
		if s, ok := v.(string); ok {
			init.ValueDateTime = &s
			return init, true
		}
	case field.TypeTime:
		if s, ok := v.(string); ok {
			init.ValueTime = &s
			return init, true
		}
	}
	s, ok := primitive.AsString(v)
	if !ok {
		return init, false
	}
	init.ValueString = &s
	return init, true
}

// FromItem maps one Questionnaire item back to a field.
func (c *Converter) FromItem(item *r4.QuestionnaireItem) field.Config {
	return c.fromItem(item, issue.NewResult())
}

func (c *Converter) fromItem(item *r4.QuestionnaireItem, report *issue.Result) field.Config {
	f := field.Config{
		ID:       derefString(item.Id),
		LinkID:   derefString(item.LinkId),
		Label:    derefString(item.Text),
		Required: derefBool(item.Required),
		ReadOnly: derefBool(item.ReadOnly),
		Repeats:  derefBool(item.Repeats),
	}
	if f.ID == "" {
		f.ID = f.LinkID
	}

	itemType := ""
	if item.Type != nil {
		itemType = string(*item.Type)
	}
	f.Type = field.TypeText
	if t, ok := fieldTypes[itemType]; ok {
		f.Type = t
	}

	validation := &field.Validation{}
	if item.MaxLength != nil {
		n := *item.MaxLength
		validation.MaxLength = &n
	}

	explicitType := false
	var customRaw string
	for _, ext := range item.Extension {
		url := ext.Url
		switch url {
		case c.reg.FieldType:
			if ext.ValueString != nil && *ext.ValueString != "" {
				f.Type = field.Type(*ext.ValueString)
				explicitType = true
			}
		case c.reg.HelpText:
			f.Text = derefString(ext.ValueString)
		case c.reg.SecondaryLabel:
			f.SecondaryLabel = derefString(ext.ValueString)
		case c.reg.Styling:
			var styling map[string]any
			if c.decodeJSONExtension(ext, &styling, f.LinkID, report) {
				f.Styling = styling
			} else {
				f.UnknownExtensions = c.keepExtension(f.UnknownExtensions, ext)
			}
		case c.reg.PatientBinding:
			var pb field.PatientBinding
			if c.decodeJSONExtension(ext, &pb, f.LinkID, report) {
				f.PatientBinding = &pb
			} else {
				f.UnknownExtensions = c.keepExtension(f.UnknownExtensions, ext)
			}
		case c.reg.Order:
			if ext.ValueInteger != nil {
				n := *ext.ValueInteger
				f.Order = &n
			}
		case c.reg.HasTextInput:
			f.HasTextInput = derefBool(ext.ValueBoolean)
		case c.reg.PatternMessage:
			validation.PatternMessage = derefString(ext.ValueString)
		case c.reg.CustomValidator:
			customRaw = derefString(ext.ValueString)
		case c.reg.Conditional:
			var cond field.Conditional
			if c.decodeJSONExtension(ext, &cond, f.LinkID, report) {
				f.Conditional = &cond
			} else {
				f.UnknownExtensions = c.keepExtension(f.UnknownExtensions, ext)
			}
		case c.reg.MinLength:
			if ext.ValueInteger != nil {
				n := *ext.ValueInteger
				validation.MinLength = &n
			}
		case c.reg.MinValue:
			validation.Min = extensionNumber(ext)
		case c.reg.MaxValue:
			validation.Max = extensionNumber(ext)
		case c.reg.Regex:
			validation.Pattern = derefString(ext.ValueString)
		case c.reg.ItemControl:
			if !explicitType && f.Type == field.TypeChoice {
				switch itemControlCode(ext) {
				case ControlRadio:
					f.Type = field.TypeRadio
				case ControlCheckbox:
					f.Type = field.TypeCheckbox
				}
			}
		default:
			report.AddWithID(issue.DiagUnknownExtension, map[string]any{"url": url, "linkId": f.LinkID}, f.LinkID)
			report.Issues[len(report.Issues)-1].Source = Source
			f.UnknownExtensions = c.keepExtension(f.UnknownExtensions, ext)
		}
	}

	if customRaw != "" {
		validation.CustomValidator = field.ParseCustomValidator([]byte(customRaw))
	}
	if *validation != (field.Validation{}) {
		f.Validation = validation
	}

	for _, ao := range item.AnswerOption {
		if opt, ok := optionFromAnswer(ao); ok {
			f.Options = append(f.Options, opt)
		}
	}

	if len(item.Initial) > 0 {
		f.DefaultValue = initialToValue(item.Initial[0])
	}

	if f.Conditional == nil && len(item.EnableWhen) > 0 {
		f.Conditional = conditionalFromEnableWhen(item)
	}

	for i := range item.Item {
		f.Items = append(f.Items, c.fromItem(&item.Item[i], report))
	}
	return f
}

func optionFromAnswer(ao r4.QuestionnaireItemAnswerOption) (field.Option, bool) {
	switch {
	case ao.ValueCoding != nil:
		code := derefString(ao.ValueCoding.Code)
		return field.Option{Value: code, Label: derefString(ao.ValueCoding.Display)}, code != ""
	case ao.ValueString != nil:
		return field.Option{Value: *ao.ValueString, Label: *ao.ValueString}, true
	case ao.ValueInteger != nil:
		s := fmt.Sprint(*ao.ValueInteger)
		return field.Option{Value: s, Label: s}, true
	}
	return field.Option{}, false
}

func initialToValue(init r4.QuestionnaireItemInitial) any {
	switch {
	case init.ValueBoolean != nil:
		return *init.ValueBoolean
	case init.ValueInteger != nil:
		return float64(*init.ValueInteger)
	case init.ValueDecimal != nil:
		return *init.ValueDecimal
	case init.ValueDate != nil:
		return *init.ValueDate
	case init.ValueDateTime != nil:
		return *init.ValueDateTime
	case init.ValueTime != nil:
		return *init.ValueTime
	case init.ValueString != nil:
		return *init.ValueString
	case init.ValueCoding != nil:
		return derefString(init.ValueCoding.Code)
	}
	return nil
}

func conditionalFromEnableWhen(item *r4.QuestionnaireItem) *field.Conditional {
	cond := &field.Conditional{Enabled: true, Operator: field.CombineAll}
	if item.EnableBehavior != nil && string(*item.EnableBehavior) == string(field.CombineAny) {
		cond.Operator = field.CombineAny
	}
	for _, ew := range item.EnableWhen {
		cd := field.Condition{QuestionID: derefString(ew.Question)}
		if ew.Operator != nil {
			cd.Operator = field.Operator(*ew.Operator)
		}
		if cd.Operator != field.OpExists {
			cd.Answer = enableWhenAnswer(ew)
		}
		cond.Conditions = append(cond.Conditions, cd)
	}
	return cond
}

func enableWhenAnswer(ew r4.QuestionnaireItemEnableWhen) any {
	switch {
	case ew.AnswerBoolean != nil:
		return *ew.AnswerBoolean
	case ew.AnswerInteger != nil:
		return float64(*ew.AnswerInteger)
	case ew.AnswerDecimal != nil:
		return *ew.AnswerDecimal
	case ew.AnswerString != nil:
		return *ew.AnswerString
	case ew.AnswerDate != nil:
		return *ew.AnswerDate
	case ew.AnswerDateTime != nil:
		return *ew.AnswerDateTime
	case ew.AnswerTime != nil:
		return *ew.AnswerTime
	case ew.AnswerCoding != nil:
		return derefString(ew.AnswerCoding.Code)
	}
	return nil
}
