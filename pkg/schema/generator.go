package schema

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/cache"
	"github.com/gofhir/forms/pkg/constraint"
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/logger"
	"github.com/gofhir/forms/pkg/primitive"
	"github.com/gofhir/forms/pkg/questionnaire"
	"github.com/gofhir/forms/pkg/rules"
)

// ErrNilFields is returned when Generate is called without a field list.
var ErrNilFields = errors.New("schema: nil field list")

// Messages of the built-in constraints.
const (
	MsgNotAnOption    = "Must be one of the available options"
	MsgPatternDefault = "Invalid format"
	MsgExpression     = "Value does not satisfy the field constraint"
)

// DefaultPatternCacheSize bounds the number of compiled patterns kept.
const DefaultPatternCacheSize = 256

// Generator builds schemas. A Generator is safe for concurrent use once
// constructed, provided the rules registry is not modified.
type Generator struct {
	log      *logger.Logger
	rules    *rules.Registry
	exprs    *constraint.Evaluator
	patterns *cache.LRU[string, *regexp.Regexp]
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for skipped configuration.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRules sets the validator library. Its clock drives date rules.
func WithRules(r *rules.Registry) Option {
	return func(g *Generator) {
		if r != nil {
			g.rules = r
		}
	}
}

// WithEvaluator sets the FHIRPath evaluator for expression validators.
func WithEvaluator(e *constraint.Evaluator) Option {
	return func(g *Generator) {
		if e != nil {
			g.exprs = e
		}
	}
}

// WithPatternCache sets the capacity of the compiled pattern cache.
func WithPatternCache(size int) Option {
	return func(g *Generator) {
		g.patterns = cache.New[string, *regexp.Regexp](size)
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		log:      logger.Default(),
		rules:    rules.New(nil),
		exprs:    constraint.New(0),
		patterns: cache.New[string, *regexp.Regexp](DefaultPatternCacheSize),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PatternCacheStats reports the compiled pattern cache counters.
func (g *Generator) PatternCacheStats() cache.Stats {
	return g.patterns.Stats()
}

// ExpressionCacheStats reports the compiled expression cache counters.
func (g *Generator) ExpressionCacheStats() cache.Stats {
	return g.exprs.Stats()
}

// Generate builds a schema for fields, including the children of groups.
// Display and group fields get no rule. Bad constraint configuration is
// skipped, logged, and recorded in Schema.Diagnostics.
func (g *Generator) Generate(fields []field.Config) (*Schema, error) {
	if fields == nil {
		return nil, ErrNilFields
	}

	s := newSchema()
	field.Walk(fields, func(f *field.Config, _ *field.Config) {
		if !f.Type.CarriesAnswer() {
			return
		}
		s.add(g.rule(f, s.diagnostics))
	})
	return s, nil
}

// GenerateForm builds the schema of a form.
func (g *Generator) GenerateForm(form *field.Form) (*Schema, error) {
	if form == nil {
		return nil, ErrNilFields
	}
	fields := form.Fields
	if fields == nil {
		fields = []field.Config{}
	}
	return g.Generate(fields)
}

// GenerateQuestionnaire converts q and builds the schema of the result.
// It validates exactly like GenerateForm on the form q was produced from.
func (g *Generator) GenerateQuestionnaire(q *r4.Questionnaire, conv *questionnaire.Converter) (*Schema, error) {
	if conv == nil {
		conv = questionnaire.NewConverter(nil)
	}
	form, err := conv.FromQuestionnaire(q)
	if err != nil {
		return nil, fmt.Errorf("convert questionnaire: %w", err)
	}
	return g.GenerateForm(form)
}

func (g *Generator) rule(f *field.Config, diags *issue.Result) *Rule {
	typ := f.Type.Normalize()
	r := &Rule{
		LinkID:   f.LinkID,
		Type:     typ,
		Format:   primitive.ForType(typ),
		Required: f.EffectiveRequired(),
		Repeats:  f.Repeats || typ == field.TypeCheckbox,
	}

	format := r.Format
	r.checks = append(r.checks, check{name: "type:" + string(format), fn: func(v any) rules.Result {
		return primitive.Check(format, v)
	}})

	if typ.IsClosedChoice() && len(f.Options) > 0 && !f.HasTextInput {
		r.checks = append(r.checks, optionCheck(f.Options))
	}

	v := f.Validation
	if v == nil {
		return r
	}

	if typ.IsStringType() {
		g.addLengthChecks(r, f, diags)
	}
	if typ.IsNumericType() {
		addNumericChecks(r, v)
	}
	if v.Pattern != "" {
		g.addPatternCheck(r, f, diags)
	}
	if v.CustomValidator != nil {
		g.addCustomCheck(r, f, diags)
	}
	return r
}

func optionCheck(options []field.Option) check {
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o.Value] = struct{}{}
	}
	return check{name: "options", fn: func(v any) rules.Result {
		s, ok := primitive.AsString(v)
		if !ok {
			return rules.Fail(MsgNotAnOption)
		}
		if _, ok := allowed[s]; !ok {
			return rules.Fail(MsgNotAnOption)
		}
		return rules.OK
	}}
}

func (g *Generator) addLengthChecks(r *Rule, f *field.Config, diags *issue.Result) {
	v := f.Validation
	if v.MinLength != nil {
		if n := *v.MinLength; n < 0 {
			g.skip(diags, issue.DiagFormShape, f, map[string]any{"error": fmt.Sprintf("field '%s' has negative minLength %d", f.LinkID, n)})
		} else {
			r.checks = append(r.checks, check{name: "minLength", fn: func(val any) rules.Result {
				if s, ok := val.(string); ok && utf8.RuneCountInString(s) < n {
					return rules.Fail(fmt.Sprintf("Must be at least %d characters", n))
				}
				return rules.OK
			}})
		}
	}
	if v.MaxLength != nil {
		if n := *v.MaxLength; n < 0 {
			g.skip(diags, issue.DiagFormShape, f, map[string]any{"error": fmt.Sprintf("field '%s' has negative maxLength %d", f.LinkID, n)})
		} else {
			r.checks = append(r.checks, check{name: "maxLength", fn: func(val any) rules.Result {
				if s, ok := val.(string); ok && utf8.RuneCountInString(s) > n {
					return rules.Fail(fmt.Sprintf("Must be at most %d characters", n))
				}
				return rules.OK
			}})
		}
	}
}

func addNumericChecks(r *Rule, v *field.Validation) {
	if v.Min != nil {
		lo := *v.Min
		r.checks = append(r.checks, check{name: "min", fn: func(val any) rules.Result {
			if n, ok := primitive.AsNumber(val); ok && n < lo {
				return rules.Fail(fmt.Sprintf("Must be at least %s", formatBound(lo)))
			}
			return rules.OK
		}})
	}
	if v.Max != nil {
		hi := *v.Max
		r.checks = append(r.checks, check{name: "max", fn: func(val any) rules.Result {
			if n, ok := primitive.AsNumber(val); ok && n > hi {
				return rules.Fail(fmt.Sprintf("Must be at most %s", formatBound(hi)))
			}
			return rules.OK
		}})
	}
}

func formatBound(f float64) string {
	s, _ := primitive.AsString(f)
	return s
}

func (g *Generator) addPatternCheck(r *Rule, f *field.Config, diags *issue.Result) {
	v := f.Validation
	re, err := g.patterns.GetOrCompute(v.Pattern, func() (*regexp.Regexp, error) {
		return regexp.Compile(v.Pattern)
	})
	if err != nil {
		g.skip(diags, issue.DiagInvalidPattern, f, map[string]any{"error": err.Error()})
		return
	}
	msg := v.PatternMessage
	if msg == "" {
		msg = MsgPatternDefault
	}
	r.checks = append(r.checks, check{name: "pattern", fn: func(val any) rules.Result {
		s, ok := primitive.AsString(val)
		if !ok {
			return rules.OK
		}
		if !re.MatchString(s) {
			return rules.Fail(msg)
		}
		return rules.OK
	}})
}

func (g *Generator) addCustomCheck(r *Rule, f *field.Config, diags *issue.Result) {
	cv := f.Validation.CustomValidator
	switch cv.Kind {
	case field.ValidatorInvalid:
		g.skip(diags, issue.DiagInvalidValidator, f, map[string]any{"reason": cv.Reason})

	case field.ValidatorDateRange:
		r.checks = append(r.checks, stringCheck(string(cv.Kind), g.rules.DateRange(rules.DateRangeOptions{
			AllowFuture: cv.AllowFuture,
			MaxAgeYears: cv.MaxAgeYears,
		})))

	case field.ValidatorExpression:
		if err := g.exprs.Compile(cv.Expression); err != nil {
			g.skip(diags, issue.DiagInvalidExpression, f, map[string]any{"error": err.Error()})
			return
		}
		r.checks = append(r.checks, g.expressionCheck(f.LinkID, cv))

	default:
		fn, ok := g.rules.Lookup(string(cv.Kind))
		if !ok {
			g.skip(diags, issue.DiagInvalidValidator, f, map[string]any{"reason": fmt.Sprintf("validator '%s' is not registered", cv.Kind)})
			return
		}
		r.checks = append(r.checks, stringCheck(string(cv.Kind), fn))
	}
}

func stringCheck(name string, fn rules.Func) check {
	return check{name: "custom:" + name, fn: func(val any) rules.Result {
		s, ok := primitive.AsString(val)
		if !ok {
			return rules.OK
		}
		return fn(s)
	}}
}

func (g *Generator) expressionCheck(linkID string, cv *field.CustomValidator) check {
	expr := cv.Expression
	msg := cv.Message
	if msg == "" {
		msg = MsgExpression
	}
	return check{name: "custom:expression", fn: func(val any) rules.Result {
		ok, err := g.exprs.Satisfied(expr, val)
		if err != nil {
			g.log.Warn("field %s: expression %q failed: %v", linkID, expr, err)
			return rules.Fail(msg)
		}
		if !ok {
			return rules.Fail(msg)
		}
		return rules.OK
	}}
}

func (g *Generator) skip(diags *issue.Result, id issue.DiagnosticID, f *field.Config, params map[string]any) {
	params["linkId"] = f.LinkID
	iss := diags.AddWithID(id, params, f.LinkID)
	diags.Issues[len(diags.Issues)-1].Source = Source
	g.log.Warn("%s", iss.Diagnostics)
}
