package forms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/forms/cache"
	"github.com/gofhir/forms/pkg/builder"
	"github.com/gofhir/forms/pkg/constraint"
	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/issue"
	"github.com/gofhir/forms/pkg/questionnaire"
	"github.com/gofhir/forms/pkg/rules"
	"github.com/gofhir/forms/pkg/schema"
	"github.com/gofhir/forms/pkg/visibility"
	"github.com/gofhir/forms/worker"
)

// ErrNilForm is returned when an operation needs a form and got nil.
var ErrNilForm = errors.New("form is nil")

// Engine wires the form components together. The generator and its caches
// are shared, so one Engine can serve many requests concurrently.
type Engine struct {
	opts      *Options
	rules     *rules.Registry
	exprs     *constraint.Evaluator
	generator *schema.Generator
	converter *questionnaire.Converter
	metrics   *Metrics
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if !o.FHIRVersion.Supported() {
		o.Logger.Warn("FHIR version %s is not supported, using %s", o.FHIRVersion, R4)
		o.FHIRVersion = R4
	}

	reg := o.Rules
	if reg == nil {
		reg = rules.New(o.Clock)
	}
	exprs := constraint.New(o.ExpressionCacheSize)

	return &Engine{
		opts:  o,
		rules: reg,
		exprs: exprs,
		generator: schema.NewGenerator(
			schema.WithLogger(o.Logger),
			schema.WithRules(reg),
			schema.WithEvaluator(exprs),
			schema.WithPatternCache(o.PatternCacheSize),
		),
		converter: questionnaire.NewConverter(o.Extensions, questionnaire.WithLogger(o.Logger)),
		metrics:   NewMetrics(),
	}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return *e.opts
}

// Rules returns the validator registry.
func (e *Engine) Rules() *rules.Registry {
	return e.rules
}

// Converter returns the Questionnaire converter.
func (e *Engine) Converter() *questionnaire.Converter {
	return e.converter
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Stats combines the counters with the cache statistics.
type Stats struct {
	Metrics         Snapshot    `json:"metrics"`
	PatternCache    cache.Stats `json:"pattern_cache"`
	ExpressionCache cache.Stats `json:"expression_cache"`
}

// Stats returns a snapshot of the engine counters and caches.
func (e *Engine) Stats() Stats {
	return Stats{
		Metrics:         e.metrics.Snapshot(),
		PatternCache:    e.generator.PatternCacheStats(),
		ExpressionCache: e.generator.ExpressionCacheStats(),
	}
}

// Schema generates the validation schema for fields.
func (e *Engine) Schema(fields []field.Config) (*schema.Schema, error) {
	start := time.Now()
	s, err := e.generator.Generate(fields)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordSchemaBuild(time.Since(start))
	return s, nil
}

// Visibility computes which fields are shown for answers.
func (e *Engine) Visibility(fields []field.Config, answers map[string]any) *visibility.Result {
	start := time.Now()
	r := visibility.Evaluate(fields, answers)
	e.metrics.RecordVisibility(time.Since(start))
	return r
}

// Report is the outcome of validating an answer set against a form.
type Report struct {
	// Issues holds one error per failing visible field, followed by schema
	// diagnostics about configuration that was skipped.
	Issues *issue.Result `json:"issues"`

	// Errors maps linkId to the first error message of that field.
	Errors map[string]string `json:"errors"`

	VisibleLinkIDs []string `json:"visibleLinkIds"`
	HiddenLinkIDs  []string `json:"hiddenLinkIds,omitempty"`
}

// Valid reports whether no visible field failed.
func (r *Report) Valid() bool {
	return !r.Issues.HasErrors()
}

// Validate checks answers against form. Hidden fields are not validated.
func (e *Engine) Validate(form *field.Form, answers map[string]any) (*Report, error) {
	if form == nil {
		return nil, ErrNilForm
	}
	s, err := e.Schema(form.Fields)
	if err != nil {
		return nil, err
	}
	return e.validate(s, form.Fields, answers), nil
}

// ValidateBatch validates many answer sets against one form concurrently.
// Reports are in input order. When ctx ends early the reports of answer sets
// that were not reached are nil and ctx's error is returned with them.
func (e *Engine) ValidateBatch(ctx context.Context, form *field.Form, answerSets []map[string]any) ([]*Report, error) {
	if form == nil {
		return nil, ErrNilForm
	}
	s, err := e.Schema(form.Fields)
	if err != nil {
		return nil, err
	}

	batch := worker.Run(ctx, answerSets, e.opts.Workers,
		func(_ context.Context, answers map[string]any) (*Report, error) {
			return e.validate(s, form.Fields, answers), nil
		})
	e.opts.Logger.Debug("validated %d of %d answer sets in %s",
		batch.CompletedJobs, batch.TotalJobs, batch.TotalDuration)
	return batch.Values(), batch.Err()
}

func (e *Engine) validate(s *schema.Schema, fields []field.Config, answers map[string]any) *Report {
	vis := e.Visibility(fields, answers)

	start := time.Now()
	res := s.Validate(answers, vis.Visible)
	e.metrics.RecordValidation(time.Since(start), res)

	errs := res.FirstByExpression()
	res.Merge(s.Diagnostics())
	return &Report{
		Issues:         res,
		Errors:         errs,
		VisibleLinkIDs: vis.VisibleLinkIDs(),
		HiddenLinkIDs:  vis.HiddenLinkIDs(),
	}
}

// ValidateResponse checks a stored QuestionnaireResponse against form.
func (e *Engine) ValidateResponse(form *field.Form, qr *r4.QuestionnaireResponse) (*Report, error) {
	if qr == nil {
		return nil, errors.New("questionnaire response is nil")
	}
	return e.Validate(form, questionnaire.AnswersFromResponse(qr))
}

// Lint reports structural problems of form.
func (e *Engine) Lint(form *field.Form) (*issue.Result, error) {
	if form == nil {
		return nil, ErrNilForm
	}
	res := builder.Lint(form.Fields)
	if err := form.Validate(); err != nil {
		res.AddWithID(issue.DiagFormShape, map[string]any{"error": err})
	}
	e.metrics.RecordIssues(res)
	return res, nil
}

// ToQuestionnaire converts form to a Questionnaire.
func (e *Engine) ToQuestionnaire(form *field.Form) (*r4.Questionnaire, error) {
	start := time.Now()
	q, err := e.converter.ToQuestionnaire(form)
	if err != nil {
		return nil, fmt.Errorf("convert form: %w", err)
	}
	e.metrics.RecordConversion(time.Since(start))
	return q, nil
}

// FromQuestionnaire converts q to a form. The result lists extensions that
// were kept opaquely or could not be read.
func (e *Engine) FromQuestionnaire(q *r4.Questionnaire) (*field.Form, *issue.Result, error) {
	start := time.Now()
	form, report, err := e.converter.FromQuestionnaireReport(q)
	if err != nil {
		return nil, nil, fmt.Errorf("convert questionnaire: %w", err)
	}
	e.metrics.RecordConversion(time.Since(start))
	e.metrics.RecordIssues(report)
	return form, report, nil
}
