// Package constraint evaluates FHIRPath expressions used as custom answer
// constraints. Each expression runs against {"value": <answer>}.
package constraint

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/funcs"

	"github.com/gofhir/forms/cache"
)

// DefaultCacheSize bounds the number of compiled expressions kept.
const DefaultCacheSize = 512

func init() {
	// trace() output would otherwise go to stderr on every evaluation.
	funcs.SetTraceLogger(funcs.NullTraceLogger{})
}

// Evaluator compiles and runs answer expressions. It is safe for concurrent use.
type Evaluator struct {
	exprs *cache.LRU[string, *fhirpath.Expression]
}

// New creates an Evaluator with a compile cache of the given size.
func New(cacheSize int) *Evaluator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Evaluator{exprs: cache.New[string, *fhirpath.Expression](cacheSize)}
}

// Compile checks that expr is valid FHIRPath and caches the compiled form.
func (e *Evaluator) Compile(expr string) error {
	_, err := e.compiled(expr)
	return err
}

func (e *Evaluator) compiled(expr string) (*fhirpath.Expression, error) {
	return e.exprs.GetOrCompute(expr, func() (*fhirpath.Expression, error) {
		return fhirpath.Compile(expr)
	})
}

// Satisfied evaluates expr with value bound to the "value" element.
//
// An empty result means the expression does not apply and counts as satisfied.
// A non-boolean result is truthy.
func (e *Evaluator) Satisfied(expr string, value any) (bool, error) {
	compiled, err := e.compiled(expr)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expr, err)
	}

	doc, err := json.Marshal(map[string]any{"value": value})
	if err != nil {
		return false, fmt.Errorf("encode answer: %w", err)
	}

	result, err := compiled.Evaluate(doc)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return passed(result), nil
}

func passed(result fhirpath.Collection) bool {
	if result.Empty() {
		return true
	}
	b, err := result.ToBoolean()
	if err != nil {
		return true
	}
	return b
}

// Stats reports compile cache counters.
func (e *Evaluator) Stats() cache.Stats {
	return e.exprs.Stats()
}
