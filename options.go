package forms

import (
	"time"

	"github.com/gofhir/forms/pkg/builder"
	"github.com/gofhir/forms/pkg/logger"
	"github.com/gofhir/forms/pkg/questionnaire"
	"github.com/gofhir/forms/pkg/rules"
)

// Option configures the Engine.
type Option func(*Options)

// Options holds all configuration for the Engine.
type Options struct {
	// Clock drives the date validators. Nil means time.Now.
	Clock func() time.Time

	Logger *logger.Logger

	// Extensions names the custom Questionnaire extension URIs.
	Extensions *questionnaire.Registry

	// Rules replaces the built-in validator registry; Clock is then ignored.
	Rules *rules.Registry

	FHIRVersion FHIRVersion

	// Builder
	HistoryLimit int

	// Cache sizes
	PatternCacheSize    int
	ExpressionCacheSize int

	// Workers bounds the goroutines of ValidateBatch. Zero means one per CPU.
	Workers int
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Clock:               time.Now,
		Logger:              logger.Default(),
		Extensions:          questionnaire.DefaultRegistry(),
		FHIRVersion:         R4,
		HistoryLimit:        builder.DefaultHistoryLimit,
		PatternCacheSize:    256,
		ExpressionCacheSize: 512,
	}
}

// WithClock sets the time source used by date validators.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// WithLogger sets the logger every component writes to.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithExtensionRegistry sets the extension URI table used by the converter.
func WithExtensionRegistry(reg *questionnaire.Registry) Option {
	return func(o *Options) {
		if reg != nil {
			o.Extensions = reg
		}
	}
}

// WithExtensionBase builds the extension URI table from a base URL and version.
func WithExtensionBase(base, version string) Option {
	return func(o *Options) {
		o.Extensions = questionnaire.NewRegistry(base, version)
	}
}

// WithRules replaces the validator registry, for hosts that register their own rules.
func WithRules(r *rules.Registry) Option {
	return func(o *Options) {
		o.Rules = r
	}
}

// WithFHIRVersion selects the FHIR release documents are exchanged in.
func WithFHIRVersion(v FHIRVersion) Option {
	return func(o *Options) {
		o.FHIRVersion = v
	}
}

// WithHistoryLimit caps the undo history of new sessions.
func WithHistoryLimit(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.HistoryLimit = n
		}
	}
}

// WithPatternCache sets the compiled-regex cache size.
func WithPatternCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.PatternCacheSize = size
		}
	}
}

// WithExpressionCache sets the FHIRPath expression cache size.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// WithWorkers bounds the goroutines used by ValidateBatch.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}
