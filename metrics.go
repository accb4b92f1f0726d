package forms

import (
	"sync/atomic"
	"time"

	"github.com/gofhir/forms/pkg/issue"
)

// Metrics counts engine work using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	schemaBuilds timing
	validations  timing
	visibility   timing
	conversions  timing

	validationsValid atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64
}

// timing accumulates durations of one kind of operation. Times are stored
// as nanoseconds.
type timing struct {
	count atomic.Uint64
	total atomic.Uint64
	min   atomic.Uint64
	max   atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

func (t *timing) reset() {
	t.count.Store(0)
	t.total.Store(0)
	// First value becomes the minimum.
	t.min.Store(^uint64(0))
	t.max.Store(0)
}

func (t *timing) record(d time.Duration) {
	ns := uint64(max(d.Nanoseconds(), 0))
	t.count.Add(1)
	t.total.Add(ns)

	for {
		old := t.min.Load()
		if ns >= old || t.min.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := t.max.Load()
		if ns <= old || t.max.CompareAndSwap(old, ns) {
			break
		}
	}
}

// TimingStats summarizes one kind of operation.
type TimingStats struct {
	Count   uint64 `json:"count"`
	TotalNs uint64 `json:"total_ns"`
	AvgNs   uint64 `json:"avg_ns"`
	MinNs   uint64 `json:"min_ns"`
	MaxNs   uint64 `json:"max_ns"`
}

// Avg returns the mean duration.
func (s TimingStats) Avg() time.Duration {
	return time.Duration(s.AvgNs) //nolint:gosec // nanoseconds within int64 range
}

func (t *timing) stats() TimingStats {
	s := TimingStats{
		Count:   t.count.Load(),
		TotalNs: t.total.Load(),
		MinNs:   t.min.Load(),
		MaxNs:   t.max.Load(),
	}
	if s.Count == 0 {
		s.MinNs = 0
		return s
	}
	s.AvgNs = s.TotalNs / s.Count
	return s
}

// --- Recording Methods ---

// RecordSchemaBuild records one schema generation.
func (m *Metrics) RecordSchemaBuild(d time.Duration) {
	m.schemaBuilds.record(d)
}

// RecordValidation records one answer-set validation and its issues.
func (m *Metrics) RecordValidation(d time.Duration, res *issue.Result) {
	m.validations.record(d)
	if res == nil || !res.HasErrors() {
		m.validationsValid.Add(1)
	}
	m.RecordIssues(res)
}

// RecordVisibility records one visibility recomputation.
func (m *Metrics) RecordVisibility(d time.Duration) {
	m.visibility.record(d)
}

// RecordConversion records one Questionnaire conversion in either direction.
func (m *Metrics) RecordConversion(d time.Duration) {
	m.conversions.record(d)
}

// RecordIssues counts issues by severity.
func (m *Metrics) RecordIssues(res *issue.Result) {
	if res == nil {
		return
	}
	for _, iss := range res.Issues {
		switch iss.Severity {
		case issue.SeverityError, issue.SeverityFatal:
			m.errorsTotal.Add(1)
		case issue.SeverityWarning:
			m.warningsTotal.Add(1)
		case issue.SeverityInformation:
			m.infosTotal.Add(1)
		}
	}
}

// --- Query Methods ---

// ValidationsTotal returns the number of validations performed.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validations.count.Load()
}

// ValidationRate returns the share of validations without errors (0.0 to 1.0).
func (m *Metrics) ValidationRate() float64 {
	total := m.validations.count.Load()
	if total == 0 {
		return 0
	}
	return float64(m.validationsValid.Load()) / float64(total)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	SchemaBuilds TimingStats `json:"schema_builds"`
	Validations  TimingStats `json:"validations"`
	Visibility   TimingStats `json:"visibility"`
	Conversions  TimingStats `json:"conversions"`

	ValidationsValid uint64  `json:"validations_valid"`
	ValidationRate   float64 `json:"validation_rate"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:        time.Now(),
		SchemaBuilds:     m.schemaBuilds.stats(),
		Validations:      m.validations.stats(),
		Visibility:       m.visibility.stats(),
		Conversions:      m.conversions.stats(),
		ValidationsValid: m.validationsValid.Load(),
		ValidationRate:   m.ValidationRate(),
		ErrorsTotal:      m.errorsTotal.Load(),
		WarningsTotal:    m.warningsTotal.Load(),
		InfosTotal:       m.infosTotal.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.schemaBuilds.reset()
	m.validations.reset()
	m.visibility.reset()
	m.conversions.reset()
	m.validationsValid.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)
}
