package rules

import (
	"sort"
	"time"
)

// Registry maps validator names to functions. Each registry carries its own
// clock so date rules are deterministic under test.
type Registry struct {
	clock func() time.Time
	funcs map[string]Func
}

// New returns a registry holding the built-in validators. A nil clock means
// time.Now.
func New(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	r := &Registry{
		clock: clock,
		funcs: make(map[string]Func),
	}
	r.funcs["georgian-id"] = GeorgianPersonalID
	r.funcs["email"] = Email
	r.funcs["phone"] = Phone
	r.funcs["url"] = URL
	r.funcs["past-date"] = DateRangeFunc(clock, DefaultDateRange())
	return r
}

// Now returns the registry's current time.
func (r *Registry) Now() time.Time {
	return r.clock()
}

// Lookup returns the validator registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Register adds or replaces a validator.
func (r *Registry) Register(name string, fn Func) {
	if fn == nil {
		delete(r.funcs, name)
		return
	}
	r.funcs[name] = fn
}

// DateRange returns a date-range validator bound to the registry clock.
func (r *Registry) DateRange(opts DateRangeOptions) Func {
	return DateRangeFunc(r.clock, opts)
}

// Names lists registered validators, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
