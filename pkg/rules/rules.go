// Package rules implements the named, locale-aware format and checksum
// validators that fields can opt into through their customValidator setting.
//
// Every validator is a pure function of its input and, for date rules, of
// the clock passed in. Nothing here keeps package-level mutable state.
package rules

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Result is the outcome of a single validator call.
type Result struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// OK is the passing result.
var OK = Result{IsValid: true}

// Fail returns a failing result with msg.
func Fail(msg string) Result {
	return Result{IsValid: false, Error: msg}
}

// Func validates one string value.
type Func func(value string) Result

// Error messages. They are user-facing and part of the contract.
const (
	MsgPersonalIDLength   = "Personal ID must be exactly 11 digits"
	MsgPersonalIDDigits   = "Personal ID must contain only digits"
	MsgPersonalIDChecksum = "Invalid personal ID checksum"
	MsgEmail              = "Invalid email format"
	MsgPhone              = "Phone number must be in E.164 format (e.g. +995555123456)"
	MsgURLScheme          = "URL must use HTTP or HTTPS protocol"
	MsgURLFormat          = "Invalid URL format"
	MsgDateFormat         = "Invalid date format"
	MsgDateFuture         = "Date cannot be in the future"
)

const personalIDLength = 11

var (
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// GeorgianPersonalID checks an 11-digit Georgian personal number.
//
// The trailing digit is verified with a Luhn checksum. The national registry
// does not publish its check-digit rule, so treat the checksum as a
// placeholder until it is confirmed against the authoritative algorithm.
func GeorgianPersonalID(value string) Result {
	if len(value) != personalIDLength {
		return Fail(MsgPersonalIDLength)
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return Fail(MsgPersonalIDDigits)
		}
	}
	if !LuhnValid(value) {
		return Fail(MsgPersonalIDChecksum)
	}
	return OK
}

// LuhnValid reports whether an all-digit string passes the mod-10 check,
// doubling every second digit from the right.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Email checks a trimmed localpart@domain.tld address.
func Email(value string) Result {
	if !emailRegex.MatchString(strings.TrimSpace(value)) {
		return Fail(MsgEmail)
	}
	return OK
}

// Phone checks a trimmed E.164 number.
func Phone(value string) Result {
	if !phoneRegex.MatchString(strings.TrimSpace(value)) {
		return Fail(MsgPhone)
	}
	return OK
}

// URL checks for an absolute http or https URL.
func URL(value string) Result {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || u.Scheme == "" {
		return Fail(MsgURLFormat)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Fail(MsgURLScheme)
	}
	if u.Host == "" {
		return Fail(MsgURLFormat)
	}
	return OK
}

// DateRangeOptions bounds an acceptable date.
type DateRangeOptions struct {
	AllowFuture bool
	MaxAgeYears int
}

// DefaultDateRange disallows future dates and dates over 120 years old.
func DefaultDateRange() DateRangeOptions {
	return DateRangeOptions{AllowFuture: false, MaxAgeYears: 120}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDate parses a date or date-time string in any accepted layout. Values
// without an offset are read in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDay truncates t to midnight of its date in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateRange checks value against opts relative to now. Dates are compared
// as calendar days in now's location.
func DateRange(value string, now time.Time, opts DateRangeOptions) Result {
	loc := now.Location()
	d, ok := ParseDate(value, loc)
	if !ok {
		return Fail(MsgDateFormat)
	}
	if opts.MaxAgeYears <= 0 {
		opts.MaxAgeYears = DefaultDateRange().MaxAgeYears
	}
	day, today := calendarDay(d, loc), calendarDay(now, loc)
	if !opts.AllowFuture && day.After(today) {
		return Fail(MsgDateFuture)
	}
	if day.Before(today.AddDate(-opts.MaxAgeYears, 0, 0)) {
		return Fail(fmt.Sprintf("Date cannot be more than %d years ago", opts.MaxAgeYears))
	}
	return OK
}

// DateRangeFunc binds DateRange to a clock and options.
func DateRangeFunc(clock func() time.Time, opts DateRangeOptions) Func {
	return func(value string) Result {
		return DateRange(value, clock(), opts)
	}
}
