// Package primitive checks answer values against the base format of a
// field type: the FHIR primitive the answer will be stored as.
package primitive

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofhir/forms/pkg/field"
	"github.com/gofhir/forms/pkg/rules"
)

// Format is the FHIR primitive an answer is stored as.
type Format string

// Formats used by the form field types.
const (
	FormatString     Format = "string"
	FormatInteger    Format = "integer"
	FormatDecimal    Format = "decimal"
	FormatBoolean    Format = "boolean"
	FormatDate       Format = "date"
	FormatDateTime   Format = "dateTime"
	FormatTime       Format = "time"
	FormatAttachment Format = "attachment"
	FormatNone       Format = ""
)

// Messages reported by Check.
const (
	MsgString   = "Must be text"
	MsgInteger  = "Must be a whole number"
	MsgIntRange = "Must be between -2147483648 and 2147483647"
	MsgDecimal  = "Must be a number"
	MsgBoolean  = "Must be true or false"
	MsgDate     = "Date must be in YYYY-MM-DD format"
	MsgDateTime = "Must be a valid ISO-8601 date and time"
	MsgTime     = "Time must be in HH:MM or HH:MM:SS format"
	MsgValue    = "Must be a text value or an attachment"
)

// Patterns follow the regex extensions of the R4 primitive type definitions,
// relaxed where form widgets emit shorter values (seconds and zone are optional).
var (
	dateRegex     = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	dateTimeRegex = regexp.MustCompile(`^(\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01]))T([01]\d|2[0-3]):[0-5]\d(:([0-5]\d|60)(\.\d{1,9})?)?(Z|[+-]((0\d|1[0-3]):[0-5]\d|14:00))?$`)
	timeRegex     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:([0-5]\d|60)(\.\d{1,9})?)?$`)
	integerRegex  = regexp.MustCompile(`^[+-]?\d+$`)
	decimalRegex  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// ForType returns the format answers of t are checked against.
// Display and group carry no answer and map to FormatNone.
func ForType(t field.Type) Format {
	switch t.Normalize() {
	case field.TypeInteger:
		return FormatInteger
	case field.TypeDecimal:
		return FormatDecimal
	case field.TypeBoolean:
		return FormatBoolean
	case field.TypeDate:
		return FormatDate
	case field.TypeDateTime:
		return FormatDateTime
	case field.TypeTime:
		return FormatTime
	case field.TypeAttachment, field.TypeSignature:
		return FormatAttachment
	case field.TypeDisplay, field.TypeGroup:
		return FormatNone
	default:
		return FormatString
	}
}

// Check validates a single non-empty answer value against format.
func Check(format Format, value any) rules.Result {
	switch format {
	case FormatNone:
		return rules.OK
	case FormatInteger:
		return checkInteger(value)
	case FormatDecimal:
		if _, ok := AsNumber(value); !ok {
			return rules.Fail(MsgDecimal)
		}
		return rules.OK
	case FormatBoolean:
		if _, ok := AsBool(value); !ok {
			return rules.Fail(MsgBoolean)
		}
		return rules.OK
	case FormatDate:
		return checkPattern(value, dateRegex, MsgDate, validCalendarDate)
	case FormatDateTime:
		return checkPattern(value, dateTimeRegex, MsgDateTime, func(s string) bool {
			return validCalendarDate(s[:10])
		})
	case FormatTime:
		return checkPattern(value, timeRegex, MsgTime, nil)
	case FormatAttachment:
		switch value.(type) {
		case string, map[string]any:
			return rules.OK
		}
		return rules.Fail(MsgValue)
	default:
		if _, ok := value.(string); !ok {
			return rules.Fail(MsgString)
		}
		return rules.OK
	}
}

func checkInteger(value any) rules.Result {
	var n float64
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if !integerRegex.MatchString(s) {
			return rules.Fail(MsgInteger)
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return rules.Fail(MsgIntRange)
		}
		n = float64(parsed)
	default:
		f, ok := AsNumber(value)
		if !ok {
			return rules.Fail(MsgInteger)
		}
		if f != math.Trunc(f) {
			return rules.Fail(MsgInteger)
		}
		n = f
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return rules.Fail(MsgIntRange)
	}
	return rules.OK
}

func checkPattern(value any, re *regexp.Regexp, msg string, extra func(string) bool) rules.Result {
	s, ok := value.(string)
	if !ok {
		return rules.Fail(msg)
	}
	s = strings.TrimSpace(s)
	if !re.MatchString(s) {
		return rules.Fail(msg)
	}
	if extra != nil && !extra(s) {
		return rules.Fail(msg)
	}
	return rules.OK
}

// validCalendarDate rejects dates the regex admits but the calendar does not (2026-02-30).
func validCalendarDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

type floatNumber interface {
	Float64() (float64, error)
}

// AsNumber interprets value as a number. JSON numbers and strings that
// parse as decimals are accepted; NaN and infinities are not.
func AsNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case floatNumber:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if !decimalRegex.MatchString(s) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsBool interprets value as a boolean. Only Go bools and the literals
// "true" and "false" are accepted.
func AsBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.TrimSpace(v) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// AsString renders a scalar answer as text. Integral numbers are printed
// without an exponent or trailing zeros.
func AsString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case nil:
		return "", false
	case map[string]any, []any:
		return "", false
	}
	if f, ok := AsNumber(value); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10), true
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprint(value), true
}

// IsEmpty reports whether value counts as "no answer": nil, a blank string,
// or an empty list.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}
