package query

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// isoDatePrefix gates datetime handling so that plain numeric strings are
// never mistaken for years or timestamps.
var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// parseDate parses ISO-8601-like strings.
func parseDate(s string) (time.Time, bool) {
	if !isoDatePrefix.MatchString(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// valueToString converts any scalar to its canonical string form.
// Datetime strings are normalized to RFC3339Nano so that "2024-01-15" and
// "2024-01-15T00:00:00Z" compare equal.
func valueToString(value interface{}) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case string:
		if t, ok := parseDate(v); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

// numeric reports the value of number-typed fields. Numeric strings are
// not numbers here; only range filters coerce them.
func numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
