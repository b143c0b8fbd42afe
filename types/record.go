package types

import (
	"strconv"
	"strings"
)

// Record is one schema-less data item decoded from a JSON document.
// Field names are discovered at runtime; every accessor returns a zero
// value and false instead of failing on a missing or mistyped field.
type Record map[string]interface{}

// Get returns the value at a dot separated field path such as
// "customer.email" or "items.0.title". When the path crosses a sequence
// with a non-numeric segment, the first element that resolves wins; use
// Values to collect all of them.
func (r Record) Get(path string) (interface{}, bool) {
	values := r.Values(path)
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Values resolves a field path and returns every value it reaches.
// Numeric segments index sequences; other segments applied to a sequence
// fan out over its elements, so "items.title" yields every item title.
// A nil leaf counts as absent.
func (r Record) Values(path string) []interface{} {
	if r == nil || path == "" {
		return nil
	}
	current := []interface{}{map[string]interface{}(r)}
	for _, segment := range strings.Split(path, ".") {
		var next []interface{}
		for _, value := range current {
			next = append(next, step(value, segment)...)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}

	var out []interface{}
	for _, v := range current {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// step resolves one path segment against a value.
func step(value interface{}, segment string) []interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if child, ok := v[segment]; ok {
			return []interface{}{child}
		}
	case Record:
		if child, ok := v[segment]; ok {
			return []interface{}{child}
		}
	case []interface{}:
		if idx, err := strconv.Atoi(segment); err == nil {
			if idx >= 0 && idx < len(v) {
				return []interface{}{v[idx]}
			}
			return nil
		}
		var out []interface{}
		for _, elem := range v {
			out = append(out, step(elem, segment)...)
		}
		return out
	}
	return nil
}

// String returns the field as a string. Non-string values report false.
func (r Record) String(path string) (string, bool) {
	v, ok := r.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr returns the string field or fallback.
func (r Record) StringOr(path, fallback string) string {
	if s, ok := r.String(path); ok {
		return s
	}
	return fallback
}

// Number returns the field coerced to a float64. Numeric strings are
// accepted; booleans, composites and other strings are not.
func (r Record) Number(path string) (float64, bool) {
	v, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	return ToNumber(v)
}

// NumberOr returns the numeric field or fallback.
func (r Record) NumberOr(path string, fallback float64) float64 {
	if n, ok := r.Number(path); ok {
		return n
	}
	return fallback
}

// Bool returns the boolean field.
func (r Record) Bool(path string) (bool, bool) {
	v, ok := r.Get(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Map returns the field as a nested record.
func (r Record) Map(path string) (Record, bool) {
	v, ok := r.Get(path)
	if !ok {
		return nil, false
	}
	return AsRecord(v)
}

// Slice returns the field as a sequence.
func (r Record) Slice(path string) ([]interface{}, bool) {
	v, ok := r.Get(path)
	if !ok {
		return nil, false
	}
	s, ok := v.([]interface{})
	return s, ok
}

// Strings returns the string elements of a sequence field, skipping
// anything that is not a string.
func (r Record) Strings(path string) []string {
	items, _ := r.Slice(path)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AsRecord converts a decoded JSON object into a Record.
func AsRecord(value interface{}) (Record, bool) {
	switch v := value.(type) {
	case Record:
		return v, true
	case map[string]interface{}:
		return Record(v), true
	}
	return nil, false
}

// ToNumber coerces a decoded JSON value to float64.
func ToNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
