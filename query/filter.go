package query

import (
	"strconv"
	"strings"

	"github.com/arthur-debert/shopdata/types"
)

// matchesFilters checks if a record matches all the provided filters.
func matchesFilters(record types.Record, filters []types.Filter) bool {
	for _, filter := range filters {
		if !matchesFilter(record, filter) {
			return false
		}
	}
	return true
}

// matchesFilter checks a single filter. With several fields the filter
// behaves like a computed field and any matching field is enough. Filters
// with an unknown predicate or no fields place no restriction.
func matchesFilter(record types.Record, filter types.Filter) bool {
	if !filter.Predicate.Valid() || len(filter.Fields) == 0 {
		return true
	}

	for _, field := range filter.Fields {
		for _, value := range record.Values(field) {
			if matchValue(value, filter) {
				return true
			}
		}
	}
	// Absent fields never match
	return false
}

// matchValue applies the filter predicate to one resolved field value.
func matchValue(value interface{}, filter types.Filter) bool {
	operand := ""
	if len(filter.Values) > 0 {
		operand = filter.Values[0]
	}

	switch filter.Predicate {
	case types.PredicateEquals:
		return isScalar(value) && scalarEquals(value, operand)

	case types.PredicateEqualFold:
		return isScalar(value) && strings.EqualFold(valueToString(value), operand)

	case types.PredicateContains:
		needle := strings.ToLower(operand)
		if items, ok := value.([]interface{}); ok {
			for _, item := range items {
				if isScalar(item) && strings.Contains(strings.ToLower(valueToString(item)), needle) {
					return true
				}
			}
			return false
		}
		return isScalar(value) && strings.Contains(strings.ToLower(valueToString(value)), needle)

	case types.PredicateGTE, types.PredicateLTE:
		if _, isBool := value.(bool); isBool {
			return false
		}
		n, ok := types.ToNumber(value)
		if !ok {
			return false
		}
		bound, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
		if err != nil {
			return false
		}
		if filter.Predicate == types.PredicateGTE {
			return n >= bound
		}
		return n <= bound

	case types.PredicateIn:
		if !isScalar(value) {
			return false
		}
		for _, candidate := range filter.Values {
			if scalarEquals(value, candidate) {
				return true
			}
		}
		return false

	case types.PredicateAny:
		items, ok := value.([]interface{})
		if !ok {
			return false
		}
		for _, item := range items {
			if !isScalar(item) {
				continue
			}
			for _, candidate := range filter.Values {
				if scalarEquals(item, candidate) {
					return true
				}
			}
		}
		return false
	}

	return false
}

// scalarEquals compares a field value with a textual operand. Numbers
// compare numerically when the operand parses as a number.
func scalarEquals(value interface{}, operand string) bool {
	if n, ok := numeric(value); ok {
		if m, err := strconv.ParseFloat(strings.TrimSpace(operand), 64); err == nil {
			return n == m
		}
	}
	return valueToString(value) == valueToString(operand)
}

func isScalar(value interface{}) bool {
	switch value.(type) {
	case map[string]interface{}, types.Record, []interface{}, nil:
		return false
	}
	return true
}
