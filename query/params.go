package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/arthur-debert/shopdata/types"
)

// Reserved query parameter names.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamSortBy = "sortBy"
)

// operatorSeparator splits generic filter parameters such as price__gte.
const operatorSeparator = "__"

// Param binds a named query parameter to a filter.
type Param struct {
	Name      string
	Fields    []string
	Predicate types.Predicate
}

// SortKey binds a sortBy value to a sort clause.
type SortKey struct {
	Name       string
	Fields     []string
	Descending bool
}

// Schema declares the query parameters a list resource understands.
type Schema struct {
	Params      []Param
	Sorts       []SortKey
	DefaultSort string
}

// SortNames returns the sortBy values the schema accepts.
func (s Schema) SortNames() []string {
	names := make([]string, 0, len(s.Sorts))
	for _, key := range s.Sorts {
		names = append(names, key.Name)
	}
	return names
}

// ParamNames returns every query parameter the schema accepts, including
// the reserved pagination and sort parameters.
func (s Schema) ParamNames() []string {
	names := []string{ParamLimit, ParamOffset}
	for _, p := range s.Params {
		names = append(names, p.Name)
	}
	if len(s.Sorts) > 0 {
		names = append(names, ParamSortBy)
	}
	return names
}

// LookupSort finds a sort key by name.
func (s Schema) LookupSort(name string) (*types.Sort, bool) {
	for _, key := range s.Sorts {
		if key.Name == name {
			return &types.Sort{
				Key:        key.Name,
				Fields:     append([]string(nil), key.Fields...),
				Descending: key.Descending,
			}, true
		}
	}
	return nil, false
}

// ParseParams turns URL query values into a query spec.
//
// Named parameters come from the schema. Any other parameter of the form
// field__op=value becomes a generic filter on field; unknown operators are
// ignored. A missing sortBy selects the schema default and an unknown one
// selects no sort. Malformed pagination falls back to the defaults.
func ParseParams(values url.Values, schema Schema) types.Spec {
	spec := types.Spec{
		Page: ParsePage(values.Get(ParamLimit), values.Get(ParamOffset)),
	}

	for _, param := range schema.Params {
		raw := values.Get(param.Name)
		if raw == "" {
			continue
		}
		spec.Filters = append(spec.Filters, types.Filter{
			Fields:    append([]string(nil), param.Fields...),
			Predicate: param.Predicate,
			Values:    operands(param.Predicate, raw),
		})
	}

	// Sorted for deterministic filter order
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		filter, ok := ParseFilter(key, values.Get(key))
		if ok {
			spec.Filters = append(spec.Filters, filter)
		}
	}

	sortBy := values.Get(ParamSortBy)
	if sortBy == "" {
		sortBy = schema.DefaultSort
	}
	if sortBy != "" {
		if clause, ok := schema.LookupSort(sortBy); ok {
			spec.Sort = clause
		}
	}

	return spec
}

// ParseFilter parses a generic field__op=value filter. Keys without an
// operator separator, empty values and unknown operators are rejected.
func ParseFilter(key, value string) (types.Filter, bool) {
	parts := strings.SplitN(key, operatorSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || value == "" {
		return types.Filter{}, false
	}

	predicate := types.Predicate(parts[1])
	if !predicate.Valid() {
		return types.Filter{}, false
	}

	return types.Filter{
		Fields:    []string{parts[0]},
		Predicate: predicate,
		Values:    operands(predicate, value),
	}, true
}

// ParsePage parses pagination parameters. Non-numeric or negative input
// falls back to the defaults instead of failing.
func ParsePage(limit, offset string) types.Page {
	return types.Page{
		Limit:  parseNonNegative(limit, types.DefaultLimit),
		Offset: parseNonNegative(offset, types.DefaultOffset),
	}
}

func parseNonNegative(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// operands splits comma separated operands for set predicates.
func operands(predicate types.Predicate, raw string) []string {
	if predicate != types.PredicateIn && predicate != types.PredicateAny {
		return []string{raw}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
