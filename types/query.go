package types

// Predicate names a filter comparison.
type Predicate string

const (
	// PredicateEquals matches when the canonical string form of the field
	// equals the operand.
	PredicateEquals Predicate = "eq"
	// PredicateEqualFold is a case-insensitive PredicateEquals.
	PredicateEqualFold Predicate = "ieq"
	// PredicateContains is a case-insensitive substring match. On a
	// sequence it matches when any element matches.
	PredicateContains Predicate = "contains"
	// PredicateGTE and PredicateLTE are numeric range bounds.
	PredicateGTE Predicate = "gte"
	PredicateLTE Predicate = "lte"
	// PredicateIn matches a scalar equal to one of the operands.
	PredicateIn Predicate = "in"
	// PredicateAny matches a sequence containing one of the operands.
	PredicateAny Predicate = "any"
)

// Valid reports whether p is a known predicate.
func (p Predicate) Valid() bool {
	switch p {
	case PredicateEquals, PredicateEqualFold, PredicateContains,
		PredicateGTE, PredicateLTE, PredicateIn, PredicateAny:
		return true
	}
	return false
}

// Filter narrows a record collection.
//
// Fields usually holds a single path. Several paths form a computed field:
// the filter matches when any of them matches, which is how free-text
// search spans multiple named fields.
type Filter struct {
	Fields    []string
	Predicate Predicate
	Values    []string
}

// Sort orders a record collection. Several fields are concatenated with a
// single space before comparison (e.g. first and last name).
type Sort struct {
	Key        string
	Fields     []string
	Descending bool
}

// Page slices a record collection.
type Page struct {
	Limit  int
	Offset int
}

const (
	// DefaultLimit is used when no valid limit is supplied.
	DefaultLimit = 10
	// DefaultOffset is used when no valid offset is supplied.
	DefaultOffset = 0
)

// DefaultPage returns the default pagination window.
func DefaultPage() Page {
	return Page{Limit: DefaultLimit, Offset: DefaultOffset}
}

// Spec is the full set of instructions for a query. Filters are AND-ed.
type Spec struct {
	Filters []Filter
	Sort    *Sort
	Page    Page
}

// Pagination is the metadata returned alongside a page of items.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// NewPagination computes pagination metadata. HasMore is offset+limit <
// total, evaluated without overflowing for very large limits.
func NewPagination(total, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset < total && limit < total-offset,
	}
}

// PageResult is a filtered, ordered and sliced subset of records.
type PageResult struct {
	Items   []Record `json:"items"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	HasMore bool     `json:"hasMore"`
}

// Pagination returns the metadata part of the result.
func (r PageResult) Pagination() Pagination {
	return NewPagination(r.Total, r.Limit, r.Offset)
}
