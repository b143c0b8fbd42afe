// Package query runs declarative filter, sort and pagination instructions
// against in-memory record collections.
//
// The engine is a pure function over its inputs: it performs no I/O,
// never returns an error and holds no state between calls, so it can be
// used from any number of request handlers at once.
package query

import (
	"github.com/arthur-debert/shopdata/types"
)

// Execute filters, sorts and paginates records.
//
// The processing order is fixed: all filters are applied as a logical
// AND, then the sort (stable), then total is taken, then the
// [offset, offset+limit) window is sliced out.
func Execute(records []types.Record, spec types.Spec) types.PageResult {
	page := normalizePage(spec.Page)

	result := make([]types.Record, 0, len(records))
	for _, record := range records {
		if matchesFilters(record, spec.Filters) {
			result = append(result, record)
		}
	}

	if spec.Sort != nil {
		sortRecords(result, *spec.Sort)
	}

	total := len(result)
	return types.PageResult{
		Items:   paginate(result, page),
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: types.NewPagination(total, page.Limit, page.Offset).HasMore,
	}
}

// paginate returns the [offset, offset+limit) window of records.
func paginate(records []types.Record, page types.Page) []types.Record {
	if page.Offset >= len(records) {
		return []types.Record{}
	}
	end := page.Offset + min(page.Limit, len(records)-page.Offset)
	return records[page.Offset:end]
}

// normalizePage replaces negative values with the defaults.
func normalizePage(page types.Page) types.Page {
	if page.Limit < 0 {
		page.Limit = types.DefaultLimit
	}
	if page.Offset < 0 {
		page.Offset = types.DefaultOffset
	}
	return page
}
