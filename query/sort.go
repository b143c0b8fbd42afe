package query

import (
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/shopdata/types"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortValue is the decorated comparison key of one record.
type sortValue struct {
	present bool
	isNum   bool
	num     float64
	isTime  bool
	when    time.Time
	text    string
}

// sortRecords stably sorts records by the sort clause. Records missing
// the sort field compare as the smallest value.
func sortRecords(records []types.Record, clause types.Sort) {
	if len(clause.Fields) == 0 || len(records) < 2 {
		return
	}

	// Collators keep scratch buffers, so each sort gets its own.
	collator := collate.New(language.English)

	keys := make([]sortValue, len(records))
	indexed := make([]int, len(records))
	for i, record := range records {
		indexed[i] = i
		keys[i] = extractSortValue(record, clause.Fields)
	}

	sort.SliceStable(indexed, func(a, b int) bool {
		cmp := compareSortValues(collator, keys[indexed[a]], keys[indexed[b]])
		if clause.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	sorted := make([]types.Record, len(records))
	for i, idx := range indexed {
		sorted[i] = records[idx]
	}
	copy(records, sorted)
}

// extractSortValue builds the comparison key. A single field keeps its
// type; several fields are joined into one string.
func extractSortValue(record types.Record, fields []string) sortValue {
	if len(fields) == 1 {
		value, ok := record.Get(fields[0])
		if !ok {
			return sortValue{}
		}
		return decorate(value)
	}

	parts := make([]string, 0, len(fields))
	present := false
	for _, field := range fields {
		if value, ok := record.Get(field); ok && isScalar(value) {
			parts = append(parts, valueToString(value))
			present = true
		} else {
			parts = append(parts, "")
		}
	}
	if !present {
		return sortValue{}
	}
	return sortValue{present: true, text: strings.Join(parts, " ")}
}

func decorate(value interface{}) sortValue {
	sv := sortValue{present: true}
	if n, ok := numeric(value); ok {
		sv.isNum = true
		sv.num = n
		return sv
	}
	if s, ok := value.(string); ok {
		if t, ok := parseDate(s); ok {
			sv.isTime = true
			sv.when = t
		}
		sv.text = s
		return sv
	}
	sv.text = valueToString(value)
	return sv
}

// compareSortValues returns -1, 0 or 1.
func compareSortValues(collator *collate.Collator, a, b sortValue) int {
	switch {
	case !a.present && !b.present:
		return 0
	case !a.present:
		return -1
	case !b.present:
		return 1
	}

	if a.isNum && b.isNum {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}

	if a.isTime && b.isTime {
		return a.when.Compare(b.when)
	}

	if a.isNum {
		a.text = valueToString(a.num)
	}
	if b.isNum {
		b.text = valueToString(b.num)
	}
	return collator.CompareString(a.text, b.text)
}
