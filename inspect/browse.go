package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/shopdata/types"
)

// ParseJSON decodes a JSON document keeping object key order, so
// previews list fields as the document does.
func ParseJSON(data []byte) (interface{}, error) {
	return types.DecodeOrdered(data)
}

// Search keeps the elements whose JSON encoding contains term, ignoring
// case. An empty term keeps everything.
func Search(items []interface{}, term string) []interface{} {
	if term == "" {
		return items
	}
	term = strings.ToLower(term)
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(b)), term) {
			out = append(out, item)
		}
	}
	return out
}

// RecordLabel picks a human readable name for a record in a list:
// first and last name, then name, title, email or id, then "Record i".
func RecordLabel(value interface{}, index int) string {
	fallback := fmt.Sprintf("Record %d", index+1)
	members, ok := orderedMembers(value)
	if !ok {
		return fallback
	}
	lookup := func(key string) string {
		for _, m := range members {
			if m.Key == key {
				switch v := m.Value.(type) {
				case string:
					return v
				case float64:
					return fmt.Sprint(v)
				}
			}
		}
		return ""
	}

	if first, last := lookup("firstName"), lookup("lastName"); first != "" && last != "" {
		return first + " " + last
	}
	for _, key := range []string{"name", "title", "email", "id"} {
		if v := lookup(key); v != "" {
			return v
		}
	}
	return fallback
}

// FieldCount is the number of members of an object value, or 0.
func FieldCount(value interface{}) int {
	members, _ := orderedMembers(value)
	return len(members)
}

// ErrIndexOutOfRange is returned by Browse when the selected record does
// not exist.
var ErrIndexOutOfRange = errors.New("record index out of range")

// BrowseRequest is one step of the data browser: which record to show
// and which paths are open.
type BrowseRequest struct {
	Search string
	// Index selects a record among those matching Search.
	Index int
	// Expanded is the set of open paths. Nil means DefaultExpanded.
	Expanded PathSet
	// Toggle flips these paths before rendering.
	Toggle []string
}

// BrowseEntry is one line of the record list.
type BrowseEntry struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Fields int    `json:"fields"`
}

// BrowseResult is the rendered state of the data browser.
type BrowseResult struct {
	IsArray     bool          `json:"isArray"`
	RecordCount int           `json:"recordCount"`
	Matches     int           `json:"matches"`
	Records     []BrowseEntry `json:"records,omitempty"`
	Index       int           `json:"index"`
	Label       string        `json:"label,omitempty"`
	// Expanded is the path set after toggling; clients send it back on
	// the next request.
	Expanded []string    `json:"expanded"`
	Tree     *RenderNode `json:"tree,omitempty"`
}

// Browse renders a decoded document the way the data browser shows it.
// Arrays are filtered by Search and one record is rendered; any other
// value is rendered whole. A search without matches yields no tree.
func Browse(value interface{}, req BrowseRequest, opts ...RenderOption) (BrowseResult, error) {
	expanded := req.Expanded
	if expanded == nil {
		expanded = DefaultExpanded()
	}
	for _, p := range req.Toggle {
		expanded = expanded.Toggle(p)
	}

	result := BrowseResult{Index: req.Index, Expanded: expanded.Paths()}

	items, isArray := value.([]interface{})
	if !isArray {
		result.RecordCount = FieldCount(value)
		result.Matches = 1
		tree := Render(Classify(value, ""), expanded, opts...)
		result.Tree = &tree
		return result, nil
	}

	result.IsArray = true
	result.RecordCount = len(items)
	matches := Search(items, req.Search)
	result.Matches = len(matches)
	result.Records = make([]BrowseEntry, len(matches))
	for i, item := range matches {
		result.Records[i] = BrowseEntry{Index: i, Label: RecordLabel(item, i), Fields: FieldCount(item)}
	}
	if len(matches) == 0 {
		return result, nil
	}
	if req.Index < 0 || req.Index >= len(matches) {
		return result, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, req.Index, len(matches))
	}

	record := matches[req.Index]
	result.Label = RecordLabel(record, req.Index)
	tree := Render(Classify(record, ""), expanded, opts...)
	result.Tree = &tree
	return result, nil
}
