package inspect

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/arthur-debert/shopdata/types"
)

var (
	currencyHint = regexp.MustCompile(`(?i)price|cost|value|amount|total|spent`)
	statusHint   = regexp.MustCompile(`(?i)status|state|tier`)
	datePrefix   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T|\s)`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d[\d\s\-().]+$`)
)

// rule is one entry of the classification table. Apply reports false
// when the rule does not claim the value.
type rule struct {
	name  string
	apply func(value interface{}, hint, path string) (Node, bool)
}

// rules is evaluated in order; the first rule that claims a value wins.
var rules []rule

func init() {
	rules = []rule{
		{"null", classifyNull},
		{"bool", classifyBool},
		{"number", classifyNumber},
		{"date", classifyDate},
		{"email", classifyEmail},
		{"phone", classifyPhone},
		{"status", classifyStatus},
		{"string", classifyString},
		{"sequence", classifySequence},
		{"mapping", classifyMapping},
	}
}

// Classify classifies a root value.
func Classify(value interface{}, hint string) Node {
	return ClassifyAt(value, hint, "")
}

// ClassifyAt classifies a value located at path. Values no rule claims
// (unexpected Go types) are shown as plain strings.
func ClassifyAt(value interface{}, hint, path string) Node {
	for _, r := range rules {
		if node, ok := r.apply(value, hint, path); ok {
			node.Path = path
			node.Hint = hint
			return node
		}
	}
	b, _ := json.Marshal(value)
	return Node{Kind: KindString, Path: path, Hint: hint, Text: string(b)}
}

func classifyNull(value interface{}, _, _ string) (Node, bool) {
	return Node{Kind: KindNull}, value == nil
}

func classifyBool(value interface{}, _, _ string) (Node, bool) {
	b, ok := value.(bool)
	return Node{Kind: KindBool, Bool: b}, ok
}

func classifyNumber(value interface{}, hint, _ string) (Node, bool) {
	n, ok := asNumber(value)
	if !ok {
		return Node{}, false
	}
	role := RolePlain
	if currencyHint.MatchString(hint) {
		role = RoleCurrency
	}
	return Node{Kind: KindNumber, Number: n, Role: role}, true
}

func classifyDate(value interface{}, _, _ string) (Node, bool) {
	s, ok := value.(string)
	if !ok || !datePrefix.MatchString(s) {
		return Node{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Node{}, false
	}
	return Node{Kind: KindDate, Time: t, Text: s}, true
}

func classifyEmail(value interface{}, _, _ string) (Node, bool) {
	s, ok := value.(string)
	if !ok || !emailPattern.MatchString(s) {
		return Node{}, false
	}
	return Node{Kind: KindEmail, Text: s}, true
}

func classifyPhone(value interface{}, _, _ string) (Node, bool) {
	s, ok := value.(string)
	if !ok || !phonePattern.MatchString(s) {
		return Node{}, false
	}
	return Node{Kind: KindPhone, Text: s}, true
}

func classifyStatus(value interface{}, hint, _ string) (Node, bool) {
	s, ok := value.(string)
	if !ok || !statusHint.MatchString(hint) {
		return Node{}, false
	}
	return Node{Kind: KindStatus, Text: s, Status: StatusOf(hint, s)}, true
}

func classifyString(value interface{}, _, _ string) (Node, bool) {
	s, ok := value.(string)
	return Node{Kind: KindString, Text: s}, ok
}

// Sequence elements inherit the hint of the sequence itself, so the
// elements of "prices" are still money.
func classifySequence(value interface{}, hint, path string) (Node, bool) {
	items, ok := value.([]interface{})
	if !ok {
		return Node{}, false
	}
	node := Node{Kind: KindSequence, Items: make([]Node, len(items))}
	for i, item := range items {
		node.Items[i] = ClassifyAt(item, hint, ItemPath(path, i))
	}
	return node, true
}

func classifyMapping(value interface{}, _, path string) (Node, bool) {
	members, ok := orderedMembers(value)
	if !ok {
		return Node{}, false
	}
	node := Node{Kind: KindMapping, Fields: make([]Field, len(members))}
	for i, m := range members {
		node.Fields[i] = Field{Key: m.Key, Node: ClassifyAt(m.Value, m.Key, ChildPath(path, m.Key))}
	}
	return node, true
}

// orderedMembers lists the members of an object value. Plain maps have no
// document order and are listed by sorted key.
func orderedMembers(value interface{}) ([]types.Member, bool) {
	var m map[string]interface{}
	switch v := value.(type) {
	case types.Object:
		return v, true
	case map[string]interface{}:
		m = v
	case types.Record:
		m = v
	default:
		return nil, false
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	members := make([]types.Member, len(keys))
	for i, k := range keys {
		members[i] = types.Member{Key: k, Value: m[k]}
	}
	return members, true
}

func asNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
