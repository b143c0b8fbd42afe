package inspect

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	previewFields    = 2
	previewMaxLength = 20
	purchaseHistory  = "purchaseHistory"
)

// RenderNode is the display form of a Node.
type RenderNode struct {
	Path     string     `json:"path"`
	Key      string     `json:"key,omitempty"`
	Kind     Kind       `json:"kind"`
	Display  string     `json:"display"`
	Role     NumberRole `json:"role,omitempty"`
	Domain   Domain     `json:"domain,omitempty"`
	Category Category   `json:"category,omitempty"`
	// Raw is the original text of dates and other string values.
	Raw        string       `json:"raw,omitempty"`
	Expandable bool         `json:"expandable,omitempty"`
	Expanded   bool         `json:"expanded,omitempty"`
	Preview    string       `json:"preview,omitempty"`
	Label      string       `json:"label,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	Children   []RenderNode `json:"children,omitempty"`
}

type renderOptions struct {
	locale   string
	location *time.Location
}

// RenderOption configures Render.
type RenderOption func(*renderOptions)

// WithLocale sets the locale used for numbers and dates (e.g. "de_DE").
func WithLocale(locale string) RenderOption {
	return func(o *renderOptions) {
		o.locale = locale
	}
}

// WithLocation sets the time zone dates are shown in. Defaults to UTC.
func WithLocation(loc *time.Location) RenderOption {
	return func(o *renderOptions) {
		o.location = loc
	}
}

// Render turns a classified node into its display tree. Composite nodes
// are expanded when their path is in expanded; the root mapping is always
// expanded.
func Render(node Node, expanded PathSet, opts ...RenderOption) RenderNode {
	options := renderOptions{locale: DefaultLocale}
	for _, opt := range opts {
		opt(&options)
	}
	r := renderer{
		format:   newFormatter(options.locale, options.location),
		expanded: expanded,
	}
	return r.render(node, "", 0)
}

type renderer struct {
	format   formatter
	expanded PathSet
}

func (r renderer) render(node Node, key string, depth int) RenderNode {
	out := RenderNode{Path: node.Path, Key: key, Kind: node.Kind}

	switch node.Kind {
	case KindNull:
		out.Display = "null"
	case KindBool:
		out.Display = strconv.FormatBool(node.Bool)
	case KindNumber:
		out.Role = node.Role
		if node.Role == RoleCurrency {
			out.Display = r.format.currency(node.Number)
		} else {
			out.Display = r.format.number(node.Number)
		}
	case KindDate:
		out.Display = r.format.date(node.Time)
		out.Raw = node.Text
	case KindStatus:
		out.Display = node.Text
		out.Domain = node.Status.Domain
		out.Category = node.Status.Category
	case KindEmail, KindPhone, KindString:
		out.Display = node.Text
	case KindSequence:
		r.renderSequence(node, depth, &out)
	case KindMapping:
		r.renderMapping(node, depth, &out)
	}
	return out
}

func (r renderer) renderSequence(node Node, depth int, out *RenderNode) {
	out.Expandable = true
	out.Expanded = r.expanded.Has(node.Path)

	history := node.Hint == purchaseHistory
	if history {
		out.Display = fmt.Sprintf("%d purchases", len(node.Items))
	} else {
		out.Display = fmt.Sprintf("%d items", len(node.Items))
	}
	if !out.Expanded {
		return
	}

	out.Children = make([]RenderNode, len(node.Items))
	for i, item := range node.Items {
		child := r.render(item, strconv.Itoa(i), depth+1)
		if history {
			child.Label, child.Detail = r.purchaseLabel(item, i)
		}
		out.Children[i] = child
	}
}

// purchaseLabel names one purchase by order id and shows its total.
func (r renderer) purchaseLabel(item Node, index int) (string, string) {
	label := fmt.Sprintf("Order %d", index+1)
	if id, ok := item.Field("orderId"); ok && id.Text != "" {
		label = id.Text
	}
	total := 0.0
	for _, key := range []string{"total", "totalAmount"} {
		if n, ok := item.Field(key); ok && n.Kind == KindNumber && n.Number != 0 {
			total = n.Number
			break
		}
	}
	return label, r.format.currency(total)
}

func (r renderer) renderMapping(node Node, depth int, out *RenderNode) {
	root := depth == 0
	out.Expandable = !root
	out.Expanded = root || r.expanded.Has(node.Path)

	if summary, ok := addressSummary(node); ok && !root {
		out.Display = summary
	} else {
		out.Display = fmt.Sprintf("%d fields", len(node.Fields))
		if !out.Expanded {
			out.Preview = preview(node)
		}
	}
	if !out.Expanded {
		return
	}

	out.Children = make([]RenderNode, len(node.Fields))
	for i, f := range node.Fields {
		out.Children[i] = r.render(f.Node, f.Key, depth+1)
	}
}

// addressSummary recognizes address-like mappings (street or address1,
// plus city) and summarizes them as "City, State".
func addressSummary(node Node) (string, bool) {
	street := fieldText(node, "street")
	if street == "" {
		street = fieldText(node, "address1")
	}
	city := fieldText(node, "city")
	if street == "" || city == "" {
		return "", false
	}
	region := fieldText(node, "state")
	if region == "" {
		region = fieldText(node, "province")
	}
	return city + ", " + region, true
}

func fieldText(node Node, key string) string {
	f, ok := node.Field(key)
	if !ok || f.Composite() {
		return ""
	}
	return f.Text
}

// preview lists the first fields of a collapsed mapping, e.g.
// "city: Springfield, zip: 12345, ...".
func preview(node Node) string {
	n := len(node.Fields)
	if n == 0 {
		return ""
	}
	if n > previewFields {
		n = previewFields
	}
	parts := make([]string, n)
	for i, f := range node.Fields[:n] {
		parts[i] = f.Key + ": " + previewValue(f.Node)
	}
	out := strings.Join(parts, ", ")
	if len(node.Fields) > previewFields {
		out += ", ..."
	}
	return out
}

func previewValue(node Node) string {
	switch node.Kind {
	case KindSequence, KindMapping:
		return "{...}"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(node.Bool)
	case KindNumber:
		return strconv.FormatFloat(node.Number, 'f', -1, 64)
	}
	return truncate(node.Text, previewMaxLength)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
