package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/types"
	"gopkg.in/yaml.v3"
)

// outputResult writes value as JSON or YAML. Table output is left to the
// commands since each knows its columns.
func (cli *CLI) outputResult(value interface{}) error {
	switch cli.cfg.Format {
	case "json":
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "yaml":
		return writeYAML(cli.out, value)
	default:
		return fmt.Errorf("unsupported format %q", cli.cfg.Format)
	}
}

// writeYAML goes through JSON so json tags and ordered objects are
// honoured, then re-emits the document in block style.
func writeYAML(w io.Writer, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

type column struct {
	Header string
	Path   string
}

var resourceColumns = map[string][]column{
	"orders": {
		{"ID", "id"}, {"NUMBER", "orderNumber"}, {"CUSTOMER", "customer.email"},
		{"STATUS", "status"}, {"TOTAL", "total"}, {"CREATED", "createdAt"},
	},
	"products": {
		{"ID", "id"}, {"NAME", "name"}, {"CATEGORY", "category"},
		{"PRICE", "price"}, {"STATUS", "status"},
	},
	"customers": {
		{"ID", "id"}, {"NAME", "displayName"}, {"EMAIL", "email"},
		{"STATE", "state"}, {"SPENT", "totalSpent"},
	},
	"support-tickets": {
		{"ID", "id"}, {"SUBJECT", "subject"}, {"STATUS", "status"},
		{"PRIORITY", "priority"}, {"CUSTOMER", "customerId"},
	},
	"promotions": {
		{"ID", "id"}, {"NAME", "name"}, {"CODE", "code"},
		{"TYPE", "type"}, {"STATUS", "status"},
	},
}

func writeTable(w io.Writer, cols []column, records []types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, r := range records {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, _ := r.Get(c.Path)
			cells[i] = cellText(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cellText(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = cellText(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// writeTree prints a rendered value one field per line, indented by depth.
func writeTree(w io.Writer, node inspect.RenderNode) {
	writeTreeNode(w, node, 0)
}

func writeTreeNode(w io.Writer, n inspect.RenderNode, depth int) {
	indent := strings.Repeat("  ", depth)
	label := n.Key
	if n.Label != "" {
		label = n.Label
	}

	var line strings.Builder
	line.WriteString(indent)
	switch {
	case n.Expandable && n.Expanded:
		line.WriteString("▾ ")
	case n.Expandable:
		line.WriteString("▸ ")
	}
	if label != "" {
		line.WriteString(label)
		line.WriteString(": ")
	}
	line.WriteString(n.Display)
	if n.Detail != "" {
		fmt.Fprintf(&line, " (%s)", n.Detail)
	}
	if n.Expandable && !n.Expanded && n.Preview != "" {
		fmt.Fprintf(&line, " %s", n.Preview)
	}
	if n.Category != "" {
		fmt.Fprintf(&line, " [%s]", n.Category)
	}
	fmt.Fprintln(w, line.String())

	for _, c := range n.Children {
		writeTreeNode(w, c, depth+1)
	}
}
