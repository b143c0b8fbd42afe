// Package inspect classifies arbitrary decoded JSON values into typed
// display nodes and renders them into a tree whose collapsed or expanded
// state is supplied from outside as a PathSet.
package inspect

import (
	"time"

	"github.com/arthur-debert/shopdata/types"
)

// Kind identifies the display variant of a node.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "bool"
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindStatus   Kind = "status"
	KindString   Kind = "string"
	KindSequence Kind = "sequence"
	KindMapping  Kind = "mapping"
)

// NumberRole distinguishes money amounts from plain numbers.
type NumberRole string

const (
	RolePlain    NumberRole = "plain"
	RoleCurrency NumberRole = "currency"
)

// Object is a JSON object that keeps its key order.
type Object = types.Object

// Node is the classification of one value. Only the fields relevant to
// Kind are set.
type Node struct {
	Kind Kind
	// Path locates the node from the root: "" for the root, "<path>.<key>"
	// for an object member and "<path>[i]" for a sequence element.
	Path string
	// Hint is the field name the value was found under.
	Hint string

	Bool   bool
	Number float64
	Role   NumberRole
	Time   time.Time
	Text   string
	Status Status

	Items  []Node
	Fields []Field
}

// Field is one member of a mapping node.
type Field struct {
	Key  string
	Node Node
}

// Composite reports whether the node has children.
func (n Node) Composite() bool {
	return n.Kind == KindSequence || n.Kind == KindMapping
}

// Field returns the member node stored under key.
func (n Node) Field(key string) (Node, bool) {
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Node, true
		}
	}
	return Node{}, false
}

// ChildPath returns the path of an object member.
func ChildPath(parent, key string) string {
	return parent + "." + key
}

// ItemPath returns the path of a sequence element.
func ItemPath(parent string, index int) string {
	return parent + "[" + itoa(index) + "]"
}
