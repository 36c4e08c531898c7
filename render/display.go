// Package render turns Parsed Nodes into Display Nodes: a surface-agnostic
// tree of tag, attributes and children. Nothing in this package touches a
// concrete UI surface.
package render

import "strings"

// Node is a Display Node. It is pure data.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Children []Child
}

// Child is either a *Node or a Text leaf.
type Child interface {
	isChild()
}

// Text is a literal text leaf.
type Text string

func (Text) isChild()  {}
func (*Node) isChild() {}

// H builds a Display Node. A nil attrs map becomes an empty one; children
// are kept as given.
func H(tag string, attrs map[string]string, children ...Child) *Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Node{Tag: tag, Attrs: attrs, Children: children}
}

// Class is shorthand for a class-only attribute map.
func Class(names ...string) map[string]string {
	return map[string]string{"class": strings.Join(names, " ")}
}

// Plain flattens n to its visible text.
func Plain(n *Node) string {
	var sb strings.Builder
	writePlain(&sb, n)
	return sb.String()
}

func writePlain(sb *strings.Builder, n *Node) {
	for _, c := range n.Children {
		switch c := c.(type) {
		case Text:
			sb.WriteString(string(c))
		case *Node:
			writePlain(sb, c)
		}
	}
}
