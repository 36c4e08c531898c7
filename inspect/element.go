package inspect

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is the element-like capability: anything exposing a tag name and
// an ordered attribute list is introspected as KindElement.
type Element interface {
	TagName() string
	Attributes() []Attribute
}

// Attribute is one name/value pair of an Element.
type Attribute struct {
	Name  string
	Value string
}

// ArrayLike is the array-like capability for values that are not Go slices
// or arrays. Index reports ok == false for a hole.
type ArrayLike interface {
	Len() int
	Index(i int) (any, bool)
}

// htmlElement adapts an *html.Node to Element.
type htmlElement struct {
	n *html.Node
}

// FromHTML wraps an html node as an Element. Non-element nodes have an
// empty tag name.
func FromHTML(n *html.Node) Element { return htmlElement{n: n} }

func (e htmlElement) TagName() string {
	if e.n.Type != html.ElementNode {
		return ""
	}
	return e.n.Data
}

func (e htmlElement) Attributes() []Attribute {
	if len(e.n.Attr) == 0 {
		return nil
	}
	attrs := make([]Attribute, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		attrs = append(attrs, Attribute{Name: name, Value: a.Val})
	}
	return attrs
}

// introspectElement extracts the lower-cased tag and the attributes in order.
func introspectElement(e Element) Node {
	return ElementOf(strings.ToLower(e.TagName()), e.Attributes()...)
}
