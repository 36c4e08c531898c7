// CLAUDE:SUMMARY Maps each Parsed Node kind to a Display Node subtree: quoted strings, bracketed arrays, object braces, tag facsimiles.
package render

import "github.com/hazyhaar/domconsole/inspect"

// Tags and class names used by the transformer.
const (
	TagRoot  = "div"
	TagChild = "span"

	ClassRoot        = "root"
	ClassChild       = "child"
	ClassValue       = "value"
	ClassKeyword     = "keyword"
	ClassConstructor = "constructor"
	ClassKey         = "key"
	ClassTag         = "tag"
)

// Transform builds the root Display Node for a Parsed Node.
func Transform(n inspect.Node) *Node {
	return transform(n, true)
}

func transform(n inspect.Node, root bool) *Node {
	tag, pos := TagChild, ClassChild
	if root {
		tag, pos = TagRoot, ClassRoot
	}
	out := H(tag, Class(pos, n.Category()))
	add := func(children ...Child) { out.Children = append(out.Children, children...) }

	switch n.Kind {
	case inspect.KindScalar:
		if n.Type == inspect.TypeString {
			add(leaf(`"`), leaf(n.Data, ClassValue), leaf(`"`))
		} else {
			add(Text(n.Data))
		}

	case inspect.KindNull:
		add(Text(n.Data))

	case inspect.KindFunction:
		add(leaf("function ", ClassKeyword), leaf(n.Data+"() {}"))

	case inspect.KindObject:
		add(leaf(n.Class+" ", ClassConstructor), leaf("{"))
		for i, p := range n.Props {
			if i > 0 {
				add(leaf(", "))
			}
			add(leaf(p.Key, ClassKey), leaf(": "), transform(p.Value, false))
		}
		add(leaf("}"))

	case inspect.KindArray:
		add(leaf("["))
		for i, it := range n.Items {
			if i > 0 {
				add(leaf(", "))
			}
			add(transform(it, false))
		}
		add(leaf("]"))

	case inspect.KindElement:
		add(leaf("<"), leaf(n.Data, ClassTag))
		for _, a := range n.Attrs {
			add(leaf(" "+a.Name, ClassKey), leaf("="), transform(a.Value, false))
		}
		add(leaf(">"), leaf("</"), leaf(n.Data, ClassTag), leaf(">"))

	case inspect.KindEmpty:
		add(leaf(" "))
	}
	return out
}

// leaf is a span holding one text run, optionally classed.
func leaf(text string, class ...string) *Node {
	var attrs map[string]string
	if len(class) > 0 {
		attrs = Class(class...)
	}
	return H(TagChild, attrs, Text(text))
}
