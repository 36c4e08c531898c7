package surface

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hazyhaar/domconsole/render"
)

// Materialize realises n on s and returns the handle of its container.
// Attribute values, keys in sorted order, are split on whitespace and each
// token applied as a category. Children are appended in order; text leaves
// become text content. The caller appends the returned handle.
func Materialize(s Surface, n *render.Node) (Handle, error) {
	h := s.CreateContainer(n.Tag)

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, cat := range strings.Fields(n.Attrs[k]) {
			s.ApplyCategory(h, cat)
		}
	}

	for _, c := range n.Children {
		switch c := c.(type) {
		case render.Text:
			if err := s.AppendText(h, string(c)); err != nil {
				return nil, fmt.Errorf("materialize %s: append text: %w", n.Tag, err)
			}
		case *render.Node:
			ch, err := Materialize(s, c)
			if err != nil {
				return nil, err
			}
			if err := s.AppendChild(h, ch); err != nil {
				return nil, fmt.Errorf("materialize %s: append child: %w", n.Tag, err)
			}
		}
	}
	return h, nil
}
