// CLAUDE:SUMMARY HTML node-tree surface built on x/net/html, with sanitized HTML and markdown export.
// Package dom is a Surface backed by an golang.org/x/net/html node tree.
// Records are appended under a host element; the tree can be rendered as
// HTML, as sanitized HTML for untrusted pages, or as markdown.
package dom

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domconsole/surface"
)

// HostClass is the class of the default host element.
const HostClass = "console"

// Surface builds html.Nodes. It locks internally so a web handler can
// render while a logger appends.
type Surface struct {
	mu     sync.Mutex
	host   *html.Node
	policy *bluemonday.Policy
	md     *converter.Converter
}

// New creates a Surface with a fresh <div class="console"> host.
func New() *Surface {
	host := newElement("div")
	setClass(host, HostClass)
	return NewWithHost(host)
}

// NewWithHost creates a Surface appending under an existing element,
// typically one found in a parsed page.
func NewWithHost(host *html.Node) *Surface {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()

	return &Surface{
		host:   host,
		policy: policy,
		md: converter.NewConverter(
			converter.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin()),
		),
	}
}

// Host returns the host element handle.
func (s *Surface) Host() surface.Handle { return s.host }

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func (s *Surface) CreateContainer(tag string) surface.Handle {
	return newElement(tag)
}

func (s *Surface) AppendChild(parent, child surface.Handle) error {
	p, err := element(parent)
	if err != nil {
		return err
	}
	c, ok := child.(*html.Node)
	if !ok || c == nil {
		return fmt.Errorf("dom: child %T: %w", child, surface.ErrForeignHandle)
	}
	if c.Parent != nil {
		return fmt.Errorf("dom: child <%s> already attached", c.Data)
	}
	if p == s.host {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	p.AppendChild(c)
	return nil
}

func (s *Surface) AppendText(parent surface.Handle, text string) error {
	p, err := element(parent)
	if err != nil {
		return err
	}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// ApplyCategory adds category to the class attribute, once.
func (s *Surface) ApplyCategory(h surface.Handle, category string) {
	n, err := element(h)
	if err != nil || category == "" {
		return
	}
	classes := strings.Fields(getAttr(n, "class"))
	if slices.Contains(classes, category) {
		return
	}
	setClass(n, strings.Join(append(classes, category), " "))
}

// Valid reports whether h is an element node.
func (s *Surface) Valid(h surface.Handle) bool {
	_, err := element(h)
	return err == nil
}

// Clear removes every record under the host.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := s.host.FirstChild; c != nil; {
		next := c.NextSibling
		s.host.RemoveChild(c)
		c = next
	}
	return nil
}

// Len returns the number of records under the host.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := s.host.FirstChild; c != nil; c = c.NextSibling {
		n++
	}
	return n
}

// HTML renders the host element and its records.
func (s *Surface) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, s.host); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return buf.String(), nil
}

// SafeHTML renders the host through a UGC sanitizer that keeps class
// attributes, for embedding into pages served to browsers.
func (s *Surface) SafeHTML() (string, error) {
	raw, err := s.HTML()
	if err != nil {
		return "", err
	}
	return s.policy.Sanitize(raw), nil
}

// Markdown converts the rendered records to markdown, one paragraph per
// record.
func (s *Surface) Markdown() (string, error) {
	raw, err := s.HTML()
	if err != nil {
		return "", err
	}
	md, err := s.md.ConvertString(raw)
	if err != nil {
		return "", fmt.Errorf("dom: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func element(h surface.Handle) (*html.Node, error) {
	n, ok := h.(*html.Node)
	if !ok || n == nil || n.Type != html.ElementNode {
		return nil, fmt.Errorf("dom: handle %T: %w", h, surface.ErrForeignHandle)
	}
	return n, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setClass(n *html.Node, val string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: val})
}
