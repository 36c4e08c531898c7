// Package term is a line-oriented Surface: every record appended to the
// host is flattened to its visible text and written as one line. Values
// of one record are separated by a space.
package term

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hazyhaar/domconsole/surface"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorGray    = "\033[90m"
)

// palette maps a category marker to an ANSI color. The innermost marked
// container wins.
var palette = map[string]string{
	"string":      colorGreen,
	"number":      colorBlue,
	"boolean":     colorYellow,
	"null":        colorGray,
	"undefined":   colorGray,
	"keyword":     colorMagenta,
	"constructor": colorCyan,
	"key":         colorRed,
	"tag":         colorMagenta,
}

type node struct {
	tag      string
	classes  []string
	parent   *node
	children []any // *node or string
}

// Surface writes records to w. The zero value is not usable; call New.
type Surface struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	host  *node
	lines []string
}

// Option configures a Surface.
type Option func(*Surface)

// WithColor enables ANSI colors per category.
func WithColor(on bool) Option {
	return func(s *Surface) { s.color = on }
}

// New creates a Surface writing to w. A nil w only keeps lines in memory.
func New(w io.Writer, opts ...Option) *Surface {
	s := &Surface{w: w, host: &node{tag: "console"}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Host returns the record container handle.
func (s *Surface) Host() surface.Handle { return s.host }

func (s *Surface) CreateContainer(tag string) surface.Handle {
	return &node{tag: strings.ToLower(tag)}
}

func (s *Surface) AppendChild(parent, child surface.Handle) error {
	p, ok := parent.(*node)
	if !ok || p == nil {
		return fmt.Errorf("term: parent %T: %w", parent, surface.ErrForeignHandle)
	}
	c, ok := child.(*node)
	if !ok || c == nil || c == s.host {
		return fmt.Errorf("term: child %T: %w", child, surface.ErrForeignHandle)
	}
	if c.parent != nil {
		return fmt.Errorf("term: child <%s> already attached", c.tag)
	}
	c.parent = p
	if p != s.host {
		p.children = append(p.children, c)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.children = append(p.children, c)
	line := s.line(c)
	s.lines = append(s.lines, line)
	if s.w != nil {
		if _, err := io.WriteString(s.w, line+"\n"); err != nil {
			return fmt.Errorf("term: write: %w", err)
		}
	}
	return nil
}

func (s *Surface) AppendText(parent surface.Handle, text string) error {
	p, ok := parent.(*node)
	if !ok || p == nil {
		return fmt.Errorf("term: parent %T: %w", parent, surface.ErrForeignHandle)
	}
	p.children = append(p.children, text)
	return nil
}

func (s *Surface) ApplyCategory(h surface.Handle, category string) {
	n, ok := h.(*node)
	if !ok || n == nil || category == "" {
		return
	}
	for _, c := range n.classes {
		if c == category {
			return
		}
	}
	n.classes = append(n.classes, category)
}

// Valid reports whether h was created by this package.
func (s *Surface) Valid(h surface.Handle) bool {
	n, ok := h.(*node)
	return ok && n != nil
}

// Clear forgets every record. Lines already written stay on the terminal.
func (s *Surface) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.host.children {
		if n, ok := c.(*node); ok {
			n.parent = nil
		}
	}
	s.host.children = nil
	s.lines = nil
	return nil
}

// Lines returns the records written since the last Clear.
func (s *Surface) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// String joins Lines with newlines.
func (s *Surface) String() string {
	return strings.Join(s.Lines(), "\n")
}

func (s *Surface) line(n *node) string {
	var b strings.Builder
	s.write(&b, n, "")
	return b.String()
}

func (s *Surface) write(b *strings.Builder, n *node, color string) {
	spaced := false
	for _, c := range n.classes {
		if p, ok := palette[c]; ok {
			color = p
		}
		spaced = spaced || c == surface.RecordClass
	}
	for i, c := range n.children {
		if spaced && i > 0 {
			b.WriteByte(' ')
		}
		switch c := c.(type) {
		case string:
			if s.color && color != "" && c != "" {
				b.WriteString(color + c + colorReset)
			} else {
				b.WriteString(c)
			}
		case *node:
			s.write(b, c, color)
		}
	}
}
