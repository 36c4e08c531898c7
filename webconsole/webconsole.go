// CLAUDE:SUMMARY Web console service: transport-agnostic endpoints over a console, its DOM surface and the record journal.
// Package webconsole exposes a console over HTTP (chi) and MCP. Both
// transports share the same kit endpoints: log, break, inspect, records
// and clear.
package webconsole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domconsole/console"
	"github.com/hazyhaar/domconsole/inspect"
	"github.com/hazyhaar/domconsole/internal/kit"
	"github.com/hazyhaar/domconsole/journal"
	"github.com/hazyhaar/domconsole/record"
	"github.com/hazyhaar/domconsole/surface/dom"
)

var (
	// ErrNoJournal is returned by the records endpoints when no journal is set.
	ErrNoJournal = errors.New("webconsole: journal disabled")
	// ErrRecordNotFound is returned when a record ID is not journaled.
	ErrRecordNotFound = errors.New("webconsole: record not found")
)

// Facade methods that are accepted and render nothing.
const (
	MethodWarn     = "warn"
	MethodGroup    = "group"
	MethodGroupEnd = "groupEnd"
)

// Service binds a console to the DOM surface it writes to.
type Service struct {
	console *console.Console
	dom     *dom.Surface
	journal *journal.Journal
	logger  *slog.Logger
	inspect []inspect.Option

	logEP     kit.Endpoint
	breakEP   kit.Endpoint
	inspectEP kit.Endpoint
	recordsEP kit.Endpoint
	recordEP  kit.Endpoint
	clearEP   kit.Endpoint
}

// Option configures a Service.
type Option func(*Service)

// WithJournal enables the records endpoint and clears the journal on clear.
func WithJournal(j *journal.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInspectOptions sets the introspector options of the inspect endpoint.
func WithInspectOptions(opts ...inspect.Option) Option {
	return func(s *Service) { s.inspect = append(s.inspect, opts...) }
}

// New creates a Service. c must have been built on d.
func New(c *console.Console, d *dom.Surface, opts ...Option) *Service {
	s := &Service{console: c, dom: d, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.logEP = kit.Logging(s.logger, "console_log")(s.log)
	s.breakEP = kit.Logging(s.logger, "console_break")(s.brk)
	s.inspectEP = kit.Logging(s.logger, "console_inspect")(s.inspectValues)
	s.recordsEP = kit.Logging(s.logger, "console_records")(s.records)
	s.recordEP = kit.Logging(s.logger, "console_record")(s.record)
	s.clearEP = kit.Logging(s.logger, "console_clear")(s.clear)
	return s
}

// LogRequest carries the values of one logging call. When HTML is set,
// its top-level elements are logged as element values and Values is
// ignored.
type LogRequest struct {
	Method record.Method     `json:"method,omitempty"`
	Values []json.RawMessage `json:"values"`
	HTML   string            `json:"html,omitempty"`
}

// InspectRequest carries values to introspect without logging.
type InspectRequest struct {
	Values []json.RawMessage `json:"values"`
}

// RecordsRequest filters the journal.
type RecordsRequest struct {
	Method record.Method `json:"method,omitempty"`
	Limit  int           `json:"limit,omitempty"`
}

// RecordRequest names one journaled record.
type RecordRequest struct {
	ID string `json:"id"`
}

// IgnoredResponse answers a facade method that renders nothing.
type IgnoredResponse struct {
	Status string `json:"status"`
	Method string `json:"method"`
}

// Health reports the console state.
type Health struct {
	Status    string `json:"status"`
	Records   int    `json:"records"`
	Seq       uint64 `json:"seq"`
	Journaled *int   `json:"journaled,omitempty"`
}

// ClearResponse reports what clear removed.
type ClearResponse struct {
	Status  string `json:"status"`
	Journal bool   `json:"journal"`
}

func (s *Service) log(ctx context.Context, req any) (any, error) {
	r := req.(*LogRequest)
	m := r.Method
	if m == "" {
		m = record.MethodLog
	}
	switch m {
	case record.MethodBreak:
		return s.console.Emit(ctx, m)
	case MethodWarn:
		return ignored(m, s.console.Warn())
	case MethodGroup:
		return ignored(m, s.console.Group())
	case MethodGroupEnd:
		return ignored(m, s.console.GroupEnd())
	}

	var values []any
	var err error
	if r.HTML != "" {
		values, err = ParseFragment(r.HTML)
	} else {
		values, err = DecodeValues(r.Values)
	}
	if err != nil {
		return nil, err
	}
	rec, err := s.console.Emit(ctx, m, values...)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func ignored(m record.Method, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return IgnoredResponse{Status: "ignored", Method: string(m)}, nil
}

func (s *Service) brk(ctx context.Context, _ any) (any, error) {
	return s.console.Emit(ctx, record.MethodBreak)
}

func (s *Service) inspectValues(_ context.Context, req any) (any, error) {
	r := req.(*InspectRequest)
	values, err := DecodeValues(r.Values)
	if err != nil {
		return nil, err
	}
	nodes := make([]inspect.Node, len(values))
	for i, v := range values {
		nodes[i] = inspect.Introspect(v, s.inspect...)
	}
	return map[string]any{"nodes": nodes}, nil
}

func (s *Service) records(ctx context.Context, req any) (any, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	r := req.(*RecordsRequest)
	recs, err := s.journal.List(ctx, journal.Filter{Method: r.Method, Limit: r.Limit})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return map[string]any{"records": recs}, nil
}

func (s *Service) record(ctx context.Context, req any) (any, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	r := req.(*RecordRequest)
	rec, err := s.journal.Get(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, r.ID)
	}
	return rec, nil
}

// Health returns the number of rendered records, the console sequence and,
// with a journal, the number of journaled records.
func (s *Service) Health(ctx context.Context) (Health, error) {
	h := Health{Status: "ok", Records: s.dom.Len(), Seq: s.console.Seq()}
	if s.journal != nil {
		n, err := s.journal.Count(ctx)
		if err != nil {
			return h, err
		}
		h.Journaled = &n
	}
	return h, nil
}

func (s *Service) clear(ctx context.Context, _ any) (any, error) {
	if err := s.console.Clear(); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return ClearResponse{Status: "cleared"}, nil
	}
	if err := s.journal.Clear(ctx); err != nil {
		return nil, err
	}
	return ClearResponse{Status: "cleared", Journal: true}, nil
}

// DecodeValues decodes each raw JSON value. Objects become maps, so their
// keys display sorted.
func DecodeValues(raw []json.RawMessage) ([]any, error) {
	out := make([]any, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("webconsole: value %d: %w", i, err)
		}
	}
	return out, nil
}

// ParseFragment parses an HTML fragment in a body context and returns its
// top-level elements, plus non-blank text runs as strings.
func ParseFragment(src string) ([]any, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("webconsole: parse html: %w", err)
	}
	var out []any
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			out = append(out, n)
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
		}
	}
	return out, nil
}
