// CLAUDE:SUMMARY Logging facade: each call introspects, transforms and materializes its values into one record appended to the surface.
// Package console is the logging facade. A Console owns no output of its
// own: every call turns its arguments into Parsed Nodes, renders them to
// Display Nodes, materializes them under one record container and appends
// that record to the target handle of a Surface.
//
// Method mapping: Log, Info and Debug log; Warn, Group and GroupEnd are
// no-ops; Break logs a single empty value.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/domconsole/inspect"
	"github.com/hazyhaar/domconsole/internal/idgen"
	"github.com/hazyhaar/domconsole/record"
	"github.com/hazyhaar/domconsole/render"
	"github.com/hazyhaar/domconsole/sink"
	"github.com/hazyhaar/domconsole/surface"
)

// ErrInvalidSurfaceTarget is returned by New when the surface or target
// handle is missing or rejected by the surface.
var ErrInvalidSurfaceTarget = errors.New("console: invalid surface target")

// Console is safe for concurrent use; calls are serialized so records
// appear in call order.
type Console struct {
	mu      sync.Mutex
	surface surface.Surface
	target  surface.Handle
	logger  *slog.Logger
	sink    sink.Sink
	ids     idgen.Generator
	inspect []inspect.Option
	ctx     context.Context
	now     func() time.Time
	seq     uint64
}

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the logger for sink failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSink delivers every record to s after it is on the surface.
func WithSink(s sink.Sink) Option {
	return func(c *Console) { c.sink = s }
}

// WithIDGenerator replaces the record ID generator. Default: rec_ + UUIDv7.
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *Console) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithInspectOptions sets the introspector options used for every value.
func WithInspectOptions(opts ...inspect.Option) Option {
	return func(c *Console) { c.inspect = append(c.inspect, opts...) }
}

// WithContext sets the context handed to the sink. Default: Background.
func WithContext(ctx context.Context) Option {
	return func(c *Console) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// New binds a Console to target on s.
func New(s surface.Surface, target surface.Handle, opts ...Option) (*Console, error) {
	if s == nil || target == nil {
		return nil, ErrInvalidSurfaceTarget
	}
	if v, ok := s.(surface.Validator); ok && !v.Valid(target) {
		return nil, fmt.Errorf("%w: %T", ErrInvalidSurfaceTarget, target)
	}
	c := &Console{
		surface: s,
		target:  target,
		logger:  slog.Default(),
		ids:     idgen.Record(),
		ctx:     context.Background(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Log appends one record holding values, rendered left to right.
func (c *Console) Log(values ...any) error {
	_, err := c.Emit(c.ctx, record.MethodLog, values...)
	return err
}

// Info is Log.
func (c *Console) Info(values ...any) error {
	_, err := c.Emit(c.ctx, record.MethodInfo, values...)
	return err
}

// Debug is Log.
func (c *Console) Debug(values ...any) error {
	_, err := c.Emit(c.ctx, record.MethodDebug, values...)
	return err
}

// Warn ignores its arguments.
func (c *Console) Warn(...any) error { return nil }

// Group ignores its arguments.
func (c *Console) Group(...any) error { return nil }

// GroupEnd ignores its arguments.
func (c *Console) GroupEnd(...any) error { return nil }

// Break appends a record holding one empty value. Arguments are ignored.
func (c *Console) Break(...any) error {
	_, err := c.Emit(c.ctx, record.MethodBreak)
	return err
}

// Clear removes prior records when the surface supports it; it is a no-op
// otherwise.
func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.surface.(surface.Clearer)
	if !ok {
		return nil
	}
	if err := cl.Clear(); err != nil {
		return fmt.Errorf("console: clear: %w", err)
	}
	return nil
}

// Emit runs the pipeline for one call and returns the record it appended.
// Break ignores values. Surface errors are returned; sink errors are only
// logged.
func (c *Console) Emit(ctx context.Context, m record.Method, values ...any) (record.Record, error) {
	var nodes []inspect.Node
	if m == record.MethodBreak {
		nodes = []inspect.Node{inspect.Empty()}
	} else {
		nodes = make([]inspect.Node, len(values))
		for i, v := range values {
			nodes[i] = inspect.Introspect(v, c.inspect...)
		}
	}
	return c.EmitNodes(ctx, m, nodes)
}

// EmitNodes appends a record for already introspected values.
func (c *Console) EmitNodes(ctx context.Context, m record.Method, nodes []inspect.Node) (record.Record, error) {
	if !m.Valid() {
		return record.Record{}, fmt.Errorf("console: unknown method %q", m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	texts := make([]string, len(nodes))
	rec := c.surface.CreateContainer(render.TagRoot)
	c.surface.ApplyCategory(rec, surface.RecordClass)
	for i, n := range nodes {
		dn := render.Transform(n)
		texts[i] = render.Plain(dn)
		h, err := surface.Materialize(c.surface, dn)
		if err != nil {
			return record.Record{}, fmt.Errorf("console: %s: %w", m, err)
		}
		if err := c.surface.AppendChild(rec, h); err != nil {
			return record.Record{}, fmt.Errorf("console: %s: append value: %w", m, err)
		}
	}
	if err := c.surface.AppendChild(c.target, rec); err != nil {
		return record.Record{}, fmt.Errorf("console: %s: append record: %w", m, err)
	}

	c.seq++
	out := record.Record{
		ID:        c.ids(),
		Seq:       c.seq,
		Method:    m,
		Values:    nodes,
		Text:      strings.Join(texts, " "),
		Timestamp: c.now().UnixMilli(),
	}
	if c.sink != nil {
		if err := c.sink.Send(ctx, out); err != nil {
			c.logger.WarnContext(ctx, "console: sink failed", "id", out.ID, "method", string(m), "error", err)
		}
	}
	return out, nil
}

// Seq returns the sequence number of the last record.
func (c *Console) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
