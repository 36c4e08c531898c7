package sink

import (
	"context"

	"github.com/hazyhaar/domconsole/record"
)

// RecordFunc is called for each record, in-process.
type RecordFunc func(ctx context.Context, rec record.Record) error

// Callback delivers records as plain Go calls with no serialisation.
type Callback struct {
	fn RecordFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn RecordFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, rec record.Record) error {
	if c.fn != nil {
		return c.fn(ctx, rec)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
