// Package sink defines output backends for console records.
package sink

import (
	"context"

	"github.com/hazyhaar/domconsole/record"
)

// Sink receives every record emitted by a console. Implementations deliver
// to different backends (stdout, webhook, SQLite journal, in-process
// callback).
type Sink interface {
	Send(ctx context.Context, rec record.Record) error
	Close() error
}
