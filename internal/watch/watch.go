// Package watch runs a "poll SQLite, detect change, debounce, act" loop.
//
//	w := watch.New(db, watch.Options{Interval: 200 * time.Millisecond})
//	go w.OnChange(ctx, func() error { return tail() })
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// ChangeDetector reads a version token; two different tokens mean the
// database changed.
type ChangeDetector func(ctx context.Context, db *sql.DB) (int64, error)

// Options tunes the watcher.
type Options struct {
	// Interval is the polling period. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action runs;
	// further changes restart it. 0 fires on the poll that saw the change.
	Debounce time.Duration
	// Detector defaults to PragmaDataVersion.
	Detector ChangeDetector
	// Start is the version the caller has already handled. Nil reads the
	// detector when OnChange starts.
	Start  *int64
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = PragmaDataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls one database.
type Watcher struct {
	db      *sql.DB
	opts    Options
	version atomic.Int64

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	fires   atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks  int64 `json:"checks"`
	Changes int64 `json:"changes"`
	Errors  int64 `json:"errors"`
	Fires   int64 `json:"fires"`
}

// New creates a Watcher. Call OnChange to start it.
func New(db *sql.DB, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{db: db, opts: opts}
}

func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:  w.checks.Load(),
		Changes: w.changes.Load(),
		Errors:  w.errors.Load(),
		Fires:   w.fires.Load(),
	}
}

// Version returns the last version whose action succeeded.
func (w *Watcher) Version() int64 { return w.version.Load() }

// OnChange polls until ctx ends and runs action once per settled change.
// A failed action leaves the version unchanged so the next poll retries.
func (w *Watcher) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger

	if w.opts.Start != nil {
		w.version.Store(*w.opts.Start)
	} else if v, err := w.opts.Detector(ctx, w.db); err != nil {
		log.Warn("watch: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var (
		debounce *time.Timer
		fireCh   <-chan time.Time
		pending  int64 = -1
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.errors.Add(1)
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			w.changes.Add(1)
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(log, action, pending)
				pending = -1
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.opts.Debounce)
			fireCh = debounce.C

		case <-fireCh:
			fireCh = nil
			if pending >= 0 {
				w.fire(log, action, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) fire(log *slog.Logger, action func() error, ver int64) {
	if err := action(); err != nil {
		w.errors.Add(1)
		log.Warn("watch: action failed", "error", err, "version", ver)
		return
	}
	w.fires.Add(1)
	w.version.Store(ver)
	log.Debug("watch: action done", "version", ver)
}

// PragmaDataVersion changes when another connection writes the file.
func PragmaDataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// MaxColumnDetector polls MAX(column) of table. It sees writes made on
// the watcher's own connection too.
func MaxColumnDetector(table, column string) ChangeDetector {
	query := "SELECT COALESCE(MAX(" + quoteIdent(column) + "), 0) FROM " + quoteIdent(table)
	return func(ctx context.Context, db *sql.DB) (int64, error) {
		var v int64
		err := db.QueryRowContext(ctx, query).Scan(&v)
		return v, err
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
