// CLAUDE:SUMMARY SQLite journal of console records; doubles as a sink and serves list, get, clear and prune.
// Package journal persists console records in SQLite. A Journal is a
// sink.Sink, so it is fed by the console like any other backend.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/domconsole/internal/dbopen"
	"github.com/hazyhaar/domconsole/internal/watch"
	"github.com/hazyhaar/domconsole/record"
)

// Schema for the console_records table.
const Schema = `
CREATE TABLE IF NOT EXISTS console_records (
	rid        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	seq        INTEGER NOT NULL,
	method     TEXT NOT NULL,
	values_json TEXT NOT NULL DEFAULT '[]',
	text       TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_console_records_created ON console_records(created_at);
CREATE INDEX IF NOT EXISTS idx_console_records_method ON console_records(method);
`

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 100

// Journal is the record store handle.
type Journal struct {
	DB  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the journal at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Journal, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return New(db), nil
}

// New wraps an open database whose schema is already applied.
func New(db *sql.DB) *Journal {
	return &Journal{DB: db, now: time.Now}
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.DB.Close()
}

// Send stores rec. A record with a known ID is ignored.
func (j *Journal) Send(ctx context.Context, rec record.Record) error {
	values, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("journal: marshal values: %w", err)
	}
	ts := rec.Timestamp
	if ts == 0 {
		ts = j.now().UnixMilli()
	}
	_, err = dbopen.Exec(ctx, j.DB, `
		INSERT OR IGNORE INTO console_records (id, seq, method, values_json, text, created_at)
		VALUES (?,?,?,?,?,?)`,
		rec.ID, rec.Seq, string(rec.Method), string(values), rec.Text, ts,
	)
	if err != nil {
		return fmt.Errorf("journal: insert %s: %w", rec.ID, err)
	}
	return nil
}

// Filter narrows List.
type Filter struct {
	Method record.Method // empty = any
	Since  time.Time     // zero = no lower bound
	Limit  int           // <= 0 = DefaultLimit
}

// List returns records oldest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]record.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, string(f.Method))
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := `SELECT id, seq, method, values_json, text, created_at FROM console_records`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, seq LIMIT ?"
	args = append(args, limit)

	rows, err := j.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Get returns the record with id, or nil when absent.
func (j *Journal) Get(ctx context.Context, id string) (*record.Record, error) {
	row := j.DB.QueryRowContext(ctx, `
		SELECT id, seq, method, values_json, text, created_at
		FROM console_records WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// Count returns the number of stored records.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM console_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

// Clear deletes every record.
func (j *Journal) Clear(ctx context.Context) error {
	if _, err := dbopen.Exec(ctx, j.DB, `DELETE FROM console_records`); err != nil {
		return fmt.Errorf("journal: clear: %w", err)
	}
	return nil
}

// Prune deletes records older than retention and returns how many went.
func (j *Journal) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := j.now().Add(-retention).UnixMilli()
	var n int64
	err := dbopen.RunTx(ctx, j.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM console_records WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return n, nil
}

// Cursor returns the insertion cursor of the newest record, 0 when empty.
// Cursors only grow: a cleared journal does not reuse them.
func (j *Journal) Cursor(ctx context.Context) (int64, error) {
	var n int64
	if err := j.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(rid), 0) FROM console_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: cursor: %w", err)
	}
	return n, nil
}

// Entry is a record with its insertion cursor.
type Entry struct {
	Cursor int64
	Record record.Record
}

// After returns up to limit entries inserted after cursor, oldest first.
func (j *Journal) After(ctx context.Context, cursor int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := j.DB.QueryContext(ctx, `
		SELECT rid, id, seq, method, values_json, text, created_at
		FROM console_records WHERE rid > ? ORDER BY rid LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: after: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			method string
			values string
		)
		if err := rows.Scan(&e.Cursor, &e.Record.ID, &e.Record.Seq, &method, &values, &e.Record.Text, &e.Record.Timestamp); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Record.Method = record.Method(method)
		if err := json.Unmarshal([]byte(values), &e.Record.Values); err != nil {
			return nil, fmt.Errorf("journal: decode values of %s: %w", e.Record.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Follow calls fn for every record inserted after Follow starts, oldest
// first, until ctx ends. Writes from other processes are picked up by
// polling every interval. When fn fails the remaining records are
// offered again on the next poll.
func (j *Journal) Follow(ctx context.Context, interval time.Duration, logger *slog.Logger, fn func(record.Record) error) error {
	cursor, err := j.Cursor(ctx)
	if err != nil {
		return err
	}
	start := cursor
	w := watch.New(j.DB, watch.Options{
		Interval: interval,
		Detector: watch.MaxColumnDetector("console_records", "rid"),
		Start:    &start,
		Logger:   logger,
	})
	w.OnChange(ctx, func() error {
		for {
			entries, err := j.After(ctx, cursor, DefaultLimit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := fn(e.Record); err != nil {
					return err
				}
				cursor = e.Cursor
			}
			if len(entries) < DefaultLimit {
				return nil
			}
		}
	})
	return ctx.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*record.Record, error) {
	var (
		rec    record.Record
		method string
		values string
	)
	if err := s.Scan(&rec.ID, &rec.Seq, &method, &values, &rec.Text, &rec.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	rec.Method = record.Method(method)
	if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
		return nil, fmt.Errorf("journal: decode values of %s: %w", rec.ID, err)
	}
	return &rec, nil
}
