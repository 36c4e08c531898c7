// Package idgen provides the pluggable ID strategy for console records.
//
// The console, the journal and the web console accept a Generator, so tests
// can swap UUIDv7 for a deterministic sequence.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// RecordPrefix is prepended to every record ID.
const RecordPrefix = "rec_"

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
// IDs sort by creation time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps gen and prepends prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequential returns a Generator producing "1", "2", ... Safe for
// concurrent use.
func Sequential() Generator {
	var n atomic.Uint64
	return func() string {
		return strconv.FormatUint(n.Add(1), 10)
	}
}

// Record is the default record ID generator: rec_ + UUIDv7.
func Record() Generator {
	return Prefixed(RecordPrefix, UUIDv7())
}

// ParseRecord validates a record ID and returns its UUID part.
func ParseRecord(id string) (uuid.UUID, error) {
	if len(id) <= len(RecordPrefix) || id[:len(RecordPrefix)] != RecordPrefix {
		return uuid.Nil, fmt.Errorf("idgen: %q lacks %s prefix", id, RecordPrefix)
	}
	u, err := uuid.Parse(id[len(RecordPrefix):])
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: invalid record id: %w", err)
	}
	return u, nil
}
