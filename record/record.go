// CLAUDE:SUMMARY Record type emitted by the console for every logging call: ordered Parsed Nodes plus their rendered text.
// Package record defines the structured unit emitted by the console. Sinks,
// the journal and the web console all consume this type.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/domconsole/inspect"
)

// Method is the console operation that produced a record.
type Method string

const (
	MethodLog   Method = "log"
	MethodInfo  Method = "info"
	MethodDebug Method = "debug"
	MethodBreak Method = "break"
)

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodLog, MethodInfo, MethodDebug, MethodBreak:
		return true
	}
	return false
}

// Record is one emitted log record.
type Record struct {
	ID        string         `json:"id"`        // rec_ + UUIDv7
	Seq       uint64         `json:"seq"`       // monotonically increasing per console
	Method    Method         `json:"method"`
	Values    []inspect.Node `json:"values"`    // one Parsed Node per argument, in order
	Text      string         `json:"text"`      // visible text of the rendered record
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
}

// Marshal serialises a Record to JSON.
func Marshal(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal deserialises a Record from JSON.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("record: unmarshal: %w", err)
	}
	if !r.Method.Valid() {
		return nil, fmt.Errorf("record: unknown method %q", r.Method)
	}
	return &r, nil
}
