// Package surface realises Display Nodes against a concrete output surface.
//
// A Surface is the external, mutable target: an HTML node tree, a terminal,
// anything that can create containers, append children in order and attach
// category markers. Materialize is the only code that mutates a surface.
package surface

import "errors"

// Handle is an opaque reference to a node owned by a Surface.
type Handle any

// Surface is the minimal collaborator the materializer needs. Appends are
// ordered and never replace existing children.
type Surface interface {
	CreateContainer(tag string) Handle
	AppendChild(parent, child Handle) error
	AppendText(parent Handle, text string) error
	ApplyCategory(h Handle, category string)
}

// Validator is implemented by surfaces that can tell whether a handle is
// a valid append target.
type Validator interface {
	Valid(h Handle) bool
}

// Clearer is implemented by surfaces supporting the explicit clear
// operation, the only way prior output is ever removed.
type Clearer interface {
	Clear() error
}

// RecordClass marks the container wrapping one logging call's values.
const RecordClass = "multi-args"

// ErrForeignHandle is returned by surfaces given a handle they do not own.
var ErrForeignHandle = errors.New("surface: foreign handle")
