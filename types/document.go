// Package types defines the data model shared across the runtime policy
// engine: the document tree carried by events, policy identity, and the
// caller-facing debug mode enumeration.
package types

import "encoding/json"

// Document is the structured tree an Event carries: a JSON-shaped value
// of null, bool, int, double, string, array, or object. The engine never
// interprets a Document's contents; it only asks for its pretty form on
// egress.
type Document struct {
	value any
}

// NewDocument wraps an arbitrary JSON-marshalable value as a Document.
func NewDocument(value any) Document {
	return Document{value: value}
}

// Value returns the underlying value.
func (d Document) Value() any {
	return d.value
}

// PrettyString renders the document as indented JSON, the pretty form an
// external event's own serializer is assumed to provide. Marshal failures
// render as a JSON string describing the error rather than panicking —
// egress must never block on a malformed document.
func (d Document) PrettyString() string {
	b, err := json.MarshalIndent(d.value, "", "  ")
	if err != nil {
		return `"<document marshal error: ` + err.Error() + `>"`
	}
	return string(b) + "\n"
}
