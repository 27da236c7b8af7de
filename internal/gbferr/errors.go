// Package gbferr defines the error taxonomy for the goto-binary transcoder
// pipeline. The shapes mirror the way the teacher package internal/logger
// attaches structured detail to a message instead of building one-off
// fmt.Errorf strings: every error here carries a Kind plus the display form
// of whatever irep.Node it was raised about, so a diagnostic never has to
// re-derive "what went wrong where" from a bare string.
package gbferr

import "fmt"

// Kind classifies a transcoder failure into the taxonomy from the design:
// wire-format problems, post-adaptation invariant violations, unresolved
// references, the embedded anonymous-struct grammar, and I/O.
type Kind uint8

const (
	FormatError Kind = iota
	InvariantViolation
	UnresolvedReference
	AnonStructParseError
	IOError
)

func (k Kind) String() string {
	switch k {
	case FormatError:
		return "format error"
	case InvariantViolation:
		return "invariant violation"
	case UnresolvedReference:
		return "unresolved reference"
	case AnonStructParseError:
		return "anon-struct parse error"
	case IOError:
		return "io error"
	default:
		return "unknown error"
	}
}

// Error is a single transcoder failure. Node is the display form (see
// irep.Node.String) of the offending node, empty when the failure has no
// single associated node (e.g. a truncated byte stream).
type Error struct {
	Kind    Kind
	Text    string
	Node    string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node: %s)", e.Kind, e.Text, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New constructs an Error with no associated node.
func New(kind Kind, text string) error {
	return &Error{Kind: kind, Text: text}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Text: fmt.Sprintf(format, args...)}
}

// WithNode is New with the offending node's display form attached.
func WithNode(kind Kind, text string, node fmt.Stringer) error {
	return &Error{Kind: kind, Text: text, Node: node.String()}
}

// Wrap tags an underlying error (e.g. an io.Reader failure) with a Kind.
func Wrap(kind Kind, text string, err error) error {
	return &Error{Kind: kind, Text: text, Wrapped: err}
}
