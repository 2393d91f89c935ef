package diag

import (
	"fmt"

	"git.home.luguber.info/inful/docwright/internal/doctree"
)

type locationKind uint8

const (
	locNone locationKind = iota
	locDocument
	locDocumentLine
	locOrigin
)

// Location pins a record to a document, a document line, or a node origin.
// The zero value means "no location".
//
// Document locations carry a docname and get the configured source suffix
// appended when formatted. Origin locations come from resolved tree nodes
// and carry the parser-reported source path verbatim.
type Location struct {
	kind locationKind
	doc  string
	line int
}

// InDocument locates a record in a document without a line number.
func InDocument(docname string) Location {
	return Location{kind: locDocument, doc: docname}
}

// AtLine locates a record at a specific line of a document.
func AtLine(docname string, line int) Location {
	return Location{kind: locDocumentLine, doc: docname, line: line}
}

// FromNode derives a location from a resolved tree node. Source or line
// may be missing; the formatting rules mark each absence distinctly.
func FromNode(n *doctree.Node) Location {
	if n == nil {
		return Location{}
	}
	return Location{kind: locOrigin, doc: n.Source, line: n.Line}
}

// prefix renders the location according to the console output contract.
// suffix is the configured source suffix, applied to docnames only;
// origin sources are parser-reported paths and are used verbatim.
func (l Location) prefix(suffix string) string {
	switch l.kind {
	case locDocument:
		return l.doc + suffix + ": "
	case locDocumentLine:
		return fmt.Sprintf("%s%s:%d: ", l.doc, suffix, l.line)
	case locOrigin:
		switch {
		case l.doc != "" && l.line > 0:
			return fmt.Sprintf("%s:%d: ", l.doc, l.line)
		case l.doc != "":
			// Doubled separator marks a known source with an unknown line.
			return l.doc + ":: "
		case l.line > 0:
			return fmt.Sprintf("<unknown>:%d: ", l.line)
		}
	}
	return ""
}

func (l Location) isZero() bool {
	return l.kind == locNone || (l.kind == locOrigin && l.doc == "" && l.line <= 0)
}

// Record is a single immutable diagnostic emission.
type Record struct {
	Level    Level
	Message  string
	Location Location

	// Color overrides the level's default color by name ("red", "bold"...).
	Color string

	// Type and Subtype classify the record for suppression matching.
	// Records without a Type are never suppressed.
	Type    string
	Subtype string

	// NoNewline suppresses the trailing line terminator so the next record
	// on the same stream continues the line.
	NoNewline bool
}

// EmitOption customizes a single emission.
type EmitOption func(*Record)

// WithLocation attaches a location to the record.
func WithLocation(loc Location) EmitOption {
	return func(r *Record) { r.Location = loc }
}

// WithColor overrides the record's color by name.
func WithColor(name string) EmitOption {
	return func(r *Record) { r.Color = name }
}

// Tagged classifies the record for suppression matching.
func Tagged(typ, subtype string) EmitOption {
	return func(r *Record) {
		r.Type = typ
		r.Subtype = subtype
	}
}

// NoNewline emits the record without a trailing line terminator.
func NoNewline() EmitOption {
	return func(r *Record) { r.NoNewline = true }
}

func newRecord(level Level, msg string, opts []EmitOption) Record {
	rec := Record{Level: level, Message: msg}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}
