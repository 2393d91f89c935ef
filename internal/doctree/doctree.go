// Package doctree holds the narrow slice of the resolved document model
// that the build core consumes. The full object model (sections, inline
// markup, cross references) belongs to the resolution engine; the core
// only needs enough to write documents and to attribute diagnostics.
package doctree

// Node is a location-bearing element of a resolved document.
// Source is the originating file path as reported by the parser, or empty
// when unknown. Line is 1-based; zero means unknown.
type Node struct {
	Source string
	Line   int
}

// Tree is the resolved in-memory form of a single document.
type Tree struct {
	// Docname is the normalized document identifier (no suffix).
	Docname string

	// SourcePath is the path of the file the tree was resolved from.
	SourcePath string

	// Title is the first heading, or the docname when there is none.
	Title string

	// Body is the raw markup body. Writers render it themselves.
	Body []byte
}
