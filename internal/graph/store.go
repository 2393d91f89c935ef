// Package graph owns the persisted document dependency graph: which
// documents exist, how they include each other, and which are stale
// relative to the last successful build.
package graph

import (
	"context"
	"path"
	"strings"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/util/sets"
)

// DocID is the stable identifier of a document: its normalized relative
// path without the source suffix. Comparison is lexicographic, which gives
// the deterministic write ordering the scheduler relies on.
type DocID string

// Normalize converts a corpus-relative file path into a DocID.
func Normalize(relpath, suffix string) DocID {
	p := path.Clean(strings.ReplaceAll(relpath, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, suffix)
	return DocID(p)
}

// Store is the dependency-graph collaborator the orchestrator drives.
//
// Update and CheckConsistency fail fatally; the orchestrator aborts the
// invocation on their errors. Everything else is defensive.
type Store interface {
	// Update rescans the corpus and returns the set of documents whose
	// content changed since the persisted snapshot.
	Update(ctx context.Context) (sets.Set[DocID], error)

	// DependentsOf returns the transitive closure of documents that
	// include any document in changed.
	DependentsOf(changed sets.Set[DocID]) sets.Set[DocID]

	// Persist writes the graph snapshot. It runs exactly once per build,
	// after staleness resolution and before any writer.
	Persist(ctx context.Context) error

	// CheckConsistency reports structural problems (documents unreachable
	// from the root toctree) through rep.
	CheckConsistency(rep diag.Reporter) error

	// KnownDocuments returns every document present in the current graph.
	KnownDocuments() sets.Set[DocID]

	// TocIncluders returns the documents that directly include doc in
	// their table of contents.
	TocIncluders(doc DocID) sets.Set[DocID]

	// ResolveTree produces the resolved document model for doc.
	ResolveTree(ctx context.Context, doc DocID) (*doctree.Tree, error)
}
