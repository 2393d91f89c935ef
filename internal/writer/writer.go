// Package writer defines the per-format writer collaborator the scheduler
// drives, plus the built-in HTML and text writers.
package writer

import (
	"context"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/graph"
)

// Writer produces one output document per source document.
//
// SerializeMainProcess is the half of writing that must run in the
// coordinating process: one-time template or cache initialization that is
// not transferable to workers. The scheduler calls it for every document
// on the serial path and for the warm-up document on the parallel path.
//
// WriteDocument must be safe for concurrent calls when ParallelSafe
// reports true. Diagnostics go through rep, which is the coordinator's
// sink on the serial path and a per-task recorder inside the pool.
type Writer interface {
	Name() string
	ParallelSafe() bool
	PrepareWriting(ctx context.Context, docs []graph.DocID) error
	SerializeMainProcess(docname graph.DocID, tree *doctree.Tree) error
	WriteDocument(ctx context.Context, docname graph.DocID, tree *doctree.Tree, rep diag.Reporter) error

	// Finish runs after all documents are written. Long-running work
	// (asset copying, index generation) is registered through addTask and
	// drained by the orchestrator after Finish returns.
	Finish(ctx context.Context, addTask func(func() error)) error
}
