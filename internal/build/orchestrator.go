// Package build contains the orchestrator that sequences a build
// invocation and the scheduler that fans document writing out to workers.
package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docwright/internal/config"
	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/errors"
	"git.home.luguber.info/inful/docwright/internal/extension"
	"git.home.luguber.info/inful/docwright/internal/graph"
	"git.home.luguber.info/inful/docwright/internal/metrics"
	"git.home.luguber.info/inful/docwright/internal/util/sets"
	"git.home.luguber.info/inful/docwright/internal/writer"
)

// Mode selects how the write set is derived for an invocation.
type Mode string

const (
	// ModeFull writes every known document.
	ModeFull Mode = "full"

	// ModeUpdate writes only documents that are stale or depend on stale
	// ones.
	ModeUpdate Mode = "update"

	// ModeSpecific writes explicitly requested documents plus whatever the
	// staleness resolution adds.
	ModeSpecific Mode = "specific"
)

// Orchestrator runs one build invocation end to end: graph update,
// staleness resolution, persistence, consistency check, write scheduling
// and finalization. It is not safe for concurrent invocations; the CLI
// and the watch loop run builds one at a time.
type Orchestrator struct {
	cfg    *config.Config
	graph  graph.Store
	writer writer.Writer
	sink   *diag.Sink

	extensions *extension.Registry
	catalogs   extension.CatalogCompiler
	recorder   metrics.Recorder

	mu          sync.Mutex
	finishTasks []func() error
}

// New assembles an orchestrator over its collaborators. Extensions,
// catalog compilation and metrics are optional and default to inert
// implementations.
func New(cfg *config.Config, store graph.Store, w writer.Writer, sink *diag.Sink) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		graph:      store,
		writer:     w,
		sink:       sink,
		extensions: extension.NewRegistry(),
		recorder:   metrics.NoopRecorder{},
	}
}

// WithExtensions installs the active extension registry.
func (o *Orchestrator) WithExtensions(reg *extension.Registry) *Orchestrator {
	if reg != nil {
		o.extensions = reg
	}
	return o
}

// WithCatalogCompiler installs a translation-catalog compiler to run
// before the write phase.
func (o *Orchestrator) WithCatalogCompiler(cc extension.CatalogCompiler) *Orchestrator {
	o.catalogs = cc
	return o
}

// WithMetrics installs a metrics recorder.
func (o *Orchestrator) WithMetrics(rec metrics.Recorder) *Orchestrator {
	if rec != nil {
		o.recorder = rec
	}
	return o
}

// AddFinishTask defers fn until after the writer's Finish hook. Tasks run
// serially in registration order; the first failure aborts the drain.
func (o *Orchestrator) AddFinishTask(fn func() error) {
	o.mu.Lock()
	o.finishTasks = append(o.finishTasks, fn)
	o.mu.Unlock()
}

// BuildAll writes every document in the corpus.
func (o *Orchestrator) BuildAll(ctx context.Context) error {
	return o.run(ctx, nil, "all source files", ModeFull)
}

// BuildUpdate writes only stale documents and their dependents.
func (o *Orchestrator) BuildUpdate(ctx context.Context) error {
	return o.run(ctx, nil, "targets for source files that are out of date", ModeUpdate)
}

// BuildSpecific writes the named documents. Names may be docnames or
// corpus-relative paths with the source suffix.
func (o *Orchestrator) BuildSpecific(ctx context.Context, names []string) error {
	requested := make([]graph.DocID, 0, len(names))
	for _, name := range names {
		requested = append(requested, graph.Normalize(name, o.cfg.SourceSuffix))
	}
	summary := fmt.Sprintf("%d source files given on command line", len(names))
	return o.run(ctx, requested, summary, ModeSpecific)
}

func (o *Orchestrator) run(ctx context.Context, requested []graph.DocID, summary string, mode Mode) error {
	buildID := uuid.NewString()
	o.sink.Reset()
	o.recorder.BuildStarted(buildID)

	start := time.Now()
	err := o.runBuild(ctx, requested, summary, mode)
	o.recorder.BuildCompleted(buildID, err == nil, time.Since(start))
	o.recorder.WarningsEmitted(o.sink.WarningCount())
	return err
}

func (o *Orchestrator) runBuild(ctx context.Context, requested []graph.DocID, summary string, mode Mode) error {
	s := o.sink
	s.Info(s.Decorate("bold", fmt.Sprintf("building [%s]", o.writer.Name())) + ": " + summary)

	// Warnings raised while rescanning the corpus are withheld until the
	// scan completes, so a failed scan does not spray half-formed
	// diagnostics before the fatal error.
	var changed sets.Set[graph.DocID]
	err := s.PendingWarnings(func() error {
		var uerr error
		changed, uerr = o.graph.Update(ctx)
		return uerr
	})
	if err != nil {
		if _, ok := errors.AsBuildError(err); ok {
			return err
		}
		if isEscalation(err) {
			return err
		}
		return errors.Fatal(errors.CategoryGraph, "updating document graph", err)
	}

	updated := changed.Clone()
	s.Info(s.Decorate("bold", "looking for now-outdated files... "), diag.NoNewline())
	dependents := o.graph.DependentsOf(changed)
	for doc := range dependents {
		updated.Add(doc)
	}
	if len(dependents) > 0 {
		s.Info(fmt.Sprintf("%d found", len(dependents)))
	} else {
		s.Info("none found")
	}

	if len(updated) > 0 {
		s.Info(s.Decorate("bold", "saving dependency graph... "), diag.NoNewline())
		if perr := o.graph.Persist(ctx); perr != nil {
			return errors.Fatal(errors.CategoryGraph, "saving dependency graph", perr)
		}
		s.Info("done")

		s.Info(s.Decorate("bold", "checking consistency... "), diag.NoNewline())
		if cerr := o.graph.CheckConsistency(s); cerr != nil {
			if isEscalation(cerr) {
				return cerr
			}
			return errors.Fatal(errors.CategoryConsistency, "consistency check failed", cerr)
		}
		s.Info("done")
	} else if mode == ModeUpdate && len(requested) == 0 {
		s.Info(s.Decorate("bold", "no targets are out of date."))
		return nil
	}

	known := o.graph.KnownDocuments()
	writeSet := o.resolveWriteSet(requested, updated, known, mode)

	if o.catalogs != nil {
		if cerr := o.catalogs.CompileCatalogs(ctx, s); cerr != nil {
			if isEscalation(cerr) {
				return cerr
			}
			return errors.Fatal(errors.CategoryWrite, "compiling catalogs", cerr)
		}
	}

	if werr := o.write(ctx, writeSet); werr != nil {
		return werr
	}
	o.recorder.DocumentsWritten(len(writeSet))

	if ferr := o.writer.Finish(ctx, o.AddFinishTask); ferr != nil {
		if isEscalation(ferr) {
			return ferr
		}
		return errors.Fatal(errors.CategoryFinish, "finishing build", ferr)
	}
	return o.drainFinishTasks()
}

// resolveWriteSet turns the requested documents, the staleness resolution
// and the corpus membership into the final write set. Documents no longer
// in the corpus are dropped even when requested explicitly. Documents
// whose toctrees include a member are pulled in transitively, and the
// root document is always a member.
func (o *Orchestrator) resolveWriteSet(requested []graph.DocID, updated, known sets.Set[graph.DocID], mode Mode) sets.Set[graph.DocID] {
	writeSet := sets.New[graph.DocID]()
	switch mode {
	case ModeFull:
		writeSet = known.Clone()
	case ModeUpdate:
		writeSet = updated.Intersect(known)
	case ModeSpecific:
		// Only the requested documents. Staleness still updates the graph
		// above, but does not grow an explicit selection.
		for _, doc := range requested {
			if known.Has(doc) {
				writeSet.Add(doc)
			}
		}
	}

	queue := sets.Sorted(writeSet)
	for len(queue) > 0 {
		doc := queue[0]
		queue = queue[1:]
		for includer := range o.graph.TocIncluders(doc) {
			if known.Has(includer) && !writeSet.Has(includer) {
				writeSet.Add(includer)
				queue = append(queue, includer)
			}
		}
	}

	writeSet.Add(graph.DocID(o.cfg.RootDocument))
	return writeSet
}

func (o *Orchestrator) drainFinishTasks() error {
	o.mu.Lock()
	tasks := o.finishTasks
	o.finishTasks = nil
	o.mu.Unlock()

	for _, task := range tasks {
		if err := task(); err != nil {
			return errors.Fatal(errors.CategoryFinish, "finish task failed", err)
		}
	}
	return nil
}

// isEscalation reports whether err is a warning escalated under
// warning-is-error mode. Escalations carry their own formatted message
// and must not be rewrapped.
func isEscalation(err error) bool {
	var esc *diag.EscalatedWarning
	return stderrors.As(err, &esc)
}
