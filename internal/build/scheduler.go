package build

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/errors"
	"git.home.luguber.info/inful/docwright/internal/graph"
	"git.home.luguber.info/inful/docwright/internal/parallel"
	"git.home.luguber.info/inful/docwright/internal/util/sets"
)

// write drives the write phase for the resolved write set. Documents are
// always written in lexicographic docname order; the parallel path
// preserves that order per worker chunk and replays worker diagnostics in
// chunk order, so output is deterministic for a given parallelism.
func (o *Orchestrator) write(ctx context.Context, docs sets.Set[graph.DocID]) error {
	sorted := sets.Sorted(docs)

	parallelOK := false
	if o.cfg.Parallelism > 1 && o.writer.ParallelSafe() {
		parallelOK = true
		for _, ext := range o.extensions.All() {
			if ext.ParallelWriteSafe {
				continue
			}
			msg := fmt.Sprintf("the %s extension is not safe for parallel writing, doing serial write", ext.Name)
			if err := o.sink.Warning(msg, diag.Tagged("extension", "parallel_write")); err != nil {
				return err
			}
			parallelOK = false
		}
	}

	o.sink.Info(o.sink.Decorate("bold", "preparing documents... "), diag.NoNewline())
	if err := o.writer.PrepareWriting(ctx, sorted); err != nil {
		return errors.Fatal(errors.CategoryWrite, "preparing documents", err)
	}
	o.sink.Info("done")

	if parallelOK {
		return o.writeParallel(ctx, sorted, o.cfg.Parallelism-1)
	}
	return o.writeSerial(ctx, sorted)
}

func (o *Orchestrator) writeSerial(ctx context.Context, docs []graph.DocID) error {
	o.sink.Info(o.sink.Decorate("bold", "writing output... "))
	for _, doc := range docs {
		if err := o.writeOne(ctx, doc, o.sink, true); err != nil {
			return err
		}
	}
	return nil
}

// writeParallel writes the first document in the coordinator to warm up
// writer caches, then fans the rest out to nproc worker tasks. Workers
// collect their diagnostics in private recorders; the coordinator replays
// them through the sink after the pool drains, even when a task failed,
// so no collected warning is ever lost.
func (o *Orchestrator) writeParallel(ctx context.Context, docs []graph.DocID, nproc int) error {
	o.sink.Info(o.sink.Decorate("bold", "writing output... "))

	first, rest := docs[0], docs[1:]
	if err := o.writeOne(ctx, first, o.sink, true); err != nil {
		return err
	}
	if len(rest) == 0 {
		return nil
	}

	chunks := parallel.MakeChunks(rest, nproc)
	recorders := make([]*diag.Recorder, len(chunks))
	tasks := parallel.NewTasks(ctx, nproc)
	for i, chunk := range chunks {
		rec := diag.NewRecorder()
		recorders[i] = rec
		chunk := chunk
		tasks.Add(func(ctx context.Context) error {
			for _, doc := range chunk {
				if err := o.writeOne(ctx, doc, rec, false); err != nil {
					return err
				}
			}
			return nil
		})
	}

	o.sink.Info(o.sink.Decorate("bold", "waiting for workers..."))
	taskErr := tasks.Join()

	var replayErr error
	for _, rec := range recorders {
		if err := o.sink.Replay(rec.Records()); err != nil && replayErr == nil {
			replayErr = err
		}
	}

	if taskErr != nil {
		if isEscalation(taskErr) || errors.IsFatal(taskErr) {
			return taskErr
		}
		return errors.Fatal(errors.CategoryWrite, "worker task failed", taskErr)
	}
	return replayErr
}

// writeOne resolves and writes a single document. serialize is true only
// in the coordinator, where the writer's main-process initialization is
// allowed to run.
func (o *Orchestrator) writeOne(ctx context.Context, doc graph.DocID, rep diag.Reporter, serialize bool) error {
	tree, err := o.graph.ResolveTree(ctx, doc)
	if err != nil {
		return errors.Fatal(errors.CategoryWrite, fmt.Sprintf("resolving document %s", doc), err)
	}
	if serialize {
		if err := o.writer.SerializeMainProcess(doc, tree); err != nil {
			return errors.Fatal(errors.CategoryWrite, fmt.Sprintf("serializing document %s", doc), err)
		}
	}
	if err := o.writer.WriteDocument(ctx, doc, tree, rep); err != nil {
		if isEscalation(err) {
			return err
		}
		return errors.Fatal(errors.CategoryWrite, fmt.Sprintf("writing document %s", doc), err)
	}
	return nil
}
