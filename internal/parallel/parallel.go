// Package parallel provides the bounded task executor the write scheduler
// drives, plus the chunking helper that assigns documents to worker slots.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Tasks is a bounded executor: at most the configured number of submitted
// functions run concurrently. Join blocks until all complete and returns
// the first failure; a failure also cancels the context handed to the
// remaining tasks.
type Tasks struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewTasks creates an executor with the given number of worker slots.
// Slot counts below one are clamped to one.
func NewTasks(ctx context.Context, slots int) *Tasks {
	if slots < 1 {
		slots = 1
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(slots)
	return &Tasks{group: group, ctx: ctx}
}

// Add submits a task. It may block until a worker slot is free.
func (t *Tasks) Add(fn func(ctx context.Context) error) {
	t.group.Go(func() error {
		return fn(t.ctx)
	})
}

// Join waits for all submitted tasks and returns the first error.
func (t *Tasks) Join() error {
	return t.group.Wait()
}

// MakeChunks splits items into at most slots contiguous blocks, preserving
// order within each block. Earlier blocks receive the remainder, so block
// sizes differ by at most one. Empty input yields no chunks.
func MakeChunks[T any](items []T, slots int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if slots < 1 {
		slots = 1
	}
	if slots > len(items) {
		slots = len(items)
	}

	size := len(items) / slots
	rest := len(items) % slots

	chunks := make([][]T, 0, slots)
	pos := 0
	for i := 0; i < slots; i++ {
		n := size
		if i < rest {
			n++
		}
		chunks = append(chunks, items[pos:pos+n])
		pos += n
	}
	return chunks
}
