package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/nao1215/crawlcore/internal/model"
)

// Writer decides when to checkpoint and persists snapshots through a Store.
//
// Design decision: Deciding and writing are split into Tick and Write because:
//  1. The caller must take the snapshot under its own lock, between the two
//  2. The disk write must happen outside that lock so page processing
//     continues while a checkpoint is being written
//  3. Only one periodic write is in flight at a time; ticks arriving during
//     a write are carried over to the next page
//
// The page counter restarts when a write is reserved. A failed write puts
// it back at the threshold, so the next page retries instead of waiting
// another full interval.
//
// Snapshots carry a monotonically increasing PagesProcessed value. Write
// skips a snapshot older than the last one written, so a slow writer can
// never replace a newer checkpoint with an older one.
type Writer struct {
	store Store
	every int

	mu       sync.Mutex
	pending  int
	inflight bool

	writeMu     sync.Mutex
	written     bool
	lastWritten int64
	writes      int
	failures    int
}

// NewWriter creates a Writer that requests a checkpoint every `every` pages.
// Values below 1 request a checkpoint on every page.
func NewWriter(store Store, every int) *Writer {
	if every < 1 {
		every = 1
	}
	return &Writer{store: store, every: every}
}

// Tick records one processed page and reports whether the caller should take
// a snapshot and pass it to Write. A true result reserves the in-flight slot,
// which the following Write releases.
func (w *Writer) Tick() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending++
	if w.pending < w.every || w.inflight {
		return false
	}
	w.pending = 0
	w.inflight = true
	return true
}

// Write persists snap. Failures are wrapped in ErrCheckpointWrite. The same
// snapshot is not retried; the next Tick fires and a fresh one is written.
func (w *Writer) Write(ctx context.Context, snap *model.Snapshot) (err error) {
	defer func() { w.release(err != nil) }()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.written && snap.PagesProcessed < w.lastWritten {
		return nil
	}

	if saveErr := w.store.Save(ctx, snap); saveErr != nil {
		w.failures++
		return fmt.Errorf("%w: %s: %w", ErrCheckpointWrite, w.store.Path(), saveErr)
	}

	w.written = true
	w.lastWritten = snap.PagesProcessed
	w.writes++
	return nil
}

// Stats returns the number of successful and failed writes.
func (w *Writer) Stats() (writes, failures int) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.writes, w.failures
}

// Store returns the underlying store.
func (w *Writer) Store() Store {
	return w.store
}

func (w *Writer) release(failed bool) {
	w.mu.Lock()
	w.inflight = false
	if failed {
		w.pending = max(w.pending, w.every-1)
	}
	w.mu.Unlock()
}
