package jobs

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Reindexer rebuilds the knowledge index from its source directory.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// ReindexWorker watches the knowledge source directory and rebuilds the
// index when files change. Filesystem events only mark the index dirty; the
// actual rebuild happens on the next ProcessJobs tick, which debounces
// bursts of writes into one reindex.
type ReindexWorker struct {
	reindexer Reindexer
	watcher   *fsnotify.Watcher
	dirty     atomic.Bool
}

// NewReindexWorker creates a worker watching dir. The first tick always
// reindexes so the daemon starts with a populated index.
func NewReindexWorker(dir string, reindexer Reindexer) (*ReindexWorker, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create knowledge watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch knowledge dir %s: %w", dir, err)
	}

	w := &ReindexWorker{reindexer: reindexer, watcher: watcher}
	w.dirty.Store(true)
	return w, nil
}

// Watch consumes filesystem events until the context is cancelled. Run it in
// its own goroutine alongside the polling Worker.
func (w *ReindexWorker) Watch(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				log.Printf("knowledge source changed: %s", event.Name)
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("knowledge watcher error: %v", err)
		}
	}
}

// ProcessJobs implements JobProcessor. It reindexes only when the directory
// changed since the last run; a failed rebuild leaves the dirty flag set so
// the next tick retries.
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	if !w.dirty.CompareAndSwap(true, false) {
		return nil
	}
	if err := w.reindexer.Reindex(ctx); err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("reindex knowledge: %w", err)
	}
	return nil
}

// MarkDirty forces a rebuild on the next tick.
func (w *ReindexWorker) MarkDirty() {
	w.dirty.Store(true)
}
