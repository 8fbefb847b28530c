// Package cleanup implements deferred deletion of delivered result
// files. A single worker goroutine drains the queue for the process
// lifetime so deletion never happens on the request path.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Worker consumes file paths from the queue and removes them from disk.
type Worker struct {
	logger *slog.Logger
	paths  chan string

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a cleanup worker with a queue of the given capacity.
func NewWorker(logger *slog.Logger, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		logger:   logger,
		paths:    make(chan string, queueSize),
		stopChan: make(chan struct{}),
	}
}

// Enqueue submits a path for deletion. It never blocks the caller: if
// the queue is full the entry is dropped with a warning, which only
// delays reclamation until the next delivery of the same file.
func (w *Worker) Enqueue(path string) {
	if path == "" {
		return
	}

	select {
	case w.paths <- path:
		w.logger.Debug("Cleanup enqueued", slog.String("path", path))
	default:
		w.logger.Warn("Cleanup queue full, dropping entry",
			slog.String("path", path),
		)
	}
}

// Start launches the single consumer goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop signals the worker and waits for it to drain.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	w.logger.Info("Cleanup worker started")

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Cleanup worker stopping - stop requested")
			return

		case <-ctx.Done():
			w.logger.Info("Cleanup worker stopping - context canceled")
			return

		case path := <-w.paths:
			w.remove(path)
		}
	}
}

// remove deletes one entry. Errors are logged and swallowed: a single
// bad entry must never terminate the worker, and deleting a path that
// is already gone is not an error.
func (w *Worker) remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		w.logger.Info("Result file removed", slog.String("path", path))
	case os.IsNotExist(err):
		w.logger.Debug("Result file already removed", slog.String("path", path))
	default:
		w.logger.Warn("Failed to remove result file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
