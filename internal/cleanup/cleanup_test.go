package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorker(t *testing.T) *Worker {
	t.Helper()
	w := NewWorker(slog.New(slog.DiscardHandler), 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	t.Cleanup(w.Stop)
	return w
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))
	return path
}

func TestWorker_DeletesEnqueuedFile(t *testing.T) {
	w := testWorker(t)
	path := writeFile(t, t.TempDir(), "archive.zip")

	w.Enqueue(path)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 5*time.Millisecond)
}

func TestWorker_SurvivesMissingEntries(t *testing.T) {
	w := testWorker(t)
	dir := t.TempDir()

	// A path that never existed, and a real file enqueued twice: the
	// second deletion hits an already-removed path. Neither may stop
	// the worker.
	w.Enqueue(filepath.Join(dir, "already-gone.zip"))
	path := writeFile(t, dir, "real.zip")
	w.Enqueue(path)
	w.Enqueue(path)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 5*time.Millisecond)

	// Worker is still draining after the bad entries.
	second := writeFile(t, dir, "second.zip")
	w.Enqueue(second)
	require.Eventually(t, func() bool {
		_, err := os.Stat(second)
		return os.IsNotExist(err)
	}, 5*time.Second, 5*time.Millisecond)
}

func TestWorker_EnqueueNeverBlocks(t *testing.T) {
	// Worker not started: the queue fills up and further entries are
	// dropped instead of blocking the caller.
	w := NewWorker(slog.New(slog.DiscardHandler), 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Enqueue("/nonexistent/path.zip")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestWorker_EmptyPathIgnored(t *testing.T) {
	w := NewWorker(slog.New(slog.DiscardHandler), 1)
	w.Enqueue("")
	assert.Len(t, w.paths, 0)
}
