package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T, maxActive int64) (*Runner, *Store) {
	t.Helper()
	store := NewStore()
	runner := NewRunner(&RunnerConfig{
		Logger:    slog.New(slog.DiscardHandler),
		Store:     store,
		MaxActive: maxActive,
	})
	return runner, store
}

func waitForFinished(t *testing.T, store *Store, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		got, err := store.Get(id)
		if err != nil {
			return false
		}
		job = got
		return job.Finished()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

// writeArtifact is safe to call from work-function goroutines, so it
// must not fail the test via FailNow.
func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Errorf("write artifact %s: %v", path, err)
	}
	return path
}

func TestRunner_SubmitReturnsImmediately(t *testing.T) {
	runner, store := testRunner(t, 2)

	release := make(chan struct{})
	start := time.Now()
	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		<-release
		return "", fmt.Errorf("unused")
	})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "submit must not block on the work function")
	assert.Equal(t, StatusPending, job.Status)

	// The returned id is immediately resolvable in pending or running.
	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{StatusPending, StatusRunning}, got.Status)

	close(release)
	waitForFinished(t, store, job.ID)
}

func TestRunner_CompletedJob(t *testing.T) {
	runner, store := testRunner(t, 2)
	dir := t.TempDir()

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		require.NoError(t, store.Update(jobID, Update{Progress: Int(50)}))
		return writeArtifact(t, dir, "video.mp4"), nil
	})

	got := waitForFinished(t, store, job.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), got.ResultPath)
	assert.Empty(t, got.Error)
}

func TestRunner_FailedJobFreezesProgress(t *testing.T) {
	runner, store := testRunner(t, 2)

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		require.NoError(t, store.Update(jobID, Update{Progress: Int(37)}))
		return "", fmt.Errorf("engine exploded")
	})

	got := waitForFinished(t, store, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 37, got.Progress, "progress frozen at last reported value")
	assert.Contains(t, got.Error, "engine exploded")
	assert.NotEmpty(t, got.Message)
	assert.Empty(t, got.ResultPath)
}

func TestRunner_MissingArtifactIsFailure(t *testing.T) {
	runner, store := testRunner(t, 2)

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		return filepath.Join(t.TempDir(), "never-written.mp4"), nil
	})

	got := waitForFinished(t, store, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "result file missing")
}

func TestRunner_PanicIsContained(t *testing.T) {
	runner, store := testRunner(t, 2)

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		panic("work function bug")
	})

	got := waitForFinished(t, store, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "work function bug")
}

func TestRunner_Cancel(t *testing.T) {
	runner, store := testRunner(t, 2)

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("canceled: %w", ctx.Err())
	})

	require.Eventually(t, func() bool {
		got, err := store.Get(job.ID)
		return err == nil && got.Status == StatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, runner.Cancel(job.ID))

	got := waitForFinished(t, store, job.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "canceled")

	// Canceling a terminal job is rejected.
	assert.ErrorIs(t, runner.Cancel(job.ID), ErrJobFinished)
}

func TestRunner_CancelUnknownJob(t *testing.T) {
	runner, _ := testRunner(t, 2)
	assert.ErrorIs(t, runner.Cancel("no-such-id"), ErrJobNotFound)
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	const maxActive = 3
	runner, store := testRunner(t, maxActive)
	dir := t.TempDir()

	var active, peak int64
	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		n := i
		job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
			cur := atomic.AddInt64(&active, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return writeArtifact(t, dir, fmt.Sprintf("clip-%d.mp4", n)), nil
		})
		ids = append(ids, job.ID)
	}

	for _, id := range ids {
		got := waitForFinished(t, store, id)
		assert.Equal(t, StatusCompleted, got.Status)
	}
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(maxActive))
}

func TestRunner_ConcurrentJobsAreIndependent(t *testing.T) {
	const n = 50
	runner, store := testRunner(t, 8)
	dir := t.TempDir()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		i := i
		job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
			if i%5 == 0 {
				return "", fmt.Errorf("engine failure for item %d", i)
			}
			return writeArtifact(t, dir, fmt.Sprintf("item-%d.mp4", i)), nil
		})
		ids = append(ids, job.ID)
	}

	failed, completed := 0, 0
	for i, id := range ids {
		got := waitForFinished(t, store, id)
		if i%5 == 0 {
			assert.Equal(t, StatusFailed, got.Status)
			failed++
		} else {
			assert.Equal(t, StatusCompleted, got.Status)
			completed++
		}
	}
	assert.Equal(t, n/5, failed)
	assert.Equal(t, n-n/5, completed)
}

func TestRunner_Shutdown(t *testing.T) {
	runner, store := testRunner(t, 2)

	job := runner.Submit("download", func(ctx context.Context, jobID string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}
