package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
)

// WorkFunc is the job-type-specific logic executed by the runner. It
// reports interim progress through the store keyed by jobID and returns
// the absolute path of the produced artifact on success.
type WorkFunc func(ctx context.Context, jobID string) (string, error)

// RunnerConfig holds runner configuration
type RunnerConfig struct {
	Logger    *slog.Logger
	Store     *Store
	MaxActive int64
}

// Runner launches work functions on their own goroutines and drives the
// pending → running → {completed, failed} state machine in the store.
// Launch is gated by a weighted semaphore so the number of simultaneously
// active jobs stays bounded; Submit itself never blocks on the gate.
type Runner struct {
	logger *slog.Logger
	store  *Store
	sem    *semaphore.Weighted

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunner creates a new runner instance
func NewRunner(cfg *RunnerConfig) *Runner {
	maxActive := cfg.MaxActive
	if maxActive <= 0 {
		maxActive = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger:  cfg.Logger,
		store:   cfg.Store,
		sem:     semaphore.NewWeighted(maxActive),
		baseCtx: ctx,
		stop:    cancel,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit creates a pending job record and starts the work function on an
// independent goroutine. The caller gets the freshly created record back
// immediately and never blocks on the unit of work.
func (r *Runner) Submit(kind string, fn WorkFunc) Job {
	job := r.store.Create(kind)

	jobCtx, cancel := context.WithCancel(r.baseCtx)
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(jobCtx, job.ID, fn)

	r.logger.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("kind", kind),
	)

	return job
}

// Cancel requests cooperative abort of an in-flight job. The job
// terminates as failed with a canceled message once the work function
// observes its context. Terminal jobs return ErrJobFinished.
func (r *Runner) Cancel(id string) error {
	job, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if job.Finished() {
		return ErrJobFinished
	}

	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return ErrJobFinished
	}

	cancel()
	r.logger.Info("Job cancel requested", slog.String("job_id", id))
	return nil
}

// Shutdown stops accepting work into running jobs by canceling their
// contexts and waits for the in-flight goroutines to drain, bounded by
// the supplied context.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.stop()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runner shutdown: %w", ctx.Err())
	}
}

// run executes a single job. Every failure path, including panics inside
// the work function, ends in a terminal failed record and never escapes
// the goroutine.
func (r *Runner) run(ctx context.Context, jobID string, fn WorkFunc) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.cancels[jobID]; ok {
			delete(r.cancels, jobID)
			cancel()
		}
		r.mu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Job panicked",
				slog.String("job_id", jobID),
				slog.Any("panic", rec),
			)
			r.fail(jobID, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	// Bounded launch: the slot is acquired here, on the job's own
	// goroutine, so submission stays non-blocking.
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.fail(jobID, fmt.Sprintf("canceled before start: %v", err))
		return
	}
	defer r.sem.Release(1)

	if err := r.store.Update(jobID, Update{
		Status:  String(StatusRunning),
		Message: String("starting"),
	}); err != nil {
		r.logger.Error("Failed to mark job running",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	resultPath, err := fn(ctx, jobID)
	if err != nil {
		r.logger.Error("Job execution failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		r.fail(jobID, err.Error())
		return
	}

	// Absence of the artifact after an otherwise successful run is a
	// failure, not a silent completion.
	if _, statErr := os.Stat(resultPath); statErr != nil {
		r.logger.Error("Job result missing on disk",
			slog.String("job_id", jobID),
			slog.String("result_path", resultPath),
			slog.String("error", statErr.Error()),
		)
		r.fail(jobID, fmt.Sprintf("result file missing: %s", resultPath))
		return
	}

	if err := r.store.Update(jobID, Update{
		Status:     String(StatusCompleted),
		Progress:   Int(100),
		Message:    String("completed"),
		ResultPath: String(resultPath),
	}); err != nil {
		r.logger.Error("Failed to mark job completed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	r.logger.Info("Job completed",
		slog.String("job_id", jobID),
		slog.String("result_path", resultPath),
	)
}

// fail records a terminal failed state. The last reported progress is
// left untouched so callers can see where the job stopped.
func (r *Runner) fail(jobID, msg string) {
	if err := r.store.Update(jobID, Update{
		Status:  String(StatusFailed),
		Message: String(msg),
		Error:   String(msg),
	}); err != nil {
		r.logger.Error("Failed to mark job failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
