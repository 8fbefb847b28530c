package handler

import (
	"log/slog"

	"github.com/mediagrab/fetch-api/internal/cleanup"
	"github.com/mediagrab/fetch-api/internal/fetch"
	"github.com/mediagrab/fetch-api/internal/jobs"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Store   *jobs.Store
	Runner  *jobs.Runner
	Fetcher *fetch.Fetcher
	Cleanup *cleanup.Worker

	// DefaultDir is the destination directory used when a submission
	// does not name one.
	DefaultDir string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger     *slog.Logger
	store      *jobs.Store
	runner     *jobs.Runner
	fetcher    *fetch.Fetcher
	cleanup    *cleanup.Worker
	defaultDir string
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		store:      deps.Store,
		runner:     deps.Runner,
		fetcher:    deps.Fetcher,
		cleanup:    deps.Cleanup,
		defaultDir: deps.DefaultDir,
	}
}
