package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediagrab/fetch-api/internal/api/dto"
	"github.com/mediagrab/fetch-api/internal/jobs"
)

// SubmitDownload handles POST /api/v1/downloads
// Submits a single-item acquisition job and returns its id immediately.
func (h *JobHandler) SubmitDownload(c *gin.Context) {
	h.submit(c, "download")
}

// SubmitPlaylist handles POST /api/v1/playlists
// Submits a collection acquisition job producing a single archive.
func (h *JobHandler) SubmitPlaylist(c *gin.Context) {
	h.submit(c, "playlist")
}

func (h *JobHandler) submit(c *gin.Context, kind string) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "url is required",
		})
		return
	}

	destDir := req.DestDir
	if destDir == "" {
		destDir = h.defaultDir
	}

	var work jobs.WorkFunc
	if kind == "playlist" {
		work = h.fetcher.PlaylistWork(req.URL, destDir)
	} else {
		work = h.fetcher.SingleWork(req.URL, destDir)
	}

	job := h.runner.Submit(kind, work)

	h.logger.Info("Job accepted",
		slog.String("job_id", job.ID),
		slog.String("kind", kind),
		slog.String("url", req.URL),
	)

	c.JSON(http.StatusAccepted, dto.SubmitJobResponse{
		JobID:  job.ID,
		Kind:   job.Kind,
		Status: job.Status,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the full job record for status polling.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs newest first with optional status filtering.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	listed := h.store.List(req.Status, req.Limit)
	out := make([]dto.JobDTO, len(listed))
	for i, job := range listed {
		out[i] = toJobDTO(job)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// DeliverResult handles GET /api/v1/jobs/:job_id/file
// Streams the result file of a completed job. Archive results are
// enqueued for cleanup once the stream starts; single-item results are
// left in place.
func (h *JobHandler) DeliverResult(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.Get(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	if job.Status != jobs.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job result not ready",
			"status": job.Status,
		})
		return
	}

	// A vanished artifact after a successful job is a delivery-time
	// error, not a job failure.
	if _, err := os.Stat(job.ResultPath); err != nil {
		h.logger.Warn("Result file missing at delivery time",
			slog.String("job_id", job.ID),
			slog.String("result_path", job.ResultPath),
		)
		c.JSON(http.StatusConflict, gin.H{
			"error": "result file no longer available",
		})
		return
	}

	c.FileAttachment(job.ResultPath, filepath.Base(job.ResultPath))

	if isArchive(job.ResultPath) {
		h.cleanup.Enqueue(job.ResultPath)
	}
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Requests cooperative abort of a pending or running job.
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	err := h.runner.Cancel(jobID)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
	case errors.Is(err, jobs.ErrJobFinished):
		c.JSON(http.StatusConflict, gin.H{
			"error": "job already finished",
		})
	case err != nil:
		h.logger.Error("Failed to cancel job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to cancel job",
		})
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"job_id": jobID,
			"status": "canceling",
		})
	}
}

// jobIDParam extracts and validates the :job_id path parameter.
func (h *JobHandler) jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

func isArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

func toJobDTO(job jobs.Job) dto.JobDTO {
	return dto.JobDTO{
		JobID:      job.ID,
		Kind:       job.Kind,
		Status:     job.Status,
		Progress:   job.Progress,
		Message:    job.Message,
		ResultPath: job.ResultPath,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.Format(time.RFC3339),
	}
}
