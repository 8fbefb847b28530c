package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediagrab/fetch-api/internal/jobs"
)

// DefaultPlaylistTitle names the archive when the engine could not
// resolve a human-readable collection title.
const DefaultPlaylistTitle = "playlist"

// FetcherConfig holds fetcher configuration
type FetcherConfig struct {
	Logger *slog.Logger
	Store  *jobs.Store
	Engine Engine

	// MediaExt is the expected extension of produced artifacts,
	// including the dot (for example ".mp4").
	MediaExt string

	// TempDir is the base directory for per-job playlist working
	// directories; empty means the OS default.
	TempDir string
}

// Fetcher builds the work functions that drive the acquisition engine
// and report progress into the job store.
type Fetcher struct {
	logger   *slog.Logger
	store    *jobs.Store
	engine   Engine
	mediaExt string
	tempDir  string
}

// NewFetcher creates a new fetcher instance
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	ext := cfg.MediaExt
	if ext == "" {
		ext = ".mp4"
	}
	return &Fetcher{
		logger:   cfg.Logger,
		store:    cfg.Store,
		engine:   cfg.Engine,
		mediaExt: ext,
		tempDir:  cfg.TempDir,
	}
}

// SingleWork returns the work function for a single-item acquisition:
// download into destDir and hand back the produced file.
func (f *Fetcher) SingleWork(url, destDir string) jobs.WorkFunc {
	return func(ctx context.Context, jobID string) (string, error) {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", fmt.Errorf("create destination directory: %w", err)
		}

		f.progress(jobID, 0, "downloading")

		res, err := f.engine.Fetch(ctx, Request{
			URL:        url,
			OutputDir:  destDir,
			OnProgress: f.singleProgress(jobID),
		})
		if err != nil {
			return "", fmt.Errorf("acquisition failed: %w", err)
		}

		path := f.locateArtifact(res, destDir)
		if path == "" {
			return "", fmt.Errorf("no %s artifact found in %s after download", f.mediaExt, destDir)
		}
		return path, nil
	}
}

// PlaylistWork returns the work function for a collection acquisition:
// download every item into an isolated per-job working directory, then
// package the produced media files into one archive under destDir. The
// working directory is removed on every exit path.
func (f *Fetcher) PlaylistWork(url, destDir string) jobs.WorkFunc {
	return func(ctx context.Context, jobID string) (string, error) {
		workDir, err := os.MkdirTemp(f.tempDir, "fetch-"+jobID+"-")
		if err != nil {
			return "", fmt.Errorf("create working directory: %w", err)
		}
		defer func() {
			if rmErr := os.RemoveAll(workDir); rmErr != nil {
				f.logger.Warn("Failed to remove working directory",
					slog.String("job_id", jobID),
					slog.String("work_dir", workDir),
					slog.String("error", rmErr.Error()),
				)
			}
		}()

		f.progress(jobID, 0, "downloading playlist")

		res, err := f.engine.Fetch(ctx, Request{
			URL:        url,
			OutputDir:  workDir,
			Playlist:   true,
			OnProgress: f.playlistProgress(jobID),
		})
		if err != nil {
			return "", fmt.Errorf("acquisition failed: %w", err)
		}

		files := f.mediaFiles(res, workDir)
		if len(files) == 0 {
			return "", fmt.Errorf("no %s artifacts found in %s after download", f.mediaExt, workDir)
		}

		// Title resolution is best-effort: a missing title degrades
		// to a generic archive name, never a failed job.
		title := sanitizeTitle(res.Title)
		if title == "" {
			title = DefaultPlaylistTitle
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", fmt.Errorf("create destination directory: %w", err)
		}

		archivePath := filepath.Join(destDir, title+".zip")
		f.progress(jobID, 99, "packaging archive")
		if err := writeArchive(archivePath, files); err != nil {
			return "", fmt.Errorf("package archive: %w", err)
		}

		return archivePath, nil
	}
}

// singleProgress maps raw engine percent signals onto the job record.
// Malformed signals are dropped and the previous progress survives.
func (f *Fetcher) singleProgress(jobID string) ProgressFunc {
	return func(p Progress) {
		pct, ok := parsePercent(p.Percent)
		if !ok {
			return
		}
		msg := "downloading"
		if p.Title != "" {
			msg = "downloading " + p.Title
		}
		f.progress(jobID, pct, msg)
	}
}

// playlistProgress reports per-item progress when the engine knows its
// position in the collection, falling back to the raw percent signal.
func (f *Fetcher) playlistProgress(jobID string) ProgressFunc {
	return func(p Progress) {
		within, ok := parsePercent(p.Percent)

		if p.TotalItems > 0 && p.Item > 0 {
			pct := (p.Item - 1) * 100 / p.TotalItems
			if ok {
				pct += within / p.TotalItems
			}
			if pct > 100 {
				pct = 100
			}
			f.progress(jobID, pct, fmt.Sprintf("downloading item %d/%d", p.Item, p.TotalItems))
			return
		}

		if !ok {
			return
		}
		msg := "downloading playlist"
		if p.Title != "" {
			msg = "downloading " + p.Title
		}
		f.progress(jobID, within, msg)
	}
}

func (f *Fetcher) progress(jobID string, pct int, msg string) {
	if err := f.store.Update(jobID, jobs.Update{
		Progress: jobs.Int(pct),
		Message:  jobs.String(msg),
	}); err != nil {
		f.logger.Debug("Dropped progress update",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// locateArtifact picks the produced file: first an existing engine
// result with the expected extension, then a scan of dir for the newest
// matching file.
func (f *Fetcher) locateArtifact(res *Result, dir string) string {
	if res != nil {
		for _, file := range res.Files {
			if !strings.EqualFold(filepath.Ext(file), f.mediaExt) {
				continue
			}
			if _, err := os.Stat(file); err == nil {
				return file
			}
		}
	}
	matches := f.scanDir(dir)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// mediaFiles collects every produced media file for archiving, with the
// same directory-scan fallback as locateArtifact.
func (f *Fetcher) mediaFiles(res *Result, dir string) []string {
	var files []string
	if res != nil {
		for _, file := range res.Files {
			if !strings.EqualFold(filepath.Ext(file), f.mediaExt) {
				continue
			}
			if _, err := os.Stat(file); err == nil {
				files = append(files, file)
			}
		}
	}
	if len(files) > 0 {
		return files
	}
	return f.scanDir(dir)
}

// scanDir lists files in dir with the expected extension, in name order.
func (f *Fetcher) scanDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		f.logger.Warn("Failed to scan directory for artifacts",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), f.mediaExt) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files
}
