package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

const progressInterval = 500 * time.Millisecond

// Output templates passed to yt-dlp. Playlist downloads get an index
// prefix so concurrent items with duplicate titles cannot collide.
const (
	singleOutputTemplate   = "%(title)s.%(ext)s"
	playlistOutputTemplate = "%(playlist_index)s-%(title)s.%(ext)s"
)

// YTDLPEngine drives the yt-dlp tool through the go-ytdlp bindings.
type YTDLPEngine struct {
	logger *slog.Logger
}

// NewYTDLPEngine creates the yt-dlp backed engine.
func NewYTDLPEngine(logger *slog.Logger) *YTDLPEngine {
	return &YTDLPEngine{logger: logger}
}

// Fetch runs one blocking yt-dlp invocation into req.OutputDir,
// forwarding percent progress to req.OnProgress.
func (e *YTDLPEngine) Fetch(ctx context.Context, req Request) (*Result, error) {
	template := singleOutputTemplate
	if req.Playlist {
		template = playlistOutputTemplate
	}

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(req.OutputDir, template))

	if req.OnProgress != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			p := Progress{}
			if update.TotalBytes > 0 {
				pct := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
				p.Percent = fmt.Sprintf("%.1f%%", pct)
			}
			if update.Info != nil && update.Info.Title != nil {
				p.Title = *update.Info.Title
			}
			req.OnProgress(p)
		})
	}

	e.logger.Debug("Starting yt-dlp",
		slog.String("url", req.URL),
		slog.String("output_dir", req.OutputDir),
		slog.Bool("playlist", req.Playlist),
	)

	runResult, err := dl.Run(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp run: %w", err)
	}

	res := &Result{}
	if runResult != nil {
		info, infoErr := runResult.GetExtractedInfo()
		if infoErr != nil {
			// Metadata is best-effort; callers fall back to a
			// directory scan when the file list is empty.
			e.logger.Warn("Failed to read yt-dlp extracted info",
				slog.String("url", req.URL),
				slog.String("error", infoErr.Error()),
			)
			return res, nil
		}
		for _, entry := range info {
			if entry.Filename != nil {
				res.Files = append(res.Files, *entry.Filename)
			}
			if res.Title == "" && entry.Title != nil {
				res.Title = *entry.Title
			}
		}
	}

	return res, nil
}
