// Package fetch contains the media acquisition work functions and the
// engine contract they drive. The engine itself is opaque: it downloads
// into a directory, reports progress through a callback, and returns
// the produced files.
package fetch

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Progress is one progress signal from the engine. Percent is the raw
// percent-complete string as reported (for example "42.3%"); Item and
// TotalItems are set when the engine is walking a collection and knows
// its position in it.
type Progress struct {
	Percent    string
	Item       int
	TotalItems int
	Title      string
}

// ProgressFunc receives interim progress during an engine call.
type ProgressFunc func(Progress)

// Request describes one engine invocation.
type Request struct {
	URL        string
	OutputDir  string
	Playlist   bool
	OnProgress ProgressFunc
}

// Result is what the engine produced: the downloaded file paths and a
// best-effort human-readable title for the source.
type Result struct {
	Files []string
	Title string
}

// Engine is the external acquisition component. Calls block until the
// download finishes or ctx is canceled.
type Engine interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// parsePercent converts a raw percent signal into an integer 0-100.
// Malformed input is ignored (ok=false) so the job keeps its previous
// progress; slightly out-of-range values are clamped rather than
// rejected.
func parsePercent(raw string) (int, bool) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if raw == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v), true
}
