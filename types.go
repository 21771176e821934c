package adwatch

import (
	"context"
	"time"

	"github.com/hazyhaar/adwatch/ad"
)

// AdRecord is one discovered advertisement. Re-exported from the ad
// package.
type AdRecord = ad.Record

// MediaAsset is one tracked media URL with its capture state.
type MediaAsset = ad.Media

// Checkpoint is the durable progress snapshot.
type Checkpoint = ad.Checkpoint

// TerminationReason says why the scroll loop stopped.
type TerminationReason string

const (
	// ReasonNoGrowth: the page stopped growing for the configured number
	// of consecutive scrolls. The normal end of a finite result set.
	ReasonNoGrowth TerminationReason = "no_growth"
	// ReasonMaxScrolls: the scroll cap was reached. The result is a
	// valid prefix of the available ads.
	ReasonMaxScrolls TerminationReason = "max_scrolls"
	// ReasonNoResults: the page reported an empty result set. The run is
	// not a success; there was nothing to extract.
	ReasonNoResults TerminationReason = "no_results"
	// ReasonCancelled: the run's context was cancelled. Everything
	// collected so far is kept.
	ReasonCancelled TerminationReason = "cancelled"
	// ReasonError: navigation or setup failed before or during the loop.
	ReasonError TerminationReason = "error"
)

// RunRequest names the target and per-run overrides.
type RunRequest struct {
	// URL of the ad listing to extract.
	URL string `json:"url"`
	// MaxScrolls overrides the configured cap when positive.
	MaxScrolls int `json:"max_scrolls,omitempty"`
	// Resume seeds the run from the persisted checkpoint.
	Resume bool `json:"resume,omitempty"`
}

// Metrics summarizes one run.
type Metrics struct {
	TotalCandidates     int `json:"total_candidates"`
	UniqueRecords       int `json:"unique_records"`
	DroppedCandidates   int `json:"dropped_candidates"`
	MediaCaptured       int `json:"media_captured"`
	RetryQueueRemaining int `json:"retry_queue_remaining"`
	ScrollsPerformed    int `json:"scrolls_performed"`
	SkippedSteps        int `json:"skipped_steps"`
}

// Result is the outcome of one extraction run. Records and MediaURLs
// reflect everything admitted up to termination, whatever the reason;
// partial output from a cancelled or capped run is valid output.
type Result struct {
	Success           bool              `json:"success"`
	RunID             string            `json:"run_id"`
	URL               string            `json:"url"`
	StartedAt         time.Time         `json:"started_at"`
	DurationSeconds   float64           `json:"duration_seconds"`
	TerminationReason TerminationReason `json:"termination_reason"`
	Error             string            `json:"error,omitempty"`
	Records           []AdRecord        `json:"records"`
	MediaURLs         []string          `json:"media_urls"`
	Metrics           Metrics           `json:"metrics"`
}

// Session is one live page the engine drives. The production session is
// a Rod tab; tests inject fakes.
type Session interface {
	// Navigate loads the target and waits for it to settle.
	Navigate(ctx context.Context, url string) error
	// OnResponse streams network responses until the session closes.
	OnResponse(fn func(url, mime string, status int))
	// Extent returns the current document scroll height.
	Extent(ctx context.Context) (float64, error)
	// Scroll advances the viewport by one step.
	Scroll(ctx context.Context) error
	// HTML serializes the current DOM.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// overlayHandler is implemented by sessions that can deal with blocking
// dialogs and empty-state detection. Optional; fakes may skip it.
type overlayHandler interface {
	DismissOverlays(ctx context.Context) bool
	NoResults(ctx context.Context) bool
}

// SessionFactory opens the session for a run.
type SessionFactory func(ctx context.Context) (Session, error)

// SelectorSource provides ordered selector fallback lists per logical
// target.
type SelectorSource interface {
	Queries(target string) []string
	Sets() map[string][]string
}

// CheckpointStore persists and restores run progress.
type CheckpointStore interface {
	Save(ctx context.Context, cp *ad.Checkpoint) error
	Load(ctx context.Context) (*ad.Checkpoint, error)
}
