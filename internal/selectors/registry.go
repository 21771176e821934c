// Package selectors holds the ordered fallback lists of structural
// queries used to locate ad cards and their fields in a DOM whose
// structure is not guaranteed stable. Lists are evaluated first-match-wins
// and are data-driven: the compiled-in defaults can be overridden from a
// JSON cache file or a SQLite table between runs.
package selectors

import "sync"

// Logical targets. Each maps to an ordered list of CSS queries.
const (
	TargetCard        = "ad_card"
	TargetLibraryID   = "library_id"
	TargetHeadline    = "headline"
	TargetCaption     = "caption"
	TargetAdvertiser  = "advertiser"
	TargetCTA         = "cta"
	TargetDate        = "date_started"
	TargetDestination = "destination"
	TargetMediaImage  = "media_image"
	TargetMediaVideo  = "media_video"
)

// Registry maps logical target names to ordered selector fallback lists.
// It is read-only during a run; Merge and Reload are for between-run use.
type Registry struct {
	mu   sync.RWMutex
	sets map[string][]string
}

// Defaults returns a Registry seeded with the compiled-in fallback lists.
// The lists start with the most specific structural hints and degrade to
// broad selectors that survive class-name churn.
func Defaults() *Registry {
	return &Registry{sets: map[string][]string{
		TargetCard: {
			"[data-testid='ad-card']",
			"[role='article']",
			"div[data-ad-preview]",
			".x1n2onr6 > div > div",
		},
		TargetLibraryID: {
			"[data-testid='ad-library-id']",
			"span[class*='library']",
		},
		TargetHeadline: {
			"[data-testid='ad-headline']",
			"div[dir='auto'] strong",
			"h3",
			"h4",
		},
		TargetCaption: {
			"[data-testid='ad-text']",
			"div[dir='auto']",
			"span[dir='auto']",
		},
		TargetAdvertiser: {
			"[data-testid='page-name']",
			"a[aria-label] strong",
			"strong",
			"b",
		},
		TargetCTA: {
			"[data-testid='cta-button']",
			"a[role='button']",
			"button",
		},
		TargetDate: {
			"[data-testid='ad-date']",
			"span[class*='date']",
		},
		TargetDestination: {
			"a[data-lynx-uri]",
			"a[href]",
		},
		TargetMediaImage: {
			"img[src*='fbcdn']",
			"img[src*='safe_image.php']",
			"img[src]",
			"div[style*='background-image']",
		},
		TargetMediaVideo: {
			"video[src]",
			"video source[src]",
		},
	}}
}

// Queries returns the ordered fallback list for a target, or nil when the
// target is unknown. The returned slice is a copy.
func (r *Registry) Queries(target string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	qs, ok := r.sets[target]
	if !ok {
		return nil
	}
	return append([]string(nil), qs...)
}

// Sets returns a copy of the full target → queries mapping.
func (r *Registry) Sets() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.sets))
	for k, v := range r.sets {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Merge overlays the given sets on top of the current ones. A target
// present in the overlay fully replaces its default list; unknown targets
// are added as-is.
func (r *Registry) Merge(sets map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range sets {
		r.sets[k] = append([]string(nil), v...)
	}
}
