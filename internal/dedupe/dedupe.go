// Package dedupe decides membership in the "already seen" ad set using
// layered keys: an exact source identifier when the page exposes one,
// otherwise a composite signature over normalized headline, media URLs
// and destination URL. It is the single owner of seen-state; the scroll
// loop and the network observer both reach it through its mutex.
package dedupe

import (
	"sync"

	"github.com/hazyhaar/adwatch/ad"
)

// Deduper accumulates unique records. Safe for concurrent use.
type Deduper struct {
	mu       sync.Mutex
	bySource map[string]*ad.Record
	bySig    map[string]*ad.Record
	order    []*ad.Record
}

// New creates an empty Deduper.
func New() *Deduper {
	return &Deduper{
		bySource: make(map[string]*ad.Record),
		bySig:    make(map[string]*ad.Record),
	}
}

// Seed preloads records from a checkpoint so a resumed run does not
// re-admit ads it already persisted. Records without a source identifier
// are keyed by their composite signature, same as live admission.
func (d *Deduper) Seed(records []ad.Record) {
	for _, r := range records {
		d.Admit(r)
	}
}

// Admit reports whether the candidate is new. On a duplicate, newly
// observed media URLs are merged into the existing record's media list
// (the same ad can reveal different media on successive renders) and
// false is returned. Admitted records without a source identifier get one
// derived from their signature, so every stored record satisfies the
// non-empty source_identifier invariant.
func (d *Deduper) Admit(c ad.Record) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.SourceID != "" {
		if existing, ok := d.bySource[c.SourceID]; ok {
			mergeMedia(existing, c.MediaURLs)
			return false
		}
	}

	sig := signature(c.Headline, c.MediaURLs, c.DestinationURL)
	if c.SourceID == "" {
		if existing, ok := d.bySig[sig]; ok {
			mergeMedia(existing, c.MediaURLs)
			return false
		}
		c.SourceID = "sig:" + sig
	}

	stored := c.Clone()
	d.bySource[stored.SourceID] = &stored
	d.bySig[sig] = &stored
	d.order = append(d.order, &stored)
	return true
}

// Records returns the unique records in admission order. The result and
// its media lists are copies.
func (d *Deduper) Records() []ad.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ad.Record, 0, len(d.order))
	for _, r := range d.order {
		out = append(out, r.Clone())
	}
	return out
}

// Len returns the number of unique records.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// mergeMedia appends media URLs the existing record has not seen yet,
// keeping order and dropping exact duplicates.
func mergeMedia(existing *ad.Record, urls []string) {
	if len(urls) == 0 {
		return
	}
	seen := make(map[string]bool, len(existing.MediaURLs))
	for _, u := range existing.MediaURLs {
		seen[u] = true
	}
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		existing.MediaURLs = append(existing.MediaURLs, u)
		seen[u] = true
	}
}
