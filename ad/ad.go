// Package ad defines the record types exchanged between the extraction
// engine's components: discovered advertisements, captured media assets,
// and the durable checkpoint snapshot. The JSON shapes here are the wire
// formats of the checkpoint file and the result output.
package ad

import "time"

// Record is one discovered advertisement. Records are immutable after
// creation except for MediaURLs, which the deduplicator may extend when
// the same ad reveals additional media on a later render.
type Record struct {
	LibraryID      string    `json:"library_id,omitempty"`
	AdvertiserName string    `json:"advertiser_name,omitempty"`
	Caption        string    `json:"caption,omitempty"`
	Headline       string    `json:"headline,omitempty"`
	CallToAction   string    `json:"call_to_action_text,omitempty"`
	DestinationURL string    `json:"destination_url,omitempty"`
	MediaURLs      []string  `json:"media_urls"`
	DateStarted    string    `json:"date_started,omitempty"`
	SourceID       string    `json:"source_identifier"`
	ExtractedAt    time.Time `json:"extracted_at"`
}

// Clone returns a deep copy of the record. MediaURLs is the only
// reference-typed field.
func (r Record) Clone() Record {
	c := r
	if r.MediaURLs != nil {
		c.MediaURLs = append([]string(nil), r.MediaURLs...)
	}
	return c
}

// MediaStatus is the lifecycle state of a captured media asset.
type MediaStatus string

const (
	StatusPending  MediaStatus = "PENDING"
	StatusCaptured MediaStatus = "CAPTURED"
	StatusFailed   MediaStatus = "FAILED"
)

// Media is one network response deemed to be ad media. RetryCount is
// bounded; once the bound is exceeded the status is FAILED permanently.
type Media struct {
	URL         string      `json:"url"`
	FirstSeenAt time.Time   `json:"first_seen_at"`
	RetryCount  int         `json:"retry_count"`
	Status      MediaStatus `json:"status"`
}

// Checkpoint is the durable snapshot of extraction progress. Each save
// fully replaces the prior snapshot; the record set only ever grows.
type Checkpoint struct {
	UniqueRecords []Record  `json:"unique_records"`
	ScrollCount   int       `json:"scroll_count"`
	MediaURLs     []string  `json:"media_urls"`
	SavedAt       time.Time `json:"saved_at"`
}
