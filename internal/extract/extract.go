// Package extract turns the current DOM of an ad-library page into
// candidate ad records. Every logical target (card boundary, headline,
// CTA, date, destination, media) is located through an ordered selector
// fallback list, first non-empty match wins; a target with no match
// yields an empty field, never a failed candidate.
package extract

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/adwatch/ad"
	"github.com/hazyhaar/adwatch/internal/selectors"
)

// QuerySource provides the ordered selector fallback list per logical
// target. Satisfied by *selectors.Registry and by the engine's injected
// registry.
type QuerySource interface {
	Queries(target string) []string
}

// maxCardsPerPass bounds how many containers one extraction pass
// inspects. Virtualized pages can briefly hold hundreds of stale nodes.
const maxCardsPerPass = 50

// minMediaDimension filters out profile pictures and icons when the
// markup declares explicit dimensions.
const minMediaDimension = 100

// Extractor produces candidate records from serialized page HTML.
type Extractor struct {
	queries QuerySource
	logger  *slog.Logger
}

// New creates an Extractor.
func New(q QuerySource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{queries: q, logger: logger}
}

// Batch is the outcome of one extraction pass.
type Batch struct {
	Candidates []ad.Record
	// Dropped counts containers discarded as noise: no source identifier
	// and no headline cannot be a real ad entry.
	Dropped int
}

// Extract parses the page HTML and returns the candidates found in the
// current DOM state. It is called after every scroll step, not only at
// the end, because cards can be virtualized away as the page grows.
func (x *Extractor) Extract(pageHTML string) (*Batch, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}

	cards := x.findCards(doc)
	batch := &Batch{}
	now := time.Now().UTC()

	for _, card := range cards {
		rec := x.extractCard(card, now)
		if rec.SourceID == "" && rec.Headline == "" {
			batch.Dropped++
			continue
		}
		batch.Candidates = append(batch.Candidates, rec)
	}
	return batch, nil
}

// findCards tries each card selector in order and keeps the first one
// that yields plausible containers.
func (x *Extractor) findCards(doc *goquery.Document) []*goquery.Selection {
	for _, q := range x.queries.Queries(selectors.TargetCard) {
		var cards []*goquery.Selection
		doc.Find(q).Each(func(_ int, s *goquery.Selection) {
			if len(cards) >= maxCardsPerPass {
				return
			}
			text := strings.TrimSpace(s.Text())
			if len(text) < 20 || isInterfaceText(text) {
				return
			}
			cards = append(cards, s)
		})
		if len(cards) > 0 {
			return cards
		}
	}
	return nil
}

// extractCard pulls every field from one card container.
func (x *Extractor) extractCard(card *goquery.Selection, now time.Time) ad.Record {
	text := card.Text()
	lines := textLines(text)

	rec := ad.Record{ExtractedAt: now}
	rec.LibraryID = x.libraryID(card, text)
	rec.AdvertiserName = x.firstText(card, selectors.TargetAdvertiser, 100)
	if rec.AdvertiserName == "" {
		rec.AdvertiserName = advertiserLine(lines)
	}
	rec.Headline = x.firstText(card, selectors.TargetHeadline, 300)
	if rec.Headline == "" {
		rec.Headline = headlineLine(lines)
	}
	rec.Caption = x.firstText(card, selectors.TargetCaption, 500)
	if rec.Caption == "" {
		rec.Caption = longestCopyLine(lines)
	}
	rec.CallToAction = x.firstCTA(card)
	if rec.CallToAction == "" {
		rec.CallToAction = ctaLine(lines)
	}
	rec.DateStarted = x.dateStarted(card, text)
	rec.DestinationURL = x.destinationURL(card)
	rec.MediaURLs = x.mediaURLs(card)
	rec.SourceID = sourceID(rec)
	return rec
}

// firstText walks a target's fallback list and returns the first match
// whose trimmed text is non-empty, not boilerplate and within maxLen.
func (x *Extractor) firstText(card *goquery.Selection, target string, maxLen int) string {
	for _, q := range x.queries.Queries(target) {
		var found string
		card.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if t == "" || isBoilerplateText(t) || len(t) > maxLen {
				return true
			}
			found = t
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// firstCTA is like firstText but accepts the known CTA phrases that
// isBoilerplateText would otherwise reject, since here they ARE the
// content.
func (x *Extractor) firstCTA(card *goquery.Selection) string {
	for _, q := range x.queries.Queries(selectors.TargetCTA) {
		var found string
		card.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if t == "" || len(t) >= 50 || isChromeLine(t) {
				return true
			}
			found = t
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// destinationURL returns the first usable link target, query string
// stripped.
func (x *Extractor) destinationURL(card *goquery.Selection) string {
	for _, q := range x.queries.Queries(selectors.TargetDestination) {
		var found string
		card.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("data-lynx-uri")
			if !ok {
				href, ok = s.Attr("href")
			}
			if !ok || href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
				return true
			}
			if i := strings.IndexByte(href, '?'); i >= 0 {
				href = href[:i]
			}
			found = href
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// mediaURLs collects image and video URLs from the card, skipping assets
// whose declared dimensions mark them as icons or profile pictures.
func (x *Extractor) mediaURLs(card *goquery.Selection) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	for _, q := range x.queries.Queries(selectors.TargetMediaImage) {
		card.Find(q).Each(func(_ int, s *goquery.Selection) {
			if tooSmall(s) {
				return
			}
			if src, ok := s.Attr("src"); ok {
				add(src)
			}
			if style, ok := s.Attr("style"); ok {
				add(backgroundImageURL(style))
			}
		})
		if len(urls) > 0 {
			break
		}
	}

	for _, q := range x.queries.Queries(selectors.TargetMediaVideo) {
		card.Find(q).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok {
				add(src)
			}
		})
	}
	return urls
}

// tooSmall reports whether an element declares a width or height at or
// below the icon threshold. Missing dimensions pass.
func tooSmall(s *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if v, ok := s.Attr(attr); ok {
			if n, err := strconv.Atoi(v); err == nil && n <= minMediaDimension {
				return true
			}
		}
	}
	return false
}

// backgroundImageURL extracts the url(...) value from an inline style.
func backgroundImageURL(style string) string {
	if !strings.Contains(style, "background-image") {
		return ""
	}
	start := strings.Index(style, "url(")
	if start < 0 {
		return ""
	}
	rest := style[start+4:]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return ""
	}
	return strings.Trim(rest[:end], `"' `)
}

// libraryID finds the platform identifier: the card's data attribute,
// then the selector fallback list, then the "Library ID" phrasing in
// the card text. A matched element may hold the bare number or the
// labelled form.
func (x *Extractor) libraryID(card *goquery.Selection, text string) string {
	if id, ok := card.Attr("data-ad-id"); ok && id != "" {
		return id
	}
	for _, q := range x.queries.Queries(selectors.TargetLibraryID) {
		var found string
		card.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if m := libraryIDRe.FindStringSubmatch(t); m != nil {
				found = m[1]
				return false
			}
			if idDigitsRe.MatchString(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	if m := libraryIDRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// dateStarted resolves the start date through the selector fallbacks,
// then by scanning the card text. The matched element may hold either
// the bare date or the full "Started running on" phrasing.
func (x *Extractor) dateStarted(card *goquery.Selection, text string) string {
	for _, q := range x.queries.Queries(selectors.TargetDate) {
		var found string
		card.Find(q).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if t == "" || len(t) > 60 {
				return true
			}
			if m := dateStartedRe.FindStringSubmatch(t); m != nil {
				found = strings.TrimSpace(m[1])
				return false
			}
			if !isChromeLine(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	if m := dateStartedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// sourceID constructs the stable per-card key: the platform identifier
// when present, otherwise the destination link as a DOM anchor. Cards
// with neither are left keyless for the deduplicator's signature path.
func sourceID(rec ad.Record) string {
	if rec.LibraryID != "" {
		return "library_id:" + rec.LibraryID
	}
	if rec.DestinationURL != "" {
		return "dest:" + rec.DestinationURL
	}
	return ""
}
