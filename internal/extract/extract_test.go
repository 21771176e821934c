package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hazyhaar/adwatch/internal/selectors"
)

func card(id int, headline string) string {
	return fmt.Sprintf(`
	<div role="article">
		<strong>Acme Outfitters</strong>
		<div dir="auto">Sponsored</div>
		<span>Library ID: %d</span>
		<h3>%s</h3>
		<div dir="auto">Get 20%% off all spring styles while supplies last.</div>
		<a role="button" href="https://shop.example/go?utm_source=ads">Shop now</a>
		<span>Started running on Jan 5, 2026</span>
		<img src="https://cdn.fbcdn.example/media-%d.jpg" width="400" height="300">
		<img src="https://cdn.fbcdn.example/avatar-%d.jpg" width="40" height="40">
	</div>`, id, headline, id, id)
}

func pageWith(cards ...string) string {
	return "<html><body><div role='main'>" + strings.Join(cards, "\n") + "</div></body></html>"
}

func newTestExtractor() *Extractor {
	return New(selectors.Defaults(), nil)
}

func TestExtract_ThreeCards(t *testing.T) {
	// WHAT: A page with three ad cards yields three candidates with all
	// fields populated through the selector fallbacks.
	html := pageWith(
		card(1, "Spring sale on trail runners"),
		card(2, "New waterproof jackets are here"),
		card(3, "Last chance for winter boots"),
	)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(batch.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(batch.Candidates))
	}

	c := batch.Candidates[0]
	if c.LibraryID != "1" {
		t.Errorf("LibraryID = %q, want 1", c.LibraryID)
	}
	if c.SourceID != "library_id:1" {
		t.Errorf("SourceID = %q, want library_id:1", c.SourceID)
	}
	if c.AdvertiserName != "Acme Outfitters" {
		t.Errorf("AdvertiserName = %q", c.AdvertiserName)
	}
	if c.Headline != "Spring sale on trail runners" {
		t.Errorf("Headline = %q", c.Headline)
	}
	if !strings.Contains(c.Caption, "20% off") {
		t.Errorf("Caption = %q", c.Caption)
	}
	if c.CallToAction != "Shop now" {
		t.Errorf("CallToAction = %q", c.CallToAction)
	}
	if c.DateStarted != "Jan 5, 2026" {
		t.Errorf("DateStarted = %q", c.DateStarted)
	}
	if c.DestinationURL != "https://shop.example/go" {
		t.Errorf("DestinationURL = %q (query string should be stripped)", c.DestinationURL)
	}
	if c.ExtractedAt.IsZero() {
		t.Error("ExtractedAt not stamped")
	}
}

func TestExtract_TinyImagesSkipped(t *testing.T) {
	// WHAT: Images with declared dimensions at or below the icon
	// threshold are excluded from media URLs.
	// WHY: Profile pictures and icons are not ad media.
	batch, err := newTestExtractor().Extract(pageWith(card(7, "A headline long enough to matter")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	media := batch.Candidates[0].MediaURLs
	if len(media) != 1 {
		t.Fatalf("media = %v, want exactly the large image", media)
	}
	if !strings.Contains(media[0], "media-7") {
		t.Errorf("media = %v", media)
	}
}

func TestExtract_BackgroundImage(t *testing.T) {
	// WHAT: Media carried as an inline background-image style is found.
	html := pageWith(`
	<div role="article">
		<span>Library ID: 9</span>
		<h3>Background media ad headline</h3>
		<div style="background-image: url('https://cdn.fbcdn.example/bg-9.jpg')"></div>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("got %d candidates", len(batch.Candidates))
	}
	media := batch.Candidates[0].MediaURLs
	if len(media) != 1 || media[0] != "https://cdn.fbcdn.example/bg-9.jpg" {
		t.Errorf("media = %v", media)
	}
}

func TestExtract_NoiseDropped(t *testing.T) {
	// WHAT: A container with neither a source identifier nor a headline
	// is dropped and counted, not stored.
	html := pageWith(`
	<div role="article">
		<div dir="auto">Menu and footer links</div>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(batch.Candidates) != 0 {
		t.Errorf("noise candidate stored: %+v", batch.Candidates)
	}
	if batch.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", batch.Dropped)
	}
}

func TestExtract_DateFromSelector(t *testing.T) {
	// WHAT: A card exposing its start date only through a date selector
	// still gets DateStarted; the text scan is the fallback, not the only
	// path.
	html := pageWith(`
	<div role="article">
		<span>Library ID: 11</span>
		<h3>Dated card with a headline long enough</h3>
		<span data-testid="ad-date">Feb 12, 2026</span>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := batch.Candidates[0].DateStarted; got != "Feb 12, 2026" {
		t.Errorf("DateStarted = %q, want Feb 12, 2026", got)
	}
}

func TestExtract_DateSelectorLabelledForm(t *testing.T) {
	// WHAT: A date element carrying the full "Started running on"
	// phrasing is reduced to the bare date.
	html := pageWith(`
	<div role="article">
		<span>Library ID: 12</span>
		<h3>Another card with a headline long enough</h3>
		<span class="creative-date">Started running on Mar 3, 2026</span>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := batch.Candidates[0].DateStarted; got != "Mar 3, 2026" {
		t.Errorf("DateStarted = %q, want Mar 3, 2026", got)
	}
}

func TestExtract_LibraryIDFromSelector(t *testing.T) {
	// WHAT: The library identifier resolves through its selector fallback
	// list when neither the data attribute nor the labelled text is
	// present.
	html := pageWith(`
	<div role="article">
		<h3>Identified card with a headline long enough</h3>
		<span data-testid="ad-library-id">31415</span>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	c := batch.Candidates[0]
	if c.LibraryID != "31415" {
		t.Errorf("LibraryID = %q, want 31415", c.LibraryID)
	}
	if c.SourceID != "library_id:31415" {
		t.Errorf("SourceID = %q, want library_id:31415", c.SourceID)
	}
}

func TestExtract_FallbackOrder(t *testing.T) {
	// WHAT: The first selector with a non-empty match wins; later
	// fallbacks are ignored.
	html := pageWith(`
	<div role="article">
		<span>Library ID: 4</span>
		<div data-testid="ad-headline">Primary headline from testid</div>
		<h3>Fallback headline from h3</h3>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := batch.Candidates[0].Headline; got != "Primary headline from testid" {
		t.Errorf("Headline = %q, fallback order violated", got)
	}
}

func TestExtract_MissingSelectorsYieldEmptyFields(t *testing.T) {
	// WHAT: A target with no matching selector produces an empty field,
	// not a failed candidate.
	html := pageWith(`
	<div role="article">
		<span>Library ID: 5</span>
		<h3>Bare card with nothing but a headline here</h3>
	</div>`)

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("got %d candidates", len(batch.Candidates))
	}
	c := batch.Candidates[0]
	if c.CallToAction != "" || c.DestinationURL != "" || len(c.MediaURLs) != 0 {
		t.Errorf("expected empty optional fields, got %+v", c)
	}
}

func TestExtract_InterfaceContainerIgnored(t *testing.T) {
	// WHAT: A container dominated by library chrome is not treated as a
	// card even when it matches the card selector.
	html := pageWith(`
	<div role="article">
		<span>Meta Ad Library</span>
		<span>Ad Library Report</span>
		<span>Select country</span>
		<span>Filter results</span>
	</div>`,
		card(6, "A real advertisement among the chrome"))

	batch, err := newTestExtractor().Extract(html)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(batch.Candidates) != 1 {
		t.Fatalf("got %d candidates, want only the real ad", len(batch.Candidates))
	}
	if batch.Candidates[0].LibraryID != "6" {
		t.Errorf("wrong card survived: %+v", batch.Candidates[0])
	}
}
