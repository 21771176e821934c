// Package capture records media asset URLs observed on the network while
// the page loads and scrolls. Responses matching the configured host
// patterns or media MIME prefixes are tracked per URL; a response that
// arrives broken goes through a bounded background re-fetch before being
// marked failed for good.
package capture

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hazyhaar/adwatch/ad"
)

// Config controls what the capturer tracks and how hard it retries.
type Config struct {
	// HostPatterns mark a response as ad media when its URL contains any
	// of them.
	HostPatterns []string
	// MIMEPrefixes mark a response as ad media by content type.
	MIMEPrefixes []string
	// MaxRetries bounds the total fetch attempts per broken asset.
	MaxRetries int
	// Concurrency bounds simultaneous background re-fetches.
	Concurrency int
	// FetchTimeout applies to each individual re-fetch attempt.
	FetchTimeout time.Duration
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if len(c.HostPatterns) == 0 {
		c.HostPatterns = []string{"fbcdn.net", "safe_image.php"}
	}
	if len(c.MIMEPrefixes) == 0 {
		c.MIMEPrefixes = []string{"image/", "video/"}
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = 500 * time.Millisecond
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Capture tracks media assets by URL. Safe for concurrent use; Observe
// is called from the browser's network event goroutine while the engine
// reads counts from its own.
type Capture struct {
	cfg Config

	mu     sync.Mutex
	assets map[string]*ad.Media
	order  []string

	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a Capture with defaults applied.
func New(cfg Config) *Capture {
	cfg.applyDefaults()
	return &Capture{
		cfg:    cfg,
		assets: make(map[string]*ad.Media),
		sem:    make(chan struct{}, cfg.Concurrency),
	}
}

// Matches reports whether a response looks like ad media, by URL host
// pattern or by MIME type.
func (c *Capture) Matches(url, mime string) bool {
	for _, p := range c.cfg.HostPatterns {
		if strings.Contains(url, p) {
			return true
		}
	}
	for _, p := range c.cfg.MIMEPrefixes {
		if strings.HasPrefix(mime, p) {
			return true
		}
	}
	return false
}

// Observe ingests one network response. Non-matching responses are
// ignored. A URL seen healthy is captured immediately; a URL seen broken
// enters the bounded background retry path. Repeat observations of a
// known URL can only upgrade its state, never downgrade it.
func (c *Capture) Observe(url, mime string, status int) {
	if url == "" || !c.Matches(url, mime) {
		return
	}
	healthy := status >= 200 && status < 400

	c.mu.Lock()
	a, known := c.assets[url]
	if known {
		if healthy && a.Status != ad.StatusCaptured {
			a.Status = ad.StatusCaptured
		}
		c.mu.Unlock()
		return
	}
	a = &ad.Media{URL: url, FirstSeenAt: time.Now().UTC()}
	if healthy {
		a.Status = ad.StatusCaptured
	} else {
		a.Status = ad.StatusPending
	}
	c.assets[url] = a
	c.order = append(c.order, url)
	c.mu.Unlock()

	if !healthy {
		c.wg.Add(1)
		go c.refetch(url)
	}
}

// Seed registers URLs restored from a prior run's checkpoint as already
// captured, so resumed runs neither re-fetch nor double-count them.
func (c *Capture) Seed(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := c.assets[u]; ok {
			continue
		}
		c.assets[u] = &ad.Media{URL: u, FirstSeenAt: time.Now().UTC(), Status: ad.StatusCaptured}
		c.order = append(c.order, u)
	}
}

// refetch tries to pull a broken asset directly, bounded by MaxRetries
// total attempts. Terminal outcome is CAPTURED or FAILED.
func (c *Capture) refetch(url string) {
	defer c.wg.Done()
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	client := retryablehttp.NewClient()
	client.RetryMax = c.cfg.MaxRetries - 1
	client.RetryWaitMin = c.cfg.RetryWaitMin
	client.RetryWaitMax = c.cfg.RetryWaitMax
	client.HTTPClient = &http.Client{Timeout: c.cfg.FetchTimeout}
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		c.mu.Lock()
		if a, ok := c.assets[url]; ok {
			a.RetryCount = attempt + 1
		}
		c.mu.Unlock()
	}

	resp, err := client.Get(url)
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.assets[url]
	if !ok || a.Status == ad.StatusCaptured {
		return
	}
	if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 400 {
		a.Status = ad.StatusCaptured
		return
	}
	a.Status = ad.StatusFailed
	c.cfg.Logger.Warn("media refetch exhausted", "url", url, "attempts", a.RetryCount)
}

// Wait blocks until all background re-fetches finish or the context is
// cancelled.
func (c *Capture) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CapturedURLs returns the successfully captured URLs in first-seen
// order.
func (c *Capture) CapturedURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.order))
	for _, u := range c.order {
		if c.assets[u].Status == ad.StatusCaptured {
			out = append(out, u)
		}
	}
	return out
}

// Counts returns the number of captured assets and the number still
// pending re-fetch.
func (c *Capture) Counts() (captured, pending int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.assets {
		switch a.Status {
		case ad.StatusCaptured:
			captured++
		case ad.StatusPending:
			pending++
		}
	}
	return captured, pending
}

// Assets returns a snapshot copy of every tracked asset, keyed by URL.
func (c *Capture) Assets() map[string]ad.Media {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ad.Media, len(c.assets))
	for u, a := range c.assets {
		out[u] = *a
	}
	return out
}
