package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page with the extraction-run setup: stealth, fixed
// user agent and viewport, and network response observation.
type Tab struct {
	Page    *rod.Page
	manager *Manager
}

// OpenTab creates a new stealth tab with the manager's user agent and
// viewport applied. The tab is blank; call Navigate to load the target.
func OpenTab(mgr *Manager) (*Tab, error) {
	b, err := mgr.Start()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if mgr.cfg.UserAgent != "" {
		if err := (proto.NetworkSetUserAgentOverride{UserAgent: mgr.cfg.UserAgent}).Call(page); err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: set user agent: %w", err)
		}
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             mgr.cfg.ViewportWidth,
		Height:            mgr.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	return &Tab{Page: page, manager: mgr}, nil
}

// Navigate loads the URL and waits for the load event, bounded by the
// manager's NavTimeout. A slow load event is logged and tolerated; a
// failed navigation is not.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// OnResponse streams network responses to fn until the tab closes. The
// callback runs on the event goroutine and must not block.
func (t *Tab) OnResponse(fn func(url, mime string, status int)) {
	go t.Page.EachEvent(func(e *proto.NetworkResponseReceived) {
		fn(e.Response.URL, e.Response.MIMEType, e.Response.Status)
	})()
}

// Extent returns the current document scroll height in pixels.
func (t *Tab) Extent(ctx context.Context) (float64, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("browser: scroll height: %w", err)
	}
	return res.Value.Num(), nil
}

// Scroll advances the viewport by 80% of its height, leaving overlap so
// no card falls between two passes.
func (t *Tab) Scroll(ctx context.Context) error {
	_, err := t.Page.Context(ctx).Eval(`() => window.scrollBy(0, window.innerHeight * 0.8)`)
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// HTML serializes the current DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// DismissOverlays clicks through cookie consent and similar blocking
// dialogs when present. Returns whether anything was dismissed.
func (t *Tab) DismissOverlays(ctx context.Context) bool {
	res, err := t.Page.Context(ctx).Eval(`() => {
		const labels = ['allow all cookies', 'accept all', 'allow essential', 'accept', 'agree'];
		const nodes = document.querySelectorAll('button, [role="button"]');
		for (const n of nodes) {
			const text = (n.innerText || '').trim().toLowerCase();
			if (labels.some(l => text === l || text.startsWith(l))) {
				n.click();
				return true;
			}
		}
		return false;
	}`)
	if err != nil {
		t.manager.cfg.Logger.Debug("browser: overlay dismiss failed", "error", err)
		return false
	}
	dismissed := res.Value.Bool()
	if dismissed {
		t.manager.cfg.Logger.Info("browser: dismissed blocking overlay")
		// Give the page a beat to settle after the click.
		select {
		case <-ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}
	}
	return dismissed
}

// NoResults reports whether the page shows its empty-results state.
func (t *Tab) NoResults(ctx context.Context) bool {
	res, err := t.Page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return false
	}
	text := strings.ToLower(res.Value.Str())
	return strings.Contains(text, "no results found") ||
		strings.Contains(text, "no ads match")
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
