// Package adwatch extracts advertisement listings from dynamically
// loaded ad-library pages. It drives a Chrome session through a
// scroll/extract loop, deduplicates what it finds across passes,
// captures media asset URLs from the network, and checkpoints progress
// so interrupted runs resume instead of restarting.
//
// adwatch collects, it does not interpret. Records come out exactly as
// the page presented them; ranking, classification and storage belong
// to consumers.
package adwatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/adwatch/ad"
	"github.com/hazyhaar/adwatch/internal/browser"
	"github.com/hazyhaar/adwatch/internal/capture"
	"github.com/hazyhaar/adwatch/internal/checkpoint"
	"github.com/hazyhaar/adwatch/internal/dedupe"
	"github.com/hazyhaar/adwatch/internal/extract"
	"github.com/hazyhaar/adwatch/internal/pace"
	"github.com/hazyhaar/adwatch/internal/selectors"
)

// Engine is the top-level orchestrator. Create one per target
// configuration; Run may be called repeatedly.
type Engine struct {
	cfg        *Config
	logger     *slog.Logger
	selectors  SelectorSource
	store      CheckpointStore
	newSession SessionFactory
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSelectors replaces the selector source loaded from configuration.
func WithSelectors(s SelectorSource) Option {
	return func(e *Engine) { e.selectors = s }
}

// WithCheckpointStore replaces the file-backed checkpoint store.
func WithCheckpointStore(s CheckpointStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithSessionFactory replaces the Rod-backed session. Tests inject fakes
// here.
func WithSessionFactory(f SessionFactory) Option {
	return func(e *Engine) { e.newSession = f }
}

// New creates an Engine from configuration.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()

	e := &Engine{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	if e.selectors == nil {
		reg, err := selectors.LoadFile(cfg.Selectors.Path)
		if err != nil {
			return nil, fmt.Errorf("adwatch: load selectors: %w", err)
		}
		e.selectors = reg
	}
	if e.store == nil {
		e.store = checkpoint.NewFileStore(cfg.Checkpoint.Path, e.logger)
	}
	if e.newSession == nil {
		e.newSession = e.rodSessionFactory()
	}
	return e, nil
}

// runState holds the per-run collaborators and counters.
type runState struct {
	dedupe *dedupe.Deduper
	media  *capture.Capture
	pages  *extract.Extractor
	pacer  *pace.Pacer
	growth *growthTracker

	resumedScrolls int
	scrolls        int
	candidates     int
	dropped        int
	skipped        int
}

// Run executes one extraction run against the requested URL. The
// returned Result is populated on every exit path, including errors and
// cancellation; whatever was collected up to that point is in it, and a
// final checkpoint has been written.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.URL == "" {
		return nil, ErrNoTarget
	}
	maxScrolls := req.MaxScrolls
	if maxScrolls <= 0 {
		maxScrolls = e.cfg.Scroll.MaxScrolls
	}

	runID := uuid.NewString()
	log := e.logger.With("run_id", runID, "url", req.URL)
	res := &Result{RunID: runID, URL: req.URL, StartedAt: time.Now().UTC()}

	st := &runState{
		dedupe: dedupe.New(),
		media: capture.New(capture.Config{
			HostPatterns: e.cfg.Capture.HostPatterns,
			MIMEPrefixes: e.cfg.Capture.MIMEPrefixes,
			MaxRetries:   e.cfg.Capture.MaxRetries,
			Concurrency:  e.cfg.Capture.Concurrency,
			FetchTimeout: e.cfg.Capture.FetchTimeout,
			RetryWaitMin: e.cfg.Capture.RetryWaitMin,
			RetryWaitMax: e.cfg.Capture.RetryWaitMax,
			Logger:       log,
		}),
		pages:  extract.New(e.selectors, log),
		pacer:  pace.New(e.cfg.Scroll.PauseMin, e.cfg.Scroll.PauseMax),
		growth: newGrowthTracker(e.cfg.Scroll.NoGrowthThreshold),
	}

	if req.Resume {
		cp, err := e.store.Load(ctx)
		if err != nil {
			log.Warn("checkpoint load failed, starting fresh", "error", err)
		}
		if cp != nil {
			st.dedupe.Seed(cp.UniqueRecords)
			st.media.Seed(cp.MediaURLs)
			st.resumedScrolls = cp.ScrollCount
			log.Info("resumed from checkpoint",
				"records", len(cp.UniqueRecords),
				"media", len(cp.MediaURLs),
				"scrolls", cp.ScrollCount)
		}
	}

	sess, err := e.newSession(ctx)
	if err != nil {
		res.TerminationReason = ReasonError
		res.Error = err.Error()
		e.finalize(ctx, res, st, log)
		return res, fmt.Errorf("adwatch: open session: %w", err)
	}
	defer sess.Close()

	sess.OnResponse(st.media.Observe)

	reason, runErr := e.drive(ctx, sess, st, req.URL, maxScrolls, log)
	res.TerminationReason = reason
	if runErr != nil {
		res.Error = runErr.Error()
	}
	e.finalize(ctx, res, st, log)
	return res, nil
}

// drive runs navigation and the scroll loop until a termination
// condition fires.
func (e *Engine) drive(ctx context.Context, sess Session, st *runState, url string, maxScrolls int, log *slog.Logger) (TerminationReason, error) {
	if err := sess.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return ReasonCancelled, nil
		}
		return ReasonError, err
	}

	if oh, ok := sess.(overlayHandler); ok {
		oh.DismissOverlays(ctx)
		if oh.NoResults(ctx) {
			log.Info("page reports empty result set")
			return ReasonNoResults, nil
		}
	}

	if extent, err := sess.Extent(ctx); err == nil {
		st.growth.prime(extent)
	}

	// Content above the fold is there before any scroll.
	if err := e.pass(ctx, sess, st); err != nil {
		if ctx.Err() != nil {
			return ReasonCancelled, nil
		}
		st.skipped++
		log.Warn("initial extraction pass failed", "error", err)
	}

	for i := 1; i <= maxScrolls; i++ {
		if ctx.Err() != nil {
			return ReasonCancelled, nil
		}

		if err := sess.Scroll(ctx); err != nil {
			if ctx.Err() != nil {
				return ReasonCancelled, nil
			}
			st.skipped++
			log.Warn("scroll step failed", "step", i, "error", err)
		}
		st.scrolls++

		if err := st.pacer.Wait(ctx); err != nil {
			return ReasonCancelled, nil
		}

		if err := e.pass(ctx, sess, st); err != nil {
			if ctx.Err() != nil {
				return ReasonCancelled, nil
			}
			st.skipped++
			log.Warn("extraction pass failed", "step", i, "error", err)
		}

		extent, err := sess.Extent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ReasonCancelled, nil
			}
			st.skipped++
			log.Warn("extent check failed", "step", i, "error", err)
		} else if st.growth.observe(extent) {
			log.Info("page stopped growing",
				"scrolls", st.scrolls, "records", st.dedupe.Len())
			return ReasonNoGrowth, nil
		}

		if e.cfg.Checkpoint.Every > 0 && (st.resumedScrolls+st.scrolls)%e.cfg.Checkpoint.Every == 0 {
			e.saveCheckpoint(ctx, st, log)
		}
	}

	log.Info("scroll cap reached", "scrolls", st.scrolls, "records", st.dedupe.Len())
	return ReasonMaxScrolls, nil
}

// pass serializes the DOM, extracts candidates and admits them. A panic
// inside parsing is converted to an error so one bad DOM state costs a
// step, not the run.
func (e *Engine) pass(ctx context.Context, sess Session, st *runState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adwatch: extraction panic: %v", r)
		}
	}()

	html, err := sess.HTML(ctx)
	if err != nil {
		return err
	}
	batch, err := st.pages.Extract(html)
	if err != nil {
		return err
	}

	st.candidates += len(batch.Candidates)
	st.dropped += batch.Dropped
	for _, c := range batch.Candidates {
		st.dedupe.Admit(c)
		// Media referenced in the DOM may never hit the network observer
		// (cached, lazy). Feed it through the same capture path.
		for _, u := range c.MediaURLs {
			st.media.Observe(u, "", 200)
		}
	}
	return nil
}

// saveCheckpoint persists the full current state. Failures are logged,
// never fatal; losing a checkpoint must not lose the run.
func (e *Engine) saveCheckpoint(ctx context.Context, st *runState, log *slog.Logger) {
	cp := &ad.Checkpoint{
		UniqueRecords: st.dedupe.Records(),
		ScrollCount:   st.resumedScrolls + st.scrolls,
		MediaURLs:     st.media.CapturedURLs(),
	}
	if err := e.store.Save(ctx, cp); err != nil {
		log.Warn("checkpoint save failed", "error", err)
		return
	}
	log.Debug("checkpoint saved", "records", len(cp.UniqueRecords), "scrolls", cp.ScrollCount)
}

// finalize drains the media retry queue, writes the terminal checkpoint
// and fills the Result. It runs on every exit path, detached from the
// caller's cancellation so a cancelled run still persists its state.
func (e *Engine) finalize(ctx context.Context, res *Result, st *runState, log *slog.Logger) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := st.media.Wait(fctx); err != nil {
		log.Warn("media refetch drain cut short", "error", err)
	}
	e.saveCheckpoint(fctx, st, log)

	res.Records = st.dedupe.Records()
	res.MediaURLs = st.media.CapturedURLs()
	captured, pending := st.media.Counts()
	res.Metrics = Metrics{
		TotalCandidates:     st.candidates,
		UniqueRecords:       len(res.Records),
		DroppedCandidates:   st.dropped,
		MediaCaptured:       captured,
		RetryQueueRemaining: pending,
		ScrollsPerformed:    st.scrolls,
		SkippedSteps:        st.skipped,
	}
	res.DurationSeconds = time.Since(res.StartedAt).Seconds()
	// An empty result set counts as a failed run, not a clean one.
	res.Success = res.TerminationReason != ReasonError && res.TerminationReason != ReasonNoResults
	if res.TerminationReason == ReasonNoResults && res.Error == "" {
		res.Error = "no results found"
	}

	log.Info("run finished",
		"reason", res.TerminationReason,
		"records", len(res.Records),
		"media_captured", captured,
		"scrolls", st.scrolls,
		"duration_seconds", res.DurationSeconds)
}

// rodSessionFactory builds the production session: a managed Chrome with
// a stealth tab.
func (e *Engine) rodSessionFactory() SessionFactory {
	return func(_ context.Context) (Session, error) {
		mgr := browser.NewManager(browser.Config{
			RemoteURL:      e.cfg.Browser.Remote,
			Headless:       e.cfg.Browser.Mode != "headful",
			UserAgent:      e.cfg.Browser.UserAgent,
			ViewportWidth:  e.cfg.Browser.ViewportWidth,
			ViewportHeight: e.cfg.Browser.ViewportHeight,
			NavTimeout:     e.cfg.Browser.NavTimeout,
			Logger:         e.logger,
		})
		tab, err := browser.OpenTab(mgr)
		if err != nil {
			mgr.Close()
			return nil, err
		}
		return &rodSession{mgr: mgr, tab: tab}, nil
	}
}

// rodSession adapts a managed browser tab to the Session interface and
// owns the teardown order: tab first, then the browser process.
type rodSession struct {
	mgr *browser.Manager
	tab *browser.Tab
}

func (s *rodSession) Navigate(ctx context.Context, url string) error { return s.tab.Navigate(ctx, url) }
func (s *rodSession) OnResponse(fn func(url, mime string, status int)) {
	s.tab.OnResponse(fn)
}
func (s *rodSession) Extent(ctx context.Context) (float64, error) { return s.tab.Extent(ctx) }
func (s *rodSession) Scroll(ctx context.Context) error            { return s.tab.Scroll(ctx) }
func (s *rodSession) HTML(ctx context.Context) (string, error)    { return s.tab.HTML(ctx) }
func (s *rodSession) DismissOverlays(ctx context.Context) bool    { return s.tab.DismissOverlays(ctx) }
func (s *rodSession) NoResults(ctx context.Context) bool          { return s.tab.NoResults(ctx) }

func (s *rodSession) Close() error {
	err := s.tab.Close()
	s.mgr.Close()
	return err
}
