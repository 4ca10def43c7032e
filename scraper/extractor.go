package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/fraudlens/models"
)

// screenshotTimeout bounds the best-effort capture after a failed navigation.
const screenshotTimeout = 5 * time.Second

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	Page              PageOptions
	Screenshot        ScreenshotOptions
}

// Extractor renders a URL and turns it into a PageSnapshot.
type Extractor struct {
	provider BrowserProvider
	prober   Prober
	opts     ExtractorOptions
}

// NewExtractor creates an Extractor. prober may be nil.
func NewExtractor(provider BrowserProvider, prober Prober, opts ExtractorOptions) *Extractor {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &Extractor{provider: provider, prober: prober, opts: opts}
}

// Extract renders rawURL and returns its snapshot. It never returns nil:
// any failure, including a panic, yields a degraded snapshot whose
// FetchError carries the classified cause.
//
// Lifecycle:
//
//  1. Normalize URL
//  2. Probe              – DNS failures and refusals end the scan early
//  3. Acquire handle     – DEFER: release
//  4. Open page          – DEFER: close
//  5. Navigate           – bounded by NavigationTimeout
//  6. Settle             – let client-side rendering finish
//  7. Screenshot         – failure is not fatal
//  8. DOM read           – innerText + rendered HTML parsed with goquery
func (e *Extractor) Extract(ctx context.Context, rawURL, requestID string) (snap *models.PageSnapshot) {
	log := slog.With("request_id", requestID, "url", rawURL)

	// ── 1. Normalize ────────────────────────────────────────────────
	target, err := models.NormalizeURL(rawURL)
	if err != nil {
		return models.DegradedSnapshot(rawURL, models.KindValidation, err.Error(), nil)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("extract: panic recovered", "panic", r)
			snap = models.DegradedSnapshot(target, models.KindGeneral, fmt.Sprint(r), nil)
		}
	}()

	// ── 2. Probe ────────────────────────────────────────────────────
	if e.prober != nil {
		if err := e.prober.Probe(ctx, target); err != nil {
			switch kind := Classify(err); kind {
			case models.KindDomainNotFound, models.KindConnectionRefused:
				log.Info("extract: probe rejected target", "kind", kind, "error", err)
				return models.DegradedSnapshot(target, kind, err.Error(), nil)
			default:
				log.Debug("extract: probe failed, continuing with browser", "error", err)
			}
		}
	}

	// ── 3. Acquire ──────────────────────────────────────────────────
	handle, err := e.provider.Acquire(ctx)
	if err != nil {
		log.Error("extract: acquire browser", "error", err)
		return models.DegradedSnapshot(target, Classify(err), err.Error(), nil)
	}
	defer func() {
		if err := e.provider.Release(handle); err != nil {
			log.Warn("extract: release browser", "error", err)
		}
	}()

	// ── 4. Open page ────────────────────────────────────────────────
	page, err := handle.OpenPage(ctx, e.opts.Page)
	if err != nil {
		log.Error("extract: open page", "error", err)
		return models.DegradedSnapshot(target, Classify(err), err.Error(), nil)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Warn("extract: close page", "error", err)
		}
	}()

	// ── 5. Navigate ─────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, e.opts.NavigationTimeout)
	defer cancel()

	navStart := time.Now()
	if err := page.Navigate(navCtx, target); err != nil {
		kind := Classify(err)
		log.Warn("extract: navigation failed", "kind", kind, "error", err)
		return models.DegradedSnapshot(target, kind, err.Error(), e.bestEffortScreenshot(ctx, page))
	}
	log.Debug("extract: navigation complete", "navigation_ms", time.Since(navStart).Milliseconds())

	// ── 6. Settle ───────────────────────────────────────────────────
	if e.opts.SettleDelay > 0 {
		select {
		case <-time.After(e.opts.SettleDelay):
		case <-ctx.Done():
		}
	}

	// ── 7. Screenshot ───────────────────────────────────────────────
	shotCtx, shotCancel := context.WithTimeout(ctx, e.opts.NavigationTimeout)
	shot, err := page.Screenshot(shotCtx, e.opts.Screenshot)
	shotCancel()
	if err != nil {
		log.Warn("extract: screenshot failed", "error", err)
		shot = nil
	}

	// ── 8. DOM read ─────────────────────────────────────────────────
	readCtx, readCancel := context.WithTimeout(ctx, e.opts.NavigationTimeout)
	content, err := page.Content(readCtx)
	readCancel()
	if err != nil {
		kind := Classify(err)
		log.Warn("extract: content read failed", "kind", kind, "error", err)
		return models.DegradedSnapshot(target, kind, err.Error(), shot)
	}

	finalURL := content.URL
	if finalURL == "" {
		finalURL = target
	}
	snap = ParseDOM(content.HTML, finalURL)
	if content.BodyText != "" {
		snap.BodyText = content.BodyText
	}
	if content.Title != "" {
		snap.Title = content.Title
	}
	snap.Screenshot = shot

	log.Info("extract: page captured",
		"final_url", finalURL,
		"forms", len(snap.Forms),
		"links", len(snap.Links),
		"screenshot", shot != nil,
	)
	return snap
}

func (e *Extractor) bestEffortScreenshot(ctx context.Context, page Page) []byte {
	ctx, cancel := context.WithTimeout(ctx, screenshotTimeout)
	defer cancel()
	shot, err := page.Screenshot(ctx, e.opts.Screenshot)
	if err != nil {
		return nil
	}
	return shot
}
