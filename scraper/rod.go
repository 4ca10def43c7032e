package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/fraudlens/config"
)

// RodProvider shares one Chrome process and hands out a fresh incognito
// context per scan. It is safe for concurrent use.
type RodProvider struct {
	browser *rod.Browser
}

// NewRodProvider launches Chrome with stealth flags and connects to it.
func NewRodProvider(cfg config.BrowserConfig) (*RodProvider, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("scraper: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("scraper: connect browser: %w", err)
	}
	return &RodProvider{browser: browser}, nil
}

// Acquire opens an isolated incognito context.
func (p *RodProvider) Acquire(ctx context.Context) (BrowserHandle, error) {
	inc, err := p.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("scraper: open incognito context: %w", err)
	}
	return &rodHandle{browser: inc}, nil
}

// Release disposes the incognito context and every page left in it.
func (p *RodProvider) Release(h BrowserHandle) error {
	rh, ok := h.(*rodHandle)
	if !ok {
		return fmt.Errorf("scraper: release: foreign handle %T", h)
	}
	// The acquire context may be gone; dispose on a fresh one.
	return rh.browser.Context(context.Background()).Close()
}

// Close kills the browser process.
func (p *RodProvider) Close() {
	slog.Info("scraper shutting down: closing browser")
	if err := p.browser.Close(); err != nil {
		slog.Warn("scraper: close browser", "error", err)
	}
}

type rodHandle struct {
	browser *rod.Browser
}

func (h *rodHandle) OpenPage(ctx context.Context, opts PageOptions) (Page, error) {
	page, err := h.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("scraper: create page: %w", err)
	}
	// Setup calls run on the caller's context; the page itself keeps a
	// background context so Close works after a timeout.
	page = page.Context(context.Background())
	rp := &rodPage{page: page}

	if err := rp.setup(ctx, opts); err != nil {
		_ = rp.Close()
		return nil, err
	}
	return rp, nil
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (p *rodPage) setup(ctx context.Context, opts PageOptions) error {
	page := p.page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("scraper: set viewport: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.AcceptLanguage,
		}); err != nil {
			return fmt.Errorf("scraper: set user agent: %w", err)
		}
	}

	if opts.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": opts.AcceptLanguage}),
		}.Call(page)
	}

	if !opts.JavaScript {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			return fmt.Errorf("scraper: disable javascript: %w", err)
		}
	} else if opts.Stealth {
		// Must be installed before navigation to take effect.
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	p.router = blockResources(p.page, opts.BlockedResourceTypes)
	return nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)

	// Register the lifecycle waiter before navigating so the event is not missed.
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("scraper: navigate: %w", err)
	}
	// Returns early when ctx expires; a late DOMContentLoaded is tolerated.
	wait()
	return nil
}

func (p *rodPage) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	img, err := p.page.Context(ctx).Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(quality),
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: screenshot: %w", err)
	}
	return img, nil
}

func (p *rodPage) Content(ctx context.Context) (*RawContent, error) {
	page := p.page.Context(ctx)

	rawHTML, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("scraper: read html: %w", err)
	}
	return &RawContent{
		HTML:     rawHTML,
		BodyText: evalStringOrEmpty(page, `() => document.body ? document.body.innerText : ""`),
		URL:      evalStringOrEmpty(page, `() => window.location.href`),
		Title:    evalStringOrEmpty(page, `() => document.title`),
	}, nil
}

func (p *rodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors. With JavaScript disabled every call returns "".
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
