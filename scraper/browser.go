package scraper

import "context"

// BrowserProvider hands out isolated browser sessions.
type BrowserProvider interface {
	Acquire(ctx context.Context) (BrowserHandle, error)
	Release(h BrowserHandle) error
}

// BrowserHandle is one isolated browser session.
type BrowserHandle interface {
	OpenPage(ctx context.Context, opts PageOptions) (Page, error)
}

// Page is a single tab inside a BrowserHandle.
type Page interface {
	// Navigate loads url and waits for DOMContentLoaded.
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	Content(ctx context.Context) (*RawContent, error)
	Close() error
}

// PageOptions controls page emulation.
type PageOptions struct {
	Width          int
	Height         int
	UserAgent      string
	AcceptLanguage string
	JavaScript     bool
	Stealth        bool

	// BlockedResourceTypes names rod resource types to fail before fetch,
	// e.g. "Image", "Media", "Font", "Stylesheet".
	BlockedResourceTypes []string
}

// ScreenshotOptions controls screenshot capture.
type ScreenshotOptions struct {
	Quality  int
	FullPage bool
}

// RawContent is what a DOM-read pass pulls out of a rendered page.
type RawContent struct {
	HTML     string
	BodyText string
	URL      string
	Title    string
}
