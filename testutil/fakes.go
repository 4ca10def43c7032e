// Package testutil provides shared test doubles for use across package tests.
// Every fake implements the corresponding production interface and records
// its calls under a mutex so tests can assert on them after concurrent use.
package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/use-agent/fraudlens/models"
	"github.com/use-agent/fraudlens/scraper"
)

// ─── Browser ───────────────────────────────────────────────────────────

// FakeProvider implements scraper.BrowserProvider. Every handle opens Page.
type FakeProvider struct {
	AcquireErr error
	OpenErr    error
	ReleaseErr error
	Page       *FakePage

	mu       sync.Mutex
	acquires int
	releases int
}

func (p *FakeProvider) Acquire(ctx context.Context) (scraper.BrowserHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquires++
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	return &FakeHandle{provider: p}, nil
}

func (p *FakeProvider) Release(h scraper.BrowserHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
	return p.ReleaseErr
}

// Acquires returns how many handles were requested.
func (p *FakeProvider) Acquires() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

// Releases returns how many handles were released.
func (p *FakeProvider) Releases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases
}

// FakeHandle implements scraper.BrowserHandle.
type FakeHandle struct {
	provider *FakeProvider
}

func (h *FakeHandle) OpenPage(ctx context.Context, opts scraper.PageOptions) (scraper.Page, error) {
	if h.provider.OpenErr != nil {
		return nil, h.provider.OpenErr
	}
	page := h.provider.Page
	if page == nil {
		page = &FakePage{}
	}
	page.mu.Lock()
	page.opts = opts
	page.mu.Unlock()
	return page, nil
}

// FakePage implements scraper.Page. With no fields set it navigates
// successfully and serves Content.
type FakePage struct {
	NavigateErr   error
	NavigatePanic any
	ScreenshotErr error
	ScreenshotImg []byte
	Raw           *scraper.RawContent
	ContentErr    error
	CloseErr      error

	// Block makes Navigate wait for ctx to expire.
	Block bool

	mu          sync.Mutex
	opts        scraper.PageOptions
	navigations []string
	closes      int
	shots       int
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.mu.Unlock()

	if p.NavigatePanic != nil {
		panic(p.NavigatePanic)
	}
	if p.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.NavigateErr
}

func (p *FakePage) Screenshot(ctx context.Context, opts scraper.ScreenshotOptions) ([]byte, error) {
	p.mu.Lock()
	p.shots++
	p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	if p.ScreenshotImg == nil {
		return []byte{0xff, 0xd8, 0xff, 0xd9}, nil
	}
	return p.ScreenshotImg, nil
}

func (p *FakePage) Content(ctx context.Context) (*scraper.RawContent, error) {
	if p.ContentErr != nil {
		return nil, p.ContentErr
	}
	if p.Raw != nil {
		return p.Raw, nil
	}
	return &scraper.RawContent{
		HTML:     `<html><head><title>Example Domain</title></head><body><h1>Example Domain</h1></body></html>`,
		BodyText: "Example Domain",
		Title:    "Example Domain",
	}, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return p.CloseErr
}

// Navigations returns every URL passed to Navigate.
func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Closes returns how many times Close was called.
func (p *FakePage) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Screenshots returns how many captures were attempted.
func (p *FakePage) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shots
}

// Options returns the PageOptions the page was opened with.
func (p *FakePage) Options() scraper.PageOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// FakeProber implements scraper.Prober.
type FakeProber struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (p *FakeProber) Probe(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.Err
}

// Calls returns how many probes ran.
func (p *FakeProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// ─── Oracle ────────────────────────────────────────────────────────────

// FakeOracle implements analysis.Oracle with canned replies.
type FakeOracle struct {
	AssessReply  string
	AssessErr    error
	RegionsReply string
	RegionsErr   error

	mu            sync.Mutex
	assessCalls   int
	regionCalls   int
	lastSummary   models.ContentSummary
	lastRegionReq models.RegionQuery
}

func (o *FakeOracle) AssessRisk(ctx context.Context, s models.ContentSummary) (json.RawMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assessCalls++
	o.lastSummary = s
	if o.AssessErr != nil {
		return nil, o.AssessErr
	}
	return json.RawMessage(o.AssessReply), nil
}

func (o *FakeOracle) LocateRegions(ctx context.Context, q models.RegionQuery) (json.RawMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.regionCalls++
	o.lastRegionReq = q
	if o.RegionsErr != nil {
		return nil, o.RegionsErr
	}
	return json.RawMessage(o.RegionsReply), nil
}

// AssessCalls returns how many assessments were requested.
func (o *FakeOracle) AssessCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.assessCalls
}

// RegionCalls returns how many region lookups were requested.
func (o *FakeOracle) RegionCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.regionCalls
}

// LastSummary returns the most recent assessment input.
func (o *FakeOracle) LastSummary() models.ContentSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSummary
}

// LastRegionQuery returns the most recent region lookup input.
func (o *FakeOracle) LastRegionQuery() models.RegionQuery {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRegionReq
}
