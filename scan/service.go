// Package scan orchestrates one URL scan: cache lookup, admission, page
// extraction, risk assessment and region location.
package scan

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/fraudlens/cache"
	"github.com/use-agent/fraudlens/gate"
	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
	"github.com/use-agent/fraudlens/webhook"
)

// ContentExtractor renders a URL into a snapshot. It never returns nil.
type ContentExtractor interface {
	Extract(ctx context.Context, url, requestID string) *models.PageSnapshot
}

// RiskAssessor produces a verdict for a snapshot. It never fails.
type RiskAssessor interface {
	Assess(ctx context.Context, snap *models.PageSnapshot, requestID string) models.RiskAssessment
}

// RegionLocator derives screenshot overlays. It never fails.
type RegionLocator interface {
	Locate(ctx context.Context, a models.RiskAssessment, snap *models.PageSnapshot, requestID string) []models.SuspiciousRegion
}

// Deps are the collaborators of a Service. Notifier may be nil.
type Deps struct {
	Cache     *cache.Cache
	Gate      *gate.Gate
	Extractor ContentExtractor
	Assessor  RiskAssessor
	Locator   RegionLocator
	Notifier  *webhook.Notifier
}

// Service owns the scan cache and admission gate and runs the pipeline.
// It is safe for concurrent use.
type Service struct {
	cache     *cache.Cache
	gate      *gate.Gate
	extractor ContentExtractor
	assessor  RiskAssessor
	locator   RegionLocator
	notifier  *webhook.Notifier
	now       func() time.Time
}

// NewService wires a Service.
func NewService(d Deps) *Service {
	return &Service{
		cache:     d.Cache,
		gate:      d.Gate,
		extractor: d.Extractor,
		assessor:  d.Assessor,
		locator:   d.Locator,
		notifier:  d.Notifier,
		now:       time.Now,
	}
}

// Scan runs the pipeline for rawURL. It fails with a *models.ScanError
// when the URL is invalid or the page could not be reached at all; oracle
// trouble never fails a scan.
//
// The work runs detached from ctx's cancellation: a client that hangs up
// does not abort a scan already admitted. Navigation and oracle timeouts
// still bound it.
func (s *Service) Scan(ctx context.Context, rawURL, requestID string) (*models.ScanResult, error) {
	start := time.Now()
	log := slog.With("request_id", requestID)

	target, err := models.NormalizeURL(rawURL)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(models.KindValidation)).Inc()
		return nil, models.NewScanError(models.KindValidation, err)
	}
	log = log.With("url", target)
	ctx = context.WithoutCancel(ctx)

	if cached, ok := s.cache.Get(target); ok {
		cached.RequestID = requestID
		cached.Cached = true
		metrics.ScansTotal.WithLabelValues("cached").Inc()
		log.Info("scan served from cache")
		return cached, nil
	}

	res, err := gate.Run(s.gate, func() (*models.ScanResult, error) {
		return s.run(ctx, target, requestID)
	})
	if err != nil {
		var scanErr *models.ScanError
		if !errors.As(err, &scanErr) {
			scanErr = models.NewScanError(models.KindGeneral, err)
		}
		metrics.ScansTotal.WithLabelValues(string(scanErr.Kind)).Inc()
		log.Warn("scan failed", "kind", scanErr.Kind, "error", err)
		return nil, scanErr
	}

	s.cache.Put(target, res)
	if s.notifier.NotifyAsync(res) {
		log.Info("high-risk webhook queued", "risk_score", res.Analysis.RiskScore)
	}

	metrics.ScansTotal.WithLabelValues("ok").Inc()
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	metrics.RiskScores.Observe(res.Analysis.RiskScore)
	log.Info("scan complete",
		"risk_score", res.Analysis.RiskScore,
		"risk_level", res.Analysis.RiskLevel,
		"simulated", res.Analysis.IsSimulated,
		"markers", len(res.Markers),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Stats reports gate occupancy and cache size for health checks.
func (s *Service) Stats() (models.GateStats, int) {
	return s.gate.Stats(), s.cache.Len()
}

// Drain returns a channel closed once no scan is running or queued.
func (s *Service) Drain() <-chan struct{} {
	return s.gate.OnIdle()
}

func (s *Service) run(ctx context.Context, target, requestID string) (*models.ScanResult, error) {
	snap := s.extractor.Extract(ctx, target, requestID)
	if snap.Failed() && snap.FetchError.Kind.Fatal() {
		return nil, &models.ScanError{
			Kind:    snap.FetchError.Kind,
			Message: snap.FetchError.Kind.Message(),
			Err:     errors.New(snap.FetchError.Message),
		}
	}

	assessment := s.assessor.Assess(ctx, snap, requestID)
	markers := s.locator.Locate(ctx, assessment, snap, requestID)
	if markers == nil {
		markers = []models.SuspiciousRegion{}
	}

	return &models.ScanResult{
		URL:        target,
		Screenshot: dataURI(snap.Screenshot),
		Analysis:   assessment,
		Markers:    markers,
		ScanTime:   s.now().UTC(),
		RequestID:  requestID,
	}, nil
}

// dataURI encodes a JPEG screenshot, or returns nil when there is none.
func dataURI(img []byte) *string {
	if img == nil {
		return nil
	}
	s := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)
	return &s
}
