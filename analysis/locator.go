package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
)

const (
	// minLocateScore is the lowest score worth marking up.
	minLocateScore = 30
	// minGenericScore is the lowest score that earns a generic region when
	// the oracle call fails.
	minGenericScore = 70
	// maxSynthesized bounds regions synthesized from indicators.
	maxSynthesized = 3
	// maxQueryButtons bounds the buttons sent with a region query.
	maxQueryButtons = 10

	genericLabel = "Suspicious content"
)

// PlaceholderRegions are the illustrative overlays shown when there is no
// real assessment or no screenshot to mark.
func PlaceholderRegions() []models.SuspiciousRegion {
	return []models.SuspiciousRegion{
		models.NewRegion(20, 10, 30, 5, "Suspicious login form"),
		models.NewRegion(50, 40, 25, 8, "Clickbait button"),
		models.NewRegion(70, 5, 35, 7, "Suspicious offer"),
	}
}

// Locator derives screenshot overlays from an assessment.
type Locator struct {
	oracle Oracle
}

// NewLocator creates a Locator backed by oracle.
func NewLocator(oracle Oracle) *Locator {
	return &Locator{oracle: oracle}
}

// Locate returns the suspicious regions for a page. It never fails.
func (l *Locator) Locate(ctx context.Context, a models.RiskAssessment, snap *models.PageSnapshot, requestID string) []models.SuspiciousRegion {
	if a.IsSimulated || snap.Screenshot == nil {
		return PlaceholderRegions()
	}
	if a.RiskScore < minLocateScore {
		return []models.SuspiciousRegion{}
	}

	log := slog.With("request_id", requestID, "url", snap.URL)
	buttons := snap.Buttons
	if len(buttons) > maxQueryButtons {
		buttons = buttons[:maxQueryButtons]
	}
	query := models.RegionQuery{
		Indicators: nonNil(a.Indicators),
		Title:      snap.Title,
		FormCount:  snap.FormCount(),
		Buttons:    nonNil(buttons),
		Alerts:     nonNil(snap.Alerts),
	}

	return WithFallback(ctx,
		func(ctx context.Context) ([]models.SuspiciousRegion, error) {
			raw, err := l.oracle.LocateRegions(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("analysis: locate regions: %w", err)
			}
			reply := DecodeRegions(raw)
			if !reply.Ok() {
				metrics.OracleRequests.WithLabelValues("regions", "malformed").Inc()
				log.Warn("region reply malformed, synthesizing from indicators", "error", reply.Malformed)
				return SynthesizeRegions(a.Indicators), nil
			}
			return reply.Value, nil
		},
		func(reason models.DegradationReason, err error) []models.SuspiciousRegion {
			log.Warn("region lookup failed", "reason", reason, "error", err)
			if a.RiskScore >= minGenericScore {
				return []models.SuspiciousRegion{models.NewRegion(20, 10, 30, 5, genericLabel)}
			}
			return []models.SuspiciousRegion{}
		},
		ClassifyOracleError,
	)
}

// SynthesizeRegions lays out up to three regions, one per indicator,
// stepping down and right from the top-left of the page.
func SynthesizeRegions(indicators []string) []models.SuspiciousRegion {
	n := min(len(indicators), maxSynthesized)
	regions := make([]models.SuspiciousRegion, 0, n)
	for i := 0; i < n; i++ {
		label := indicators[i]
		if label == "" {
			label = genericLabel
		}
		regions = append(regions, models.NewRegion(
			float64(20+20*i), float64(10+5*i), 30, 5, label,
		))
	}
	return regions
}
