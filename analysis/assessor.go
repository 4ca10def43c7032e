package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
)

// maxBodyRunes bounds the visible text sent to the oracle.
const maxBodyRunes = 3000

// SimulatedScore is the fixed score of a simulated assessment.
const SimulatedScore = 75

// Assessor produces a RiskAssessment for a snapshot. It never fails: when
// the oracle errors or replies out of schema it returns a simulated
// assessment tagged with the degradation reason.
type Assessor struct {
	oracle Oracle
}

// NewAssessor creates an Assessor backed by oracle.
func NewAssessor(oracle Oracle) *Assessor {
	return &Assessor{oracle: oracle}
}

// Summarize builds the bounded oracle input for a snapshot.
func Summarize(snap *models.PageSnapshot) models.ContentSummary {
	return models.ContentSummary{
		URL:               snap.URL,
		Title:             snap.Title,
		Description:       snap.Metadata.Description,
		BodyText:          truncateRunes(snap.BodyText, maxBodyRunes),
		FormCount:         snap.FormCount(),
		InputTypes:        snap.InputTypes(),
		ExternalLinkCount: snap.ExternalLinkCount(),
		Buttons:           nonNil(snap.Buttons),
		Alerts:            nonNil(snap.Alerts),
	}
}

// Assess asks the oracle for a verdict on snap.
func (a *Assessor) Assess(ctx context.Context, snap *models.PageSnapshot, requestID string) models.RiskAssessment {
	log := slog.With("request_id", requestID, "url", snap.URL)
	summary := Summarize(snap)

	return WithFallback(ctx,
		func(ctx context.Context) (models.RiskAssessment, error) {
			raw, err := a.oracle.AssessRisk(ctx, summary)
			if err != nil {
				return models.RiskAssessment{}, fmt.Errorf("analysis: assess risk: %w", err)
			}
			reply := DecodeAssessment(raw)
			if !reply.Ok() {
				metrics.OracleRequests.WithLabelValues("assess", "malformed").Inc()
				return models.RiskAssessment{}, reply.Malformed
			}
			return reply.Value, nil
		},
		func(reason models.DegradationReason, err error) models.RiskAssessment {
			log.Warn("oracle assessment failed, using simulated result", "reason", reason, "error", err)
			return SimulatedAssessment(reason)
		},
		ClassifyOracleError,
	)
}

// SimulatedAssessment is the placeholder verdict returned in degraded mode.
// Its text states plainly that no real analysis took place.
func SimulatedAssessment(reason models.DegradationReason) models.RiskAssessment {
	cause := "Analysis service unavailable"
	if reason == models.DegradationQuotaExceeded {
		cause = "Analysis quota exceeded"
	}
	return models.RiskAssessment{
		RiskScore:  SimulatedScore,
		RiskLevel:  models.LevelForScore(SimulatedScore),
		FraudTypes: []string{cause, "Simulated data"},
		Indicators: []string{
			cause + ", showing a simulated analysis",
			"The site may use persuasive or urgent language",
			"Forms on the page may request personal information",
			"No clear privacy policy was verified",
		},
		SafetyAdvice: []string{
			"Be careful before entering any personal information",
			"Check that the connection is secure (HTTPS)",
			"Search for reviews of the website",
			cause + ", scan again later for a real assessment",
		},
		IsSimulated:       true,
		DegradationReason: reason,
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
