package models

import "math"

// Risk levels reported to clients.
const (
	RiskSafe         = "Safe"
	RiskLow          = "Low"
	RiskMedium       = "Medium"
	RiskHigh         = "High"
	RiskCritical     = "Critical"
	RiskUndetermined = "Undetermined"
)

// DegradationReason explains why an assessment was simulated.
type DegradationReason string

const (
	DegradationNone          DegradationReason = ""
	DegradationQuotaExceeded DegradationReason = "QuotaExceeded"
	DegradationAPIError      DegradationReason = "ApiError"
)

// RiskAssessment is the oracle's verdict for one page.
type RiskAssessment struct {
	RiskScore    float64  `json:"riskScore"`
	RiskLevel    string   `json:"riskLevel"`
	FraudTypes   []string `json:"fraudTypes"`
	Indicators   []string `json:"indicators"`
	SafetyAdvice []string `json:"safetyAdvice"`
	IsSimulated  bool     `json:"isSimulated"`

	DegradationReason DegradationReason `json:"degradationReason,omitempty"`
}

// LevelForScore maps a 0-100 risk score to its level.
func LevelForScore(score float64) string {
	switch {
	case score < 20:
		return RiskSafe
	case score < 40:
		return RiskLow
	case score < 60:
		return RiskMedium
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ClampPercent bounds v to [0, 100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SuspiciousRegion is a percentage-based box over the screenshot.
type SuspiciousRegion struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

// NewRegion returns a region with every coordinate clamped to [0, 100].
func NewRegion(top, left, width, height float64, label string) SuspiciousRegion {
	return SuspiciousRegion{
		Top:    ClampPercent(top),
		Left:   ClampPercent(left),
		Width:  ClampPercent(width),
		Height: ClampPercent(height),
		Label:  label,
	}
}
