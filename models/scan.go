package models

import "time"

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResult is the response for a successful scan.
type ScanResult struct {
	URL string `json:"url"`

	// Screenshot is a JPEG data URI, null when no image was captured.
	Screenshot *string `json:"screenshot"`

	Analysis  RiskAssessment     `json:"analysis"`
	Markers   []SuspiciousRegion `json:"markers"`
	ScanTime  time.Time          `json:"scanTime"`
	RequestID string             `json:"requestId"`

	// Cached is true when the result was served from the scan cache.
	Cached bool `json:"cached"`
}

// Clone returns a copy that shares no slices with r.
func (r *ScanResult) Clone() *ScanResult {
	out := *r
	out.Analysis.FraudTypes = append([]string(nil), r.Analysis.FraudTypes...)
	out.Analysis.Indicators = append([]string(nil), r.Analysis.Indicators...)
	out.Analysis.SafetyAdvice = append([]string(nil), r.Analysis.SafetyAdvice...)
	out.Markers = append([]SuspiciousRegion{}, r.Markers...)
	return &out
}

// ContentSummary is the bounded page digest sent to the risk oracle.
type ContentSummary struct {
	URL               string   `json:"url"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	BodyText          string   `json:"bodyText"`
	FormCount         int      `json:"formCount"`
	InputTypes        []string `json:"inputTypes"`
	ExternalLinkCount int      `json:"externalLinkCount"`
	Buttons           []string `json:"buttons"`
	Alerts            []string `json:"alerts"`
}

// RegionQuery asks the oracle where on the page the indicators appear.
type RegionQuery struct {
	Indicators []string `json:"indicators"`
	Title      string   `json:"title"`
	FormCount  int      `json:"formCount"`
	Buttons    []string `json:"buttons"`
	Alerts     []string `json:"alerts"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  string    `json:"timestamp"`
	Uptime     string    `json:"uptime"`
	Gate       GateStats `json:"gate"`
	CacheItems int       `json:"cacheItems"`
}

// GateStats is a point-in-time view of scan admission.
type GateStats struct {
	Active int `json:"active"`
	Queued int `json:"queued"`
	Limit  int `json:"limit"`
}
