// Package analysis turns page snapshots into risk assessments and
// screenshot overlays with the help of an external risk oracle.
package analysis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/use-agent/fraudlens/llm"
	"github.com/use-agent/fraudlens/models"
)

// Oracle is the external risk-analysis capability. Replies are raw JSON
// and are validated by DecodeAssessment and DecodeRegions.
type Oracle interface {
	AssessRisk(ctx context.Context, s models.ContentSummary) (json.RawMessage, error)
	LocateRegions(ctx context.Context, q models.RegionQuery) (json.RawMessage, error)
}

// ErrMalformedReply marks an oracle reply that did not match the schema.
var ErrMalformedReply = errors.New("analysis: malformed oracle reply")

// ClassifyOracleError maps an oracle failure to its degradation reason.
func ClassifyOracleError(err error) models.DegradationReason {
	if llm.IsQuotaExceeded(err) {
		return models.DegradationQuotaExceeded
	}
	return models.DegradationAPIError
}
