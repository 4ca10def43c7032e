package llm

import (
	"context"
	"encoding/json"

	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
)

// Oracle answers risk questions through a chat completions Client.
// Replies are returned raw; callers decode and validate them.
type Oracle struct {
	client *Client
}

// NewOracle wraps client.
func NewOracle(client *Client) *Oracle {
	return &Oracle{client: client}
}

// AssessRisk asks for a fraud verdict on a page summary.
func (o *Oracle) AssessRisk(ctx context.Context, s models.ContentSummary) (json.RawMessage, error) {
	return o.call(ctx, "assess", assessSystemPrompt, assessUserPrompt(s))
}

// LocateRegions asks where on the screenshot the indicators appear.
func (o *Oracle) LocateRegions(ctx context.Context, q models.RegionQuery) (json.RawMessage, error) {
	return o.call(ctx, "regions", regionsSystemPrompt, regionsUserPrompt(q))
}

func (o *Oracle) call(ctx context.Context, op, system, user string) (json.RawMessage, error) {
	content, err := o.client.Complete(ctx, system, user)
	if err != nil {
		result := "error"
		if IsQuotaExceeded(err) {
			result = "quota"
		}
		metrics.OracleRequests.WithLabelValues(op, result).Inc()
		return nil, err
	}
	metrics.OracleRequests.WithLabelValues(op, "ok").Inc()
	return json.RawMessage(content), nil
}
